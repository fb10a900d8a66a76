// Package resume renders profiles into Markdown resumes.
package resume

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"text/template"
	"unicode"

	"github.com/spigell/smart-applier/internal/model"
)

//go:embed template.md.tmpl
var defaultTemplate string

type section struct {
	Title   string
	Entries []model.Entry
}

var funcs = template.FuncMap{
	"join": strings.Join,
	"title": func(s string) string {
		runes := []rune(strings.ReplaceAll(strings.TrimSpace(s), "_", " "))
		if len(runes) == 0 {
			return ""
		}
		runes[0] = unicode.ToUpper(runes[0])
		return string(runes)
	},
	"section": func(title string, entries []model.Entry) section {
		return section{Title: title, Entries: entries}
	},
	"contacts": func(p *model.Profile) string {
		var parts []string
		for _, v := range []string{p.Personal.Email, p.Personal.Phone, p.Personal.Location, p.Personal.LinkedIn, p.Personal.GitHub} {
			if v = strings.TrimSpace(v); v != "" {
				parts = append(parts, v)
			}
		}
		return strings.Join(parts, " | ")
	},
}

// Renderer turns a profile into a Markdown document.
type Renderer struct {
	tmpl *template.Template
}

// NewRenderer parses tmpl, or the built-in layout when tmpl is empty.
func NewRenderer(tmpl string) (*Renderer, error) {
	if strings.TrimSpace(tmpl) == "" {
		tmpl = defaultTemplate
	}
	t, err := template.New("resume").Funcs(funcs).Option("missingkey=error").Parse(tmpl)
	if err != nil {
		return nil, fmt.Errorf("parse resume template: %w", err)
	}
	return &Renderer{tmpl: t}, nil
}

// Render executes the template against p.
func (r *Renderer) Render(p *model.Profile) ([]byte, error) {
	if p == nil {
		return nil, errors.New("render resume: profile is nil")
	}

	var buf bytes.Buffer
	if err := r.tmpl.Execute(&buf, p); err != nil {
		return nil, fmt.Errorf("render resume: %w", err)
	}
	return collapseBlankLines(buf.Bytes()), nil
}

func collapseBlankLines(b []byte) []byte {
	lines := strings.Split(strings.TrimSpace(string(b)), "\n")
	out := make([]string, 0, len(lines))
	blank := false
	for _, line := range lines {
		line = strings.TrimRight(line, " \t")
		if line == "" {
			if blank {
				continue
			}
			blank = true
		} else {
			blank = false
		}
		out = append(out, line)
	}
	return []byte(strings.Join(out, "\n") + "\n")
}
