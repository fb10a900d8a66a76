package matching

import (
	"strings"

	"github.com/spigell/smart-applier/internal/model"
)

// ProfileText serializes a profile into the text that gets embedded. Skill
// categories are sorted by name so equal profiles always produce equal text.
func ProfileText(p *model.Profile) string {
	if p == nil {
		return ""
	}

	var b strings.Builder
	for _, category := range p.SkillCategories() {
		skills := p.Skills[category]
		if len(skills) == 0 {
			continue
		}
		b.WriteString(category)
		b.WriteString(": ")
		b.WriteString(strings.Join(skills, ", "))
		b.WriteString("\n")
	}

	for _, group := range [][]model.Entry{p.Experience, p.Projects} {
		for _, entry := range group {
			writeLine(&b, entry.Title, entry.Organization, entry.Description)
		}
	}
	writeLine(&b, p.Summary)

	return strings.TrimSpace(b.String())
}

// JobText serializes the parts of a job that describe the work itself.
func JobText(job model.Job) string {
	var b strings.Builder
	writeLine(&b, job.Title)
	writeLine(&b, job.Skills)
	writeLine(&b, job.Summary)
	return strings.TrimSpace(b.String())
}

func writeLine(b *strings.Builder, parts ...string) {
	kept := make([]string, 0, len(parts))
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			kept = append(kept, part)
		}
	}
	if len(kept) == 0 {
		return
	}
	b.WriteString(strings.Join(kept, ". "))
	b.WriteString("\n")
}
