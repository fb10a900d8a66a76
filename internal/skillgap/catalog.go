package skillgap

import (
	"context"
	"net/url"
	"slices"
	"strings"
)

// SkillPlaceholder is replaced with the query-escaped skill in search
// templates.
const SkillPlaceholder = "{skill}"

// DefaultSearchTemplates are appended after curated entries.
var DefaultSearchTemplates = []string{
	"https://www.coursera.org/search?query={skill}",
	"https://www.youtube.com/results?search_query={skill}+tutorial",
}

var defaultResources = map[string][]string{
	"docker":     {"https://docs.docker.com/get-started/"},
	"kubernetes": {"https://kubernetes.io/docs/tutorials/kubernetes-basics/"},
	"python":     {"https://docs.python.org/3/tutorial/"},
	"sql":        {"https://www.sqltutorial.org/"},
	"go":         {"https://go.dev/tour/"},
	"aws":        {"https://aws.amazon.com/training/"},
	"git":        {"https://git-scm.com/book/en/v2"},
	"terraform":  {"https://developer.hashicorp.com/terraform/tutorials"},
}

// Catalog resolves resources from curated entries followed by generic search
// links.
type Catalog struct {
	entries   map[string][]string
	templates []string
	max       int
}

// CatalogOptions configures a Catalog.
type CatalogOptions struct {
	// Entries extend or override the built-in curated resources.
	Entries         map[string][]string `mapstructure:"resources"`
	SearchTemplates []string            `mapstructure:"search-templates"`
	// MaxResources caps the resources returned per skill. Zero means no cap.
	MaxResources int `mapstructure:"max-resources"`
}

// NewCatalog builds a catalog from the built-in entries and opts.
func NewCatalog(opts CatalogOptions) *Catalog {
	entries := make(map[string][]string, len(defaultResources)+len(opts.Entries))
	for skill, links := range defaultResources {
		entries[skill] = slices.Clone(links)
	}
	for skill, links := range opts.Entries {
		entries[Normalize(skill)] = slices.Clone(links)
	}

	templates := opts.SearchTemplates
	if templates == nil {
		templates = DefaultSearchTemplates
	}

	return &Catalog{
		entries:   entries,
		templates: slices.Clone(templates),
		max:       opts.MaxResources,
	}
}

// Lookup implements ResourceLookup.
func (c *Catalog) Lookup(_ context.Context, skill string) ([]string, error) {
	skill = Normalize(skill)
	if skill == "" {
		return nil, nil
	}

	resources := slices.Clone(c.entries[skill])
	escaped := url.QueryEscape(skill)
	for _, tmpl := range c.templates {
		link := strings.ReplaceAll(tmpl, SkillPlaceholder, escaped)
		if !slices.Contains(resources, link) {
			resources = append(resources, link)
		}
	}

	if c.max > 0 && len(resources) > c.max {
		resources = resources[:c.max]
	}
	return resources, nil
}
