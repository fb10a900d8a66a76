// Package skillgap finds skills that jobs ask for and a profile lacks, and
// attaches learning resources to them.
package skillgap

import (
	"cmp"
	"context"
	"slices"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/smart-applier/internal/model"
)

// ResourceLookup resolves learning resources for a normalized skill.
type ResourceLookup interface {
	Lookup(ctx context.Context, skill string) ([]string, error)
}

// Normalize lowercases and trims a skill token.
func Normalize(token string) string {
	return strings.ToLower(strings.TrimSpace(token))
}

// ProfileSkills returns the set of normalized skills across all categories.
func ProfileSkills(p *model.Profile) map[string]struct{} {
	set := make(map[string]struct{})
	if p == nil {
		return set
	}
	for _, skills := range p.Skills {
		for _, skill := range skills {
			if s := Normalize(skill); s != "" {
				set[s] = struct{}{}
			}
		}
	}
	return set
}

// RequiredSkills parses a job's free-text skills field. The text is split on
// commas and only split on whitespace when that yields no token, so a single
// multi-word skill stays whole. Tokens are normalized and deduplicated in
// first-seen order.
func RequiredSkills(text string) []string {
	tokens := nonEmpty(strings.Split(text, ","))
	if len(tokens) == 0 {
		tokens = strings.Fields(text)
	}

	seen := make(map[string]struct{}, len(tokens))
	out := make([]string, 0, len(tokens))
	for _, token := range tokens {
		skill := Normalize(token)
		if skill == "" {
			continue
		}
		if _, ok := seen[skill]; ok {
			continue
		}
		seen[skill] = struct{}{}
		out = append(out, skill)
	}
	return out
}

func nonEmpty(tokens []string) []string {
	out := tokens[:0:0]
	for _, token := range tokens {
		if strings.TrimSpace(token) != "" {
			out = append(out, token)
		}
	}
	return out
}

// Missing returns the skills required by any job and absent from the
// profile, most frequently requested first. Ties are ordered alphabetically.
func Missing(p *model.Profile, jobs []model.Job) []string {
	have := ProfileSkills(p)
	counts := make(map[string]int)
	for _, job := range jobs {
		for _, skill := range RequiredSkills(job.Skills) {
			if _, ok := have[skill]; !ok {
				counts[skill]++
			}
		}
	}
	return rank(counts)
}

// MissingFromKeywords returns the keywords absent from the profile, treating
// them as the requirements of a single job.
func MissingFromKeywords(p *model.Profile, keywords []string) []string {
	have := ProfileSkills(p)
	counts := make(map[string]int)
	for _, keyword := range keywords {
		skill := Normalize(keyword)
		if skill == "" {
			continue
		}
		if _, ok := have[skill]; !ok {
			counts[skill] = 1
		}
	}
	return rank(counts)
}

func rank(counts map[string]int) []string {
	skills := make([]string, 0, len(counts))
	for skill := range counts {
		skills = append(skills, skill)
	}
	slices.SortFunc(skills, func(a, b string) int {
		if c := cmp.Compare(counts[b], counts[a]); c != 0 {
			return c
		}
		return strings.Compare(a, b)
	})
	return skills
}

// Engine attaches learning resources to missing skills.
type Engine struct {
	lookup ResourceLookup
	logger *zap.Logger
}

// NewEngine creates an Engine. A nil logger disables logging.
func NewEngine(lookup ResourceLookup, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{lookup: lookup, logger: logger}
}

// Recommend maps every missing skill to its resources. A skill whose lookup
// fails or finds nothing is still reported, with an empty list. An empty
// result means the profile covers every requirement.
func (e *Engine) Recommend(ctx context.Context, missing []string) map[string][]string {
	out := make(map[string][]string, len(missing))
	for _, skill := range missing {
		resources := []string{}
		if e.lookup != nil {
			found, err := e.lookup.Lookup(ctx, skill)
			if err != nil {
				e.logger.Warn("resource lookup failed", zap.String("skill", skill), zap.Error(err))
			} else if len(found) > 0 {
				resources = found
			}
		}
		out[skill] = resources
	}
	return out
}
