// Package keywords compares job-description keywords with profile skills.
package keywords

import (
	"context"
	"math"
	"slices"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"
)

const minFallbackRunes = 4

// Compare returns the keywords that case-insensitively equal one of the
// profile skills, lowercased, sorted and deduplicated.
func Compare(keywords, profileSkills []string) []string {
	have := make(map[string]struct{}, len(profileSkills))
	for _, skill := range profileSkills {
		have[normalize(skill)] = struct{}{}
	}

	matched := make([]string, 0, len(keywords))
	for _, keyword := range keywords {
		k := normalize(keyword)
		if k == "" {
			continue
		}
		if _, ok := have[k]; ok {
			matched = append(matched, k)
		}
	}
	slices.Sort(matched)
	return slices.Compact(matched)
}

// Coverage returns the matched share of keywords as a percentage rounded to
// one decimal. It is 0 when there are no keywords.
func Coverage(matched, keywords []string) float64 {
	if len(keywords) == 0 {
		return 0
	}
	pct := 100 * float64(len(matched)) / float64(len(keywords))
	pct = math.Round(pct*10) / 10
	return math.Max(0, math.Min(100, pct))
}

// Fallback returns every whitespace-delimited token longer than three
// characters. Case variants collapse onto their first spelling.
func Fallback(text string) []string {
	out := []string{}
	seen := make(map[string]struct{})
	for _, token := range strings.Fields(text) {
		if utf8.RuneCountInString(token) < minFallbackRunes {
			continue
		}
		key := normalize(token)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, token)
	}
	return out
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Generator extracts keywords from free text.
type Generator interface {
	ExtractKeywords(ctx context.Context, text string) ([]string, error)
}

// Extractor asks a Generator for keywords and falls back to Fallback when it
// fails or returns nothing usable.
type Extractor struct {
	generator Generator
	logger    *zap.Logger
}

// NewExtractor creates an Extractor. A nil generator always uses Fallback.
func NewExtractor(generator Generator, logger *zap.Logger) *Extractor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Extractor{generator: generator, logger: logger}
}

// Extract returns the keywords of text. Empty text yields an empty list.
func (e *Extractor) Extract(ctx context.Context, text string) []string {
	if strings.TrimSpace(text) == "" {
		return []string{}
	}

	if e.generator != nil {
		raw, err := e.generator.ExtractKeywords(ctx, text)
		if err != nil {
			e.logger.Warn("keyword extraction failed, using fallback", zap.Error(err))
		} else if kws := clean(raw); len(kws) > 0 {
			return kws
		} else {
			e.logger.Warn("keyword extraction returned nothing, using fallback")
		}
	}

	return Fallback(text)
}

func clean(raw []string) []string {
	out := make([]string, 0, len(raw))
	for _, kw := range raw {
		if kw = strings.TrimSpace(kw); kw != "" {
			out = append(out, kw)
		}
	}
	return out
}
