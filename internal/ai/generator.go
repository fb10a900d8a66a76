// Package ai declares the text-generation port used by keyword extraction and
// profile tailoring.
package ai

import (
	"context"

	"github.com/spigell/smart-applier/internal/model"
)

// RefineRequest asks for a profile rewritten towards a set of keywords.
type RefineRequest struct {
	Profile  *model.Profile
	Keywords []string
	// Matched lists the keywords the profile already covers.
	Matched  []string
	Coverage float64
	// Target describes the job the profile is tailored for, when known.
	Target string
}

// Generator is implemented by text-generation providers.
type Generator interface {
	// ExtractKeywords returns the skills and technologies mentioned in text.
	ExtractKeywords(ctx context.Context, text string) ([]string, error)
	// RefineProfile returns the refined profile as loosely typed data. The
	// caller is responsible for validating its shape.
	RefineProfile(ctx context.Context, req RefineRequest) (map[string]any, error)
}
