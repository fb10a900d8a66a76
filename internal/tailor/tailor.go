// Package tailor rewrites a profile towards a job through the text
// generator, keeping the original whenever the result is unusable.
package tailor

import (
	"context"
	_ "embed"
	"fmt"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/xeipuuv/gojsonschema"
	"go.uber.org/zap"

	"github.com/spigell/smart-applier/internal/ai"
	"github.com/spigell/smart-applier/internal/keywords"
	"github.com/spigell/smart-applier/internal/model"
)

//go:embed profile.schema.json
var profileSchema string

// Refiner is the generator call used for tailoring.
type Refiner interface {
	RefineProfile(ctx context.Context, req ai.RefineRequest) (map[string]any, error)
}

// FieldError is a single shape violation of a refined profile.
type FieldError struct {
	Field   string
	Message string
}

// ShapeError reports a refined profile that does not match the profile
// shape.
type ShapeError struct {
	Errors []FieldError
}

func (e *ShapeError) Error() string {
	parts := make([]string, 0, len(e.Errors))
	for _, fe := range e.Errors {
		parts = append(parts, fmt.Sprintf("%s: %s", fe.Field, fe.Message))
	}
	return "refined profile has invalid shape: " + strings.Join(parts, "; ")
}

// Result is the outcome of a tailoring run.
type Result struct {
	Profile  *model.Profile
	Matched  []string
	Coverage float64
	// Refined is false when the original profile was kept.
	Refined bool
}

// Tailor refines profiles.
type Tailor struct {
	refiner Refiner
	schema  *gojsonschema.Schema
	logger  *zap.Logger
}

// New compiles the profile schema and returns a Tailor.
func New(refiner Refiner, logger *zap.Logger) (*Tailor, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(profileSchema))
	if err != nil {
		return nil, fmt.Errorf("load profile schema: %w", err)
	}
	return &Tailor{refiner: refiner, schema: schema, logger: logger}, nil
}

// Tailor asks the generator to refine p towards kws. Generator failures and
// invalid results are logged and the unmodified profile is returned.
func (t *Tailor) Tailor(ctx context.Context, p *model.Profile, kws []string, target string) (Result, error) {
	if p == nil {
		return Result{}, fmt.Errorf("tailor: profile is nil")
	}

	matched := keywords.Compare(kws, p.FlatSkills())
	result := Result{
		Profile:  p.Clone(),
		Matched:  matched,
		Coverage: keywords.Coverage(matched, kws),
	}

	if t.refiner == nil || len(kws) == 0 {
		return result, nil
	}

	raw, err := t.refiner.RefineProfile(ctx, ai.RefineRequest{
		Profile:  p.Clone(),
		Keywords: kws,
		Matched:  matched,
		Coverage: result.Coverage,
		Target:   target,
	})
	if err != nil {
		if ctx.Err() != nil {
			return Result{}, ctx.Err()
		}
		t.logger.Warn("profile refinement failed, keeping original profile",
			zap.String("user_id", p.UserID), zap.Error(err))
		return result, nil
	}

	refined, err := t.decode(raw, p.UserID)
	if err != nil {
		t.logger.Warn("refined profile rejected, keeping original profile",
			zap.String("user_id", p.UserID), zap.Error(err))
		return result, nil
	}

	result.Profile = refined
	result.Refined = true
	t.logger.Debug("profile refined",
		zap.String("user_id", p.UserID),
		zap.Int("keywords", len(kws)),
		zap.Float64("coverage", result.Coverage),
	)
	return result, nil
}

// decode validates raw against the profile schema, decodes it and checks the
// struct rules. The stored user id always wins over the generated one.
func (t *Tailor) decode(raw map[string]any, userID string) (*model.Profile, error) {
	res, err := t.schema.Validate(gojsonschema.NewGoLoader(raw))
	if err != nil {
		return nil, fmt.Errorf("validate refined profile: %w", err)
	}
	if !res.Valid() {
		shape := &ShapeError{}
		for _, re := range res.Errors() {
			shape.Errors = append(shape.Errors, FieldError{Field: re.Field(), Message: re.Description()})
		}
		return nil, shape
	}

	var refined model.Profile
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result: &refined,
	})
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(raw); err != nil {
		return nil, fmt.Errorf("decode refined profile: %w", err)
	}

	refined.UserID = userID
	if err := refined.Validate(); err != nil {
		return nil, err
	}
	return &refined, nil
}
