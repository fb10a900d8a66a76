package pipeline

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/spigell/smart-applier/internal/keywords"
	"github.com/spigell/smart-applier/internal/model"
	"github.com/spigell/smart-applier/internal/skillgap"
	"github.com/spigell/smart-applier/internal/state"
	"github.com/spigell/smart-applier/internal/workflow"
)

type tailorResumeStage struct {
	deps Deps
}

// NewTailorResume creates the stage that tailors the profile towards the best
// matched job. Without matches it writes nothing.
func NewTailorResume(deps Deps) workflow.Stage {
	return &tailorResumeStage{deps: deps}
}

func (s *tailorResumeStage) Details() map[string]string {
	d := details(
		[]string{state.FieldProfile, state.FieldMatchedJobs},
		[]string{state.FieldTailoredProfile, state.FieldTailoredResumeBytes},
	)
	d["resume_type"] = model.ResumeTailored
	return d
}

func (s *tailorResumeStage) Run(ctx context.Context, in state.Record) (state.Record, error) {
	if err := missing(in, state.FieldProfile, state.FieldMatchedJobs); err != nil {
		return state.Record{}, err
	}
	if len(in.MatchedJobs) == 0 {
		s.deps.logger().Info("no matched jobs, skipping tailoring", zap.String("user_id", in.UserID))
		return state.Record{}, nil
	}

	best := in.MatchedJobs[0].Job
	return tailorAndRender(ctx, s.deps, in, skillgap.RequiredSkills(best.Skills), best.Title)
}

type cleanJDStage struct {
	deps Deps
}

// NewCleanJD creates the stage that extracts keywords from a job description.
func NewCleanJD(deps Deps) workflow.Stage {
	return &cleanJDStage{deps: deps}
}

func (s *cleanJDStage) Details() map[string]string {
	return details([]string{state.FieldJDText}, []string{state.FieldJDKeywords})
}

func (s *cleanJDStage) Run(ctx context.Context, in state.Record) (state.Record, error) {
	if err := missing(in, state.FieldJDText); err != nil {
		return state.Record{}, err
	}

	kws := extract(ctx, s.deps, *in.JDText)
	s.deps.logger().Info("job description keywords extracted", zap.Int("keywords", len(kws)))
	return state.Record{JDKeywords: kws}, nil
}

type tailorFromJDStage struct {
	deps Deps
}

// NewTailorResumeFromJD creates the stage that tailors the profile towards
// the keywords of a job description.
func NewTailorResumeFromJD(deps Deps) workflow.Stage {
	return &tailorFromJDStage{deps: deps}
}

func (s *tailorFromJDStage) Details() map[string]string {
	d := details(
		[]string{state.FieldProfile, state.FieldJDKeywords},
		[]string{state.FieldTailoredProfile, state.FieldTailoredResumeBytes},
	)
	d["resume_type"] = model.ResumeTailored
	return d
}

func (s *tailorFromJDStage) Run(ctx context.Context, in state.Record) (state.Record, error) {
	if err := missing(in, state.FieldProfile, state.FieldJDKeywords); err != nil {
		return state.Record{}, err
	}
	return tailorAndRender(ctx, s.deps, in, in.JDKeywords, "")
}

type jdSkillGapStage struct {
	deps Deps
}

// NewJDSkillGap creates the stage that recommends resources for the job
// description keywords missing from the profile. Keywords are extracted from
// jd_text when jd_keywords is absent.
func NewJDSkillGap(deps Deps) workflow.Stage {
	return &jdSkillGapStage{deps: deps}
}

func (s *jdSkillGapStage) Details() map[string]string {
	return details(
		[]string{state.FieldProfile, state.FieldJDKeywords + "|" + state.FieldJDText},
		[]string{state.FieldJDKeywords, state.FieldSkillGapRecommendations},
	)
}

func (s *jdSkillGapStage) Run(ctx context.Context, in state.Record) (state.Record, error) {
	if err := missing(in, state.FieldProfile); err != nil {
		return state.Record{}, err
	}

	kws := in.JDKeywords
	if kws == nil {
		if in.JDText == nil {
			return state.Record{}, fmt.Errorf("%w: %s or %s", ErrMissingInput, state.FieldJDKeywords, state.FieldJDText)
		}
		kws = extract(ctx, s.deps, *in.JDText)
	}

	recommendations := recommend(ctx, s.deps, skillgap.MissingFromKeywords(in.Profile, kws))
	return state.Record{JDKeywords: kws, SkillGapRecommendations: recommendations}, nil
}

func extract(ctx context.Context, deps Deps, text string) []string {
	extractor := deps.Extractor
	if extractor == nil {
		extractor = keywords.NewExtractor(nil, deps.Logger)
	}
	return extractor.Extract(ctx, text)
}

// tailorAndRender refines the profile towards kws, then renders and stores
// the tailored resume.
func tailorAndRender(ctx context.Context, deps Deps, in state.Record, kws []string, target string) (state.Record, error) {
	if deps.Tailor == nil {
		return state.Record{}, missingDep("tailor")
	}

	res, err := deps.Tailor.Tailor(ctx, in.Profile, kws, target)
	if err != nil {
		return state.Record{}, fmt.Errorf("tailor profile: %w", err)
	}
	deps.logger().Info("profile tailored",
		zap.String("user_id", in.UserID),
		zap.String("target", target),
		zap.Strings("matched", res.Matched),
		zap.Float64("coverage", res.Coverage),
		zap.Bool("refined", res.Refined),
	)

	payload, err := renderAndStore(ctx, deps, in.UserID, model.ResumeTailored, res.Profile)
	if err != nil {
		return state.Record{}, err
	}
	return state.Record{TailoredProfile: res.Profile, TailoredResumeBytes: payload}, nil
}
