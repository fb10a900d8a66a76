package pipeline

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/smart-applier/internal/model"
	"github.com/spigell/smart-applier/internal/state"
	"github.com/spigell/smart-applier/internal/workflow"
)

func details(reads, writes []string) map[string]string {
	d := map[string]string{}
	if len(reads) > 0 {
		d["reads"] = strings.Join(reads, ",")
	}
	if len(writes) > 0 {
		d["writes"] = strings.Join(writes, ",")
	}
	return d
}

type loadProfileStage struct {
	deps Deps
}

// NewLoadProfile creates the stage that loads the stored profile of user_id.
// A missing profile fails the stage.
func NewLoadProfile(deps Deps) workflow.Stage {
	return &loadProfileStage{deps: deps}
}

func (s *loadProfileStage) Details() map[string]string {
	return details([]string{state.FieldUserID}, []string{state.FieldProfile})
}

func (s *loadProfileStage) Run(ctx context.Context, in state.Record) (state.Record, error) {
	if err := missing(in, state.FieldUserID); err != nil {
		return state.Record{}, err
	}
	if s.deps.Profiles == nil {
		return state.Record{}, missingDep("profile store")
	}

	profile, err := s.deps.Profiles.LoadProfile(ctx, in.UserID)
	if err != nil {
		return state.Record{}, fmt.Errorf("load profile %s: %w", in.UserID, err)
	}

	s.deps.logger().Debug("profile loaded",
		zap.String("user_id", in.UserID),
		zap.Int("skill_categories", len(profile.Skills)),
	)
	return state.Record{Profile: profile}, nil
}

type embedProfileStage struct {
	deps Deps
}

// NewEmbedProfile creates the stage that embeds the profile text.
func NewEmbedProfile(deps Deps) workflow.Stage {
	return &embedProfileStage{deps: deps}
}

func (s *embedProfileStage) Details() map[string]string {
	return details([]string{state.FieldProfile}, []string{state.FieldProfileVector})
}

func (s *embedProfileStage) Run(ctx context.Context, in state.Record) (state.Record, error) {
	if err := missing(in, state.FieldProfile); err != nil {
		return state.Record{}, err
	}
	if s.deps.Matcher == nil {
		return state.Record{}, missingDep("matching engine")
	}

	vec, err := s.deps.Matcher.EmbedProfile(ctx, in.Profile)
	if err != nil {
		return state.Record{}, err
	}
	return state.Record{ProfileVector: vec}, nil
}

type resumeStage struct {
	deps Deps
}

// NewResume creates the stage that renders and stores a resume of the
// profile as is.
func NewResume(deps Deps) workflow.Stage {
	return &resumeStage{deps: deps}
}

func (s *resumeStage) Details() map[string]string {
	d := details([]string{state.FieldProfile}, []string{state.FieldResumeBytes})
	d["resume_type"] = model.ResumeGenerated
	return d
}

func (s *resumeStage) Run(ctx context.Context, in state.Record) (state.Record, error) {
	if err := missing(in, state.FieldProfile); err != nil {
		return state.Record{}, err
	}

	payload, err := renderAndStore(ctx, s.deps, in.UserID, model.ResumeGenerated, in.Profile)
	if err != nil {
		return state.Record{}, err
	}
	return state.Record{ResumeBytes: payload}, nil
}

// renderAndStore renders p and saves the document when a resume store is
// configured.
func renderAndStore(ctx context.Context, deps Deps, userID, kind string, p *model.Profile) ([]byte, error) {
	if deps.Renderer == nil {
		return nil, missingDep("resume renderer")
	}

	payload, err := deps.Renderer.Render(p)
	if err != nil {
		return nil, fmt.Errorf("render %s resume: %w", kind, err)
	}
	if payload == nil {
		payload = []byte{}
	}

	if deps.Resumes != nil {
		meta, err := deps.Resumes.SaveResume(ctx, userID, kind, payload)
		if err != nil {
			return nil, fmt.Errorf("save %s resume: %w", kind, err)
		}
		deps.logger().Info("resume saved",
			zap.String("user_id", userID),
			zap.String("resume_id", meta.ID),
			zap.String("resume_type", kind),
			zap.Int("size", meta.Size),
		)
	}
	return payload, nil
}
