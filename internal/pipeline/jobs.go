package pipeline

import (
	"context"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"github.com/spigell/smart-applier/internal/matching"
	"github.com/spigell/smart-applier/internal/model"
	"github.com/spigell/smart-applier/internal/skillgap"
	"github.com/spigell/smart-applier/internal/state"
	"github.com/spigell/smart-applier/internal/workflow"
)

type scrapeJobsStage struct {
	deps Deps
	opts Options
}

// NewScrapeJobs creates the stage that scrapes job postings and persists
// them. An empty scrape is a valid result.
func NewScrapeJobs(deps Deps, opts Options) workflow.Stage {
	return &scrapeJobsStage{deps: deps, opts: opts}
}

func (s *scrapeJobsStage) Details() map[string]string {
	d := details(nil, []string{state.FieldScrapedJobs})
	if s.opts.Query != "" {
		d["query"] = s.opts.Query
	}
	if s.opts.Pages > 0 {
		d["pages"] = strconv.Itoa(s.opts.Pages)
	}
	d["persist"] = strconv.FormatBool(s.deps.Jobs != nil)
	return d
}

func (s *scrapeJobsStage) Run(ctx context.Context, _ state.Record) (state.Record, error) {
	if s.deps.Scraper == nil {
		return state.Record{}, missingDep("scraper")
	}

	jobs, err := s.deps.Scraper.Scrape(ctx, s.opts.Query, s.opts.Pages)
	if err != nil {
		return state.Record{}, fmt.Errorf("scrape jobs: %w", err)
	}
	if jobs == nil {
		jobs = []model.Job{}
	}

	if s.deps.Jobs != nil && len(jobs) > 0 {
		jobs, err = s.deps.Jobs.BulkInsertJobs(ctx, jobs)
		if err != nil {
			return state.Record{}, fmt.Errorf("persist scraped jobs: %w", err)
		}
	}

	s.deps.logger().Info("jobs scraped",
		zap.String("query", s.opts.Query),
		zap.Int("jobs", len(jobs)),
	)
	return state.Record{ScrapedJobs: jobs}, nil
}

type embedJobsStage struct {
	deps Deps
}

// NewEmbedJobs creates the stage that embeds every scraped job.
func NewEmbedJobs(deps Deps) workflow.Stage {
	return &embedJobsStage{deps: deps}
}

func (s *embedJobsStage) Details() map[string]string {
	return details([]string{state.FieldScrapedJobs}, []string{state.FieldJobEmbeddings})
}

func (s *embedJobsStage) Run(ctx context.Context, in state.Record) (state.Record, error) {
	if err := missing(in, state.FieldScrapedJobs); err != nil {
		return state.Record{}, err
	}
	if s.deps.Matcher == nil {
		return state.Record{}, missingDep("matching engine")
	}

	vectors, err := s.deps.Matcher.EmbedJobs(ctx, in.ScrapedJobs)
	if err != nil {
		return state.Record{}, err
	}
	return state.Record{JobEmbeddings: vectors}, nil
}

type matchJobsStage struct {
	deps Deps
	opts Options
}

// NewMatchJobs creates the stage that ranks scraped jobs against the profile
// and persists the top matches.
func NewMatchJobs(deps Deps, opts Options) workflow.Stage {
	return &matchJobsStage{deps: deps, opts: opts}
}

func (s *matchJobsStage) Details() map[string]string {
	d := details(
		[]string{state.FieldProfileVector, state.FieldScrapedJobs, state.FieldJobEmbeddings},
		[]string{state.FieldMatchedJobs},
	)
	d["top_k"] = strconv.Itoa(s.opts.topK())
	return d
}

func (s *matchJobsStage) Run(ctx context.Context, in state.Record) (state.Record, error) {
	if err := missing(in, state.FieldProfileVector, state.FieldScrapedJobs, state.FieldJobEmbeddings); err != nil {
		return state.Record{}, err
	}

	matches, err := matching.MatchJobs(in.ProfileVector, in.ScrapedJobs, in.JobEmbeddings, s.opts.topK())
	if err != nil {
		return state.Record{}, fmt.Errorf("match jobs: %w", err)
	}

	if s.deps.Jobs != nil {
		stored := make([]model.MatchedJob, 0, len(matches))
		for _, m := range matches {
			if m.Job.ID != 0 {
				stored = append(stored, m)
			}
		}
		if len(stored) > 0 {
			if err := s.deps.Jobs.SaveMatches(ctx, in.UserID, stored); err != nil {
				return state.Record{}, fmt.Errorf("persist matches: %w", err)
			}
		}
	}

	fields := []zap.Field{zap.Int("jobs", len(in.ScrapedJobs)), zap.Int("matches", len(matches))}
	if len(matches) > 0 {
		fields = append(fields, zap.String("best_title", matches[0].Job.Title), zap.Float64("best_score", matches[0].Score))
	}
	s.deps.logger().Info("jobs matched", fields...)

	return state.Record{MatchedJobs: matches}, nil
}

type skillGapStage struct {
	deps Deps
}

// NewSkillGap creates the stage that recommends resources for the skills the
// scraped jobs require and the profile lacks.
func NewSkillGap(deps Deps) workflow.Stage {
	return &skillGapStage{deps: deps}
}

func (s *skillGapStage) Details() map[string]string {
	return details(
		[]string{state.FieldProfile, state.FieldScrapedJobs},
		[]string{state.FieldSkillGapRecommendations},
	)
}

func (s *skillGapStage) Run(ctx context.Context, in state.Record) (state.Record, error) {
	if err := missing(in, state.FieldProfile, state.FieldScrapedJobs); err != nil {
		return state.Record{}, err
	}

	recommendations := recommend(ctx, s.deps, skillgap.Missing(in.Profile, in.ScrapedJobs))
	return state.Record{SkillGapRecommendations: recommendations}, nil
}

func recommend(ctx context.Context, deps Deps, missingSkills []string) map[string][]string {
	engine := deps.SkillGap
	if engine == nil {
		engine = skillgap.NewEngine(nil, deps.Logger)
	}

	recommendations := engine.Recommend(ctx, missingSkills)
	deps.logger().Info("skill gap computed",
		zap.Int("missing", len(missingSkills)),
		zap.Strings("skills", missingSkills),
	)
	return recommendations
}
