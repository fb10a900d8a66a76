// Package pipeline implements the workflow stages of smart-applier and the
// pre-defined workflows built from them.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/smart-applier/internal/keywords"
	"github.com/spigell/smart-applier/internal/matching"
	"github.com/spigell/smart-applier/internal/model"
	"github.com/spigell/smart-applier/internal/skillgap"
	"github.com/spigell/smart-applier/internal/state"
	"github.com/spigell/smart-applier/internal/tailor"
)

// Stage names.
const (
	StageLoadProfile        = "load_profile"
	StageScrapeJobs         = "scrape_jobs"
	StageEmbedProfile       = "embed_profile"
	StageEmbedJobs          = "embed_jobs"
	StageMatchJobs          = "match_jobs"
	StageSkillGap           = "skill_gap"
	StageResume             = "resume"
	StageTailorResume       = "tailor_resume"
	StageCleanJD            = "clean_jd"
	StageTailorResumeFromJD = "tailor_resume_from_jd"
	StageJDSkillGap         = "jd_skill_gap"
)

const defaultTopK = 10

// ErrMissingInput is returned by a stage whose required fields are absent.
var ErrMissingInput = errors.New("missing input")

// ProfileStore persists profiles.
type ProfileStore interface {
	SaveProfile(ctx context.Context, p *model.Profile) error
	LoadProfile(ctx context.Context, userID string) (*model.Profile, error)
	ListProfiles(ctx context.Context) ([]model.ProfileMeta, error)
}

// JobStore persists scraped jobs and top matches.
type JobStore interface {
	BulkInsertJobs(ctx context.Context, jobs []model.Job) ([]model.Job, error)
	RecentJobs(ctx context.Context, limit int) ([]model.Job, error)
	SaveMatches(ctx context.Context, userID string, matches []model.MatchedJob) error
	TopMatched(ctx context.Context, userID string, limit int) ([]model.MatchedJob, error)
}

// ResumeStore persists rendered resumes.
type ResumeStore interface {
	SaveResume(ctx context.Context, userID, kind string, payload []byte) (model.ResumeMeta, error)
	ListResumes(ctx context.Context, userID string) ([]model.ResumeMeta, error)
}

// Scraper fetches job postings. An empty result is not an error.
type Scraper interface {
	Scrape(ctx context.Context, query string, pages int) ([]model.Job, error)
}

// Renderer turns a profile into a resume document.
type Renderer interface {
	Render(p *model.Profile) ([]byte, error)
}

// Deps aggregates dependencies shared across all stages. A stage only
// requires the dependencies it uses; the stores are optional.
type Deps struct {
	Profiles  ProfileStore
	Jobs      JobStore
	Resumes   ResumeStore
	Scraper   Scraper
	Matcher   *matching.Engine
	SkillGap  *skillgap.Engine
	Extractor *keywords.Extractor
	Tailor    *tailor.Tailor
	Renderer  Renderer
	Logger    *zap.Logger
}

func (d Deps) logger() *zap.Logger {
	if d.Logger == nil {
		return zap.NewNop()
	}
	return d.Logger
}

// Options parameterize the job stages.
type Options struct {
	Query string
	Pages int
	// TopK bounds the number of matches; 0 means the default of 10 and a
	// negative value keeps every job.
	TopK int
}

func (o Options) topK() int {
	if o.TopK == 0 {
		return defaultTopK
	}
	return o.TopK
}

// missing reports the absent fields of in among required.
func missing(in state.Record, required ...string) error {
	var absent []string
	for _, field := range required {
		if !in.Has(field) {
			absent = append(absent, field)
		}
	}
	if len(absent) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %s", ErrMissingInput, strings.Join(absent, ", "))
}

func missingDep(name string) error {
	return fmt.Errorf("%s is not configured", name)
}
