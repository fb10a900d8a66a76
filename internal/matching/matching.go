// Package matching ranks scraped jobs against a profile by cosine similarity
// of their embeddings.
package matching

import (
	"cmp"
	"context"
	"fmt"
	"math"
	"slices"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/spigell/smart-applier/internal/model"
)

const defaultConcurrency = 4

// Embedder turns text into a vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// DimensionMismatchError reports inputs that cannot be compared.
type DimensionMismatchError struct {
	What     string
	Expected int
	Got      int
}

func (e *DimensionMismatchError) Error() string {
	return fmt.Sprintf("dimension mismatch: %s: expected %d, got %d", e.What, e.Expected, e.Got)
}

// Engine embeds profiles and jobs through an Embedder.
type Engine struct {
	embedder    Embedder
	concurrency int
	logger      *zap.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithConcurrency bounds the number of parallel embedding calls in EmbedJobs.
func WithConcurrency(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.concurrency = n
		}
	}
}

// WithLogger sets the engine logger.
func WithLogger(logger *zap.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// NewEngine builds an Engine around embedder.
func NewEngine(embedder Embedder, opts ...Option) *Engine {
	e := &Engine{
		embedder:    embedder,
		concurrency: defaultConcurrency,
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// EmbedProfile embeds the serialized profile.
func (e *Engine) EmbedProfile(ctx context.Context, p *model.Profile) ([]float32, error) {
	if p == nil {
		return nil, fmt.Errorf("embed profile: profile is nil")
	}

	vec, err := e.embedder.Embed(ctx, ProfileText(p))
	if err != nil {
		return nil, fmt.Errorf("embed profile: %w", err)
	}
	e.logger.Debug("profile embedded", zap.String("user_id", p.UserID), zap.Int("dimensions", len(vec)))

	return vec, nil
}

// EmbedJobs embeds every job. The result is index-aligned with jobs; an empty
// input yields an empty, non-nil result.
func (e *Engine) EmbedJobs(ctx context.Context, jobs []model.Job) ([][]float32, error) {
	vectors := make([][]float32, len(jobs))
	if len(jobs) == 0 {
		return vectors, nil
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(e.concurrency)
	for i, job := range jobs {
		g.Go(func() error {
			vec, err := e.embedder.Embed(ctx, JobText(job))
			if err != nil {
				return fmt.Errorf("embed job %d (%s): %w", job.ID, job.Title, err)
			}
			vectors[i] = vec
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	e.logger.Debug("jobs embedded", zap.Int("jobs", len(jobs)), zap.Int("concurrency", e.concurrency))
	return vectors, nil
}

// MatchJobs scores every job against profileVector and returns the best topK
// matches in descending score order. Equal scores keep their input order. A
// negative topK returns all jobs.
func MatchJobs(profileVector []float32, jobs []model.Job, jobVectors [][]float32, topK int) ([]model.MatchedJob, error) {
	if len(jobs) != len(jobVectors) {
		return nil, &DimensionMismatchError{What: "job embeddings", Expected: len(jobs), Got: len(jobVectors)}
	}

	matched := make([]model.MatchedJob, 0, len(jobs))
	for i, vec := range jobVectors {
		if len(vec) != len(profileVector) {
			return nil, &DimensionMismatchError{
				What:     fmt.Sprintf("embedding of job %d", i),
				Expected: len(profileVector),
				Got:      len(vec),
			}
		}
		matched = append(matched, model.MatchedJob{Job: jobs[i], Score: Cosine(profileVector, vec)})
	}

	slices.SortStableFunc(matched, func(a, b model.MatchedJob) int {
		return cmp.Compare(b.Score, a.Score)
	})

	if topK >= 0 && topK < len(matched) {
		matched = matched[:topK]
	}
	return matched, nil
}

// Cosine returns the cosine similarity of two equal-length vectors, clamped to
// [-1, 1]. A zero vector scores 0.
func Cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		da, db := float64(a[i]), float64(b[i])
		dot += da * db
		normA += da * da
		normB += db * db
	}
	if normA == 0 || normB == 0 {
		return 0
	}

	score := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	return math.Max(-1, math.Min(1, score))
}
