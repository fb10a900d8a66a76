package cmd

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/spigell/smart-applier/internal/ai/gemini"
	"github.com/spigell/smart-applier/internal/ai/hashembed"
	"github.com/spigell/smart-applier/internal/embedcache"
	"github.com/spigell/smart-applier/internal/keywords"
	"github.com/spigell/smart-applier/internal/logger"
	"github.com/spigell/smart-applier/internal/matching"
	"github.com/spigell/smart-applier/internal/pipeline"
	"github.com/spigell/smart-applier/internal/resume"
	"github.com/spigell/smart-applier/internal/scraper"
	"github.com/spigell/smart-applier/internal/secrets"
	"github.com/spigell/smart-applier/internal/skillgap"
	"github.com/spigell/smart-applier/internal/storage"
	"github.com/spigell/smart-applier/internal/tailor"

	"github.com/spf13/viper"
)

// newLogger builds the process logger. Failures are fatal.
func newLogger(config *Config) *zap.Logger {
	opts := logger.Options{JSON: viper.GetBool("json"), Debug: viper.GetBool("debug")}
	if config != nil {
		opts.File = config.LogFile
	}

	log, err := logger.New(opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "creating a logger: %s\n", err)
		os.Exit(1)
	}
	return log
}

// bootstrap loads the config, the logger and the database shared by every
// command.
func bootstrap(ctx context.Context) (*Config, *zap.Logger, *storage.DB) {
	config, err := getConfig()
	if err != nil {
		newLogger(nil).Fatal("getting a config", zap.Error(err))
	}

	log := newLogger(config)

	db, err := storage.Open(ctx, config.DB, log)
	if err != nil {
		log.Fatal("opening the database", zap.String("path", config.DB), zap.Error(err))
	}

	return config, log, db
}

type embedder interface {
	matching.Embedder
	Model() string
}

// buildDeps wires the stage dependencies from the config.
func buildDeps(ctx context.Context, config *Config, db *storage.DB, log *zap.Logger) (pipeline.Deps, error) {
	var (
		emb       embedder
		generator *gemini.Generator
	)

	switch config.AI.Provider {
	case providerHash:
		emb = hashembed.New(config.AI.HashDimensions)
		log.Info("using offline hashing embedder, keyword extraction and tailoring fall back to local rules")
	default:
		gemCfg := config.AI.Gemini
		if gemCfg == nil {
			gemCfg = &GeminiConfig{}
		}

		apiKey, err := secrets.Load(secrets.Source{
			Name:  "gemini api key",
			Value: gemCfg.APIKey,
			File:  gemCfg.APIKeyFile,
			Env:   "GEMINI_API_KEY",
		})
		if err != nil {
			return pipeline.Deps{}, fmt.Errorf("%w (set ai.gemini.api-key-file or GEMINI_API_KEY, or use ai.provider: hash)", err)
		}

		client, err := gemini.NewClient(ctx, apiKey)
		if err != nil {
			return pipeline.Deps{}, err
		}
		generator = gemini.NewGenerator(client, gemCfg.Config, log)
		emb = gemini.NewEmbedder(client, gemCfg.Config, log)
	}

	cache := embedcache.New(emb, embedcache.Options{
		Model: emb.Model(),
		TTL:   config.AI.EmbeddingCacheTTL,
		Store: db,
	}, log)

	renderer, err := newRenderer(config.Resume)
	if err != nil {
		return pipeline.Deps{}, err
	}

	// Nil pointers must not reach the interfaces below.
	var (
		kwGenerator keywords.Generator
		refiner     tailor.Refiner
	)
	if generator != nil {
		kwGenerator = generator
		refiner = generator
	}

	tl, err := tailor.New(refiner, log)
	if err != nil {
		return pipeline.Deps{}, err
	}

	return pipeline.Deps{
		Profiles:  db,
		Jobs:      db,
		Resumes:   db,
		Scraper:   scraper.New(config.Scraper, nil, log),
		Matcher:   matching.NewEngine(cache, matching.WithConcurrency(config.AI.Concurrency), matching.WithLogger(log)),
		SkillGap:  skillgap.NewEngine(skillgap.NewCatalog(config.SkillGap), log),
		Extractor: keywords.NewExtractor(kwGenerator, log),
		Tailor:    tl,
		Renderer:  renderer,
		Logger:    log,
	}, nil
}

func newRenderer(config *ResumeConfig) (*resume.Renderer, error) {
	if config == nil || config.Template == "" {
		return resume.NewRenderer("")
	}

	tmpl, err := os.ReadFile(config.Template)
	if err != nil {
		return nil, fmt.Errorf("reading resume template: %w", err)
	}
	return resume.NewRenderer(string(tmpl))
}
