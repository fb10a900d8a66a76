package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/spigell/smart-applier/internal/logger"
)

const embeddingTaskType = "SEMANTIC_SIMILARITY"

type embedModels interface {
	EmbedContent(ctx context.Context, model string, contents []*genai.Content, config *genai.EmbedContentConfig) (*genai.EmbedContentResponse, error)
}

// Embedder produces text embeddings through the Gemini API.
type Embedder struct {
	models     embedModels
	model      string
	maxRetries int
	logger     *zap.Logger
}

// NewEmbedder creates an Embedder using client.
func NewEmbedder(client *genai.Client, cfg Config, log *zap.Logger) *Embedder {
	cfg = cfg.withDefaults()
	return &Embedder{
		models:     client.Models,
		model:      cfg.EmbeddingModel,
		maxRetries: cfg.MaxRetries,
		logger:     logger.WithCommonFields(log, ProviderName, cfg.EmbeddingModel),
	}
}

// Model returns the embedding model name.
func (e *Embedder) Model() string { return e.model }

// Embed returns the embedding of text.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, errors.New("embedding input must not be empty")
	}

	var values []float32
	err := withRetry(ctx, e.logger, "embed content", e.maxRetries, func() error {
		resp, err := e.models.EmbedContent(ctx, e.model, genai.Text(text), &genai.EmbedContentConfig{TaskType: embeddingTaskType})
		if err != nil {
			return fmt.Errorf("embed content: %w", err)
		}
		if resp == nil || len(resp.Embeddings) == 0 || resp.Embeddings[0] == nil {
			return errors.New("embed content: gemini api returned no embeddings")
		}
		values = resp.Embeddings[0].Values
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(values) == 0 {
		return nil, errors.New("embed content: gemini api returned an empty vector")
	}

	return values, nil
}
