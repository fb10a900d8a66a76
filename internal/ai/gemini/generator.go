package gemini

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/spigell/smart-applier/internal/ai"
	"github.com/spigell/smart-applier/internal/logger"
)

//go:embed prompts/keywords.md
var keywordsPrompt string

//go:embed prompts/refine.md
var refinePrompt string

type contentModels interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Generator implements ai.Generator on top of the Gemini API.
type Generator struct {
	models     contentModels
	model      string
	maxRetries int
	maxLogLen  int
	logger     *zap.Logger
}

var _ ai.Generator = (*Generator)(nil)

// NewGenerator creates a Generator using client.
func NewGenerator(client *genai.Client, cfg Config, log *zap.Logger) *Generator {
	cfg = cfg.withDefaults()
	return &Generator{
		models:     client.Models,
		model:      cfg.Model,
		maxRetries: cfg.MaxRetries,
		maxLogLen:  cfg.MaxLogLength,
		logger:     logger.WithCommonFields(log, ProviderName, cfg.Model),
	}
}

// Model returns the generation model name.
func (g *Generator) Model() string {
	if g == nil {
		return ""
	}
	return g.model
}

// GenerateContent sends message with the given system instruction and returns
// the textual response.
func (g *Generator) GenerateContent(ctx context.Context, system, message string) (string, error) {
	return g.generate(ctx, "generate content", system, message, "")
}

// ExtractKeywords implements ai.Generator.
func (g *Generator) ExtractKeywords(ctx context.Context, text string) ([]string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return []string{}, nil
	}

	raw, err := g.generate(ctx, "extract keywords", keywordsPrompt, text, "")
	if err != nil {
		return nil, err
	}

	return parseKeywords(raw), nil
}

// RefineProfile implements ai.Generator.
func (g *Generator) RefineProfile(ctx context.Context, req ai.RefineRequest) (map[string]any, error) {
	if req.Profile == nil {
		return nil, errors.New("profile is required")
	}

	profileJSON, err := json.MarshalIndent(req.Profile, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal profile: %w", err)
	}

	target := strings.TrimSpace(req.Target)
	if target == "" {
		target = "not specified"
	}
	prompt := strings.NewReplacer(
		"{{KEYWORDS}}", listOrNone(req.Keywords),
		"{{MATCHED}}", listOrNone(req.Matched),
		"{{COVERAGE}}", strconv.FormatFloat(req.Coverage, 'f', 1, 64),
		"{{TARGET}}", target,
	).Replace(refinePrompt)

	raw, err := g.generate(ctx, "refine profile", prompt, string(profileJSON), "application/json")
	if err != nil {
		return nil, err
	}

	return parseProfile(raw)
}

func listOrNone(items []string) string {
	if len(items) == 0 {
		return "none"
	}
	return strings.Join(items, ", ")
}

func (g *Generator) generate(ctx context.Context, op, system, message, mimeType string) (string, error) {
	if g == nil || g.models == nil {
		return "", errors.New("gemini generator is not initialized")
	}

	message = strings.TrimSpace(message)
	if message == "" {
		return "", errors.New("prompt must not be empty")
	}

	config := &genai.GenerateContentConfig{ResponseMIMEType: mimeType}
	if system = strings.TrimSpace(system); system != "" {
		config.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: system}}}
	}

	g.logger.Debug("gemini request",
		zap.String("operation", op),
		zap.Int("prompt_length", utf8.RuneCountInString(message)),
		zap.String("prompt_preview", logger.TruncateForLog(message, g.maxLogLen)),
	)

	var output string
	err := withRetry(ctx, g.logger, op, g.maxRetries, func() error {
		resp, err := g.models.GenerateContent(ctx, g.model, genai.Text(message), config)
		if err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		output = responseText(resp)
		return nil
	})
	if err != nil {
		return "", err
	}
	if output == "" {
		return "", fmt.Errorf("%s: gemini api returned empty response", op)
	}

	g.logger.Debug("gemini response",
		zap.String("operation", op),
		zap.Int("response_length", utf8.RuneCountInString(output)),
		zap.String("response_preview", logger.TruncateForLog(output, g.maxLogLen)),
	)

	return output, nil
}
