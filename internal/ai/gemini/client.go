package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/spigell/smart-applier/internal/utils"
)

const (
	defaultModel          = "gemini-2.5-flash"
	defaultEmbeddingModel = "text-embedding-004"
	defaultMaxRetries     = 3
	defaultMaxLogLength   = 200

	// ProviderName is reported in log fields.
	ProviderName = "gemini"
)

var (
	retryBase     = time.Second
	retryLimit    = 20 * time.Second
	maxQuotaDelay = 30 * time.Second

	wait = utils.WaitFor

	retryAfterPattern = regexp.MustCompile(`(?i)retry (?:after|in) (\d+(?:\.\d+)?)\s*s`)
)

// Config holds the Gemini settings shared by the generator and the embedder.
type Config struct {
	Model          string `mapstructure:"model"`
	EmbeddingModel string `mapstructure:"embedding-model"`
	MaxRetries     int    `mapstructure:"max-retries"`
	MaxLogLength   int    `mapstructure:"max-log-length"`
}

func (c Config) withDefaults() Config {
	if c.Model = strings.TrimSpace(c.Model); c.Model == "" {
		c.Model = defaultModel
	}
	if c.EmbeddingModel = strings.TrimSpace(c.EmbeddingModel); c.EmbeddingModel == "" {
		c.EmbeddingModel = defaultEmbeddingModel
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = defaultMaxRetries
	}
	if c.MaxLogLength <= 0 {
		c.MaxLogLength = defaultMaxLogLength
	}
	return c
}

// NewClient creates a GenAI client for the Gemini API backend.
func NewClient(ctx context.Context, apiKey string) (*genai.Client, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("gemini api key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	return client, nil
}

// withRetry runs call up to attempts times, retrying transient API errors.
// A quota error asking for a long pause is returned immediately.
func withRetry(ctx context.Context, logger *zap.Logger, op string, attempts int, call func() error) error {
	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err = call(); err == nil {
			return nil
		}

		apiErr, ok := asAPIError(err)
		if !ok || !retryable(apiErr.Code) {
			return err
		}

		delay := utils.Backoff(retryBase, retryLimit, attempt)
		if requested := quotaDelay(apiErr); requested > 0 {
			if requested > maxQuotaDelay {
				logger.Warn("gemini quota delay too long, giving up",
					zap.String("operation", op),
					zap.Duration("retry_delay", requested),
				)
				return err
			}
			delay = max(delay, requested)
		}

		if attempt == attempts {
			break
		}

		logger.Warn("gemini call failed, retrying",
			zap.String("operation", op),
			zap.Int("attempt", attempt),
			zap.Int("code", apiErr.Code),
			zap.String("status", apiErr.Status),
			zap.Duration("delay", delay),
		)
		if werr := wait(ctx, delay); werr != nil {
			return werr
		}
	}

	return fmt.Errorf("%s: giving up after %d attempts: %w", op, attempts, err)
}

func asAPIError(err error) (genai.APIError, bool) {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	var ptr *genai.APIError
	if errors.As(err, &ptr) && ptr != nil {
		return *ptr, true
	}
	return genai.APIError{}, false
}

func retryable(code int) bool {
	switch code {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}

// quotaDelay extracts the server-requested retry delay from RetryInfo details
// or from the error message.
func quotaDelay(apiErr genai.APIError) time.Duration {
	for _, detail := range apiErr.Details {
		if raw, ok := detail["retryDelay"].(string); ok {
			if d, err := time.ParseDuration(raw); err == nil {
				return d
			}
		}
	}

	if m := retryAfterPattern.FindStringSubmatch(apiErr.Message); m != nil {
		if secs, err := strconv.ParseFloat(m[1], 64); err == nil {
			return time.Duration(secs * float64(time.Second))
		}
	}
	return 0
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}

	var builder strings.Builder
	for _, candidate := range resp.Candidates {
		if candidate == nil || candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part == nil {
				continue
			}
			text := strings.TrimSpace(part.Text)
			if text == "" {
				continue
			}
			if builder.Len() > 0 {
				builder.WriteString("\n")
			}
			builder.WriteString(text)
		}
	}
	return strings.TrimSpace(builder.String())
}
