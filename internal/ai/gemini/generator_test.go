package gemini

import (
	"context"
	"errors"
	"net/http"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/spigell/smart-applier/internal/ai"
	"github.com/spigell/smart-applier/internal/model"
)

type fakeResponse struct {
	text   string
	values []float32
	err    error
}

type callRecord struct {
	model   string
	message string
	config  *genai.GenerateContentConfig
}

type fakeModels struct {
	mu    sync.Mutex
	queue []fakeResponse
	calls []callRecord
}

func (f *fakeModels) enqueue(resp fakeResponse) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queue = append(f.queue, resp)
}

func (f *fakeModels) next(model string, contents []*genai.Content, config *genai.GenerateContentConfig) (fakeResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	record := callRecord{model: model, config: config}
	if len(contents) > 0 && len(contents[0].Parts) > 0 {
		record.message = contents[0].Parts[0].Text
	}
	f.calls = append(f.calls, record)

	if len(f.queue) == 0 {
		return fakeResponse{}, errors.New("unexpected call")
	}
	res := f.queue[0]
	f.queue = f.queue[1:]
	return res, nil
}

func (f *fakeModels) GenerateContent(_ context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	res, err := f.next(model, contents, config)
	if err != nil {
		return nil, err
	}
	if res.err != nil {
		return nil, res.err
	}
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []*genai.Part{{Text: res.text}}},
		}},
	}, nil
}

func (f *fakeModels) EmbedContent(_ context.Context, model string, contents []*genai.Content, _ *genai.EmbedContentConfig) (*genai.EmbedContentResponse, error) {
	res, err := f.next(model, contents, nil)
	if err != nil {
		return nil, err
	}
	if res.err != nil {
		return nil, res.err
	}
	return &genai.EmbedContentResponse{
		Embeddings: []*genai.ContentEmbedding{{Values: res.values}},
	}, nil
}

func noWait(t *testing.T) {
	t.Helper()
	original := wait
	wait = func(context.Context, time.Duration) error { return nil }
	t.Cleanup(func() { wait = original })
}

func newTestGenerator(models *fakeModels, retries int) *Generator {
	return &Generator{
		models:     models,
		model:      "gemini-pro",
		maxRetries: retries,
		maxLogLen:  defaultMaxLogLength,
		logger:     zap.NewNop(),
	}
}

func TestGeneratorRetriesOnTemporaryError(t *testing.T) {
	noWait(t)

	models := &fakeModels{}
	models.enqueue(fakeResponse{err: genai.APIError{Code: http.StatusInternalServerError, Status: "INTERNAL"}})
	models.enqueue(fakeResponse{text: "retry ok"})

	g := newTestGenerator(models, 2)
	output, err := g.GenerateContent(context.Background(), "system", "message")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if output != "retry ok" {
		t.Fatalf("unexpected output: %q", output)
	}
	if len(models.calls) != 2 {
		t.Fatalf("expected 2 calls, got %d", len(models.calls))
	}

	for _, call := range models.calls {
		if call.model != "gemini-pro" {
			t.Fatalf("unexpected model: %q", call.model)
		}
		if call.config == nil || call.config.SystemInstruction == nil {
			t.Fatalf("expected system instruction to be set")
		}
		if got := call.config.SystemInstruction.Parts[0].Text; got != "system" {
			t.Fatalf("unexpected system instruction: %q", got)
		}
		if call.message != "message" {
			t.Fatalf("unexpected message: %q", call.message)
		}
	}
}

func TestGeneratorStopsAfterRetriesExhausted(t *testing.T) {
	noWait(t)

	models := &fakeModels{}
	tempErr := genai.APIError{Code: http.StatusServiceUnavailable, Status: "UNAVAILABLE"}
	models.enqueue(fakeResponse{err: tempErr})
	models.enqueue(fakeResponse{err: tempErr})

	_, err := newTestGenerator(models, 2).GenerateContent(context.Background(), "sys", "msg")
	if err == nil {
		t.Fatal("expected error after retries exhausted")
	}
	if !strings.Contains(err.Error(), "giving up after 2 attempts") {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(models.calls) != 2 {
		t.Fatalf("expected 2 calls, got %d", len(models.calls))
	}
}

func TestGeneratorDoesNotRetryOnLongQuotaDelay(t *testing.T) {
	models := &fakeModels{}
	models.enqueue(fakeResponse{err: genai.APIError{
		Code:    http.StatusTooManyRequests,
		Status:  "RESOURCE_EXHAUSTED",
		Message: "quota exhausted, retry after 60 seconds",
	}})

	_, err := newTestGenerator(models, 3).GenerateContent(context.Background(), "sys", "msg")
	if err == nil {
		t.Fatal("expected error when quota delay too long")
	}
	if len(models.calls) != 1 {
		t.Fatalf("expected single call, got %d", len(models.calls))
	}
}

func TestGeneratorDoesNotRetryClientErrors(t *testing.T) {
	models := &fakeModels{}
	models.enqueue(fakeResponse{err: genai.APIError{Code: http.StatusBadRequest, Status: "INVALID_ARGUMENT"}})

	_, err := newTestGenerator(models, 3).GenerateContent(context.Background(), "sys", "msg")
	if err == nil {
		t.Fatal("expected error")
	}
	if len(models.calls) != 1 {
		t.Fatalf("expected single call, got %d", len(models.calls))
	}
}

func TestQuotaDelay(t *testing.T) {
	fromDetails := genai.APIError{Details: []map[string]any{{"@type": "RetryInfo", "retryDelay": "12s"}}}
	if got := quotaDelay(fromDetails); got != 12*time.Second {
		t.Fatalf("expected 12s from details, got %v", got)
	}

	fromMessage := genai.APIError{Message: "Please retry in 2.5s."}
	if got := quotaDelay(fromMessage); got != 2500*time.Millisecond {
		t.Fatalf("expected 2.5s from message, got %v", got)
	}

	if got := quotaDelay(genai.APIError{Message: "boom"}); got != 0 {
		t.Fatalf("expected no delay, got %v", got)
	}
}

func TestExtractKeywords(t *testing.T) {
	tests := []struct {
		name     string
		response string
		expect   []string
	}{
		{name: "comma line", response: "Python, SQL, docker, Python", expect: []string{"Python", "SQL", "docker"}},
		{name: "json array", response: "```json\n[\"Go\", \"Kubernetes\", 3]\n```", expect: []string{"Go", "Kubernetes", "3"}},
		{name: "bullets", response: "- AWS\n- \"Terraform\"\n* Helm", expect: []string{"AWS", "Terraform", "Helm"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			models := &fakeModels{}
			models.enqueue(fakeResponse{text: tt.response})

			got, err := newTestGenerator(models, 1).ExtractKeywords(context.Background(), "We need Go")
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !reflect.DeepEqual(got, tt.expect) {
				t.Fatalf("expected %v, got %v", tt.expect, got)
			}
			if models.calls[0].config.SystemInstruction.Parts[0].Text != strings.TrimSpace(keywordsPrompt) {
				t.Fatalf("expected keywords prompt as system instruction")
			}
		})
	}
}

func TestExtractKeywordsEmptyText(t *testing.T) {
	models := &fakeModels{}
	got, err := newTestGenerator(models, 1).ExtractKeywords(context.Background(), "  ")
	if err != nil || len(got) != 0 {
		t.Fatalf("expected empty result, got %v, %v", got, err)
	}
	if len(models.calls) != 0 {
		t.Fatalf("expected no calls, got %d", len(models.calls))
	}
}

func TestRefineProfile(t *testing.T) {
	models := &fakeModels{}
	models.enqueue(fakeResponse{text: "```json\n{\"profile\": {\"user_id\": \"u1\", \"skills\": {\"core\": [\"Go\"]}}}\n```"})

	g := newTestGenerator(models, 1)
	got, err := g.RefineProfile(context.Background(), ai.RefineRequest{
		Profile:  &model.Profile{UserID: "u1", Skills: map[string][]string{"core": {"Go"}}},
		Keywords: []string{"go", "grpc"},
		Matched:  []string{"go"},
		Coverage: 50,
		Target:   "Backend Engineer at Acme",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got["user_id"] != "u1" {
		t.Fatalf("expected unwrapped profile, got %v", got)
	}

	call := models.calls[0]
	if call.config.ResponseMIMEType != "application/json" {
		t.Fatalf("expected json response type, got %q", call.config.ResponseMIMEType)
	}
	system := call.config.SystemInstruction.Parts[0].Text
	if !strings.Contains(system, "Keywords to emphasise: go, grpc") || !strings.Contains(system, "Target job: Backend Engineer at Acme") ||
		!strings.Contains(system, "already covers: go (50.0% coverage)") {
		t.Fatalf("unexpected system prompt: %s", system)
	}
	if !strings.Contains(call.message, `"user_id": "u1"`) {
		t.Fatalf("expected profile json in message, got %s", call.message)
	}
}

func TestRefineProfileRejectsInvalidJSON(t *testing.T) {
	models := &fakeModels{}
	models.enqueue(fakeResponse{text: "Sure! Here is your profile."})

	_, err := newTestGenerator(models, 1).RefineProfile(context.Background(), ai.RefineRequest{Profile: &model.Profile{UserID: "u1"}})
	if err == nil || !strings.Contains(err.Error(), "parse gemini response") {
		t.Fatalf("expected parse error, got %v", err)
	}
}

func TestEmbedderEmbed(t *testing.T) {
	noWait(t)

	models := &fakeModels{}
	models.enqueue(fakeResponse{err: genai.APIError{Code: http.StatusTooManyRequests, Message: "retry in 1s"}})
	models.enqueue(fakeResponse{values: []float32{0.1, 0.2}})

	e := &Embedder{models: models, model: "text-embedding-004", maxRetries: 3, logger: zap.NewNop()}
	got, err := e.Embed(context.Background(), "Go developer")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(got, []float32{0.1, 0.2}) {
		t.Fatalf("unexpected vector: %v", got)
	}
	if len(models.calls) != 2 || models.calls[1].message != "Go developer" {
		t.Fatalf("unexpected calls: %+v", models.calls)
	}

	if _, err := e.Embed(context.Background(), " "); err == nil {
		t.Fatal("expected error for empty input")
	}
}
