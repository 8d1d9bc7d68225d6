package gemini

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"
)

type fakeEmbedResponse struct {
	resp *genai.EmbedContentResponse
	err  error
}

type fakeModels struct {
	mu    sync.Mutex
	queue []fakeEmbedResponse
	calls []string
}

func (f *fakeModels) enqueue(resp *genai.EmbedContentResponse, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queue = append(f.queue, fakeEmbedResponse{resp: resp, err: err})
}

func (f *fakeModels) EmbedContent(_ context.Context, model string, contents []*genai.Content, _ *genai.EmbedContentConfig) (*genai.EmbedContentResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.queue) == 0 {
		return nil, errors.New("unexpected call")
	}
	text := ""
	if len(contents) > 0 && len(contents[0].Parts) > 0 {
		text = contents[0].Parts[0].Text
	}
	f.calls = append(f.calls, model+":"+text)
	res := f.queue[0]
	f.queue = f.queue[1:]
	return res.resp, res.err
}

func vectorResponse(values ...float32) *genai.EmbedContentResponse {
	return &genai.EmbedContentResponse{
		Embeddings: []*genai.ContentEmbedding{{Values: values}},
	}
}

func noWait(t *testing.T) {
	t.Helper()
	original := waitFor
	waitFor = func(context.Context, time.Duration) error { return nil }
	t.Cleanup(func() { waitFor = original })
}

func TestEmbedderReturnsFirstVector(t *testing.T) {
	models := &fakeModels{}
	models.enqueue(vectorResponse(0.1, 0.2, 0.3), nil)

	e := &Embedder{models: models, model: "text-embedding-004", maxRetries: 1, logger: zap.NewNop()}

	vec, err := e.EmbedText(context.Background(), "  tiêm insulin ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(vec) != 3 || vec[2] != 0.3 {
		t.Fatalf("unexpected vector: %v", vec)
	}
	if len(models.calls) != 1 || models.calls[0] != "text-embedding-004:tiêm insulin" {
		t.Fatalf("unexpected calls: %v", models.calls)
	}
}

func TestEmbedderRetriesOnTemporaryError(t *testing.T) {
	noWait(t)

	models := &fakeModels{}
	models.enqueue(nil, genai.APIError{Code: http.StatusInternalServerError, Status: "INTERNAL"})
	models.enqueue(vectorResponse(1), nil)

	e := &Embedder{models: models, model: "m", maxRetries: 2, logger: zap.NewNop()}

	if _, err := e.EmbedText(context.Background(), "nấu ăn"); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(models.calls) != 2 {
		t.Fatalf("expected 2 calls, got %d", len(models.calls))
	}
}

func TestEmbedderStopsAfterRetriesExhausted(t *testing.T) {
	noWait(t)

	models := &fakeModels{}
	tempErr := genai.APIError{Code: http.StatusServiceUnavailable, Status: "UNAVAILABLE"}
	models.enqueue(nil, tempErr)
	models.enqueue(nil, tempErr)

	e := &Embedder{models: models, model: "m", maxRetries: 2, logger: zap.NewNop()}

	if _, err := e.EmbedText(context.Background(), "nấu ăn"); err == nil {
		t.Fatal("expected error after retries exhausted")
	}
	if len(models.calls) != 2 {
		t.Fatalf("expected 2 calls, got %d", len(models.calls))
	}
}

func TestEmbedderDoesNotRetryOnLongQuotaDelay(t *testing.T) {
	models := &fakeModels{}
	models.enqueue(nil, genai.APIError{
		Code:    http.StatusTooManyRequests,
		Status:  "RESOURCE_EXHAUSTED",
		Message: "quota exhausted, retry after 60 seconds",
	})

	e := &Embedder{models: models, model: "m", maxRetries: 3, logger: zap.NewNop()}

	if _, err := e.EmbedText(context.Background(), "tắm"); err == nil {
		t.Fatal("expected error when quota delay too long")
	}
	if len(models.calls) != 1 {
		t.Fatalf("expected single call, got %d", len(models.calls))
	}
}

func TestEmbedderDoesNotRetryOnClientError(t *testing.T) {
	models := &fakeModels{}
	models.enqueue(nil, genai.APIError{Code: http.StatusBadRequest, Status: "INVALID_ARGUMENT"})

	e := &Embedder{models: models, model: "m", maxRetries: 3, logger: zap.NewNop()}

	if _, err := e.EmbedText(context.Background(), "tắm"); err == nil {
		t.Fatal("expected error")
	}
	if len(models.calls) != 1 {
		t.Fatalf("expected single call, got %d", len(models.calls))
	}
}

func TestEmbedderEmptyResponse(t *testing.T) {
	models := &fakeModels{}
	models.enqueue(&genai.EmbedContentResponse{}, nil)

	e := &Embedder{models: models, model: "m", maxRetries: 1, logger: zap.NewNop()}

	if _, err := e.EmbedText(context.Background(), "tắm"); err == nil {
		t.Fatal("expected empty embedding error")
	}
}

func TestEmbedderRejectsEmptyText(t *testing.T) {
	e := &Embedder{models: &fakeModels{}, model: "m", logger: zap.NewNop()}
	if _, err := e.EmbedText(context.Background(), "   "); err == nil {
		t.Fatal("expected error for empty text")
	}
}

func TestParseRetryAfter(t *testing.T) {
	d, ok := parseRetryAfter("Please retry in 2.5s.")
	if !ok || d != 2500*time.Millisecond {
		t.Fatalf("unexpected delay: %v %v", d, ok)
	}
	if _, ok := parseRetryAfter("no hint here"); ok {
		t.Fatal("expected no hint")
	}
}
