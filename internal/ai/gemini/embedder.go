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

	"github.com/spigell/care-matcher/internal/ai"
	"github.com/spigell/care-matcher/internal/logger"
	"github.com/spigell/care-matcher/internal/utils"
	"go.uber.org/zap"
	"google.golang.org/genai"
)

const (
	defaultModel = "text-embedding-004"

	baseBackoff   = 500 * time.Millisecond
	maxQuotaDelay = 20 * time.Second
)

var (
	waitFor = utils.WaitFor

	retryAfterRe = regexp.MustCompile(`(?i)retry (?:after|in) (\d+(?:\.\d+)?)\s*s`)
)

type contentEmbedder interface {
	EmbedContent(ctx context.Context, model string, contents []*genai.Content, config *genai.EmbedContentConfig) (*genai.EmbedContentResponse, error)
}

// Embedder wraps the Google GenAI client to produce text embeddings.
type Embedder struct {
	models     contentEmbedder
	model      string
	maxRetries int
	logger     *zap.Logger
}

// NewEmbedder creates a new Embedder configured for the Gemini API backend.
func NewEmbedder(ctx context.Context, cfg *ai.Config, log *zap.Logger) (*Embedder, error) {
	if cfg == nil {
		return nil, errors.New("gemini config is required")
	}

	apiKey := strings.TrimSpace(cfg.APIKey)
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

	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = defaultModel
	}

	return &Embedder{
		models:     client.Models,
		model:      model,
		maxRetries: cfg.MaxRetries,
		logger:     logger.WithCommonFields(log, ai.ProviderGemini, model),
	}, nil
}

// EmbedText returns the embedding of a single text, retrying transient API failures.
func (e *Embedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	if e == nil || e.models == nil {
		return nil, errors.New("gemini embedder is not initialized")
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return nil, errors.New("text must not be empty")
	}

	attempts := e.maxRetries
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		resp, err := e.models.EmbedContent(ctx, e.model, genai.Text(text), nil)
		if err == nil {
			return firstVector(resp)
		}
		lastErr = err

		delay, retry := retryDelay(err, attempt)
		if !retry || attempt == attempts {
			break
		}

		e.logger.Debug("gemini embed content failed, retrying",
			zap.Int("attempt", attempt),
			zap.Duration("delay", delay),
			zap.Error(err),
		)

		if err := waitFor(ctx, delay); err != nil {
			return nil, err
		}
	}

	return nil, fmt.Errorf("embed content: %w", lastErr)
}

func (e *Embedder) Model() string {
	if e == nil {
		return ""
	}
	return e.model
}

func firstVector(resp *genai.EmbedContentResponse) ([]float32, error) {
	if resp == nil {
		return nil, ai.ErrEmptyEmbedding
	}
	for _, emb := range resp.Embeddings {
		if emb != nil && len(emb.Values) > 0 {
			return emb.Values, nil
		}
	}
	return nil, ai.ErrEmptyEmbedding
}

// retryDelay reports whether err is transient and how long to wait before the next attempt.
func retryDelay(err error, attempt int) (time.Duration, bool) {
	var apiErr genai.APIError
	if !errors.As(err, &apiErr) {
		var ptr *genai.APIError
		if !errors.As(err, &ptr) || ptr == nil {
			return 0, false
		}
		apiErr = *ptr
	}

	backoff := baseBackoff * time.Duration(1<<(attempt-1))

	switch {
	case apiErr.Code == http.StatusTooManyRequests:
		if hinted, ok := parseRetryAfter(apiErr.Message); ok {
			if hinted > maxQuotaDelay {
				return 0, false
			}
			return hinted, true
		}
		return backoff, true
	case apiErr.Code >= http.StatusInternalServerError:
		return backoff, true
	default:
		return 0, false
	}
}

func parseRetryAfter(message string) (time.Duration, bool) {
	m := retryAfterRe.FindStringSubmatch(message)
	if len(m) != 2 {
		return 0, false
	}
	secs, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, false
	}
	return time.Duration(secs * float64(time.Second)), true
}
