// Package openai embeds texts through any OpenAI-compatible endpoint (OpenAI,
// Ollama, LocalAI, vLLM) using langchaingo.
package openai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spigell/care-matcher/internal/ai"
	"github.com/spigell/care-matcher/internal/logger"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/openai"
	"go.uber.org/zap"
)

// noToken is sent to local services that do not check authentication.
const noToken = "none"

// Embedder implements ai.Embedder on top of a langchaingo embedder.
type Embedder struct {
	embedder embeddings.Embedder
	model    string
	logger   *zap.Logger
}

// NewEmbedder creates an embedder for the configured host and model.
func NewEmbedder(cfg *ai.Config, log *zap.Logger) (*Embedder, error) {
	if cfg == nil {
		return nil, errors.New("openai config is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	token := strings.TrimSpace(cfg.APIKey)
	if token == "" {
		token = noToken
	}

	client, err := openai.New(
		openai.WithBaseURL(cfg.Host),
		openai.WithToken(token),
		openai.WithEmbeddingModel(cfg.Model),
	)
	if err != nil {
		return nil, fmt.Errorf("create openai client: %w", err)
	}

	embedder, err := embeddings.NewEmbedder(client, embeddings.WithStripNewLines(true))
	if err != nil {
		return nil, fmt.Errorf("create embedder: %w", err)
	}

	return newWithEmbedder(embedder, cfg.Model, log), nil
}

func newWithEmbedder(embedder embeddings.Embedder, model string, log *zap.Logger) *Embedder {
	return &Embedder{
		embedder: embedder,
		model:    model,
		logger:   logger.WithCommonFields(log, ai.ProviderOpenAI, model),
	}
}

// EmbedText generates a vector embedding for a single text string.
func (e *Embedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	e.logger.Debug("generating embedding", zap.Int("length", len(text)))

	vectors, err := e.embedder.EmbedDocuments(ctx, []string{text})
	if err != nil {
		return nil, fmt.Errorf("embed documents: %w", err)
	}

	if len(vectors) == 0 || len(vectors[0]) == 0 {
		return nil, ai.ErrEmptyEmbedding
	}

	return vectors[0], nil
}

func (e *Embedder) Model() string {
	if e == nil {
		return ""
	}
	return e.model
}
