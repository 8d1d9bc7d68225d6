package openai

import (
	"context"
	"errors"
	"testing"

	"github.com/spigell/care-matcher/internal/ai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeEmbedder struct {
	vectors [][]float32
	err     error
	texts   []string
}

func (f *fakeEmbedder) EmbedDocuments(_ context.Context, texts []string) ([][]float32, error) {
	f.texts = append(f.texts, texts...)
	return f.vectors, f.err
}

func (f *fakeEmbedder) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	f.texts = append(f.texts, text)
	if len(f.vectors) == 0 {
		return nil, f.err
	}
	return f.vectors[0], f.err
}

func TestEmbedText(t *testing.T) {
	fake := &fakeEmbedder{vectors: [][]float32{{0.5, 0.5}}}
	e := newWithEmbedder(fake, "nomic-embed-text", zap.NewNop())

	vec, err := e.EmbedText(context.Background(), "vật lý trị liệu")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.5, 0.5}, vec)
	assert.Equal(t, []string{"vật lý trị liệu"}, fake.texts)
	assert.Equal(t, "nomic-embed-text", e.Model())
}

func TestEmbedTextErrors(t *testing.T) {
	boom := errors.New("connection refused")
	e := newWithEmbedder(&fakeEmbedder{err: boom}, "m", zap.NewNop())

	_, err := e.EmbedText(context.Background(), "x")
	require.ErrorIs(t, err, boom)

	e = newWithEmbedder(&fakeEmbedder{vectors: [][]float32{}}, "m", zap.NewNop())
	_, err = e.EmbedText(context.Background(), "x")
	require.ErrorIs(t, err, ai.ErrEmptyEmbedding)
}

func TestNewEmbedderValidatesConfig(t *testing.T) {
	_, err := NewEmbedder(&ai.Config{Provider: ai.ProviderOpenAI, Model: "m"}, zap.NewNop())
	require.Error(t, err)

	_, err = NewEmbedder(nil, zap.NewNop())
	require.Error(t, err)

	e, err := NewEmbedder(&ai.Config{Provider: ai.ProviderOpenAI, Host: "http://localhost:11434", Model: "nomic-embed-text"}, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, "nomic-embed-text", e.Model())
}
