// Package ai defines the text-embedding contract used by the skill-similarity
// oracle and the configuration shared by its backends.
package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

const (
	ProviderLexical = "lexical"
	ProviderGemini  = "gemini"
	ProviderOpenAI  = "openai"
)

// ErrEmptyEmbedding is returned when a backend answers without a vector.
var ErrEmptyEmbedding = errors.New("embedding backend returned no vector")

// Embedder turns a text into a dense vector.
type Embedder interface {
	EmbedText(ctx context.Context, text string) ([]float32, error)
	Model() string
}

// Config describes an embedding backend.
type Config struct {
	Provider   string
	Model      string
	Host       string
	APIKey     string
	MaxRetries int
}

// Normalize lowercases the provider and appends /v1 to OpenAI-compatible hosts.
func (c *Config) Normalize() {
	c.Provider = strings.ToLower(strings.TrimSpace(c.Provider))
	if c.Provider == "" {
		c.Provider = ProviderLexical
	}
	c.Model = strings.TrimSpace(c.Model)
	c.Host = strings.TrimSpace(c.Host)
	if c.Provider == ProviderOpenAI && c.Host != "" && !strings.HasSuffix(c.Host, "/v1") {
		c.Host = strings.TrimSuffix(c.Host, "/") + "/v1"
	}
	if c.MaxRetries < 0 {
		c.MaxRetries = 0
	}
}

// Validate normalizes the config and checks provider specific requirements.
func (c *Config) Validate() error {
	c.Normalize()

	switch c.Provider {
	case ProviderLexical:
		return nil
	case ProviderGemini:
		if strings.TrimSpace(c.APIKey) == "" {
			return errors.New("gemini api key is required")
		}
		return nil
	case ProviderOpenAI:
		if c.Host == "" {
			return errors.New("openai embedding host is required")
		}
		if c.Model == "" {
			return errors.New("openai embedding model is required")
		}
		return nil
	default:
		return fmt.Errorf("unsupported embedding provider: %s", c.Provider)
	}
}
