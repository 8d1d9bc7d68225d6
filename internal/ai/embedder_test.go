package ai

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigNormalize(t *testing.T) {
	cfg := &Config{Provider: " OpenAI ", Host: "http://localhost:11434/", MaxRetries: -3}
	cfg.Normalize()

	assert.Equal(t, ProviderOpenAI, cfg.Provider)
	assert.Equal(t, "http://localhost:11434/v1", cfg.Host)
	assert.Zero(t, cfg.MaxRetries)

	empty := &Config{}
	empty.Normalize()
	assert.Equal(t, ProviderLexical, empty.Provider)
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{name: "lexical needs nothing", cfg: Config{}},
		{name: "gemini without key", cfg: Config{Provider: "gemini"}, wantErr: true},
		{name: "gemini with key", cfg: Config{Provider: "gemini", APIKey: "k"}},
		{name: "openai without host", cfg: Config{Provider: "openai", Model: "m"}, wantErr: true},
		{name: "openai without model", cfg: Config{Provider: "openai", Host: "http://h"}, wantErr: true},
		{name: "openai complete", cfg: Config{Provider: "openai", Host: "http://h", Model: "m"}},
		{name: "unknown", cfg: Config{Provider: "phobert"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := tt.cfg
			err := cfg.Validate()
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
		})
	}
}
