package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spigell/care-matcher/internal/ai"
	"github.com/spigell/care-matcher/internal/ai/gemini"
	"github.com/spigell/care-matcher/internal/ai/openai"
	"github.com/spigell/care-matcher/internal/credential"
	"github.com/spigell/care-matcher/internal/matching"
	"github.com/spigell/care-matcher/internal/metrics"
	"github.com/spigell/care-matcher/internal/scoring"
	"github.com/spigell/care-matcher/internal/secrets"
	"github.com/spigell/care-matcher/internal/similarity"

	"go.uber.org/zap"
)

var apiKeyEnv = map[string]string{
	ai.ProviderGemini: "GEMINI_API_KEY",
	ai.ProviderOpenAI: "OPENAI_API_KEY",
}

// components bundles everything a match run needs. close releases the store connection.
type components struct {
	engine  *matching.Engine
	oracle  *similarity.Oracle
	metrics *metrics.Recorder
	close   func()
}

func newComponents(ctx context.Context, config *Config, log *zap.Logger) (*components, error) {
	if config == nil || config.Engine == nil || config.Similarity == nil {
		return nil, errors.New("engine and similarity configuration are required")
	}

	embedder, err := newEmbedder(ctx, config.Similarity, log)
	if err != nil {
		return nil, fmt.Errorf("building embedder: %w", err)
	}

	closeFn := func() {}
	opts := []similarity.Option{similarity.WithLogger(log)}
	if embedder != nil {
		opts = append(opts, similarity.WithEmbedder(embedder))
	}

	if redisCfg := config.Similarity.Redis; embedder != nil && redisCfg != nil && strings.TrimSpace(redisCfg.Address) != "" {
		store := similarity.NewRedisStore(similarity.NewRedisClient(*redisCfg), redisCfg.Prefix)
		if err := store.Ping(ctx); err != nil {
			log.Warn("similarity store is unavailable, using the in-process cache only",
				zap.String("address", redisCfg.Address),
				zap.Error(err),
			)
			store.Close()
		} else {
			opts = append(opts, similarity.WithStore(store))
			closeFn = func() { store.Close() }
		}
	}

	oracle := similarity.New(opts...)

	recorder := metrics.New()
	if err := recorder.ObserveOracle(oracle.Stats); err != nil {
		closeFn()
		return nil, err
	}

	creds := credential.New()
	scoringCfg := scoring.Config{
		DistanceScaleKm: config.Engine.DistanceScaleKm,
		SkillThreshold:  config.Engine.SkillThreshold,
	}
	if config.Engine.Weights != nil {
		scoringCfg.Weights = *config.Engine.Weights
	}

	scorer, err := scoring.New(creds, oracle, scoringCfg)
	if err != nil {
		closeFn()
		return nil, fmt.Errorf("building scorer: %w", err)
	}

	engine, err := matching.New(creds, oracle, scorer,
		matching.Config{BatchSize: config.Engine.FallbackBatchSize},
		matching.WithLogger(log),
		matching.WithRecorder(recorder),
	)
	if err != nil {
		closeFn()
		return nil, fmt.Errorf("building engine: %w", err)
	}

	return &components{engine: engine, oracle: oracle, metrics: recorder, close: closeFn}, nil
}

// newEmbedder returns nil for the lexical provider.
func newEmbedder(ctx context.Context, cfg *SimilarityConfig, log *zap.Logger) (ai.Embedder, error) {
	aiCfg := &ai.Config{
		Provider:   cfg.Provider,
		Model:      cfg.Model,
		Host:       cfg.Host,
		MaxRetries: cfg.MaxRetries,
	}
	aiCfg.Normalize()

	if aiCfg.Provider == ai.ProviderLexical {
		return nil, nil
	}

	key, err := secrets.Load(secrets.Source{
		Name: aiCfg.Provider + " api key",
		File: cfg.APIKeyFile,
		Env:  apiKeyEnv[aiCfg.Provider],
	})
	switch {
	case err == nil:
		aiCfg.APIKey = key
	case aiCfg.Provider == ai.ProviderGemini:
		return nil, fmt.Errorf("%w (set similarity.api-key-file or GEMINI_API_KEY)", err)
	}

	if err := aiCfg.Validate(); err != nil {
		return nil, err
	}

	switch aiCfg.Provider {
	case ai.ProviderGemini:
		return gemini.NewEmbedder(ctx, aiCfg, log)
	case ai.ProviderOpenAI:
		return openai.NewEmbedder(aiCfg, log)
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", aiCfg.Provider)
	}
}
