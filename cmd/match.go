package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/spigell/care-matcher/internal/input"
	"github.com/spigell/care-matcher/internal/logger"
	"github.com/spigell/care-matcher/internal/secrets"
	"github.com/spigell/care-matcher/internal/similarity"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const dataTokenEnv = envPrefix + "_DATA_TOKEN"

var errNoTerminal = errors.New("request id is required when stdin is not a terminal")

var matchCmd = &cobra.Command{
	Use:   "match",
	Short: "Rank caregivers for a care request",
	Run: func(cmd *cobra.Command, _ []string) {
		match(cmd)
	},
}

func init() {
	rootCmd.AddCommand(matchCmd)

	matchCmd.Flags().StringP("payload", "p", "", "a {care_request, candidates, top_n} document. Overrides the data files.")
	matchCmd.Flags().StringP("request-id", "r", "", "request id from the requests file. Prompts when empty.")
	matchCmd.Flags().String("requests", "", "requests file or URL (default from data.requests)")
	matchCmd.Flags().String("candidates", "", "caregivers file or URL (default from data.candidates)")
	matchCmd.Flags().IntP("top-n", "n", 0, fmt.Sprintf("number of results, 1..%d (default from engine.top-n)", input.MaxTopN))
	matchCmd.Flags().StringP("output", "o", outputTable, "output format: table or json")
	matchCmd.Flags().String("metrics-file", "", "write Prometheus metrics to this file after matching")
	matchCmd.Flags().Bool("stats", false, "include similarity cache statistics in json output")

	viper.BindPFlag("data.requests", matchCmd.Flags().Lookup("requests"))
	viper.BindPFlag("data.candidates", matchCmd.Flags().Lookup("candidates"))
}

// match is the main command for the cli.
func match(cmd *cobra.Command) {
	ctx := context.Background()

	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	logger.Info("starting the care-matcher", zap.String("version", version))

	// do not bother error since there is a valid parseable config
	pretty, _ := json.MarshalIndent(config, "", "  ")
	logger.Debug(fmt.Sprintf("starting with config: \n %s", pretty))

	format := strings.ToLower(strings.TrimSpace(cmd.Flag("output").Value.String()))
	if err := validateOutput(format); err != nil {
		logger.Fatal("invalid flags", zap.Error(err))
	}

	payload, err := loadMatchInput(ctx, cmd, config, logger)
	if err != nil {
		logger.Fatal("loading input", zap.Error(err))
	}

	topN, err := resolveTopN(cmd, payload.TopN, config.Engine.TopN)
	if err != nil {
		logger.Fatal("invalid flags", zap.Error(err))
	}

	logger.Info("matching",
		zap.String("request_id", payload.Request.ID),
		zap.Int("candidates", len(payload.Candidates)),
		zap.Int("top_n", topN),
	)

	c, err := newComponents(ctx, config, logger)
	if err != nil {
		logger.Fatal("building the engine", zap.Error(err))
	}
	defer c.close()

	results := c.engine.Match(ctx, payload.Request, payload.Candidates, topN)

	stats := c.oracle.Stats()
	logger.Debug("similarity cache",
		zap.Uint64("hits", stats.Hits),
		zap.Uint64("misses", stats.Misses),
		zap.Int("cached_pairs", stats.CachedPairs),
		zap.Uint64("embedding_failures", stats.EmbedFailures),
	)

	var statsView *similarity.Stats
	if withStats, _ := cmd.Flags().GetBool("stats"); withStats {
		statsView = &stats
	}

	if err := writeMatch(os.Stdout, format, newMatchView(payload.Request.ID, results, statsView)); err != nil {
		logger.Fatal("writing results", zap.Error(err))
	}

	if path := strings.TrimSpace(cmd.Flag("metrics-file").Value.String()); path != "" {
		if err := c.metrics.WriteToTextfile(path); err != nil {
			logger.Error("writing metrics", zap.Error(err))
			return
		}
		logger.Info("metrics written", zap.String("filename", path))
	}
}

// loadMatchInput reads a payload, or picks a request from the requests
// source and pairs it with the caregivers source.
func loadMatchInput(ctx context.Context, cmd *cobra.Command, config *Config, l *zap.Logger) (*input.Payload, error) {
	loader := newLoader(config.Data, l)

	if path := strings.TrimSpace(cmd.Flag("payload").Value.String()); path != "" {
		return loader.Payload(ctx, path)
	}

	if config.Data == nil {
		return nil, errors.New("data.requests and data.candidates are required without --payload")
	}

	raws, err := loader.Requests(ctx, config.Data.Requests)
	if err != nil {
		return nil, err
	}

	id := strings.TrimSpace(cmd.Flag("request-id").Value.String())
	if id == "" {
		id, err = pickRequest(raws)
		if err != nil {
			return nil, err
		}
	}

	raw, err := input.FindRequest(raws, id)
	if err != nil {
		return nil, err
	}
	req, err := input.PrepareRequest(raw)
	if err != nil {
		return nil, err
	}

	candidates, err := loader.Candidates(ctx, config.Data.Candidates)
	if err != nil {
		return nil, err
	}

	return &input.Payload{Request: req, Candidates: candidates}, nil
}

// newLoader attaches the data token when one is configured.
func newLoader(cfg *DataConfig, l *zap.Logger) *input.Loader {
	opts := []input.LoaderOption{input.WithLogger(l)}
	if cfg == nil {
		return input.NewLoader(opts...)
	}

	token, err := secrets.Load(secrets.Source{
		Name: "data api token",
		File: cfg.TokenFile,
		Env:  dataTokenEnv,
	})
	if err == nil {
		opts = append(opts, input.WithToken(token))
	} else if strings.TrimSpace(cfg.TokenFile) != "" {
		l.Warn("data api token is not loaded", zap.Error(err))
	}
	return input.NewLoader(opts...)
}

// resolveTopN prefers the flag, then the payload, then the config.
func resolveTopN(cmd *cobra.Command, payloadTopN, configTopN int) (int, error) {
	topN := configTopN
	if payloadTopN > 0 {
		topN = payloadTopN
	}
	if cmd != nil {
		if flag := cmd.Flag("top-n"); flag != nil && flag.Changed {
			n, err := cmd.Flags().GetInt("top-n")
			if err != nil {
				return 0, err
			}
			topN = n
		}
	}

	if topN < 1 || topN > input.MaxTopN {
		return 0, fmt.Errorf("top-n must be between 1 and %d, got %d", input.MaxTopN, topN)
	}
	return topN, nil
}

func pickRequest(raws []map[string]any) (string, error) {
	if len(raws) == 0 {
		return "", errors.New("requests file is empty")
	}
	if !isTerminal(os.Stdin) {
		return "", errNoTerminal
	}

	summaries := input.Summaries(raws)
	items := make([]string, 0, len(summaries))
	for _, s := range summaries {
		items = append(items, requestLabel(s))
	}

	requestPrompt := promptui.Select{
		Label: "Choose a care request and press ENTER",
		Items: items,
		Size:  10,
	}
	_, selected, err := requestPrompt.Run()
	if err != nil {
		return "", err
	}
	return labelID(selected), nil
}

func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}
