package cmd

import (
	"errors"
	"log"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spigell/care-matcher/internal/scoring"
	"github.com/spigell/care-matcher/internal/similarity"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	app       = "care-matcher"
	envPrefix = "CARE_MATCHER"
)

type Config struct {
	Engine     *EngineConfig     `mapstructure:"engine"`
	Similarity *SimilarityConfig `mapstructure:"similarity"`
	Data       *DataConfig       `mapstructure:"data"`
}

type EngineConfig struct {
	SkillThreshold    float64          `mapstructure:"skill-threshold"`
	DistanceScaleKm   float64          `mapstructure:"distance-scale-km"`
	FallbackBatchSize int              `mapstructure:"fallback-batch-size"`
	TopN              int              `mapstructure:"top-n"`
	Weights           *scoring.Weights `mapstructure:"weights"`
}

type SimilarityConfig struct {
	Provider   string                  `mapstructure:"provider"`
	Model      string                  `mapstructure:"model"`
	Host       string                  `mapstructure:"host"`
	APIKeyFile string                  `mapstructure:"api-key-file"`
	MaxRetries int                     `mapstructure:"max-retries"`
	Redis      *similarity.RedisConfig `mapstructure:"redis"`
}

type DataConfig struct {
	Requests   string `mapstructure:"requests"`
	Candidates string `mapstructure:"candidates"`
	TokenFile  string `mapstructure:"token-file"`
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "care-matcher ranks caregivers for elderly care requests",
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is care-matcher.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))

	setDefaults(viper.GetViper())
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("engine.skill-threshold", similarity.DefaultThreshold)
	v.SetDefault("engine.distance-scale-km", scoring.DefaultDistanceScaleKm)
	v.SetDefault("engine.fallback-batch-size", 10)
	v.SetDefault("engine.top-n", 10)

	v.SetDefault("similarity.provider", "lexical")
	v.SetDefault("similarity.model", "")
	v.SetDefault("similarity.host", "")
	v.SetDefault("similarity.api-key-file", "")
	v.SetDefault("similarity.max-retries", 3)
	v.SetDefault("similarity.redis.address", "")
	v.SetDefault("similarity.redis.password", "")
	v.SetDefault("similarity.redis.db", 0)
	v.SetDefault("similarity.redis.prefix", "")

	v.SetDefault("data.requests", "requests.json")
	v.SetDefault("data.candidates", "caregivers.json")
	v.SetDefault("data.token-file", "")

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
}

func initConfig() {
	// The version command needs no configuration.
	if versionCmd.CalledAs() != "" {
		return
	}

	loadDotEnv(".env")

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(app)
		viper.SetConfigType("yaml")
	}

	// A missing default config is fine, defaults and environment cover everything.
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			log.Fatal(err)
		}
	}
}

// loadDotEnv exports variables from path when the file exists. Variables
// already present in the environment are kept.
func loadDotEnv(path string) {
	if _, err := os.Stat(path); err != nil {
		return
	}
	if err := godotenv.Load(path); err != nil {
		log.Printf("loading %s: %v", path, err)
	}
}

func getConfig() (*Config, error) {
	var config *Config
	err := viper.Unmarshal(&config)
	if err != nil {
		return config, err
	}

	return config, nil
}
