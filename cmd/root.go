package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/spigell/smart-applier/internal/ai/gemini"
	"github.com/spigell/smart-applier/internal/scraper"
	"github.com/spigell/smart-applier/internal/skillgap"
)

const (
	app       = "smart-applier"
	envPrefix = "SMART_APPLIER"

	providerGemini = "gemini"
	providerHash   = "hash"
)

type Config struct {
	DB       string                  `mapstructure:"db" validate:"required"`
	LogFile  string                  `mapstructure:"log-file"`
	AI       *AIConfig               `mapstructure:"ai" validate:"required"`
	Scraper  scraper.Config          `mapstructure:"scraper"`
	SkillGap skillgap.CatalogOptions `mapstructure:"skill-gap"`
	Resume   *ResumeConfig           `mapstructure:"resume"`
	Match    *MatchConfig            `mapstructure:"match" validate:"required"`
}

type AIConfig struct {
	Provider          string        `mapstructure:"provider" validate:"oneof=gemini hash"`
	Concurrency       int           `mapstructure:"concurrency" validate:"gte=0"`
	EmbeddingCacheTTL time.Duration `mapstructure:"embedding-cache-ttl"`
	HashDimensions    int           `mapstructure:"hash-dimensions" validate:"gte=0"`
	Gemini            *GeminiConfig `mapstructure:"gemini"`
}

type GeminiConfig struct {
	APIKey        string `mapstructure:"api-key"`
	APIKeyFile    string `mapstructure:"api-key-file"`
	gemini.Config `mapstructure:",squash"`
}

type ResumeConfig struct {
	// Template is a path to a text/template file replacing the built-in layout.
	Template string `mapstructure:"template"`
}

type MatchConfig struct {
	Query string `mapstructure:"query"`
	Pages int    `mapstructure:"pages" validate:"gte=0"`
	TopK  int    `mapstructure:"top-k"`
}

var (
	// Used for flags.
	cfgFile string

	validate = validator.New()

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "smart-applier matches your profile against scraped jobs, finds skill gaps and tailors resumes",
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is smart-applier.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")
	rootCmd.PersistentFlags().String("db", "", "path to the sqlite database")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
	viper.BindPFlag("db", rootCmd.PersistentFlags().Lookup("db"))

	setDefaults()
}

func setDefaults() {
	viper.SetDefault("db", app+".db")
	viper.SetDefault("log-file", "")
	viper.SetDefault("ai.provider", providerGemini)
	viper.SetDefault("ai.concurrency", 4)
	viper.SetDefault("ai.embedding-cache-ttl", time.Hour)
	viper.SetDefault("ai.hash-dimensions", 256)
	viper.SetDefault("ai.gemini.api-key", "")
	viper.SetDefault("ai.gemini.api-key-file", "")
	viper.SetDefault("resume.template", "")
	viper.SetDefault("match.query", "")
	viper.SetDefault("match.pages", 0)
	viper.SetDefault("match.top-k", 10)
}

func initConfig() {
	// A missing .env is fine; a broken one is not.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Fatalf("loading .env: %v", err)
	}

	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	viper.AutomaticEnv()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(app)
		viper.SetConfigType("yaml")
	}

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		// Defaults are enough unless a config file was requested explicitly.
		if cfgFile != "" || !errors.As(err, &notFound) {
			log.Fatal(err)
		}
	}
}

func getConfig() (*Config, error) {
	var config *Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}
	if config == nil {
		return nil, errors.New("config is empty")
	}

	if config.AI != nil {
		config.AI.Provider = strings.ToLower(strings.TrimSpace(config.AI.Provider))
	}
	if err := validate.Struct(config); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return config, nil
}
