package cmd

import (
	"errors"
	"log"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	app       = "nomadically"
	envPrefix = "NOMADICALLY"
)

type Config struct {
	Database   string            `mapstructure:"database"`
	Taxonomy   string            `mapstructure:"taxonomy"`
	Extraction *ExtractionConfig `mapstructure:"extraction"`
	Retrieval  *RetrievalConfig  `mapstructure:"retrieval"`
	AI         *AIConfig         `mapstructure:"ai"`
}

type ExtractionConfig struct {
	Version           string  `mapstructure:"version"`
	TopK              int     `mapstructure:"top-k"`
	Concurrency       int     `mapstructure:"concurrency"`
	RequestsPerSecond float64 `mapstructure:"requests-per-second"`
	MinEvidence       int     `mapstructure:"min-evidence"`
	MaxSkills         int     `mapstructure:"max-skills"`
}

type RetrievalConfig struct {
	// Mode is lexical (offline, taxonomy only) or vectorize.
	Mode      string           `mapstructure:"mode"`
	Vectorize *VectorizeConfig `mapstructure:"vectorize"`
}

type VectorizeConfig struct {
	APIURL            string        `mapstructure:"api-url"`
	Token             string        `mapstructure:"token"`
	TokenFile         string        `mapstructure:"token-file"`
	Timeout           time.Duration `mapstructure:"timeout"`
	RequestsPerSecond float64       `mapstructure:"requests-per-second"`
}

type AIConfig struct {
	Provider string        `mapstructure:"provider"`
	Gemini   *GeminiConfig `mapstructure:"gemini"`
}

type GeminiConfig struct {
	APIKey         string `mapstructure:"api-key"`
	APIKeyFile     string `mapstructure:"api-key-file"`
	KeyringAccount string `mapstructure:"keyring-account"`
	Model          string `mapstructure:"model"`
	EmbeddingModel string `mapstructure:"embedding-model"`
	MaxLogLength   int    `mapstructure:"max-log-length"`
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "nomadically extracts grounded skills from job postings and checks EU-remote eligibility",
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is nomadically.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")
	rootCmd.PersistentFlags().String("database", "", "path to the skills database")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
	viper.BindPFlag("database", rootCmd.PersistentFlags().Lookup("database"))

	setDefaults(viper.GetViper())
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("database", "nomadically.db")
	v.SetDefault("extraction.version", "skills-v1")
	v.SetDefault("extraction.top-k", 50)
	v.SetDefault("extraction.concurrency", 4)
	v.SetDefault("extraction.min-evidence", 8)
	v.SetDefault("extraction.max-skills", 30)
	v.SetDefault("retrieval.mode", "lexical")
	v.SetDefault("retrieval.vectorize.timeout", 10*time.Second)
	v.SetDefault("ai.provider", "gemini")
	v.SetDefault("ai.gemini.keyring-account", "gemini")

	// Zero defaults make these keys visible to AutomaticEnv during Unmarshal.
	for key, zero := range map[string]any{
		"taxonomy":                                "",
		"extraction.requests-per-second":          0.0,
		"retrieval.vectorize.api-url":             "",
		"retrieval.vectorize.token":               "",
		"retrieval.vectorize.token-file":          "",
		"retrieval.vectorize.requests-per-second": 0.0,
		"ai.gemini.api-key":                       "",
		"ai.gemini.api-key-file":                  "",
		"ai.gemini.model":                         "",
		"ai.gemini.embedding-model":               "",
		"ai.gemini.max-log-length":                0,
	} {
		v.SetDefault(key, zero)
	}
}

func initConfig() {
	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(app)
		viper.SetConfigType("yaml")
	}

	// A missing default config is fine, every key has a default or an env override.
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			log.Fatal(err)
		}
	}
}

func getConfig() (*Config, error) {
	return decodeConfig(viper.GetViper())
}

func decodeConfig(v *viper.Viper) (*Config, error) {
	var config *Config
	if err := v.Unmarshal(&config); err != nil {
		return config, err
	}
	if config == nil {
		config = &Config{}
	}
	if config.Extraction == nil {
		config.Extraction = &ExtractionConfig{}
	}
	if config.Retrieval == nil {
		config.Retrieval = &RetrievalConfig{}
	}
	if config.AI == nil {
		config.AI = &AIConfig{}
	}
	if config.AI.Gemini == nil {
		config.AI.Gemini = &GeminiConfig{}
	}
	return config, nil
}
