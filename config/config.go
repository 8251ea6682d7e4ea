package config

import (
	"fmt"
	"os"
	"time"

	"github.com/capscan/capscan/constants/lipgloss"
	"github.com/capscan/capscan/providers"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Config represents the structure of the configuration file
type Config struct {
	Version          string                      `mapstructure:"version"`
	Theme            string                      `mapstructure:"theme"`
	Cache            CacheConfig                 `mapstructure:"cache"`
	Analysis         AnalysisConfig              `mapstructure:"analysis"`
	Enrichment       EnrichmentConfig            `mapstructure:"enrichment"`
	AIProviderConfig *providers.AIProviderConfig `mapstructure:"ai_provider_config"`
}

// CacheConfig controls the two-tier capsule cache.
type CacheConfig struct {
	Dir           string `mapstructure:"dir"`
	MemoryEntries int    `mapstructure:"memory_entries"`
}

// AnalysisConfig controls the base analysis phase.
type AnalysisConfig struct {
	Concurrency int  `mapstructure:"concurrency"`
	DeepDeps    bool `mapstructure:"deep_deps"`
}

// EnrichmentConfig controls the AI phase.
type EnrichmentConfig struct {
	Enabled        bool          `mapstructure:"enabled"`
	Concurrency    int           `mapstructure:"concurrency"`
	Timeout        time.Duration `mapstructure:"timeout"`
	MaxAttempts    int           `mapstructure:"max_attempts"`
	BaseDelay      time.Duration `mapstructure:"base_delay"`
	MaxInputTokens int           `mapstructure:"max_input_tokens"`
}

// DefaultConfig values
var DefaultConfig = Config{
	Version: "0.3.0",
	Theme:   "dracula",
	Cache: CacheConfig{
		Dir:           "",
		MemoryEntries: 4096,
	},
	Analysis: AnalysisConfig{
		Concurrency: 0,
		DeepDeps:    false,
	},
	Enrichment: EnrichmentConfig{
		Enabled:        true,
		Concurrency:    3,
		Timeout:        30 * time.Second,
		MaxAttempts:    3,
		BaseDelay:      1 * time.Second,
		MaxInputTokens: 100000,
	},
	AIProviderConfig: &providers.AIProviderConfig{
		Provider: "openai",
		BaseURL:  "https://api.openai.com/v1",
		Model:    "gpt-4o-mini",
		ApiKey:   "",
	},
}

// cfgFile holds the path to the configuration file (set via CLI)
var cfgFile string

// LoadConfigs initializes the configuration from file, flags, and environment variables, and returns the final config.
func LoadConfigs(rootCmd *cobra.Command, cwd string) *Config {
	var config *Config

	setDefaults()

	viper.AutomaticEnv()
	bindEnv()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
		if err := viper.ReadInConfig(); err != nil {
			fmt.Println(lipgloss.Red.Render(fmt.Sprintf("Error reading config file: %v", err)))
			os.Exit(1)
		}
	} else {
		viper.SetConfigName("capscan-config")
		viper.AddConfigPath(cwd)

		viper.SetConfigType("yaml")
		if err := viper.ReadInConfig(); err != nil {
			viper.SetConfigType("json")
			_ = viper.ReadInConfig()
		}
	}

	bindFlags(rootCmd)

	if err := viper.Unmarshal(&config); err != nil {
		fmt.Println(lipgloss.Red.Render(fmt.Sprintf("Unable to decode into struct: %v", err)))
		os.Exit(1)
	}

	return config
}

// setDefaults sets all default configuration values
func setDefaults() {
	viper.SetDefault("version", DefaultConfig.Version)
	viper.SetDefault("theme", DefaultConfig.Theme)
	viper.SetDefault("cache.dir", DefaultConfig.Cache.Dir)
	viper.SetDefault("cache.memory_entries", DefaultConfig.Cache.MemoryEntries)
	viper.SetDefault("analysis.concurrency", DefaultConfig.Analysis.Concurrency)
	viper.SetDefault("analysis.deep_deps", DefaultConfig.Analysis.DeepDeps)
	viper.SetDefault("enrichment.enabled", DefaultConfig.Enrichment.Enabled)
	viper.SetDefault("enrichment.concurrency", DefaultConfig.Enrichment.Concurrency)
	viper.SetDefault("enrichment.timeout", DefaultConfig.Enrichment.Timeout)
	viper.SetDefault("enrichment.max_attempts", DefaultConfig.Enrichment.MaxAttempts)
	viper.SetDefault("enrichment.base_delay", DefaultConfig.Enrichment.BaseDelay)
	viper.SetDefault("enrichment.max_input_tokens", DefaultConfig.Enrichment.MaxInputTokens)
	viper.SetDefault("ai_provider_config.provider", DefaultConfig.AIProviderConfig.Provider)
	viper.SetDefault("ai_provider_config.base_url", DefaultConfig.AIProviderConfig.BaseURL)
	viper.SetDefault("ai_provider_config.model", DefaultConfig.AIProviderConfig.Model)
	viper.SetDefault("ai_provider_config.api_key", DefaultConfig.AIProviderConfig.ApiKey)
}

// bindEnv explicitly binds environment variables to configuration keys
func bindEnv() {
	_ = viper.BindEnv("theme", "THEME")
	_ = viper.BindEnv("cache.dir", "CAPSCAN_CACHE_DIR")
	_ = viper.BindEnv("enrichment.enabled", "CAPSCAN_ENRICHMENT")
	_ = viper.BindEnv("ai_provider_config.provider", "PROVIDER")
	_ = viper.BindEnv("ai_provider_config.base_url", "BASE_URL")
	_ = viper.BindEnv("ai_provider_config.model", "MODEL")
	_ = viper.BindEnv("ai_provider_config.api_key", "API_KEY")
}

// bindFlags binds the CLI flags to configuration values.
func bindFlags(rootCmd *cobra.Command) {
	_ = viper.BindPFlag("theme", rootCmd.PersistentFlags().Lookup("theme"))
	_ = viper.BindPFlag("cache.dir", rootCmd.PersistentFlags().Lookup("cache_dir"))
	_ = viper.BindPFlag("ai_provider_config.provider", rootCmd.PersistentFlags().Lookup("provider"))
	_ = viper.BindPFlag("ai_provider_config.base_url", rootCmd.PersistentFlags().Lookup("base_url"))
	_ = viper.BindPFlag("ai_provider_config.model", rootCmd.PersistentFlags().Lookup("model"))
	_ = viper.BindPFlag("ai_provider_config.api_key", rootCmd.PersistentFlags().Lookup("api_key"))
}

// InitFlags initializes the flags for the root command.
func InitFlags(rootCmd *cobra.Command) {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "Specifies the path to a configuration file (JSON or YAML) that contains all the settings for the application.")

	rootCmd.PersistentFlags().String("theme", DefaultConfig.Theme, "Set customize theme for rendering reports. (e.g., 'dracula', 'light', 'dark')")
	rootCmd.PersistentFlags().String("cache_dir", DefaultConfig.Cache.Dir, "Directory for the durable capsule cache (default '.capscan/cache').")

	rootCmd.Flags().BoolP("version", "v", false, "Specifies the version of the application.")

	rootCmd.PersistentFlags().String("provider", DefaultConfig.AIProviderConfig.Provider, "The name of the AI provider (e.g., 'openai', 'gemini')")
	rootCmd.PersistentFlags().String("base_url", DefaultConfig.AIProviderConfig.BaseURL, "The base URL of AI Provider (e.g., default is 'https://api.openai.com/v1').")
	rootCmd.PersistentFlags().String("model", DefaultConfig.AIProviderConfig.Model, "The name of the model used for enrichment, such as 'gpt-4o-mini'.")
	rootCmd.PersistentFlags().String("api_key", DefaultConfig.AIProviderConfig.ApiKey, "The API key used to authenticate with the AI service provider.")
}
