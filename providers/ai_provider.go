package providers

import (
	"fmt"

	"github.com/capscan/capscan/analysis_errors"
	"github.com/capscan/capscan/providers/contracts"
	"github.com/capscan/capscan/providers/gemini"
	"github.com/capscan/capscan/providers/openai"
	token_contracts "github.com/capscan/capscan/token_management/contracts"
)

// AIProviderConfig selects and configures the enrichment provider.
type AIProviderConfig struct {
	Provider    string   `mapstructure:"provider"`
	BaseURL     string   `mapstructure:"base_url"`
	Model       string   `mapstructure:"model"`
	ApiKey      string   `mapstructure:"api_key"`
	Temperature *float32 `mapstructure:"temperature"`
	MaxTokens   int      `mapstructure:"max_tokens"`
}

// EnrichmentProviderFactory returns the provider named in the config.
// An unknown provider name is a configuration error requiring user action.
func EnrichmentProviderFactory(config *AIProviderConfig, tokenManagement token_contracts.ITokenManagement) (contracts.IEnrichmentProvider, error) {
	switch config.Provider {
	case "openai", "azure-openai":
		return openai.NewOpenAIEnrichmentProvider(&openai.OpenAIConfig{
			BaseURL:         config.BaseURL,
			Model:           config.Model,
			ApiKey:          config.ApiKey,
			Temperature:     config.Temperature,
			MaxTokens:       config.MaxTokens,
			TokenManagement: tokenManagement,
		}), nil
	case "gemini":
		return gemini.NewGeminiEnrichmentProvider(&gemini.GeminiConfig{
			Model:           config.Model,
			ApiKey:          config.ApiKey,
			Temperature:     config.Temperature,
			TokenManagement: tokenManagement,
		}), nil
	default:
		return nil, analysis_errors.NewConfig(fmt.Sprintf("unsupported AI provider %q", config.Provider), nil)
	}
}
