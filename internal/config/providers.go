package config

import (
	"context"

	"github.com/caarlos0/env/v11"
	"github.com/sandevgo/quill/pkg/log"
)

const (
	ProviderOpenAI     = "openai"
	ProviderAnthropic  = "anthropic"
	ProviderOpenRouter = "openrouter"
	ProviderOllama     = "ollama"
	ProviderCustom     = "custom"
)

// ProvidersConfig holds credentials for every provider. None is required;
// a turn against a provider without credentials fails with a configuration error.
type ProvidersConfig struct {
	OpenAIAPIKey        string `env:"OPENAI_API_KEY"`
	AnthropicAPIKey     string `env:"ANTHROPIC_API_KEY"`
	OpenRouterAPIKey    string `env:"OPENROUTER_API_KEY"`
	OllamaBaseURL       string `env:"OLLAMA_BASE_URL" envDefault:"http://localhost:11434"`
	OllamaAPIKey        string `env:"OLLAMA_API_KEY"`
	CustomOpenAIBaseURL string `env:"CUSTOM_OPENAI_BASE_URL"`
	CustomOpenAIAPIKey  string `env:"CUSTOM_OPENAI_API_KEY"`
}

func NewProvidersConfig(ctx context.Context) *ProvidersConfig {
	c := &ProvidersConfig{}
	if err := env.Parse(c); err != nil {
		log.FromCtx(ctx).Fatal().Err(err).Msg("failed to parse Providers config")
	}
	return c
}

func (c ProvidersConfig) GetAPIKey(providerID string) string {
	switch providerID {
	case ProviderOpenAI:
		return c.OpenAIAPIKey
	case ProviderAnthropic:
		return c.AnthropicAPIKey
	case ProviderOpenRouter:
		return c.OpenRouterAPIKey
	case ProviderOllama:
		return c.OllamaAPIKey
	case ProviderCustom:
		return c.CustomOpenAIAPIKey
	}
	return ""
}

func (c ProvidersConfig) GetBaseURL(providerID string) string {
	switch providerID {
	case ProviderOllama:
		return c.OllamaBaseURL
	case ProviderCustom:
		return c.CustomOpenAIBaseURL
	}
	return ""
}
