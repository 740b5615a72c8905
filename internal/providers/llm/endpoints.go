package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/sandevgo/quill/internal/core"
)

const (
	openAIBaseURL     = "https://api.openai.com"
	openRouterBaseURL = "https://openrouter.ai/api"
)

func bearerConfig(baseURL, apiKey, model string) OpenAICompatibleConfig {
	return OpenAICompatibleConfig{
		BaseURL:    baseURL,
		APIKey:     apiKey,
		Model:      model,
		AuthHeader: "Authorization",
		AuthPrefix: "Bearer ",
	}
}

func NewOpenAI(apiKey, model string) *OpenAICompatible {
	return NewOpenAICompatible(bearerConfig(openAIBaseURL, apiKey, model))
}

// NewOpenRouter identifies quill to OpenRouter's app rankings.
func NewOpenRouter(apiKey, model string) *OpenAICompatible {
	cfg := bearerConfig(openRouterBaseURL, apiKey, model)
	cfg.ExtraHeaders = map[string]string{
		"HTTP-Referer": core.QuillRepositoryURL,
		"X-Title":      core.QuillName,
	}
	return NewOpenAICompatible(cfg)
}

// NewCustomOpenAI targets any server speaking the chat completions protocol.
func NewCustomOpenAI(baseURL, apiKey, model string) *OpenAICompatible {
	return NewOpenAICompatible(bearerConfig(baseURL, apiKey, model))
}

// Ollama chats through the OpenAI-compatible endpoint of an Ollama server
// and lists the locally pulled models.
type Ollama struct {
	*OpenAICompatible
}

func NewOllama(baseURL, apiKey, model string) *Ollama {
	return &Ollama{OpenAICompatible: NewOpenAICompatible(bearerConfig(baseURL, apiKey, model))}
}

func (o *Ollama) Models(ctx context.Context) ([]core.Model, error) {
	resp, err := o.send(ctx, http.MethodGet, "/api/tags", nil, o.headers())
	if err != nil {
		return nil, fmt.Errorf("ollama not available: %w", err)
	}
	defer resp.Body.Close()

	var tags struct {
		Models []struct {
			Name string `json:"name"`
		} `json:"models"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tags); err != nil {
		return nil, fmt.Errorf("decode ollama tags: %w", err)
	}

	models := make([]core.Model, 0, len(tags.Models))
	for _, m := range tags.Models {
		models = append(models, core.Model{ID: m.Name, Name: m.Name})
	}
	return models, nil
}
