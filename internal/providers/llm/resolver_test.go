package llm

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sandevgo/quill/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProviderConfig struct {
	keys map[string]string
	urls map[string]string
}

func (f fakeProviderConfig) GetAPIKey(id string) string  { return f.keys[id] }
func (f fakeProviderConfig) GetBaseURL(id string) string { return f.urls[id] }

func TestResolver(t *testing.T) {
	r := NewResolver(fakeProviderConfig{
		keys: map[string]string{"openai": "sk"},
		urls: map[string]string{"ollama": "http://localhost:11434"},
	})

	assert.Equal(t, []string{"anthropic", "custom", "ollama", "openai", "openrouter"}, r.Providers())
	assert.True(t, r.HasCredential("openai"))
	assert.True(t, r.HasCredential("ollama"))
	assert.False(t, r.HasCredential("anthropic"))
	assert.False(t, r.HasCredential("nope"))

	p, err := r.Resolve("openai", "gpt-4o")
	require.NoError(t, err)
	assert.IsType(t, &OpenAICompatible{}, p)

	tests := []struct {
		provider, model string
		reason          string
	}{
		{"nope", "m", "unknown provider"},
		{"anthropic", "claude", "no credential configured"},
		{"openai", "", "no model selected"},
	}
	for _, tt := range tests {
		_, err := r.Resolve(tt.provider, tt.model)
		var cfgErr *core.ConfigurationError
		require.True(t, errors.As(err, &cfgErr), "provider %s", tt.provider)
		assert.Equal(t, tt.reason, cfgErr.Reason)
	}
}

func TestSelection_Set(t *testing.T) {
	r := NewResolver(fakeProviderConfig{keys: map[string]string{"openrouter": "k", "openai": "k"}})
	s := NewSelection(r, "openrouter", "google/gemma")

	require.NoError(t, s.Set(context.Background(), "openai/gpt-4o"))
	p, m := s.Current()
	assert.Equal(t, "openai", p)
	assert.Equal(t, "gpt-4o", m)

	// First segment is not a provider: whole spec is a model id.
	require.NoError(t, s.Set(context.Background(), "mistralai/mixtral"))
	p, m = s.Current()
	assert.Equal(t, "openai", p)
	assert.Equal(t, "mistralai/mixtral", m)

	assert.Error(t, s.Set(context.Background(), "anthropic/claude"))
	assert.Error(t, s.Set(context.Background(), " "))
	p, _ = s.Current()
	assert.Equal(t, "openai", p)
}

func TestResolver_Models(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer k", r.Header.Get("Authorization"))
		switch r.URL.Path {
		case "/v1/models":
			w.Write([]byte(`{"data":[{"id":"qwen","context_length":32000},{"id":"llama","name":"Llama 3"}]}`))
		case "/api/tags":
			w.Write([]byte(`{"models":[{"name":"mistral:7b"}]}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	r := NewResolver(fakeProviderConfig{
		keys: map[string]string{"custom": "k", "ollama": "k"},
		urls: map[string]string{"custom": srv.URL, "ollama": srv.URL},
	})

	models, err := r.Models(context.Background(), "custom")
	require.NoError(t, err)
	assert.Equal(t, []core.Model{
		{ID: "qwen", Name: "qwen", ContextLength: 32000},
		{ID: "llama", Name: "Llama 3"},
	}, models)

	models, err = r.Models(context.Background(), "ollama")
	require.NoError(t, err)
	assert.Equal(t, []core.Model{{ID: "mistral:7b", Name: "mistral:7b"}}, models)

	_, err = r.Models(context.Background(), "anthropic")
	var cfgErr *core.ConfigurationError
	assert.ErrorAs(t, err, &cfgErr)
}
