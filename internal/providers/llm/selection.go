package llm

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/sandevgo/quill/pkg/log"
)

// Selection is the session default provider and model used when a turn does
// not name one explicitly.
type Selection struct {
	resolver *Resolver
	mu       sync.RWMutex
	provider string
	model    string
}

func NewSelection(resolver *Resolver, provider, model string) *Selection {
	return &Selection{resolver: resolver, provider: provider, model: model}
}

func (s *Selection) Current() (provider, model string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.provider, s.model
}

// Set switches the default. spec is "provider/model" when the first segment
// names a known provider, otherwise a model id for the current provider
// (OpenRouter ids such as "openai/gpt-4o" contain slashes themselves).
func (s *Selection) Set(ctx context.Context, spec string) error {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return fmt.Errorf("empty model")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	provider, model := s.provider, spec
	if head, rest, ok := strings.Cut(spec, "/"); ok && rest != "" && s.resolver.Known(head) {
		provider, model = head, rest
	}
	if !s.resolver.HasCredential(provider) {
		return fmt.Errorf("provider %s has no credential configured", provider)
	}

	s.provider, s.model = provider, model
	log.FromCtx(ctx).Info().Str("provider", provider).Str("model", model).Msg("default model changed")
	return nil
}
