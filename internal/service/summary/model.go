package summary

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sandevgo/quill/internal/core"
)

// Selector reports the session default provider and model.
type Selector interface {
	Current() (provider, model string)
}

// Model runs one-shot prompts against the session default model.
type Model struct {
	resolver  core.ProviderResolver
	selection Selector
}

func NewModel(resolver core.ProviderResolver, selection Selector) *Model {
	return &Model{resolver: resolver, selection: selection}
}

// Complete sends a system and a user prompt without tools. It returns
// core.ErrNoProvider when the default provider cannot be used.
func (m *Model) Complete(ctx context.Context, system, user string) (string, error) {
	providerID, modelID := m.selection.Current()
	if providerID == "" || modelID == "" || !m.resolver.HasCredential(providerID) {
		return "", core.ErrNoProvider
	}

	provider, err := m.resolver.Resolve(providerID, modelID)
	if err != nil {
		var cfgErr *core.ConfigurationError
		if errors.As(err, &cfgErr) {
			return "", fmt.Errorf("%w: %s", core.ErrNoProvider, cfgErr.Reason)
		}
		return "", err
	}

	resp, err := provider.Chat(ctx, []core.Message{
		{Role: core.RoleSystem, Content: system},
		{Role: core.RoleUser, Content: user},
	}, nil)
	if err != nil {
		return "", &core.ProviderError{Provider: providerID, Model: modelID, Err: err}
	}
	return strings.TrimSpace(resp.Content), nil
}
