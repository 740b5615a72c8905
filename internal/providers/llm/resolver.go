package llm

import (
	"context"
	"fmt"
	"maps"
	"slices"

	"github.com/sandevgo/quill/internal/core"
)

// Factory builds a provider bound to one model.
type Factory func(cfg core.ProviderConfig, model string) core.AIProvider

type providerEntry struct {
	factory Factory
	// needsKey reports whether an API key (true) or a base URL (false) is the credential.
	needsKey bool
}

// Resolver maps provider ids to constructors.
type Resolver struct {
	cfg     core.ProviderConfig
	entries map[string]providerEntry
}

func NewResolver(cfg core.ProviderConfig) *Resolver {
	return &Resolver{
		cfg: cfg,
		entries: map[string]providerEntry{
			"openai": {needsKey: true, factory: func(c core.ProviderConfig, model string) core.AIProvider {
				return NewOpenAI(c.GetAPIKey("openai"), model)
			}},
			"anthropic": {needsKey: true, factory: func(c core.ProviderConfig, model string) core.AIProvider {
				return NewAnthropic(c.GetAPIKey("anthropic"), model)
			}},
			"openrouter": {needsKey: true, factory: func(c core.ProviderConfig, model string) core.AIProvider {
				return NewOpenRouter(c.GetAPIKey("openrouter"), model)
			}},
			"ollama": {factory: func(c core.ProviderConfig, model string) core.AIProvider {
				return NewOllama(c.GetBaseURL("ollama"), c.GetAPIKey("ollama"), model)
			}},
			"custom": {factory: func(c core.ProviderConfig, model string) core.AIProvider {
				return NewCustomOpenAI(c.GetBaseURL("custom"), c.GetAPIKey("custom"), model)
			}},
		},
	}
}

// Register adds or replaces a provider entry.
func (r *Resolver) Register(providerID string, needsKey bool, f Factory) {
	r.entries[providerID] = providerEntry{factory: f, needsKey: needsKey}
}

func (r *Resolver) Providers() []string {
	return slices.Sorted(maps.Keys(r.entries))
}

func (r *Resolver) Known(providerID string) bool {
	_, ok := r.entries[providerID]
	return ok
}

func (r *Resolver) HasCredential(providerID string) bool {
	e, ok := r.entries[providerID]
	if !ok {
		return false
	}
	if e.needsKey {
		return r.cfg.GetAPIKey(providerID) != ""
	}
	return r.cfg.GetBaseURL(providerID) != ""
}

func (r *Resolver) Resolve(providerID, modelID string) (core.AIProvider, error) {
	e, ok := r.entries[providerID]
	if !ok {
		return nil, &core.ConfigurationError{Provider: providerID, Reason: "unknown provider"}
	}
	if !r.HasCredential(providerID) {
		return nil, &core.ConfigurationError{Provider: providerID, Reason: "no credential configured"}
	}
	if modelID == "" {
		return nil, &core.ConfigurationError{Provider: providerID, Reason: "no model selected"}
	}
	return e.factory(r.cfg, modelID), nil
}

// Models lists the models a provider offers.
func (r *Resolver) Models(ctx context.Context, providerID string) ([]core.Model, error) {
	p, err := r.Resolve(providerID, "-")
	if err != nil {
		return nil, err
	}
	lister, ok := p.(core.ModelLister)
	if !ok {
		return nil, fmt.Errorf("provider %s cannot list models", providerID)
	}
	return lister.Models(ctx)
}
