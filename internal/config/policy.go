package config

import (
	"context"

	"github.com/caarlos0/env/v11"
	"github.com/sandevgo/quill/internal/core"
	"github.com/sandevgo/quill/pkg/log"
)

type PolicyConfig struct {
	MaxInputTokens      int  `env:"QUILL_MAX_INPUT_TOKENS" envDefault:"0"`
	SummarizeOverTokens int  `env:"QUILL_SUMMARIZE_OVER_TOKENS" envDefault:"6000"`
	HistoryMaxMessages  int  `env:"QUILL_HISTORY_MAX_MESSAGES" envDefault:"12"`
	RetrievalEnabled    bool `env:"QUILL_RETRIEVAL_ENABLED" envDefault:"true"`
	RetrievalK          int  `env:"QUILL_RETRIEVAL_K" envDefault:"5"`
	SnippetLength       int  `env:"QUILL_SNIPPET_LENGTH" envDefault:"600"`
	IncludeMCPOverview  bool `env:"QUILL_INCLUDE_MCP_OVERVIEW" envDefault:"true"`
}

func NewPolicyConfig(ctx context.Context) *PolicyConfig {
	c := &PolicyConfig{}
	if err := env.Parse(c); err != nil {
		log.FromCtx(ctx).Fatal().Err(err).Msg("failed to parse Policy config")
	}
	return c
}

// Policy converts the config into the immutable value used for context builds.
func (c PolicyConfig) Policy() core.ContextPolicy {
	return core.ContextPolicy{
		MaxInputTokens:      c.MaxInputTokens,
		SummarizeOverTokens: c.SummarizeOverTokens,
		HistoryMaxMessages:  c.HistoryMaxMessages,
		Retrieval: core.RetrievalPolicy{
			EnableVault:   c.RetrievalEnabled,
			K:             c.RetrievalK,
			SnippetLength: c.SnippetLength,
		},
		IncludeMCPOverview: c.IncludeMCPOverview,
	}
}
