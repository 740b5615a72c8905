package config

import (
	"context"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v9"
	"github.com/sandevgo/quill/pkg/log"
)

type AppConfig struct {
	RuntimePath string `env:"QUILL_RUNTIME_PATH" envDefault:".quill"`
	// VaultPath is the document root. Relative paths resolve against RuntimePath.
	VaultPath string `env:"QUILL_VAULT_PATH" envDefault:"vault"`

	// Session default model, switchable at runtime with /model
	Provider string `env:"QUILL_PROVIDER" envDefault:"openrouter"`
	Model    string `env:"QUILL_MODEL" envDefault:"google/gemma-3-27b-it:free"`
	Mode     string `env:"QUILL_MODE" envDefault:"agent"`

	// Transport Flags
	EnableTelegram bool `env:"ENABLE_TELEGRAM" envDefault:"false"`
	EnableCLI      bool `env:"ENABLE_CLI" envDefault:"true"`

	MaxToolSteps    int           `env:"QUILL_MAX_TOOL_STEPS" envDefault:"8"`
	ReindexInterval time.Duration `env:"QUILL_REINDEX_INTERVAL" envDefault:"5m"`
	// Estimator selects the token estimator: "chars" or "tiktoken".
	Estimator string `env:"QUILL_TOKEN_ESTIMATOR" envDefault:"chars"`
}

func NewAppConfig(ctx context.Context) *AppConfig {
	c := &AppConfig{}
	if err := env.Parse(c); err != nil {
		log.FromCtx(ctx).Fatal().Err(err).Msg("failed to parse App config")
	}
	c.RuntimePath = resolveRuntimePath(c.RuntimePath)
	return c
}

func (c AppConfig) GetRuntimePath() string {
	return c.RuntimePath
}

func (c AppConfig) GetSystemPath() string {
	return filepath.Join(c.RuntimePath, "SYSTEM.md")
}

func (c AppConfig) GetDatabasePath() string {
	return filepath.Join(c.RuntimePath, "quill.db")
}

func (c AppConfig) GetMCPConfigPath() string {
	return filepath.Join(c.RuntimePath, "mcp.json")
}

func (c AppConfig) GetSessionsPath() string {
	return filepath.Join(c.RuntimePath, "sessions")
}

func (c AppConfig) GetVaultPath() string {
	if filepath.IsAbs(c.VaultPath) {
		return c.VaultPath
	}
	return filepath.Join(c.RuntimePath, c.VaultPath)
}

func (c AppConfig) GetReindexInterval() time.Duration {
	return c.ReindexInterval
}

func (c AppConfig) IsTelegramSelected() bool {
	return c.EnableTelegram
}
