package installer

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/sandevgo/quill/internal/config"
	"github.com/sandevgo/quill/internal/providers/mcp"
	"github.com/sandevgo/quill/pkg/log"
)

var ErrExists = errors.New("runtime directory already initialized")

// Install creates the runtime layout: .env, mcp.json, the vault and the
// sessions directory. An existing .env is only replaced with force.
func Install(ctx context.Context, runtimePath string, state *InstallState, force bool) error {
	logger := log.FromCtx(ctx)

	if err := os.MkdirAll(runtimePath, 0o755); err != nil {
		return fmt.Errorf("failed to create runtime directory: %w", err)
	}

	envPath := filepath.Join(runtimePath, ".env")
	if _, err := os.Stat(envPath); err == nil && !force {
		return fmt.Errorf("%w: %s", ErrExists, envPath)
	} else if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}

	content, err := state.Render(
		config.AppConfig{},
		config.PolicyConfig{},
		config.ProvidersConfig{},
		config.TelegramConfig{},
	)
	if err != nil {
		return err
	}
	if err := os.WriteFile(envPath, []byte(content), 0o600); err != nil {
		return fmt.Errorf("failed to write .env: %w", err)
	}
	logger.Info().Str("path", envPath).Msg("wrote environment file")

	app := config.AppConfig{RuntimePath: runtimePath, VaultPath: "vault"}
	if v, ok := state.EnvVars["QUILL_VAULT_PATH"]; ok {
		app.VaultPath = v
	}
	for _, dir := range []string{app.GetVaultPath(), app.GetSessionsPath()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}

	if _, err := mcp.NewFileStorage(app.GetMCPConfigPath()).Load(ctx); err != nil {
		return fmt.Errorf("failed to create mcp config: %w", err)
	}
	return nil
}
