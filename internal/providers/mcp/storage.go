package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/sandevgo/quill/pkg/log"
	"github.com/tidwall/jsonc"
)

// WatchInterval is how often FileStorage polls the config file.
var WatchInterval = time.Second

// FileStorage keeps the server list in a JSON file. Comments and trailing
// commas are accepted when reading.
type FileStorage struct {
	path string
	mu   sync.RWMutex
}

func NewFileStorage(path string) *FileStorage {
	return &FileStorage{path: path}
}

// Load reads the config, creating an empty one if the file is missing.
func (c *FileStorage) Load(ctx context.Context) (*Config, error) {
	c.mu.RLock()
	data, err := os.ReadFile(c.path)
	c.mu.RUnlock()

	if errors.Is(err, fs.ErrNotExist) {
		if _, statErr := os.Stat(filepath.Dir(c.path)); statErr != nil {
			return nil, fmt.Errorf("config directory does not exist: %w", statErr)
		}

		log.FromCtx(ctx).Info().Str("path", c.path).Msg("mcp config not found, creating default")

		cfg := &Config{MCPServers: make(map[string]ServerConfig)}
		if err := c.Save(ctx, cfg); err != nil {
			return nil, fmt.Errorf("failed to create default config: %w", err)
		}
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read mcp config: %w", err)
	}

	return parseConfig(data)
}

func parseConfig(data []byte) (*Config, error) {
	cfg := &Config{}
	if err := json.Unmarshal(jsonc.ToJSON(data), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse mcp config: %w", err)
	}
	if cfg.MCPServers == nil {
		cfg.MCPServers = make(map[string]ServerConfig)
	}
	return cfg, nil
}

func (c *FileStorage) Save(ctx context.Context, cfg *Config) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := os.WriteFile(c.path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// Watch polls the file and emits the parsed config whenever its mtime moves
// forward. Unparsable revisions are logged and skipped.
func (c *FileStorage) Watch(ctx context.Context) (<-chan Config, error) {
	info, err := os.Stat(c.path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	lastMod := info.ModTime()

	updates := make(chan Config)
	go func() {
		defer close(updates)

		ticker := time.NewTicker(WatchInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}

			info, err := os.Stat(c.path)
			if err != nil {
				lastMod = time.Time{}
				continue
			}
			if !info.ModTime().After(lastMod) {
				continue
			}

			c.mu.RLock()
			data, err := os.ReadFile(c.path)
			c.mu.RUnlock()
			if err != nil {
				continue
			}

			cfg, err := parseConfig(data)
			if err != nil {
				log.FromCtx(ctx).Error().Err(err).Msg("failed to parse mcp config")
				lastMod = info.ModTime()
				continue
			}
			lastMod = info.ModTime()

			select {
			case updates <- *cfg:
			case <-ctx.Done():
				return
			}
		}
	}()

	return updates, nil
}
