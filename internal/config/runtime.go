package config

import (
	"os"
	"path/filepath"
)

// GetRuntimePath reads QUILL_RUNTIME_PATH before any .env file is loaded.
func GetRuntimePath() string {
	return resolveRuntimePath(os.Getenv("QUILL_RUNTIME_PATH"))
}

func resolveRuntimePath(path string) string {
	if path == "" {
		path = ".quill"
	}
	if !filepath.IsAbs(path) {
		home, _ := os.UserHomeDir()
		path = filepath.Join(home, path)
	}
	return path
}
