package installer

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/sandevgo/quill/pkg/env"
)

// InstallState collects values chosen at init time. They override the
// defaults of the rendered config structs.
type InstallState struct {
	EnvVars map[string]string
}

func NewInstallState() *InstallState {
	return &InstallState{
		EnvVars: make(map[string]string),
	}
}

// Set records a value; empty values are ignored.
func (s *InstallState) Set(key, value string) {
	if value = strings.TrimSpace(value); value != "" {
		s.EnvVars[key] = value
	}
}

// Render produces .env content for configs, one block per struct, with the
// recorded values applied. Values whose key no struct declares are appended.
func (s *InstallState) Render(configs ...any) (string, error) {
	used := make(map[string]bool, len(s.EnvVars))

	var blocks []string
	for _, c := range configs {
		content, err := env.MarshalEnv(c)
		if err != nil {
			return "", fmt.Errorf("render %T: %w", c, err)
		}

		lines := strings.Split(strings.TrimRight(content, "\n"), "\n")
		for i, line := range lines {
			key, _, _ := strings.Cut(strings.TrimPrefix(line, "# "), "=")
			if v, ok := s.EnvVars[key]; ok {
				lines[i] = key + "=" + v
				used[key] = true
			}
		}
		blocks = append(blocks, strings.Join(lines, "\n"))
	}

	var extra []string
	for _, key := range slices.Sorted(maps.Keys(s.EnvVars)) {
		if !used[key] {
			extra = append(extra, key+"="+s.EnvVars[key])
		}
	}
	if len(extra) > 0 {
		blocks = append(blocks, strings.Join(extra, "\n"))
	}

	return strings.Join(blocks, "\n\n") + "\n", nil
}
