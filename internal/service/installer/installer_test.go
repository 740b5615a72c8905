package installer

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Name  string `env:"SAMPLE_NAME" envDefault:"quill"`
	Token string `env:"SAMPLE_TOKEN"`
}

func TestInstallState_Render(t *testing.T) {
	s := NewInstallState()
	s.Set("SAMPLE_TOKEN", "secret")
	s.Set("EXTRA_KEY", "x")
	s.Set("IGNORED", "  ")

	out, err := s.Render(sample{})
	require.NoError(t, err)
	assert.Equal(t, "SAMPLE_NAME=quill\nSAMPLE_TOKEN=secret\n\nEXTRA_KEY=x\n", out)
}

func TestInstallState_RenderDefaults(t *testing.T) {
	out, err := NewInstallState().Render(sample{})
	require.NoError(t, err)
	assert.Equal(t, "SAMPLE_NAME=quill\n# SAMPLE_TOKEN=\n", out)
}

func TestInstall(t *testing.T) {
	rt := filepath.Join(t.TempDir(), "rt")
	state := NewInstallState()
	state.Set("OPENROUTER_API_KEY", "or-key")

	require.NoError(t, Install(context.Background(), rt, state, false))

	env, err := os.ReadFile(filepath.Join(rt, ".env"))
	require.NoError(t, err)
	assert.Contains(t, string(env), "OPENROUTER_API_KEY=or-key\n")
	assert.Contains(t, string(env), "QUILL_SUMMARIZE_OVER_TOKENS=6000\n")

	assert.DirExists(t, filepath.Join(rt, "vault"))
	assert.DirExists(t, filepath.Join(rt, "sessions"))
	assert.FileExists(t, filepath.Join(rt, "mcp.json"))

	err = Install(context.Background(), rt, state, false)
	assert.ErrorIs(t, err, ErrExists)

	require.NoError(t, Install(context.Background(), rt, NewInstallState(), true))
	env, err = os.ReadFile(filepath.Join(rt, ".env"))
	require.NoError(t, err)
	assert.NotContains(t, string(env), "or-key")
}
