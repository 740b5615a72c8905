package mcp

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStorage_Load_MissingDirectory(t *testing.T) {
	t.Parallel()
	fs := NewFileStorage("/nonexistent/path/mcp.json")

	_, err := fs.Load(context.Background())
	require.Error(t, err)
}

func TestFileStorage_Load_CreatesDefault(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "mcp.json")
	fs := NewFileStorage(path)

	cfg, err := fs.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, cfg.MCPServers)
	assert.FileExists(t, path)
}

func TestFileStorage_Load_Comments(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "mcp.json")
	content := `{
  // project notes
  "mcpServers": {
    "notes": {"title": "Notes", "command": "notes-mcp", "args": ["--ro"],},
    "web": {"url": "https://example.com/mcp", "disabled": true},
  },
}`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := NewFileStorage(path).Load(context.Background())
	require.NoError(t, err)
	require.Len(t, cfg.MCPServers, 2)

	notes := cfg.MCPServers["notes"]
	assert.Equal(t, "Notes", notes.DisplayName("notes"))
	assert.Equal(t, []string{"--ro"}, notes.Args)

	web := cfg.MCPServers["web"]
	assert.True(t, web.Disabled)
	tType, err := web.GetTransport()
	require.NoError(t, err)
	assert.Equal(t, TransportHTTP, tType)
}

func TestFileStorage_Load_NullServers(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "mcp.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"mcpServers": null}`), 0644))

	cfg, err := NewFileStorage(path).Load(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, cfg.MCPServers)
}

func TestFileStorage_Watch(t *testing.T) {
	old := WatchInterval
	WatchInterval = 10 * time.Millisecond
	t.Cleanup(func() { WatchInterval = old })

	path := filepath.Join(t.TempDir(), "mcp.json")
	fs := NewFileStorage(path)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	_, err := fs.Load(ctx)
	require.NoError(t, err)

	updates, err := fs.Watch(ctx)
	require.NoError(t, err)

	future := time.Now().Add(2 * time.Second)
	require.NoError(t, os.WriteFile(path, []byte(`{"mcpServers":{"a":{"command":"x"}}}`), 0644))
	require.NoError(t, os.Chtimes(path, future, future))

	select {
	case cfg := <-updates:
		assert.Contains(t, cfg.MCPServers, "a")
	case <-time.After(2 * time.Second):
		t.Fatal("no update received")
	}
}
