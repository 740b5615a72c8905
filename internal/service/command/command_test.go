package command

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sandevgo/quill/internal/core"
	"github.com/sandevgo/quill/internal/service/state"
	"github.com/sandevgo/quill/internal/storage/session"
)

type fakeSelection struct {
	provider, model string
}

func (s *fakeSelection) Current() (string, string) { return s.provider, s.model }

func (s *fakeSelection) Set(_ context.Context, spec string) error {
	if spec == "bad" {
		return errors.New("no credential")
	}
	s.provider, s.model, _ = strings.Cut(spec, "/")
	return nil
}

type fakeRegistry struct {
	clients []core.MCPClientOverview
}

func (r fakeRegistry) BaseTools() core.ToolSet { return nil }

func (r fakeRegistry) ExternalTools(context.Context, []string) (core.ToolSet, error) {
	return nil, nil
}

func (r fakeRegistry) Clients(context.Context) []core.MCPClientOverview { return r.clients }

type configurableRegistry struct {
	fakeRegistry
	added   map[string]string
	removed []string
}

func (r *configurableRegistry) AddClient(_ context.Context, id, target string) error {
	r.added[id] = target
	if id == "down" {
		return errors.New("connection refused")
	}
	return nil
}

func (r *configurableRegistry) RemoveClient(_ context.Context, id string) error {
	if _, ok := r.added[id]; !ok {
		return errors.New("unknown tool client")
	}
	r.removed = append(r.removed, id)
	return nil
}

func newTestRouter(t *testing.T) (*Router, *state.GlobalState, *session.FileStore) {
	t.Helper()
	sel := &fakeSelection{provider: "openrouter", model: "m1"}
	st := state.NewGlobalState(sel, core.ModeChat)
	store := session.NewFileStore(t.TempDir())
	reg := fakeRegistry{clients: []core.MCPClientOverview{
		{ID: "git", Name: "Git", Tools: []string{"log", "diff"}},
		{ID: "web", Name: "Web", Tools: []string{"search"}, NeedsAuth: true},
	}}
	return New(NewCommands(sel, st, reg, store)), st, store
}

func TestRouter_NotACommand(t *testing.T) {
	r, _, _ := newTestRouter(t)

	out, handled := r.Execute(context.Background(), "s1", "hello /mode")
	assert.False(t, handled)
	assert.Empty(t, out)
}

func TestRouter_UnknownCommand(t *testing.T) {
	r, _, _ := newTestRouter(t)

	out, handled := r.Execute(context.Background(), "s1", "/nope")
	assert.True(t, handled)
	assert.Contains(t, out, "Unknown command: /nope")
}

func TestRouter_ListCommandsSorted(t *testing.T) {
	r, _, _ := newTestRouter(t)

	var names []string
	for _, c := range r.ListCommands() {
		names = append(names, c.Name())
	}
	assert.Equal(t, []string{"help", "mcp", "memories", "mode", "model", "scope", "scratchpad", "tools"}, names)

	out, _ := r.Execute(context.Background(), "s1", "/help")
	assert.Contains(t, out, "`/scope`")
}

func TestModelCommand(t *testing.T) {
	r, _, _ := newTestRouter(t)
	ctx := context.Background()

	out, _ := r.Execute(ctx, "s1", "/model")
	assert.Contains(t, out, "openrouter")
	assert.Contains(t, out, "m1")

	out, _ = r.Execute(ctx, "s1", "/model anthropic/claude")
	assert.Contains(t, out, "`anthropic/claude`")

	out, _ = r.Execute(ctx, "s1", "/model bad")
	assert.True(t, strings.HasPrefix(out, "Error: failed to set model"))
}

func TestModeCommand(t *testing.T) {
	r, st, _ := newTestRouter(t)
	ctx := context.Background()

	out, _ := r.Execute(ctx, "s1", "/mode agent")
	assert.Contains(t, out, "Mode set to agent")
	assert.Equal(t, core.ModeAgent, st.Mode("s1"))

	out, _ = r.Execute(ctx, "s1", "/mode turbo")
	assert.Contains(t, out, "Error:")
	assert.Equal(t, core.ModeAgent, st.Mode("s1"))
}

func TestToolsCommand(t *testing.T) {
	r, st, _ := newTestRouter(t)
	ctx := context.Background()

	out, _ := r.Execute(ctx, "s1", "/tools web git")
	assert.Contains(t, out, "Tool clients: git, web")
	assert.Contains(t, out, "agent mode")
	assert.Equal(t, []string{"git", "web"}, st.SelectedClients("s1"))

	out, _ = r.Execute(ctx, "s1", "/tools jira")
	assert.Contains(t, out, `unknown tool client "jira"`)
	assert.Equal(t, []string{"git", "web"}, st.SelectedClients("s1"))

	r.Execute(ctx, "s1", "/tools none")
	assert.Empty(t, st.SelectedClients("s1"))
}

func TestMCPCommand(t *testing.T) {
	r, st, _ := newTestRouter(t)
	st.SelectClients("s1", []string{"git"})

	out, _ := r.Execute(context.Background(), "s1", "/mcp")
	assert.Contains(t, out, "**git** (Git): 2 tools [selected]")
	assert.Contains(t, out, "**web** (Web): 1 tools [needs authorization]")
}

func TestMCPCommand_AddRemove(t *testing.T) {
	sel := &fakeSelection{provider: "openrouter", model: "m1"}
	st := state.NewGlobalState(sel, core.ModeChat)
	reg := &configurableRegistry{added: map[string]string{}}
	r := New(NewCommands(sel, st, reg, session.NewFileStore(t.TempDir())))
	ctx := context.Background()

	out, _ := r.Execute(ctx, "s1", "/mcp add git uvx mcp-server-git")
	assert.Contains(t, out, "Connected **git**")
	assert.Equal(t, "uvx mcp-server-git", reg.added["git"])

	out, _ = r.Execute(ctx, "s1", "/mcp add down https://example.com/mcp")
	assert.Contains(t, out, "did not connect")
	assert.Contains(t, out, "connection refused")

	out, _ = r.Execute(ctx, "s1", "/mcp remove git")
	assert.Contains(t, out, "Removed **git**")
	assert.Equal(t, []string{"git"}, reg.removed)

	out, _ = r.Execute(ctx, "s1", "/mcp remove nope")
	assert.True(t, strings.HasPrefix(out, "Error:"))

	out, _ = r.Execute(ctx, "s1", "/mcp add git")
	assert.Contains(t, out, "/mcp add")
}

func TestMCPCommand_ReadOnly(t *testing.T) {
	r, _, _ := newTestRouter(t)

	out, _ := r.Execute(context.Background(), "s1", "/mcp add git uvx")
	assert.Contains(t, out, "read-only")
}

func TestScopeCommand(t *testing.T) {
	r, st, _ := newTestRouter(t)
	ctx := context.Background()

	r.Execute(ctx, "s1", "/scope /notes/2024/")
	assert.Equal(t, "notes/2024", st.Scope("s1"))

	out, _ := r.Execute(ctx, "s1", "/scope ../etc")
	assert.Contains(t, out, "invalid folder")
	assert.Equal(t, "notes/2024", st.Scope("s1"))

	r.Execute(ctx, "s1", "/scope none")
	assert.Empty(t, st.Scope("s1"))
}

func TestSessionCommands(t *testing.T) {
	r, _, store := newTestRouter(t)
	ctx := context.Background()

	out, _ := r.Execute(ctx, "s1", "/scratchpad")
	assert.Contains(t, out, "## Goals")

	out, _ = r.Execute(ctx, "s1", "/memories")
	assert.Contains(t, out, "No memories yet")

	require.NoError(t, store.SaveMemories("s1", []core.MemoryItem{
		{ID: "1", Type: core.MemoryPreference, Content: "Prefers British spelling", Tags: []string{"style"}},
	}))
	out, _ = r.Execute(ctx, "s1", "/memories")
	assert.Contains(t, out, "(preference) Prefers British spelling #style")
}

func TestParseScope(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"notes", "notes", true},
		{"/notes/2024/", "notes/2024", true},
		{"a//b/./c", "a/b/c", true},
		{"/", "", false},
		{"notes/../..", "", false},
	}
	for _, tt := range tests {
		got, err := ParseScope(tt.in)
		if !tt.ok {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got)
	}
}
