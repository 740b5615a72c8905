package summary

import (
	"context"
	"errors"
	"testing"

	"github.com/sandevgo/quill/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProvider struct {
	reply   string
	err     error
	history []core.Message
}

func (f *fakeProvider) Chat(ctx context.Context, history []core.Message, tools []core.Tool) (core.Message, error) {
	f.history = history
	return core.Message{Role: core.RoleAssistant, Content: f.reply}, f.err
}

func (f *fakeProvider) ChatStream(ctx context.Context, history []core.Message, tools []core.Tool, onEvent func(core.StreamEvent)) (core.Message, error) {
	return f.Chat(ctx, history, tools)
}

type fakeResolver struct {
	provider *fakeProvider
	creds    map[string]bool
}

func (f *fakeResolver) Resolve(providerID, modelID string) (core.AIProvider, error) {
	if !f.creds[providerID] {
		return nil, &core.ConfigurationError{Provider: providerID, Reason: "no credential configured"}
	}
	return f.provider, nil
}

func (f *fakeResolver) HasCredential(providerID string) bool { return f.creds[providerID] }

type fixedSelection struct{ provider, model string }

func (s fixedSelection) Current() (string, string) { return s.provider, s.model }

func TestModel_Complete(t *testing.T) {
	p := &fakeProvider{reply: "  done \n"}
	m := NewModel(&fakeResolver{provider: p, creds: map[string]bool{"openai": true}}, fixedSelection{"openai", "gpt"})

	out, err := m.Complete(context.Background(), "sys", "usr")
	require.NoError(t, err)
	assert.Equal(t, "done", out)
	require.Len(t, p.history, 2)
	assert.Equal(t, core.RoleSystem, p.history[0].Role)
	assert.Equal(t, "usr", p.history[1].Content)

	p.err = errors.New("boom")
	_, err = m.Complete(context.Background(), "sys", "usr")
	var provErr *core.ProviderError
	require.ErrorAs(t, err, &provErr)
	assert.Equal(t, "gpt", provErr.Model)
}

func TestModel_NoProvider(t *testing.T) {
	tests := []struct {
		name string
		sel  fixedSelection
	}{
		{"missing credential", fixedSelection{"anthropic", "claude"}},
		{"no model", fixedSelection{"openai", ""}},
		{"no provider", fixedSelection{"", "gpt"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewModel(&fakeResolver{provider: &fakeProvider{}, creds: map[string]bool{"openai": true}}, tt.sel)
			_, err := m.Complete(context.Background(), "s", "u")
			assert.ErrorIs(t, err, core.ErrNoProvider)
		})
	}
}

type fakeCompleter struct {
	reply  string
	err    error
	system string
	user   string
}

func (f *fakeCompleter) Complete(ctx context.Context, system, user string) (string, error) {
	f.system, f.user = system, user
	return f.reply, f.err
}

func TestSummarizer(t *testing.T) {
	c := &fakeCompleter{reply: "user wants a go book outline"}
	s := NewSummarizer(c)
	history := []core.Message{
		{Role: core.RoleSystem, Content: "prompt"},
		{Role: core.RoleUser, Content: "outline a go book"},
		{Role: core.RoleAssistant, ToolCalls: []core.ToolCall{{ID: "1"}}},
		{Role: core.RoleTool, Content: `{"ok":true}`},
		{Role: core.RoleAssistant, Content: "sure"},
	}

	out, err := s.Summarize(context.Background(), history, 200)
	require.NoError(t, err)
	assert.Equal(t, "user wants a go book outline", out)
	assert.Contains(t, c.user, "at most 200 tokens")
	assert.Contains(t, c.user, "USER: outline a go book\nASSISTANT: sure\n")
	assert.NotContains(t, c.user, "prompt")

	_, err = s.Summarize(context.Background(), nil, 200)
	require.Error(t, err)

	c.err = core.ErrNoProvider
	_, err = s.Summarize(context.Background(), history, 200)
	assert.ErrorIs(t, err, core.ErrNoProvider)
}

func TestSummarizer_Refine(t *testing.T) {
	c := &fakeCompleter{reply: "better"}
	s := NewSummarizer(c)

	out, err := s.Refine(context.Background(), " draft ", []core.Message{{Role: core.RoleUser, Content: "hi"}}, 100)
	require.NoError(t, err)
	assert.Equal(t, "better", out)
	assert.Contains(t, c.user, "Draft summary:\ndraft\n")

	c.reply = ""
	_, err = s.Refine(context.Background(), "draft", nil, 100)
	require.Error(t, err)
}
