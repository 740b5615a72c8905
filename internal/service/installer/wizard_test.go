package installer

import (
	"context"
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sandevgo/quill/internal/core"
)

var (
	enter = tea.KeyMsg{Type: tea.KeyEnter}
	down  = tea.KeyMsg{Type: tea.KeyDown}
	esc   = tea.KeyMsg{Type: tea.KeyEsc}
)

func typed(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// drive feeds msgs to the wizard. Model fetches are resolved inline; other
// commands (cursor blinks) are dropped.
func drive(m model, msgs ...tea.Msg) model {
	for _, msg := range msgs {
		next, cmd := m.Update(msg)
		m = next.(model)
		if cmd == nil || m.currentStep >= len(m.steps) {
			continue
		}
		if _, ok := m.steps[m.currentStep].(*ModelStep); !ok {
			continue
		}
		switch res := cmd().(type) {
		case modelsMsg, errMsg:
			next, _ = m.Update(res)
			m = next.(model)
		}
	}
	return m
}

func TestWizard_TelegramFlow(t *testing.T) {
	var provider string
	lister := func(_ context.Context, s *InstallState) ([]core.Model, error) {
		provider = s.EnvVars["QUILL_PROVIDER"]
		return []core.Model{{ID: "model-a", Name: "Model A", ContextLength: 8000}}, nil
	}

	m := newModel(Steps(lister), NewInstallState())
	m.Init()
	m = drive(m,
		enter,                  // OpenRouter
		typed("or-key"), enter, // API key
		enter,                  // model-a
		enter,                  // default vault
		down, enter,            // Telegram
		enter,                  // empty token is rejected
		typed("tok"), enter,
		typed("x"), enter, // not a number
	)

	require.Less(t, m.currentStep, len(m.steps))
	assert.Contains(t, m.View(), "is not a number")

	m = drive(m, tea.KeyMsg{Type: tea.KeyBackspace}, typed("42"), enter)

	assert.Equal(t, len(m.steps), m.currentStep)
	assert.Equal(t, "openrouter", provider)
	assert.Equal(t, map[string]string{
		"QUILL_PROVIDER":     "openrouter",
		"OPENROUTER_API_KEY": "or-key",
		"QUILL_MODEL":        "model-a",
		"ENABLE_CLI":         "false",
		"ENABLE_TELEGRAM":    "true",
		"TELEGRAM_TOKEN":     "tok",
		"TELEGRAM_OWNER_ID":  "42",
	}, m.state.EnvVars)
}

func TestWizard_ModelErrorKeepsDefault(t *testing.T) {
	lister := func(context.Context, *InstallState) ([]core.Model, error) {
		return nil, errors.New("unauthorized")
	}

	m := newModel(Steps(lister), NewInstallState())
	m.Init()
	m = drive(m, down, enter, typed("ant"), enter)

	require.IsType(t, &ModelStep{}, m.steps[m.currentStep])
	assert.Contains(t, m.View(), "unauthorized")

	m = drive(m, esc, typed("/srv/notes"), enter, enter)

	assert.Equal(t, len(m.steps), m.currentStep)
	assert.Equal(t, "anthropic", m.state.EnvVars["QUILL_PROVIDER"])
	assert.Equal(t, "ant", m.state.EnvVars["ANTHROPIC_API_KEY"])
	assert.Equal(t, "/srv/notes", m.state.EnvVars["QUILL_VAULT_PATH"])
	assert.Equal(t, "true", m.state.EnvVars["ENABLE_CLI"])
	assert.NotContains(t, m.state.EnvVars, "QUILL_MODEL")
}

func TestWizard_CtrlC(t *testing.T) {
	m := newModel(Steps(nil), NewInstallState())
	m = drive(m, tea.KeyMsg{Type: tea.KeyCtrlC})

	assert.True(t, m.quitting)
	assert.Equal(t, "Init cancelled.\n", m.View())
}
