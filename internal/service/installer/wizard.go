package installer

import (
	"context"
	"errors"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/sandevgo/quill/internal/config"
	"github.com/sandevgo/quill/internal/core"
)

var (
	titleStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("2")).Bold(true)
	itemStyle  = lipgloss.NewStyle().PaddingLeft(2)
	selStyle   = lipgloss.NewStyle().PaddingLeft(2).Foreground(lipgloss.Color("5"))
	hintStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true)
)

var ErrInterrupted = errors.New("init interrupted")

// Step is one screen of the wizard. Update returns a nil Step once the step
// has stored its value.
type Step interface {
	Init(state *InstallState) tea.Cmd
	Update(msg tea.Msg, state *InstallState, width, height int) (Step, tea.Cmd)
	View(state *InstallState) string
}

// skipper is implemented by steps that only apply to some answers.
type skipper interface {
	Skip(state *InstallState) bool
}

// ModelLister fetches the models of the provider chosen so far.
type ModelLister func(ctx context.Context, state *InstallState) ([]core.Model, error)

func isProvider(ids ...string) func(*InstallState) bool {
	return func(s *InstallState) bool {
		for _, id := range ids {
			if s.EnvVars["QUILL_PROVIDER"] == id {
				return true
			}
		}
		return false
	}
}

func not(f func(*InstallState) bool) func(*InstallState) bool {
	return func(s *InstallState) bool { return !f(s) }
}

func telegramEnabled(s *InstallState) bool {
	return s.EnvVars["ENABLE_TELEGRAM"] == "true"
}

// Steps returns the wizard flow.
func Steps(lister ModelLister) []Step {
	return []Step{
		&ChoiceStep{
			Title: "Select your model provider:",
			Choices: []Choice{
				{Label: "OpenRouter", Values: map[string]string{"QUILL_PROVIDER": config.ProviderOpenRouter}},
				{Label: "Anthropic", Values: map[string]string{"QUILL_PROVIDER": config.ProviderAnthropic}},
				{Label: "OpenAI", Values: map[string]string{"QUILL_PROVIDER": config.ProviderOpenAI}},
				{Label: "Ollama", Values: map[string]string{"QUILL_PROVIDER": config.ProviderOllama}},
				{Label: "Custom (OpenAI compatible)", Values: map[string]string{"QUILL_PROVIDER": config.ProviderCustom}},
			},
		},
		&InputStep{Title: "Ollama base URL", Key: "OLLAMA_BASE_URL", Placeholder: "http://localhost:11434", Optional: true,
			SkipIf: not(isProvider(config.ProviderOllama))},
		&InputStep{Title: "Custom base URL", Key: "CUSTOM_OPENAI_BASE_URL", Placeholder: "http://localhost:8080/v1",
			SkipIf: not(isProvider(config.ProviderCustom))},
		&InputStep{Title: "OpenRouter API key", Key: "OPENROUTER_API_KEY", Placeholder: "sk-or-v1-...", Secret: true,
			SkipIf: not(isProvider(config.ProviderOpenRouter))},
		&InputStep{Title: "Anthropic API key", Key: "ANTHROPIC_API_KEY", Placeholder: "sk-ant-...", Secret: true,
			SkipIf: not(isProvider(config.ProviderAnthropic))},
		&InputStep{Title: "OpenAI API key", Key: "OPENAI_API_KEY", Placeholder: "sk-...", Secret: true,
			SkipIf: not(isProvider(config.ProviderOpenAI))},
		&InputStep{Title: "Ollama API key", Key: "OLLAMA_API_KEY", Secret: true, Optional: true,
			SkipIf: not(isProvider(config.ProviderOllama))},
		&InputStep{Title: "API key", Key: "CUSTOM_OPENAI_API_KEY", Secret: true, Optional: true,
			SkipIf: not(isProvider(config.ProviderCustom))},
		NewModelStep(lister),
		&InputStep{Title: "Vault directory", Key: "QUILL_VAULT_PATH", Placeholder: "vault", Optional: true},
		&ChoiceStep{
			Title: "How will you talk to Quill?",
			Choices: []Choice{
				{Label: "Terminal", Values: map[string]string{"ENABLE_CLI": "true", "ENABLE_TELEGRAM": "false"}},
				{Label: "Telegram", Values: map[string]string{"ENABLE_CLI": "false", "ENABLE_TELEGRAM": "true"}},
				{Label: "Both", Values: map[string]string{"ENABLE_CLI": "true", "ENABLE_TELEGRAM": "true"}},
			},
		},
		&InputStep{Title: "Telegram bot token", Key: "TELEGRAM_TOKEN", Placeholder: "123456:ABC...", Secret: true,
			SkipIf: not(telegramEnabled)},
		&InputStep{Title: "Your Telegram user id", Key: "TELEGRAM_OWNER_ID", Placeholder: "123456789",
			Validate: validateInt, SkipIf: not(telegramEnabled)},
	}
}

type errMsg error

// model drives the steps in order.
type model struct {
	steps       []Step
	currentStep int
	state       *InstallState
	quitting    bool
	err         error
	width       int
	height      int
}

func newModel(steps []Step, state *InstallState) model {
	return model{steps: steps, state: state}
}

func (m model) Init() tea.Cmd {
	m.currentStep = m.nextActive(0)
	return m.initCurrent()
}

func (m model) initCurrent() tea.Cmd {
	if m.currentStep >= len(m.steps) {
		return tea.Quit
	}
	return m.steps[m.currentStep].Init(m.state)
}

func (m model) nextActive(from int) int {
	for i := from; i < len(m.steps); i++ {
		if s, ok := m.steps[i].(skipper); ok && s.Skip(m.state) {
			continue
		}
		return i
	}
	return len(m.steps)
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			m.quitting = true
			return m, tea.Quit
		}
	}

	// Init has no pointer receiver, so the first active step is found here.
	m.currentStep = m.nextActive(m.currentStep)
	if m.currentStep >= len(m.steps) {
		return m, tea.Quit
	}

	next, cmd := m.steps[m.currentStep].Update(msg, m.state, m.width, m.height)
	if next != nil {
		m.steps[m.currentStep] = next
		return m, cmd
	}

	m.currentStep = m.nextActive(m.currentStep + 1)
	return m, m.initCurrent()
}

func (m model) View() string {
	if m.quitting {
		return "Init cancelled.\n"
	}
	if m.err != nil {
		return errorStyle.Render(fmt.Sprintf("Error: %v", m.err)) + "\n\n(press ctrl+c to quit)\n"
	}
	if m.currentStep >= len(m.steps) {
		return "Configuration complete!\n"
	}
	return titleStyle.Render("Setting up Quill") + "\n\n" + m.steps[m.currentStep].View(m.state)
}

// RunWizard asks for the init values interactively.
func RunWizard(lister ModelLister) (*InstallState, error) {
	p := tea.NewProgram(newModel(Steps(lister), NewInstallState()), tea.WithAltScreen())
	m, err := p.Run()
	if err != nil {
		return nil, err
	}

	final := m.(model)
	if final.quitting {
		return nil, ErrInterrupted
	}
	return final.state, nil
}
