package installer

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

// InputStep stores one free-text value under Key.
type InputStep struct {
	Title       string
	Key         string
	Placeholder string
	Secret      bool
	Optional    bool
	Validate    func(string) error
	SkipIf      func(*InstallState) bool

	input textinput.Model
	err   error
}

func (s *InputStep) Skip(state *InstallState) bool {
	return s.SkipIf != nil && s.SkipIf(state)
}

func (s *InputStep) Init(state *InstallState) tea.Cmd {
	s.input = textinput.New()
	s.input.Placeholder = s.Placeholder
	s.input.CharLimit = 255
	s.input.Width = 40
	if s.Secret {
		s.input.EchoMode = textinput.EchoPassword
		s.input.EchoCharacter = '*'
	}
	s.input.SetValue(state.EnvVars[s.Key])
	s.input.Focus()
	return textinput.Blink
}

func (s *InputStep) Update(msg tea.Msg, state *InstallState, _, _ int) (Step, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok && key.String() == "enter" {
		value := strings.TrimSpace(s.input.Value())
		switch {
		case value == "" && !s.Optional:
			s.err = fmt.Errorf("%s is required", strings.ToLower(s.Title))
			return s, nil
		case value != "" && s.Validate != nil:
			if err := s.Validate(value); err != nil {
				s.err = err
				return s, nil
			}
		}
		state.Set(s.Key, value)
		return nil, nil
	}

	var cmd tea.Cmd
	s.input, cmd = s.input.Update(msg)
	return s, cmd
}

func (s *InputStep) View(*InstallState) string {
	hint := "(press enter to confirm)"
	if s.Optional {
		hint = "(optional, press enter to skip)"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s:\n\n%s\n\n", s.Title, s.input.View())
	if s.err != nil {
		b.WriteString(errorStyle.Render(s.err.Error()) + "\n\n")
	}
	b.WriteString(hintStyle.Render(hint) + "\n")
	return b.String()
}

func validateInt(v string) error {
	if _, err := strconv.ParseInt(v, 10, 64); err != nil {
		return fmt.Errorf("%q is not a number", v)
	}
	return nil
}
