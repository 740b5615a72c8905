package installer

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
)

type Choice struct {
	Label  string
	Values map[string]string
}

// ChoiceStep stores the values of the selected choice.
type ChoiceStep struct {
	Title   string
	Choices []Choice
	cursor  int
}

func (s *ChoiceStep) Init(*InstallState) tea.Cmd { return nil }

func (s *ChoiceStep) Update(msg tea.Msg, state *InstallState, _, _ int) (Step, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return s, nil
	}

	switch key.String() {
	case "up", "k":
		if s.cursor > 0 {
			s.cursor--
		}
	case "down", "j":
		if s.cursor < len(s.Choices)-1 {
			s.cursor++
		}
	case "enter":
		for k, v := range s.Choices[s.cursor].Values {
			state.Set(k, v)
		}
		return nil, nil
	}
	return s, nil
}

func (s *ChoiceStep) View(*InstallState) string {
	var b strings.Builder
	b.WriteString(s.Title + "\n\n")
	for i, choice := range s.Choices {
		if s.cursor == i {
			b.WriteString(selStyle.Render(fmt.Sprintf("> %s", choice.Label)) + "\n")
		} else {
			b.WriteString(itemStyle.Render(fmt.Sprintf("  %s", choice.Label)) + "\n")
		}
	}
	b.WriteString(hintStyle.Render("\n(press ctrl+c to quit)") + "\n")
	return b.String()
}
