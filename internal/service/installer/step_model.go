package installer

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
)

const listTimeout = 30 * time.Second

type item struct {
	id    string
	title string
	desc  string
}

func (i item) Title() string       { return i.title }
func (i item) Description() string { return i.desc }
func (i item) FilterValue() string { return i.id }

type modelsMsg []list.Item

// ModelStep lets the user pick QUILL_MODEL from the provider's catalogue.
// Esc keeps the default model.
type ModelStep struct {
	lister  ModelLister
	list    list.Model
	loading bool
	err     error
}

func NewModelStep(lister ModelLister) *ModelStep {
	l := list.New([]list.Item{}, list.NewDefaultDelegate(), 0, 0)
	l.Title = "Select a model"
	l.SetShowStatusBar(true)
	l.SetFilteringEnabled(true)
	l.Styles.Title = titleStyle

	return &ModelStep{lister: lister, list: l}
}

func (s *ModelStep) Skip(*InstallState) bool {
	return s.lister == nil
}

func (s *ModelStep) Init(state *InstallState) tea.Cmd {
	s.loading = true
	s.err = nil
	return s.fetch(state)
}

func (s *ModelStep) fetch(state *InstallState) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), listTimeout)
		defer cancel()

		models, err := s.lister(ctx, state)
		if err != nil {
			return errMsg(err)
		}

		items := make([]list.Item, 0, len(models))
		for _, m := range models {
			title := m.Name
			if title == "" {
				title = m.ID
			}
			desc := "ID: " + m.ID
			if m.ContextLength > 0 {
				desc += fmt.Sprintf(" | Context: %d", m.ContextLength)
			}
			items = append(items, item{id: m.ID, title: title, desc: desc})
		}
		return modelsMsg(items)
	}
}

func (s *ModelStep) Update(msg tea.Msg, state *InstallState, width, height int) (Step, tea.Cmd) {
	if width > 0 && height > 4 {
		s.list.SetSize(width, height-4)
	}

	switch msg := msg.(type) {
	case modelsMsg:
		s.loading = false
		return s, s.list.SetItems(msg)

	case errMsg:
		s.loading = false
		s.err = msg
		return s, nil

	case tea.KeyMsg:
		if s.err != nil || s.loading {
			switch msg.String() {
			case "esc":
				return nil, nil
			case "enter":
				if s.err != nil {
					return s, s.Init(state)
				}
			}
			return s, nil
		}

		if msg.String() == "enter" && s.list.FilterState() != list.Filtering {
			if i, ok := s.list.SelectedItem().(item); ok {
				state.Set("QUILL_MODEL", i.id)
				return nil, nil
			}
		}
	}

	var cmd tea.Cmd
	s.list, cmd = s.list.Update(msg)
	return s, cmd
}

func (s *ModelStep) View(*InstallState) string {
	if s.err != nil {
		return errorStyle.Render(fmt.Sprintf("Error fetching models: %v", s.err)) +
			"\n\nCheck the key and your connection.\n\n" +
			hintStyle.Render("(press enter to retry, esc to keep the default model)") + "\n"
	}
	if s.loading {
		return "Fetching models...\n\n" + hintStyle.Render("(press esc to keep the default model)") + "\n"
	}
	return s.list.View()
}
