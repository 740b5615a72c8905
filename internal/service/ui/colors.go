package ui

import "github.com/charmbracelet/lipgloss"

// ANSI base colors keep the output readable on light and dark terminals.
var (
	TitleStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("6")).Bold(true).MarginBottom(1)

	UsageStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))

	DescStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))

	FlagStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))

	// ThoughtStyle dims model reasoning and text outside the final answer.
	ThoughtStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Italic(true)

	ProgressStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("4"))

	ErrorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true)

	LabelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("5")).Bold(true)
)
