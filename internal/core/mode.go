package core

import "fmt"

type Mode string

const (
	// ModeChat answers from context and base vault tools only.
	ModeChat Mode = "chat"
	// ModeAgent additionally enables tools of the selected MCP clients.
	ModeAgent Mode = "agent"
)

func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeChat, ModeAgent:
		return Mode(s), nil
	}
	return "", fmt.Errorf("unknown mode %q (want chat or agent)", s)
}
