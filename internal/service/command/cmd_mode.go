package command

import (
	"context"
	"fmt"

	"github.com/sandevgo/quill/internal/core"
)

type ModeCommand struct {
	state     core.GlobalState
	formatter *ResponseFormatter
}

func NewModeCommand(state core.GlobalState) *ModeCommand {
	return &ModeCommand{state: state, formatter: NewResponseFormatter()}
}

func (c *ModeCommand) Name() string {
	return "mode"
}

func (c *ModeCommand) Description() string {
	return "Show or switch between chat and agent mode"
}

func (c *ModeCommand) Execute(ctx context.Context, sessionID string, args []string) (string, error) {
	if len(args) == 0 {
		return c.formatter.Combine(
			c.formatter.Label("Mode", string(c.state.Mode(sessionID))),
			c.formatter.Usage("/mode chat|agent"),
			c.formatter.Tip("agent mode adds the tools of the clients picked with /tools"),
		), nil
	}

	mode, err := core.ParseMode(args[0])
	if err != nil {
		return "", err
	}
	if err := c.state.SetMode(sessionID, mode); err != nil {
		return "", err
	}
	return c.formatter.Success(fmt.Sprintf("Mode set to %s", mode)), nil
}
