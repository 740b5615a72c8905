package command

import (
	"context"
	"fmt"
	"strings"

	"github.com/sandevgo/quill/internal/core"
)

type ToolsCommand struct {
	tools     core.ToolRegistry
	state     core.GlobalState
	formatter *ResponseFormatter
}

func NewToolsCommand(tools core.ToolRegistry, state core.GlobalState) *ToolsCommand {
	return &ToolsCommand{
		tools:     tools,
		state:     state,
		formatter: NewResponseFormatter(),
	}
}

func (c *ToolsCommand) Name() string {
	return "tools"
}

func (c *ToolsCommand) Description() string {
	return "Select the tool clients used in agent mode"
}

func (c *ToolsCommand) Execute(ctx context.Context, sessionID string, args []string) (string, error) {
	if len(args) == 0 {
		selected := c.state.SelectedClients(sessionID)
		value := "none"
		if len(selected) > 0 {
			value = strings.Join(selected, ", ")
		}
		return c.formatter.Combine(
			c.formatter.Label("Selected", value),
			c.formatter.Usage("/tools <id>... | /tools none"),
		), nil
	}

	if len(args) == 1 && args[0] == "none" {
		c.state.SelectClients(sessionID, nil)
		return c.formatter.Success("Tool clients cleared"), nil
	}

	known := make(map[string]struct{})
	for _, cl := range c.tools.Clients(ctx) {
		known[cl.ID] = struct{}{}
	}
	for _, id := range args {
		if _, ok := known[id]; !ok {
			return "", fmt.Errorf("unknown tool client %q (see /mcp)", id)
		}
	}

	c.state.SelectClients(sessionID, args)
	reply := c.formatter.Success("Tool clients: " + strings.Join(c.state.SelectedClients(sessionID), ", "))
	if c.state.Mode(sessionID) != core.ModeAgent {
		reply = c.formatter.Combine(reply, c.formatter.Warning("they are only used in agent mode (/mode agent)"))
	}
	return reply, nil
}
