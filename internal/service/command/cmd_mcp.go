package command

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/sandevgo/quill/internal/core"
)

type MCPCommand struct {
	tools     core.ToolRegistry
	state     core.GlobalState
	formatter *ResponseFormatter
}

func NewMCPCommand(tools core.ToolRegistry, state core.GlobalState) *MCPCommand {
	return &MCPCommand{
		tools:     tools,
		state:     state,
		formatter: NewResponseFormatter(),
	}
}

func (c *MCPCommand) Name() string {
	return "mcp"
}

func (c *MCPCommand) Description() string {
	return "Show, add or remove tool clients"
}

func (c *MCPCommand) Execute(ctx context.Context, sessionID string, args []string) (string, error) {
	if len(args) > 0 {
		switch strings.ToLower(args[0]) {
		case "add":
			return c.add(ctx, args[1:])
		case "remove", "rm":
			return c.remove(ctx, args[1:])
		}
		return c.usage(), nil
	}
	return c.overview(ctx, sessionID), nil
}

func (c *MCPCommand) configurator() (core.ToolClientConfigurator, error) {
	cfg, ok := c.tools.(core.ToolClientConfigurator)
	if !ok {
		return nil, errors.New("tool clients are read-only here")
	}
	return cfg, nil
}

func (c *MCPCommand) add(ctx context.Context, args []string) (string, error) {
	if len(args) < 2 {
		return c.usage(), nil
	}
	cfg, err := c.configurator()
	if err != nil {
		return "", err
	}

	id := args[0]
	if err := cfg.AddClient(ctx, id, strings.Join(args[1:], " ")); err != nil {
		return c.formatter.Combine(
			c.formatter.Warning(fmt.Sprintf("Saved **%s**, but it did not connect", id)),
			c.formatter.Label("Reason", err.Error()),
		), nil
	}
	return c.formatter.Success(fmt.Sprintf("Connected **%s**", id)), nil
}

func (c *MCPCommand) remove(ctx context.Context, args []string) (string, error) {
	if len(args) != 1 {
		return c.usage(), nil
	}
	cfg, err := c.configurator()
	if err != nil {
		return "", err
	}
	if err := cfg.RemoveClient(ctx, args[0]); err != nil {
		return "", err
	}
	return c.formatter.Success(fmt.Sprintf("Removed **%s**", args[0])), nil
}

func (c *MCPCommand) usage() string {
	return c.formatter.Combine(
		c.formatter.Usage("/mcp [add <id> <url|command...> | remove <id>]"),
		c.formatter.Examples([]string{
			"/mcp add git uvx mcp-server-git",
			"/mcp add search https://example.com/mcp",
			"/mcp remove git",
		}),
	)
}

func (c *MCPCommand) overview(ctx context.Context, sessionID string) string {
	clients := c.tools.Clients(ctx)
	if len(clients) == 0 {
		return c.formatter.Combine(
			c.formatter.Info("Tool Clients"),
			c.formatter.Label("Status", "no clients configured"),
			c.formatter.Tip("add one with /mcp add <id> <url|command...>"),
		)
	}

	selected := c.state.SelectedClients(sessionID)
	items := make([]string, 0, len(clients))
	for _, cl := range clients {
		var flags []string
		if slices.Contains(selected, cl.ID) {
			flags = append(flags, "selected")
		}
		if cl.NeedsAuth {
			flags = append(flags, "needs authorization")
		}

		line := fmt.Sprintf("**%s** (%s): %d tools", cl.ID, cl.Name, len(cl.Tools))
		if len(flags) > 0 {
			line += " [" + strings.Join(flags, ", ") + "]"
		}
		items = append(items, line)
	}

	return c.formatter.Combine(
		c.formatter.Info("Tool Clients"),
		c.formatter.List(items),
		c.formatter.Tip("select clients with /tools <id>... and switch to /mode agent"),
	)
}
