package command

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/sandevgo/quill/internal/core"
)

var _ core.CommandRouter = (*Router)(nil)

type Router struct {
	commands map[string]core.Command
}

func New(commands []core.Command) *Router {
	c := &Router{
		commands: make(map[string]core.Command),
	}

	for _, cmd := range commands {
		c.commands[cmd.Name()] = cmd
	}
	c.commands["help"] = &helpCommand{router: c, formatter: NewResponseFormatter()}
	return c
}

// Execute runs input when it is a slash command. The bool reports whether
// input was handled.
func (c *Router) Execute(ctx context.Context, sessionID, input string) (string, bool) {
	input = strings.TrimSpace(input)
	if !strings.HasPrefix(input, "/") {
		return "", false
	}

	parts := strings.Fields(input)
	name := strings.ToLower(strings.TrimPrefix(parts[0], "/"))
	args := parts[1:]

	cmd, ok := c.commands[name]
	if !ok {
		return fmt.Sprintf("Unknown command: /%s (try /help)", name), true
	}

	result, err := cmd.Execute(ctx, sessionID, args)
	if err != nil {
		return fmt.Sprintf("Error: %v", err), true
	}
	return result, true
}

// ListCommands returns the commands sorted by name.
func (c *Router) ListCommands() []core.Command {
	res := make([]core.Command, 0, len(c.commands))
	for _, name := range slices.Sorted(maps.Keys(c.commands)) {
		res = append(res, c.commands[name])
	}
	return res
}

type helpCommand struct {
	router    *Router
	formatter *ResponseFormatter
}

func (c *helpCommand) Name() string {
	return "help"
}

func (c *helpCommand) Description() string {
	return "List available commands"
}

func (c *helpCommand) Execute(context.Context, string, []string) (string, error) {
	var items []string
	for _, cmd := range c.router.ListCommands() {
		items = append(items, fmt.Sprintf("`/%s` %s", cmd.Name(), cmd.Description()))
	}
	return c.formatter.Combine(c.formatter.Info("Commands"), c.formatter.List(items)), nil
}
