package command

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/sandevgo/quill/internal/core"
)

type ScopeCommand struct {
	state     core.GlobalState
	formatter *ResponseFormatter
}

func NewScopeCommand(state core.GlobalState) *ScopeCommand {
	return &ScopeCommand{state: state, formatter: NewResponseFormatter()}
}

func (c *ScopeCommand) Name() string {
	return "scope"
}

func (c *ScopeCommand) Description() string {
	return "Restrict document retrieval to a vault folder"
}

func (c *ScopeCommand) Execute(ctx context.Context, sessionID string, args []string) (string, error) {
	if len(args) == 0 {
		scope := c.state.Scope(sessionID)
		if scope == "" {
			scope = "whole vault"
		}
		return c.formatter.Combine(
			c.formatter.Label("Scope", scope),
			c.formatter.Usage("/scope <folder> | /scope none"),
		), nil
	}

	if args[0] == "none" {
		c.state.SetScope(sessionID, "")
		return c.formatter.Success("Scope cleared"), nil
	}

	scope, err := ParseScope(args[0])
	if err != nil {
		return "", err
	}
	c.state.SetScope(sessionID, scope)
	return c.formatter.Success("Scope set to " + scope), nil
}

// ParseScope turns a user-given folder into a vault-relative prefix.
func ParseScope(arg string) (string, error) {
	scope := strings.Trim(path.Clean("/"+arg), "/")
	if scope == "" || strings.Contains(arg, "..") {
		return "", fmt.Errorf("invalid folder %q", arg)
	}
	return scope, nil
}
