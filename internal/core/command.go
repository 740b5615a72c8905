package core

import "context"

// CommandRouter answers slash commands before a message reaches the agent.
// The bool from Execute is false when input is ordinary chat text.
type CommandRouter interface {
	Execute(ctx context.Context, sessionID, input string) (reply string, handled bool)
	ListCommands() []Command
}

// Command is one slash command. Replies are Markdown; args are the
// whitespace-separated words after the command name.
type Command interface {
	Name() string
	Description() string
	Execute(ctx context.Context, sessionID string, args []string) (string, error)
}
