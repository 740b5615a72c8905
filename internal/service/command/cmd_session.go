package command

import (
	"context"
	"fmt"
	"strings"

	"github.com/sandevgo/quill/internal/core"
)

type scratchpadReader interface {
	Scratchpad(sessionID string) (string, error)
}

type ScratchpadCommand struct {
	store     scratchpadReader
	formatter *ResponseFormatter
}

func NewScratchpadCommand(store scratchpadReader) *ScratchpadCommand {
	return &ScratchpadCommand{store: store, formatter: NewResponseFormatter()}
}

func (c *ScratchpadCommand) Name() string {
	return "scratchpad"
}

func (c *ScratchpadCommand) Description() string {
	return "Show the session scratchpad"
}

func (c *ScratchpadCommand) Execute(ctx context.Context, sessionID string, args []string) (string, error) {
	content, err := c.store.Scratchpad(sessionID)
	if err != nil {
		return "", fmt.Errorf("failed to read scratchpad: %w", err)
	}
	return c.formatter.Code("markdown", content), nil
}

type memoryLoader interface {
	LoadMemories(sessionID string) ([]core.MemoryItem, error)
}

type MemoriesCommand struct {
	store     memoryLoader
	formatter *ResponseFormatter
}

func NewMemoriesCommand(store memoryLoader) *MemoriesCommand {
	return &MemoriesCommand{store: store, formatter: NewResponseFormatter()}
}

func (c *MemoriesCommand) Name() string {
	return "memories"
}

func (c *MemoriesCommand) Description() string {
	return "List what was remembered in this session"
}

func (c *MemoriesCommand) Execute(ctx context.Context, sessionID string, args []string) (string, error) {
	items, err := c.store.LoadMemories(sessionID)
	if err != nil {
		return "", fmt.Errorf("failed to load memories: %w", err)
	}
	if len(items) == 0 {
		return c.formatter.Info("No memories yet"), nil
	}

	lines := make([]string, 0, len(items))
	for _, m := range items {
		line := fmt.Sprintf("(%s) %s", m.Type, m.Content)
		if len(m.Tags) > 0 {
			line += " #" + strings.Join(m.Tags, " #")
		}
		lines = append(lines, line)
	}
	return c.formatter.Combine(
		c.formatter.Info(fmt.Sprintf("Memories (%d)", len(items))),
		c.formatter.List(lines),
	), nil
}
