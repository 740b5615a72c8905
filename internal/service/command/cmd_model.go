package command

import (
	"context"
	"fmt"

	"github.com/sandevgo/quill/internal/core"
)

type selection interface {
	Current() (provider, model string)
}

type ModelCommand struct {
	selection selection
	state     core.GlobalState
	formatter *ResponseFormatter
}

func NewModelCommand(selection selection, state core.GlobalState) *ModelCommand {
	return &ModelCommand{
		selection: selection,
		state:     state,
		formatter: NewResponseFormatter(),
	}
}

func (c *ModelCommand) Name() string {
	return "model"
}

func (c *ModelCommand) Description() string {
	return "Show or change the default model"
}

func (c *ModelCommand) Execute(ctx context.Context, sessionID string, args []string) (string, error) {
	provider, model := c.selection.Current()
	if len(args) == 0 {
		return c.formatter.Combine(
			c.formatter.Info("Current Model"),
			c.formatter.Label("Provider", provider),
			c.formatter.Label("Model", model),
			c.formatter.Usage("/model [provider/]model"),
			c.formatter.Examples([]string{
				"/model openai/gpt-4o",
				"/model anthropic/claude-sonnet-4-5",
				"/model openrouter/google/gemini-2.5-flash",
			}),
		), nil
	}

	if err := c.state.ChangeModel(ctx, args[0]); err != nil {
		return "", fmt.Errorf("failed to set model: %w", err)
	}

	provider, model = c.selection.Current()
	return c.formatter.Success(fmt.Sprintf("Model changed to: `%s/%s`", provider, model)), nil
}
