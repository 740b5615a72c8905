package agent

import (
	"context"
	"fmt"
	"unicode/utf8"

	"github.com/sandevgo/quill/internal/core"
	"github.com/sandevgo/quill/pkg/log"
)

// ToolResult is one executed call. Content holds the full result for
// classification; Message carries the truncated copy sent back to the model.
type ToolResult struct {
	Name    string
	Content string
	Err     error
	Message core.Message
}

type Executor struct {
	tools core.ToolSet
}

func NewExecutor(tools core.ToolSet) *Executor {
	return &Executor{tools: tools}
}

// Execute runs the calls in order. Failures become error text for the model
// and never abort the turn.
func (e *Executor) Execute(ctx context.Context, toolCalls []core.ToolCall) []ToolResult {
	logger := log.FromCtx(ctx)

	results := make([]ToolResult, 0, len(toolCalls))
	for _, tc := range toolCalls {
		name := tc.Function.Name
		res, err := e.call(ctx, tc)
		content := res
		if err != nil {
			logger.Warn().Err(err).Str("tool", name).Msg("tool call failed")
			content = fmt.Sprintf("Error: %v", err)
		}

		results = append(results, ToolResult{
			Name:    name,
			Content: res,
			Err:     err,
			Message: core.Message{
				Role:       core.RoleTool,
				Content:    e.truncate(content),
				ToolCallID: tc.ID,
			},
		})
	}
	return results
}

func (e *Executor) call(ctx context.Context, tc core.ToolCall) (string, error) {
	spec, ok := e.tools[tc.Function.Name]
	if !ok || spec.Execute == nil {
		return "", fmt.Errorf("%w: %s", core.ErrUnknownTool, tc.Function.Name)
	}

	args := tc.Function.Arguments
	if args == "" {
		args = "{}"
	}
	return spec.Execute(ctx, []byte(args))
}

func (e *Executor) truncate(input string) string {
	const maxLen = 4000
	if len(input) <= maxLen {
		return input
	}

	head := input[:runeStart(input, 1000)]
	tail := input[runeStart(input, len(input)-(maxLen-1000)):]
	return fmt.Sprintf("%s\n\n... [TRUNCATED %d bytes] ...\n\n%s", head, len(input)-len(head)-len(tail), tail)
}

// runeStart moves i back to the first byte of the rune containing it.
func runeStart(s string, i int) int {
	for i > 0 && !utf8.RuneStart(s[i]) {
		i--
	}
	return i
}
