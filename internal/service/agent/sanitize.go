package agent

import (
	"context"

	"github.com/sandevgo/quill/internal/core"
	"github.com/sandevgo/quill/pkg/log"
)

// sanitizeToolCalls drops tool results that do not answer a call of the
// closest preceding assistant message. Trimming history can cut a tool
// exchange in half and providers reject such orphans.
func sanitizeToolCalls(ctx context.Context, msgs []core.Message) []core.Message {
	if len(msgs) == 0 {
		return nil
	}

	out := make([]core.Message, 0, len(msgs))
	pending := map[string]struct{}{}
	dropped := 0

	for _, m := range msgs {
		switch m.Role {
		case core.RoleAssistant:
			pending = make(map[string]struct{}, len(m.ToolCalls))
			for _, tc := range m.ToolCalls {
				pending[tc.ID] = struct{}{}
			}
		case core.RoleUser:
			pending = map[string]struct{}{}
		case core.RoleTool:
			if _, ok := pending[m.ToolCallID]; !ok {
				dropped++
				continue
			}
		}
		out = append(out, m)
	}

	if dropped > 0 {
		log.FromCtx(ctx).Debug().Int("dropped", dropped).Msg("removed orphaned tool results")
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
