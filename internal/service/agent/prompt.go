package agent

import (
	"context"
	"os"
	"strings"

	"github.com/sandevgo/quill/internal/core"
	"github.com/sandevgo/quill/pkg/log"
)

const defaultPersona = `You are Quill, a writing assistant working inside the user's document vault.
Ground your answers in the vault: search and read documents before you make claims about them.
You never modify files yourself. Use propose_edit to suggest changes to an existing document
and create_doc to suggest a new one; the user decides whether to apply them.`

const chatInstructions = `Mode: chat. Only the vault tools are available.`

const agentInstructions = `Mode: agent. Besides the vault tools you may use the tools of the connected clients.
Work step by step and call tools until you have what you need.`

const answerInstructions = `Think and call tools freely. When you are ready to reply, write the reply for the user
inside a single <finalAnswer>...</finalAnswer> block. Text outside the block is not shown as the answer.`

// Prompts builds the system message of a turn. A SYSTEM.md file in the
// runtime directory replaces the default persona.
type Prompts struct {
	cfg core.PromptConfig
}

func NewPrompts(cfg core.PromptConfig) *Prompts {
	return &Prompts{cfg: cfg}
}

func (p *Prompts) persona(ctx context.Context) string {
	if p == nil || p.cfg == nil {
		return defaultPersona
	}

	content, err := os.ReadFile(p.cfg.GetSystemPath())
	if err != nil {
		if !os.IsNotExist(err) {
			log.FromCtx(ctx).Warn().Err(err).Msg("failed to read system prompt, using default")
		}
		return defaultPersona
	}
	if s := strings.TrimSpace(string(content)); s != "" {
		return s
	}
	return defaultPersona
}

// System returns the system message content. The context augment comes first
// and the mode prompt is always kept after it.
func (p *Prompts) System(ctx context.Context, mode core.Mode, augment string) string {
	instructions := chatInstructions
	if mode == core.ModeAgent {
		instructions = agentInstructions
	}

	parts := make([]string, 0, 4)
	if augment = strings.TrimSpace(augment); augment != "" {
		parts = append(parts, augment)
	}
	parts = append(parts, p.persona(ctx), instructions, answerInstructions)
	return strings.Join(parts, "\n\n")
}
