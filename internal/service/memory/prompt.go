package memory

import (
	"fmt"
	"strings"

	"github.com/sandevgo/quill/internal/core"
)

const extractionSystemPrompt = "You are a memory extraction system. Output only valid JSON."

func buildExtractionPrompt(conversation string, existing []core.MemoryItem) string {
	var known strings.Builder
	for _, m := range existing {
		fmt.Fprintf(&known, "- (%s) %s\n", m.Type, m.Content)
	}
	if known.Len() == 0 {
		known.WriteString("none\n")
	}

	return fmt.Sprintf(
		`Extract at most %d durable memories from the conversation below.
Output format: a JSON array of objects {"type", "content", "tags"}.
Types: fact, preference, entity.
Rules:
1. Only information that stays true beyond this conversation.
2. Content must be self-contained (write "User" instead of "I" or "he").
3. Skip anything already known. Output [] when nothing qualifies.

Known memories:
%s
Conversation:
%s`,
		MaxCandidates, known.String(), conversation,
	)
}
