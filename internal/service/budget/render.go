package budget

import (
	"fmt"
	"strings"

	"github.com/sandevgo/quill/internal/core"
)

// render concatenates the slices in their fixed order: summary, tool
// clients, documents.
func render(summary string, clients []core.MCPClientOverview, docs []core.DocSlice) string {
	var b strings.Builder

	if summary != "" {
		b.WriteString("## Conversation summary\n")
		b.WriteString(summary)
		b.WriteString("\n\n")
	}

	if len(clients) > 0 {
		b.WriteString("## Connected tool clients\n")
		for _, c := range clients {
			fmt.Fprintf(&b, "- %s (%s)", c.ID, c.Name)
			if c.NeedsAuth {
				b.WriteString(" [needs authorization]")
			}
			if len(c.Tools) > 0 {
				b.WriteString(": " + strings.Join(c.Tools, ", "))
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	if len(docs) > 0 {
		b.WriteString("## Relevant documents\n")
		for _, d := range docs {
			b.WriteString("### " + d.Path)
			if d.Title != "" {
				b.WriteString(" (" + d.Title + ")")
			}
			b.WriteString("\n")
			b.WriteString(strings.TrimSpace(d.Snippet))
			b.WriteString("\n\n")
		}
	}

	return strings.TrimRight(b.String(), "\n")
}
