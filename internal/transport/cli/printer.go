package cli

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/sandevgo/quill/internal/core"
	"github.com/sandevgo/quill/internal/service/agent"
	"github.com/sandevgo/quill/internal/service/ui"
)

// Printer writes one streamed turn to a terminal.
type Printer struct {
	out io.Writer
	// ShowThoughts prints reasoning and out-of-answer text dimmed.
	ShowThoughts bool

	mu      sync.Mutex
	inDelta bool
}

func NewPrinter(out io.Writer, showThoughts bool) *Printer {
	return &Printer{out: out, ShowThoughts: showThoughts}
}

func (p *Printer) Callbacks() agent.Callbacks {
	return agent.Callbacks{
		OnDelta: func(text string) {
			p.mu.Lock()
			defer p.mu.Unlock()
			p.inDelta = true
			fmt.Fprint(p.out, text)
		},
		OnThought: func(text string) {
			if !p.ShowThoughts {
				return
			}
			p.mu.Lock()
			defer p.mu.Unlock()
			fmt.Fprint(p.out, ui.ThoughtStyle.Render(text))
		},
		OnProgress: func(step core.StepProgress) {
			p.mu.Lock()
			defer p.mu.Unlock()
			p.breakLine()
			line := fmt.Sprintf("› step %d: %s (%d results)", step.Step, strings.Join(step.ToolCalls, ", "), step.Results)
			fmt.Fprintln(p.out, ui.ProgressStyle.Render(line))
		},
	}
}

// Finish ends the answer line and lists what the turn touched.
func (p *Printer) Finish(res core.TurnResult) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.breakLine()

	if len(res.Sources) > 0 {
		fmt.Fprintln(p.out, ui.LabelStyle.Render("Sources:"))
		for _, s := range res.Sources {
			fmt.Fprintf(p.out, "  - %s\n", s)
		}
	}
	p.changes("Proposed edits:", res.Proposals)
	p.changes("Proposed documents:", res.Creations)
}

func (p *Printer) Error(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.breakLine()
	fmt.Fprintln(p.out, ui.ErrorStyle.Render("Error: "+err.Error()))
}

func (p *Printer) changes(title string, changes []core.DocChange) {
	if len(changes) == 0 {
		return
	}
	fmt.Fprintln(p.out, ui.LabelStyle.Render(title))
	for _, c := range changes {
		fmt.Fprintf(p.out, "  - %s (%d bytes)\n", c.Path, len(c.Content))
	}
}

func (p *Printer) breakLine() {
	if p.inDelta {
		fmt.Fprintln(p.out)
		p.inDelta = false
	}
}
