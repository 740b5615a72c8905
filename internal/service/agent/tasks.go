package agent

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/sandevgo/quill/internal/core"
	"github.com/sandevgo/quill/internal/service/memory"
	"github.com/sandevgo/quill/pkg/log"
)

const summaryPrefix = "Summary of the earlier conversation:\n"

type Refiner interface {
	Refine(ctx context.Context, draft string, history []core.Message, targetTokens int) (string, error)
}

type Enqueuer interface {
	Enqueue(sessionID, text string)
	EnqueueSection(sessionID, section, text string)
}

type MemoryExtractor interface {
	Run(ctx context.Context, sessionID string, turn memory.Turn) (int, error)
}

// Outcome is what a finished turn hands to the background tasks.
type Outcome struct {
	SessionID string
	// History is the full message list the context was built from.
	History []core.Message
	Context core.ContextBuildResult
	Result  core.TurnResult
	Steps   int
	// Persisted is set when History mirrors the stored session, which makes
	// compaction of the stored messages safe.
	Persisted bool
}

// Tasks wires the post-turn work. Nil collaborators switch their task off.
type Tasks struct {
	Dispatcher *Dispatcher
	Store      core.SessionStore
	Messages   core.MessagesRepository
	Refiner    Refiner
	Queue      Enqueuer
	Planner    *Planner
	Memory     MemoryExtractor
	// SummaryTokens is the refine target length.
	SummaryTokens int

	mu       sync.Mutex
	sessions map[string]*summaryLock
}

// summaryLock serializes summary work of one session and remembers the
// newest history row already folded into a summary.
type summaryLock struct {
	mu      sync.Mutex
	through int64
}

func (t *Tasks) summaryLock(sessionID string) *summaryLock {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.sessions == nil {
		t.sessions = make(map[string]*summaryLock)
	}
	l, ok := t.sessions[sessionID]
	if !ok {
		l = &summaryLock{}
		t.sessions[sessionID] = l
	}
	return l
}

func (t *Tasks) Dispatch(ctx context.Context, out Outcome) {
	if t == nil || t.Dispatcher == nil || out.SessionID == "" {
		return
	}

	if out.Context.Metrics.Summarized && t.Store != nil {
		t.Dispatcher.Go(ctx, "summary", func(ctx context.Context) error {
			return t.summary(ctx, out)
		})
	}

	userText := core.LatestUserText(out.History)
	changes := len(out.Result.Proposals) + len(out.Result.Creations)

	if t.Queue != nil && t.Planner != nil && ShouldPlan(userText, out.Steps, changes) {
		t.Dispatcher.Go(ctx, "planning", func(ctx context.Context) error {
			plan, err := t.Planner.Plan(ctx, out.Context.TrimmedMessages, out.Result.Text)
			if err != nil {
				return err
			}
			if plan.Plan != "" {
				t.Queue.EnqueueSection(out.SessionID, "Plan", plan.Plan)
			}
			if plan.Next != "" {
				t.Queue.EnqueueSection(out.SessionID, "Next", plan.Next)
			}
			return nil
		})
	}

	if t.Queue != nil && changes > 0 {
		t.Queue.Enqueue(out.SessionID, progressNote(out.Result))
	}

	turn := memory.Turn{UserText: userText, AssistantText: out.Result.Text, Changes: changes}
	if t.Memory != nil && memory.ShouldExtract(turn) {
		t.Dispatcher.Go(ctx, "memory", func(ctx context.Context) error {
			_, err := t.Memory.Run(ctx, out.SessionID, turn)
			return err
		})
	}
}

// summary persists the draft right away, then tries to improve it and
// finally folds the summarized messages into one stored message. Runs of one
// session are serialized; a run whose snapshot ends at or before an already
// folded row is dropped.
func (t *Tasks) summary(ctx context.Context, out Outcome) error {
	cut := len(out.History) - len(out.Context.TrimmedMessages)
	var through int64
	if cut > 0 && out.Persisted {
		through = out.History[cut-1].StoreID
	}

	lock := t.summaryLock(out.SessionID)
	lock.mu.Lock()
	defer lock.mu.Unlock()

	logger := log.FromCtx(ctx)
	if through > 0 && through <= lock.through {
		logger.Debug().Int64("through", through).Msg("summary snapshot is stale, skipping")
		return nil
	}

	text := out.Context.SummaryText
	if err := t.Store.WriteSummary(out.SessionID, text); err != nil {
		return fmt.Errorf("write summary: %w", err)
	}
	if cut <= 0 {
		return nil
	}

	if t.Refiner != nil {
		refined, err := t.Refiner.Refine(ctx, text, out.History[:cut], t.SummaryTokens)
		if err == nil {
			text = refined
			if err := t.Store.WriteSummary(out.SessionID, text); err != nil {
				return fmt.Errorf("write refined summary: %w", err)
			}
		}
	}

	if through <= 0 || t.Messages == nil {
		return nil
	}
	msg := core.Message{Role: core.RoleAssistant, Content: summaryPrefix + text}
	done, err := t.Messages.CompactMessages(ctx, out.SessionID, through, msg)
	if err != nil {
		return fmt.Errorf("compact history: %w", err)
	}
	lock.through = through
	if !done {
		logger.Debug().Int64("through", through).Msg("history already compacted past snapshot")
	}
	return nil
}

func progressNote(res core.TurnResult) string {
	var b strings.Builder
	for _, c := range res.Proposals {
		fmt.Fprintf(&b, "- proposed edit: %s\n", c.Path)
	}
	for _, c := range res.Creations {
		fmt.Fprintf(&b, "- proposed new document: %s\n", c.Path)
	}
	return strings.TrimRight(b.String(), "\n")
}
