package queue

import (
	"context"
	"sync"

	"github.com/sandevgo/quill/internal/core"
	"github.com/sandevgo/quill/pkg/log"
)

// Entry is one pending scratchpad write. Section empty means a timestamped append.
type Entry struct {
	SessionID string
	Section   string
	Text      string
}

// Writer performs the actual write of one entry.
type Writer func(ctx context.Context, e Entry) error

// SessionWriter writes entries to a session store.
func SessionWriter(store core.SessionStore) Writer {
	return func(ctx context.Context, e Entry) error {
		if e.Section != "" {
			return store.UpdateSection(e.SessionID, e.Section, e.Text)
		}
		return store.AppendTimestamped(e.SessionID, e.Text)
	}
}

// Queue serializes scratchpad writes in FIFO order. At most one drain pass
// runs at a time. A failed write ends the pass and its entry is dropped; the
// remaining entries are written by the pass the next Enqueue starts.
type Queue struct {
	write Writer
	ctx   context.Context

	mu       sync.Mutex
	items    []Entry
	draining bool
	idle     chan struct{}
}

func New(write Writer) *Queue {
	idle := make(chan struct{})
	close(idle)
	return &Queue{
		write: write,
		ctx:   context.Background(),
		idle:  idle,
	}
}

func (q *Queue) Start(ctx context.Context) error {
	q.mu.Lock()
	q.ctx = context.WithoutCancel(ctx)
	q.mu.Unlock()
	return nil
}

// Shutdown waits for the running pass. Entries left behind a failure stay queued.
func (q *Queue) Shutdown(ctx context.Context) error {
	return q.Wait(ctx)
}

func (q *Queue) Enqueue(sessionID, text string) {
	q.push(Entry{SessionID: sessionID, Text: text})
}

func (q *Queue) EnqueueSection(sessionID, section, text string) {
	q.push(Entry{SessionID: sessionID, Section: section, Text: text})
}

func (q *Queue) push(e Entry) {
	q.mu.Lock()
	q.items = append(q.items, e)
	q.mu.Unlock()

	q.Drain()
}

// Drain starts a pass unless one is running or nothing is queued.
func (q *Queue) Drain() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.draining || len(q.items) == 0 {
		return
	}
	q.draining = true
	q.idle = make(chan struct{})
	go q.run(q.ctx, q.idle)
}

func (q *Queue) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	for {
		q.mu.Lock()
		if len(q.items) == 0 {
			q.draining = false
			q.mu.Unlock()
			return
		}
		e := q.items[0]
		q.items[0] = Entry{}
		q.items = q.items[1:]
		q.mu.Unlock()

		if err := q.write(ctx, e); err != nil {
			log.FromCtx(ctx).Error().Err(err).
				Str("session", e.SessionID).
				Str("section", e.Section).
				Msg("scratchpad write failed, entry dropped")

			q.mu.Lock()
			q.draining = false
			q.mu.Unlock()
			return
		}
	}
}

// Wait blocks until no pass is running.
func (q *Queue) Wait(ctx context.Context) error {
	q.mu.Lock()
	idle := q.idle
	q.mu.Unlock()

	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Len returns the number of entries not yet taken by a pass.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
