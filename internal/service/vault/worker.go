package vault

import (
	"context"
	"sync"
	"time"

	"github.com/sandevgo/quill/pkg/log"
)

// Worker reindexes the vault at start and then on every interval tick.
type Worker struct {
	indexer  *Indexer
	interval time.Duration

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func NewWorker(indexer *Indexer, interval time.Duration) *Worker {
	return &Worker{indexer: indexer, interval: interval}
}

func (w *Worker) Start(ctx context.Context) error {
	ctx = log.WithComponent(ctx, "vault")
	logger := log.FromCtx(ctx)

	w.mu.Lock()
	ctx, w.cancel = context.WithCancel(ctx)
	done := make(chan struct{})
	w.done = done
	w.mu.Unlock()
	defer close(done)

	if _, err := w.indexer.Reindex(ctx); err != nil && ctx.Err() == nil {
		logger.Error().Err(err).Msg("initial vault index failed")
	}
	if w.interval <= 0 {
		<-ctx.Done()
		return nil
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, err := w.indexer.Reindex(ctx); err != nil && ctx.Err() == nil {
				logger.Error().Err(err).Msg("vault reindex failed")
			}
		}
	}
}

// Shutdown cancels a running index pass and waits for the loop to exit.
func (w *Worker) Shutdown(ctx context.Context) error {
	w.mu.Lock()
	cancel, done := w.cancel, w.done
	w.mu.Unlock()

	if cancel == nil {
		return nil
	}
	cancel()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
