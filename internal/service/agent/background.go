package agent

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sandevgo/quill/pkg/log"
	"github.com/sandevgo/quill/pkg/srv"
)

const DefaultTaskTimeout = 2 * time.Minute

var _ srv.Service = (*Dispatcher)(nil)

// Dispatcher runs fire-and-forget work after a turn. Tasks outlive the
// turn's context and their errors are only logged.
type Dispatcher struct {
	timeout time.Duration
	wg      sync.WaitGroup
}

func NewDispatcher(timeout time.Duration) *Dispatcher {
	if timeout <= 0 {
		timeout = DefaultTaskTimeout
	}
	return &Dispatcher{timeout: timeout}
}

func (d *Dispatcher) Go(ctx context.Context, name string, task func(ctx context.Context) error) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.timeout)
	logger := log.FromCtx(ctx).With().Str("task", name).Logger()

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		defer cancel()
		defer func() {
			if r := recover(); r != nil {
				logger.Error().Str("panic", fmt.Sprint(r)).Msg("background task panicked")
			}
		}()

		if err := task(ctx); err != nil {
			logger.Warn().Err(err).Msg("background task failed")
			return
		}
		logger.Debug().Msg("background task done")
	}()
}

// Wait blocks until every dispatched task has returned or ctx ends.
func (d *Dispatcher) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *Dispatcher) Start(ctx context.Context) error {
	return nil
}

func (d *Dispatcher) Shutdown(ctx context.Context) error {
	return d.Wait(ctx)
}
