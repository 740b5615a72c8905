package srv

import (
	"context"
	"io"
)

// cleanupService runs a function on shutdown and nothing on start.
type cleanupService struct {
	cleanup func() error
}

func (c *cleanupService) Start(ctx context.Context) error {
	return nil
}

func (c *cleanupService) Shutdown(ctx context.Context) error {
	if c.cleanup != nil {
		return c.cleanup()
	}
	return nil
}

func NewCleanup(fn func() error) Service {
	return &cleanupService{cleanup: fn}
}

// NewCloser adapts an io.Closer such as a database handle.
func NewCloser(c io.Closer) Service {
	return NewCleanup(c.Close)
}
