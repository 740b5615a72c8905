package core

import (
	"errors"
	"fmt"
)

var (
	ErrNoProvider  = errors.New("no provider available")
	ErrUnknownTool = errors.New("unknown tool")
)

// ConfigurationError is returned before any model call when a turn cannot be served.
type ConfigurationError struct {
	Provider string
	Reason   string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("provider %q: %s", e.Provider, e.Reason)
}

// ProviderError wraps a failure of the model call itself.
type ProviderError struct {
	Provider string
	Model    string
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s/%s: %v", e.Provider, e.Model, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}
