package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sandevgo/quill/pkg/retry"
)

// StatusError is a non-2xx reply from a provider API.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("http %d: %s", e.StatusCode, e.Body)
}

func (e *StatusError) Retryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

type baseProvider struct {
	client  *http.Client
	retrier *retry.Retrier
	baseURL string
	apiKey  string
	model   string
}

func newBaseProvider(baseURL, apiKey, model string) baseProvider {
	return baseProvider{
		// No overall timeout: streams are bounded by the caller's context.
		client: &http.Client{
			Transport: &http.Transport{
				Proxy:                 http.ProxyFromEnvironment,
				ResponseHeaderTimeout: 120 * time.Second,
			},
		},
		retrier: retry.NewRetrier(&retry.Config{
			MaxRetries:    3,
			BackoffFactor: 2,
			InitialDelay:  500 * time.Millisecond,
			MaxDelay:      8 * time.Second,
			Jitter:        100 * time.Millisecond,
		}),
		baseURL: baseURL,
		apiKey:  apiKey,
		model:   model,
	}
}

func (b *baseProvider) doRequest(ctx context.Context, method, path string, body any, headers map[string]string) (*http.Response, error) {
	var data []byte
	if body != nil {
		var err error
		if data, err = json.Marshal(body); err != nil {
			return nil, fmt.Errorf("marshal: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, b.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	for k, v := range headers {
		req.Header.Set(k, v)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request: %w", err)
	}
	return resp, nil
}

// send performs the request with retries on transport errors, 429 and 5xx.
// It only returns responses with status 200; the caller closes the body.
// Nothing is retried once a body has been handed back, so streamed output
// is never duplicated.
func (b *baseProvider) send(ctx context.Context, method, path string, body any, headers map[string]string) (*http.Response, error) {
	var resp *http.Response
	err := b.retrier.Do(ctx, func() error {
		r, err := b.doRequest(ctx, method, path, body, headers)
		if err != nil {
			if ctx.Err() != nil {
				return retry.Permanent(err)
			}
			return err
		}
		if r.StatusCode == http.StatusOK {
			resp = r
			return nil
		}

		data, _ := io.ReadAll(io.LimitReader(r.Body, 64<<10))
		r.Body.Close()
		statusErr := &StatusError{StatusCode: r.StatusCode, Body: string(data)}
		if statusErr.Retryable() {
			return statusErr
		}
		return retry.Permanent(statusErr)
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}
