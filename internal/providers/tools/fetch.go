package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/inbucket/html2text"
	"github.com/sandevgo/quill/internal/core"
	"github.com/sandevgo/quill/pkg/retry"
)

const (
	maxResponseSize     = 1 << 20
	defaultFetchTimeout = 15 * time.Second
)

const fetchURLSchema = `
{
  "type": "object",
  "properties": {
    "url": { "type": "string", "description": "The URL to fetch" }
  },
  "required": ["url"]
}
`

type Fetch struct {
	client  *http.Client
	retrier *retry.Retrier
}

func NewFetchWithTimeout(timeout time.Duration, retryCfg *retry.Config) *Fetch {
	if retryCfg == nil {
		retryCfg = retry.NewDefaultConfig()
	}
	return &Fetch{
		client:  &http.Client{Timeout: timeout},
		retrier: retry.NewRetrier(retryCfg),
	}
}

func NewFetch() *Fetch {
	return NewFetchWithTimeout(defaultFetchTimeout, nil)
}

// FetchURL downloads a page and returns it as plain text. HTML is converted,
// anything else is returned as is, both capped at maxResponseSize.
func (f *Fetch) FetchURL(ctx context.Context, args json.RawMessage) (string, error) {
	var input struct {
		URL string `json:"url"`
	}
	if err := json.Unmarshal(args, &input); err != nil {
		return "", fmt.Errorf("invalid arguments: %w", err)
	}

	var body string
	err := f.retrier.Do(ctx, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, input.URL, nil)
		if err != nil {
			return retry.Permanent(fmt.Errorf("failed to create request: %w", err))
		}
		req.Header.Set("User-Agent", core.QuillUserAgent)

		resp, err := f.client.Do(req)
		if err != nil {
			return fmt.Errorf("failed to fetch url: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 400 {
			err := fmt.Errorf("HTTP %d: %s", resp.StatusCode, resp.Status)
			if resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
				return retry.Permanent(err)
			}
			return err
		}

		limited := io.LimitReader(resp.Body, maxResponseSize)
		if !strings.Contains(resp.Header.Get("Content-Type"), "html") {
			data, err := io.ReadAll(limited)
			if err != nil {
				return fmt.Errorf("failed to read body: %w", err)
			}
			body = string(data)
			return nil
		}

		body, err = html2text.FromReader(limited, html2text.Options{PrettyTables: true})
		if err != nil {
			return fmt.Errorf("failed to read body: %w", err)
		}
		return nil
	})
	if err != nil {
		return "", err
	}

	return body, nil
}

func (f *Fetch) Tools() core.ToolSet {
	return core.ToolSet{
		"fetch_url": {Description: "Fetch content from a URL (HTTP GET)", Schema: json.RawMessage(fetchURLSchema), Execute: f.FetchURL},
	}
}
