package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/mark3labs/mcp-go/client"
	mcpproto "github.com/mark3labs/mcp-go/mcp"
	"github.com/sandevgo/quill/internal/core"
)

// ManagedClient is a connected tool client. Close is idempotent.
type ManagedClient struct {
	*client.Client
	name string

	mu     sync.RWMutex
	closed bool
}

func (mc *ManagedClient) Name() string {
	return mc.name
}

func (mc *ManagedClient) Close() error {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	if mc.closed {
		return nil
	}
	mc.closed = true
	if mc.Client == nil {
		return nil
	}
	return mc.Client.Close()
}

func (mc *ManagedClient) IsClosed() bool {
	mc.mu.RLock()
	defer mc.mu.RUnlock()
	return mc.closed
}

// Definitions lists the server's tools in the shape sent to the model.
func (mc *ManagedClient) Definitions(ctx context.Context) ([]core.Tool, error) {
	resp, err := mc.ListTools(ctx, mcpproto.ListToolsRequest{})
	if err != nil {
		return nil, err
	}

	tools := make([]core.Tool, 0, len(resp.Tools))
	for _, t := range resp.Tools {
		schema, err := json.Marshal(t.InputSchema)
		if err != nil {
			return nil, fmt.Errorf("schema of %s: %w", t.Name, err)
		}
		tools = append(tools, core.Tool{
			Type: "function",
			Function: core.Function{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  schema,
			},
		})
	}
	return tools, nil
}

// Call runs one tool and returns its text content, one block per line.
// A result flagged as an error becomes a Go error carrying that text.
func (mc *ManagedClient) Call(ctx context.Context, name string, args json.RawMessage) (string, error) {
	argsMap := make(map[string]any)
	if len(strings.TrimSpace(string(args))) > 0 {
		if err := json.Unmarshal(args, &argsMap); err != nil {
			return "", fmt.Errorf("invalid json arguments: %w", err)
		}
	}

	req := mcpproto.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = argsMap

	res, err := mc.CallTool(ctx, req)
	if err != nil {
		return "", err
	}

	var out strings.Builder
	for _, content := range res.Content {
		if text, ok := mcpproto.AsTextContent(content); ok {
			out.WriteString(text.Text + "\n")
		}
	}

	if res.IsError {
		return "", fmt.Errorf("tool %s failed: %s", name, strings.TrimSpace(out.String()))
	}
	return out.String(), nil
}
