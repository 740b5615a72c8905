package mcp

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/mark3labs/mcp-go/client"
	mcptransport "github.com/mark3labs/mcp-go/client/transport"
	mcpproto "github.com/mark3labs/mcp-go/mcp"
	"github.com/sandevgo/quill/internal/core"
)

type Transport = func(ctx context.Context, cfg ServerConfig) (*client.Client, error)

func NewTransport(t TransportType) (Transport, error) {
	switch t {
	case TransportStdio:
		return StdioTransport, nil
	case TransportHTTP:
		return HttpTransport, nil
	case TransportSSE:
		return SseTransport, nil
	}

	return nil, fmt.Errorf("unsupported transport type: %s", t)
}

// StdioTransport spawns the server process; the constructor starts it.
func StdioTransport(ctx context.Context, cfg ServerConfig) (*client.Client, error) {
	var env []string
	for k, v := range cfg.Env {
		env = append(env, fmt.Sprintf("%s=%s", k, v))
	}

	cli, err := client.NewStdioMCPClient(cfg.Command, env, cfg.Args...)
	if err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}
	return initialize(ctx, cli)
}

func HttpTransport(ctx context.Context, cfg ServerConfig) (*client.Client, error) {
	cli, err := client.NewStreamableHttpClient(
		cfg.URL,
		mcptransport.WithHTTPHeaders(cloneHeaders(cfg.Headers)),
		mcptransport.WithHTTPBasicClient(newHTTPClient()),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create http transport: %w", err)
	}
	return start(ctx, cli)
}

func SseTransport(ctx context.Context, cfg ServerConfig) (*client.Client, error) {
	cli, err := client.NewSSEMCPClient(
		cfg.URL,
		mcptransport.WithHeaders(cloneHeaders(cfg.Headers)),
		mcptransport.WithHTTPClient(newHTTPClient()),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create SSE transport: %w", err)
	}
	return start(ctx, cli)
}

func start(ctx context.Context, cli *client.Client) (*client.Client, error) {
	if err := cli.Start(ctx); err != nil {
		_ = cli.Close()
		return nil, fmt.Errorf("failed to start client: %w", err)
	}
	return initialize(ctx, cli)
}

func initialize(ctx context.Context, cli *client.Client) (*client.Client, error) {
	req := mcpproto.InitializeRequest{}
	req.Params.ProtocolVersion = mcpproto.LATEST_PROTOCOL_VERSION
	req.Params.Capabilities = mcpproto.ClientCapabilities{}
	req.Params.ClientInfo = mcpproto.Implementation{
		Name:    core.QuillName,
		Version: core.QuillVersion,
	}

	if _, err := cli.Initialize(ctx, req); err != nil {
		_ = cli.Close()
		return nil, fmt.Errorf("failed to initialize client: %w", err)
	}
	return cli, nil
}

// newHTTPClient returns a fresh client per server so transports share no state.
func newHTTPClient() *http.Client {
	return &http.Client{
		Transport: &http.Transport{
			Proxy:                 http.ProxyFromEnvironment,
			MaxIdleConns:          100,
			IdleConnTimeout:       90 * time.Second,
			TLSHandshakeTimeout:   10 * time.Second,
			ExpectContinueTimeout: 1 * time.Second,
		},
	}
}

func cloneHeaders(h map[string]string) map[string]string {
	out := make(map[string]string, len(h))
	for k, v := range h {
		out[k] = v
	}
	return out
}
