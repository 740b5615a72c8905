package mcp

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/client"
	"github.com/sandevgo/quill/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mockTransportFactory(transport Transport, err error) TransportFactory {
	return func(t TransportType) (Transport, error) {
		if err != nil {
			return nil, err
		}
		return transport, nil
	}
}

func successTransport(ctx context.Context, cfg ServerConfig) (*client.Client, error) {
	return nil, nil
}

func failTransport(ctx context.Context, cfg ServerConfig) (*client.Client, error) {
	return nil, errors.New("connection failed")
}

func TestPool_Add(t *testing.T) {
	tests := []struct {
		name       string
		factory    TransportFactory
		cfg        ServerConfig
		wantErr    bool
		wantInPool bool
	}{
		{"successful_add", mockTransportFactory(successTransport, nil), ServerConfig{Command: "echo"}, false, true},
		{"invalid_config", mockTransportFactory(successTransport, nil), ServerConfig{}, true, false},
		{"factory_error", mockTransportFactory(nil, errors.New("unsupported")), ServerConfig{Command: "echo"}, true, false},
		{"connection_error", mockTransportFactory(failTransport, nil), ServerConfig{Command: "echo"}, true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewPoolWithFactory(tt.factory)
			_, err := p.Add(context.Background(), "server1", tt.cfg)
			if tt.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
			_, ok := p.Get("server1")
			assert.Equal(t, tt.wantInPool, ok)
		})
	}
}

func TestPool_ReplaceAndClose(t *testing.T) {
	p := NewPoolWithFactory(mockTransportFactory(successTransport, nil))
	ctx := context.Background()

	first, err := p.Add(ctx, "s", ServerConfig{Command: "echo"})
	require.NoError(t, err)
	second, err := p.Add(ctx, "s", ServerConfig{Command: "echo"})
	require.NoError(t, err)

	got, _ := p.Get("s")
	assert.Same(t, second, got)
	assert.Eventually(t, first.IsClosed, time.Second, 10*time.Millisecond)

	require.NoError(t, p.Del("s"))
	assert.True(t, second.IsClosed())
	require.NoError(t, p.Del("s"))

	_, err = p.Add(ctx, "t", ServerConfig{Command: "echo"})
	require.NoError(t, err)
	require.NoError(t, p.Close())
	assert.Empty(t, p.All())
}

func TestToolCache(t *testing.T) {
	c := NewToolCache()
	_, ok := c.Get("a")
	assert.False(t, ok)

	tools := []core.Tool{{Type: "function", Function: core.Function{Name: "x"}}}
	c.Update("a", tools)
	tools[0].Function.Name = "mutated"

	got, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, "x", got[0].Function.Name)

	c.Invalidate("a")
	_, ok = c.Get("a")
	assert.False(t, ok)

	c.Update("b", tools)
	c.InvalidateAll()
	_, ok = c.Get("b")
	assert.False(t, ok)
}

func TestPool_Failure(t *testing.T) {
	fail := true
	p := NewPoolWithFactory(mockTransportFactory(func(ctx context.Context, cfg ServerConfig) (*client.Client, error) {
		if fail {
			return nil, errors.New("request failed with status 401")
		}
		return nil, nil
	}, nil))
	ctx := context.Background()

	_, err := p.Add(ctx, "s", ServerConfig{Command: "echo"})
	require.Error(t, err)
	assert.ErrorContains(t, p.Failure("s"), "401")

	fail = false
	_, err = p.Add(ctx, "s", ServerConfig{Command: "echo"})
	require.NoError(t, err)
	assert.NoError(t, p.Failure("s"))

	fail = true
	_, err = p.Add(ctx, "s", ServerConfig{Command: "echo"})
	require.Error(t, err)
	_, ok := p.Get("s")
	assert.True(t, ok, "failed reconnect keeps the live client")

	require.NoError(t, p.Del("s"))
	assert.NoError(t, p.Failure("s"))
}
