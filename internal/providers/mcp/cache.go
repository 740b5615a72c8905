package mcp

import (
	"slices"
	"sync"

	"github.com/sandevgo/quill/internal/core"
)

// ToolCache keeps the tool listing of each connected server.
type ToolCache struct {
	mu      sync.RWMutex
	servers map[string][]core.Tool
}

func NewToolCache() *ToolCache {
	return &ToolCache{servers: make(map[string][]core.Tool)}
}

func (c *ToolCache) Get(server string) ([]core.Tool, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	tools, ok := c.servers[server]
	if !ok {
		return nil, false
	}
	return slices.Clone(tools), true
}

func (c *ToolCache) Update(server string, tools []core.Tool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.servers[server] = slices.Clone(tools)
}

func (c *ToolCache) Invalidate(server string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.servers, server)
}

func (c *ToolCache) InvalidateAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.servers = make(map[string][]core.Tool)
}
