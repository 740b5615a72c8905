package mcp

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"
)

type Storage interface {
	Load(ctx context.Context) (*Config, error)
	Save(ctx context.Context, cfg *Config) error
	Watch(ctx context.Context) (<-chan Config, error)
}

// Registry is the in-memory view of the configured servers. Mutations are
// persisted first and applied only when the save succeeds.
type Registry struct {
	storage Storage
	mu      sync.RWMutex
	servers map[string]ServerConfig
}

func NewRegistry(storage Storage) *Registry {
	return &Registry{
		storage: storage,
		servers: make(map[string]ServerConfig),
	}
}

func (r *Registry) Load(ctx context.Context) error {
	cfg, err := r.storage.Load(ctx)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.servers = cfg.MCPServers
	if r.servers == nil {
		r.servers = make(map[string]ServerConfig)
	}
	return nil
}

func (r *Registry) Add(ctx context.Context, name string, cfg ServerConfig) error {
	if _, err := cfg.GetTransport(); err != nil {
		return fmt.Errorf("server %s: %w", name, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	next := maps.Clone(r.servers)
	next[name] = cfg
	if err := r.storage.Save(ctx, &Config{MCPServers: next}); err != nil {
		return err
	}
	r.servers = next
	return nil
}

func (r *Registry) Remove(ctx context.Context, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.servers[name]; !ok {
		return nil
	}

	next := maps.Clone(r.servers)
	delete(next, name)
	if err := r.storage.Save(ctx, &Config{MCPServers: next}); err != nil {
		return err
	}
	r.servers = next
	return nil
}

func (r *Registry) Get(name string) (ServerConfig, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	cfg, ok := r.servers[name]
	return cfg, ok
}

func (r *Registry) List() map[string]ServerConfig {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return maps.Clone(r.servers)
}

// Names returns the configured client ids in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Sorted(maps.Keys(r.servers))
}

// Watch forwards storage updates after applying them to the registry.
func (r *Registry) Watch(ctx context.Context) (<-chan Config, error) {
	ch, err := r.storage.Watch(ctx)
	if err != nil {
		return nil, err
	}

	out := make(chan Config)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case cfg, ok := <-ch:
				if !ok {
					return
				}

				r.mu.Lock()
				r.servers = cfg.MCPServers
				if r.servers == nil {
					r.servers = make(map[string]ServerConfig)
				}
				r.mu.Unlock()

				select {
				case out <- cfg:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, nil
}
