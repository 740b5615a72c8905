package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/sandevgo/quill/internal/core"
	"github.com/sandevgo/quill/pkg/log"
)

type Timeouts struct {
	Connect  time.Duration
	ToolList time.Duration
	ToolCall time.Duration
}

func NewDefaultTimeouts() *Timeouts {
	return &Timeouts{
		Connect:  30 * time.Second,
		ToolList: 5 * time.Second,
		ToolCall: 2 * time.Minute,
	}
}

var (
	_ core.ToolRegistry           = (*Service)(nil)
	_ core.ToolClientConfigurator = (*Service)(nil)
)

// Service owns the external MCP clients and the always-on base tools.
type Service struct {
	registry *Registry
	pool     ConnectionPool
	cache    *ToolCache
	timeouts *Timeouts
	native   core.ToolSet
	initial  sync.WaitGroup

	mu            sync.Mutex
	activeConfigs map[string]ServerConfig
}

func NewService(pool ConnectionPool, registry *Registry, cache *ToolCache, native core.ToolSet) *Service {
	return &Service{
		pool:          pool,
		registry:      registry,
		cache:         cache,
		timeouts:      NewDefaultTimeouts(),
		native:        native,
		activeConfigs: make(map[string]ServerConfig),
	}
}

func (s *Service) Start(ctx context.Context) error {
	if err := s.registry.Load(ctx); err != nil {
		return err
	}

	servers := s.registry.List()

	s.mu.Lock()
	maps.Copy(s.activeConfigs, servers)
	s.mu.Unlock()

	for name, srv := range servers {
		s.initial.Add(1)
		go func() {
			defer s.initial.Done()
			s.connectServer(ctx, name, srv)
		}()
	}

	updates, err := s.registry.Watch(ctx)
	if err != nil {
		return fmt.Errorf("watch registry: %w", err)
	}
	go s.watchConfig(ctx, updates)

	return nil
}

// WaitConnected blocks until every server configured at Start has either
// connected or failed.
func (s *Service) WaitConnected(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.initial.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Service) connectServer(ctx context.Context, name string, cfg ServerConfig) {
	logger := log.FromCtx(ctx).With().Str("server", name).Logger()
	if cfg.Disabled {
		logger.Debug().Msg("mcp server disabled")
		return
	}

	connectCtx, cancel := context.WithTimeout(ctx, s.timeouts.Connect)
	defer cancel()

	logger.Info().Str("url", cfg.URL).Str("command", cfg.Command).Msg("starting mcp server")

	_, err := s.pool.Add(connectCtx, name, cfg)
	s.cache.Invalidate(name)
	if err != nil {
		logger.Error().Err(err).Bool("needs_auth", isAuthError(err)).Msg("failed to start mcp server")
		return
	}
	logger.Info().Msg("mcp server connected")
}

func (s *Service) watchConfig(ctx context.Context, updates <-chan Config) {
	for {
		select {
		case <-ctx.Done():
			return
		case cfg, ok := <-updates:
			if !ok {
				return
			}
			s.syncServers(ctx, cfg.MCPServers)
		}
	}
}

func (s *Service) syncServers(ctx context.Context, desired map[string]ServerConfig) {
	s.mu.Lock()
	var connect []string
	for name, active := range s.activeConfigs {
		next, exists := desired[name]
		switch {
		case !exists:
			log.FromCtx(ctx).Info().Str("server", name).Msg("removing mcp server")
			s.pool.Del(name)
			s.cache.Invalidate(name)
			delete(s.activeConfigs, name)
		case !reflect.DeepEqual(active, next):
			log.FromCtx(ctx).Info().Str("server", name).Msg("restarting mcp server")
			if next.Disabled {
				s.pool.Del(name)
			}
			connect = append(connect, name)
		}
	}
	for name := range desired {
		if _, exists := s.activeConfigs[name]; !exists {
			log.FromCtx(ctx).Info().Str("server", name).Msg("adding mcp server")
			connect = append(connect, name)
		}
	}
	for _, name := range connect {
		s.activeConfigs[name] = desired[name]
	}
	s.mu.Unlock()

	for _, name := range connect {
		s.connectServer(ctx, name, desired[name])
	}
}

// AddClient saves a server entry and connects it right away. The entry stays
// configured when the connection fails; the failure is returned.
func (s *Service) AddClient(ctx context.Context, id, target string) error {
	cfg, err := ParseTarget(target)
	if err != nil {
		return err
	}
	if err := s.registry.Add(ctx, id, cfg); err != nil {
		return err
	}

	// The client outlives the request that added it.
	s.syncServers(context.WithoutCancel(ctx), s.registry.List())
	return s.pool.Failure(id)
}

func (s *Service) RemoveClient(ctx context.Context, id string) error {
	if _, ok := s.registry.Get(id); !ok {
		return fmt.Errorf("unknown tool client %q", id)
	}
	if err := s.registry.Remove(ctx, id); err != nil {
		return err
	}
	s.syncServers(ctx, s.registry.List())
	return nil
}

func (s *Service) Shutdown(ctx context.Context) error {
	return s.pool.Close()
}

// BaseTools returns the built-in vault tools. They are part of every turn.
func (s *Service) BaseTools() core.ToolSet {
	return maps.Clone(s.native)
}

// ExternalTools merges the tools of the given clients in order, so a later
// client wins a name collision. Unavailable clients are reported in the
// error while the tools of the others are still returned.
func (s *Service) ExternalTools(ctx context.Context, clientIDs []string) (core.ToolSet, error) {
	set := make(core.ToolSet)
	var errs []error

	for _, id := range clientIDs {
		cli, ok := s.pool.Get(id)
		if !ok {
			errs = append(errs, fmt.Errorf("mcp client %s is not connected", id))
			continue
		}

		tools, err := s.serverTools(ctx, id, cli)
		if err != nil {
			errs = append(errs, fmt.Errorf("list tools of %s: %w", id, err))
			continue
		}

		for _, t := range tools {
			server, name := id, t.Function.Name
			set[name] = core.ToolSpec{
				Description: t.Function.Description,
				Schema:      t.Function.Parameters,
				Execute: func(ctx context.Context, args json.RawMessage) (string, error) {
					return s.CallTool(ctx, server, name, args)
				},
			}
		}
	}

	return set, errors.Join(errs...)
}

// Clients describes every configured client for the context overview.
func (s *Service) Clients(ctx context.Context) []core.MCPClientOverview {
	servers := s.registry.List()

	out := make([]core.MCPClientOverview, 0, len(servers))
	for _, id := range s.registry.Names() {
		cfg := servers[id]
		ov := core.MCPClientOverview{ID: id, Name: cfg.DisplayName(id)}

		ov.NeedsAuth = isAuthError(s.pool.Failure(id))

		if cli, ok := s.pool.Get(id); ok {
			tools, err := s.serverTools(ctx, id, cli)
			if err != nil {
				ov.NeedsAuth = ov.NeedsAuth || isAuthError(err)
			}
			for _, t := range tools {
				ov.Tools = append(ov.Tools, t.Function.Name)
			}
		}
		out = append(out, ov)
	}
	return out
}

func (s *Service) serverTools(ctx context.Context, name string, cli *ManagedClient) ([]core.Tool, error) {
	if tools, ok := s.cache.Get(name); ok {
		return tools, nil
	}

	tCtx, cancel := context.WithTimeout(ctx, s.timeouts.ToolList)
	defer cancel()

	tools, err := cli.Definitions(tCtx)
	if err != nil {
		return nil, err
	}
	s.cache.Update(name, tools)
	return tools, nil
}

// CallTool runs a tool on one server.
func (s *Service) CallTool(ctx context.Context, server, name string, args json.RawMessage) (string, error) {
	log.FromCtx(ctx).Info().Str("server", server).Str("tool", name).Msg("executing mcp tool")

	cli, ok := s.pool.Get(server)
	if !ok {
		return "", fmt.Errorf("server %s is not available", server)
	}

	tCtx, cancel := context.WithTimeout(ctx, s.timeouts.ToolCall)
	defer cancel()
	return cli.Call(tCtx, name, args)
}

func isAuthError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "401") || strings.Contains(msg, "unauthorized") || strings.Contains(msg, "403")
}
