package mcp

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"sync"
)

type ConnectionPool interface {
	Add(ctx context.Context, name string, cfg ServerConfig) (*ManagedClient, error)
	Del(name string) error
	Get(name string) (*ManagedClient, bool)
	// Failure returns the error of the last failed Add for name, if the
	// server has not connected since.
	Failure(name string) error
	All() map[string]*ManagedClient
	Close() error
}

var _ ConnectionPool = (*Pool)(nil)

type TransportFactory func(TransportType) (Transport, error)

// Pool holds one live client per server name.
type Pool struct {
	transportFactory TransportFactory

	mu       sync.RWMutex
	clients  map[string]*ManagedClient
	failures map[string]error
}

func NewPool() *Pool {
	return NewPoolWithFactory(NewTransport)
}

func NewPoolWithFactory(factory TransportFactory) *Pool {
	return &Pool{
		transportFactory: factory,
		clients:          make(map[string]*ManagedClient),
		failures:         make(map[string]error),
	}
}

// Add connects a server and replaces any previous client of the same name.
// On failure the previous client, if any, stays in place.
func (p *Pool) Add(ctx context.Context, name string, cfg ServerConfig) (*ManagedClient, error) {
	managed, err := p.connect(ctx, name, cfg)

	p.mu.Lock()
	if err != nil {
		p.failures[name] = err
		p.mu.Unlock()
		return nil, err
	}
	delete(p.failures, name)
	old, exists := p.clients[name]
	p.clients[name] = managed
	p.mu.Unlock()

	if exists {
		go old.Close()
	}
	return managed, nil
}

func (p *Pool) connect(ctx context.Context, name string, cfg ServerConfig) (*ManagedClient, error) {
	tType, err := cfg.GetTransport()
	if err != nil {
		return nil, err
	}

	transport, err := p.transportFactory(tType)
	if err != nil {
		return nil, err
	}

	cli, err := transport(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect %s over %s: %w", name, tType, err)
	}
	return &ManagedClient{Client: cli, name: name}, nil
}

func (p *Pool) Del(name string) error {
	p.mu.Lock()
	cli, exists := p.clients[name]
	delete(p.clients, name)
	delete(p.failures, name)
	p.mu.Unlock()

	if exists {
		return cli.Close()
	}
	return nil
}

func (p *Pool) Get(name string) (*ManagedClient, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	cli, ok := p.clients[name]
	if !ok || cli.IsClosed() {
		return nil, false
	}
	return cli, true
}

func (p *Pool) Failure(name string) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.failures[name]
}

func (p *Pool) All() map[string]*ManagedClient {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return maps.Clone(p.clients)
}

func (p *Pool) Close() error {
	p.mu.Lock()
	clients := p.clients
	p.clients = make(map[string]*ManagedClient)
	p.failures = make(map[string]error)
	p.mu.Unlock()

	var errs []error
	for _, cli := range clients {
		if err := cli.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
