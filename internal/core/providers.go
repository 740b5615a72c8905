package core

import (
	"context"
	"encoding/json"
	"maps"
	"slices"
)

type StreamEventKind int

const (
	EventText StreamEventKind = iota
	EventReasoning
	EventToolCall
)

type StreamEvent struct {
	Kind     StreamEventKind
	Text     string
	ToolCall *ToolCall
}

type AIProvider interface {
	Chat(ctx context.Context, history []Message, tools []Tool) (Message, error)
	// ChatStream delivers events as they arrive and returns the assembled assistant message.
	ChatStream(ctx context.Context, history []Message, tools []Tool, onEvent func(StreamEvent)) (Message, error)
}

type ModelLister interface {
	Models(ctx context.Context) ([]Model, error)
}

type ProviderResolver interface {
	Resolve(providerID, modelID string) (AIProvider, error)
	HasCredential(providerID string) bool
}

type Retriever interface {
	Search(ctx context.Context, query string, k, snippetLength int) ([]DocSlice, error)
}

// Summarizer returns ErrNoProvider when no model is available to summarize with.
type Summarizer interface {
	Summarize(ctx context.Context, history []Message, targetTokens int) (string, error)
}

type ToolHandler func(ctx context.Context, args json.RawMessage) (string, error)

type ToolSpec struct {
	Description string
	Schema      json.RawMessage
	Execute     ToolHandler
}

// ToolSet maps tool names to their specs.
type ToolSet map[string]ToolSpec

// Merge copies other into s. Entries of other win on name collisions.
func (s ToolSet) Merge(other ToolSet) ToolSet {
	if s == nil {
		s = make(ToolSet, len(other))
	}
	maps.Copy(s, other)
	return s
}

// Definitions returns the tools sorted by name in wire format.
func (s ToolSet) Definitions() []Tool {
	names := slices.Sorted(maps.Keys(s))
	defs := make([]Tool, 0, len(names))
	for _, name := range names {
		spec := s[name]
		params := spec.Schema
		if len(params) == 0 {
			params = json.RawMessage(`{"type":"object","properties":{}}`)
		}
		defs = append(defs, Tool{
			Type: "function",
			Function: Function{
				Name:        name,
				Description: spec.Description,
				Parameters:  params,
			},
		})
	}
	return defs
}

type ToolRegistry interface {
	BaseTools() ToolSet
	ExternalTools(ctx context.Context, clientIDs []string) (ToolSet, error)
	Clients(ctx context.Context) []MCPClientOverview
}

// ToolClientConfigurator edits the persisted tool client list.
type ToolClientConfigurator interface {
	AddClient(ctx context.Context, id, target string) error
	RemoveClient(ctx context.Context, id string) error
}
