// Package mcpserver exposes the vault tools to other MCP hosts over stdio.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"slices"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/sandevgo/quill/internal/core"
	"github.com/sandevgo/quill/pkg/log"
)

const instructions = `Quill serves a document vault. Search and read documents with search_docs,
list_docs and read_doc. propose_edit and create_doc only return proposals; nothing is written.`

// New registers every tool of set on a fresh MCP server.
func New(set core.ToolSet) *server.MCPServer {
	s := server.NewMCPServer(
		"quill",
		core.QuillVersion,
		server.WithToolCapabilities(false),
		server.WithRecovery(),
		server.WithInstructions(instructions),
	)

	for _, name := range slices.Sorted(maps.Keys(set)) {
		spec := set[name]
		s.AddTool(definition(name, spec), handler(spec))
	}
	return s
}

func definition(name string, spec core.ToolSpec) mcp.Tool {
	schema := spec.Schema
	if len(schema) == 0 {
		schema = json.RawMessage(`{"type":"object","properties":{}}`)
	}
	return mcp.NewToolWithRawSchema(name, spec.Description, schema)
}

func handler(spec core.ToolSpec) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := req.GetArguments()
		if args == nil {
			args = map[string]any{}
		}
		raw, err := json.Marshal(args)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("invalid arguments: %v", err)), nil
		}

		out, err := spec.Execute(ctx, raw)
		if err != nil {
			log.FromCtx(ctx).Warn().Err(err).Str("tool", req.Params.Name).Msg("tool call failed")
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText(out), nil
	}
}

// Serve blocks serving s on stdin and stdout.
func Serve(ctx context.Context, s *server.MCPServer) error {
	log.FromCtx(ctx).Info().Msg("serving vault tools over stdio")
	return server.ServeStdio(s)
}
