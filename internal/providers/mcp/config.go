package mcp

import (
	"errors"
	"fmt"
	"strings"
)

type TransportType string

const (
	TransportHTTP  TransportType = "http"
	TransportSSE   TransportType = "sse"
	TransportStdio TransportType = "stdio"
)

type Config struct {
	MCPServers map[string]ServerConfig `json:"mcpServers"`
}

// ServerConfig is one entry of mcp.json.
type ServerConfig struct {
	// Title is the display name in the tool overview; the map key is the client id.
	Title   string            `json:"title,omitempty"`
	Type    TransportType     `json:"type,omitempty"`
	Command string            `json:"command,omitempty"`
	Args    []string          `json:"args,omitempty"`
	Env     map[string]string `json:"env,omitempty"`
	URL     string            `json:"url,omitempty"`
	Headers map[string]string `json:"headers,omitempty"`
	// Disabled servers stay listed but are never connected.
	Disabled bool `json:"disabled,omitempty"`
}

func (c *ServerConfig) GetTransport() (TransportType, error) {
	switch {
	case c.Type != "":
		return c.Type, nil
	case c.URL != "":
		return TransportHTTP, nil
	case c.Command != "":
		return TransportStdio, nil
	}
	return "", fmt.Errorf("invalid config: neither url nor command provided")
}

func (c *ServerConfig) DisplayName(id string) string {
	if c.Title != "" {
		return c.Title
	}
	return id
}

// ParseTarget builds a server entry from a URL or a command line such as
// "npx -y @modelcontextprotocol/server-git".
func ParseTarget(target string) (ServerConfig, error) {
	fields := strings.Fields(target)
	if len(fields) == 0 {
		return ServerConfig{}, errors.New("empty server target")
	}

	if strings.HasPrefix(fields[0], "http://") || strings.HasPrefix(fields[0], "https://") {
		if len(fields) > 1 {
			return ServerConfig{}, fmt.Errorf("unexpected arguments after url %s", fields[0])
		}
		return ServerConfig{URL: fields[0]}, nil
	}

	cfg := ServerConfig{Command: fields[0]}
	if len(fields) > 1 {
		cfg.Args = fields[1:]
	}
	return cfg, nil
}
