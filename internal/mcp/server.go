// Package mcpserver exposes the console over the Model Context Protocol so
// AI agents can register connections, browse schema, and run SQL through the
// same session store the HTTP API uses.
package mcpserver

import (
	"encoding/json"
	"fmt"
	"log"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"dbconsole/internal/llm"
	"dbconsole/internal/session"
)

// Server is the MCP server for the console.
type Server struct {
	mcp       *server.MCPServer
	store     *session.Store
	generator llm.Generator
}

// New creates and configures an MCP server with all tools registered.
// generator may be nil; the generate_sql tool then reports the feature as
// unconfigured.
func New(store *session.Store, generator llm.Generator) *Server {
	s := &Server{
		store:     store,
		generator: generator,
	}

	s.mcp = server.NewMCPServer(
		"dbconsole-mcp",
		"1.0.0",
		server.WithToolCapabilities(true),
	)

	s.registerSessionTools()
	s.registerQueryTools()

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	log.Println("[mcp] starting stdio server...")
	return server.ServeStdio(s.mcp)
}

// ── Helpers ────────────────────────────────────────────────

// textResult creates a simple text tool result.
func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

// jsonResult serializes v to JSON and wraps it in a text tool result.
func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal result: %w", err)
	}
	return textResult(string(data)), nil
}
