package mcpserver

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"dbconsole/internal/domain"
)

func (s *Server) registerSessionTools() {
	s.mcp.AddTool(mcp.NewTool("create_session",
		mcp.WithDescription("Register a database connection and get back a session token. Credentials are stored server-side and never returned."),
		mcp.WithString("engine", mcp.Description("Database engine: mysql, mysql-proxy, postgres, sqlite"), mcp.Required()),
		mcp.WithString("name", mcp.Description("Display name for the connection"), mcp.Required()),
		mcp.WithString("database", mcp.Description("Target database name")),
		mcp.WithString("host", mcp.Description("Host for direct engines")),
		mcp.WithNumber("port", mcp.Description("Port for direct engines (0 for engine default)")),
		mcp.WithString("username", mcp.Description("Username for direct/proxied engines")),
		mcp.WithString("password", mcp.Description("Password for direct/proxied engines")),
		mcp.WithString("proxyEndpoint", mcp.Description("Proxy URL for the mysql-proxy engine")),
		mcp.WithString("serverName", mcp.Description("Upstream server name for the mysql-proxy engine")),
		mcp.WithString("filePath", mcp.Description("Database file path for the sqlite engine")),
	), s.handleCreateSession)

	s.mcp.AddTool(mcp.NewTool("list_sessions",
		mcp.WithDescription("List all active (unexpired) sessions"),
	), s.handleListSessions)

	s.mcp.AddTool(mcp.NewTool("destroy_session",
		mcp.WithDescription("Revoke a session and delete its stored credentials"),
		mcp.WithString("sessionId", mcp.Description("Session ID"), mcp.Required()),
	), s.handleDestroySession)
}

func (s *Server) handleCreateSession(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	desc := &domain.ConnectionDescriptor{
		Engine:        domain.Engine(req.GetString("engine", "")),
		Name:          req.GetString("name", ""),
		Database:      req.GetString("database", ""),
		Host:          req.GetString("host", ""),
		Port:          int(getFloat(args, "port", 0)),
		Username:      req.GetString("username", ""),
		Password:      req.GetString("password", ""),
		ProxyEndpoint: req.GetString("proxyEndpoint", ""),
		ServerName:    req.GetString("serverName", ""),
		FilePath:      req.GetString("filePath", ""),
	}
	if desc.Engine == "" || desc.Name == "" {
		return nil, fmt.Errorf("engine and name are required")
	}

	sess, err := s.store.CreateSession(ctx, desc)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	return jsonResult(sess)
}

func (s *Server) handleListSessions(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(s.store.ListActiveSessions())
}

func (s *Server) handleDestroySession(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := req.GetString("sessionId", "")
	if id == "" {
		return nil, fmt.Errorf("sessionId is required")
	}
	if !s.store.DestroySession(id) {
		return textResult("session not found"), nil
	}
	return textResult("session destroyed"), nil
}

func getFloat(args map[string]any, key string, fallback float64) float64 {
	if v, ok := args[key].(float64); ok {
		return v
	}
	return fallback
}
