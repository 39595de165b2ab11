package mcpserver

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"dbconsole/internal/dbclient"
	"dbconsole/internal/domain"
)

func (s *Server) registerQueryTools() {
	s.mcp.AddTool(mcp.NewTool("execute_query",
		mcp.WithDescription("Run a SQL statement through a session"),
		mcp.WithString("sessionId", mcp.Description("Session ID"), mcp.Required()),
		mcp.WithString("query", mcp.Description("SQL statement to execute"), mcp.Required()),
	), s.handleExecuteQuery)

	s.mcp.AddTool(mcp.NewTool("list_tables",
		mcp.WithDescription("List table names in the session's database"),
		mcp.WithString("sessionId", mcp.Description("Session ID"), mcp.Required()),
	), s.handleListTables)

	s.mcp.AddTool(mcp.NewTool("table_schema",
		mcp.WithDescription("Get the column list of one table"),
		mcp.WithString("sessionId", mcp.Description("Session ID"), mcp.Required()),
		mcp.WithString("table", mcp.Description("Table name"), mcp.Required()),
	), s.handleTableSchema)

	s.mcp.AddTool(mcp.NewTool("table_metadata",
		mcp.WithDescription("Get the cached per-table row counts and sizes"),
		mcp.WithString("sessionId", mcp.Description("Session ID"), mcp.Required()),
	), s.handleTableMetadata)

	s.mcp.AddTool(mcp.NewTool("refresh_table_metadata",
		mcp.WithDescription("Re-read row counts and sizes for every table and update the cache"),
		mcp.WithString("sessionId", mcp.Description("Session ID"), mcp.Required()),
	), s.handleRefreshTableMetadata)

	s.mcp.AddTool(mcp.NewTool("generate_sql",
		mcp.WithDescription("Generate a SQL statement from a natural-language description using the session's schema"),
		mcp.WithString("sessionId", mcp.Description("Session ID"), mcp.Required()),
		mcp.WithString("description", mcp.Description("What the query should do"), mcp.Required()),
	), s.handleGenerateSQL)
}

// withAdapter resolves the session to a fresh adapter, connects, runs op, and
// always disconnects.
func (s *Server) withAdapter(ctx context.Context, sessionID string, op func(dbclient.Adapter) (*mcp.CallToolResult, error)) (*mcp.CallToolResult, error) {
	adapter, err := s.store.GetConnection(sessionID)
	if err != nil {
		return nil, err
	}
	defer adapter.Disconnect()

	if err := adapter.Connect(ctx); err != nil {
		return nil, err
	}
	return op(adapter)
}

func (s *Server) handleExecuteQuery(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := req.GetString("sessionId", "")
	query := req.GetString("query", "")
	if id == "" || query == "" {
		return nil, fmt.Errorf("sessionId and query are required")
	}
	return s.withAdapter(ctx, id, func(adapter dbclient.Adapter) (*mcp.CallToolResult, error) {
		result, err := adapter.ExecuteQuery(ctx, query)
		if err != nil {
			return nil, fmt.Errorf("execute query: %w", err)
		}
		return jsonResult(result)
	})
}

func (s *Server) handleListTables(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := req.GetString("sessionId", "")
	if id == "" {
		return nil, fmt.Errorf("sessionId is required")
	}
	return s.withAdapter(ctx, id, func(adapter dbclient.Adapter) (*mcp.CallToolResult, error) {
		tables, err := adapter.GetTables(ctx)
		if err != nil {
			return nil, fmt.Errorf("list tables: %w", err)
		}
		return jsonResult(tables)
	})
}

func (s *Server) handleTableSchema(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := req.GetString("sessionId", "")
	table := req.GetString("table", "")
	if id == "" || table == "" {
		return nil, fmt.Errorf("sessionId and table are required")
	}
	return s.withAdapter(ctx, id, func(adapter dbclient.Adapter) (*mcp.CallToolResult, error) {
		schema, err := adapter.GetTableSchema(ctx, table)
		if err != nil {
			return nil, fmt.Errorf("table schema: %w", err)
		}
		return jsonResult(schema)
	})
}

func (s *Server) handleTableMetadata(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := req.GetString("sessionId", "")
	if id == "" {
		return nil, fmt.Errorf("sessionId is required")
	}
	meta, err := s.store.CachedTableMetadata(id)
	if err != nil {
		return nil, err
	}
	if meta == nil {
		return textResult("no metadata cached; call refresh_table_metadata first"), nil
	}
	return jsonResult(meta)
}

func (s *Server) handleRefreshTableMetadata(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := req.GetString("sessionId", "")
	if id == "" {
		return nil, fmt.Errorf("sessionId is required")
	}
	meta, err := s.store.RefreshTableMetadata(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("refresh metadata: %w", err)
	}
	return jsonResult(meta)
}

func (s *Server) handleGenerateSQL(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if s.generator == nil {
		return textResult("SQL generation is not configured"), nil
	}
	id := req.GetString("sessionId", "")
	description := req.GetString("description", "")
	if id == "" || description == "" {
		return nil, fmt.Errorf("sessionId and description are required")
	}

	sess, err := s.store.GetSession(id)
	if err != nil {
		return nil, err
	}

	return s.withAdapter(ctx, id, func(adapter dbclient.Adapter) (*mcp.CallToolResult, error) {
		tables, err := adapter.GetTables(ctx)
		if err != nil {
			return nil, fmt.Errorf("list tables: %w", err)
		}
		var schema []domain.TableSchema
		for _, table := range tables {
			ts, err := adapter.GetTableSchema(ctx, table)
			if err != nil {
				return nil, fmt.Errorf("table schema: %w", err)
			}
			schema = append(schema, *ts)
		}
		sql, err := s.generator.GenerateSQL(ctx, description, schema, string(sess.Engine))
		if err != nil {
			return nil, fmt.Errorf("generate sql: %w", err)
		}
		return textResult(sql), nil
	})
}
