package dbclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"dbconsole/internal/domain"
)

// proxyAdapter speaks to a MySQL HTTP proxy: a service that accepts one SQL
// statement plus upstream credentials per request and returns the result as
// JSON. The transport is connectionless: Connect and Disconnect are no-ops
// and every call authenticates itself.
type proxyAdapter struct {
	endpoint string
	server   string
	database string
	username string
	password string
	client   *http.Client
}

func newProxyAdapter(desc *domain.ConnectionDescriptor) *proxyAdapter {
	return &proxyAdapter{
		endpoint: desc.ProxyEndpoint,
		server:   desc.ServerName,
		database: desc.Database,
		username: desc.Username,
		password: desc.Password,
		client:   &http.Client{Timeout: queryTimeout},
	}
}

// Wire types for the proxy's POST /sql contract.

type proxyTarget struct {
	Server   string `json:"server"`
	Database string `json:"database"`
	User     string `json:"user"`
	Password string `json:"password"`
}

type proxyQueryRequest struct {
	DBName    string      `json:"dbName"`
	DB        proxyTarget `json:"db"`
	Query     string      `json:"query"`
	TimeoutMs int         `json:"timeoutMs,omitempty"`
}

type proxyQueryResponse struct {
	Columns      []string         `json:"columns"`
	Rows         []map[string]any `json:"rows"`
	DurationMs   int64            `json:"durationMs"`
	IsWrite      bool             `json:"isWrite"`
	AffectedRows int64            `json:"affectedRows"`
	Error        string           `json:"error,omitempty"`
}

func (a *proxyAdapter) Connect(ctx context.Context) error { return nil }

func (a *proxyAdapter) Disconnect() error { return nil }

func (a *proxyAdapter) ExecuteQuery(ctx context.Context, query string) (*domain.QueryResult, error) {
	body, err := json.Marshal(proxyQueryRequest{
		DBName: a.database,
		DB: proxyTarget{
			Server:   a.server,
			Database: a.database,
			User:     a.username,
			Password: a.password,
		},
		Query:     query,
		TimeoutMs: int(queryTimeout / time.Millisecond),
	})
	if err != nil {
		return nil, fmt.Errorf("encode proxy request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("proxy request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, &domain.QueryError{Err: err}
	}
	defer resp.Body.Close()

	var out proxyQueryResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 64<<20)).Decode(&out); err != nil {
		return nil, &domain.QueryError{Err: fmt.Errorf("decode proxy response: %w", err)}
	}
	if out.Error != "" {
		return nil, &domain.QueryError{Err: fmt.Errorf("%s", out.Error)}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &domain.QueryError{Err: fmt.Errorf("proxy returned %s", resp.Status)}
	}

	result := &domain.QueryResult{
		Rows:         out.Rows,
		DurationMs:   out.DurationMs,
		IsWrite:      out.IsWrite,
		AffectedRows: out.AffectedRows,
	}
	if len(out.Rows) > 0 {
		result.Columns = out.Columns
	}
	return result, nil
}

func (a *proxyAdapter) GetTables(ctx context.Context) ([]string, error) {
	result, err := a.ExecuteQuery(ctx, "SHOW TABLES")
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	var tables []string
	for _, row := range result.Rows {
		// SHOW TABLES yields one column whose name varies with the database.
		for _, v := range row {
			if s, ok := v.(string); ok {
				tables = append(tables, s)
			}
		}
	}
	return tables, nil
}

func (a *proxyAdapter) GetTableSchema(ctx context.Context, table string) (*domain.TableSchema, error) {
	quoted := mysqlDialect{}.QuoteIdentifier(table)
	result, err := a.ExecuteQuery(ctx, "DESCRIBE "+quoted)
	if err != nil {
		return nil, fmt.Errorf("table schema %q: %w", table, err)
	}

	schema := &domain.TableSchema{Table: table}
	for _, row := range result.Rows {
		col := domain.Column{
			Name:          rowString(row, "Field"),
			Type:          rowString(row, "Type"),
			Nullable:      rowString(row, "Null") == "YES",
			Key:           rowString(row, "Key"),
			Default:       rowString(row, "Default"),
			AutoIncrement: strings.Contains(rowString(row, "Extra"), "auto_increment"),
		}
		schema.Columns = append(schema.Columns, col)
	}
	return schema, nil
}

func (a *proxyAdapter) GetTableMetadata(ctx context.Context, table string) domain.TableMetadata {
	query := fmt.Sprintf(
		`SELECT COALESCE(table_rows, 0) AS row_count,
		        COALESCE(data_length + index_length, 0) AS total_bytes
		 FROM information_schema.tables
		 WHERE table_schema = '%s' AND table_name = '%s'`,
		escapeLiteral(a.database), escapeLiteral(table),
	)
	if result, err := a.ExecuteQuery(ctx, query); err == nil && len(result.Rows) == 1 {
		rowCount := rowInt(result.Rows[0], "row_count")
		sizeBytes := rowInt(result.Rows[0], "total_bytes")
		return domain.TableMetadata{
			Name:      table,
			RowCount:  rowCount,
			SizeBytes: sizeBytes,
			Size:      FormatBytes(sizeBytes),
		}
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) AS n FROM %s", mysqlDialect{}.QuoteIdentifier(table))
	if result, err := a.ExecuteQuery(ctx, countQuery); err == nil && len(result.Rows) == 1 {
		return domain.TableMetadata{Name: table, RowCount: rowInt(result.Rows[0], "n"), Size: "Unknown"}
	}
	return metadataSentinel(table)
}

func (a *proxyAdapter) TestConnection(ctx context.Context) bool {
	_, err := a.ExecuteQuery(ctx, "SELECT 1")
	return err == nil
}

// escapeLiteral doubles single quotes for embedding a string literal; the
// proxy contract carries no parameter support.
func escapeLiteral(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}

func rowString(row map[string]any, key string) string {
	if v, ok := row[key]; ok && v != nil {
		if s, ok := v.(string); ok {
			return s
		}
		return fmt.Sprintf("%v", v)
	}
	return ""
}

func rowInt(row map[string]any, key string) int64 {
	switch v := row[key].(type) {
	case int64:
		return v
	case float64:
		return int64(v)
	case string:
		var n int64
		fmt.Sscanf(v, "%d", &n)
		return n
	default:
		return 0
	}
}
