package dbclient

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"dbconsole/internal/domain"
)

const queryTimeout = 30 * time.Second

// dialect captures what differs between the database/sql engines: identifier
// quoting, introspection queries, and the cheap metadata source.
type dialect interface {
	// QuoteIdentifier quotes a dynamic table/column name for embedding in SQL.
	QuoteIdentifier(name string) string

	// ListTablesQuery returns the query and args listing table names in the
	// configured database/schema.
	ListTablesQuery(database string) (string, []any)

	// TableSchema introspects one table's columns, in ordinal order.
	TableSchema(ctx context.Context, db *sql.DB, database, table string) ([]domain.Column, error)

	// TableMetadata returns (rowCount, sizeBytes) from the engine's cheap
	// metadata source. Errors trigger the COUNT(*) fallback.
	TableMetadata(ctx context.Context, db *sql.DB, database, table string) (int64, int64, error)
}

// sqlAdapter is the shared implementation for MySQL, PostgreSQL, and SQLite.
type sqlAdapter struct {
	driverName string
	dsn        string
	database   string
	dialect    dialect
	db         *sql.DB
}

func newSQLAdapter(driverName, dsn, database string, d dialect) *sqlAdapter {
	return &sqlAdapter{driverName: driverName, dsn: dsn, database: database, dialect: d}
}

func (a *sqlAdapter) Connect(ctx context.Context) error {
	if a.db != nil {
		return nil
	}
	db, err := sql.Open(a.driverName, a.dsn)
	if err != nil {
		return fmt.Errorf("open %s: %w", a.driverName, err)
	}
	// One operation per adapter, no pooling beyond a single connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return fmt.Errorf("connect %s: %w", a.driverName, err)
	}
	a.db = db
	return nil
}

func (a *sqlAdapter) Disconnect() error {
	if a.db == nil {
		return nil
	}
	db := a.db
	a.db = nil
	return db.Close()
}

// isReadQuery detects row-returning statements (SELECT, WITH, SHOW, DESCRIBE,
// EXPLAIN, PRAGMA).
func isReadQuery(query string) bool {
	q := strings.ToUpper(strings.TrimSpace(query))
	for _, prefix := range []string{"SELECT", "WITH", "SHOW", "DESCRIBE", "EXPLAIN", "PRAGMA"} {
		if strings.HasPrefix(q, prefix) {
			return true
		}
	}
	return false
}

func (a *sqlAdapter) ExecuteQuery(ctx context.Context, query string) (*domain.QueryResult, error) {
	if a.db == nil {
		return nil, fmt.Errorf("%s: not connected", a.driverName)
	}
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	start := time.Now()
	if !isReadQuery(query) {
		result, err := a.db.ExecContext(ctx, query)
		if err != nil {
			return nil, &domain.QueryError{Err: err}
		}
		affected, _ := result.RowsAffected()
		return &domain.QueryResult{
			DurationMs:   time.Since(start).Milliseconds(),
			IsWrite:      true,
			AffectedRows: affected,
		}, nil
	}

	rows, err := a.db.QueryContext(ctx, query)
	if err != nil {
		return nil, &domain.QueryError{Err: err}
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, &domain.QueryError{Err: err}
	}

	var out []map[string]any
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, &domain.QueryError{Err: err}
		}
		row := make(map[string]any, len(cols))
		for i, col := range cols {
			row[col] = formatValue(values[i])
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, &domain.QueryError{Err: err}
	}

	result := &domain.QueryResult{
		Rows:       out,
		DurationMs: time.Since(start).Milliseconds(),
	}
	// Columns mirror returned rows; a zero-row result carries none.
	if len(out) > 0 {
		result.Columns = cols
	}
	return result, nil
}

func (a *sqlAdapter) GetTables(ctx context.Context) ([]string, error) {
	if a.db == nil {
		return nil, fmt.Errorf("%s: not connected", a.driverName)
	}
	query, args := a.dialect.ListTablesQuery(a.database)
	rows, err := a.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	defer rows.Close()

	var tables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("list tables: %w", err)
		}
		tables = append(tables, name)
	}
	return tables, rows.Err()
}

func (a *sqlAdapter) GetTableSchema(ctx context.Context, table string) (*domain.TableSchema, error) {
	if a.db == nil {
		return nil, fmt.Errorf("%s: not connected", a.driverName)
	}
	cols, err := a.dialect.TableSchema(ctx, a.db, a.database, table)
	if err != nil {
		return nil, fmt.Errorf("table schema %q: %w", table, err)
	}
	return &domain.TableSchema{Table: table, Columns: cols}, nil
}

func (a *sqlAdapter) GetTableMetadata(ctx context.Context, table string) domain.TableMetadata {
	if a.db == nil {
		return metadataSentinel(table)
	}
	rowCount, sizeBytes, err := a.dialect.TableMetadata(ctx, a.db, a.database, table)
	if err == nil {
		return domain.TableMetadata{
			Name:      table,
			RowCount:  rowCount,
			SizeBytes: sizeBytes,
			Size:      FormatBytes(sizeBytes),
		}
	}

	// Fallback: exact count, size unknown.
	var count int64
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM %s", a.dialect.QuoteIdentifier(table))
	if err := a.db.QueryRowContext(ctx, countQuery).Scan(&count); err != nil {
		return metadataSentinel(table)
	}
	return domain.TableMetadata{Name: table, RowCount: count, Size: "Unknown"}
}

func (a *sqlAdapter) TestConnection(ctx context.Context) bool {
	if err := a.Connect(ctx); err != nil {
		return false
	}
	defer a.Disconnect()
	var one int
	return a.db.QueryRowContext(ctx, "SELECT 1").Scan(&one) == nil
}

// formatValue converts driver values into JSON-friendly forms.
func formatValue(v any) any {
	switch val := v.(type) {
	case nil:
		return nil
	case []byte:
		return string(val)
	case time.Time:
		return val.Format(time.RFC3339)
	default:
		return val
	}
}
