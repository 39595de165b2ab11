package dbclient

import (
	"context"

	"dbconsole/internal/domain"
)

// Adapter abstracts one database engine behind a uniform set of operations.
// Adapters are cheap to construct and are never shared across concurrent
// operations: every operation that needs a live connection builds its own
// adapter and tears it down afterwards.
type Adapter interface {
	// Connect establishes whatever state the engine needs (a live socket for
	// the direct engines, a no-op for the HTTP proxy). It never partially
	// mutates adapter state on failure.
	Connect(ctx context.Context) error

	// Disconnect is idempotent and always safe to call, even if Connect never
	// succeeded.
	Disconnect() error

	// ExecuteQuery runs one statement. Row-returning statements yield columns,
	// rows, and elapsed time; DML yields an affected-row count.
	ExecuteQuery(ctx context.Context, query string) (*domain.QueryResult, error)

	// GetTables lists table names in the configured database/schema.
	GetTables(ctx context.Context) ([]string, error)

	// GetTableSchema introspects one table's columns. The table name is quoted
	// per engine wherever it is embedded in SQL, so mixed-case and reserved
	// names round-trip.
	GetTableSchema(ctx context.Context, table string) (*domain.TableSchema, error)

	// GetTableMetadata returns row count and size for one table. It never
	// fails: on total failure it returns the sentinel {RowCount: 0,
	// Size: "Unknown"} so metadata can't block the explorer.
	GetTableMetadata(ctx context.Context, table string) domain.TableMetadata

	// TestConnection connects, runs a trivial query, and disconnects.
	// Used for descriptor validation.
	TestConnection(ctx context.Context) bool
}

// New creates an Adapter for the descriptor's engine. Pure dispatch, safe to
// call from any number of in-flight requests.
func New(desc *domain.ConnectionDescriptor) (Adapter, error) {
	switch desc.Engine {
	case domain.EngineMySQL:
		return newSQLAdapter("mysql", buildMySQLDSN(desc), desc.Database, mysqlDialect{}), nil
	case domain.EnginePostgres:
		return newSQLAdapter("postgres", buildPostgresDSN(desc), desc.Database, postgresDialect{}), nil
	case domain.EngineSQLite:
		return newSQLAdapter("sqlite", buildSQLiteDSN(desc), desc.Database, sqliteDialect{}), nil
	case domain.EngineMySQLProxy:
		return newProxyAdapter(desc), nil
	default:
		return nil, &domain.UnsupportedEngineError{Engine: desc.Engine}
	}
}
