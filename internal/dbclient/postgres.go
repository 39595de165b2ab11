package dbclient

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"dbconsole/internal/domain"

	_ "github.com/lib/pq"
)

// buildPostgresDSN constructs a Postgres connection string from a descriptor.
func buildPostgresDSN(desc *domain.ConnectionDescriptor) string {
	port := desc.Port
	if port == 0 {
		port = 5432
	}
	sslMode := desc.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		desc.Host, port, desc.Username, desc.Password, desc.Database, sslMode,
	)
}

type postgresDialect struct{}

// QuoteIdentifier double-quotes a name, doubling embedded quotes.
func (postgresDialect) QuoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func (postgresDialect) ListTablesQuery(database string) (string, []any) {
	return `SELECT table_name FROM information_schema.tables
		WHERE table_schema = current_schema() AND table_type = 'BASE TABLE'
		ORDER BY table_name`, nil
}

func (postgresDialect) TableSchema(ctx context.Context, db *sql.DB, database, table string) ([]domain.Column, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT column_name, data_type, is_nullable, COALESCE(column_default, '')
		 FROM information_schema.columns
		 WHERE table_schema = current_schema() AND table_name = $1
		 ORDER BY ordinal_position`, table)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cols []domain.Column
	for rows.Next() {
		var c domain.Column
		var nullable, dflt string
		if err := rows.Scan(&c.Name, &c.Type, &nullable, &dflt); err != nil {
			return nil, err
		}
		c.Nullable = nullable == "YES"
		c.Default = dflt
		c.AutoIncrement = strings.HasPrefix(dflt, "nextval(")
		cols = append(cols, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Primary key columns come from the constraint catalog.
	pkRows, err := db.QueryContext(ctx,
		`SELECT kcu.column_name
		 FROM information_schema.table_constraints tc
		 JOIN information_schema.key_column_usage kcu
		   ON tc.constraint_name = kcu.constraint_name
		  AND tc.table_schema = kcu.table_schema
		 WHERE tc.constraint_type = 'PRIMARY KEY'
		   AND tc.table_schema = current_schema()
		   AND tc.table_name = $1`, table)
	if err != nil {
		return cols, nil
	}
	defer pkRows.Close()

	pks := map[string]bool{}
	for pkRows.Next() {
		var name string
		if err := pkRows.Scan(&name); err != nil {
			continue
		}
		pks[name] = true
	}
	for i := range cols {
		if pks[cols[i].Name] {
			cols[i].Key = "PRI"
		}
	}
	return cols, nil
}

func (d postgresDialect) TableMetadata(ctx context.Context, db *sql.DB, database, table string) (int64, int64, error) {
	var rowCount, sizeBytes int64
	err := db.QueryRowContext(ctx,
		`SELECT COALESCE(GREATEST(c.reltuples::bigint, 0), 0),
		        COALESCE(pg_total_relation_size(c.oid), 0)
		 FROM pg_class c
		 JOIN pg_namespace n ON n.oid = c.relnamespace
		 WHERE n.nspname = current_schema() AND c.relname = $1`, table,
	).Scan(&rowCount, &sizeBytes)
	return rowCount, sizeBytes, err
}
