package dbclient

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"dbconsole/internal/domain"

	_ "modernc.org/sqlite"
)

// buildSQLiteDSN opens the file in WAL mode with a busy timeout so concurrent
// operations against the same file don't trip SQLITE_BUSY.
func buildSQLiteDSN(desc *domain.ConnectionDescriptor) string {
	return desc.FilePath + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
}

type sqliteDialect struct{}

// QuoteIdentifier double-quotes a name, doubling embedded quotes.
func (sqliteDialect) QuoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func (sqliteDialect) ListTablesQuery(database string) (string, []any) {
	return `SELECT name FROM sqlite_master
		WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name`, nil
}

func (d sqliteDialect) TableSchema(ctx context.Context, db *sql.DB, database, table string) ([]domain.Column, error) {
	// PRAGMA table_info cannot use placeholders; the name is quoted instead.
	rows, err := db.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%s)", d.QuoteIdentifier(table)))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cols []domain.Column
	for rows.Next() {
		var cid, notNull, pk int
		var name, colType string
		var dflt sql.NullString
		if err := rows.Scan(&cid, &name, &colType, &notNull, &dflt, &pk); err != nil {
			return nil, err
		}
		c := domain.Column{
			Name:     name,
			Type:     colType,
			Nullable: notNull == 0,
			Default:  dflt.String,
		}
		if pk > 0 {
			c.Key = "PRI"
		}
		cols = append(cols, c)
	}
	return cols, rows.Err()
}

// TableMetadata counts rows directly; SQLite has no per-table size source, so
// the file size from page_count * page_size stands in for every table.
func (d sqliteDialect) TableMetadata(ctx context.Context, db *sql.DB, database, table string) (int64, int64, error) {
	var rowCount int64
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM %s", d.QuoteIdentifier(table))
	if err := db.QueryRowContext(ctx, countQuery).Scan(&rowCount); err != nil {
		return 0, 0, err
	}

	var pageCount, pageSize int64
	if err := db.QueryRowContext(ctx, "PRAGMA page_count").Scan(&pageCount); err != nil {
		return 0, 0, err
	}
	if err := db.QueryRowContext(ctx, "PRAGMA page_size").Scan(&pageSize); err != nil {
		return 0, 0, err
	}
	return rowCount, pageCount * pageSize, nil
}
