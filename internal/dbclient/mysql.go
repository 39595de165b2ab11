package dbclient

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"dbconsole/internal/domain"

	_ "github.com/go-sql-driver/mysql"
)

// buildMySQLDSN constructs a MySQL DSN from a descriptor.
func buildMySQLDSN(desc *domain.ConnectionDescriptor) string {
	port := desc.Port
	if port == 0 {
		port = 3306
	}
	// Format: user:password@tcp(host:port)/dbname?parseTime=true
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&charset=utf8mb4",
		desc.Username, desc.Password, desc.Host, port, desc.Database,
	)
	if desc.SSLMode == "require" {
		dsn += "&tls=true"
	}
	return dsn
}

type mysqlDialect struct{}

// QuoteIdentifier backtick-quotes a name, doubling embedded backticks, so
// mixed-case and reserved identifiers survive.
func (mysqlDialect) QuoteIdentifier(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

func (mysqlDialect) ListTablesQuery(database string) (string, []any) {
	return `SELECT table_name FROM information_schema.tables
		WHERE table_schema = ? ORDER BY table_name`, []any{database}
}

func (mysqlDialect) TableSchema(ctx context.Context, db *sql.DB, database, table string) ([]domain.Column, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT column_name, column_type, is_nullable, column_key, column_default, extra
		 FROM information_schema.columns
		 WHERE table_schema = ? AND table_name = ?
		 ORDER BY ordinal_position`, database, table)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cols []domain.Column
	for rows.Next() {
		var name, colType, nullable, key string
		var dflt, extra sql.NullString
		if err := rows.Scan(&name, &colType, &nullable, &key, &dflt, &extra); err != nil {
			return nil, err
		}
		cols = append(cols, domain.Column{
			Name:          name,
			Type:          colType,
			Nullable:      nullable == "YES",
			Key:           key,
			Default:       dflt.String,
			AutoIncrement: strings.Contains(extra.String, "auto_increment"),
		})
	}
	return cols, rows.Err()
}

func (mysqlDialect) TableMetadata(ctx context.Context, db *sql.DB, database, table string) (int64, int64, error) {
	var rowCount, sizeBytes int64
	err := db.QueryRowContext(ctx,
		`SELECT COALESCE(table_rows, 0), COALESCE(data_length + index_length, 0)
		 FROM information_schema.tables
		 WHERE table_schema = ? AND table_name = ?`, database, table,
	).Scan(&rowCount, &sizeBytes)
	return rowCount, sizeBytes, err
}
