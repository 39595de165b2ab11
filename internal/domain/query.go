package domain

// QueryResult is the value returned verbatim by an adapter for one statement.
// Rows are column-name → value maps; the shape is not fixed across queries.
// Columns mirror the returned rows, so a zero-row result carries no column
// information.
type QueryResult struct {
	Columns      []string         `json:"columns"`
	Rows         []map[string]any `json:"rows"`
	DurationMs   int64            `json:"durationMs"`
	IsWrite      bool             `json:"isWrite"`
	AffectedRows int64            `json:"affectedRows"`
}

// Column describes one column of a table as reported by introspection.
type Column struct {
	Name          string `json:"name"`
	Type          string `json:"type"`
	Nullable      bool   `json:"nullable"`
	Key           string `json:"key,omitempty"` // "PRI" for primary key columns
	Default       string `json:"default,omitempty"`
	AutoIncrement bool   `json:"autoIncrement,omitempty"`
}

// TableSchema is the ordered column list of one table. Fetched on demand,
// never persisted.
type TableSchema struct {
	Table   string   `json:"table"`
	Columns []Column `json:"columns"`
}
