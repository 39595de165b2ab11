package httpapi

// queryRequest carries one SQL statement to run against a session.
type queryRequest struct {
	Query string `json:"query"`
}

// generateSQLRequest asks the LLM bridge for a statement. Tables narrows the
// schema subset sent with the prompt; empty means every table.
type generateSQLRequest struct {
	Description string   `json:"description"`
	Tables      []string `json:"tables,omitempty"`
}

type generateSQLResponse struct {
	SQL string `json:"sql"`
}

type errorResponse struct {
	Error string `json:"error"`
}
