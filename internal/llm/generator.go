// Package llm bridges natural-language prompts to SQL through an external
// model endpoint. The core never depends on it; it is a sibling feature
// sharing the same session and schema data.
package llm

import (
	"context"
	"fmt"
	"strings"

	"dbconsole/internal/domain"
)

// Generator turns a natural-language description into one SQL statement for
// a given dialect, informed by a schema subset.
type Generator interface {
	GenerateSQL(ctx context.Context, description string, schema []domain.TableSchema, dialect string) (string, error)
}

// buildPrompt renders the schema subset and the request into the user prompt.
func buildPrompt(description string, schema []domain.TableSchema, dialect string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Target dialect: %s\n\n", dialect)
	if len(schema) > 0 {
		b.WriteString("Schema:\n")
		for _, table := range schema {
			fmt.Fprintf(&b, "- %s (", table.Table)
			for i, col := range table.Columns {
				if i > 0 {
					b.WriteString(", ")
				}
				fmt.Fprintf(&b, "%s %s", col.Name, col.Type)
				if col.Key == "PRI" {
					b.WriteString(" PRIMARY KEY")
				}
			}
			b.WriteString(")\n")
		}
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "Request: %s\n", description)
	return b.String()
}

// extractSQL pulls the statement out of a model reply, unwrapping a fenced
// code block when present.
func extractSQL(reply string) string {
	reply = strings.TrimSpace(reply)
	if idx := strings.Index(reply, "```"); idx != -1 {
		rest := reply[idx+3:]
		rest = strings.TrimPrefix(rest, "sql")
		rest = strings.TrimPrefix(rest, "\n")
		if end := strings.Index(rest, "```"); end != -1 {
			rest = rest[:end]
		}
		reply = rest
	}
	return strings.TrimSpace(reply)
}
