package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"dbconsole/internal/domain"
)

func TestBuildPrompt(t *testing.T) {
	schema := []domain.TableSchema{
		{
			Table: "orders",
			Columns: []domain.Column{
				{Name: "id", Type: "int", Key: "PRI"},
				{Name: "total", Type: "decimal(10,2)"},
			},
		},
	}

	prompt := buildPrompt("total revenue per day", schema, "mysql")

	for _, want := range []string{
		"Target dialect: mysql",
		"- orders (id int PRIMARY KEY, total decimal(10,2))",
		"Request: total revenue per day",
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q:\n%s", want, prompt)
		}
	}
}

func TestBuildPrompt_NoSchema(t *testing.T) {
	prompt := buildPrompt("list databases", nil, "postgres")
	if strings.Contains(prompt, "Schema:") {
		t.Errorf("empty schema should omit the schema block:\n%s", prompt)
	}
}

func TestExtractSQL(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"SELECT 1", "SELECT 1"},
		{"  SELECT 1\n", "SELECT 1"},
		{"```sql\nSELECT * FROM t\n```", "SELECT * FROM t"},
		{"```\nSELECT * FROM t\n```", "SELECT * FROM t"},
		{"Here you go:\n```sql\nSELECT 1\n```\nEnjoy!", "SELECT 1"},
		{"```sql\nSELECT 1", "SELECT 1"},
	}
	for _, tt := range tests {
		if got := extractSQL(tt.in); got != tt.want {
			t.Errorf("extractSQL(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestClient_GenerateSQL(t *testing.T) {
	var gotAuth string
	var gotReq chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Errorf("decode request: %v", err)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"role": "assistant", "content": "```sql\nSELECT COUNT(*) FROM users\n```"}},
			},
		})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "test-key", "test-model")
	sql, err := client.GenerateSQL(context.Background(), "how many users", nil, "sqlite")
	if err != nil {
		t.Fatalf("GenerateSQL: %v", err)
	}
	if sql != "SELECT COUNT(*) FROM users" {
		t.Errorf("sql = %q", sql)
	}

	if gotAuth != "Bearer test-key" {
		t.Errorf("Authorization = %q", gotAuth)
	}
	if gotReq.Model != "test-model" {
		t.Errorf("model = %q", gotReq.Model)
	}
	if len(gotReq.Messages) != 2 || gotReq.Messages[0].Role != "system" {
		t.Fatalf("messages = %+v", gotReq.Messages)
	}
	if !strings.Contains(gotReq.Messages[1].Content, "Target dialect: sqlite") {
		t.Errorf("user prompt = %q", gotReq.Messages[1].Content)
	}
}

func TestClient_GenerateSQL_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{"message": "invalid api key"},
		})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "bad", "m")
	_, err := client.GenerateSQL(context.Background(), "x", nil, "mysql")
	if err == nil || !strings.Contains(err.Error(), "invalid api key") {
		t.Errorf("err = %v, want the upstream message", err)
	}
}

func TestClient_GenerateSQL_EmptyReply(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"role": "assistant", "content": "```sql\n```"}},
			},
		})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "", "m")
	if _, err := client.GenerateSQL(context.Background(), "x", nil, "mysql"); err == nil {
		t.Error("expected an error for an empty statement")
	}
}
