package httpapi_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"dbconsole/internal/domain"
	"dbconsole/internal/httpapi"
	"dbconsole/internal/secret"
	"dbconsole/internal/session"
)

// fixedGenerator fakes the SQL generator and records what it was asked.
type fixedGenerator struct {
	sql         string
	description string
	dialect     string
	tables      []string
}

func (g *fixedGenerator) GenerateSQL(ctx context.Context, description string, schema []domain.TableSchema, dialect string) (string, error) {
	g.description = description
	g.dialect = dialect
	g.tables = nil
	for _, ts := range schema {
		g.tables = append(g.tables, ts.Table)
	}
	return g.sql, nil
}

func newTestServer(t *testing.T, gen *fixedGenerator) *httptest.Server {
	t.Helper()
	dir := t.TempDir()
	key, err := secret.ResolveKey("", filepath.Join(dir, "session.key"))
	if err != nil {
		t.Fatalf("ResolveKey: %v", err)
	}
	box, err := secret.NewBox(key)
	if err != nil {
		t.Fatalf("NewBox: %v", err)
	}
	store, err := session.NewStore(session.Options{
		Dir: filepath.Join(dir, "sessions"),
		Box: box,
	})
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}

	var handler http.Handler
	if gen != nil {
		handler = httpapi.New(store, gen).Routes()
	} else {
		handler = httpapi.New(store, nil).Routes()
	}
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func doJSON(t *testing.T, method, url string, body any, out any) int {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req, err := http.NewRequest(method, url, &buf)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	defer resp.Body.Close()
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode response: %v", err)
		}
	}
	return resp.StatusCode
}

func createSQLiteSession(t *testing.T, srv *httptest.Server) domain.Session {
	t.Helper()
	var sess domain.Session
	status := doJSON(t, http.MethodPost, srv.URL+"/sessions", domain.ConnectionDescriptor{
		Engine:   domain.EngineSQLite,
		Name:     "local",
		Database: "local",
		FilePath: filepath.Join(t.TempDir(), "api.db"),
	}, &sess)
	if status != http.StatusCreated {
		t.Fatalf("create session: status %d", status)
	}
	if sess.ID == "" {
		t.Fatal("create session: empty id")
	}
	return sess
}

func TestSessionLifecycleOverHTTP(t *testing.T) {
	srv := newTestServer(t, nil)
	sess := createSQLiteSession(t, srv)

	var listed []domain.Session
	if status := doJSON(t, http.MethodGet, srv.URL+"/sessions", nil, &listed); status != http.StatusOK {
		t.Fatalf("list: status %d", status)
	}
	if len(listed) != 1 || listed[0].ID != sess.ID {
		t.Errorf("listed = %v", listed)
	}

	var got domain.Session
	if status := doJSON(t, http.MethodGet, srv.URL+"/sessions/"+sess.ID, nil, &got); status != http.StatusOK {
		t.Fatalf("get: status %d", status)
	}
	if got.Name != "local" || got.Engine != domain.EngineSQLite {
		t.Errorf("got = %+v", got)
	}

	var destroyed map[string]bool
	if status := doJSON(t, http.MethodDelete, srv.URL+"/sessions/"+sess.ID, nil, &destroyed); status != http.StatusOK {
		t.Fatalf("destroy: status %d", status)
	}
	if !destroyed["destroyed"] {
		t.Error("first destroy should report destroyed=true")
	}
	doJSON(t, http.MethodDelete, srv.URL+"/sessions/"+sess.ID, nil, &destroyed)
	if destroyed["destroyed"] {
		t.Error("second destroy should report destroyed=false")
	}

	if status := doJSON(t, http.MethodGet, srv.URL+"/sessions/"+sess.ID, nil, nil); status != http.StatusNotFound {
		t.Errorf("get after destroy: status %d, want 404", status)
	}
}

func TestCreateSession_UnsupportedEngine(t *testing.T) {
	srv := newTestServer(t, nil)

	var errBody map[string]string
	status := doJSON(t, http.MethodPost, srv.URL+"/sessions", domain.ConnectionDescriptor{Engine: "oracle"}, &errBody)
	if status != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", status)
	}
	if !strings.Contains(errBody["error"], "oracle") {
		t.Errorf("error = %q, want engine name in message", errBody["error"])
	}
}

func TestCreateSession_UnreachableDatabase(t *testing.T) {
	srv := newTestServer(t, nil)

	status := doJSON(t, http.MethodPost, srv.URL+"/sessions", domain.ConnectionDescriptor{
		Engine:   domain.EngineSQLite,
		Name:     "bad",
		Database: "bad",
		FilePath: filepath.Join(t.TempDir(), "no", "such", "dir", "x.db"),
	}, nil)
	if status != http.StatusBadGateway {
		t.Errorf("status = %d, want 502", status)
	}
}

func TestQueryAndIntrospectionOverHTTP(t *testing.T) {
	srv := newTestServer(t, nil)
	sess := createSQLiteSession(t, srv)
	base := srv.URL + "/sessions/" + sess.ID

	for _, stmt := range []string{
		"CREATE TABLE books (id INTEGER PRIMARY KEY, title TEXT)",
		"INSERT INTO books (title) VALUES ('dune'), ('solaris')",
	} {
		if status := doJSON(t, http.MethodPost, base+"/query", map[string]string{"query": stmt}, nil); status != http.StatusOK {
			t.Fatalf("query %q: status %d", stmt, status)
		}
	}

	var result domain.QueryResult
	if status := doJSON(t, http.MethodPost, base+"/query", map[string]string{"query": "SELECT * FROM books ORDER BY id"}, &result); status != http.StatusOK {
		t.Fatalf("select: status %d", status)
	}
	if len(result.Rows) != 2 || result.Rows[0]["title"] != "dune" {
		t.Errorf("rows = %v", result.Rows)
	}

	var tables []string
	if status := doJSON(t, http.MethodGet, base+"/tables", nil, &tables); status != http.StatusOK {
		t.Fatalf("tables: status %d", status)
	}
	if len(tables) != 1 || tables[0] != "books" {
		t.Errorf("tables = %v", tables)
	}

	var schema domain.TableSchema
	if status := doJSON(t, http.MethodGet, base+"/tables/books/schema", nil, &schema); status != http.StatusOK {
		t.Fatalf("schema: status %d", status)
	}
	if len(schema.Columns) != 2 || schema.Columns[0].Key != "PRI" {
		t.Errorf("schema = %+v", schema)
	}

	var meta map[string]domain.TableMetadata
	if status := doJSON(t, http.MethodGet, base+"/metadata", nil, &meta); status != http.StatusOK {
		t.Fatalf("cached metadata: status %d", status)
	}
	if meta != nil {
		t.Errorf("expected no cache before refresh, got %v", meta)
	}
	if status := doJSON(t, http.MethodPost, base+"/metadata/refresh", nil, &meta); status != http.StatusOK {
		t.Fatalf("refresh metadata: status %d", status)
	}
	if meta["books"].RowCount != 2 {
		t.Errorf("metadata = %v", meta)
	}
	if status := doJSON(t, http.MethodGet, base+"/metadata", nil, &meta); status != http.StatusOK || meta["books"].RowCount != 2 {
		t.Errorf("cached metadata after refresh: status %d, meta %v", status, meta)
	}
}

func TestQuery_ErrorsMapToStatusCodes(t *testing.T) {
	srv := newTestServer(t, nil)
	sess := createSQLiteSession(t, srv)

	// Bad SQL against a live session is the client's fault.
	status := doJSON(t, http.MethodPost, srv.URL+"/sessions/"+sess.ID+"/query",
		map[string]string{"query": "SELECT * FROM no_such_table"}, nil)
	if status != http.StatusBadRequest {
		t.Errorf("bad query: status %d, want 400", status)
	}

	// Empty query never reaches the adapter.
	status = doJSON(t, http.MethodPost, srv.URL+"/sessions/"+sess.ID+"/query", map[string]string{}, nil)
	if status != http.StatusBadRequest {
		t.Errorf("empty query: status %d, want 400", status)
	}

	// Unknown session.
	status = doJSON(t, http.MethodPost, srv.URL+"/sessions/unknown/query", map[string]string{"query": "SELECT 1"}, nil)
	if status != http.StatusNotFound {
		t.Errorf("unknown session: status %d, want 404", status)
	}
}

func TestGenerateSQLOverHTTP(t *testing.T) {
	gen := &fixedGenerator{sql: "SELECT COUNT(*) FROM books"}
	srv := newTestServer(t, gen)
	sess := createSQLiteSession(t, srv)
	base := srv.URL + "/sessions/" + sess.ID

	if status := doJSON(t, http.MethodPost, base+"/query",
		map[string]string{"query": "CREATE TABLE books (id INTEGER PRIMARY KEY)"}, nil); status != http.StatusOK {
		t.Fatalf("create table: status %d", status)
	}

	var out map[string]string
	status := doJSON(t, http.MethodPost, base+"/generate-sql",
		map[string]string{"description": "how many books"}, &out)
	if status != http.StatusOK {
		t.Fatalf("generate-sql: status %d", status)
	}
	if out["sql"] != "SELECT COUNT(*) FROM books" {
		t.Errorf("sql = %q", out["sql"])
	}
	if gen.description != "how many books" || gen.dialect != "sqlite" {
		t.Errorf("generator saw description=%q dialect=%q", gen.description, gen.dialect)
	}
	if fmt.Sprint(gen.tables) != "[books]" {
		t.Errorf("generator saw schema for %v, want [books]", gen.tables)
	}
}

func TestGenerateSQL_Unconfigured(t *testing.T) {
	srv := newTestServer(t, nil)
	sess := createSQLiteSession(t, srv)

	status := doJSON(t, http.MethodPost, srv.URL+"/sessions/"+sess.ID+"/generate-sql",
		map[string]string{"description": "anything"}, nil)
	if status != http.StatusNotImplemented {
		t.Errorf("status = %d, want 501", status)
	}
}
