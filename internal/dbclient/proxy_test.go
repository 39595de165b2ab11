package dbclient_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"dbconsole/internal/dbclient"
	"dbconsole/internal/domain"
)

type proxyRequest struct {
	DBName string `json:"dbName"`
	DB     struct {
		Server   string `json:"server"`
		Database string `json:"database"`
		User     string `json:"user"`
		Password string `json:"password"`
	} `json:"db"`
	Query string `json:"query"`
}

func newProxy(t *testing.T, handler func(proxyRequest) map[string]any) (*httptest.Server, dbclient.Adapter) {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req proxyRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode proxy request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(handler(req))
	}))
	t.Cleanup(srv.Close)

	adapter, err := dbclient.New(&domain.ConnectionDescriptor{
		Engine:        domain.EngineMySQLProxy,
		Name:          "proxied",
		Database:      "shop",
		Username:      "app",
		Password:      "hunter2",
		ProxyEndpoint: srv.URL,
		ServerName:    "db01",
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return srv, adapter
}

func TestProxyAdapter_ExecuteQuery(t *testing.T) {
	var seen proxyRequest
	_, adapter := newProxy(t, func(req proxyRequest) map[string]any {
		seen = req
		return map[string]any{
			"columns":    []string{"id", "name"},
			"rows":       []map[string]any{{"id": 1, "name": "alice"}},
			"durationMs": 7,
		}
	})

	ctx := context.Background()
	if err := adapter.Connect(ctx); err != nil {
		t.Fatalf("Connect should be a no-op: %v", err)
	}
	defer adapter.Disconnect()

	result, err := adapter.ExecuteQuery(ctx, "SELECT * FROM users")
	if err != nil {
		t.Fatalf("ExecuteQuery: %v", err)
	}
	if len(result.Rows) != 1 || result.Rows[0]["name"] != "alice" {
		t.Errorf("rows = %v", result.Rows)
	}
	if result.DurationMs != 7 {
		t.Errorf("DurationMs = %d, want 7", result.DurationMs)
	}

	// Credentials ride along on every call.
	if seen.DB.Server != "db01" || seen.DB.User != "app" || seen.DB.Password != "hunter2" {
		t.Errorf("proxy target = %+v", seen.DB)
	}
	if seen.Query != "SELECT * FROM users" {
		t.Errorf("query = %q", seen.Query)
	}
}

func TestProxyAdapter_GetTables(t *testing.T) {
	_, adapter := newProxy(t, func(req proxyRequest) map[string]any {
		if req.Query != "SHOW TABLES" {
			t.Errorf("query = %q, want SHOW TABLES", req.Query)
		}
		return map[string]any{
			"columns": []string{"Tables_in_shop"},
			"rows": []map[string]any{
				{"Tables_in_shop": "orders"},
				{"Tables_in_shop": "users"},
			},
		}
	})

	tables, err := adapter.GetTables(context.Background())
	if err != nil {
		t.Fatalf("GetTables: %v", err)
	}
	if len(tables) != 2 {
		t.Fatalf("tables = %v", tables)
	}
}

func TestProxyAdapter_GetTableSchema(t *testing.T) {
	_, adapter := newProxy(t, func(req proxyRequest) map[string]any {
		if req.Query != "DESCRIBE `Order Items`" {
			t.Errorf("query = %q, want backtick-quoted DESCRIBE", req.Query)
		}
		return map[string]any{
			"columns": []string{"Field", "Type", "Null", "Key", "Default", "Extra"},
			"rows": []map[string]any{
				{"Field": "id", "Type": "int", "Null": "NO", "Key": "PRI", "Extra": "auto_increment"},
				{"Field": "qty", "Type": "int", "Null": "YES", "Key": "", "Extra": ""},
			},
		}
	})

	schema, err := adapter.GetTableSchema(context.Background(), "Order Items")
	if err != nil {
		t.Fatalf("GetTableSchema: %v", err)
	}
	if len(schema.Columns) != 2 {
		t.Fatalf("columns = %v", schema.Columns)
	}
	if schema.Columns[0].Key != "PRI" || !schema.Columns[0].AutoIncrement {
		t.Errorf("first column = %+v", schema.Columns[0])
	}
	if !schema.Columns[1].Nullable {
		t.Errorf("second column should be nullable: %+v", schema.Columns[1])
	}
}

func TestProxyAdapter_QueryErrorSurfacesProxyError(t *testing.T) {
	_, adapter := newProxy(t, func(req proxyRequest) map[string]any {
		return map[string]any{"error": "Table 'shop.nope' doesn't exist"}
	})

	_, err := adapter.ExecuteQuery(context.Background(), "SELECT * FROM nope")
	if err == nil {
		t.Fatal("expected error")
	}
	var queryErr *domain.QueryError
	if !errors.As(err, &queryErr) {
		t.Fatalf("got %T, want QueryError", err)
	}
}

func TestProxyAdapter_MetadataFallsBackToCount(t *testing.T) {
	_, adapter := newProxy(t, func(req proxyRequest) map[string]any {
		if req.Query == "SELECT COUNT(*) AS n FROM `t`" {
			return map[string]any{
				"columns": []string{"n"},
				"rows":    []map[string]any{{"n": 42}},
			}
		}
		// information_schema path fails
		return map[string]any{"error": "access denied"}
	})

	meta := adapter.GetTableMetadata(context.Background(), "t")
	if meta.RowCount != 42 {
		t.Errorf("RowCount = %d, want 42", meta.RowCount)
	}
	if meta.Size != "Unknown" {
		t.Errorf("Size = %q, want Unknown", meta.Size)
	}
}

func TestProxyAdapter_MetadataSentinelOnTotalFailure(t *testing.T) {
	srv, adapter := newProxy(t, func(req proxyRequest) map[string]any { return nil })
	srv.Close() // unreachable proxy

	meta := adapter.GetTableMetadata(context.Background(), "t")
	if meta.RowCount != 0 || meta.Size != "Unknown" {
		t.Errorf("sentinel = %+v", meta)
	}
}

func TestProxyAdapter_TestConnection(t *testing.T) {
	srv, adapter := newProxy(t, func(req proxyRequest) map[string]any {
		return map[string]any{
			"columns": []string{"1"},
			"rows":    []map[string]any{{"1": 1}},
		}
	})
	if !adapter.TestConnection(context.Background()) {
		t.Error("expected TestConnection to succeed")
	}
	srv.Close()
	if adapter.TestConnection(context.Background()) {
		t.Error("expected TestConnection to fail once the proxy is down")
	}
}
