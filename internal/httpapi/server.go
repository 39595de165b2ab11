// Package httpapi exposes the session store and adapters over HTTP. Handlers
// are thin glue: they translate requests into store/adapter calls and
// guarantee the adapter is disconnected on every exit path.
package httpapi

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"dbconsole/internal/dbclient"
	"dbconsole/internal/domain"
	"dbconsole/internal/llm"
	"dbconsole/internal/session"
)

// Server wires the session store and the optional SQL generator into an
// http.Handler.
type Server struct {
	store     *session.Store
	generator llm.Generator
}

// New creates a Server. generator may be nil; the generate endpoint then
// reports the feature as unconfigured.
func New(store *session.Store, generator llm.Generator) *Server {
	return &Server{store: store, generator: generator}
}

// Routes builds the request mux.
func (s *Server) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /sessions", s.handleCreateSession)
	mux.HandleFunc("GET /sessions", s.handleListSessions)
	mux.HandleFunc("GET /sessions/{id}", s.handleGetSession)
	mux.HandleFunc("DELETE /sessions/{id}", s.handleDestroySession)
	mux.HandleFunc("POST /sessions/{id}/query", s.handleQuery)
	mux.HandleFunc("GET /sessions/{id}/tables", s.handleListTables)
	mux.HandleFunc("GET /sessions/{id}/tables/{table}/schema", s.handleTableSchema)
	mux.HandleFunc("GET /sessions/{id}/metadata", s.handleCachedMetadata)
	mux.HandleFunc("POST /sessions/{id}/metadata/refresh", s.handleRefreshMetadata)
	mux.HandleFunc("POST /sessions/{id}/generate-sql", s.handleGenerateSQL)
	return mux
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var desc domain.ConnectionDescriptor
	if err := json.NewDecoder(r.Body).Decode(&desc); err != nil {
		writeError(w, http.StatusBadRequest, "invalid descriptor body")
		return
	}
	sess, err := s.store.CreateSession(r.Context(), &desc)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, sess)
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.store.ListActiveSessions())
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.store.GetSession(r.PathValue("id"))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (s *Server) handleDestroySession(w http.ResponseWriter, r *http.Request) {
	destroyed := s.store.DestroySession(r.PathValue("id"))
	writeJSON(w, http.StatusOK, map[string]bool{"destroyed": destroyed})
}

// withAdapter resolves the session to a fresh adapter, connects, runs op, and
// always disconnects.
func (s *Server) withAdapter(w http.ResponseWriter, r *http.Request, op func(dbclient.Adapter) error) {
	adapter, err := s.store.GetConnection(r.PathValue("id"))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	defer adapter.Disconnect()

	if err := adapter.Connect(r.Context()); err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	if err := op(adapter); err != nil {
		writeStoreError(w, err)
	}
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var body queryRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Query == "" {
		writeError(w, http.StatusBadRequest, "query is required")
		return
	}
	s.withAdapter(w, r, func(adapter dbclient.Adapter) error {
		result, err := adapter.ExecuteQuery(r.Context(), body.Query)
		if err != nil {
			return err
		}
		writeJSON(w, http.StatusOK, result)
		return nil
	})
}

func (s *Server) handleListTables(w http.ResponseWriter, r *http.Request) {
	s.withAdapter(w, r, func(adapter dbclient.Adapter) error {
		tables, err := adapter.GetTables(r.Context())
		if err != nil {
			return err
		}
		if tables == nil {
			tables = []string{}
		}
		writeJSON(w, http.StatusOK, tables)
		return nil
	})
}

func (s *Server) handleTableSchema(w http.ResponseWriter, r *http.Request) {
	table := r.PathValue("table")
	s.withAdapter(w, r, func(adapter dbclient.Adapter) error {
		schema, err := adapter.GetTableSchema(r.Context(), table)
		if err != nil {
			return err
		}
		writeJSON(w, http.StatusOK, schema)
		return nil
	})
}

func (s *Server) handleCachedMetadata(w http.ResponseWriter, r *http.Request) {
	meta, err := s.store.CachedTableMetadata(r.PathValue("id"))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, meta)
}

func (s *Server) handleRefreshMetadata(w http.ResponseWriter, r *http.Request) {
	meta, err := s.store.RefreshTableMetadata(r.Context(), r.PathValue("id"))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, meta)
}

func (s *Server) handleGenerateSQL(w http.ResponseWriter, r *http.Request) {
	if s.generator == nil {
		writeError(w, http.StatusNotImplemented, "SQL generation is not configured")
		return
	}
	var body generateSQLRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Description == "" {
		writeError(w, http.StatusBadRequest, "description is required")
		return
	}

	sess, err := s.store.GetSession(r.PathValue("id"))
	if err != nil {
		writeStoreError(w, err)
		return
	}

	s.withAdapter(w, r, func(adapter dbclient.Adapter) error {
		tables := body.Tables
		if len(tables) == 0 {
			all, err := adapter.GetTables(r.Context())
			if err != nil {
				return err
			}
			tables = all
		}
		var schema []domain.TableSchema
		for _, table := range tables {
			ts, err := adapter.GetTableSchema(r.Context(), table)
			if err != nil {
				return err
			}
			schema = append(schema, *ts)
		}

		sql, err := s.generator.GenerateSQL(r.Context(), body.Description, schema, string(sess.Engine))
		if err != nil {
			return err
		}
		writeJSON(w, http.StatusOK, generateSQLResponse{SQL: sql})
		return nil
	})
}

// ── Response helpers ───────────────────────────────────────

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("http: encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// writeStoreError maps the error taxonomy to status codes so clients can tell
// "log in again" from "your query is wrong" from "try again".
func writeStoreError(w http.ResponseWriter, err error) {
	var connErr *domain.ConnectionTestError
	var queryErr *domain.QueryError
	var engineErr *domain.UnsupportedEngineError
	switch {
	case errors.Is(err, domain.ErrSessionNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrSessionExpired):
		writeError(w, http.StatusGone, err.Error())
	case errors.As(err, &connErr):
		writeError(w, http.StatusBadGateway, err.Error())
	case errors.As(err, &queryErr):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &engineErr):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}
