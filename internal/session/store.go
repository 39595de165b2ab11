// Package session implements the credential broker at the heart of the
// console: short-lived server-side sessions that bind an opaque token to a
// connection descriptor, encrypted at rest and multiplexed to just-in-time
// database connections.
package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"dbconsole/internal/dbclient"
	"dbconsole/internal/domain"
	"dbconsole/internal/secret"
)

const (
	// TTL is the fixed session lifetime from creation.
	TTL = 24 * time.Hour

	// validateTimeout bounds the descriptor test-connection in CreateSession.
	validateTimeout = 10 * time.Second

	// sweepSchedule drives the background expiry sweep.
	sweepSchedule = "@every 5m"
)

// AdapterFactory builds an adapter for a descriptor. Swappable in tests.
type AdapterFactory func(*domain.ConnectionDescriptor) (dbclient.Adapter, error)

// record is the in-memory session state. The descriptor never leaves the
// store; only the embedded public session is handed to callers.
type record struct {
	descriptor *domain.ConnectionDescriptor
	session    domain.Session
	metadata   map[string]domain.TableMetadata
}

// Store owns the session lifecycle: creation with descriptor validation,
// lookup with lazy expiry, destruction, encrypted disk persistence, and the
// periodic sweep.
type Store struct {
	dir     string
	box     *secret.Box
	factory AdapterFactory

	mu       sync.RWMutex
	sessions map[string]*record

	sched       *cron.Cron
	watchCancel context.CancelFunc
}

// Options configures a Store.
type Options struct {
	// Dir is the sessions directory (one encrypted file per session).
	Dir string

	// Box encrypts/decrypts persisted records.
	Box *secret.Box

	// Factory builds adapters; defaults to dbclient.New.
	Factory AdapterFactory
}

// NewStore creates a Store and loads every persisted session from disk.
// Records past expiry are deleted instead of loaded; corrupt files are
// skipped with a log line, never fatal.
func NewStore(opts Options) (*Store, error) {
	if opts.Factory == nil {
		opts.Factory = dbclient.New
	}
	s := &Store{
		dir:      opts.Dir,
		box:      opts.Box,
		factory:  opts.Factory,
		sessions: make(map[string]*record),
	}
	if err := s.loadSessions(); err != nil {
		return nil, err
	}
	return s, nil
}

// Start launches the background sweep and the sessions-directory watcher.
func (s *Store) Start() error {
	c := cron.New()
	if _, err := c.AddFunc(sweepSchedule, s.sweep); err != nil {
		return fmt.Errorf("schedule sweep: %w", err)
	}
	c.Start()
	s.sched = c

	s.startWatcher()
	return nil
}

// Stop tears down the sweep and watcher. Safe to call without Start.
func (s *Store) Stop() {
	if s.sched != nil {
		s.sched.Stop()
		s.sched = nil
	}
	if s.watchCancel != nil {
		s.watchCancel()
		s.watchCancel = nil
	}
}

// CreateSession validates the descriptor with a throwaway adapter under a 10s
// timeout, then mints an id, persists the encrypted record, and returns the
// public projection. No session exists on any failure path.
func (s *Store) CreateSession(ctx context.Context, desc *domain.ConnectionDescriptor) (*domain.Session, error) {
	adapter, err := s.factory(desc)
	if err != nil {
		return nil, err
	}
	defer adapter.Disconnect()

	vctx, cancel := context.WithTimeout(ctx, validateTimeout)
	defer cancel()
	if !adapter.TestConnection(vctx) {
		return nil, &domain.ConnectionTestError{
			Err: fmt.Errorf("%s database %q unreachable or credentials rejected", desc.Engine, desc.Database),
		}
	}

	owned := *desc
	now := time.Now().UTC()
	rec := &record{
		descriptor: &owned,
		session: domain.Session{
			ID:        uuid.NewString(),
			Name:      desc.Name,
			Engine:    desc.Engine,
			Database:  desc.Database,
			CreatedAt: now,
			ExpiresAt: now.Add(TTL),
		},
	}

	s.mu.Lock()
	s.sessions[rec.session.ID] = rec
	s.mu.Unlock()

	if err := s.persist(rec); err != nil {
		s.mu.Lock()
		delete(s.sessions, rec.session.ID)
		s.mu.Unlock()
		return nil, fmt.Errorf("persist session: %w", err)
	}

	public := rec.session
	return &public, nil
}

// lookup resolves an id, applying lazy expiry: an expired record is removed
// from memory and disk before the Expired error is returned.
func (s *Store) lookup(id string) (*record, error) {
	s.mu.RLock()
	rec, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	if rec.session.Expired(time.Now()) {
		s.mu.Lock()
		delete(s.sessions, id)
		s.mu.Unlock()
		s.removeFile(id)
		return nil, domain.ErrSessionExpired
	}
	return rec, nil
}

// GetSession returns the public projection for an id.
func (s *Store) GetSession(id string) (*domain.Session, error) {
	rec, err := s.lookup(id)
	if err != nil {
		return nil, err
	}
	public := rec.session
	return &public, nil
}

// GetConnection resolves an id to a brand-new adapter. Adapters are never
// reused across calls: driver state does not tolerate being shared between
// concurrent request stacks, so each operation pays the setup cost for
// isolation. The caller connects, operates, and must disconnect on every
// exit path.
func (s *Store) GetConnection(id string) (dbclient.Adapter, error) {
	rec, err := s.lookup(id)
	if err != nil {
		return nil, err
	}
	return s.factory(rec.descriptor)
}

// DestroySession removes a session from memory and disk. Idempotent: a second
// call for the same id reports false.
func (s *Store) DestroySession(id string) bool {
	s.mu.Lock()
	_, ok := s.sessions[id]
	delete(s.sessions, id)
	s.mu.Unlock()
	if ok {
		s.removeFile(id)
	}
	return ok
}

// ListActiveSessions returns public projections of every unexpired session.
// It deliberately avoids deleting expired records; reads stay cheap and the
// sweep handles cleanup.
func (s *Store) ListActiveSessions() []domain.Session {
	now := time.Now()
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Session, 0, len(s.sessions))
	for _, rec := range s.sessions {
		if !rec.session.Expired(now) {
			out = append(out, rec.session)
		}
	}
	return out
}

// CachedTableMetadata returns the cached metadata map without touching the
// database. Nil when nothing has been cached yet.
func (s *Store) CachedTableMetadata(id string) (map[string]domain.TableMetadata, error) {
	rec, err := s.lookup(id)
	if err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if rec.metadata == nil {
		return nil, nil
	}
	out := make(map[string]domain.TableMetadata, len(rec.metadata))
	for k, v := range rec.metadata {
		out[k] = v
	}
	return out, nil
}

// RefreshTableMetadata enumerates tables through a throwaway adapter and
// replaces the session's cached metadata. Per-table failures degrade to the
// "Unknown" sentinel inside the adapter, so one bad table never aborts the
// batch.
func (s *Store) RefreshTableMetadata(ctx context.Context, id string) (map[string]domain.TableMetadata, error) {
	rec, err := s.lookup(id)
	if err != nil {
		return nil, err
	}

	adapter, err := s.factory(rec.descriptor)
	if err != nil {
		return nil, err
	}
	defer adapter.Disconnect()

	if err := adapter.Connect(ctx); err != nil {
		return nil, fmt.Errorf("refresh metadata: %w", err)
	}
	tables, err := adapter.GetTables(ctx)
	if err != nil {
		return nil, fmt.Errorf("refresh metadata: %w", err)
	}

	meta := make(map[string]domain.TableMetadata, len(tables))
	for _, table := range tables {
		meta[table] = adapter.GetTableMetadata(ctx, table)
	}

	s.mu.Lock()
	rec.metadata = meta
	s.mu.Unlock()

	if err := s.persist(rec); err != nil {
		return nil, fmt.Errorf("persist metadata: %w", err)
	}

	out := make(map[string]domain.TableMetadata, len(meta))
	for k, v := range meta {
		out[k] = v
	}
	return out, nil
}
