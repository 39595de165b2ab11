package session

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"dbconsole/internal/domain"
)

const fileSuffix = ".session"

// persistedSession is the on-disk shape of one session: the full descriptor,
// the public fields, and the optional metadata cache. The whole document is
// sealed into a single encrypted blob per file.
type persistedSession struct {
	Descriptor *domain.ConnectionDescriptor    `json:"descriptor"`
	Session    domain.Session                  `json:"session"`
	Metadata   map[string]domain.TableMetadata `json:"metadata,omitempty"`
}

func (s *Store) sessionPath(id string) string {
	return filepath.Join(s.dir, id+fileSuffix)
}

// persist serializes and encrypts a record to its session file. The write
// goes through a temp file plus rename so a crash mid-write can't leave a
// half-written blob behind.
func (s *Store) persist(rec *record) error {
	s.mu.RLock()
	doc := persistedSession{
		Descriptor: rec.descriptor,
		Session:    rec.session,
		Metadata:   rec.metadata,
	}
	s.mu.RUnlock()

	plain, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	blob, err := s.box.Seal(plain)
	if err != nil {
		return fmt.Errorf("seal session: %w", err)
	}

	path := s.sessionPath(doc.Session.ID)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, blob, 0o600); err != nil {
		return fmt.Errorf("write session file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("write session file: %w", err)
	}
	return nil
}

func (s *Store) removeFile(id string) {
	if err := os.Remove(s.sessionPath(id)); err != nil && !os.IsNotExist(err) {
		log.Printf("session store: remove %s: %v", s.sessionPath(id), err)
	}
}

// loadSessions restores persisted sessions at startup. Expired records are
// deleted on the spot; files that fail to decrypt or decode are skipped so a
// corrupt file can't take the store down.
func (s *Store) loadSessions() error {
	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		return fmt.Errorf("create sessions directory: %w", err)
	}
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return fmt.Errorf("read sessions directory: %w", err)
	}

	now := time.Now()
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), fileSuffix) {
			continue
		}
		path := filepath.Join(s.dir, entry.Name())
		doc, err := s.readSessionFile(path)
		if err != nil {
			log.Printf("session store: skipping %s: %v", entry.Name(), err)
			continue
		}
		if doc.Session.Expired(now) {
			os.Remove(path)
			continue
		}
		s.sessions[doc.Session.ID] = &record{
			descriptor: doc.Descriptor,
			session:    doc.Session,
			metadata:   doc.Metadata,
		}
	}
	if n := len(s.sessions); n > 0 {
		log.Printf("session store: restored %d session(s)", n)
	}
	return nil
}

func (s *Store) readSessionFile(path string) (*persistedSession, error) {
	blob, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	plain, err := s.box.Open(blob)
	if err != nil {
		return nil, err
	}
	var doc persistedSession
	if err := json.Unmarshal(plain, &doc); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	if doc.Session.ID == "" || doc.Descriptor == nil {
		return nil, fmt.Errorf("incomplete session record")
	}
	return &doc, nil
}

// sweep runs on the cron schedule: it drops expired sessions from memory and
// disk, then scans the directory for expired or unreadable orphan files left
// behind by a previous process.
func (s *Store) sweep() {
	now := time.Now()

	s.mu.Lock()
	var dead []string
	for id, rec := range s.sessions {
		if rec.session.Expired(now) {
			delete(s.sessions, id)
			dead = append(dead, id)
		}
	}
	s.mu.Unlock()
	for _, id := range dead {
		s.removeFile(id)
	}

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		log.Printf("session sweep: read directory: %v", err)
		return
	}
	removed := len(dead)
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), fileSuffix) {
			continue
		}
		id := strings.TrimSuffix(entry.Name(), fileSuffix)
		s.mu.RLock()
		_, live := s.sessions[id]
		s.mu.RUnlock()
		if live {
			continue
		}
		// Orphan: no in-memory counterpart. Keep it only if it still decodes
		// and has time left.
		path := filepath.Join(s.dir, entry.Name())
		doc, err := s.readSessionFile(path)
		if err != nil || doc.Session.Expired(now) {
			os.Remove(path)
			removed++
		}
	}
	if removed > 0 {
		log.Printf("session sweep: removed %d expired session(s)", removed)
	}
}
