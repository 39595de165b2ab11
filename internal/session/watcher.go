package session

import (
	"context"
	"log"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
)

// startWatcher watches the sessions directory so removing a session file on
// disk revokes the session in memory without a restart. This is the
// operational kill switch: `rm sessions/<id>.session` logs a client out.
func (s *Store) startWatcher() {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		log.Printf("session watcher: failed to create watcher: %v", err)
		return
	}
	if err := watcher.Add(s.dir); err != nil {
		log.Printf("session watcher: failed to watch %q: %v", s.dir, err)
		watcher.Close()
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.watchCancel = cancel

	go func() {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if !event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
					continue
				}
				name := filepath.Base(event.Name)
				if !strings.HasSuffix(name, fileSuffix) {
					continue
				}
				id := strings.TrimSuffix(name, fileSuffix)
				s.mu.Lock()
				_, live := s.sessions[id]
				delete(s.sessions, id)
				s.mu.Unlock()
				if live {
					log.Printf("session watcher: %s removed on disk, session revoked", id)
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Printf("session watcher: error: %v", err)
			}
		}
	}()
}
