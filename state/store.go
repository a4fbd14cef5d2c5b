// Package state tracks, per session, which version of each resource a
// client has last observed.
package state

import (
	"sync"
	"time"

	"github.com/buyukakyuz/bpx"
)

// Session pairs a client identity with the resource versions it has
// seen, per spec § 3.
type Session struct {
	ID           bpx.SessionId
	mu           sync.RWMutex
	resources    map[bpx.ResourcePath]bpx.Version
	lastAccessed time.Time
}

func newSession(id bpx.SessionId) *Session {
	return &Session{
		ID:           id,
		resources:    make(map[bpx.ResourcePath]bpx.Version),
		lastAccessed: time.Now(),
	}
}

func (s *Session) touch() {
	s.mu.Lock()
	s.lastAccessed = time.Now()
	s.mu.Unlock()
}

func (s *Session) isExpired(ttl time.Duration) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return time.Since(s.lastAccessed) > ttl
}

func (s *Session) getVersion(path bpx.ResourcePath) (bpx.Version, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.resources[path]
	return v, ok
}

func (s *Session) setVersion(path bpx.ResourcePath, version bpx.Version) {
	s.mu.Lock()
	s.resources[path] = version
	s.mu.Unlock()
}

// Store manages client session state: resolving, touching, recording
// per-path versions, and sweeping expired entries.
type Store interface {
	GetOrCreateSession(id *bpx.SessionId) bpx.SessionId
	GetVersion(session bpx.SessionId, path bpx.ResourcePath) (bpx.Version, bool)
	SetVersion(session bpx.SessionId, path bpx.ResourcePath, version bpx.Version)
	CleanupExpired()
	Close()
}

// InMemoryStore is the default Store: a concurrent map guarded by a
// RWMutex, swept on a ticker. Per-session mutation is further guarded
// by each Session's own lock, so touching one session never blocks a
// lookup of another.
type InMemoryStore struct {
	mu       sync.RWMutex
	sessions map[bpx.SessionId]*Session
	ttl      time.Duration

	cleanupTicker *time.Ticker
	stopCleanup   chan struct{}
}

// NewInMemoryStore builds a store whose sessions expire after ttl. If
// cleanupInterval is positive, a background goroutine periodically
// sweeps expired sessions.
func NewInMemoryStore(ttl time.Duration, cleanupInterval time.Duration) *InMemoryStore {
	s := &InMemoryStore{
		sessions: make(map[bpx.SessionId]*Session),
		ttl:      ttl,
	}

	if cleanupInterval > 0 {
		s.cleanupTicker = time.NewTicker(cleanupInterval)
		s.stopCleanup = make(chan struct{})

		go func() {
			for {
				select {
				case <-s.cleanupTicker.C:
					s.CleanupExpired()
				case <-s.stopCleanup:
					s.cleanupTicker.Stop()
					return
				}
			}
		}()
	}

	return s
}

// GetOrCreateSession resolves id to a live session, touching it; if id
// is nil or does not name a live session, a fresh id is minted and an
// empty session installed under it. Supplying an unknown id does NOT
// preserve the supplied id.
func (s *InMemoryStore) GetOrCreateSession(id *bpx.SessionId) bpx.SessionId {
	if id != nil {
		s.mu.RLock()
		session, ok := s.sessions[*id]
		s.mu.RUnlock()
		if ok {
			session.touch()
			return *id
		}
	}

	newID := bpx.GenerateSessionId()
	s.mu.Lock()
	s.sessions[newID] = newSession(newID)
	s.mu.Unlock()
	return newID
}

// GetVersion reports the version recorded for (session, path). ok is
// false if the session is unknown or the path has not been recorded.
func (s *InMemoryStore) GetVersion(session bpx.SessionId, path bpx.ResourcePath) (bpx.Version, bool) {
	s.mu.RLock()
	sess, ok := s.sessions[session]
	s.mu.RUnlock()
	if !ok {
		return "", false
	}
	return sess.getVersion(path)
}

// SetVersion upserts the version for (session, path). It is a no-op if
// the session is unknown; it never creates sessions.
func (s *InMemoryStore) SetVersion(session bpx.SessionId, path bpx.ResourcePath, version bpx.Version) {
	s.mu.RLock()
	sess, ok := s.sessions[session]
	s.mu.RUnlock()
	if !ok {
		return
	}
	sess.setVersion(path, version)
}

// CleanupExpired removes sessions whose last access predates the
// configured TTL.
func (s *InMemoryStore) CleanupExpired() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, sess := range s.sessions {
		if sess.isExpired(s.ttl) {
			delete(s.sessions, id)
		}
	}
}

// Close stops the cleanup goroutine, if one is running.
func (s *InMemoryStore) Close() {
	if s.cleanupTicker != nil {
		s.stopCleanup <- struct{}{}
	}
}

// SessionCount reports the number of live sessions.
func (s *InMemoryStore) SessionCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
