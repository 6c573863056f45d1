package world

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// sessionTTL is how long an idle console session survives.
const sessionTTL = 30 * time.Minute

// Session is one operator console attached to the world.
type Session struct {
	ID       string
	Created  time.Time
	LastSeen time.Time
}

// SessionStore tracks console sessions and sweeps idle ones.
type SessionStore struct {
	mu       sync.Mutex
	sessions map[string]*Session
	now      func() time.Time
}

// NewSessionStore creates an empty session store.
func NewSessionStore() *SessionStore {
	return &SessionStore{
		sessions: make(map[string]*Session),
		now:      time.Now,
	}
}

// Create opens a new session and returns its ID.
func (s *SessionStore) Create() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := uuid.New().String()
	now := s.now()
	s.sessions[id] = &Session{ID: id, Created: now, LastSeen: now}
	return id
}

// Touch refreshes a session's idle timer. Unknown IDs are ignored.
func (s *SessionStore) Touch(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess := s.sessions[id]; sess != nil {
		sess.LastSeen = s.now()
	}
}

// Count returns the number of live sessions.
func (s *SessionStore) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Sweep drops sessions idle past the TTL and returns how many were
// dropped.
func (s *SessionStore) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	cutoff := s.now().Add(-sessionTTL)
	dropped := 0
	for id, sess := range s.sessions {
		if sess.LastSeen.Before(cutoff) {
			delete(s.sessions, id)
			dropped++
		}
	}
	return dropped
}

// StartSweeper sweeps periodically until the returned stop function is
// called.
func (s *SessionStore) StartSweeper(interval time.Duration) (stop func()) {
	ticker := time.NewTicker(interval)
	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-ticker.C:
				s.Sweep()
			case <-done:
				ticker.Stop()
				return
			}
		}
	}()
	return func() { close(done) }
}
