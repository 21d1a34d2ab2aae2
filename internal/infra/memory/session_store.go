package memory

import (
	"sync"

	"sedetok-live/internal/game"
)

// SessionStore is an in-memory implementation of game.SessionStore,
// keyed by the game PIN.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*game.Session
}

func NewSessionStore() *SessionStore {
	return &SessionStore{
		sessions: make(map[string]*game.Session),
	}
}

func (s *SessionStore) Put(session *game.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.PIN()] = session
}

func (s *SessionStore) Get(pin string) (*game.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[pin]
	return session, ok
}

func (s *SessionStore) Delete(pin string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, pin)
}
