package redis

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"sedetok-live/internal/game"
)

// SessionStore is a Redis-aware implementation of game.SessionStore.
// Notes:
//   - Sessions themselves stay in a local in-memory map so the in-process
//     broadcast and check-and-set logic keeps working untouched.
//   - Redis marks session liveness per PIN, which also reserves the PIN
//     across instances while a game is running.
//   - For true distribution you'd pair this with a pub/sub projector that
//     fans out session events.
type SessionStore struct {
	client   *redis.Client
	ttl      time.Duration
	mu       sync.RWMutex
	sessions map[string]*game.Session
}

func NewSessionStore(client *redis.Client, ttl time.Duration) *SessionStore {
	return &SessionStore{
		client:   client,
		ttl:      ttl,
		sessions: make(map[string]*game.Session),
	}
}

func (s *SessionStore) Put(session *game.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.PIN()] = session
	// best-effort liveness marker
	_ = s.client.Set(context.Background(), s.key(session.PIN()), "1", s.ttl).Err()
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
	if _, ok := s.sessions[pin]; !ok {
		return
	}
	delete(s.sessions, pin)
	_ = s.client.Del(context.Background(), s.key(pin)).Err()
}

func (s *SessionStore) key(pin string) string {
	return "game:session:" + pin
}
