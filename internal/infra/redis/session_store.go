package redis

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"quizdeck/internal/session"
)

// SessionStore keeps live sessions in process (the state machine itself is
// not serializable mid-attempt) and marks their liveness in Redis so other
// gateway instances can observe which sessions exist.
type SessionStore struct {
	client   *redis.Client
	ttl      time.Duration
	mu       sync.RWMutex
	sessions map[string]*session.Session
}

func NewSessionStore(client *redis.Client, ttl time.Duration) *SessionStore {
	return &SessionStore{
		client:   client,
		ttl:      ttl,
		sessions: make(map[string]*session.Session),
	}
}

func (s *SessionStore) GetOrCreate(id string, create func() *session.Session) *session.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.sessions[id]; ok {
		return existing
	}
	created := create()
	s.sessions[id] = created
	// best-effort liveness marker
	_ = s.client.Set(context.Background(), s.key(id), "1", s.ttl).Err()
	return created
}

func (s *SessionStore) Get(id string) (*session.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	existing, ok := s.sessions[id]
	return existing, ok
}

func (s *SessionStore) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.sessions[id]; ok {
		existing.Reset()
		delete(s.sessions, id)
		_ = s.client.Del(context.Background(), s.key(id)).Err()
	}
}

func (s *SessionStore) key(id string) string {
	return "quiz:session:" + id
}
