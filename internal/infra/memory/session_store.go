package memory

import (
	"sync"

	"quizdeck/internal/session"
)

// SessionStore tracks the live quiz sessions by connection id.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*session.Session
}

func NewSessionStore() *SessionStore {
	return &SessionStore{
		sessions: make(map[string]*session.Session),
	}
}

// GetOrCreate returns the existing session for the id, or registers the one
// produced by create.
func (s *SessionStore) GetOrCreate(id string, create func() *session.Session) *session.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.sessions[id]; ok {
		return existing
	}
	created := create()
	s.sessions[id] = created
	return created
}

func (s *SessionStore) Get(id string) (*session.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	existing, ok := s.sessions[id]
	return existing, ok
}

// Delete resets and drops the session, discarding any in-flight responses.
func (s *SessionStore) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.sessions[id]; ok {
		existing.Reset()
		delete(s.sessions, id)
	}
}
