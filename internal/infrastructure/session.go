package infrastructure

import (
	"sync"

	"saccobot/internal/entities"
)

// SessionStore keeps in-flight flow state per identity, in memory for
// the lifetime of the process. A restart forgets all sessions; that is
// a documented limitation of single-process deployment, not a defect.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*entities.Session
}

func NewSessionStore() *SessionStore {
	return &SessionStore{
		sessions: make(map[string]*entities.Session),
	}
}

func (s *SessionStore) Get(identity string) (*entities.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[identity]
	return sess, ok
}

func (s *SessionStore) Put(identity string, sess *entities.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[identity] = sess
}

func (s *SessionStore) Delete(identity string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, identity)
}
