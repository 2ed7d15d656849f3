package memory

import (
	"context"
	"sync"

	"wlingo-quiz-service/internal/domain"
)

// SessionStore is an in-memory implementation of app.SessionRepository.
// Records never expire on their own; they live until Delete or restart.
type SessionStore struct {
	mu       sync.Mutex
	sessions map[string]*entry
}

// entry pairs a stored session with the lock serializing its updates.
type entry struct {
	mu      sync.Mutex
	session domain.Session
}

func NewSessionStore() *SessionStore {
	return &SessionStore{
		sessions: make(map[string]*entry),
	}
}

func (s *SessionStore) Create(_ context.Context, session domain.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[session.ID]; ok {
		return domain.ErrSessionExists
	}
	s.sessions[session.ID] = &entry{session: session.Clone()}
	return nil
}

func (s *SessionStore) Get(_ context.Context, id string) (domain.Session, error) {
	e, ok := s.lookup(id)
	if !ok {
		return domain.Session{}, domain.ErrSessionNotFound
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.session.Clone(), nil
}

// Update runs fn against a private copy while holding the session's lock and
// stores the copy only if fn succeeds.
func (s *SessionStore) Update(_ context.Context, id string, fn func(*domain.Session) error) (domain.Session, error) {
	e, ok := s.lookup(id)
	if !ok {
		return domain.Session{}, domain.ErrSessionNotFound
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	// A concurrent Delete may have removed the entry while we waited.
	if current, ok := s.lookup(id); !ok || current != e {
		return domain.Session{}, domain.ErrSessionNotFound
	}

	working := e.session.Clone()
	if err := fn(&working); err != nil {
		return domain.Session{}, err
	}
	e.session = working
	return working.Clone(), nil
}

func (s *SessionStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
	return nil
}

// Len reports how many sessions are held.
func (s *SessionStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

func (s *SessionStore) lookup(id string) (*entry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.sessions[id]
	return e, ok
}
