package session

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/edytjahyadi/AI-Fashion/internal/domain"
)

// Store holds live sessions in memory. All state changes go through Dispatch,
// which applies the pure reducer under the store lock so each action is
// atomic; there is no other mutation path.
type Store struct {
	mu       sync.Mutex
	sessions map[string]domain.Session
	now      func() time.Time
}

// NewStore creates an empty session store.
func NewStore() *Store {
	return &Store{
		sessions: make(map[string]domain.Session),
		now:      time.Now,
	}
}

// Create registers a new idle session and returns it.
func (s *Store) Create() domain.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess := domain.NewSession(uuid.NewString(), s.now())
	s.sessions[sess.ID] = sess
	return sess
}

// Get returns the current snapshot of a session.
func (s *Store) Get(id string) (domain.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return domain.Session{}, fmt.Errorf("%w: %s", domain.ErrSessionNotFound, id)
	}
	return sess, nil
}

// Dispatch applies one action to a session and returns the resulting state.
// A rejected action leaves the stored session untouched.
func (s *Store) Dispatch(id string, action domain.Action) (domain.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return domain.Session{}, fmt.Errorf("%w: %s", domain.ErrSessionNotFound, id)
	}
	next, err := domain.Reduce(sess, action, s.now())
	if err != nil {
		return sess, err
	}
	s.sessions[id] = next
	return next, nil
}

// Delete removes a session entirely.
func (s *Store) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
}
