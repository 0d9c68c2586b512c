package session

import (
	"context"
	"sync"

	"railboard/internal/model"
)

// MemoryStore keeps sessions in process memory. It is the default when no
// Redis address is configured and the backend of choice in tests.
type MemoryStore struct {
	mu     sync.RWMutex
	tokens map[string]string
	users  map[string]model.User
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		tokens: make(map[string]string),
		users:  make(map[string]model.User),
	}
}

// Save stores token and profile under the same lock.
func (s *MemoryStore) Save(ctx context.Context, sid, token string, user model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[sid] = token
	s.users[sid] = user
	return nil
}

// Token returns the stored token or ErrNoSession.
func (s *MemoryStore) Token(ctx context.Context, sid string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	token, ok := s.tokens[sid]
	if !ok {
		return "", ErrNoSession
	}
	return token, nil
}

// User returns the stored profile or ErrNoSession.
func (s *MemoryStore) User(ctx context.Context, sid string) (*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	user, ok := s.users[sid]
	if !ok {
		return nil, ErrNoSession
	}
	return &user, nil
}

// Clear removes token and profile under the same lock.
func (s *MemoryStore) Clear(ctx context.Context, sid string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tokens, sid)
	delete(s.users, sid)
	return nil
}
