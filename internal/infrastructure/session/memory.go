package session

import (
	"context"
	"sync"

	"carcost-bot/internal/application"
)

// MemoryStore is the single-process default.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[int64]application.Session
}

var _ application.SessionStore = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[int64]application.Session)}
}

func (s *MemoryStore) Get(ctx context.Context, chatID int64) (application.Session, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[chatID]
	return sess, ok, nil
}

func (s *MemoryStore) Put(ctx context.Context, chatID int64, sess application.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[chatID] = sess
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, chatID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, chatID)
	return nil
}
