package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"titlequote/internal/models"
)

// MemoryStore keeps sessions in a process-local map. It backs the resilience
// fallback and tests; expired entries are filtered on read and reaped by the
// sweeper.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*models.QuoteSession
	ttl      time.Duration
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]*models.QuoteSession),
		ttl:      ttl,
	}
}

func (s *MemoryStore) Create(_ context.Context, sess *models.QuoteSession) (string, error) {
	now := time.Now().UTC()
	sess.ID = uuid.NewString()
	sess.CreatedAt = now
	sess.UpdatedAt = now
	sess.ExpiresAt = now.Add(s.ttl)

	copied := *sess
	s.mu.Lock()
	s.sessions[sess.ID] = &copied
	s.mu.Unlock()
	return sess.ID, nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (*models.QuoteSession, error) {
	s.mu.RLock()
	sess, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok || sess.IsExpired() {
		return nil, ErrNotFound
	}
	copied := *sess
	return &copied, nil
}

func (s *MemoryStore) Update(_ context.Context, id string, patch *models.SessionPatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok || sess.IsExpired() {
		return ErrNotFound
	}
	patch.Apply(sess)
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	delete(s.sessions, id)
	s.mu.Unlock()
	return nil
}

// Sweep removes expired sessions and returns how many were dropped.
func (s *MemoryStore) Sweep() int {
	now := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for id, sess := range s.sessions {
		if now.After(sess.ExpiresAt) {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed
}

// Len reports the number of live entries, expired included until swept.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
