// Package session persists quote negotiation state. The primary store is
// Redis with a native TTL; an in-memory store serves as a process-local
// resilience fallback when Redis is unreachable. Fallback mode offers no
// cross-process durability.
package session

import (
	"context"
	"errors"

	"titlequote/internal/models"
)

var (
	// ErrNotFound is returned for missing or expired sessions.
	ErrNotFound = errors.New("session not found")
	// ErrUnavailable is returned when the backing store is unreachable.
	ErrUnavailable = errors.New("session store unavailable")
)

// Store is the session persistence contract. No ordering is guaranteed
// between concurrent updates to the same session; the orchestrator re-checks
// state after every load.
type Store interface {
	Create(ctx context.Context, s *models.QuoteSession) (string, error)
	Get(ctx context.Context, id string) (*models.QuoteSession, error)
	Update(ctx context.Context, id string, patch *models.SessionPatch) error
	Delete(ctx context.Context, id string) error
}

const keyPrefix = "quote:session:"

func sessionKey(id string) string {
	return keyPrefix + id
}
