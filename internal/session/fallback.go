package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"titlequote/internal/common/logger"
	"titlequote/internal/common/metrics"
	"titlequote/internal/models"
)

// FallbackStore wraps a primary store with a circuit breaker and routes to a
// process-local memory store while the breaker is open. This keeps the
// orchestrator functioning through a primary-store outage; sessions created
// in fallback mode live only in this process.
type FallbackStore struct {
	primary  Store
	memory   *MemoryStore
	cooldown time.Duration
	logger   logger.Logger

	mu        sync.Mutex
	openUntil time.Time
}

func NewFallbackStore(primary Store, memory *MemoryStore, cooldown time.Duration, log logger.Logger) *FallbackStore {
	return &FallbackStore{
		primary:  primary,
		memory:   memory,
		cooldown: cooldown,
		logger:   log.WithFields(map[string]interface{}{"component": "session-store"}),
	}
}

func (s *FallbackStore) breakerOpen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return time.Now().Before(s.openUntil)
}

func (s *FallbackStore) trip(err error) {
	s.mu.Lock()
	s.openUntil = time.Now().Add(s.cooldown)
	s.mu.Unlock()
	metrics.StoreFallbacks.Inc()
	s.logger.WithError(err).Warn("primary session store unreachable, serving from memory", map[string]interface{}{
		"cooldown": s.cooldown.String(),
	})
}

func (s *FallbackStore) Create(ctx context.Context, sess *models.QuoteSession) (string, error) {
	if !s.breakerOpen() {
		id, err := s.primary.Create(ctx, sess)
		if err == nil {
			return id, nil
		}
		if !errors.Is(err, ErrUnavailable) {
			return "", err
		}
		s.trip(err)
	}
	id, err := s.memory.Create(ctx, sess)
	if err == nil {
		metrics.SessionsActive.Set(float64(s.memory.Len()))
	}
	return id, err
}

func (s *FallbackStore) Get(ctx context.Context, id string) (*models.QuoteSession, error) {
	if !s.breakerOpen() {
		sess, err := s.primary.Get(ctx, id)
		if err == nil {
			return sess, nil
		}
		if errors.Is(err, ErrNotFound) {
			// A session created during an outage exists only in memory.
			return s.memory.Get(ctx, id)
		}
		if !errors.Is(err, ErrUnavailable) {
			return nil, err
		}
		s.trip(err)
	}
	return s.memory.Get(ctx, id)
}

func (s *FallbackStore) Update(ctx context.Context, id string, patch *models.SessionPatch) error {
	if !s.breakerOpen() {
		err := s.primary.Update(ctx, id, patch)
		if err == nil {
			return nil
		}
		if errors.Is(err, ErrNotFound) {
			return s.memory.Update(ctx, id, patch)
		}
		if !errors.Is(err, ErrUnavailable) {
			return err
		}
		s.trip(err)
	}
	return s.memory.Update(ctx, id, patch)
}

func (s *FallbackStore) Delete(ctx context.Context, id string) error {
	var primaryErr error
	if !s.breakerOpen() {
		primaryErr = s.primary.Delete(ctx, id)
		if primaryErr != nil && errors.Is(primaryErr, ErrUnavailable) {
			s.trip(primaryErr)
			primaryErr = nil
		}
	}
	// Delete is idempotent; always clear the memory copy too.
	if err := s.memory.Delete(ctx, id); err != nil {
		return err
	}
	return primaryErr
}
