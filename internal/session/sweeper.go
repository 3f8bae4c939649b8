package session

import (
	"context"
	"time"

	"titlequote/internal/common/logger"
	"titlequote/internal/common/metrics"
)

// Sweeper periodically reaps expired sessions from the memory store. Redis
// entries expire natively via TTL; this is housekeeping for fallback mode
// only and never sits on a negotiation's critical path.
type Sweeper struct {
	store    *MemoryStore
	interval time.Duration
	logger   logger.Logger
}

func NewSweeper(store *MemoryStore, interval time.Duration, log logger.Logger) *Sweeper {
	return &Sweeper{
		store:    store,
		interval: interval,
		logger:   log.WithFields(map[string]interface{}{"component": "session-sweeper"}),
	}
}

// Run blocks until the context is cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := s.store.Sweep(); removed > 0 {
				s.logger.Info("swept expired sessions", map[string]interface{}{
					"removed": removed,
				})
			}
			metrics.SessionsActive.Set(float64(s.store.Len()))
		}
	}
}
