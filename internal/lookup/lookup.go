// Package lookup resolves postal codes to locations and state codes to
// static fee schedules. Data lives in Redis so it can be refreshed without a
// deploy; a compiled-in seed table answers when Redis has no entry or is
// unreachable.
package lookup

import (
	"context"
	"encoding/json"
	"fmt"

	"titlequote/internal/common/database"
	"titlequote/internal/common/errors"
	"titlequote/internal/common/logger"
	"titlequote/internal/models"
)

// Resolver is the lookup surface the quote flows depend on.
type Resolver interface {
	LookupLocation(ctx context.Context, postalCode string) (*models.LocationInfo, error)
	// LookupStateFees returns nil (not an error) for a state with no fee
	// table; callers treat a nil schedule as contributing nothing.
	LookupStateFees(ctx context.Context, stateCode string) (*models.StateFeeSchedule, error)
}

const (
	locationKeyPrefix  = "lookup:location:"
	stateFeesKeyPrefix = "lookup:statefees:"
)

// Service implements Resolver. The Redis client may be nil (tests, local
// runs); the seed tables then serve everything.
type Service struct {
	redis  *database.RedisClient
	logger logger.Logger
}

func NewService(redis *database.RedisClient, log logger.Logger) *Service {
	return &Service{
		redis:  redis,
		logger: log.WithFields(map[string]interface{}{"component": "lookup"}),
	}
}

func (s *Service) LookupLocation(ctx context.Context, postalCode string) (*models.LocationInfo, error) {
	if s.redis != nil {
		raw, err := s.redis.Get(ctx, locationKeyPrefix+postalCode)
		if err == nil {
			var loc models.LocationInfo
			if jsonErr := json.Unmarshal([]byte(raw), &loc); jsonErr == nil {
				return &loc, nil
			}
			s.logger.Warn("corrupt location entry, using seed table", map[string]interface{}{
				"postalCode": postalCode,
			})
		}
	}

	if loc, ok := seedLocations[postalCode]; ok {
		copied := loc
		return &copied, nil
	}
	return nil, errors.NewNotFoundError("location", fmt.Sprintf("postalCode: %s", postalCode))
}

func (s *Service) LookupStateFees(ctx context.Context, stateCode string) (*models.StateFeeSchedule, error) {
	if s.redis != nil {
		raw, err := s.redis.Get(ctx, stateFeesKeyPrefix+stateCode)
		if err == nil {
			var schedule models.StateFeeSchedule
			if jsonErr := json.Unmarshal([]byte(raw), &schedule); jsonErr == nil {
				return &schedule, nil
			}
			s.logger.Warn("corrupt state fee entry, using seed table", map[string]interface{}{
				"stateCode": stateCode,
			})
		}
	}

	if schedule, ok := seedStateFees[stateCode]; ok {
		copied := schedule
		return &copied, nil
	}
	return nil, nil
}
