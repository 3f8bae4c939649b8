// Package quickquote produces a stateless one-shot estimate. It runs a single
// discovery round with question forcing disabled and fails rather than
// persisting anything when the rate service still wants answers.
package quickquote

import (
	"context"
	"fmt"
	"time"

	"titlequote/internal/common/errors"
	"titlequote/internal/common/logger"
	"titlequote/internal/common/metrics"
	"titlequote/internal/lookup"
	"titlequote/internal/models"
	"titlequote/internal/orchestrator"
	"titlequote/internal/ratesvc"
)

// Estimate is a quick quote's response payload.
type Estimate struct {
	Location *models.LocationInfo `json:"locationInfo"`
	Fees     []models.FeeLineItem `json:"fees"`
	Comments []string             `json:"comments,omitempty"`
}

type Service struct {
	rates       ratesvc.Caller
	lookup      lookup.Resolver
	logger      logger.Logger
	roundBudget time.Duration
}

func NewService(rates ratesvc.Caller, resolver lookup.Resolver, log logger.Logger, roundBudget time.Duration) *Service {
	return &Service{
		rates:       rates,
		lookup:      resolver,
		logger:      log.WithFields(map[string]interface{}{"component": "quickquote"}),
		roundBudget: roundBudget,
	}
}

// Quote runs the one-shot flow. Returns UPSTREAM_FAILURE when the service
// asks questions instead of producing rates; callers that need the
// question-and-answer flow start a full negotiation instead.
func (s *Service) Quote(ctx context.Context, params models.QuoteRequestParams) (*Estimate, error) {
	if err := params.Validate(); err != nil {
		return nil, errors.NewInvalidInputError(err.Error())
	}

	location, err := s.lookup.LookupLocation(ctx, params.PostalCode)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.roundBudget)
	defer cancel()
	started := time.Now()

	catalog, err := s.rates.Products(ctx, location.StateCode)
	if err != nil {
		return nil, err
	}

	req := ratesvc.BuildDiscoveryRequest(params, *location, catalog, false)
	raw, err := s.rates.Calculate(ctx, req)
	if err != nil {
		return nil, err
	}

	outcome, err := ratesvc.ParseDiscovery(raw)
	if err != nil {
		return nil, err
	}
	if !outcome.RatesReady {
		metrics.NegotiationRounds.WithLabelValues("quick", "questions").Inc()
		return nil, errors.NewUpstreamFailureError(
			fmt.Errorf("rate service requires answers for this property; use the full quote flow"))
	}

	schedule, err := s.lookup.LookupStateFees(ctx, location.StateCode)
	if err != nil {
		schedule = nil
	}
	fees := orchestrator.ApplyFeePolicy(outcome.Fees, params, *location, schedule)

	metrics.NegotiationRounds.WithLabelValues("quick", "completed").Inc()
	s.logger.Info("quick quote completed", map[string]interface{}{
		"postalCode": params.PostalCode,
		"feeCount":   len(fees),
		"durationMs": time.Since(started).Milliseconds(),
	})

	return &Estimate{
		Location: location,
		Fees:     fees,
		Comments: outcome.Comments,
	}, nil
}
