// Package orchestrator drives the official-quote negotiation state machine:
// start a session, run the discovery round, collect answers, and loop the
// answer round until the rate service produces a final fee schedule.
package orchestrator

import (
	"context"
	stderrors "errors"
	"time"

	"titlequote/internal/common/errors"
	"titlequote/internal/common/logger"
	"titlequote/internal/common/metrics"
	"titlequote/internal/common/observability"
	"titlequote/internal/lookup"
	"titlequote/internal/models"
	"titlequote/internal/questions"
	"titlequote/internal/ratesvc"
	"titlequote/internal/session"
)

// Result is the outcome of one negotiation operation. Exactly one of
// Questions or Fees is populated for non-errored states. The HTTP layer owns
// the wire rendering, status vocabulary included.
type Result struct {
	SessionID string
	Status    models.SessionState
	Location  *models.LocationInfo
	Questions []models.Question
	Fees      []models.FeeLineItem
	Comments  []string
	Error     *models.SessionError
}

type Orchestrator struct {
	store       session.Store
	rates       ratesvc.Caller
	lookup      lookup.Resolver
	obs         *observability.Observability
	logger      logger.Logger
	roundBudget time.Duration
}

func New(store session.Store, rates ratesvc.Caller, resolver lookup.Resolver, obs *observability.Observability, log logger.Logger, roundBudget time.Duration) *Orchestrator {
	return &Orchestrator{
		store:       store,
		rates:       rates,
		lookup:      resolver,
		obs:         obs,
		logger:      log.WithFields(map[string]interface{}{"component": "orchestrator"}),
		roundBudget: roundBudget,
	}
}

// Start opens a negotiation: resolve the location, create the session, and
// run the discovery round. Returns a completed result when the service can
// compute rates immediately, otherwise the normalized question list.
func (o *Orchestrator) Start(ctx context.Context, params models.QuoteRequestParams, forceQuestions bool) (*Result, error) {
	if err := params.Validate(); err != nil {
		return nil, errors.NewInvalidInputError(err.Error())
	}

	location, err := o.lookup.LookupLocation(ctx, params.PostalCode)
	if err != nil {
		return nil, err
	}

	sess := &models.QuoteSession{
		Params:   params,
		Location: *location,
		State:    models.SessionCreated,
	}
	sessionID, err := o.store.Create(ctx, sess)
	if err != nil {
		return nil, errors.NewStorageUnavailableError(err)
	}

	log := o.logger.WithFields(map[string]interface{}{"sessionId": sessionID})
	started := time.Now()

	ctx, cancel := context.WithTimeout(ctx, o.roundBudget)
	defer cancel()

	catalog, err := o.rates.Products(ctx, location.StateCode)
	if err != nil {
		return nil, o.roundFailure(ctx, sessionID, "start", err, log)
	}

	req := ratesvc.BuildDiscoveryRequest(params, *location, catalog, forceQuestions)
	raw, err := o.rates.Calculate(ctx, req)
	if err != nil {
		return nil, o.roundFailure(ctx, sessionID, "start", err, log)
	}

	outcome, err := ratesvc.ParseDiscovery(raw)
	if err != nil {
		return nil, o.roundFailure(ctx, sessionID, "start", err, log)
	}

	result, err := o.storeOutcome(ctx, sessionID, sess, outcome, log)
	if err != nil {
		return nil, err
	}
	result.Location = location
	result.SessionID = sessionID

	o.observeRound(ctx, "start", string(result.Status), started)
	return result, nil
}

// Submit validates and merges answers into the pending structure, re-invokes
// the rate service, and either completes the session or loops back to
// awaiting answers if the service asks for more.
func (o *Orchestrator) Submit(ctx context.Context, sessionID string, answers models.AnswerSet) (*Result, error) {
	sess, err := o.loadSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	log := o.logger.WithFields(map[string]interface{}{"sessionId": sessionID})

	// State is re-checked on every load: the store offers no ordering
	// between concurrent updates, so acting on anything but fresh state
	// would race (two simultaneous submits remain a documented race).
	switch sess.State {
	case models.SessionCompleted:
		// The caller may be retrying after a dropped response; hand back
		// the stored result without touching the rate service.
		return &Result{
			SessionID: sessionID,
			Status:    models.SessionCompleted,
			Fees:      sess.Fees,
			Location:  &sess.Location,
		}, nil
	case models.SessionErrored:
		return nil, errors.NewSessionNotResumableError(sessionID)
	case models.SessionAwaitingAnswers:
	default:
		return nil, errors.NewInvalidInputError("session is not awaiting answers")
	}

	if violations := questions.Validate(sess.Questions, answers); len(violations) > 0 {
		// Validation failures never mutate the session; the caller fixes
		// the answers and resubmits against the same round.
		return nil, errors.NewValidationFailedError(violations)
	}

	pending, err := ratesvc.ParsePendingXML(sess.PendingXML)
	if err != nil {
		return nil, o.markErrored(ctx, sessionID, err, log)
	}

	req, err := ratesvc.BuildAnswerRequest(pending, answers)
	if err != nil {
		return nil, errors.NewInvalidInputError(err.Error())
	}

	started := time.Now()
	ctx, cancel := context.WithTimeout(ctx, o.roundBudget)
	defer cancel()

	raw, err := o.rates.Calculate(ctx, req)
	if err != nil {
		return nil, o.roundFailure(ctx, sessionID, "submit", err, log)
	}

	outcome, err := ratesvc.ParseDiscovery(raw)
	if err != nil {
		return nil, o.roundFailure(ctx, sessionID, "submit", err, log)
	}

	sess.Answers = answers
	result, err := o.storeOutcome(ctx, sessionID, sess, outcome, log)
	if err != nil {
		return nil, err
	}
	result.SessionID = sessionID

	o.observeRound(ctx, "submit", string(result.Status), started)
	return result, nil
}

// Status reports the session's current state without contacting the rate
// service.
func (o *Orchestrator) Status(ctx context.Context, sessionID string) (*Result, error) {
	sess, err := o.loadSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return &Result{
		SessionID: sessionID,
		Status:    sess.State,
		Location:  &sess.Location,
		Questions: sess.Questions,
		Fees:      sess.Fees,
		Error:     sess.Error,
	}, nil
}

// Delete discards a session. Idempotent.
func (o *Orchestrator) Delete(ctx context.Context, sessionID string) error {
	return o.store.Delete(ctx, sessionID)
}

// storeOutcome persists a round's result: final fees for a rates-ready
// outcome, or the pending structure and normalized questions otherwise.
// Each round stores one or the other, never both.
func (o *Orchestrator) storeOutcome(ctx context.Context, sessionID string, sess *models.QuoteSession, outcome *ratesvc.DiscoveryOutcome, log logger.Logger) (*Result, error) {
	if outcome.RatesReady {
		schedule, err := o.lookup.LookupStateFees(ctx, sess.Location.StateCode)
		if err != nil {
			// A missing fee table never fails the quote; it just
			// contributes nothing.
			schedule = nil
		}
		fees := ApplyFeePolicy(outcome.Fees, sess.Params, sess.Location, schedule)

		completed := models.SessionCompleted
		empty := ""
		patch := &models.SessionPatch{
			State:      &completed,
			Fees:       fees,
			PendingXML: &empty,
			Questions:  []models.Question{},
			Answers:    sess.Answers,
		}
		if err := o.store.Update(ctx, sessionID, patch); err != nil {
			return nil, o.storageError(err)
		}
		log.Info("negotiation completed", map[string]interface{}{
			"feeCount": len(fees),
		})
		return &Result{
			Status:   models.SessionCompleted,
			Fees:     fees,
			Comments: outcome.Comments,
		}, nil
	}

	qs := questions.NormalizeAll(outcome.Questions)
	awaiting := models.SessionAwaitingAnswers
	patch := &models.SessionPatch{
		State:      &awaiting,
		PendingXML: &outcome.PendingXML,
		Questions:  qs,
		Answers:    sess.Answers,
	}
	if err := o.store.Update(ctx, sessionID, patch); err != nil {
		return nil, o.storageError(err)
	}
	log.Info("negotiation awaiting answers", map[string]interface{}{
		"questionCount": len(qs),
	})
	return &Result{
		Status:    models.SessionAwaitingAnswers,
		Questions: qs,
	}, nil
}

// roundFailure classifies an upstream failure. A timeout leaves the session
// in its prior state so the caller can retry the round; anything else moves
// it to errored.
func (o *Orchestrator) roundFailure(ctx context.Context, sessionID, operation string, err error, log logger.Logger) error {
	metrics.NegotiationRounds.WithLabelValues(operation, "failure").Inc()

	if stderrors.Is(err, context.DeadlineExceeded) || stderrors.Is(err, context.Canceled) {
		log.WithError(err).Warn("round timed out, session left retryable", nil)
		return errors.NewUpstreamFailureError(err)
	}
	return o.markErrored(ctx, sessionID, err, log)
}

func (o *Orchestrator) markErrored(ctx context.Context, sessionID string, err error, log logger.Logger) error {
	std := errors.AsStandard(err)
	errored := models.SessionErrored
	patch := &models.SessionPatch{
		State: &errored,
		Error: &models.SessionError{
			Code:    string(std.Code),
			Message: std.Message,
			Details: std.Details,
		},
	}
	// Detached context: the error must be recorded even when the round's
	// budget is already spent.
	storeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if updateErr := o.store.Update(storeCtx, sessionID, patch); updateErr != nil {
		log.WithError(updateErr).Error("failed to record session error", nil)
	}
	log.WithError(err).Error("negotiation errored", map[string]interface{}{
		"code": std.Code,
	})
	return std
}

func (o *Orchestrator) loadSession(ctx context.Context, sessionID string) (*models.QuoteSession, error) {
	sess, err := o.store.Get(ctx, sessionID)
	if err != nil {
		if stderrors.Is(err, session.ErrNotFound) {
			return nil, errors.NewNotFoundError("session", "sessionId: "+sessionID)
		}
		return nil, o.storageError(err)
	}
	return sess, nil
}

func (o *Orchestrator) storageError(err error) error {
	if stderrors.Is(err, session.ErrNotFound) {
		return errors.NewNotFoundError("session", err.Error())
	}
	return errors.NewStorageUnavailableError(err)
}

func (o *Orchestrator) observeRound(ctx context.Context, operation, outcome string, started time.Time) {
	metrics.NegotiationRounds.WithLabelValues(operation, outcome).Inc()
	if o.obs != nil {
		o.obs.RecordRound(ctx, operation, outcome)
		o.obs.RecordRoundDuration(ctx, operation, time.Since(started))
	}
}
