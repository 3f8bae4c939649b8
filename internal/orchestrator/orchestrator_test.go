package orchestrator

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"titlequote/internal/common/errors"
	"titlequote/internal/common/logger"
	"titlequote/internal/lookup"
	"titlequote/internal/models"
	"titlequote/internal/ratesvc"
	"titlequote/internal/session"
)

const readyResponse = `<RateResponse>
	<Status calculateRatesIndicator="Y"/>
	<Fees>
		<Fee description="Owner's Title Insurance" category="title" guaranteed="Y">
			<Payment payer="Buyer" estimatedAmount="1250.00"/>
		</Fee>
		<Fee description="Lender's Title Insurance" category="title">
			<Payment payer="Buyer" estimatedAmount="875.00"/>
		</Fee>
	</Fees>
	<Comments><Comment>Rates valid 30 days.</Comment></Comments>
</RateResponse>`

const questionsResponse = `<RateResponse>
	<Status calculateRatesIndicator="N"/>
	<Questions>
		<Parameter linkKey="a" code="vacant_land" isPrompt="Y" prompt="Is the land vacant?" valueType="boolean" required="Y"/>
		<Parameter linkKey="b" code="rate_table" isPrompt="N" answer="T4"/>
		<OriginalRequest><Transaction type="Sale"/></OriginalRequest>
	</Questions>
</RateResponse>`

const secondRoundResponse = `<RateResponse>
	<Status calclateRatesIndicator="Y"/>
	<Fees>
		<Fee description="Owner's Title Insurance" category="title">
			<Payment payer="Buyer" actualAmount="1310.00"/>
		</Fee>
	</Fees>
</RateResponse>`

const moreQuestionsResponse = `<RateResponse>
	<Status calculateRatesIndicator="N"/>
	<Questions>
		<Parameter linkKey="c" code="acreage" isPrompt="Y" prompt="How many acres?" valueType="integer" required="Y"/>
		<OriginalRequest><Transaction type="Sale"/></OriginalRequest>
	</Questions>
</RateResponse>`

// fakeCaller replays scripted Calculate responses and counts upstream calls.
type fakeCaller struct {
	responses    []interface{} // string body or error, consumed in order
	productCalls int
	calcCalls    int
	lastRequest  *ratesvc.RateRequest
}

func (f *fakeCaller) Products(ctx context.Context, stateCode string) (*ratesvc.ProductCatalog, error) {
	f.productCalls++
	return &ratesvc.ProductCatalog{
		HasOwnersPolicy:  true,
		HasLendersPolicy: true,
		HasSettlement:    true,
	}, nil
}

func (f *fakeCaller) Calculate(ctx context.Context, req *ratesvc.RateRequest) ([]byte, error) {
	f.calcCalls++
	f.lastRequest = req
	if len(f.responses) == 0 {
		return nil, errors.NewUpstreamFailureError(context.Canceled)
	}
	next := f.responses[0]
	f.responses = f.responses[1:]
	if err, ok := next.(error); ok {
		return nil, err
	}
	return []byte(next.(string)), nil
}

func newTestOrchestrator(t *testing.T, caller ratesvc.Caller) (*Orchestrator, *session.MemoryStore) {
	t.Helper()
	store := session.NewMemoryStore(time.Hour)
	resolver := lookup.NewService(nil, logger.Nop())
	orch := New(store, caller, resolver, nil, logger.Nop(), 5*time.Second)
	return orch, store
}

func purchaseParams() models.QuoteRequestParams {
	return models.QuoteRequestParams{
		PostalCode:      "10001",
		SaleAmount:      decimal.NewFromInt(500000),
		LoanAmount:      decimal.NewFromInt(400000),
		TransactionKind: models.TransactionPurchase,
	}
}

func TestStartCompletesImmediately(t *testing.T) {
	caller := &fakeCaller{responses: []interface{}{readyResponse}}
	orch, _ := newTestOrchestrator(t, caller)

	result, err := orch.Start(context.Background(), purchaseParams(), false)
	require.NoError(t, err)

	assert.Equal(t, models.SessionCompleted, result.Status)
	assert.NotEmpty(t, result.SessionID)
	assert.Len(t, result.Fees, 2)
	assert.Empty(t, result.Questions)
	assert.Equal(t, []string{"Rates valid 30 days."}, result.Comments)
	assert.Equal(t, "New York", result.Location.City)
	assert.Equal(t, 1, caller.calcCalls)
}

func TestStartReturnsQuestions(t *testing.T) {
	caller := &fakeCaller{responses: []interface{}{questionsResponse}}
	orch, _ := newTestOrchestrator(t, caller)

	result, err := orch.Start(context.Background(), purchaseParams(), false)
	require.NoError(t, err)

	assert.Equal(t, models.SessionAwaitingAnswers, result.Status)
	require.Len(t, result.Questions, 1)
	assert.Equal(t, "vacant_land", result.Questions[0].Code)
	assert.Equal(t, models.AnswerBoolean, result.Questions[0].Type)
	assert.True(t, result.Questions[0].Required)
	assert.Empty(t, result.Fees)
}

func TestStartRejectsInvalidParams(t *testing.T) {
	caller := &fakeCaller{}
	orch, _ := newTestOrchestrator(t, caller)

	_, err := orch.Start(context.Background(), models.QuoteRequestParams{PostalCode: "123"}, false)
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeInvalidInput, errors.AsStandard(err).Code)
	assert.Equal(t, 0, caller.calcCalls)
}

func TestStartUnknownZip(t *testing.T) {
	caller := &fakeCaller{}
	orch, _ := newTestOrchestrator(t, caller)

	params := purchaseParams()
	params.PostalCode = "99999"
	_, err := orch.Start(context.Background(), params, false)
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeNotFound, errors.AsStandard(err).Code)
	assert.Equal(t, 0, caller.productCalls)
}

func TestSubmitCompletesNegotiation(t *testing.T) {
	caller := &fakeCaller{responses: []interface{}{questionsResponse, secondRoundResponse}}
	orch, _ := newTestOrchestrator(t, caller)
	ctx := context.Background()

	started, err := orch.Start(ctx, purchaseParams(), false)
	require.NoError(t, err)

	result, err := orch.Submit(ctx, started.SessionID, models.AnswerSet{"vacant_land": true})
	require.NoError(t, err)

	assert.Equal(t, models.SessionCompleted, result.Status)
	require.Len(t, result.Fees, 1)
	assert.Equal(t, "1310.00", result.Fees[0].BuyerFee.StringFixed(2))
	assert.Equal(t, 2, caller.calcCalls)

	// The answer round sends only the question block, answer patched in and
	// the echo anchor intact.
	req := caller.lastRequest
	require.NotNil(t, req.Questions)
	assert.Nil(t, req.Transaction)
	assert.Equal(t, "true", req.Questions.Parameters[0].Answer)
	assert.Equal(t, "T4", req.Questions.Parameters[1].Answer)
	require.NotNil(t, req.Questions.OriginalRequest)
}

func TestSubmitLoopsOnMoreQuestions(t *testing.T) {
	caller := &fakeCaller{responses: []interface{}{
		questionsResponse,
		moreQuestionsResponse,
		secondRoundResponse,
	}}
	orch, _ := newTestOrchestrator(t, caller)
	ctx := context.Background()

	started, err := orch.Start(ctx, purchaseParams(), false)
	require.NoError(t, err)

	// First submit: the service asks a follow-up instead of completing.
	round2, err := orch.Submit(ctx, started.SessionID, models.AnswerSet{"vacant_land": true})
	require.NoError(t, err)
	assert.Equal(t, models.SessionAwaitingAnswers, round2.Status)
	require.Len(t, round2.Questions, 1)
	assert.Equal(t, "acreage", round2.Questions[0].Code)

	// Second submit answers the follow-up and completes.
	final, err := orch.Submit(ctx, started.SessionID, models.AnswerSet{"acreage": float64(12)})
	require.NoError(t, err)
	assert.Equal(t, models.SessionCompleted, final.Status)
	assert.Equal(t, 3, caller.calcCalls)
}

func TestSubmitValidationFailureKeepsSession(t *testing.T) {
	caller := &fakeCaller{responses: []interface{}{questionsResponse, secondRoundResponse}}
	orch, store := newTestOrchestrator(t, caller)
	ctx := context.Background()

	started, err := orch.Start(ctx, purchaseParams(), false)
	require.NoError(t, err)

	// Missing required answer: rejected without touching the rate service
	// or the session.
	_, err = orch.Submit(ctx, started.SessionID, models.AnswerSet{})
	require.Error(t, err)
	std := errors.AsStandard(err)
	assert.Equal(t, errors.ErrCodeValidationFailed, std.Code)
	assert.Contains(t, std.Metadata, "violations")
	assert.Equal(t, 1, caller.calcCalls)

	sess, err := store.Get(ctx, started.SessionID)
	require.NoError(t, err)
	assert.Equal(t, models.SessionAwaitingAnswers, sess.State)

	// A corrected resubmission against the same round succeeds.
	result, err := orch.Submit(ctx, started.SessionID, models.AnswerSet{"vacant_land": false})
	require.NoError(t, err)
	assert.Equal(t, models.SessionCompleted, result.Status)
}

func TestSubmitOnCompletedSessionReplaysResult(t *testing.T) {
	caller := &fakeCaller{responses: []interface{}{readyResponse}}
	orch, _ := newTestOrchestrator(t, caller)
	ctx := context.Background()

	started, err := orch.Start(ctx, purchaseParams(), false)
	require.NoError(t, err)
	require.Equal(t, models.SessionCompleted, started.Status)

	// Repeated submits return the stored fees without any upstream call.
	for i := 0; i < 2; i++ {
		result, err := orch.Submit(ctx, started.SessionID, models.AnswerSet{})
		require.NoError(t, err)
		assert.Equal(t, models.SessionCompleted, result.Status)
		assert.Len(t, result.Fees, 2)
	}
	assert.Equal(t, 1, caller.calcCalls)
}

func TestSubmitOnErroredSessionNotResumable(t *testing.T) {
	caller := &fakeCaller{responses: []interface{}{
		questionsResponse,
		"<garbage",
	}}
	orch, _ := newTestOrchestrator(t, caller)
	ctx := context.Background()

	started, err := orch.Start(ctx, purchaseParams(), false)
	require.NoError(t, err)

	_, err = orch.Submit(ctx, started.SessionID, models.AnswerSet{"vacant_land": true})
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeMalformedUpstream, errors.AsStandard(err).Code)

	_, err = orch.Submit(ctx, started.SessionID, models.AnswerSet{"vacant_land": true})
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeSessionNotResumed, errors.AsStandard(err).Code)
}

func TestSubmitTimeoutLeavesSessionRetryable(t *testing.T) {
	caller := &fakeCaller{responses: []interface{}{
		questionsResponse,
		context.DeadlineExceeded,
		secondRoundResponse,
	}}
	orch, store := newTestOrchestrator(t, caller)
	ctx := context.Background()

	started, err := orch.Start(ctx, purchaseParams(), false)
	require.NoError(t, err)

	_, err = orch.Submit(ctx, started.SessionID, models.AnswerSet{"vacant_land": true})
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeUpstreamFailure, errors.AsStandard(err).Code)

	// Timeouts never consume the session; the same round can be retried.
	sess, err := store.Get(ctx, started.SessionID)
	require.NoError(t, err)
	assert.Equal(t, models.SessionAwaitingAnswers, sess.State)

	result, err := orch.Submit(ctx, started.SessionID, models.AnswerSet{"vacant_land": true})
	require.NoError(t, err)
	assert.Equal(t, models.SessionCompleted, result.Status)
}

func TestSubmitUnknownSession(t *testing.T) {
	caller := &fakeCaller{}
	orch, _ := newTestOrchestrator(t, caller)

	_, err := orch.Submit(context.Background(), "no-such-session", models.AnswerSet{})
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeNotFound, errors.AsStandard(err).Code)
}

func TestStatusIsIdempotent(t *testing.T) {
	caller := &fakeCaller{responses: []interface{}{questionsResponse}}
	orch, _ := newTestOrchestrator(t, caller)
	ctx := context.Background()

	started, err := orch.Start(ctx, purchaseParams(), false)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		status, err := orch.Status(ctx, started.SessionID)
		require.NoError(t, err)
		assert.Equal(t, models.SessionAwaitingAnswers, status.Status)
		require.Len(t, status.Questions, 1)
	}
	assert.Equal(t, 1, caller.calcCalls)
}

func TestRefinanceDropsOwnersPolicyFromResult(t *testing.T) {
	caller := &fakeCaller{responses: []interface{}{readyResponse}}
	orch, _ := newTestOrchestrator(t, caller)

	params := models.QuoteRequestParams{
		PostalCode:      "10001",
		LoanAmount:      decimal.NewFromInt(250000),
		TransactionKind: models.TransactionRefinance,
	}
	result, err := orch.Start(context.Background(), params, false)
	require.NoError(t, err)

	require.Len(t, result.Fees, 1)
	assert.Equal(t, "Lender's Title Insurance", result.Fees[0].Description)
}

func TestAgriculturalZipQuoteIncludesTax(t *testing.T) {
	caller := &fakeCaller{responses: []interface{}{readyResponse}}
	orch, _ := newTestOrchestrator(t, caller)

	params := models.QuoteRequestParams{
		PostalCode:      "02801",
		SaleAmount:      decimal.NewFromInt(600000),
		LoanAmount:      decimal.NewFromInt(480000),
		TransactionKind: models.TransactionPurchase,
	}
	result, err := orch.Start(context.Background(), params, false)
	require.NoError(t, err)
	require.Equal(t, models.SessionCompleted, result.Status)

	tax := findFee(t, result.Fees, "Agricultural Tax")
	assert.Equal(t, "6000.00", tax.BuyerFee.StringFixed(2))
}

func TestDeleteSession(t *testing.T) {
	caller := &fakeCaller{responses: []interface{}{questionsResponse}}
	orch, _ := newTestOrchestrator(t, caller)
	ctx := context.Background()

	started, err := orch.Start(ctx, purchaseParams(), false)
	require.NoError(t, err)

	require.NoError(t, orch.Delete(ctx, started.SessionID))
	_, err = orch.Status(ctx, started.SessionID)
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeNotFound, errors.AsStandard(err).Code)
}
