package ratesvc

import (
	"fmt"

	"github.com/shopspring/decimal"

	"titlequote/internal/models"
)

// The external service rejects a zero loan amount; callers pass zero to mean
// "no loan", so a placeholder floor is substituted before forwarding.
var defaultLoanAmount = decimal.NewFromInt(100000)

// Default recording-document set used when the product catalog returns no
// recording documents for the jurisdiction.
const (
	defaultDeedPages     = 2
	defaultMortgagePages = 15
)

// BuildDiscoveryRequest constructs the first-round payload: the transaction,
// the property address, and a services block assembled from the product
// categories the catalog enables for this state.
func BuildDiscoveryRequest(params models.QuoteRequestParams, location models.LocationInfo, catalog *ProductCatalog, forceQuestions bool) *RateRequest {
	saleAmount := params.EffectiveSaleAmount()
	loanAmount := params.LoanAmount
	if loanAmount.IsZero() {
		loanAmount = defaultLoanAmount
	}

	txType := TxTypeSale
	if params.TransactionKind == models.TransactionRefinance {
		txType = TxTypeRefinance
	}
	cashPurchase := params.TransactionKind == models.TransactionCashPurchase

	services := &Services{}
	if catalog.HasOwnersPolicy {
		services.Policies = append(services.Policies, PolicyService{
			Code:   ProductOwnersPolicy,
			Amount: saleAmount.StringFixed(2),
		})
	}
	if catalog.HasLendersPolicy && !cashPurchase {
		services.Policies = append(services.Policies, PolicyService{
			Code:   ProductLendersPolicy,
			Amount: loanAmount.StringFixed(2),
		})
	}
	for _, code := range catalog.Endorsements {
		services.Endorsements = append(services.Endorsements, Endorsement{Code: code})
	}
	if catalog.HasSettlement {
		services.Settlement = &SettlementService{Code: ProductSettlement}
	}
	services.Recordings = recordingDocuments(params, catalog, saleAmount, loanAmount, cashPurchase)

	return &RateRequest{
		ForceQuestions: forceQuestions,
		Transaction: &Transaction{
			Type:       txType,
			SaleAmount: saleAmount.StringFixed(2),
			LoanAmount: loanAmount.StringFixed(2),
		},
		Property: &Property{
			City:   location.City,
			County: location.County,
			State:  location.StateCode,
			Zip:    params.PostalCode,
		},
		Services: services,
	}
}

// recordingDocuments returns the catalog's recording documents, or the
// default deed+mortgage set when the catalog has none. Page counts and
// consideration amounts are caller-overridable; the deed consideration
// defaults to the sale amount and the mortgage consideration to the loan
// amount. The mortgage document is loan-backed and is dropped for cash
// purchases.
func recordingDocuments(params models.QuoteRequestParams, catalog *ProductCatalog, saleAmount, loanAmount decimal.Decimal, cashPurchase bool) []RecordingDocument {
	deedConsideration := saleAmount
	if !params.DeedConsideration.IsZero() {
		deedConsideration = params.DeedConsideration
	}
	mortgageConsideration := loanAmount
	if !params.MortgageConsideration.IsZero() {
		mortgageConsideration = params.MortgageConsideration
	}

	if len(catalog.Recordings) > 0 {
		docs := make([]RecordingDocument, 0, len(catalog.Recordings))
		for _, p := range catalog.Recordings {
			if p.Code == "Mortgage" && cashPurchase {
				continue
			}
			consideration := deedConsideration
			if p.Code == "Mortgage" {
				consideration = mortgageConsideration
			}
			docs = append(docs, RecordingDocument{
				Type:          p.Code,
				Pages:         p.Pages,
				Consideration: consideration.StringFixed(2),
			})
		}
		return docs
	}

	deedPages := defaultDeedPages
	if params.DeedPages > 0 {
		deedPages = params.DeedPages
	}
	docs := []RecordingDocument{{
		Type:          "Deed",
		Pages:         deedPages,
		Consideration: deedConsideration.StringFixed(2),
	}}
	if !cashPurchase {
		mortgagePages := defaultMortgagePages
		if params.MortgagePages > 0 {
			mortgagePages = params.MortgagePages
		}
		docs = append(docs, RecordingDocument{
			Type:          "Mortgage",
			Pages:         mortgagePages,
			Consideration: mortgageConsideration.StringFixed(2),
		})
	}
	return docs
}

// MergeAnswers returns a copy of the pending block with the answer field of
// every prompt entry overwritten by the caller's value, matched by parameter
// code. Entries without a submitted answer keep their existing value; nothing
// else in the block is touched, so the echo stays structurally identical.
func MergeAnswers(pending *QuestionBlock, answers models.AnswerSet) (*QuestionBlock, error) {
	if pending == nil {
		return nil, fmt.Errorf("no pending structure to merge answers into")
	}

	merged := *pending
	merged.Parameters = make([]Parameter, len(pending.Parameters))
	copy(merged.Parameters, pending.Parameters)

	for i := range merged.Parameters {
		p := &merged.Parameters[i]
		if p.IsPrompt != "Y" {
			continue
		}
		value, ok := answers[p.Code]
		if !ok {
			continue
		}
		p.Answer = FormatAnswer(value)
	}

	return &merged, nil
}

// BuildAnswerRequest wraps the merged pending block into the second-round
// payload. The service recovers transaction context from the embedded
// original request fragment, so nothing else is sent.
func BuildAnswerRequest(pending *QuestionBlock, answers models.AnswerSet) (*RateRequest, error) {
	merged, err := MergeAnswers(pending, answers)
	if err != nil {
		return nil, err
	}
	return &RateRequest{Questions: merged}, nil
}

// FormatAnswer renders a polymorphic answer value in the service's wire form.
func FormatAnswer(value interface{}) string {
	switch v := value.(type) {
	case string:
		return v
	case bool:
		if v {
			return "true"
		}
		return "false"
	case float64:
		return decimal.NewFromFloat(v).String()
	case int:
		return fmt.Sprintf("%d", v)
	default:
		return fmt.Sprintf("%v", v)
	}
}
