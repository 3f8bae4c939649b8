package ratesvc

import (
	"encoding/xml"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"titlequote/internal/common/errors"
	"titlequote/internal/models"
)

// DiscoveryOutcome is the tagged result of a discovery round: either rates
// are ready, or questions are pending along with the verbatim sub-structure
// that must be echoed on the answer round.
type DiscoveryOutcome struct {
	RatesReady bool

	// Populated when RatesReady.
	Fees     []models.FeeLineItem
	Comments []string

	// Populated when questions are pending. Questions holds only the
	// prompt-flagged descriptors; Pending retains every descriptor plus the
	// embedded original request, and PendingXML is its serialized form for
	// session persistence.
	Questions  []Parameter
	Pending    *QuestionBlock
	PendingXML string
}

// ParseDiscovery interprets a first-round (or looped) response.
func ParseDiscovery(raw []byte) (*DiscoveryOutcome, error) {
	var resp RateResponse
	if err := xml.Unmarshal(raw, &resp); err != nil {
		return nil, errors.NewMalformedUpstreamError(fmt.Sprintf("unparsable response: %v", err))
	}
	if resp.Status == nil {
		return nil, errors.NewMalformedUpstreamError("response missing Status node")
	}

	if resp.Status.RatesReady() {
		if resp.Fees == nil {
			return nil, errors.NewMalformedUpstreamError("rates-ready response missing Fees node")
		}
		fees, err := convertFees(resp.Fees)
		if err != nil {
			return nil, err
		}
		return &DiscoveryOutcome{
			RatesReady: true,
			Fees:       fees,
			Comments:   resp.Comments,
		}, nil
	}

	if resp.Questions == nil || len(resp.Questions.Parameters) == 0 {
		return nil, errors.NewMalformedUpstreamError("deferred response carries no questions")
	}

	prompts := make([]Parameter, 0, len(resp.Questions.Parameters))
	for _, p := range resp.Questions.Parameters {
		if p.IsPrompt == "Y" {
			prompts = append(prompts, p)
		}
	}
	if len(prompts) == 0 {
		return nil, errors.NewMalformedUpstreamError("deferred response carries no prompt questions")
	}

	pendingXML, err := SerializeQuestions(resp.Questions)
	if err != nil {
		return nil, errors.NewMalformedUpstreamError(fmt.Sprintf("cannot re-serialize question block: %v", err))
	}

	return &DiscoveryOutcome{
		Questions:  prompts,
		Pending:    resp.Questions,
		PendingXML: pendingXML,
	}, nil
}

// ParseFinal extracts the fee collection from a response that must carry
// fees. Callers that cannot accept another question round use it in place of
// ParseDiscovery; the orchestrator itself always parses via ParseDiscovery so
// the service may keep asking follow-ups.
func ParseFinal(raw []byte) ([]models.FeeLineItem, error) {
	var resp RateResponse
	if err := xml.Unmarshal(raw, &resp); err != nil {
		return nil, errors.NewMalformedUpstreamError(fmt.Sprintf("unparsable response: %v", err))
	}
	if resp.Fees == nil {
		return nil, errors.NewMalformedUpstreamError("final response missing Fees node")
	}
	return convertFees(resp.Fees)
}

// convertFees folds each fee's payment sub-entries into a single buyer and
// seller amount, preferring the actual amount over the estimate per entry.
func convertFees(block *FeeBlock) ([]models.FeeLineItem, error) {
	items := make([]models.FeeLineItem, 0, len(block.Fees))
	for _, fee := range block.Fees {
		buyer := decimal.Zero
		seller := decimal.Zero
		for _, payment := range fee.Payments {
			amount, err := paymentAmount(payment)
			if err != nil {
				return nil, errors.NewMalformedUpstreamError(
					fmt.Sprintf("fee %q: %v", fee.Description, err))
			}
			switch payment.Payer {
			case "Buyer":
				buyer = buyer.Add(amount)
			case "Seller":
				seller = seller.Add(amount)
			default:
				return nil, errors.NewMalformedUpstreamError(
					fmt.Sprintf("fee %q: unknown payer role %q", fee.Description, payment.Payer))
			}
		}
		items = append(items, models.FeeLineItem{
			Description: fee.Description,
			BuyerFee:    buyer.Round(2),
			SellerFee:   seller.Round(2),
			Category:    feeCategory(fee.Category),
			Guaranteed:  isAffirmative(fee.Guaranteed),
		})
	}
	return items, nil
}

func paymentAmount(p Payment) (decimal.Decimal, error) {
	raw := p.ActualAmount
	if raw == "" {
		raw = p.EstimatedAmount
	}
	if raw == "" {
		return decimal.Zero, fmt.Errorf("payment entry carries no amount")
	}
	amount, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("unparsable payment amount %q", raw)
	}
	if amount.IsNegative() {
		return decimal.Zero, fmt.Errorf("negative payment amount %q", raw)
	}
	return amount, nil
}

func feeCategory(raw string) models.FeeCategory {
	switch strings.ToLower(raw) {
	case "title":
		return models.FeeTitle
	case "settlement", "closing":
		return models.FeeSettlement
	case "recording":
		return models.FeeRecording
	case "tax":
		return models.FeeTax
	default:
		return models.FeeOther
	}
}

// ParsePendingXML rehydrates a persisted question block.
func ParsePendingXML(s string) (*QuestionBlock, error) {
	var block QuestionBlock
	if err := xml.Unmarshal([]byte(s), &block); err != nil {
		return nil, errors.NewMalformedUpstreamError(fmt.Sprintf("stored pending structure unparsable: %v", err))
	}
	return &block, nil
}

// SerializeQuestions renders a question block in its wire form.
func SerializeQuestions(block *QuestionBlock) (string, error) {
	out, err := xml.Marshal(block)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// ParseProductCatalog interprets a product-list response.
func ParseProductCatalog(raw []byte) (*ProductCatalog, error) {
	var resp ProductCatalogResponse
	if err := xml.Unmarshal(raw, &resp); err != nil {
		return nil, errors.NewMalformedUpstreamError(fmt.Sprintf("unparsable product catalog: %v", err))
	}
	return CatalogFromResponse(&resp), nil
}
