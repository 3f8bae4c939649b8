package orchestrator

import (
	"strings"

	"github.com/shopspring/decimal"

	"titlequote/internal/models"
)

// Agricultural conveyance surcharge: levied in two specific postal codes on
// the portion of the sale price above the threshold, purchases only.
var (
	agriculturalTaxZips = map[string]bool{
		"02801": true,
		"02804": true,
	}
	agriculturalTaxThreshold = decimal.NewFromInt(450000)
	agriculturalTaxRate      = decimal.NewFromFloat(0.04)
)

// Rhode Island's upstream settlement-product catalog is known to be
// defective (wrong fee schedule attached to the settlement product). For
// these states the settlement line is synthesized from the static state fee
// schedule and any upstream settlement line is discarded.
var settlementFromScheduleStates = map[string]bool{
	"RI": true,
}

// ApplyFeePolicy applies orchestration-level business rules to parsed fee
// rows before they are stored or returned:
//   - owner's title policy line omitted for refinances
//   - lender's title policy line omitted for cash purchases
//   - settlement line replaced from the state schedule where the upstream
//     catalog is defective
//   - agricultural tax surcharge appended for the affected postal codes
//
// Every amount is rounded to two decimals at this boundary.
func ApplyFeePolicy(fees []models.FeeLineItem, params models.QuoteRequestParams, location models.LocationInfo, schedule *models.StateFeeSchedule) []models.FeeLineItem {
	out := make([]models.FeeLineItem, 0, len(fees)+2)
	synthesizeSettlement := settlementFromScheduleStates[location.StateCode]

	for _, fee := range fees {
		desc := strings.ToLower(fee.Description)
		if params.TransactionKind == models.TransactionRefinance &&
			fee.Category == models.FeeTitle && strings.Contains(desc, "owner") {
			continue
		}
		if params.TransactionKind == models.TransactionCashPurchase &&
			fee.Category == models.FeeTitle && strings.Contains(desc, "lender") {
			continue
		}
		if synthesizeSettlement && fee.Category == models.FeeSettlement {
			continue
		}
		fee.BuyerFee = fee.BuyerFee.Round(2)
		fee.SellerFee = fee.SellerFee.Round(2)
		out = append(out, fee)
	}

	if synthesizeSettlement && schedule != nil && schedule.SettlementFee.IsPositive() {
		out = append(out, models.FeeLineItem{
			Description: "Settlement Fee",
			BuyerFee:    schedule.SettlementFee.Round(2),
			SellerFee:   decimal.Zero.Round(2),
			Category:    models.FeeSettlement,
			Guaranteed:  true,
		})
	}

	if tax := agriculturalTax(params); tax != nil {
		out = append(out, *tax)
	}

	return out
}

func agriculturalTax(params models.QuoteRequestParams) *models.FeeLineItem {
	if !agriculturalTaxZips[params.PostalCode] {
		return nil
	}
	if params.TransactionKind == models.TransactionRefinance {
		return nil
	}
	excess := params.SaleAmount.Sub(agriculturalTaxThreshold)
	if !excess.IsPositive() {
		return nil
	}
	return &models.FeeLineItem{
		Description: "Agricultural Tax",
		BuyerFee:    excess.Mul(agriculturalTaxRate).Round(2),
		SellerFee:   decimal.Zero,
		Category:    models.FeeTax,
		Guaranteed:  true,
	}
}
