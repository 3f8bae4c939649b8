package models

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// TransactionKind enumerates the supported transaction types.
type TransactionKind string

const (
	TransactionPurchase     TransactionKind = "Purchase"
	TransactionCashPurchase TransactionKind = "CashPurchase"
	TransactionRefinance    TransactionKind = "Refinance"
)

// ParseTransactionKind normalizes caller-supplied transaction kind strings.
// "Cash Purchase" (with a space) is accepted for webapp compatibility.
func ParseTransactionKind(s string) (TransactionKind, error) {
	switch strings.ReplaceAll(strings.TrimSpace(s), " ", "") {
	case "Purchase":
		return TransactionPurchase, nil
	case "CashPurchase":
		return TransactionCashPurchase, nil
	case "Refinance":
		return TransactionRefinance, nil
	}
	return "", fmt.Errorf("unknown transaction kind %q", s)
}

// QuoteRequestParams is the immutable input for a quote negotiation.
type QuoteRequestParams struct {
	PostalCode      string          `json:"postalCode"`
	SaleAmount      decimal.Decimal `json:"saleAmount"`
	LoanAmount      decimal.Decimal `json:"loanAmount"`
	TransactionKind TransactionKind `json:"transactionKind"`

	// Recording-document overrides, used when the upstream product catalog
	// does not return recording documents for the jurisdiction.
	DeedPages             int             `json:"deedPages,omitempty"`
	MortgagePages         int             `json:"mortgagePages,omitempty"`
	DeedConsideration     decimal.Decimal `json:"deedConsideration,omitempty"`
	MortgageConsideration decimal.Decimal `json:"mortgageConsideration,omitempty"`
}

// EffectiveSaleAmount returns the monetary basis for rate computation.
// For a refinance there is no sale; the loan amount drives the premium.
func (p QuoteRequestParams) EffectiveSaleAmount() decimal.Decimal {
	if p.TransactionKind == TransactionRefinance {
		return p.LoanAmount
	}
	return p.SaleAmount
}

// Validate checks structural invariants of the request parameters.
func (p QuoteRequestParams) Validate() error {
	if len(p.PostalCode) != 5 {
		return fmt.Errorf("postal code must be 5 digits, got %q", p.PostalCode)
	}
	for _, r := range p.PostalCode {
		if r < '0' || r > '9' {
			return fmt.Errorf("postal code must be 5 digits, got %q", p.PostalCode)
		}
	}
	if p.SaleAmount.IsNegative() {
		return fmt.Errorf("sale amount must not be negative")
	}
	if p.LoanAmount.IsNegative() {
		return fmt.Errorf("loan amount must not be negative")
	}
	switch p.TransactionKind {
	case TransactionPurchase, TransactionCashPurchase, TransactionRefinance:
	default:
		return fmt.Errorf("unknown transaction kind %q", p.TransactionKind)
	}
	return nil
}

// LocationInfo is the resolved location for a postal code. Read-only after
// creation.
type LocationInfo struct {
	City      string `json:"city"`
	County    string `json:"county"`
	StateCode string `json:"stateCode"`
}

// StateFeeSchedule holds the static per-state fee table. A state with no
// schedule contributes nothing to the quote; callers must treat a nil
// schedule as all-zero, not as an error.
type StateFeeSchedule struct {
	StateCode          string          `json:"stateCode"`
	SettlementFee      decimal.Decimal `json:"settlementFee"`
	DeedRecordingBase  decimal.Decimal `json:"deedRecordingBase"`
	DeedRecordingPage  decimal.Decimal `json:"deedRecordingPage"`
	MortgageRecordBase decimal.Decimal `json:"mortgageRecordBase"`
	MortgageRecordPage decimal.Decimal `json:"mortgageRecordPage"`
}
