package models

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// FeeCategory classifies a fee line.
type FeeCategory string

const (
	FeeTitle      FeeCategory = "title"
	FeeSettlement FeeCategory = "settlement"
	FeeRecording  FeeCategory = "recording"
	FeeTax        FeeCategory = "tax"
	FeeOther      FeeCategory = "other"
)

// FeeLineItem is one row of a final quote. Buyer and seller amounts are
// independent non-negative values; there is no netting between the two.
type FeeLineItem struct {
	Description string
	BuyerFee    decimal.Decimal
	SellerFee   decimal.Decimal
	Category    FeeCategory
	Guaranteed  bool
}

// feeLineItemJSON fixes the wire format: amounts always carry exactly two
// fractional digits.
type feeLineItemJSON struct {
	Description string      `json:"description"`
	BuyerFee    string      `json:"buyerFee"`
	SellerFee   string      `json:"sellerFee"`
	Category    FeeCategory `json:"category"`
	Guaranteed  bool        `json:"guaranteed"`
}

func (f FeeLineItem) MarshalJSON() ([]byte, error) {
	return json.Marshal(feeLineItemJSON{
		Description: f.Description,
		BuyerFee:    f.BuyerFee.StringFixed(2),
		SellerFee:   f.SellerFee.StringFixed(2),
		Category:    f.Category,
		Guaranteed:  f.Guaranteed,
	})
}

func (f *FeeLineItem) UnmarshalJSON(data []byte) error {
	var raw feeLineItemJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	buyer, err := decimal.NewFromString(raw.BuyerFee)
	if err != nil {
		return err
	}
	seller, err := decimal.NewFromString(raw.SellerFee)
	if err != nil {
		return err
	}
	f.Description = raw.Description
	f.BuyerFee = buyer
	f.SellerFee = seller
	f.Category = raw.Category
	f.Guaranteed = raw.Guaranteed
	return nil
}

// TotalBuyer sums the buyer side of a fee collection.
func TotalBuyer(fees []FeeLineItem) decimal.Decimal {
	total := decimal.Zero
	for _, f := range fees {
		total = total.Add(f.BuyerFee)
	}
	return total.Round(2)
}

// TotalSeller sums the seller side of a fee collection.
func TotalSeller(fees []FeeLineItem) decimal.Decimal {
	total := decimal.Zero
	for _, f := range fees {
		total = total.Add(f.SellerFee)
	}
	return total.Round(2)
}
