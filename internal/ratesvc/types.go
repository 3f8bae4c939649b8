// Package ratesvc speaks the XML order-inquiry protocol of the external
// rate-calculation service: request construction, response parsing, and the
// answer-merge step of the official-quote negotiation.
package ratesvc

import "encoding/xml"

// Transaction type vocabulary of the external service. Purchase and cash
// purchase are the same thing upstream; refinance is distinct.
const (
	TxTypeSale      = "Sale"
	TxTypeRefinance = "Refinance"
)

// Service category codes from the product catalog.
const (
	ProductOwnersPolicy  = "OwnersPolicy"
	ProductLendersPolicy = "LendersPolicy"
	ProductEndorsement   = "Endorsement"
	ProductSettlement    = "Settlement"
	ProductRecordingDoc  = "RecordingDocument"
)

// RateRequest is the outbound payload for both the discovery round and the
// answer round. On the answer round only the Questions block is populated;
// the service recovers its context from the embedded original request.
type RateRequest struct {
	XMLName        xml.Name       `xml:"RateRequest"`
	ForceQuestions bool           `xml:"forceQuestions,attr,omitempty"`
	Transaction    *Transaction   `xml:"Transaction,omitempty"`
	Property       *Property      `xml:"Property,omitempty"`
	Services       *Services      `xml:"Services,omitempty"`
	Questions      *QuestionBlock `xml:"Questions,omitempty"`
}

type Transaction struct {
	Type       string `xml:"type,attr"`
	SaleAmount string `xml:"SaleAmount"`
	LoanAmount string `xml:"LoanAmount"`
}

type Property struct {
	City   string `xml:"City"`
	County string `xml:"County"`
	State  string `xml:"State"`
	Zip    string `xml:"Zip"`
}

type Services struct {
	Policies     []PolicyService     `xml:"Policy,omitempty"`
	Endorsements []Endorsement       `xml:"Endorsement,omitempty"`
	Settlement   *SettlementService  `xml:"Settlement,omitempty"`
	Recordings   []RecordingDocument `xml:"RecordingDocument,omitempty"`
}

type PolicyService struct {
	Code   string `xml:"code,attr"`
	Amount string `xml:"amount,attr"`
}

type Endorsement struct {
	Code string `xml:"code,attr"`
}

type SettlementService struct {
	Code string `xml:"code,attr"`
}

type RecordingDocument struct {
	Type          string `xml:"type,attr"`
	Pages         int    `xml:"pages,attr"`
	Consideration string `xml:"consideration,attr"`
}

// QuestionBlock is the pending structure of the negotiation: the service's
// question descriptors plus the embedded original request fragment it uses
// as its context anchor. Apart from the answer fields patched by
// MergeAnswers, the block must be echoed back unmodified.
type QuestionBlock struct {
	XMLName         xml.Name         `xml:"Questions"`
	Parameters      []Parameter      `xml:"Parameter"`
	OriginalRequest *OriginalRequest `xml:"OriginalRequest,omitempty"`
}

// OriginalRequest carries the service's own request echo verbatim.
type OriginalRequest struct {
	Inner string `xml:",innerxml"`
}

// Parameter is one raw question descriptor. Only entries with IsPrompt "Y"
// are surfaced to the caller; the rest ride along for the echo. LinkKey is
// unique within a round but not stable across rounds; Code is the stable
// identifier used to merge answers.
type Parameter struct {
	LinkKey     string            `xml:"linkKey,attr"`
	Code        string            `xml:"code,attr"`
	IsPrompt    string            `xml:"isPrompt,attr"`
	Prompt      string            `xml:"prompt,attr,omitempty"`
	Description string            `xml:"description,attr,omitempty"`
	ValueType   string            `xml:"valueType,attr,omitempty"`
	Min         string            `xml:"min,attr,omitempty"`
	Max         string            `xml:"max,attr,omitempty"`
	Required    string            `xml:"required,attr,omitempty"`
	Answer      string            `xml:"answer,attr,omitempty"`
	Options     []ParameterOption `xml:"Option,omitempty"`
}

type ParameterOption struct {
	Label string `xml:"label,attr"`
	Value string `xml:"value,attr"`
}

// RateResponse is the inbound payload for both rounds.
type RateResponse struct {
	XMLName   xml.Name        `xml:"RateResponse"`
	Status    *ResponseStatus `xml:"Status"`
	Fees      *FeeBlock       `xml:"Fees"`
	Questions *QuestionBlock  `xml:"Questions"`
	Comments  []string        `xml:"Comments>Comment"`
}

// ResponseStatus carries the rates-ready flag. At least one live integration
// of this service emits the attribute under a misspelled name; both
// spellings are honored and either is authoritative.
type ResponseStatus struct {
	CalculateRates           string `xml:"calculateRatesIndicator,attr"`
	CalculateRatesMisspelled string `xml:"calclateRatesIndicator,attr"`
}

// RatesReady reports whether the service computed rates this round.
func (s *ResponseStatus) RatesReady() bool {
	return isAffirmative(s.CalculateRates) || isAffirmative(s.CalculateRatesMisspelled)
}

func isAffirmative(v string) bool {
	return v == "Y" || v == "true" || v == "TRUE" || v == "1"
}

type FeeBlock struct {
	Fees []Fee `xml:"Fee"`
}

type Fee struct {
	Description string    `xml:"description,attr"`
	Category    string    `xml:"category,attr,omitempty"`
	Guaranteed  string    `xml:"guaranteed,attr,omitempty"`
	Payments    []Payment `xml:"Payment"`
}

// Payment is one payment sub-entry of a fee. When both amounts are present
// the actual amount wins over the estimate.
type Payment struct {
	Payer           string `xml:"payer,attr"`
	EstimatedAmount string `xml:"estimatedAmount,attr,omitempty"`
	ActualAmount    string `xml:"actualAmount,attr,omitempty"`
}

// ProductCatalogResponse is the raw product-list payload.
type ProductCatalogResponse struct {
	XMLName  xml.Name  `xml:"ProductCatalog"`
	Products []Product `xml:"Product"`
}

type Product struct {
	Category string `xml:"category,attr"`
	Code     string `xml:"code,attr"`
	Pages    int    `xml:"pages,attr,omitempty"`
}

// ProductCatalog is the parsed view of the product list for one state: which
// service categories the jurisdiction supports.
type ProductCatalog struct {
	HasOwnersPolicy  bool
	HasLendersPolicy bool
	HasSettlement    bool
	Endorsements     []string
	Recordings       []Product
}

// CatalogFromResponse folds the raw product list into a ProductCatalog.
func CatalogFromResponse(resp *ProductCatalogResponse) *ProductCatalog {
	catalog := &ProductCatalog{}
	for _, p := range resp.Products {
		switch p.Category {
		case ProductOwnersPolicy:
			catalog.HasOwnersPolicy = true
		case ProductLendersPolicy:
			catalog.HasLendersPolicy = true
		case ProductSettlement:
			catalog.HasSettlement = true
		case ProductEndorsement:
			catalog.Endorsements = append(catalog.Endorsements, p.Code)
		case ProductRecordingDoc:
			catalog.Recordings = append(catalog.Recordings, p)
		}
	}
	return catalog
}
