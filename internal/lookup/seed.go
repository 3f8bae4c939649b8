package lookup

import (
	"github.com/shopspring/decimal"

	"titlequote/internal/models"
)

// Seed tables cover the jurisdictions the service launched with. Redis
// entries, when present, take precedence over these.
var seedLocations = map[string]models.LocationInfo{
	"10001": {City: "New York", County: "New York", StateCode: "NY"},
	"10451": {City: "Bronx", County: "Bronx", StateCode: "NY"},
	"02801": {City: "Adamsville", County: "Newport", StateCode: "RI"},
	"02804": {City: "Ashaway", County: "Washington", StateCode: "RI"},
	"02903": {City: "Providence", County: "Providence", StateCode: "RI"},
	"60601": {City: "Chicago", County: "Cook", StateCode: "IL"},
	"33101": {City: "Miami", County: "Miami-Dade", StateCode: "FL"},
	"90210": {City: "Beverly Hills", County: "Los Angeles", StateCode: "CA"},
}

var seedStateFees = map[string]models.StateFeeSchedule{
	"NY": {
		StateCode:          "NY",
		SettlementFee:      decimal.NewFromInt(895),
		DeedRecordingBase:  decimal.NewFromInt(32),
		DeedRecordingPage:  decimal.NewFromInt(5),
		MortgageRecordBase: decimal.NewFromInt(45),
		MortgageRecordPage: decimal.NewFromInt(5),
	},
	"RI": {
		StateCode:          "RI",
		SettlementFee:      decimal.NewFromInt(750),
		DeedRecordingBase:  decimal.NewFromInt(84),
		DeedRecordingPage:  decimal.NewFromInt(1),
		MortgageRecordBase: decimal.NewFromInt(64),
		MortgageRecordPage: decimal.NewFromInt(1),
	},
	"IL": {
		StateCode:          "IL",
		SettlementFee:      decimal.NewFromInt(825),
		DeedRecordingBase:  decimal.NewFromInt(98),
		DeedRecordingPage:  decimal.NewFromInt(0),
		MortgageRecordBase: decimal.NewFromInt(98),
		MortgageRecordPage: decimal.NewFromInt(0),
	},
	// FL and CA intentionally absent: quotes there carry no state-schedule
	// contribution, exercising the nil-schedule tolerance path.
}
