package questions

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"titlequote/internal/models"
)

func floatPtr(f float64) *float64 { return &f }

func TestValidateCollectsAllViolations(t *testing.T) {
	qs := []models.Question{
		{Code: "vacant_land", Type: models.AnswerBoolean, Required: true},
		{Code: "acreage", Type: models.AnswerInteger, Min: floatPtr(1), Max: floatPtr(500)},
		{Code: "closing_date", Type: models.AnswerDate},
	}
	answers := models.AnswerSet{
		"acreage":      float64(900),
		"closing_date": "soon",
	}

	violations := Validate(qs, answers)
	require.Len(t, violations, 3)

	codes := []string{violations[0].Code, violations[1].Code, violations[2].Code}
	assert.Equal(t, []string{"vacant_land", "acreage", "closing_date"}, codes)
}

func TestValidateRequiredMissing(t *testing.T) {
	qs := []models.Question{{Code: "escrow", Type: models.AnswerBoolean, Required: true}}

	assert.Len(t, Validate(qs, models.AnswerSet{}), 1)
	assert.Len(t, Validate(qs, models.AnswerSet{"escrow": "  "}), 1)
	assert.Empty(t, Validate(qs, models.AnswerSet{"escrow": false}))
}

func TestValidateOptionalMissingOK(t *testing.T) {
	qs := []models.Question{{Code: "notes", Type: models.AnswerText}}
	assert.Empty(t, Validate(qs, models.AnswerSet{}))
}

func TestValidateSelect(t *testing.T) {
	qs := []models.Question{{
		Code: "property_use",
		Type: models.AnswerSelect,
		Options: []models.QuestionOption{
			{Label: "Primary", Value: "primary"},
			{Label: "Investment", Value: "investment"},
		},
	}}

	assert.Empty(t, Validate(qs, models.AnswerSet{"property_use": "primary"}))
	assert.Len(t, Validate(qs, models.AnswerSet{"property_use": "vacation"}), 1)
}

func TestValidateNumber(t *testing.T) {
	qs := []models.Question{{
		Code: "acreage",
		Type: models.AnswerInteger,
		Min:  floatPtr(1),
		Max:  floatPtr(500),
	}}

	assert.Empty(t, Validate(qs, models.AnswerSet{"acreage": float64(12)}))
	assert.Empty(t, Validate(qs, models.AnswerSet{"acreage": "12"}))
	assert.Len(t, Validate(qs, models.AnswerSet{"acreage": "dozen"}), 1)
	assert.Len(t, Validate(qs, models.AnswerSet{"acreage": float64(0)}), 1)
	assert.Len(t, Validate(qs, models.AnswerSet{"acreage": float64(501)}), 1)
	assert.Len(t, Validate(qs, models.AnswerSet{"acreage": true}), 1)
}

func TestValidateCurrency(t *testing.T) {
	qs := []models.Question{{Code: "payoff", Type: models.AnswerCurrency}}
	assert.Empty(t, Validate(qs, models.AnswerSet{"payoff": "125000.50"}))
	assert.Len(t, Validate(qs, models.AnswerSet{"payoff": "lots"}), 1)
}

func TestValidateBoolean(t *testing.T) {
	qs := []models.Question{{Code: "escrow", Type: models.AnswerBoolean}}
	assert.Empty(t, Validate(qs, models.AnswerSet{"escrow": true}))
	assert.Empty(t, Validate(qs, models.AnswerSet{"escrow": "false"}))
	assert.Len(t, Validate(qs, models.AnswerSet{"escrow": "yep"}), 1)
	assert.Len(t, Validate(qs, models.AnswerSet{"escrow": float64(1)}), 1)
}

func TestValidateDate(t *testing.T) {
	qs := []models.Question{{Code: "closing_date", Type: models.AnswerDate}}
	assert.Empty(t, Validate(qs, models.AnswerSet{"closing_date": "2026-03-15"}))
	assert.Empty(t, Validate(qs, models.AnswerSet{"closing_date": "03/15/2026"}))
	assert.Len(t, Validate(qs, models.AnswerSet{"closing_date": "15th of March"}), 1)
}

func TestValidateTextAcceptsAnything(t *testing.T) {
	qs := []models.Question{{Code: "notes", Type: models.AnswerText}}
	assert.Empty(t, Validate(qs, models.AnswerSet{"notes": "corner lot"}))
}
