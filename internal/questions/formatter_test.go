package questions

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"titlequote/internal/models"
	"titlequote/internal/ratesvc"
)

func TestNormalizeSelect(t *testing.T) {
	raw := ratesvc.Parameter{
		LinkKey:  "k1",
		Code:     "property_use",
		IsPrompt: "Y",
		Prompt:   "How is the property used?",
		Required: "Y",
		Options: []ratesvc.ParameterOption{
			{Label: "Primary residence", Value: "primary"},
			{Label: "Investment", Value: "investment"},
		},
	}

	q := Normalize(raw)
	assert.Equal(t, models.AnswerSelect, q.Type)
	assert.True(t, q.Required)
	require.Len(t, q.Options, 2)
	assert.Equal(t, "primary", q.Options[0].Value)
}

func TestNormalizeTypeInference(t *testing.T) {
	cases := []struct {
		valueType string
		want      models.AnswerType
	}{
		{"currency", models.AnswerCurrency},
		{"money", models.AnswerCurrency},
		{"integer", models.AnswerInteger},
		{"boolean", models.AnswerBoolean},
		{"date", models.AnswerDate},
		{"string", models.AnswerText},
		{"", models.AnswerText},
		{"mystery", models.AnswerText},
	}
	for _, tc := range cases {
		q := Normalize(ratesvc.Parameter{Code: "x", ValueType: tc.valueType})
		assert.Equal(t, tc.want, q.Type, "valueType %q", tc.valueType)
	}
}

func TestNormalizeBounds(t *testing.T) {
	q := Normalize(ratesvc.Parameter{Code: "acreage", ValueType: "integer", Min: "1", Max: "500"})
	require.NotNil(t, q.Min)
	require.NotNil(t, q.Max)
	assert.Equal(t, 1.0, *q.Min)
	assert.Equal(t, 500.0, *q.Max)

	q = Normalize(ratesvc.Parameter{Code: "acreage", ValueType: "integer", Min: "", Max: "lots"})
	assert.Nil(t, q.Min)
	assert.Nil(t, q.Max)
}

func TestNormalizeDefaultFromServiceAnswer(t *testing.T) {
	q := Normalize(ratesvc.Parameter{Code: "escrow", ValueType: "boolean", Answer: "false"})
	assert.Equal(t, "false", q.Default)
}

func TestHelpTextKeywordMatch(t *testing.T) {
	q := Normalize(ratesvc.Parameter{Code: "vl", Prompt: "Is this Vacant Land?"})
	assert.Contains(t, q.HelpText, "no habitable structure")

	q = Normalize(ratesvc.Parameter{Code: "x", Prompt: "Anything else?", Description: "Service supplied help."})
	assert.Equal(t, "Service supplied help.", q.HelpText)

	q = Normalize(ratesvc.Parameter{Code: "x", Prompt: "Anything else?"})
	assert.Equal(t, genericHelp, q.HelpText)
}

func TestNormalizeAllKeepsOrder(t *testing.T) {
	qs := NormalizeAll([]ratesvc.Parameter{
		{Code: "first"},
		{Code: "second"},
	})
	require.Len(t, qs, 2)
	assert.Equal(t, "first", qs[0].Code)
	assert.Equal(t, "second", qs[1].Code)
}
