// Package questions normalizes the rate service's raw question descriptors
// into the typed question model and validates caller answers against it.
package questions

import (
	"strconv"
	"strings"

	"titlequote/internal/models"
	"titlequote/internal/ratesvc"
)

// Topic help text attached by keyword match against the question's own
// prompt. Falls back to the service-provided description, then a generic
// prompt.
var helpTopics = []struct {
	keyword string
	help    string
}{
	{"vacant land", "Vacant land means the parcel has no habitable structure. Unimproved parcels are rated differently in some jurisdictions."},
	{"new construction", "Answer yes if the property was built within the last year or is still under construction. A mechanic's lien endorsement may apply."},
	{"escrow", "Escrow is the neutral third-party account that holds funds until closing conditions are met."},
	{"lien waiver", "A lien waiver is the contractor's written release of lien rights for work already paid for."},
}

const genericHelp = "Answer this question so the rate calculation can be completed for your jurisdiction."

// Normalize converts one raw prompt descriptor into the typed question model.
func Normalize(raw ratesvc.Parameter) models.Question {
	q := models.Question{
		LinkKey:  raw.LinkKey,
		Code:     raw.Code,
		Prompt:   raw.Prompt,
		Default:  raw.Answer,
		Required: raw.Required == "Y",
		Type:     inferType(raw),
		HelpText: helpText(raw),
	}

	for _, opt := range raw.Options {
		q.Options = append(q.Options, models.QuestionOption{Label: opt.Label, Value: opt.Value})
	}
	if min, ok := parseBound(raw.Min); ok {
		q.Min = &min
	}
	if max, ok := parseBound(raw.Max); ok {
		q.Max = &max
	}
	return q
}

// NormalizeAll normalizes a round's prompt descriptors in order.
func NormalizeAll(raws []ratesvc.Parameter) []models.Question {
	out := make([]models.Question, 0, len(raws))
	for _, raw := range raws {
		out = append(out, Normalize(raw))
	}
	return out
}

// inferType picks the answer type: discrete options win, then the declared
// value type, then free text.
func inferType(raw ratesvc.Parameter) models.AnswerType {
	if len(raw.Options) > 0 {
		return models.AnswerSelect
	}
	switch strings.ToLower(raw.ValueType) {
	case "currency", "money":
		return models.AnswerCurrency
	case "integer", "int", "number":
		return models.AnswerInteger
	case "boolean", "bool":
		return models.AnswerBoolean
	case "date":
		return models.AnswerDate
	case "string", "text":
		return models.AnswerText
	default:
		return models.AnswerText
	}
}

func parseBound(raw string) (float64, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, false
	}
	parsed, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false
	}
	return parsed, true
}

func helpText(raw ratesvc.Parameter) string {
	prompt := strings.ToLower(raw.Prompt)
	for _, topic := range helpTopics {
		if strings.Contains(prompt, topic.keyword) {
			return topic.help
		}
	}
	if raw.Description != "" {
		return raw.Description
	}
	return genericHelp
}
