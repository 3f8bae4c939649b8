package questions

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"titlequote/internal/models"
)

var dateLayouts = []string{"2006-01-02", "01/02/2006"}

// Validate checks an answer set against a question list and returns every
// violation found; it never short-circuits on the first error.
func Validate(qs []models.Question, answers models.AnswerSet) []models.AnswerViolation {
	var violations []models.AnswerViolation

	for _, q := range qs {
		value, present := answers[q.Code]
		if !present || isEmpty(value) {
			if q.Required {
				violations = append(violations, violation(q, "answer is required"))
			}
			continue
		}

		switch q.Type {
		case models.AnswerSelect:
			violations = appendIf(violations, validateSelect(q, value))
		case models.AnswerInteger, models.AnswerCurrency:
			violations = appendIf(violations, validateNumber(q, value))
		case models.AnswerBoolean:
			violations = appendIf(violations, validateBoolean(q, value))
		case models.AnswerDate:
			violations = appendIf(violations, validateDate(q, value))
		}
	}

	return violations
}

func validateSelect(q models.Question, value interface{}) *models.AnswerViolation {
	answer := asString(value)
	for _, opt := range q.Options {
		if opt.Value == answer {
			return nil
		}
	}
	v := violation(q, fmt.Sprintf("%q is not one of the allowed options", answer))
	return &v
}

func validateNumber(q models.Question, value interface{}) *models.AnswerViolation {
	var number float64
	switch v := value.(type) {
	case float64:
		number = v
	case int:
		number = float64(v)
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			out := violation(q, fmt.Sprintf("%q is not a number", v))
			return &out
		}
		number = parsed
	default:
		out := violation(q, "answer must be numeric")
		return &out
	}

	if q.Min != nil && number < *q.Min {
		out := violation(q, fmt.Sprintf("value %v is below the minimum %v", number, *q.Min))
		return &out
	}
	if q.Max != nil && number > *q.Max {
		out := violation(q, fmt.Sprintf("value %v is above the maximum %v", number, *q.Max))
		return &out
	}
	return nil
}

func validateBoolean(q models.Question, value interface{}) *models.AnswerViolation {
	switch v := value.(type) {
	case bool:
		return nil
	case string:
		if v == "true" || v == "false" {
			return nil
		}
	}
	out := violation(q, "answer must be a boolean")
	return &out
}

func validateDate(q models.Question, value interface{}) *models.AnswerViolation {
	raw := asString(value)
	for _, layout := range dateLayouts {
		if _, err := time.Parse(layout, raw); err == nil {
			return nil
		}
	}
	out := violation(q, fmt.Sprintf("%q is not a parsable calendar date", raw))
	return &out
}

func violation(q models.Question, message string) models.AnswerViolation {
	return models.AnswerViolation{Code: q.Code, Message: message}
}

func appendIf(violations []models.AnswerViolation, v *models.AnswerViolation) []models.AnswerViolation {
	if v != nil {
		violations = append(violations, *v)
	}
	return violations
}

func isEmpty(value interface{}) bool {
	s, ok := value.(string)
	return ok && strings.TrimSpace(s) == ""
}

func asString(value interface{}) string {
	switch v := value.(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	default:
		return fmt.Sprintf("%v", v)
	}
}
