package models

// AnswerType is the declared answer type of a question.
type AnswerType string

const (
	AnswerSelect   AnswerType = "select"
	AnswerBoolean  AnswerType = "boolean"
	AnswerText     AnswerType = "text"
	AnswerInteger  AnswerType = "integer"
	AnswerCurrency AnswerType = "currency"
	AnswerDate     AnswerType = "date"
)

// QuestionOption is one selectable label/value pair.
type QuestionOption struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// Question is the normalized form of one prompt the rate service needs
// answered before it can compute rates. LinkKey identifies the question
// within a single round only; Code is the stable parameter code used when
// merging answers back into the pending request.
type Question struct {
	LinkKey  string           `json:"linkKey"`
	Code     string           `json:"code"`
	Prompt   string           `json:"prompt"`
	HelpText string           `json:"helpText,omitempty"`
	Type     AnswerType       `json:"type"`
	Options  []QuestionOption `json:"options,omitempty"`
	Min      *float64         `json:"min,omitempty"`
	Max      *float64         `json:"max,omitempty"`
	Default  string           `json:"default,omitempty"`
	Required bool             `json:"required"`
}

// AnswerSet maps a question's parameter code to the caller-supplied answer.
// Values are polymorphic over the answer type: string, number, or boolean.
type AnswerSet map[string]interface{}

// AnswerViolation reports one failed answer constraint.
type AnswerViolation struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
