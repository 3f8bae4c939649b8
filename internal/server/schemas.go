package server

import "github.com/xeipuuv/gojsonschema"

// Request schemas are compiled once at package init; a schema that fails to
// compile is a programming error.
var (
	quoteSchema  = mustCompile(quoteSchemaJSON)
	submitSchema = mustCompile(submitSchemaJSON)
	statusSchema = mustCompile(statusSchemaJSON)
)

func mustCompile(raw string) *gojsonschema.Schema {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(raw))
	if err != nil {
		panic(err)
	}
	return schema
}

const quoteSchemaJSON = `{
	"type": "object",
	"required": ["postalCode", "saleAmount", "transactionType"],
	"properties": {
		"postalCode": {"type": "string", "pattern": "^[0-9]{5}$"},
		"saleAmount": {"type": ["number", "string"]},
		"loanAmount": {"type": ["number", "string"]},
		"transactionType": {"type": "string", "minLength": 1},
		"deedPages": {"type": "integer", "minimum": 0},
		"mortgagePages": {"type": "integer", "minimum": 0},
		"deedConsideration": {"type": ["number", "string"]},
		"mortgageConsideration": {"type": ["number", "string"]},
		"forceQuestions": {"type": "boolean"}
	},
	"additionalProperties": false
}`

const submitSchemaJSON = `{
	"type": "object",
	"required": ["sessionId", "answers"],
	"properties": {
		"sessionId": {"type": "string", "minLength": 1},
		"answers": {"type": "object"}
	},
	"additionalProperties": false
}`

const statusSchemaJSON = `{
	"type": "object",
	"required": ["sessionId"],
	"properties": {
		"sessionId": {"type": "string", "minLength": 1}
	},
	"additionalProperties": false
}`
