package server

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/xeipuuv/gojsonschema"

	"titlequote/internal/common/errors"
	"titlequote/internal/models"
	"titlequote/internal/orchestrator"
)

// statusWire is the API's status vocabulary. Internal session states are
// never serialized directly; "awaiting_answers" travels as "pending_answers"
// and "errored" as "error".
var statusWire = map[models.SessionState]string{
	models.SessionCreated:         "created",
	models.SessionAwaitingAnswers: "pending_answers",
	models.SessionCompleted:       "completed",
	models.SessionErrored:         "error",
}

type negotiationResponse struct {
	SessionID string               `json:"sessionId"`
	Status    string               `json:"status"`
	Location  *models.LocationInfo `json:"locationInfo,omitempty"`
	Questions []models.Question    `json:"questions,omitempty"`
	Fees      []models.FeeLineItem `json:"fees,omitempty"`
	Comments  []string             `json:"comments,omitempty"`
	Error     *models.SessionError `json:"error,omitempty"`
}

func toWire(r *orchestrator.Result) negotiationResponse {
	status, ok := statusWire[r.Status]
	if !ok {
		status = string(r.Status)
	}
	return negotiationResponse{
		SessionID: r.SessionID,
		Status:    status,
		Location:  r.Location,
		Questions: r.Questions,
		Fees:      r.Fees,
		Comments:  r.Comments,
		Error:     r.Error,
	}
}

const maxBodyBytes = 1 << 20

type quoteRequestBody struct {
	PostalCode            string          `json:"postalCode"`
	SaleAmount            decimal.Decimal `json:"saleAmount"`
	LoanAmount            decimal.Decimal `json:"loanAmount"`
	TransactionType       string          `json:"transactionType"`
	DeedPages             int             `json:"deedPages,omitempty"`
	MortgagePages         int             `json:"mortgagePages,omitempty"`
	DeedConsideration     decimal.Decimal `json:"deedConsideration,omitempty"`
	MortgageConsideration decimal.Decimal `json:"mortgageConsideration,omitempty"`
	ForceQuestions        bool            `json:"forceQuestions,omitempty"`
}

type sessionRequestBody struct {
	SessionID string           `json:"sessionId"`
	Answers   models.AnswerSet `json:"answers,omitempty"`
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	var body quoteRequestBody
	if err := s.decodeBody(r, quoteSchema, &body); err != nil {
		s.writeError(w, err)
		return
	}
	params, err := body.toParams()
	if err != nil {
		s.writeError(w, err)
		return
	}

	result, err := s.orchestrator.Start(r.Context(), params, body.ForceQuestions)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, toWire(result))
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var body sessionRequestBody
	if err := s.decodeBody(r, submitSchema, &body); err != nil {
		s.writeError(w, err)
		return
	}

	result, err := s.orchestrator.Submit(r.Context(), body.SessionID, body.Answers)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, toWire(result))
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	var body sessionRequestBody
	if err := s.decodeBody(r, statusSchema, &body); err != nil {
		s.writeError(w, err)
		return
	}

	result, err := s.orchestrator.Status(r.Context(), body.SessionID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, toWire(result))
}

func (s *Server) handleQuick(w http.ResponseWriter, r *http.Request) {
	var body quoteRequestBody
	if err := s.decodeBody(r, quoteSchema, &body); err != nil {
		s.writeError(w, err)
		return
	}
	params, err := body.toParams()
	if err != nil {
		s.writeError(w, err)
		return
	}

	estimate, err := s.quick.Quote(r.Context(), params)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, estimate)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (b quoteRequestBody) toParams() (models.QuoteRequestParams, error) {
	kind, err := models.ParseTransactionKind(b.TransactionType)
	if err != nil {
		return models.QuoteRequestParams{}, errors.NewInvalidInputError(err.Error())
	}
	return models.QuoteRequestParams{
		PostalCode:            strings.TrimSpace(b.PostalCode),
		SaleAmount:            b.SaleAmount,
		LoanAmount:            b.LoanAmount,
		TransactionKind:       kind,
		DeedPages:             b.DeedPages,
		MortgagePages:         b.MortgagePages,
		DeedConsideration:     b.DeedConsideration,
		MortgageConsideration: b.MortgageConsideration,
	}, nil
}

// decodeBody validates the raw payload against its schema before unmarshal so
// shape errors come back itemized rather than as a bare unmarshal failure.
func (s *Server) decodeBody(r *http.Request, schema *gojsonschema.Schema, out interface{}) error {
	raw, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return errors.NewInvalidInputError("failed to read request body")
	}
	if len(raw) == 0 {
		return errors.NewInvalidInputError("request body is required")
	}

	result, err := schema.Validate(gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return errors.NewInvalidInputError("request body is not valid JSON")
	}
	if !result.Valid() {
		details := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			details = append(details, desc.String())
		}
		return errors.NewInvalidInputError(strings.Join(details, "; "))
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return errors.NewInvalidInputError(fmt.Sprintf("failed to parse request body: %v", err))
	}
	return nil
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.WithError(err).Error("failed to encode response", nil)
	}
}

// writeError maps an error to the API's error envelope. Upstream auth
// details stay server-side.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	std := errors.AsStandard(err)

	body := map[string]interface{}{
		"error": std.Message,
		"code":  std.Code,
	}
	if std.Code != errors.ErrCodeUpstreamAuth && std.Details != "" {
		body["details"] = std.Details
	}
	if violations, ok := std.Metadata["violations"]; ok {
		body["validationErrors"] = violations
	}

	s.writeJSON(w, errors.HTTPStatus(std.Code), body)
}
