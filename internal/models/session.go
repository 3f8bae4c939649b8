package models

import "time"

// SessionState is the lifecycle state of a quote negotiation.
type SessionState string

const (
	SessionCreated         SessionState = "created"
	SessionAwaitingAnswers SessionState = "awaiting_answers"
	SessionCompleted       SessionState = "completed"
	SessionErrored         SessionState = "errored"
)

// SessionError records why a negotiation entered the errored state.
type SessionError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// QuoteSession is the persisted state of one official-quote negotiation.
// It is owned exclusively by the orchestrator; callers hold only the ID.
type QuoteSession struct {
	ID       string             `json:"id"`
	Params   QuoteRequestParams `json:"params"`
	Location LocationInfo       `json:"location"`
	State    SessionState       `json:"state"`

	// PendingXML is the verbatim question sub-structure returned by the
	// rate service while answers are outstanding. It is opaque except for
	// the answer fields the request builder rewrites, and must be echoed
	// back unmodified otherwise.
	PendingXML string `json:"pendingXml,omitempty"`

	// Questions is the normalized prompt list for the current round.
	Questions []Question `json:"questions,omitempty"`

	// Answers is the most recent validated answer set submitted.
	Answers AnswerSet `json:"answers,omitempty"`

	// Fees is the final result, present only once completed.
	Fees []FeeLineItem `json:"fees,omitempty"`

	Error *SessionError `json:"error,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// IsExpired checks if the session has passed its expiry instant.
func (s *QuoteSession) IsExpired() bool {
	return time.Now().After(s.ExpiresAt)
}

// SessionPatch is a partial update merged into a stored session. Nil fields
// are left untouched.
type SessionPatch struct {
	State      *SessionState `json:"state,omitempty"`
	PendingXML *string       `json:"pendingXml,omitempty"`
	Questions  []Question    `json:"questions,omitempty"`
	Answers    AnswerSet     `json:"answers,omitempty"`
	Fees       []FeeLineItem `json:"fees,omitempty"`
	Error      *SessionError `json:"error,omitempty"`
}

// Apply merges the patch into the session and bumps the update timestamp.
func (p *SessionPatch) Apply(s *QuoteSession) {
	if p.State != nil {
		s.State = *p.State
	}
	if p.PendingXML != nil {
		s.PendingXML = *p.PendingXML
	}
	if p.Questions != nil {
		s.Questions = p.Questions
	}
	if p.Answers != nil {
		s.Answers = p.Answers
	}
	if p.Fees != nil {
		s.Fees = p.Fees
	}
	if p.Error != nil {
		s.Error = p.Error
	}
	s.UpdatedAt = time.Now().UTC()
}
