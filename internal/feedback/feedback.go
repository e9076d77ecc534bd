// Package feedback turns outcome signals into confidence adjustments on
// learned entries, driving tier transitions and pathway generalization.
package feedback

import (
	"errors"
	"time"
)

// Feedback errors.
var (
	ErrInvalidVerdict = errors.New("invalid feedback verdict")
	ErrInvalidScore   = errors.New("feedback score must be in [0, 1]")
	ErrTargetNotFound = errors.New("no learned entry matches the feedback query")
)

// Verdict classifies an outcome signal.
type Verdict string

// Supported verdicts.
const (
	VerdictPositive Verdict = "positive"
	VerdictNegative Verdict = "negative"
	VerdictNeutral  Verdict = "neutral"
)

// Valid reports whether v is a known verdict.
func (v Verdict) Valid() bool {
	switch v {
	case VerdictPositive, VerdictNegative, VerdictNeutral:
		return true
	}
	return false
}

// ConfidenceStep is the confidence delta applied per unit of feedback
// score.
const ConfidenceStep = 0.1

// GeneralizeAfter is how many distinct sessions must confirm a cache
// entry before it is generalized into a pathway.
const GeneralizeAfter = 3

// Event is one outcome signal about a served response.
type Event struct {
	// Query is the request text the feedback is about.
	Query string `json:"query"`

	// Response is the response text that was served, if known.
	Response string `json:"response,omitempty"`

	// Verdict classifies the signal.
	Verdict Verdict `json:"verdict"`

	// Score weights the signal in [0, 1]. Zero means full weight.
	Score float64 `json:"score,omitempty"`

	// SessionID identifies the conversation the signal came from.
	SessionID string `json:"session_id,omitempty"`

	// Source tags the signal origin (e.g. "user", "watchdog").
	Source string `json:"source,omitempty"`

	// Timestamp is when the signal occurred. Zero means now.
	Timestamp time.Time `json:"timestamp,omitempty"`
}

// ApplyDefaults fills unset fields.
func (e *Event) ApplyDefaults() {
	if e.Score == 0 {
		e.Score = 1
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}
}

// Validate checks event invariants.
func (e *Event) Validate() error {
	if !e.Verdict.Valid() {
		return ErrInvalidVerdict
	}
	if e.Score < 0 || e.Score > 1 {
		return ErrInvalidScore
	}
	return nil
}

// Outcome reports what applying an event did.
type Outcome struct {
	// Target names the store the entry lives in: "cache" or "pathway".
	Target string `json:"target"`

	// EntryID is the affected entry.
	EntryID string `json:"entry_id"`

	// Tier is the entry's tier after the event.
	Tier string `json:"tier"`

	// Confidence is the entry's confidence after the event.
	Confidence float64 `json:"confidence"`

	// Removed indicates the entry was evicted by this event.
	Removed bool `json:"removed,omitempty"`

	// Generalized indicates the event promoted a cache entry into a new
	// pathway.
	Generalized bool `json:"generalized,omitempty"`

	// PathwayID is the pathway created by generalization, if any.
	PathwayID string `json:"pathway_id,omitempty"`
}
