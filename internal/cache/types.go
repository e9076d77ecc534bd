// Package cache provides the durable response cache mapping semantic
// fingerprints to previously served answers.
package cache

import (
	"errors"
	"time"

	"github.com/fyrsmithlabs/autoreply/internal/record"
	"github.com/google/uuid"
)

// Cache errors.
var (
	ErrEntryNotFound = errors.New("cache entry not found")
	ErrInvalidEntry  = errors.New("invalid cache entry")

	// ErrAnomalyRejected indicates a candidate refused by the anomaly
	// filter. Logged with its reason, never surfaced to end users.
	ErrAnomalyRejected = errors.New("anomaly rejected")
)

// DefaultConfidence is the starting confidence of an accepted entry.
const DefaultConfidence = 0.5

// Entry is one cached answer with its semantic fingerprint.
type Entry struct {
	// ID is the unique entry identifier (UUID).
	ID string `json:"id"`

	// Fingerprint is the similarity key: embedding-derived when a vector
	// was available at write time, lexical-hash-derived otherwise.
	Fingerprint string `json:"fingerprint"`

	// Query is the request text the answer was produced for.
	Query string `json:"query"`

	// Answer is the cached response text.
	Answer string `json:"answer"`

	// Source tags where the answer came from (e.g. "llm", "manual").
	Source string `json:"source"`

	// Tier is the confidence tier. Changed only via the tier manager.
	Tier record.Tier `json:"tier"`

	// Stats holds the usage statistics driving tier transitions.
	Stats record.Stats `json:"stats"`

	// Sessions lists distinct session ids that confirmed this entry
	// positively. Three independent confirmations generalize the entry
	// into a pathway.
	Sessions []string `json:"sessions,omitempty"`

	// Refs lists ids of entries consolidated into this one.
	Refs []string `json:"refs,omitempty"`

	// Embedding is the stored vector, if one was available at write time.
	Embedding []float32 `json:"embedding,omitempty"`

	// FormatVersion is the persisted record layout version.
	FormatVersion string `json:"format_version"`

	// CreatedAt is when the entry was created.
	CreatedAt time.Time `json:"created_at"`

	// UpdatedAt is when the entry was last modified.
	UpdatedAt time.Time `json:"updated_at"`
}

// NewEntry creates a cache entry with defaults applied: generated ID, cold
// tier, 0.5 confidence, current format version.
func NewEntry(query, answer, source string) *Entry {
	now := time.Now()
	return &Entry{
		ID:            uuid.New().String(),
		Query:         query,
		Answer:        answer,
		Source:        source,
		Tier:          record.TierCold,
		Stats:         record.Stats{Confidence: DefaultConfidence},
		FormatVersion: record.FormatVersion,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// Validate checks entry invariants.
func (e *Entry) Validate() error {
	if e.ID == "" || e.Query == "" || e.Answer == "" {
		return ErrInvalidEntry
	}
	if !e.Tier.Valid() {
		return ErrInvalidEntry
	}
	return e.Stats.Validate()
}

// ConfirmedBy records a positive confirmation from a session and returns
// the number of distinct confirming sessions.
func (e *Entry) ConfirmedBy(sessionID string) int {
	if sessionID != "" {
		for _, s := range e.Sessions {
			if s == sessionID {
				return len(e.Sessions)
			}
		}
		e.Sessions = append(e.Sessions, sessionID)
	}
	return len(e.Sessions)
}

// clone returns a deep copy so callers never share mutable state with the
// store.
func (e *Entry) clone() *Entry {
	c := *e
	c.Sessions = append([]string(nil), e.Sessions...)
	c.Refs = append([]string(nil), e.Refs...)
	c.Embedding = append([]float32(nil), e.Embedding...)
	return &c
}
