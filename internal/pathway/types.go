// Package pathway provides the durable table of learned request→response
// rules generalized from repeatedly confirmed cache entries.
package pathway

import (
	"errors"
	"strings"
	"time"

	"github.com/fyrsmithlabs/autoreply/internal/record"
	"github.com/google/uuid"
)

// Pathway errors.
var (
	ErrEntryNotFound = errors.New("pathway entry not found")
	ErrInvalidEntry  = errors.New("invalid pathway entry")
	ErrEmptyTriggers = errors.New("pathway entry needs at least one trigger")
	ErrEmptyTemplate = errors.New("pathway template cannot be empty")
)

// Entry is a generalized, trigger-matched request→response rule.
type Entry struct {
	// ID is the unique entry identifier (UUID).
	ID string `json:"id"`

	// Triggers is the ordered set of strings matched against requests,
	// case-insensitively.
	Triggers []string `json:"triggers"`

	// Template is the response template served on a trigger match.
	Template string `json:"template"`

	// Variables are named template variables; keys are unique.
	Variables map[string]string `json:"variables,omitempty"`

	// Tier is the confidence tier. Changed only via the tier manager.
	Tier record.Tier `json:"tier"`

	// Stats holds the usage statistics driving tier transitions.
	Stats record.Stats `json:"stats"`

	// FormatVersion is the persisted record layout version.
	FormatVersion string `json:"format_version"`

	// CreatedAt is when the entry was created.
	CreatedAt time.Time `json:"created_at"`

	// UpdatedAt is when the entry was last modified.
	UpdatedAt time.Time `json:"updated_at"`
}

// NewEntry creates a pathway entry with defaults applied: generated ID,
// cold tier, 0.5 confidence, current format version.
func NewEntry(triggers []string, template string) *Entry {
	now := time.Now()
	return &Entry{
		ID:            uuid.New().String(),
		Triggers:      triggers,
		Template:      template,
		Tier:          record.TierCold,
		Stats:         record.Stats{Confidence: 0.5},
		FormatVersion: record.FormatVersion,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// Validate checks entry invariants.
func (e *Entry) Validate() error {
	if e.ID == "" {
		return ErrInvalidEntry
	}
	if len(e.Triggers) == 0 {
		return ErrEmptyTriggers
	}
	for _, trigger := range e.Triggers {
		if strings.TrimSpace(trigger) == "" {
			return ErrEmptyTriggers
		}
	}
	if e.Template == "" {
		return ErrEmptyTemplate
	}
	if !e.Tier.Valid() {
		return ErrInvalidEntry
	}
	if err := e.Stats.Validate(); err != nil {
		return err
	}
	return nil
}

// Matches reports whether the normalized query matches any trigger.
func (e *Entry) Matches(normalizedQuery string) bool {
	for _, trigger := range e.Triggers {
		t := strings.ToLower(strings.TrimSpace(trigger))
		if t != "" && strings.Contains(normalizedQuery, t) {
			return true
		}
	}
	return false
}

// clone returns a deep copy so callers never share mutable state with the
// store.
func (e *Entry) clone() *Entry {
	c := *e
	c.Triggers = append([]string(nil), e.Triggers...)
	if e.Variables != nil {
		c.Variables = make(map[string]string, len(e.Variables))
		for k, v := range e.Variables {
			c.Variables[k] = v
		}
	}
	return &c
}
