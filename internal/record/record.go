// Package record provides the persisted-record plumbing shared by the
// pathway store and response cache: format versioning, confidence tiers,
// usage statistics, and a durable file-backed record log.
package record

import (
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/semver/v3"
)

// FormatVersion is the current record layout version.
//
// MAJOR bumps are incompatible changes, MINOR bumps add optional fields,
// PATCH bumps are documentation-only.
const FormatVersion = "1.0.0"

// Record-level errors.
var (
	// ErrRecordQuarantined indicates a record failed format validation.
	// The record is skipped; the rest of the store continues to load.
	ErrRecordQuarantined = errors.New("record quarantined")

	// ErrInvalidConfidence indicates a confidence outside [0, 1].
	ErrInvalidConfidence = errors.New("confidence must be between 0.0 and 1.0")
)

var currentVersion = semver.MustParse(FormatVersion)

// ValidateVersion checks whether a persisted record's format version can be
// read by this build. Records from a newer MAJOR version, or with an
// unparseable version, are quarantined.
func ValidateVersion(version string) error {
	if version == "" {
		return fmt.Errorf("%w: missing format_version", ErrRecordQuarantined)
	}
	v, err := semver.NewVersion(version)
	if err != nil {
		return fmt.Errorf("%w: unparseable format_version %q: %v", ErrRecordQuarantined, version, err)
	}
	if v.Major() != currentVersion.Major() {
		return fmt.Errorf("%w: format_version %s incompatible with %s", ErrRecordQuarantined, version, FormatVersion)
	}
	return nil
}

// Tier is the confidence/maturity bucket gating how eagerly an entry is
// trusted.
type Tier string

const (
	// TierCold is the entry starting tier: unproven, served cautiously.
	TierCold Tier = "cold"

	// TierWarm indicates an entry with repeated confirmed successes.
	TierWarm Tier = "warm"

	// TierHot indicates a highly trusted entry.
	TierHot Tier = "hot"
)

// Valid reports whether t is a known tier.
func (t Tier) Valid() bool {
	switch t {
	case TierCold, TierWarm, TierHot:
		return true
	}
	return false
}

// Stats holds the usage statistics driving tier transitions.
type Stats struct {
	// Hits counts how many times the entry was served.
	Hits int `json:"hits"`

	// SuccessCount counts positive feedback events.
	SuccessCount int `json:"success_count"`

	// FailCount counts negative feedback events.
	FailCount int `json:"fail_count"`

	// Confidence is a score from 0.0 to 1.0 indicating reliability.
	Confidence float64 `json:"confidence"`

	// LastUsedAt is when the entry was last served.
	LastUsedAt time.Time `json:"last_used_at"`
}

// Validate checks stats invariants.
func (s Stats) Validate() error {
	if s.Confidence < 0 || s.Confidence > 1 {
		return ErrInvalidConfidence
	}
	return nil
}

// ClampConfidence bounds a confidence score to [0, 1].
func ClampConfidence(c float64) float64 {
	if c < 0 {
		return 0
	}
	if c > 1 {
		return 1
	}
	return c
}
