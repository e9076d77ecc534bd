// Package tier implements the confidence tier state machine that gates how
// eagerly a learned entry is trusted.
package tier

import (
	"github.com/fyrsmithlabs/autoreply/internal/record"
	"go.uber.org/zap"
)

// Decision is the outcome of one tier evaluation pass.
type Decision struct {
	// Tier is the entry's tier after evaluation.
	Tier record.Tier

	// Remove indicates the entry should be deleted instead of demoted
	// further: sustained negative feedback with collapsed confidence.
	Remove bool
}

// Changed reports whether the evaluation moved the entry.
func (d Decision) Changed(from record.Tier) bool {
	return d.Remove || d.Tier != from
}

// Manager evaluates tier transitions from usage statistics.
//
// States move cold → warm → hot with reverse demotions; there is no
// terminal state. Demotions are checked before promotions so a single pass
// can never both demote and promote an entry.
type Manager struct {
	logger *zap.Logger
}

// NewManager creates a tier manager.
func NewManager(logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{logger: logger}
}

// Evaluate runs one evaluation pass for an entry's statistics.
//
// Transition table:
//
//	cold → warm  success ≥ 3 and confidence ≥ 0.6
//	warm → hot   success ≥ 10 and confidence ≥ 0.8 and fail < 0.2·success
//	hot  → warm  fail > 0.33·success or confidence < 0.7
//	warm → cold  fail > 0.5·success or confidence < 0.5
//
// Entries with fail > 3·success and confidence < 0.2 are marked for
// removal instead of further demotion.
func (m *Manager) Evaluate(current record.Tier, stats record.Stats) Decision {
	succ := float64(stats.SuccessCount)
	fail := float64(stats.FailCount)

	if fail > 3*succ && stats.Confidence < 0.2 {
		m.observe(current, "deleted")
		return Decision{Tier: current, Remove: true}
	}

	// Demotions first: prevents oscillation within one pass.
	switch current {
	case record.TierHot:
		if fail > 0.33*succ || stats.Confidence < 0.7 {
			m.observe(current, string(record.TierWarm))
			return Decision{Tier: record.TierWarm}
		}
	case record.TierWarm:
		if fail > 0.5*succ || stats.Confidence < 0.5 {
			m.observe(current, string(record.TierCold))
			return Decision{Tier: record.TierCold}
		}
	}

	switch current {
	case record.TierCold:
		if stats.SuccessCount >= 3 && stats.Confidence >= 0.6 {
			m.observe(current, string(record.TierWarm))
			return Decision{Tier: record.TierWarm}
		}
	case record.TierWarm:
		if stats.SuccessCount >= 10 && stats.Confidence >= 0.8 && fail < 0.2*succ {
			m.observe(current, string(record.TierHot))
			return Decision{Tier: record.TierHot}
		}
	}

	return Decision{Tier: current}
}

func (m *Manager) observe(from record.Tier, to string) {
	if string(from) == to {
		return
	}
	transitions.WithLabelValues(string(from), to).Inc()
	m.logger.Debug("tier transition",
		zap.String("from", string(from)),
		zap.String("to", to))
}
