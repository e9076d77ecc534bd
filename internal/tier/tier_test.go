package tier

import (
	"testing"

	"github.com/fyrsmithlabs/autoreply/internal/record"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestEvaluateTransitions(t *testing.T) {
	m := NewManager(zap.NewNop())

	tests := []struct {
		name       string
		current    record.Tier
		stats      record.Stats
		wantTier   record.Tier
		wantRemove bool
	}{
		{
			name:     "cold promotes to warm",
			current:  record.TierCold,
			stats:    record.Stats{SuccessCount: 3, Confidence: 0.6},
			wantTier: record.TierWarm,
		},
		{
			name:     "cold stays without enough successes",
			current:  record.TierCold,
			stats:    record.Stats{SuccessCount: 2, Confidence: 0.9},
			wantTier: record.TierCold,
		},
		{
			name:     "cold stays with low confidence",
			current:  record.TierCold,
			stats:    record.Stats{SuccessCount: 5, Confidence: 0.55},
			wantTier: record.TierCold,
		},
		{
			name:     "warm promotes to hot",
			current:  record.TierWarm,
			stats:    record.Stats{SuccessCount: 10, FailCount: 1, Confidence: 0.85},
			wantTier: record.TierHot,
		},
		{
			name:     "warm blocked from hot by fail ratio",
			current:  record.TierWarm,
			stats:    record.Stats{SuccessCount: 10, FailCount: 2, Confidence: 0.85},
			wantTier: record.TierWarm,
		},
		{
			name:     "hot demotes on fail ratio",
			current:  record.TierHot,
			stats:    record.Stats{SuccessCount: 9, FailCount: 4, Confidence: 0.9},
			wantTier: record.TierWarm,
		},
		{
			name:     "hot demotes on low confidence",
			current:  record.TierHot,
			stats:    record.Stats{SuccessCount: 20, FailCount: 0, Confidence: 0.65},
			wantTier: record.TierWarm,
		},
		{
			name:     "warm demotes on fail ratio",
			current:  record.TierWarm,
			stats:    record.Stats{SuccessCount: 4, FailCount: 3, Confidence: 0.8},
			wantTier: record.TierCold,
		},
		{
			name:     "warm demotes on low confidence",
			current:  record.TierWarm,
			stats:    record.Stats{SuccessCount: 8, FailCount: 0, Confidence: 0.45},
			wantTier: record.TierCold,
		},
		{
			name:       "sustained failure queues deletion",
			current:    record.TierCold,
			stats:      record.Stats{SuccessCount: 1, FailCount: 4, Confidence: 0.1},
			wantTier:   record.TierCold,
			wantRemove: true,
		},
		{
			name:     "hot stays healthy",
			current:  record.TierHot,
			stats:    record.Stats{SuccessCount: 30, FailCount: 2, Confidence: 0.95},
			wantTier: record.TierHot,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := m.Evaluate(tt.current, tt.stats)
			assert.Equal(t, tt.wantTier, d.Tier)
			assert.Equal(t, tt.wantRemove, d.Remove)
		})
	}
}

func TestEvaluateDemotionNeverPromotesInSamePass(t *testing.T) {
	m := NewManager(zap.NewNop())

	// Stats that satisfy both warm→cold demotion (confidence < 0.5) and,
	// numerically, cold→warm promotion (success ≥ 3). One pass must only
	// demote.
	stats := record.Stats{SuccessCount: 12, FailCount: 0, Confidence: 0.45}

	d := m.Evaluate(record.TierWarm, stats)
	assert.Equal(t, record.TierCold, d.Tier)
	assert.False(t, d.Remove)
}

func TestEvaluateSingleStepPromotion(t *testing.T) {
	m := NewManager(zap.NewNop())

	// Even with hot-worthy stats a cold entry moves one step per pass.
	stats := record.Stats{SuccessCount: 20, FailCount: 0, Confidence: 0.95}

	d := m.Evaluate(record.TierCold, stats)
	assert.Equal(t, record.TierWarm, d.Tier)
}

func TestDecisionChanged(t *testing.T) {
	assert.True(t, Decision{Tier: record.TierWarm}.Changed(record.TierCold))
	assert.False(t, Decision{Tier: record.TierCold}.Changed(record.TierCold))
	assert.True(t, Decision{Tier: record.TierCold, Remove: true}.Changed(record.TierCold))
}
