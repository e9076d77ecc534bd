package record

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateVersion(t *testing.T) {
	tests := []struct {
		name    string
		version string
		wantErr bool
	}{
		{"current", "1.0.0", false},
		{"minor bump", "1.2.0", false},
		{"patch bump", "1.0.3", false},
		{"major bump", "2.0.0", true},
		{"older major", "0.9.0", true},
		{"empty", "", true},
		{"garbage", "not-a-version", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateVersion(tt.version)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrRecordQuarantined)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestTierValid(t *testing.T) {
	assert.True(t, TierCold.Valid())
	assert.True(t, TierWarm.Valid())
	assert.True(t, TierHot.Valid())
	assert.False(t, Tier("lukewarm").Valid())
}

func TestStatsValidate(t *testing.T) {
	assert.NoError(t, Stats{Confidence: 0.5}.Validate())
	assert.NoError(t, Stats{Confidence: 0}.Validate())
	assert.NoError(t, Stats{Confidence: 1}.Validate())
	assert.ErrorIs(t, Stats{Confidence: 1.01}.Validate(), ErrInvalidConfidence)
	assert.ErrorIs(t, Stats{Confidence: -0.01}.Validate(), ErrInvalidConfidence)
}

func TestClampConfidence(t *testing.T) {
	assert.Equal(t, 0.0, ClampConfidence(-0.3))
	assert.Equal(t, 1.0, ClampConfidence(1.7))
	assert.Equal(t, 0.42, ClampConfidence(0.42))
}
