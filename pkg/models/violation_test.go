package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseRiskLevel(t *testing.T) {
	tests := []struct {
		raw      string
		expected RiskLevel
	}{
		{"High", RiskLevelHigh},
		{"HIGH", RiskLevelHigh},
		{" medium high ", RiskLevelMediumHigh},
		{"Medium-High", RiskLevelMediumHigh},
		{"Medium", RiskLevelMedium},
		{"med low", RiskLevelMediumLow},
		{"Low", RiskLevelLow},
		{"", RiskLevelLow},
		{"garbage", RiskLevelLow},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, ParseRiskLevel(tt.raw), "raw=%q", tt.raw)
	}
}

func TestRiskLevelRankOrdering(t *testing.T) {
	levels := []RiskLevel{RiskLevelLow, RiskLevelMediumLow, RiskLevelMedium, RiskLevelMediumHigh, RiskLevelHigh}
	for i := 1; i < len(levels); i++ {
		assert.Greater(t, levels[i].Rank(), levels[i-1].Rank())
	}
	assert.Equal(t, 0, RiskLevel("bogus").Rank())
}

func TestEffectiveRiskLevel(t *testing.T) {
	v := Violation{RiskLevel: RiskLevelHigh}
	assert.Equal(t, RiskLevelHigh, v.EffectiveRiskLevel())

	v.RevisedRiskLevel = RiskLevelMedium
	assert.Equal(t, RiskLevelMedium, v.EffectiveRiskLevel())
}
