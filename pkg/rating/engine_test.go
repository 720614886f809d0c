package rating

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/daycarealert/daycarealert-go/pkg/models"
)

func activeFacility() *models.Facility {
	return &models.Facility{
		OperationID: "op-1",
		Name:        "Sunshine Learning Center",
		Status:      models.FacilityStatusActive,
	}
}

func assertHalfStep(t *testing.T, v float64) {
	t.Helper()
	assert.Equal(t, 0.0, math.Mod(v*2, 1), "value %v is not a half-step", v)
}

func TestRateClosedFacilityIsZero(t *testing.T) {
	e := NewEngine(DefaultConfig())

	f := activeFacility()
	f.Status = models.FacilityStatusClosed
	f.Accredited = true

	rating := e.Rate(f, Input{})
	assert.Equal(t, 0.0, rating.Overall)
}

func TestRateForcedZeroForSevereNonCompliance(t *testing.T) {
	e := NewEngine(DefaultConfig())

	rating := e.Rate(activeFacility(), Input{
		RiskScore:     95,
		HighRiskCount: 4,
	})
	assert.Equal(t, 0.0, rating.Overall)
}

func TestRateTemporarilyClosedCeiling(t *testing.T) {
	e := NewEngine(DefaultConfig())

	f := activeFacility()
	f.TemporarilyClosed = true
	f.Accredited = true

	rating := e.Rate(f, Input{})
	assert.LessOrEqual(t, rating.Overall, 0.5)
}

func TestRateInactiveBand(t *testing.T) {
	e := NewEngine(DefaultConfig())

	f := activeFacility()
	f.Status = models.FacilityStatusInactive

	low := e.Rate(f, Input{RiskScore: 99, ViolationCount: 40, HighRiskCount: 2})
	high := e.Rate(f, Input{})
	assert.GreaterOrEqual(t, low.Overall, 0.5)
	assert.LessOrEqual(t, high.Overall, 1.5)
}

func TestRateCleanAccreditedEarnsTopRating(t *testing.T) {
	e := NewEngine(DefaultConfig())

	f := activeFacility()
	f.Accredited = true

	rating := e.Rate(f, Input{RiskScore: 1.0})
	assert.Equal(t, 5.0, rating.Overall)
}

func TestRateMidTierExact(t *testing.T) {
	e := NewEngine(DefaultConfig())

	// 2.5 - 0.4 (count tier) - 0.4 (recent tier) - 0.1 (risk) = 1.6 -> 1.5
	rating := e.Rate(activeFacility(), Input{
		RiskScore:            35,
		ViolationCount:       6,
		RecentViolationCount: 2,
	})
	assert.Equal(t, 1.5, rating.Overall)
}

func TestRateMonotonicInHighRiskCount(t *testing.T) {
	e := NewEngine(DefaultConfig())

	prev := math.Inf(1)
	for high := 0; high <= 6; high++ {
		rating := e.Rate(activeFacility(), Input{
			RiskScore:      25,
			ViolationCount: high + 4,
			HighRiskCount:  high,
		})
		assert.LessOrEqual(t, rating.Overall, prev, "high=%d", high)
		prev = rating.Overall
	}
}

func TestRateActiveCeilings(t *testing.T) {
	e := NewEngine(DefaultConfig())

	f := activeFacility()
	f.Accredited = true
	f.Meals = true
	f.YearsInOperation = 10

	// high risk score caps the rating regardless of bonuses
	rating := e.Rate(f, Input{RiskScore: 85, ViolationCount: 1})
	assert.LessOrEqual(t, rating.Overall, 1.0)

	rating = e.Rate(f, Input{RiskScore: 65, ViolationCount: 1})
	assert.LessOrEqual(t, rating.Overall, 2.0)

	// more than two high-risk violations cap at 1.5
	rating = e.Rate(f, Input{RiskScore: 10, ViolationCount: 3, HighRiskCount: 3})
	assert.LessOrEqual(t, rating.Overall, 1.5)
}

func TestRateAlwaysHalfSteps(t *testing.T) {
	e := NewEngine(DefaultConfig())

	inputs := []Input{
		{},
		{RiskScore: 13.7, ViolationCount: 3, RecentViolationCount: 1},
		{RiskScore: 42.2, ViolationCount: 11, HighRiskCount: 1, RecentViolationCount: 4},
		{RiskScore: 77.7, ViolationCount: 25, HighRiskCount: 2, RecentViolationCount: 12},
	}
	for _, input := range inputs {
		rating := e.Rate(activeFacility(), input)
		assertHalfStep(t, rating.Overall)
		assert.GreaterOrEqual(t, rating.Overall, 0.0)
		assert.LessOrEqual(t, rating.Overall, 5.0)
	}
}

func TestRateRecordsFactors(t *testing.T) {
	e := NewEngine(DefaultConfig())

	f := activeFacility()
	f.Accredited = true

	rating := e.Rate(f, Input{RiskScore: 50, ViolationCount: 12, HighRiskCount: 1, RecentViolationCount: 3})
	require.NotEmpty(t, rating.RatingFactors)

	names := make(map[string]float64)
	for _, factor := range rating.RatingFactors {
		names[factor.Name] = factor.Impact
	}
	assert.Equal(t, -1.0, names["high_risk_violations"])
	assert.Equal(t, -0.8, names["violation_count"])
	assert.Equal(t, -0.4, names["recent_violations"])
	assert.InDelta(t, -0.4, names["risk_score"], 1e-9)
	assert.Equal(t, 0.5, names["feature_bonuses"])
}

func TestSubratingsRangeAndScale(t *testing.T) {
	e := NewEngine(DefaultConfig())

	f := activeFacility()
	f.Accredited = true
	f.Meals = true
	f.SpecialNeeds = true
	f.YearsInOperation = 10

	sub := e.Rate(f, Input{RiskScore: 5, ViolationCount: 1}).Subratings
	for _, v := range []float64{sub.Safety, sub.Health, sub.Wellbeing, sub.Facility, sub.Admin} {
		assert.GreaterOrEqual(t, v, 2.0)
		assert.LessOrEqual(t, v, 10.0)
		assertHalfStep(t, v)
	}

	// heavy risk drags every subrating down but never below the floor
	worst := e.Rate(activeFacility(), Input{RiskScore: 100, ViolationCount: 40, HighRiskCount: 8}).Subratings
	assert.Less(t, worst.Safety, sub.Safety)
	assert.GreaterOrEqual(t, worst.Safety, 2.0)
}

func TestQualityIndicators(t *testing.T) {
	e := NewEngine(DefaultConfig())

	f := activeFacility()
	f.Accredited = true
	f.YearsInOperation = 8

	rating := e.Rate(f, Input{})
	assert.Contains(t, rating.QualityIndicators, "Nationally accredited")
	assert.Contains(t, rating.QualityIndicators, "No recorded violations")

	bare := e.Rate(activeFacility(), Input{ViolationCount: 2})
	assert.Empty(t, bare.QualityIndicators)
}
