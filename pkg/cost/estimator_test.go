package cost

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/daycarealert/daycarealert-go/pkg/models"
)

func floatPtr(v float64) *float64 { return &v }

func TestEstimateInfantLowRisk(t *testing.T) {
	e := NewEstimator(DefaultConfig())

	f := &models.Facility{
		OperationID:      "op-1",
		Infant:           true,
		YearsInOperation: 3,
	}

	// 850 x 1.7 x 1.06 = 1531.7 -> 1532 monthly, 1532/4.33 -> 354 weekly
	estimate := e.Estimate(f, floatPtr(5))
	assert.Equal(t, 1532, estimate.Monthly)
	assert.Equal(t, 354, estimate.Weekly)
	assert.Equal(t, 1.7, estimate.Breakdown.AgeMultiplier)
	assert.Equal(t, 6.0, estimate.Breakdown.RiskPct)
}

func TestEstimateCenterFullScenario(t *testing.T) {
	e := NewEstimator(DefaultConfig())

	f := &models.Facility{
		OperationID:      "op-2",
		OperationType:    "Licensed Child Care Center",
		Infant:           true,
		TotalCapacity:    40,
		YearsInOperation: 10,
	}

	// 850 x 1.7 infant, neutral type/service/location/capacity, risk score
	// of zero treated as no analysis, 10 years of operation -> +6%
	estimate := e.Estimate(f, floatPtr(0))
	assert.Equal(t, 1532, estimate.Monthly)
	assert.Equal(t, 354, estimate.Weekly)
	assert.Equal(t, 1.0, estimate.Breakdown.TypeMultiplier)
	assert.Equal(t, 0.0, estimate.Breakdown.RiskPct)
	assert.Equal(t, 6.0, estimate.Breakdown.ExperiencePct)
	assert.Equal(t, 0.0, estimate.Breakdown.CapacityPct)
}

func TestEstimateYoungestAgeGroupWins(t *testing.T) {
	e := NewEstimator(DefaultConfig())

	f := &models.Facility{Infant: true, Toddler: true, SchoolAge: true, YearsInOperation: 3}
	assert.Equal(t, 1.7, e.Estimate(f, nil).Breakdown.AgeMultiplier)

	f = &models.Facility{Toddler: true, Preschool: true, YearsInOperation: 3}
	assert.Equal(t, 1.4, e.Estimate(f, nil).Breakdown.AgeMultiplier)

	f = &models.Facility{YearsInOperation: 3}
	assert.Equal(t, 1.0, e.Estimate(f, nil).Breakdown.AgeMultiplier)
}

func TestEstimateRiskAdjustments(t *testing.T) {
	e := NewEstimator(DefaultConfig())
	f := &models.Facility{YearsInOperation: 3}

	tests := []struct {
		risk *float64
		pct  float64
	}{
		{nil, 0},
		{floatPtr(0), 0},
		{floatPtr(-1), 0},
		{floatPtr(5), 6},
		{floatPtr(10), 0},
		{floatPtr(25), -6},
		{floatPtr(45), -12},
		{floatPtr(75), -18},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.pct, e.Estimate(f, tt.risk).Breakdown.RiskPct)
	}
}

func TestEstimateTypeMultiplierSubstringMatch(t *testing.T) {
	e := NewEstimator(DefaultConfig())

	f := &models.Facility{OperationType: "Montessori School (Private)", YearsInOperation: 3}
	assert.Equal(t, 1.35, e.Estimate(f, nil).Breakdown.TypeMultiplier)

	f.OperationType = "Licensed Center"
	assert.Equal(t, 1.0, e.Estimate(f, nil).Breakdown.TypeMultiplier)

	f.OperationType = "HEAD START Program"
	assert.Equal(t, 0.5, e.Estimate(f, nil).Breakdown.TypeMultiplier)
}

func TestEstimateTypeMultiplierOverlapIsDeterministic(t *testing.T) {
	e := NewEstimator(DefaultConfig())

	// matches both "montessori" and "licensed child care home"; the first
	// configured entry wins, every time
	f := &models.Facility{OperationType: "Montessori Licensed Child Care Home", YearsInOperation: 3}
	for i := 0; i < 200; i++ {
		assert.Equal(t, 1.35, e.Estimate(f, nil).Breakdown.TypeMultiplier)
	}
}

func TestEstimateServicePctSums(t *testing.T) {
	e := NewEstimator(DefaultConfig())

	f := &models.Facility{
		Transportation:   true, // 8
		Meals:            true, // 7
		SpecialNeeds:     true, // 18
		Accredited:       true, // 10
		YearsInOperation: 3,
	}
	assert.Equal(t, 43.0, e.Estimate(f, nil).Breakdown.ServicePct)
}

func TestEstimateExperiencePct(t *testing.T) {
	e := NewEstimator(DefaultConfig())

	tests := []struct {
		years float64
		pct   float64
	}{
		{20, 10},
		{12, 6},
		{7, 4},
		{3, 0},
		{1, -8},
		{0, -8},
	}
	for _, tt := range tests {
		f := &models.Facility{YearsInOperation: tt.years}
		assert.Equal(t, tt.pct, e.Estimate(f, nil).Breakdown.ExperiencePct, "years=%v", tt.years)
	}
}

func TestEstimateCountyPct(t *testing.T) {
	e := NewEstimator(DefaultConfig())

	f := &models.Facility{County: "TRAVIS", YearsInOperation: 3}
	assert.Equal(t, 12.0, e.Estimate(f, nil).Breakdown.LocationPct)

	f.County = "Cameron"
	assert.Equal(t, -10.0, e.Estimate(f, nil).Breakdown.LocationPct)

	f.County = "Unknown County"
	assert.Equal(t, 0.0, e.Estimate(f, nil).Breakdown.LocationPct)
}

func TestEstimateCapacityPct(t *testing.T) {
	e := NewEstimator(DefaultConfig())

	tests := []struct {
		capacity int
		pct      float64
	}{
		{0, 0},
		{8, 15},
		{20, 8},
		{40, 0},
		{80, -8},
		{150, -15},
	}
	for _, tt := range tests {
		f := &models.Facility{TotalCapacity: tt.capacity, YearsInOperation: 3}
		assert.Equal(t, tt.pct, e.Estimate(f, nil).Breakdown.CapacityPct, "capacity=%d", tt.capacity)
	}
}

func TestEstimateWeeklyDerivedFromMonthly(t *testing.T) {
	e := NewEstimator(DefaultConfig())

	facilities := []*models.Facility{
		{Infant: true, Meals: true, County: "Travis", TotalCapacity: 60, YearsInOperation: 12},
		{SchoolAge: true, OperationType: "Head Start", YearsInOperation: 1},
		{Preschool: true, Accredited: true, TotalCapacity: 10, YearsInOperation: 6},
	}
	for _, f := range facilities {
		estimate := e.Estimate(f, floatPtr(22))
		expected := int(math.Round(float64(estimate.Monthly) / WeeksPerMonth))
		assert.Equal(t, expected, estimate.Weekly)
		assert.Greater(t, estimate.Monthly, 0)
	}
}
