package cost

import (
	"math"
	"strings"

	"github.com/daycarealert/daycarealert-go/pkg/models"
)

// WeeksPerMonth is the divisor for deriving the weekly cost
const WeeksPerMonth = 4.33

// Threshold maps a lower bound to a percentage adjustment
type Threshold struct {
	Min float64
	Pct float64
}

// CapacityBand maps a capacity ceiling to a percentage adjustment
type CapacityBand struct {
	MaxCapacity int
	Pct         float64
}

// TypeMultiplier maps an operation-type substring to a multiplier
type TypeMultiplier struct {
	Name       string
	Multiplier float64
}

// Config holds the cost model tables. Construct with DefaultConfig or
// supply alternate tuning; the estimator never mutates it.
type Config struct {
	BaseMonthly float64

	// Age multipliers keyed to the youngest age group served
	InfantMultiplier    float64
	ToddlerMultiplier   float64
	PreschoolMultiplier float64
	SchoolAgeMultiplier float64

	// TypeMultipliers is checked in order; the first entry whose name is a
	// substring of the operation type applies. Unknown types default to 1.0.
	TypeMultipliers []TypeMultiplier

	// Per-service percentage add-ons
	TransportationPct float64
	MealsPct          float64
	SpecialNeedsPct   float64
	ExtendedHoursPct  float64
	FieldTripsPct     float64
	WeekendPct        float64
	NightPct          float64
	DropInPct         float64
	SkillClassesPct   float64
	AccreditedPct     float64

	// RiskThresholds is checked in descending Min order; LowRiskPct
	// applies to present scores below the lowest threshold
	RiskThresholds []Threshold
	LowRiskPct     float64

	// ExperienceThresholds is checked in descending Min order
	ExperienceThresholds []Threshold
	NewOperatorPct       float64

	// County adjustments; absent counties default to 0
	CountyPct map[string]float64

	// CapacityBands is checked in order; LargeCapacityPct applies past
	// the last band
	CapacityBands    []CapacityBand
	LargeCapacityPct float64
}

// DefaultConfig returns the standard cost model tables
func DefaultConfig() Config {
	return Config{
		BaseMonthly: 850,

		InfantMultiplier:    1.7,
		ToddlerMultiplier:   1.4,
		PreschoolMultiplier: 1.2,
		SchoolAgeMultiplier: 1.0,

		TypeMultipliers: []TypeMultiplier{
			{Name: "montessori", Multiplier: 1.35},
			{Name: "licensed child care home", Multiplier: 0.85},
			{Name: "registered child-care home", Multiplier: 0.8},
			{Name: "registered child care home", Multiplier: 0.8},
			{Name: "before or after-school program", Multiplier: 0.6},
			{Name: "before/after-school program", Multiplier: 0.6},
			{Name: "school-age program", Multiplier: 0.65},
			{Name: "head start", Multiplier: 0.5},
		},

		TransportationPct: 8,
		MealsPct:          7,
		SpecialNeedsPct:   18,
		ExtendedHoursPct:  10,
		FieldTripsPct:     3,
		WeekendPct:        8,
		NightPct:          15,
		DropInPct:         5,
		SkillClassesPct:   8,
		AccreditedPct:     10,

		RiskThresholds: []Threshold{
			{Min: 70, Pct: -18},
			{Min: 40, Pct: -12},
			{Min: 20, Pct: -6},
			{Min: 10, Pct: 0},
		},
		LowRiskPct: 6,

		ExperienceThresholds: []Threshold{
			{Min: 15, Pct: 10},
			{Min: 10, Pct: 6},
			{Min: 5, Pct: 4},
			{Min: 2, Pct: 0},
		},
		NewOperatorPct: -8,

		CountyPct: map[string]float64{
			"travis":     12,
			"collin":     10,
			"williamson": 8,
			"dallas":     6,
			"denton":     6,
			"harris":     5,
			"tarrant":    2,
			"bexar":      0,
			"lubbock":    -5,
			"el paso":    -8,
			"hidalgo":    -10,
			"cameron":    -10,
		},

		CapacityBands: []CapacityBand{
			{MaxCapacity: 12, Pct: 15},
			{MaxCapacity: 25, Pct: 8},
			{MaxCapacity: 50, Pct: 0},
			{MaxCapacity: 100, Pct: -8},
		},
		LargeCapacityPct: -15,
	}
}

// Estimator converts facility attributes into a monthly/weekly cost
// estimate with a full factor breakdown
type Estimator struct {
	config Config
}

// NewEstimator creates a cost estimator
func NewEstimator(config Config) *Estimator {
	return &Estimator{config: config}
}

// Estimate computes the cost estimate for a facility. riskScore is nil
// when no risk analysis exists; missing inputs default to neutral factors.
func (e *Estimator) Estimate(facility *models.Facility, riskScore *float64) *models.CostEstimate {
	cfg := e.config

	breakdown := models.CostBreakdown{
		Base:           cfg.BaseMonthly,
		AgeMultiplier:  e.ageMultiplier(facility),
		TypeMultiplier: e.typeMultiplier(facility.OperationType),
		ServicePct:     e.servicePct(facility),
		RiskPct:        e.riskPct(riskScore),
		ExperiencePct:  e.experiencePct(facility.YearsInOperation),
		LocationPct:    e.locationPct(facility.County),
		CapacityPct:    e.capacityPct(facility.TotalCapacity),
	}

	monthly := breakdown.Base *
		breakdown.AgeMultiplier *
		breakdown.TypeMultiplier *
		(1 + breakdown.ServicePct/100) *
		(1 + breakdown.RiskPct/100) *
		(1 + breakdown.ExperiencePct/100) *
		(1 + breakdown.LocationPct/100) *
		(1 + breakdown.CapacityPct/100)

	monthlyRounded := int(math.Round(monthly))
	weekly := int(math.Round(float64(monthlyRounded) / WeeksPerMonth))

	return &models.CostEstimate{
		OperationID: facility.OperationID,
		Monthly:     monthlyRounded,
		Weekly:      weekly,
		Breakdown:   breakdown,
	}
}

// ageMultiplier is keyed to the youngest age group served, checked in
// priority order
func (e *Estimator) ageMultiplier(facility *models.Facility) float64 {
	switch {
	case facility.Infant:
		return e.config.InfantMultiplier
	case facility.Toddler:
		return e.config.ToddlerMultiplier
	case facility.Preschool:
		return e.config.PreschoolMultiplier
	case facility.SchoolAge:
		return e.config.SchoolAgeMultiplier
	default:
		return 1.0
	}
}

func (e *Estimator) typeMultiplier(operationType string) float64 {
	key := strings.ToLower(strings.TrimSpace(operationType))
	for _, t := range e.config.TypeMultipliers {
		if strings.Contains(key, t.Name) {
			return t.Multiplier
		}
	}
	return 1.0
}

func (e *Estimator) servicePct(facility *models.Facility) float64 {
	cfg := e.config
	pct := 0.0
	if facility.Transportation {
		pct += cfg.TransportationPct
	}
	if facility.Meals {
		pct += cfg.MealsPct
	}
	if facility.SpecialNeeds {
		pct += cfg.SpecialNeedsPct
	}
	if facility.ExtendedHours {
		pct += cfg.ExtendedHoursPct
	}
	if facility.FieldTrips {
		pct += cfg.FieldTripsPct
	}
	if facility.WeekendCare {
		pct += cfg.WeekendPct
	}
	if facility.NightCare {
		pct += cfg.NightPct
	}
	if facility.DropIn {
		pct += cfg.DropInPct
	}
	if facility.SkillClasses {
		pct += cfg.SkillClassesPct
	}
	if facility.Accredited {
		pct += cfg.AccreditedPct
	}
	return pct
}

// riskPct looks up the risk adjustment by threshold. A nil or non-positive
// score means no risk analysis exists and is neutral; present scores below
// the lowest threshold earn the low-risk premium.
func (e *Estimator) riskPct(riskScore *float64) float64 {
	if riskScore == nil || *riskScore <= 0 {
		return 0
	}
	for _, t := range e.config.RiskThresholds {
		if *riskScore >= t.Min {
			return t.Pct
		}
	}
	return e.config.LowRiskPct
}

func (e *Estimator) experiencePct(years float64) float64 {
	for _, t := range e.config.ExperienceThresholds {
		if years >= t.Min {
			return t.Pct
		}
	}
	return e.config.NewOperatorPct
}

func (e *Estimator) locationPct(county string) float64 {
	if pct, ok := e.config.CountyPct[strings.ToLower(strings.TrimSpace(county))]; ok {
		return pct
	}
	return 0
}

func (e *Estimator) capacityPct(capacity int) float64 {
	if capacity <= 0 {
		return 0
	}
	for _, band := range e.config.CapacityBands {
		if capacity < band.MaxCapacity {
			return band.Pct
		}
	}
	return e.config.LargeCapacityPct
}
