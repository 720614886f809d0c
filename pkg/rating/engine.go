package rating

import (
	"fmt"
	"math"

	"github.com/daycarealert/daycarealert-go/pkg/models"
)

// Input carries the risk-analysis outputs the engine rates against
type Input struct {
	RiskScore            float64
	ViolationCount       int
	HighRiskCount        int
	RecentViolationCount int // violations within the last 365 days
}

// Config holds the rating formula constants. Construct with DefaultConfig
// or supply alternate tuning; the engine never mutates it.
type Config struct {
	Base float64

	HighRiskPenaltyPerViolation float64
	HighRiskPenaltyCap          float64
	RiskScorePenaltyThreshold   float64
	RiskScorePenaltyDivisor     float64
	RiskScorePenaltyCap         float64

	AccreditedBonus   float64
	SpecialNeedsBonus float64
	ExperienceBonus   float64
	ExperienceYears   float64
	DiversityBonus    float64
	DiversityServices int
	MealsBonus        float64
	TransportBonus    float64
	InfantCareBonus   float64
	CleanRecordBonus  float64
	BonusCap          float64

	InactiveCeiling float64
	InactiveFloor   float64
	ClosedCeiling   float64
}

// DefaultConfig returns the standard rating constants
func DefaultConfig() Config {
	return Config{
		Base: 2.5,

		HighRiskPenaltyPerViolation: 1.0,
		HighRiskPenaltyCap:          2.0,
		RiskScorePenaltyThreshold:   30,
		RiskScorePenaltyDivisor:     50,
		RiskScorePenaltyCap:         0.8,

		AccreditedBonus:   0.5,
		SpecialNeedsBonus: 0.3,
		ExperienceBonus:   0.3,
		ExperienceYears:   5,
		DiversityBonus:    0.3,
		DiversityServices: 4,
		MealsBonus:        0.2,
		TransportBonus:    0.1,
		InfantCareBonus:   0.2,
		CleanRecordBonus:  0.5,
		BonusCap:          1.0,

		InactiveCeiling: 1.5,
		InactiveFloor:   0.5,
		ClosedCeiling:   0.5,
	}
}

// Engine converts risk outputs and facility features into star ratings
type Engine struct {
	config Config
}

// NewEngine creates a rating engine
func NewEngine(config Config) *Engine {
	return &Engine{config: config}
}

// Rate computes the overall rating and the five sub-category ratings for a
// facility. All inputs are defaulted; there are no error conditions.
func (e *Engine) Rate(facility *models.Facility, input Input) *models.Rating {
	rating := &models.Rating{
		OperationID:    facility.OperationID,
		RiskScore:      input.RiskScore,
		ViolationCount: input.ViolationCount,
		HighRiskCount:  input.HighRiskCount,
	}

	rating.Overall = e.overall(facility, input, rating)
	rating.Subratings = e.subratings(facility, input)
	rating.QualityIndicators = e.qualityIndicators(facility, input)

	return rating
}

func (e *Engine) overall(facility *models.Facility, input Input, rating *models.Rating) float64 {
	cfg := e.config
	score := cfg.Base

	// Penalties
	highPenalty := math.Min(float64(input.HighRiskCount)*cfg.HighRiskPenaltyPerViolation, cfg.HighRiskPenaltyCap)
	score -= e.record(rating, "high_risk_violations", -highPenalty,
		fmt.Sprintf("%d high-risk violations", input.HighRiskCount))

	score -= e.record(rating, "violation_count", -violationCountPenalty(input.ViolationCount),
		fmt.Sprintf("%d total violations", input.ViolationCount))

	score -= e.record(rating, "recent_violations", -recentViolationPenalty(input.RecentViolationCount),
		fmt.Sprintf("%d violations in the last year", input.RecentViolationCount))

	var riskPenalty float64
	if input.RiskScore > cfg.RiskScorePenaltyThreshold {
		riskPenalty = math.Min((input.RiskScore-cfg.RiskScorePenaltyThreshold)/cfg.RiskScorePenaltyDivisor, cfg.RiskScorePenaltyCap)
	}
	score -= e.record(rating, "risk_score", -riskPenalty,
		fmt.Sprintf("risk score %.1f", input.RiskScore))

	// Feature bonuses, capped in total
	bonus := 0.0
	if facility.Accredited {
		bonus += cfg.AccreditedBonus
	}
	if facility.SpecialNeeds {
		bonus += cfg.SpecialNeedsBonus
	}
	if facility.YearsInOperation >= cfg.ExperienceYears {
		bonus += cfg.ExperienceBonus
	}
	if facility.ServiceCount() >= cfg.DiversityServices {
		bonus += cfg.DiversityBonus
	}
	if facility.Meals {
		bonus += cfg.MealsBonus
	}
	if facility.Transportation {
		bonus += cfg.TransportBonus
	}
	if facility.Infant {
		bonus += cfg.InfantCareBonus
	}
	if input.ViolationCount == 0 {
		bonus += cfg.CleanRecordBonus
	}
	bonus = math.Min(bonus, cfg.BonusCap)
	score += e.record(rating, "feature_bonuses", bonus, "capped feature bonuses")

	// Hard ceilings by facility status
	switch {
	case facility.Status == models.FacilityStatusClosed:
		score = 0
	case facility.TemporarilyClosed:
		score = math.Min(score, cfg.ClosedCeiling)
	case facility.Status == models.FacilityStatusInactive:
		score = math.Min(score, cfg.InactiveCeiling)
		score = math.Max(score, cfg.InactiveFloor)
	default:
		score = e.applyActiveCeilings(score, input)
		score = compress(score)
		score = e.applyOverrides(score, facility, input)
	}

	// Forced zero for closed or severely non-compliant facilities
	if facility.Status == models.FacilityStatusClosed ||
		(input.HighRiskCount > 3 && input.RiskScore > 90) {
		score = 0
	}

	return clamp(roundHalf(score), 0, 5)
}

// applyActiveCeilings applies the tiered ceilings for operating facilities
func (e *Engine) applyActiveCeilings(score float64, input Input) float64 {
	if input.HighRiskCount > 2 {
		score = math.Min(score, 1.5)
	} else if input.HighRiskCount > 0 {
		ceiling := 3.0
		if input.RecentViolationCount == 0 {
			ceiling = 3.5
		}
		score = math.Min(score, ceiling)
	}

	switch {
	case input.RiskScore > 80:
		score = math.Min(score, 1.0)
	case input.RiskScore > 60:
		score = math.Min(score, 2.0)
	case input.RiskScore > 40:
		score = math.Min(score, 3.0)
	}

	if input.ViolationCount > 20 {
		score = math.Min(score, 2.0)
	}

	return score
}

// applyOverrides promotes consistently clean facilities to fixed ratings
func (e *Engine) applyOverrides(score float64, facility *models.Facility, input Input) float64 {
	if input.HighRiskCount != 0 {
		return score
	}
	switch {
	case input.ViolationCount < 5 && input.RiskScore < 20 && facility.Accredited && score > 3.4:
		return 5.0
	case input.ViolationCount < 8 && input.RiskScore < 30 && facility.Accredited && score > 3.0:
		return 4.5
	case input.ViolationCount < 10 && input.RiskScore < 35 && score > 2.8:
		return 4.0
	}
	return score
}

// record registers a rating factor and returns its magnitude
func (e *Engine) record(rating *models.Rating, name string, impact float64, detail string) float64 {
	if impact == 0 {
		return 0
	}
	rating.RatingFactors = append(rating.RatingFactors, models.RatingFactor{
		Name:   name,
		Impact: impact,
		Detail: detail,
	})
	return math.Abs(impact)
}

func (e *Engine) qualityIndicators(facility *models.Facility, input Input) []string {
	var indicators []string
	if facility.Accredited {
		indicators = append(indicators, "Nationally accredited")
	}
	if facility.YearsInOperation >= e.config.ExperienceYears {
		indicators = append(indicators, fmt.Sprintf("%.0f+ years in operation", e.config.ExperienceYears))
	}
	if facility.ServiceCount() >= e.config.DiversityServices {
		indicators = append(indicators, "Broad program offering")
	}
	if facility.SpecialNeeds {
		indicators = append(indicators, "Accommodates special needs")
	}
	if input.ViolationCount == 0 {
		indicators = append(indicators, "No recorded violations")
	}
	return indicators
}

// subratings computes the five 1-10 sub-category ratings. Each starts from
// the same base, receives category-specific adjustments, is clamped to
// [1, 5], then scaled x2 into the display range.
func (e *Engine) subratings(facility *models.Facility, input Input) models.Subratings {
	base := e.config.Base
	high := float64(input.HighRiskCount)

	safety := base - math.Min(input.RiskScore/20, 1.5) - math.Min(high*0.4, 1.0)
	health := base - math.Min(input.RiskScore/25, 1.2) - math.Min(high*0.3, 0.8)
	wellbeing := base - math.Min(input.RiskScore/30, 1.0)
	facilityScore := base - math.Min(input.RiskScore/40, 0.8)
	admin := base - math.Min(input.RiskScore/40, 0.8) - math.Min(float64(input.ViolationCount)*0.1, 0.6)

	if facility.Accredited {
		safety += 0.5
		health += 0.5
		wellbeing += 0.5
		facilityScore += 0.5
		admin += 0.5
	}
	if facility.ServiceCount() >= e.config.DiversityServices {
		wellbeing += 0.5
		facilityScore += 0.3
	}
	if facility.AgeGroupCount() >= 3 {
		wellbeing += 0.3
	}
	if facility.Meals {
		health += 0.3
	}
	if facility.SpecialNeeds {
		wellbeing += 0.3
	}
	if facility.YearsInOperation >= e.config.ExperienceYears {
		safety += 0.2
		admin += 0.3
	}

	return models.Subratings{
		Safety:    scaleSubrating(safety),
		Health:    scaleSubrating(health),
		Wellbeing: scaleSubrating(wellbeing),
		Facility:  scaleSubrating(facilityScore),
		Admin:     scaleSubrating(admin),
	}
}

// violationCountPenalty is the tiered penalty by total violation count
func violationCountPenalty(count int) float64 {
	switch {
	case count > 30:
		return 1.6
	case count > 20:
		return 1.2
	case count > 10:
		return 0.8
	case count > 5:
		return 0.4
	default:
		return 0
	}
}

// recentViolationPenalty is the tiered penalty for violations in the last
// year, capped at 1.0
func recentViolationPenalty(count int) float64 {
	switch {
	case count > 10:
		return 1.0
	case count > 5:
		return 0.7
	case count > 0:
		return 0.4
	default:
		return 0
	}
}

// compress pulls high ratings toward the middle so the distribution does
// not cluster at the ceiling
func compress(score float64) float64 {
	if score > 4.0 {
		return 4.0 + (score-4.0)/2
	}
	if score > 3.5 {
		return 3.5 + (score-3.5)*0.7
	}
	return score
}

func scaleSubrating(v float64) float64 {
	return roundHalf(clamp(v, 1, 5) * 2)
}

func roundHalf(v float64) float64 {
	return math.Round(v*2) / 2
}

func clamp(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
