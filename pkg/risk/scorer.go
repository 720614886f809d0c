package risk

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/daycarealert/daycarealert-go/pkg/classifier"
	"github.com/daycarealert/daycarealert-go/pkg/models"
)

// DecayBand maps a violation age ceiling in days to a weight multiplier
type DecayBand struct {
	MaxAgeDays int
	Factor     float64
}

// AgeBand maps a facility age ceiling in years to a score multiplier
type AgeBand struct {
	MaxYears float64
	Factor   float64
}

// Config holds the risk scoring tables. Construct with DefaultConfig or
// supply alternate tuning; the scorer never mutates it.
type Config struct {
	// LevelWeights is the base contribution per effective risk level
	LevelWeights map[models.RiskLevel]float64

	// DecayBands is checked in order; the first band whose MaxAgeDays is
	// not exceeded applies. FullDecay applies past the last band and to
	// violations with missing or invalid dates.
	DecayBands []DecayBand
	FullDecay  float64

	// AgeBands is checked in order; OldFacility applies past the last band
	AgeBands    []AgeBand
	OldFacility float64

	RecentSevereMultiplier  float64
	AdverseActionMultiplier float64
	LargeCapacityThreshold  int
	LargeCapacityMultiplier float64
	BaselineScore           float64
	BaselineAdverseScore    float64
	BaselineCap             float64
	MaxScore                float64

	// ExcludedDescriptions lists standard violation descriptions that are
	// ignored once corrected
	ExcludedDescriptions []string
}

// DefaultConfig returns the standard risk scoring tables
func DefaultConfig() Config {
	return Config{
		LevelWeights: map[models.RiskLevel]float64{
			models.RiskLevelHigh:       10,
			models.RiskLevelMediumHigh: 5,
			models.RiskLevelMedium:     2,
			models.RiskLevelMediumLow:  1,
			models.RiskLevelLow:        0.5,
		},
		DecayBands: []DecayBand{
			{MaxAgeDays: 90, Factor: 1.0},
			{MaxAgeDays: 180, Factor: 0.9},
			{MaxAgeDays: 365, Factor: 0.8},
			{MaxAgeDays: 730, Factor: 0.6},
			{MaxAgeDays: 1095, Factor: 0.4},
			{MaxAgeDays: 1460, Factor: 0.3},
			{MaxAgeDays: 1825, Factor: 0.2},
		},
		FullDecay: 0.1,
		AgeBands: []AgeBand{
			{MaxYears: 1, Factor: 1.3},
			{MaxYears: 2, Factor: 1.2},
			{MaxYears: 3, Factor: 1.1},
			{MaxYears: 5, Factor: 1.0},
			{MaxYears: 10, Factor: 0.95},
			{MaxYears: 15, Factor: 0.9},
		},
		OldFacility:             0.85,
		RecentSevereMultiplier:  1.2,
		AdverseActionMultiplier: 1.5,
		LargeCapacityThreshold:  100,
		LargeCapacityMultiplier: 1.2,
		BaselineScore:           1.0,
		BaselineAdverseScore:    5.0,
		BaselineCap:             10,
		MaxScore:                100,
		ExcludedDescriptions: []string{
			"An operation must have on file a current and complete enrollment agreement for each child.",
			"The operation must post the most recent inspection notice in a prominent place.",
			"Employee records must include documentation of completed orientation.",
		},
	}
}

// Scorer aggregates a facility's classified violations into a risk score
// and the full RiskAnalysis row
type Scorer struct {
	config     Config
	classifier *classifier.Classifier
	now        func() time.Time
}

// NewScorer creates a risk scorer. The classifier is used only to recover
// matched keywords for the risk-factor explanations.
func NewScorer(config Config, cls *classifier.Classifier) *Scorer {
	return &Scorer{
		config:     config,
		classifier: cls,
		now:        time.Now,
	}
}

// SetNow overrides the clock, for deterministic tests
func (s *Scorer) SetNow(now func() time.Time) {
	s.now = now
}

// Score computes the risk score in [0, 100] for a facility and its
// classified violations
func (s *Scorer) Score(facility *models.Facility, violations []models.Violation) float64 {
	applicable := s.applicable(violations)

	if len(applicable) == 0 {
		return s.baseline(facility)
	}

	now := s.now()
	sum := 0.0
	recentSevere := false
	for i := range applicable {
		v := &applicable[i]
		weight := s.config.LevelWeights[v.EffectiveRiskLevel()]
		sum += weight * s.decayFactor(v.ActivityDate, now)

		if s.isRecent(v.ActivityDate, now) {
			switch v.EffectiveRiskLevel() {
			case models.RiskLevelHigh, models.RiskLevelMediumHigh:
				recentSevere = true
			}
		}
	}

	if recentSevere {
		sum *= s.config.RecentSevereMultiplier
	}
	if facility.AdverseAction {
		sum *= s.config.AdverseActionMultiplier
	}
	sum *= s.ageFactor(facility.YearsInOperation)

	inspections := facility.TotalInspections
	if inspections < 1 {
		inspections = 1
	}
	sum /= math.Sqrt(float64(inspections))

	return clamp(sum, 0, s.config.MaxScore)
}

// Analyze computes the full RiskAnalysis row for a facility
func (s *Scorer) Analyze(facility *models.Facility, violations []models.Violation) *models.RiskAnalysis {
	analysis := &models.RiskAnalysis{
		OperationID:     facility.OperationID,
		RiskScore:       s.Score(facility, violations),
		ViolationCounts: countByLevel(violations),
		ComputedAt:      s.now().UTC(),
	}
	if facility.AdverseAction {
		analysis.AdverseActionCount = 1
	}

	analysis.RiskFactors = s.riskFactors(violations)
	analysis.Recommendations = s.recommendations(facility, analysis)
	analysis.Summary = s.summary(facility, analysis)

	return analysis
}

// applicable filters out deny-listed standard violations that have been
// corrected
func (s *Scorer) applicable(violations []models.Violation) []models.Violation {
	result := make([]models.Violation, 0, len(violations))
	for _, v := range violations {
		if v.CorrectedDate != nil && s.isExcluded(v.Description) {
			continue
		}
		result = append(result, v)
	}
	return result
}

func (s *Scorer) isExcluded(description string) bool {
	for _, excluded := range s.config.ExcludedDescriptions {
		if strings.EqualFold(strings.TrimSpace(description), excluded) {
			return true
		}
	}
	return false
}

// baseline scores a facility with no applicable violations
func (s *Scorer) baseline(facility *models.Facility) float64 {
	score := s.config.BaselineScore
	if facility.AdverseAction {
		score = s.config.BaselineAdverseScore
	}
	score *= s.ageFactor(facility.YearsInOperation)
	if facility.TotalCapacity > s.config.LargeCapacityThreshold {
		score *= s.config.LargeCapacityMultiplier
	}
	return clamp(score, s.config.BaselineScore, s.config.BaselineCap)
}

// decayFactor returns the age-decay multiplier for a violation date.
// Missing or invalid dates count as fully decayed.
func (s *Scorer) decayFactor(activityDate *time.Time, now time.Time) float64 {
	if activityDate == nil || activityDate.IsZero() || activityDate.After(now) {
		return s.config.FullDecay
	}
	ageDays := int(now.Sub(*activityDate).Hours() / 24)
	for _, band := range s.config.DecayBands {
		if ageDays <= band.MaxAgeDays {
			return band.Factor
		}
	}
	return s.config.FullDecay
}

func (s *Scorer) isRecent(activityDate *time.Time, now time.Time) bool {
	if activityDate == nil || activityDate.IsZero() || activityDate.After(now) {
		return false
	}
	return now.Sub(*activityDate).Hours()/24 <= 365
}

// ageFactor returns the facility-age multiplier; newer facilities score
// slightly higher
func (s *Scorer) ageFactor(years float64) float64 {
	for _, band := range s.config.AgeBands {
		if years <= band.MaxYears {
			return band.Factor
		}
	}
	return s.config.OldFacility
}

// riskFactors groups classified violations into per-category factors with
// matched keywords and example descriptions
func (s *Scorer) riskFactors(violations []models.Violation) []models.RiskFactor {
	type group struct {
		worst    models.RiskLevel
		keywords map[string]bool
		examples []string
		count    int
	}
	groups := make(map[string]*group)

	for i := range violations {
		v := &violations[i]
		category := v.Category
		if category == "" || category == classifier.CategoryUnknown {
			continue
		}
		g, ok := groups[category]
		if !ok {
			g = &group{worst: v.EffectiveRiskLevel(), keywords: make(map[string]bool)}
			groups[category] = g
		}
		g.count++
		if v.EffectiveRiskLevel().Rank() > g.worst.Rank() {
			g.worst = v.EffectiveRiskLevel()
		}
		if s.classifier != nil {
			for _, kw := range s.classifier.MatchedKeywords(v.Description, category) {
				g.keywords[kw] = true
			}
		}
		if len(g.examples) < 3 {
			g.examples = append(g.examples, truncate(v.Description, 120))
		}
	}

	factors := make([]models.RiskFactor, 0, len(groups))
	for category, g := range groups {
		keywords := make([]string, 0, len(g.keywords))
		for kw := range g.keywords {
			keywords = append(keywords, kw)
		}
		sort.Strings(keywords)
		factors = append(factors, models.RiskFactor{
			Category: category,
			Severity: string(g.worst),
			Keywords: keywords,
			Examples: g.examples,
			Count:    g.count,
		})
	}

	// Highest severity first, then by count, then name for stable output
	sort.Slice(factors, func(i, j int) bool {
		ri := models.RiskLevel(factors[i].Severity).Rank()
		rj := models.RiskLevel(factors[j].Severity).Rank()
		if ri != rj {
			return ri > rj
		}
		if factors[i].Count != factors[j].Count {
			return factors[i].Count > factors[j].Count
		}
		return factors[i].Category < factors[j].Category
	})

	return factors
}

// recommendations builds advice strings from the identified factors
func (s *Scorer) recommendations(facility *models.Facility, analysis *models.RiskAnalysis) []string {
	var recs []string

	for _, factor := range analysis.RiskFactors {
		switch factor.Category {
		case "Safety":
			recs = append(recs, "Ask the director how supervision and safety findings have been addressed.")
		case "Health":
			recs = append(recs, "Review the facility's health and sanitation practices during a visit.")
		case "Transportation":
			recs = append(recs, "Verify vehicle and child-restraint procedures before using transport services.")
		case "Sleep/Rest":
			recs = append(recs, "Confirm infant sleep arrangements follow current safe-sleep guidance.")
		}
	}
	if facility.AdverseAction {
		recs = append(recs, "This facility has adverse licensing action on record; request details from the licensing agency.")
	}
	if analysis.ViolationCounts.High > 0 {
		recs = append(recs, fmt.Sprintf("Review the %d high-risk finding(s) with the operator before enrolling.", analysis.ViolationCounts.High))
	}
	if len(recs) == 0 {
		recs = append(recs, "No elevated risk indicators were identified for this facility.")
	}

	return recs
}

// summary renders the human-readable analysis text
func (s *Scorer) summary(facility *models.Facility, analysis *models.RiskAnalysis) string {
	total := analysis.ViolationCounts.Total()
	if total == 0 {
		return fmt.Sprintf("%s has no recorded violations. Computed risk score: %.1f/100.",
			facility.Name, analysis.RiskScore)
	}

	var top string
	if len(analysis.RiskFactors) > 0 {
		top = fmt.Sprintf(" The most significant area is %s (%d finding(s), worst severity %s).",
			analysis.RiskFactors[0].Category, analysis.RiskFactors[0].Count, analysis.RiskFactors[0].Severity)
	}
	return fmt.Sprintf("%s has %d recorded violation(s), %d of them high risk. Computed risk score: %.1f/100.%s",
		facility.Name, total, analysis.ViolationCounts.High, analysis.RiskScore, top)
}

func countByLevel(violations []models.Violation) models.ViolationCounts {
	var counts models.ViolationCounts
	for i := range violations {
		switch violations[i].EffectiveRiskLevel() {
		case models.RiskLevelHigh:
			counts.High++
		case models.RiskLevelMediumHigh:
			counts.MediumHigh++
		case models.RiskLevelMedium:
			counts.Medium++
		case models.RiskLevelMediumLow:
			counts.MediumLow++
		case models.RiskLevelLow:
			counts.Low++
		}
	}
	return counts
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

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
