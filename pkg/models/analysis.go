package models

import (
	"time"
)

// ViolationCounts holds per-risk-level violation tallies for a facility
type ViolationCounts struct {
	High       int `json:"high"`
	MediumHigh int `json:"medium_high"`
	Medium     int `json:"medium"`
	MediumLow  int `json:"medium_low"`
	Low        int `json:"low"`
}

// Total returns the sum over all levels
func (c ViolationCounts) Total() int {
	return c.High + c.MediumHigh + c.Medium + c.MediumLow + c.Low
}

// RiskFactor is one identified contributor to a facility's risk score,
// grouped by classified category
type RiskFactor struct {
	Category string   `json:"category"`
	Severity string   `json:"severity"`
	Keywords []string `json:"keywords,omitempty"`
	Examples []string `json:"examples,omitempty"`
	Count    int      `json:"count"`
}

// RiskAnalysis is the derived risk row for a facility, recomputed wholesale
// on every pipeline run and upserted by operation ID
type RiskAnalysis struct {
	OperationID        string          `json:"operation_id"`
	RiskScore          float64         `json:"risk_score"`
	ViolationCounts    ViolationCounts `json:"violation_counts"`
	AdverseActionCount int             `json:"adverse_action_count"`
	Summary            string          `json:"summary"`
	RiskFactors        []RiskFactor    `json:"risk_factors,omitempty"`
	Recommendations    []string        `json:"recommendations,omitempty"`
	ComputedAt         time.Time       `json:"computed_at"`
}

// Subratings are the five 1-10 sub-category ratings
type Subratings struct {
	Safety    float64 `json:"safety"`
	Health    float64 `json:"health"`
	Wellbeing float64 `json:"wellbeing"`
	Facility  float64 `json:"facility"`
	Admin     float64 `json:"admin"`
}

// RatingFactor records one adjustment applied while computing the overall
// rating, so downstream consumers can explain the number
type RatingFactor struct {
	Name   string  `json:"name"`
	Impact float64 `json:"impact"`
	Detail string  `json:"detail,omitempty"`
}

// Rating is the derived star-rating row for a facility
type Rating struct {
	OperationID       string         `json:"operation_id"`
	Overall           float64        `json:"overall"`
	Subratings        Subratings     `json:"subratings"`
	RiskScore         float64        `json:"risk_score"`
	ViolationCount    int            `json:"violation_count"`
	HighRiskCount     int            `json:"high_risk_count"`
	RatingFactors     []RatingFactor `json:"rating_factors,omitempty"`
	QualityIndicators []string       `json:"quality_indicators,omitempty"`
	ComputedAt        time.Time      `json:"computed_at"`
}

// CostBreakdown records every multiplicative factor applied to the base
// amount, for auditability
type CostBreakdown struct {
	Base           float64 `json:"base"`
	AgeMultiplier  float64 `json:"age_multiplier"`
	TypeMultiplier float64 `json:"type_multiplier"`
	ServicePct     float64 `json:"service_pct"`
	RiskPct        float64 `json:"risk_pct"`
	ExperiencePct  float64 `json:"experience_pct"`
	LocationPct    float64 `json:"location_pct"`
	CapacityPct    float64 `json:"capacity_pct"`
}

// CostEstimate is the derived cost row for a facility.
// Weekly is always round(Monthly / 4.33).
type CostEstimate struct {
	OperationID string        `json:"operation_id"`
	Monthly     int           `json:"monthly"`
	Weekly      int           `json:"weekly"`
	Breakdown   CostBreakdown `json:"breakdown"`
	ComputedAt  time.Time     `json:"computed_at"`
}

// PipelineRunStatus represents the lifecycle state of a batch scoring run
type PipelineRunStatus string

const (
	PipelineRunStatusRunning   PipelineRunStatus = "running"
	PipelineRunStatusCompleted PipelineRunStatus = "completed"
	PipelineRunStatusFailed    PipelineRunStatus = "failed"
)

// PipelineRun records one batch scoring run over the facility set
type PipelineRun struct {
	ID          string            `json:"id"`
	Status      PipelineRunStatus `json:"status"`
	Processed   int               `json:"processed"`
	Failed      int               `json:"failed"`
	StartedAt   time.Time         `json:"started_at"`
	FinishedAt  *time.Time        `json:"finished_at,omitempty"`
	TriggeredBy string            `json:"triggered_by,omitempty"`
	Error       string            `json:"error,omitempty"`
}

// FacilityFilter narrows facility list queries
type FacilityFilter struct {
	Status string
	County string
	City   string
	Zip    string
	Limit  int
	Offset int
}
