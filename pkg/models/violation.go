package models

import (
	"strings"
	"time"
)

// RiskLevel is the agency-assigned severity tag on a violation,
// ordered Low < Medium Low < Medium < Medium High < High
type RiskLevel string

const (
	RiskLevelLow        RiskLevel = "Low"
	RiskLevelMediumLow  RiskLevel = "Medium Low"
	RiskLevelMedium     RiskLevel = "Medium"
	RiskLevelMediumHigh RiskLevel = "Medium High"
	RiskLevelHigh       RiskLevel = "High"
)

// Rank returns the ordinal position of the level (Low=1 … High=5).
// Unknown levels rank 0.
func (l RiskLevel) Rank() int {
	switch l {
	case RiskLevelLow:
		return 1
	case RiskLevelMediumLow:
		return 2
	case RiskLevelMedium:
		return 3
	case RiskLevelMediumHigh:
		return 4
	case RiskLevelHigh:
		return 5
	default:
		return 0
	}
}

// ParseRiskLevel normalizes a raw dataset value into a RiskLevel.
// Unrecognized values map to Low rather than failing the record.
func ParseRiskLevel(raw string) RiskLevel {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "high":
		return RiskLevelHigh
	case "medium high", "medium-high", "med high":
		return RiskLevelMediumHigh
	case "medium", "med":
		return RiskLevelMedium
	case "medium low", "medium-low", "med low":
		return RiskLevelMediumLow
	default:
		return RiskLevelLow
	}
}

// Violation represents one non-compliance finding against a facility
type Violation struct {
	ID            string     `json:"id"`
	OperationID   string     `json:"operation_id"`
	Description   string     `json:"description"`
	RiskLevel     RiskLevel  `json:"risk_level"`
	Narrative     string     `json:"narrative,omitempty"`
	ActivityDate  *time.Time `json:"activity_date,omitempty"`
	CorrectedDate *time.Time `json:"corrected_date,omitempty"`

	// Derived by the classifier pass
	Category         string    `json:"category,omitempty"`
	RevisedRiskLevel RiskLevel `json:"revised_risk_level,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// EffectiveRiskLevel returns the revised level when set, otherwise the
// agency-assigned level
func (v *Violation) EffectiveRiskLevel() RiskLevel {
	if v.RevisedRiskLevel != "" {
		return v.RevisedRiskLevel
	}
	return v.RiskLevel
}
