package models

import (
	"time"
)

// FacilityStatus represents the operating status of a licensed facility
type FacilityStatus string

const (
	FacilityStatusActive   FacilityStatus = "ACTIVE"
	FacilityStatusInactive FacilityStatus = "INACTIVE"
	FacilityStatusClosed   FacilityStatus = "CLOSED"
)

// Facility represents one licensed daycare operation.
// OperationID is the single stable key; OperationNumber is a display code
// from the source dataset and must never be used as a join key.
type Facility struct {
	OperationID     string `json:"operation_id"`
	OperationNumber string `json:"operation_number,omitempty"`
	Name            string `json:"name"`
	OperationType   string `json:"operation_type"`
	City            string `json:"city,omitempty"`
	County          string `json:"county,omitempty"`
	Zip             string `json:"zip,omitempty"`

	// Licensed age groups served
	Infant    bool `json:"infant"`
	Toddler   bool `json:"toddler"`
	Preschool bool `json:"preschool"`
	SchoolAge bool `json:"school_age"`

	TotalCapacity    int        `json:"total_capacity"`
	IssuanceDate     *time.Time `json:"issuance_date,omitempty"`
	YearsInOperation float64    `json:"years_in_operation"`

	// Programs and services offered
	Transportation bool `json:"transportation"`
	Meals          bool `json:"meals"`
	SpecialNeeds   bool `json:"special_needs"`
	NightCare      bool `json:"night_care"`
	WeekendCare    bool `json:"weekend_care"`
	Accredited     bool `json:"accredited"`
	FieldTrips     bool `json:"field_trips"`
	DropIn         bool `json:"drop_in"`
	SkillClasses   bool `json:"skill_classes"`
	ExtendedHours  bool `json:"extended_hours"`

	Status            FacilityStatus `json:"status"`
	TemporarilyClosed bool           `json:"temporarily_closed"`
	AdverseAction     bool           `json:"adverse_action"`
	TotalInspections  int            `json:"total_inspections"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IsActive reports whether the facility is currently operating
func (f *Facility) IsActive() bool {
	return f.Status == FacilityStatusActive && !f.TemporarilyClosed
}

// ServiceCount returns the number of offered programs and services,
// used for the program-diversity signals in rating and cost
func (f *Facility) ServiceCount() int {
	count := 0
	for _, on := range []bool{
		f.Transportation, f.Meals, f.SpecialNeeds, f.NightCare,
		f.WeekendCare, f.Accredited, f.FieldTrips, f.DropIn,
		f.SkillClasses, f.ExtendedHours,
	} {
		if on {
			count++
		}
	}
	return count
}

// AgeGroupCount returns the number of licensed age groups served
func (f *Facility) AgeGroupCount() int {
	count := 0
	for _, on := range []bool{f.Infant, f.Toddler, f.Preschool, f.SchoolAge} {
		if on {
			count++
		}
	}
	return count
}
