package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsActive(t *testing.T) {
	f := Facility{Status: FacilityStatusActive}
	assert.True(t, f.IsActive())

	f.TemporarilyClosed = true
	assert.False(t, f.IsActive())

	f = Facility{Status: FacilityStatusClosed}
	assert.False(t, f.IsActive())
}

func TestServiceCount(t *testing.T) {
	f := Facility{}
	assert.Equal(t, 0, f.ServiceCount())

	f.Meals = true
	f.Transportation = true
	f.Accredited = true
	assert.Equal(t, 3, f.ServiceCount())
}

func TestAgeGroupCount(t *testing.T) {
	f := Facility{Infant: true, SchoolAge: true}
	assert.Equal(t, 2, f.AgeGroupCount())
}
