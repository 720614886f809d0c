package classifier

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/daycarealert/daycarealert-go/pkg/models"
)

func TestClassifyByKeyword(t *testing.T) {
	c := New(DefaultConfig())

	tests := []struct {
		description string
		expected    string
	}{
		{"Caregiver failed to provide adequate supervision on the playground", "Safety"},
		{"Medication was not stored in its original container", "Health"},
		{"The director did not complete required annual training", "Administrative"},
		{"Vehicle used for transportation lacked a child safety seat", "Transportation"},
		{"Infant was placed in a crib with loose bedding", "Sleep/Rest"},
		{"Smoke detector in the kitchen was not operational", "Facility"},
		{"Inappropriate discipline was used with a child", "Child Well-being"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, c.Classify(tt.description), tt.description)
	}
}

func TestClassifyNoMatchReturnsUnknown(t *testing.T) {
	c := New(DefaultConfig())
	assert.Equal(t, CategoryUnknown, c.Classify("lorem ipsum dolor"))
	assert.Equal(t, CategoryUnknown, c.Classify(""))
}

func TestClassifyCaseInsensitive(t *testing.T) {
	c := New(DefaultConfig())
	assert.Equal(t, "Safety", c.Classify("SAFETY HAZARD observed near the entrance"))
}

func TestClassifyTieBreaksToFirstDeclared(t *testing.T) {
	c := New(DefaultConfig())
	// "staff record" matches one Administrative keyword and one Paperwork
	// keyword; Administrative is declared first
	assert.Equal(t, "Administrative", c.Classify("staff record"))
}

func TestClassifyPrefersMoreMatches(t *testing.T) {
	c := New(DefaultConfig())
	// two Health keywords against one Safety keyword
	assert.Equal(t, "Health", c.Classify("food hygiene issue created a hazard"))
}

func TestMatchedKeywords(t *testing.T) {
	c := New(DefaultConfig())

	matched := c.MatchedKeywords("Playground supervision was inadequate", "Safety")
	assert.ElementsMatch(t, []string{"supervision", "playground"}, matched)

	assert.Nil(t, c.MatchedKeywords("anything", "NoSuchCategory"))
	assert.Empty(t, c.MatchedKeywords("lorem ipsum", "Safety"))
}

func TestClassifyViolationSetsDerivedFields(t *testing.T) {
	c := New(DefaultConfig())

	v := models.Violation{
		Description: "Child left unsupervised near a hazard",
		RiskLevel:   models.RiskLevelHigh,
	}
	c.ClassifyViolation(&v)

	assert.Equal(t, "Safety", v.Category)
	assert.Equal(t, models.RiskLevelHigh, v.RevisedRiskLevel)
}

func TestClassifyAll(t *testing.T) {
	c := New(DefaultConfig())

	violations := []models.Violation{
		{Description: "handwashing was not observed", RiskLevel: models.RiskLevelMedium},
		{Description: "zzzz", RiskLevel: models.RiskLevelLow},
	}
	c.ClassifyAll(violations)

	assert.Equal(t, "Health", violations[0].Category)
	assert.Equal(t, CategoryUnknown, violations[1].Category)
	assert.Equal(t, models.RiskLevelMedium, violations[0].RevisedRiskLevel)
}
