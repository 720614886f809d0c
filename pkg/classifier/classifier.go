package classifier

import (
	"strings"

	"github.com/daycarealert/daycarealert-go/pkg/models"
)

// CategoryUnknown is assigned when no keyword matches a violation
const CategoryUnknown = "Unknown"

// Category pairs a category name with its keyword list. Declaration order
// matters: ties in match count resolve to the earliest declared category.
type Category struct {
	Name     string
	Keywords []string
}

// Config holds the keyword tables for classification. The zero value is not
// usable; construct with DefaultConfig or supply alternate tuning.
type Config struct {
	Categories []Category
}

// DefaultConfig returns the standard category keyword tables
func DefaultConfig() Config {
	return Config{
		Categories: []Category{
			{
				Name: "Safety",
				Keywords: []string{
					"safety", "hazard", "supervision", "unsupervised", "injury",
					"dangerous", "weapon", "firearm", "fire extinguisher",
					"emergency", "evacuation", "playground", "restraint",
					"abuse", "neglect", "ratio", "capacity exceeded",
				},
			},
			{
				Name: "Health",
				Keywords: []string{
					"health", "sanitary", "sanitation", "hygiene", "medication",
					"immunization", "illness", "disease", "food", "nutrition",
					"allergy", "diaper", "handwashing", "hand washing",
					"first aid", "cpr", "tuberculosis",
				},
			},
			{
				Name: "Administrative",
				Keywords: []string{
					"administrative", "director", "policy", "procedure",
					"operational policies", "liability insurance", "staff record",
					"personnel", "orientation", "annual training",
				},
			},
			{
				Name: "Paperwork",
				Keywords: []string{
					"record", "documentation", "form", "signed", "statement",
					"enrollment", "admission information", "background check",
					"affidavit", "in writing",
				},
			},
			{
				Name: "Facility",
				Keywords: []string{
					"facility", "building", "equipment", "maintenance", "repair",
					"bathroom", "restroom", "kitchen", "fence", "floor", "wall",
					"lighting", "ventilation", "pest", "smoke detector",
					"indoor space", "outdoor space",
				},
			},
			{
				Name: "Transportation",
				Keywords: []string{
					"transportation", "vehicle", "driver", "seat belt",
					"car seat", "child safety seat", "field trip transport",
				},
			},
			{
				Name: "Sleep/Rest",
				Keywords: []string{
					"sleep", "nap", "rest", "crib", "bedding", "mattress",
					"swaddle", "sids", "infant sleep",
				},
			},
			{
				Name: "Child Well-being",
				Keywords: []string{
					"discipline", "punishment", "emotional", "developmental",
					"activity plan", "curriculum", "interaction", "comfort",
					"guidance", "well-being",
				},
			},
		},
	}
}

// Classifier assigns categories to violations by keyword matching
type Classifier struct {
	config Config
}

// New creates a classifier with the given keyword tables
func New(config Config) *Classifier {
	return &Classifier{config: config}
}

// Classify returns the single best-matching category for a violation
// description: the category with the highest case-insensitive substring
// match count, first declared wins ties. Returns CategoryUnknown when
// nothing matches.
func (c *Classifier) Classify(description string) string {
	text := strings.ToLower(description)

	best := CategoryUnknown
	bestCount := 0
	for _, category := range c.config.Categories {
		count := 0
		for _, keyword := range category.Keywords {
			if strings.Contains(text, keyword) {
				count++
			}
		}
		if count > bestCount {
			best = category.Name
			bestCount = count
		}
	}

	return best
}

// MatchedKeywords returns the keywords of the given category found in the
// description, used to build risk-factor explanations
func (c *Classifier) MatchedKeywords(description, categoryName string) []string {
	text := strings.ToLower(description)

	for _, category := range c.config.Categories {
		if category.Name != categoryName {
			continue
		}
		var matched []string
		for _, keyword := range category.Keywords {
			if strings.Contains(text, keyword) {
				matched = append(matched, keyword)
			}
		}
		return matched
	}
	return nil
}

// ClassifyViolation fills the derived classification fields on a violation.
// The revised risk level currently echoes the agency-assigned level; no
// reclassification policy has been specified.
func (c *Classifier) ClassifyViolation(v *models.Violation) {
	v.Category = c.Classify(v.Description)
	v.RevisedRiskLevel = v.RiskLevel
}

// ClassifyAll classifies a batch of violations in place
func (c *Classifier) ClassifyAll(violations []models.Violation) {
	for i := range violations {
		c.ClassifyViolation(&violations[i])
	}
}
