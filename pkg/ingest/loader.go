package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/daycarealert/daycarealert-go/pkg/config"
	"github.com/daycarealert/daycarealert-go/pkg/logging"
	"github.com/daycarealert/daycarealert-go/pkg/models"
	"github.com/daycarealert/daycarealert-go/pkg/storage"
)

// Loader pulls the state operations and non-compliance datasets from the
// Socrata open-data API and upserts them through the store
type Loader struct {
	config config.IngestConfig
	store  storage.Store
	client *http.Client
	logger *logging.Logger
}

// NewLoader creates an ingest loader
func NewLoader(cfg config.IngestConfig, store storage.Store, timeout time.Duration, logger *logging.Logger) *Loader {
	return &Loader{
		config: cfg,
		store:  store,
		client: &http.Client{Timeout: timeout},
		logger: logger,
	}
}

// socrataOperation mirrors the operations dataset row. Everything arrives
// as strings; parsing is tolerant because the source data is messy.
type socrataOperation struct {
	OperationID       string `json:"operation_id"`
	OperationNumber   string `json:"operation_number"`
	OperationName     string `json:"operation_name"`
	OperationType     string `json:"operation_type"`
	City              string `json:"city"`
	County            string `json:"county"`
	Zip               string `json:"zip"`
	LicensedToServe   string `json:"licensed_to_serve_ages"`
	TotalCapacity     string `json:"total_capacity"`
	IssuanceDate      string `json:"issuance_date"`
	ProgramsProvided  string `json:"programs_provided"`
	OperationStatus   string `json:"operation_status"`
	TemporarilyClosed string `json:"temporarily_closed"`
	AdverseAction     string `json:"adverse_action"`
	TotalInspections  string `json:"total_inspections"`
}

// socrataViolation mirrors the non-compliance dataset row
type socrataViolation struct {
	NonComplianceID   string `json:"non_compliance_id"`
	OperationID       string `json:"operation_id"`
	StandardNumber    string `json:"standard_number_description"`
	RiskLevel         string `json:"standard_risk_level"`
	Narrative         string `json:"narrative"`
	ActivityDate      string `json:"activity_date"`
	CorrectedDate     string `json:"corrected_date"`
	CorrectedAtInspec string `json:"corrected_at_inspection"`
}

// ImportOperations pages through the operations dataset and upserts every
// facility. Returns the number of facilities written.
func (l *Loader) ImportOperations(ctx context.Context) (int, error) {
	total := 0
	offset := 0
	for {
		var page []socrataOperation
		if err := l.fetchPage(ctx, l.config.OperationsDataset, offset, &page); err != nil {
			return total, fmt.Errorf("failed to fetch operations page at offset %d: %w", offset, err)
		}
		if len(page) == 0 {
			break
		}

		facilities := make([]models.Facility, 0, len(page))
		for _, row := range page {
			if row.OperationID == "" {
				continue
			}
			facilities = append(facilities, l.mapOperation(row))
		}
		if err := l.store.UpsertFacilities(ctx, facilities); err != nil {
			return total, fmt.Errorf("failed to upsert facilities: %w", err)
		}

		total += len(facilities)
		l.logger.Debug("imported operations page",
			logging.Component("ingest"), logging.Int("offset", offset), logging.Int("rows", len(facilities)))

		if len(page) < l.config.PageSize {
			break
		}
		offset += l.config.PageSize
	}

	l.logger.Info("operations import complete", logging.Component("ingest"), logging.Int("facilities", total))
	return total, nil
}

// ImportViolations pages through the non-compliance dataset and upserts
// every violation. Returns the number of violations written.
func (l *Loader) ImportViolations(ctx context.Context) (int, error) {
	total := 0
	offset := 0
	for {
		var page []socrataViolation
		if err := l.fetchPage(ctx, l.config.NonComplianceDataset, offset, &page); err != nil {
			return total, fmt.Errorf("failed to fetch non-compliance page at offset %d: %w", offset, err)
		}
		if len(page) == 0 {
			break
		}

		violations := make([]models.Violation, 0, len(page))
		for _, row := range page {
			if row.NonComplianceID == "" || row.OperationID == "" {
				continue
			}
			violations = append(violations, l.mapViolation(row))
		}
		if err := l.store.UpsertViolations(ctx, violations); err != nil {
			return total, fmt.Errorf("failed to upsert violations: %w", err)
		}

		total += len(violations)
		l.logger.Debug("imported non-compliance page",
			logging.Component("ingest"), logging.Int("offset", offset), logging.Int("rows", len(violations)))

		if len(page) < l.config.PageSize {
			break
		}
		offset += l.config.PageSize
	}

	l.logger.Info("non-compliance import complete", logging.Component("ingest"), logging.Int("violations", total))
	return total, nil
}

// fetchPage retrieves one page of a dataset
func (l *Loader) fetchPage(ctx context.Context, dataset string, offset int, target any) error {
	endpoint := fmt.Sprintf("%s/%s.json?%s", strings.TrimRight(l.config.BaseURL, "/"), dataset,
		url.Values{
			"$limit":  {strconv.Itoa(l.config.PageSize)},
			"$offset": {strconv.Itoa(offset)},
			"$order":  {"operation_id"},
		}.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if l.config.AppToken != "" {
		req.Header.Set("X-App-Token", l.config.AppToken)
	}

	resp, err := l.client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d from %s", resp.StatusCode, dataset)
	}

	if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func (l *Loader) mapOperation(row socrataOperation) models.Facility {
	ages := strings.ToLower(row.LicensedToServe)
	programs := strings.ToLower(row.ProgramsProvided)
	issuance := parseDate(row.IssuanceDate)

	f := models.Facility{
		OperationID:     strings.TrimSpace(row.OperationID),
		OperationNumber: strings.TrimSpace(row.OperationNumber),
		Name:            strings.TrimSpace(row.OperationName),
		OperationType:   strings.TrimSpace(row.OperationType),
		City:            strings.TrimSpace(row.City),
		County:          strings.TrimSpace(row.County),
		Zip:             strings.TrimSpace(row.Zip),

		Infant:    strings.Contains(ages, "infant"),
		Toddler:   strings.Contains(ages, "toddler"),
		Preschool: strings.Contains(ages, "pre-kindergarten") || strings.Contains(ages, "preschool"),
		SchoolAge: strings.Contains(ages, "school"),

		TotalCapacity:    parseInt(row.TotalCapacity),
		IssuanceDate:     issuance,
		YearsInOperation: yearsSince(issuance),

		Transportation: strings.Contains(programs, "transportation"),
		Meals:          strings.Contains(programs, "meals") || strings.Contains(programs, "snacks"),
		SpecialNeeds:   strings.Contains(programs, "special needs"),
		NightCare:      strings.Contains(programs, "night care"),
		WeekendCare:    strings.Contains(programs, "weekend"),
		Accredited:     strings.Contains(programs, "accredited"),
		FieldTrips:     strings.Contains(programs, "field trips"),
		DropIn:         strings.Contains(programs, "drop-in") || strings.Contains(programs, "drop in"),
		SkillClasses:   strings.Contains(programs, "skill"),
		ExtendedHours:  strings.Contains(programs, "extended hours") || strings.Contains(programs, "before school") || strings.Contains(programs, "after school"),

		Status:            parseStatus(row.OperationStatus),
		TemporarilyClosed: parseBool(row.TemporarilyClosed),
		AdverseAction:     parseBool(row.AdverseAction),
		TotalInspections:  parseInt(row.TotalInspections),
	}
	return f
}

func (l *Loader) mapViolation(row socrataViolation) models.Violation {
	corrected := parseDate(row.CorrectedDate)
	if corrected == nil && parseBool(row.CorrectedAtInspec) {
		corrected = parseDate(row.ActivityDate)
	}
	return models.Violation{
		ID:            strings.TrimSpace(row.NonComplianceID),
		OperationID:   strings.TrimSpace(row.OperationID),
		Description:   strings.TrimSpace(row.StandardNumber),
		RiskLevel:     models.ParseRiskLevel(row.RiskLevel),
		Narrative:     strings.TrimSpace(row.Narrative),
		ActivityDate:  parseDate(row.ActivityDate),
		CorrectedDate: corrected,
	}
}

func parseStatus(raw string) models.FacilityStatus {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "Y", "ACTIVE", "":
		return models.FacilityStatusActive
	case "CLOSED", "REVOKED":
		return models.FacilityStatusClosed
	default:
		return models.FacilityStatusInactive
	}
}

func parseBool(raw string) bool {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "y", "yes", "true", "1":
		return true
	default:
		return false
	}
}

func parseInt(raw string) int {
	v, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0
	}
	return v
}

// parseDate accepts the floating timestamp and date-only forms the
// datasets use. Malformed values map to nil rather than failing the row.
func parseDate(raw string) *time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	for _, layout := range []string{
		"2006-01-02T15:04:05.000",
		"2006-01-02T15:04:05",
		"2006-01-02",
		"01/02/2006",
	} {
		if t, err := time.Parse(layout, raw); err == nil {
			return &t
		}
	}
	return nil
}

func yearsSince(t *time.Time) float64 {
	if t == nil {
		return 0
	}
	years := time.Since(*t).Hours() / 24 / 365.25
	if years < 0 {
		return 0
	}
	return years
}
