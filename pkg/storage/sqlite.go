package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/daycarealert/daycarealert-go/pkg/models"
)

// SQLiteStore implements Store on an embedded SQLite database, used for
// development deployments and package tests
type SQLiteStore struct {
	db   *sql.DB
	path string
}

// NewSQLiteStore opens (creating if necessary) a SQLite store at the given
// path and bootstraps the schema
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	s := &SQLiteStore{db: db, path: dbPath}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return s, nil
}

// initSchema creates the database schema
func (s *SQLiteStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS facilities (
		operation_id TEXT PRIMARY KEY,
		operation_number TEXT,
		name TEXT NOT NULL,
		operation_type TEXT,
		city TEXT,
		county TEXT,
		zip TEXT,
		infant BOOLEAN NOT NULL DEFAULT 0,
		toddler BOOLEAN NOT NULL DEFAULT 0,
		preschool BOOLEAN NOT NULL DEFAULT 0,
		school_age BOOLEAN NOT NULL DEFAULT 0,
		total_capacity INTEGER NOT NULL DEFAULT 0,
		issuance_date TIMESTAMP,
		years_in_operation REAL NOT NULL DEFAULT 0,
		transportation BOOLEAN NOT NULL DEFAULT 0,
		meals BOOLEAN NOT NULL DEFAULT 0,
		special_needs BOOLEAN NOT NULL DEFAULT 0,
		night_care BOOLEAN NOT NULL DEFAULT 0,
		weekend_care BOOLEAN NOT NULL DEFAULT 0,
		accredited BOOLEAN NOT NULL DEFAULT 0,
		field_trips BOOLEAN NOT NULL DEFAULT 0,
		drop_in BOOLEAN NOT NULL DEFAULT 0,
		skill_classes BOOLEAN NOT NULL DEFAULT 0,
		extended_hours BOOLEAN NOT NULL DEFAULT 0,
		status TEXT NOT NULL DEFAULT 'ACTIVE',
		temporarily_closed BOOLEAN NOT NULL DEFAULT 0,
		adverse_action BOOLEAN NOT NULL DEFAULT 0,
		total_inspections INTEGER NOT NULL DEFAULT 0,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_facilities_status ON facilities(status);
	CREATE INDEX IF NOT EXISTS idx_facilities_county ON facilities(county);

	CREATE TABLE IF NOT EXISTS violations (
		id TEXT PRIMARY KEY,
		operation_id TEXT NOT NULL,
		description TEXT NOT NULL,
		risk_level TEXT NOT NULL,
		narrative TEXT,
		activity_date TIMESTAMP,
		corrected_date TIMESTAMP,
		category TEXT,
		revised_risk_level TEXT,
		created_at TIMESTAMP NOT NULL,
		FOREIGN KEY (operation_id) REFERENCES facilities(operation_id)
	);

	CREATE INDEX IF NOT EXISTS idx_violations_operation ON violations(operation_id);

	CREATE TABLE IF NOT EXISTS risk_analyses (
		operation_id TEXT PRIMARY KEY,
		risk_score REAL NOT NULL,
		high_count INTEGER NOT NULL DEFAULT 0,
		medium_high_count INTEGER NOT NULL DEFAULT 0,
		medium_count INTEGER NOT NULL DEFAULT 0,
		medium_low_count INTEGER NOT NULL DEFAULT 0,
		low_count INTEGER NOT NULL DEFAULT 0,
		adverse_action_count INTEGER NOT NULL DEFAULT 0,
		summary TEXT,
		risk_factors TEXT,
		recommendations TEXT,
		computed_at TIMESTAMP NOT NULL
	);

	CREATE TABLE IF NOT EXISTS ratings (
		operation_id TEXT PRIMARY KEY,
		overall REAL NOT NULL,
		safety REAL NOT NULL,
		health REAL NOT NULL,
		wellbeing REAL NOT NULL,
		facility REAL NOT NULL,
		admin REAL NOT NULL,
		risk_score REAL NOT NULL,
		violation_count INTEGER NOT NULL DEFAULT 0,
		high_risk_count INTEGER NOT NULL DEFAULT 0,
		rating_factors TEXT,
		quality_indicators TEXT,
		computed_at TIMESTAMP NOT NULL
	);

	CREATE TABLE IF NOT EXISTS cost_estimates (
		operation_id TEXT PRIMARY KEY,
		monthly INTEGER NOT NULL,
		weekly INTEGER NOT NULL,
		breakdown TEXT,
		computed_at TIMESTAMP NOT NULL
	);

	CREATE TABLE IF NOT EXISTS pipeline_runs (
		id TEXT PRIMARY KEY,
		status TEXT NOT NULL,
		processed INTEGER NOT NULL DEFAULT 0,
		failed INTEGER NOT NULL DEFAULT 0,
		started_at TIMESTAMP NOT NULL,
		finished_at TIMESTAMP,
		triggered_by TEXT,
		error TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_runs_started ON pipeline_runs(started_at);
	`

	_, err := s.db.Exec(schema)
	return err
}

// UpsertFacilities writes a batch of facilities, replacing on conflict
func (s *SQLiteStore) UpsertFacilities(ctx context.Context, facilities []models.Facility) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO facilities (
			operation_id, operation_number, name, operation_type, city, county, zip,
			infant, toddler, preschool, school_age, total_capacity, issuance_date,
			years_in_operation, transportation, meals, special_needs, night_care,
			weekend_care, accredited, field_trips, drop_in, skill_classes,
			extended_hours, status, temporarily_closed, adverse_action,
			total_inspections, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(operation_id) DO UPDATE SET
			operation_number = excluded.operation_number,
			name = excluded.name,
			operation_type = excluded.operation_type,
			city = excluded.city,
			county = excluded.county,
			zip = excluded.zip,
			infant = excluded.infant,
			toddler = excluded.toddler,
			preschool = excluded.preschool,
			school_age = excluded.school_age,
			total_capacity = excluded.total_capacity,
			issuance_date = excluded.issuance_date,
			years_in_operation = excluded.years_in_operation,
			transportation = excluded.transportation,
			meals = excluded.meals,
			special_needs = excluded.special_needs,
			night_care = excluded.night_care,
			weekend_care = excluded.weekend_care,
			accredited = excluded.accredited,
			field_trips = excluded.field_trips,
			drop_in = excluded.drop_in,
			skill_classes = excluded.skill_classes,
			extended_hours = excluded.extended_hours,
			status = excluded.status,
			temporarily_closed = excluded.temporarily_closed,
			adverse_action = excluded.adverse_action,
			total_inspections = excluded.total_inspections,
			updated_at = excluded.updated_at
	`

	now := time.Now().UTC()
	for i := range facilities {
		f := &facilities[i]
		createdAt := f.CreatedAt
		if createdAt.IsZero() {
			createdAt = now
		}
		_, err := tx.ExecContext(ctx, query,
			f.OperationID, f.OperationNumber, f.Name, f.OperationType, f.City, f.County, f.Zip,
			f.Infant, f.Toddler, f.Preschool, f.SchoolAge, f.TotalCapacity, nullableTime(f.IssuanceDate),
			f.YearsInOperation, f.Transportation, f.Meals, f.SpecialNeeds, f.NightCare,
			f.WeekendCare, f.Accredited, f.FieldTrips, f.DropIn, f.SkillClasses,
			f.ExtendedHours, string(f.Status), f.TemporarilyClosed, f.AdverseAction,
			f.TotalInspections, createdAt, now,
		)
		if err != nil {
			return fmt.Errorf("failed to upsert facility %s: %w", f.OperationID, err)
		}
	}

	return tx.Commit()
}

const facilityColumns = `
	operation_id, operation_number, name, operation_type, city, county, zip,
	infant, toddler, preschool, school_age, total_capacity, issuance_date,
	years_in_operation, transportation, meals, special_needs, night_care,
	weekend_care, accredited, field_trips, drop_in, skill_classes,
	extended_hours, status, temporarily_closed, adverse_action,
	total_inspections, created_at, updated_at`

func scanFacility(row interface{ Scan(...any) error }) (*models.Facility, error) {
	var f models.Facility
	var issuance sql.NullTime
	var status string
	err := row.Scan(
		&f.OperationID, &f.OperationNumber, &f.Name, &f.OperationType, &f.City, &f.County, &f.Zip,
		&f.Infant, &f.Toddler, &f.Preschool, &f.SchoolAge, &f.TotalCapacity, &issuance,
		&f.YearsInOperation, &f.Transportation, &f.Meals, &f.SpecialNeeds, &f.NightCare,
		&f.WeekendCare, &f.Accredited, &f.FieldTrips, &f.DropIn, &f.SkillClasses,
		&f.ExtendedHours, &status, &f.TemporarilyClosed, &f.AdverseAction,
		&f.TotalInspections, &f.CreatedAt, &f.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	f.Status = models.FacilityStatus(status)
	if issuance.Valid {
		f.IssuanceDate = &issuance.Time
	}
	return &f, nil
}

// GetFacility retrieves a facility by operation ID
func (s *SQLiteStore) GetFacility(ctx context.Context, operationID string) (*models.Facility, error) {
	query := `SELECT ` + facilityColumns + ` FROM facilities WHERE operation_id = ?`
	f, err := scanFacility(s.db.QueryRowContext(ctx, query, operationID))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get facility: %w", err)
	}
	return f, nil
}

// ListFacilities retrieves facilities matching the filter
func (s *SQLiteStore) ListFacilities(ctx context.Context, filter models.FacilityFilter) ([]models.Facility, error) {
	query := `SELECT ` + facilityColumns + ` FROM facilities WHERE 1=1`
	var args []any
	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, filter.Status)
	}
	if filter.County != "" {
		query += ` AND county = ? COLLATE NOCASE`
		args = append(args, filter.County)
	}
	if filter.City != "" {
		query += ` AND city = ? COLLATE NOCASE`
		args = append(args, filter.City)
	}
	if filter.Zip != "" {
		query += ` AND zip = ?`
		args = append(args, filter.Zip)
	}
	query += ` ORDER BY operation_id`
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	} else if filter.Offset > 0 {
		// SQLite requires a LIMIT clause before OFFSET
		query += ` LIMIT -1`
	}
	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list facilities: %w", err)
	}
	defer rows.Close()

	var facilities []models.Facility
	for rows.Next() {
		f, err := scanFacility(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan facility: %w", err)
		}
		facilities = append(facilities, *f)
	}
	return facilities, rows.Err()
}

// UpsertViolations writes a batch of violations, replacing on conflict
func (s *SQLiteStore) UpsertViolations(ctx context.Context, violations []models.Violation) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO violations (
			id, operation_id, description, risk_level, narrative,
			activity_date, corrected_date, category, revised_risk_level, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			description = excluded.description,
			risk_level = excluded.risk_level,
			narrative = excluded.narrative,
			activity_date = excluded.activity_date,
			corrected_date = excluded.corrected_date,
			category = excluded.category,
			revised_risk_level = excluded.revised_risk_level
	`

	now := time.Now().UTC()
	for i := range violations {
		v := &violations[i]
		createdAt := v.CreatedAt
		if createdAt.IsZero() {
			createdAt = now
		}
		_, err := tx.ExecContext(ctx, query,
			v.ID, v.OperationID, v.Description, string(v.RiskLevel), v.Narrative,
			nullableTime(v.ActivityDate), nullableTime(v.CorrectedDate),
			v.Category, string(v.RevisedRiskLevel), createdAt,
		)
		if err != nil {
			return fmt.Errorf("failed to upsert violation %s: %w", v.ID, err)
		}
	}

	return tx.Commit()
}

// ListViolations retrieves all violations for a facility
func (s *SQLiteStore) ListViolations(ctx context.Context, operationID string) ([]models.Violation, error) {
	query := `
		SELECT id, operation_id, description, risk_level, narrative,
		       activity_date, corrected_date, category, revised_risk_level, created_at
		FROM violations
		WHERE operation_id = ?
		ORDER BY activity_date DESC, id
	`
	rows, err := s.db.QueryContext(ctx, query, operationID)
	if err != nil {
		return nil, fmt.Errorf("failed to list violations: %w", err)
	}
	defer rows.Close()

	var violations []models.Violation
	for rows.Next() {
		var v models.Violation
		var activity, corrected sql.NullTime
		var level, revised string
		if err := rows.Scan(&v.ID, &v.OperationID, &v.Description, &level, &v.Narrative,
			&activity, &corrected, &v.Category, &revised, &v.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan violation: %w", err)
		}
		v.RiskLevel = models.RiskLevel(level)
		v.RevisedRiskLevel = models.RiskLevel(revised)
		if activity.Valid {
			v.ActivityDate = &activity.Time
		}
		if corrected.Valid {
			v.CorrectedDate = &corrected.Time
		}
		violations = append(violations, v)
	}
	return violations, rows.Err()
}

// UpdateViolationClassification overwrites the derived classification
// fields of one violation
func (s *SQLiteStore) UpdateViolationClassification(ctx context.Context, id, category string, revised models.RiskLevel) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE violations SET category = ?, revised_risk_level = ? WHERE id = ?`,
		category, string(revised), id)
	if err != nil {
		return fmt.Errorf("failed to update violation classification: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// UpsertRiskAnalysis writes the derived risk row, replacing on conflict
func (s *SQLiteStore) UpsertRiskAnalysis(ctx context.Context, analysis *models.RiskAnalysis) error {
	factors, err := json.Marshal(analysis.RiskFactors)
	if err != nil {
		return fmt.Errorf("failed to marshal risk factors: %w", err)
	}
	recs, err := json.Marshal(analysis.Recommendations)
	if err != nil {
		return fmt.Errorf("failed to marshal recommendations: %w", err)
	}

	query := `
		INSERT INTO risk_analyses (
			operation_id, risk_score, high_count, medium_high_count, medium_count,
			medium_low_count, low_count, adverse_action_count, summary,
			risk_factors, recommendations, computed_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(operation_id) DO UPDATE SET
			risk_score = excluded.risk_score,
			high_count = excluded.high_count,
			medium_high_count = excluded.medium_high_count,
			medium_count = excluded.medium_count,
			medium_low_count = excluded.medium_low_count,
			low_count = excluded.low_count,
			adverse_action_count = excluded.adverse_action_count,
			summary = excluded.summary,
			risk_factors = excluded.risk_factors,
			recommendations = excluded.recommendations,
			computed_at = excluded.computed_at
	`
	c := analysis.ViolationCounts
	_, err = s.db.ExecContext(ctx, query,
		analysis.OperationID, analysis.RiskScore, c.High, c.MediumHigh, c.Medium,
		c.MediumLow, c.Low, analysis.AdverseActionCount, analysis.Summary,
		string(factors), string(recs), analysis.ComputedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert risk analysis: %w", err)
	}
	return nil
}

// GetRiskAnalysis retrieves the derived risk row for a facility
func (s *SQLiteStore) GetRiskAnalysis(ctx context.Context, operationID string) (*models.RiskAnalysis, error) {
	query := `
		SELECT operation_id, risk_score, high_count, medium_high_count, medium_count,
		       medium_low_count, low_count, adverse_action_count, summary,
		       risk_factors, recommendations, computed_at
		FROM risk_analyses WHERE operation_id = ?
	`
	var a models.RiskAnalysis
	var factors, recs string
	err := s.db.QueryRowContext(ctx, query, operationID).Scan(
		&a.OperationID, &a.RiskScore, &a.ViolationCounts.High, &a.ViolationCounts.MediumHigh,
		&a.ViolationCounts.Medium, &a.ViolationCounts.MediumLow, &a.ViolationCounts.Low,
		&a.AdverseActionCount, &a.Summary, &factors, &recs, &a.ComputedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get risk analysis: %w", err)
	}
	if err := unmarshalJSON(factors, &a.RiskFactors); err != nil {
		return nil, err
	}
	if err := unmarshalJSON(recs, &a.Recommendations); err != nil {
		return nil, err
	}
	return &a, nil
}

// UpsertRating writes the derived rating row, replacing on conflict
func (s *SQLiteStore) UpsertRating(ctx context.Context, rating *models.Rating) error {
	factors, err := json.Marshal(rating.RatingFactors)
	if err != nil {
		return fmt.Errorf("failed to marshal rating factors: %w", err)
	}
	indicators, err := json.Marshal(rating.QualityIndicators)
	if err != nil {
		return fmt.Errorf("failed to marshal quality indicators: %w", err)
	}

	query := `
		INSERT INTO ratings (
			operation_id, overall, safety, health, wellbeing, facility, admin,
			risk_score, violation_count, high_risk_count, rating_factors,
			quality_indicators, computed_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(operation_id) DO UPDATE SET
			overall = excluded.overall,
			safety = excluded.safety,
			health = excluded.health,
			wellbeing = excluded.wellbeing,
			facility = excluded.facility,
			admin = excluded.admin,
			risk_score = excluded.risk_score,
			violation_count = excluded.violation_count,
			high_risk_count = excluded.high_risk_count,
			rating_factors = excluded.rating_factors,
			quality_indicators = excluded.quality_indicators,
			computed_at = excluded.computed_at
	`
	sub := rating.Subratings
	_, err = s.db.ExecContext(ctx, query,
		rating.OperationID, rating.Overall, sub.Safety, sub.Health, sub.Wellbeing,
		sub.Facility, sub.Admin, rating.RiskScore, rating.ViolationCount,
		rating.HighRiskCount, string(factors), string(indicators), rating.ComputedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert rating: %w", err)
	}
	return nil
}

// GetRating retrieves the derived rating row for a facility
func (s *SQLiteStore) GetRating(ctx context.Context, operationID string) (*models.Rating, error) {
	query := `
		SELECT operation_id, overall, safety, health, wellbeing, facility, admin,
		       risk_score, violation_count, high_risk_count, rating_factors,
		       quality_indicators, computed_at
		FROM ratings WHERE operation_id = ?
	`
	var r models.Rating
	var factors, indicators string
	err := s.db.QueryRowContext(ctx, query, operationID).Scan(
		&r.OperationID, &r.Overall, &r.Subratings.Safety, &r.Subratings.Health,
		&r.Subratings.Wellbeing, &r.Subratings.Facility, &r.Subratings.Admin,
		&r.RiskScore, &r.ViolationCount, &r.HighRiskCount, &factors, &indicators,
		&r.ComputedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get rating: %w", err)
	}
	if err := unmarshalJSON(factors, &r.RatingFactors); err != nil {
		return nil, err
	}
	if err := unmarshalJSON(indicators, &r.QualityIndicators); err != nil {
		return nil, err
	}
	return &r, nil
}

// UpsertCostEstimate writes the derived cost row, replacing on conflict
func (s *SQLiteStore) UpsertCostEstimate(ctx context.Context, estimate *models.CostEstimate) error {
	breakdown, err := json.Marshal(estimate.Breakdown)
	if err != nil {
		return fmt.Errorf("failed to marshal cost breakdown: %w", err)
	}

	query := `
		INSERT INTO cost_estimates (operation_id, monthly, weekly, breakdown, computed_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(operation_id) DO UPDATE SET
			monthly = excluded.monthly,
			weekly = excluded.weekly,
			breakdown = excluded.breakdown,
			computed_at = excluded.computed_at
	`
	_, err = s.db.ExecContext(ctx, query,
		estimate.OperationID, estimate.Monthly, estimate.Weekly,
		string(breakdown), estimate.ComputedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert cost estimate: %w", err)
	}
	return nil
}

// GetCostEstimate retrieves the derived cost row for a facility
func (s *SQLiteStore) GetCostEstimate(ctx context.Context, operationID string) (*models.CostEstimate, error) {
	query := `
		SELECT operation_id, monthly, weekly, breakdown, computed_at
		FROM cost_estimates WHERE operation_id = ?
	`
	var e models.CostEstimate
	var breakdown string
	err := s.db.QueryRowContext(ctx, query, operationID).Scan(
		&e.OperationID, &e.Monthly, &e.Weekly, &breakdown, &e.ComputedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get cost estimate: %w", err)
	}
	if err := json.Unmarshal([]byte(breakdown), &e.Breakdown); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cost breakdown: %w", err)
	}
	return &e, nil
}

// SavePipelineRun writes a run record, replacing on conflict
func (s *SQLiteStore) SavePipelineRun(ctx context.Context, run *models.PipelineRun) error {
	query := `
		INSERT INTO pipeline_runs (id, status, processed, failed, started_at, finished_at, triggered_by, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status = excluded.status,
			processed = excluded.processed,
			failed = excluded.failed,
			finished_at = excluded.finished_at,
			error = excluded.error
	`
	_, err := s.db.ExecContext(ctx, query,
		run.ID, string(run.Status), run.Processed, run.Failed,
		run.StartedAt, nullableTime(run.FinishedAt), run.TriggeredBy, run.Error,
	)
	if err != nil {
		return fmt.Errorf("failed to save pipeline run: %w", err)
	}
	return nil
}

// GetPipelineRun retrieves a run record by ID
func (s *SQLiteStore) GetPipelineRun(ctx context.Context, id string) (*models.PipelineRun, error) {
	query := `
		SELECT id, status, processed, failed, started_at, finished_at, triggered_by, error
		FROM pipeline_runs WHERE id = ?
	`
	run, err := scanPipelineRun(s.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get pipeline run: %w", err)
	}
	return run, nil
}

// ListPipelineRuns retrieves the most recent run records
func (s *SQLiteStore) ListPipelineRuns(ctx context.Context, limit int) ([]models.PipelineRun, error) {
	if limit <= 0 {
		limit = 20
	}
	query := `
		SELECT id, status, processed, failed, started_at, finished_at, triggered_by, error
		FROM pipeline_runs ORDER BY started_at DESC LIMIT ?
	`
	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list pipeline runs: %w", err)
	}
	defer rows.Close()

	var runs []models.PipelineRun
	for rows.Next() {
		run, err := scanPipelineRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan pipeline run: %w", err)
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func scanPipelineRun(row interface{ Scan(...any) error }) (*models.PipelineRun, error) {
	var run models.PipelineRun
	var status string
	var finished sql.NullTime
	err := row.Scan(&run.ID, &status, &run.Processed, &run.Failed,
		&run.StartedAt, &finished, &run.TriggeredBy, &run.Error)
	if err != nil {
		return nil, err
	}
	run.Status = models.PipelineRunStatus(status)
	if finished.Valid {
		run.FinishedAt = &finished.Time
	}
	return &run, nil
}

func nullableTime(t *time.Time) any {
	if t == nil || t.IsZero() {
		return nil
	}
	return *t
}

func unmarshalJSON[T any](data string, target *T) error {
	if data == "" {
		return nil
	}
	if err := json.Unmarshal([]byte(data), target); err != nil {
		return fmt.Errorf("failed to unmarshal stored JSON: %w", err)
	}
	return nil
}
