package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/daycarealert/daycarealert-go/pkg/config"
	"github.com/daycarealert/daycarealert-go/pkg/models"
)

// PostgresStore implements Store on a PostgreSQL connection pool
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore connects to PostgreSQL, verifies the connection, and
// bootstraps the schema
func NewPostgresStore(ctx context.Context, cfg config.DatabaseConfig) (*PostgresStore, error) {
	dsn := fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.Name, cfg.SSLMode)

	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}
	if cfg.MaxConnections > 0 {
		poolConfig.MaxConns = int32(cfg.MaxConnections)
	}
	poolConfig.MaxConnLifetime = time.Hour

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := &PostgresStore{pool: pool}
	if err := s.initSchema(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return s, nil
}

func (s *PostgresStore) initSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS facilities (
		operation_id TEXT PRIMARY KEY,
		operation_number TEXT,
		name TEXT NOT NULL,
		operation_type TEXT,
		city TEXT,
		county TEXT,
		zip TEXT,
		infant BOOLEAN NOT NULL DEFAULT FALSE,
		toddler BOOLEAN NOT NULL DEFAULT FALSE,
		preschool BOOLEAN NOT NULL DEFAULT FALSE,
		school_age BOOLEAN NOT NULL DEFAULT FALSE,
		total_capacity INTEGER NOT NULL DEFAULT 0,
		issuance_date TIMESTAMPTZ,
		years_in_operation DOUBLE PRECISION NOT NULL DEFAULT 0,
		transportation BOOLEAN NOT NULL DEFAULT FALSE,
		meals BOOLEAN NOT NULL DEFAULT FALSE,
		special_needs BOOLEAN NOT NULL DEFAULT FALSE,
		night_care BOOLEAN NOT NULL DEFAULT FALSE,
		weekend_care BOOLEAN NOT NULL DEFAULT FALSE,
		accredited BOOLEAN NOT NULL DEFAULT FALSE,
		field_trips BOOLEAN NOT NULL DEFAULT FALSE,
		drop_in BOOLEAN NOT NULL DEFAULT FALSE,
		skill_classes BOOLEAN NOT NULL DEFAULT FALSE,
		extended_hours BOOLEAN NOT NULL DEFAULT FALSE,
		status TEXT NOT NULL DEFAULT 'ACTIVE',
		temporarily_closed BOOLEAN NOT NULL DEFAULT FALSE,
		adverse_action BOOLEAN NOT NULL DEFAULT FALSE,
		total_inspections INTEGER NOT NULL DEFAULT 0,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_facilities_status ON facilities(status);
	CREATE INDEX IF NOT EXISTS idx_facilities_county ON facilities(county);

	CREATE TABLE IF NOT EXISTS violations (
		id TEXT PRIMARY KEY,
		operation_id TEXT NOT NULL REFERENCES facilities(operation_id),
		description TEXT NOT NULL,
		risk_level TEXT NOT NULL,
		narrative TEXT,
		activity_date TIMESTAMPTZ,
		corrected_date TIMESTAMPTZ,
		category TEXT,
		revised_risk_level TEXT,
		created_at TIMESTAMPTZ NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_violations_operation ON violations(operation_id);

	CREATE TABLE IF NOT EXISTS risk_analyses (
		operation_id TEXT PRIMARY KEY,
		risk_score DOUBLE PRECISION NOT NULL,
		high_count INTEGER NOT NULL DEFAULT 0,
		medium_high_count INTEGER NOT NULL DEFAULT 0,
		medium_count INTEGER NOT NULL DEFAULT 0,
		medium_low_count INTEGER NOT NULL DEFAULT 0,
		low_count INTEGER NOT NULL DEFAULT 0,
		adverse_action_count INTEGER NOT NULL DEFAULT 0,
		summary TEXT,
		risk_factors JSONB,
		recommendations JSONB,
		computed_at TIMESTAMPTZ NOT NULL
	);

	CREATE TABLE IF NOT EXISTS ratings (
		operation_id TEXT PRIMARY KEY,
		overall DOUBLE PRECISION NOT NULL,
		safety DOUBLE PRECISION NOT NULL,
		health DOUBLE PRECISION NOT NULL,
		wellbeing DOUBLE PRECISION NOT NULL,
		facility DOUBLE PRECISION NOT NULL,
		admin DOUBLE PRECISION NOT NULL,
		risk_score DOUBLE PRECISION NOT NULL,
		violation_count INTEGER NOT NULL DEFAULT 0,
		high_risk_count INTEGER NOT NULL DEFAULT 0,
		rating_factors JSONB,
		quality_indicators JSONB,
		computed_at TIMESTAMPTZ NOT NULL
	);

	CREATE TABLE IF NOT EXISTS cost_estimates (
		operation_id TEXT PRIMARY KEY,
		monthly INTEGER NOT NULL,
		weekly INTEGER NOT NULL,
		breakdown JSONB,
		computed_at TIMESTAMPTZ NOT NULL
	);

	CREATE TABLE IF NOT EXISTS pipeline_runs (
		id TEXT PRIMARY KEY,
		status TEXT NOT NULL,
		processed INTEGER NOT NULL DEFAULT 0,
		failed INTEGER NOT NULL DEFAULT 0,
		started_at TIMESTAMPTZ NOT NULL,
		finished_at TIMESTAMPTZ,
		triggered_by TEXT,
		error TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_runs_started ON pipeline_runs(started_at);
	`

	_, err := s.pool.Exec(ctx, schema)
	return err
}

// UpsertFacilities writes a batch of facilities, replacing on conflict
func (s *PostgresStore) UpsertFacilities(ctx context.Context, facilities []models.Facility) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO facilities (
			operation_id, operation_number, name, operation_type, city, county, zip,
			infant, toddler, preschool, school_age, total_capacity, issuance_date,
			years_in_operation, transportation, meals, special_needs, night_care,
			weekend_care, accredited, field_trips, drop_in, skill_classes,
			extended_hours, status, temporarily_closed, adverse_action,
			total_inspections, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15,
		          $16, $17, $18, $19, $20, $21, $22, $23, $24, $25, $26, $27, $28, $29, $30)
		ON CONFLICT (operation_id) DO UPDATE SET
			operation_number = EXCLUDED.operation_number,
			name = EXCLUDED.name,
			operation_type = EXCLUDED.operation_type,
			city = EXCLUDED.city,
			county = EXCLUDED.county,
			zip = EXCLUDED.zip,
			infant = EXCLUDED.infant,
			toddler = EXCLUDED.toddler,
			preschool = EXCLUDED.preschool,
			school_age = EXCLUDED.school_age,
			total_capacity = EXCLUDED.total_capacity,
			issuance_date = EXCLUDED.issuance_date,
			years_in_operation = EXCLUDED.years_in_operation,
			transportation = EXCLUDED.transportation,
			meals = EXCLUDED.meals,
			special_needs = EXCLUDED.special_needs,
			night_care = EXCLUDED.night_care,
			weekend_care = EXCLUDED.weekend_care,
			accredited = EXCLUDED.accredited,
			field_trips = EXCLUDED.field_trips,
			drop_in = EXCLUDED.drop_in,
			skill_classes = EXCLUDED.skill_classes,
			extended_hours = EXCLUDED.extended_hours,
			status = EXCLUDED.status,
			temporarily_closed = EXCLUDED.temporarily_closed,
			adverse_action = EXCLUDED.adverse_action,
			total_inspections = EXCLUDED.total_inspections,
			updated_at = EXCLUDED.updated_at
	`

	now := time.Now().UTC()
	for i := range facilities {
		f := &facilities[i]
		createdAt := f.CreatedAt
		if createdAt.IsZero() {
			createdAt = now
		}
		_, err := tx.Exec(ctx, query,
			f.OperationID, f.OperationNumber, f.Name, f.OperationType, f.City, f.County, f.Zip,
			f.Infant, f.Toddler, f.Preschool, f.SchoolAge, f.TotalCapacity, f.IssuanceDate,
			f.YearsInOperation, f.Transportation, f.Meals, f.SpecialNeeds, f.NightCare,
			f.WeekendCare, f.Accredited, f.FieldTrips, f.DropIn, f.SkillClasses,
			f.ExtendedHours, string(f.Status), f.TemporarilyClosed, f.AdverseAction,
			f.TotalInspections, createdAt, now,
		)
		if err != nil {
			return fmt.Errorf("failed to upsert facility %s: %w", f.OperationID, err)
		}
	}

	return tx.Commit(ctx)
}

// GetFacility retrieves a facility by operation ID
func (s *PostgresStore) GetFacility(ctx context.Context, operationID string) (*models.Facility, error) {
	query := `SELECT ` + facilityColumns + ` FROM facilities WHERE operation_id = $1`
	f, err := scanPgFacility(s.pool.QueryRow(ctx, query, operationID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get facility: %w", err)
	}
	return f, nil
}

// ListFacilities retrieves facilities matching the filter
func (s *PostgresStore) ListFacilities(ctx context.Context, filter models.FacilityFilter) ([]models.Facility, error) {
	query := `SELECT ` + facilityColumns + ` FROM facilities WHERE TRUE`
	var args []any
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if filter.Status != "" {
		query += ` AND status = ` + arg(filter.Status)
	}
	if filter.County != "" {
		query += ` AND LOWER(county) = LOWER(` + arg(filter.County) + `)`
	}
	if filter.City != "" {
		query += ` AND LOWER(city) = LOWER(` + arg(filter.City) + `)`
	}
	if filter.Zip != "" {
		query += ` AND zip = ` + arg(filter.Zip)
	}
	query += ` ORDER BY operation_id`
	if filter.Limit > 0 {
		query += ` LIMIT ` + arg(filter.Limit)
	}
	if filter.Offset > 0 {
		query += ` OFFSET ` + arg(filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list facilities: %w", err)
	}
	defer rows.Close()

	var facilities []models.Facility
	for rows.Next() {
		f, err := scanPgFacility(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan facility: %w", err)
		}
		facilities = append(facilities, *f)
	}
	return facilities, rows.Err()
}

func scanPgFacility(row pgx.Row) (*models.Facility, error) {
	var f models.Facility
	var status string
	err := row.Scan(
		&f.OperationID, &f.OperationNumber, &f.Name, &f.OperationType, &f.City, &f.County, &f.Zip,
		&f.Infant, &f.Toddler, &f.Preschool, &f.SchoolAge, &f.TotalCapacity, &f.IssuanceDate,
		&f.YearsInOperation, &f.Transportation, &f.Meals, &f.SpecialNeeds, &f.NightCare,
		&f.WeekendCare, &f.Accredited, &f.FieldTrips, &f.DropIn, &f.SkillClasses,
		&f.ExtendedHours, &status, &f.TemporarilyClosed, &f.AdverseAction,
		&f.TotalInspections, &f.CreatedAt, &f.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	f.Status = models.FacilityStatus(status)
	return &f, nil
}

// UpsertViolations writes a batch of violations, replacing on conflict
func (s *PostgresStore) UpsertViolations(ctx context.Context, violations []models.Violation) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO violations (
			id, operation_id, description, risk_level, narrative,
			activity_date, corrected_date, category, revised_risk_level, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE SET
			description = EXCLUDED.description,
			risk_level = EXCLUDED.risk_level,
			narrative = EXCLUDED.narrative,
			activity_date = EXCLUDED.activity_date,
			corrected_date = EXCLUDED.corrected_date,
			category = EXCLUDED.category,
			revised_risk_level = EXCLUDED.revised_risk_level
	`

	now := time.Now().UTC()
	for i := range violations {
		v := &violations[i]
		createdAt := v.CreatedAt
		if createdAt.IsZero() {
			createdAt = now
		}
		_, err := tx.Exec(ctx, query,
			v.ID, v.OperationID, v.Description, string(v.RiskLevel), v.Narrative,
			v.ActivityDate, v.CorrectedDate, v.Category, string(v.RevisedRiskLevel), createdAt,
		)
		if err != nil {
			return fmt.Errorf("failed to upsert violation %s: %w", v.ID, err)
		}
	}

	return tx.Commit(ctx)
}

// ListViolations retrieves all violations for a facility
func (s *PostgresStore) ListViolations(ctx context.Context, operationID string) ([]models.Violation, error) {
	query := `
		SELECT id, operation_id, description, risk_level, narrative,
		       activity_date, corrected_date, category, revised_risk_level, created_at
		FROM violations
		WHERE operation_id = $1
		ORDER BY activity_date DESC NULLS LAST, id
	`
	rows, err := s.pool.Query(ctx, query, operationID)
	if err != nil {
		return nil, fmt.Errorf("failed to list violations: %w", err)
	}
	defer rows.Close()

	var violations []models.Violation
	for rows.Next() {
		var v models.Violation
		var level, revised string
		if err := rows.Scan(&v.ID, &v.OperationID, &v.Description, &level, &v.Narrative,
			&v.ActivityDate, &v.CorrectedDate, &v.Category, &revised, &v.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan violation: %w", err)
		}
		v.RiskLevel = models.RiskLevel(level)
		v.RevisedRiskLevel = models.RiskLevel(revised)
		violations = append(violations, v)
	}
	return violations, rows.Err()
}

// UpdateViolationClassification overwrites the derived classification
// fields of one violation
func (s *PostgresStore) UpdateViolationClassification(ctx context.Context, id, category string, revised models.RiskLevel) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE violations SET category = $1, revised_risk_level = $2 WHERE id = $3`,
		category, string(revised), id)
	if err != nil {
		return fmt.Errorf("failed to update violation classification: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// UpsertRiskAnalysis writes the derived risk row, replacing on conflict
func (s *PostgresStore) UpsertRiskAnalysis(ctx context.Context, analysis *models.RiskAnalysis) error {
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
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (operation_id) DO UPDATE SET
			risk_score = EXCLUDED.risk_score,
			high_count = EXCLUDED.high_count,
			medium_high_count = EXCLUDED.medium_high_count,
			medium_count = EXCLUDED.medium_count,
			medium_low_count = EXCLUDED.medium_low_count,
			low_count = EXCLUDED.low_count,
			adverse_action_count = EXCLUDED.adverse_action_count,
			summary = EXCLUDED.summary,
			risk_factors = EXCLUDED.risk_factors,
			recommendations = EXCLUDED.recommendations,
			computed_at = EXCLUDED.computed_at
	`
	c := analysis.ViolationCounts
	_, err = s.pool.Exec(ctx, query,
		analysis.OperationID, analysis.RiskScore, c.High, c.MediumHigh, c.Medium,
		c.MediumLow, c.Low, analysis.AdverseActionCount, analysis.Summary,
		factors, recs, analysis.ComputedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert risk analysis: %w", err)
	}
	return nil
}

// GetRiskAnalysis retrieves the derived risk row for a facility
func (s *PostgresStore) GetRiskAnalysis(ctx context.Context, operationID string) (*models.RiskAnalysis, error) {
	query := `
		SELECT operation_id, risk_score, high_count, medium_high_count, medium_count,
		       medium_low_count, low_count, adverse_action_count, summary,
		       risk_factors, recommendations, computed_at
		FROM risk_analyses WHERE operation_id = $1
	`
	var a models.RiskAnalysis
	var factors, recs []byte
	err := s.pool.QueryRow(ctx, query, operationID).Scan(
		&a.OperationID, &a.RiskScore, &a.ViolationCounts.High, &a.ViolationCounts.MediumHigh,
		&a.ViolationCounts.Medium, &a.ViolationCounts.MediumLow, &a.ViolationCounts.Low,
		&a.AdverseActionCount, &a.Summary, &factors, &recs, &a.ComputedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get risk analysis: %w", err)
	}
	if len(factors) > 0 {
		if err := json.Unmarshal(factors, &a.RiskFactors); err != nil {
			return nil, fmt.Errorf("failed to unmarshal risk factors: %w", err)
		}
	}
	if len(recs) > 0 {
		if err := json.Unmarshal(recs, &a.Recommendations); err != nil {
			return nil, fmt.Errorf("failed to unmarshal recommendations: %w", err)
		}
	}
	return &a, nil
}

// UpsertRating writes the derived rating row, replacing on conflict
func (s *PostgresStore) UpsertRating(ctx context.Context, rating *models.Rating) error {
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
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (operation_id) DO UPDATE SET
			overall = EXCLUDED.overall,
			safety = EXCLUDED.safety,
			health = EXCLUDED.health,
			wellbeing = EXCLUDED.wellbeing,
			facility = EXCLUDED.facility,
			admin = EXCLUDED.admin,
			risk_score = EXCLUDED.risk_score,
			violation_count = EXCLUDED.violation_count,
			high_risk_count = EXCLUDED.high_risk_count,
			rating_factors = EXCLUDED.rating_factors,
			quality_indicators = EXCLUDED.quality_indicators,
			computed_at = EXCLUDED.computed_at
	`
	sub := rating.Subratings
	_, err = s.pool.Exec(ctx, query,
		rating.OperationID, rating.Overall, sub.Safety, sub.Health, sub.Wellbeing,
		sub.Facility, sub.Admin, rating.RiskScore, rating.ViolationCount,
		rating.HighRiskCount, factors, indicators, rating.ComputedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert rating: %w", err)
	}
	return nil
}

// GetRating retrieves the derived rating row for a facility
func (s *PostgresStore) GetRating(ctx context.Context, operationID string) (*models.Rating, error) {
	query := `
		SELECT operation_id, overall, safety, health, wellbeing, facility, admin,
		       risk_score, violation_count, high_risk_count, rating_factors,
		       quality_indicators, computed_at
		FROM ratings WHERE operation_id = $1
	`
	var r models.Rating
	var factors, indicators []byte
	err := s.pool.QueryRow(ctx, query, operationID).Scan(
		&r.OperationID, &r.Overall, &r.Subratings.Safety, &r.Subratings.Health,
		&r.Subratings.Wellbeing, &r.Subratings.Facility, &r.Subratings.Admin,
		&r.RiskScore, &r.ViolationCount, &r.HighRiskCount, &factors, &indicators,
		&r.ComputedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get rating: %w", err)
	}
	if len(factors) > 0 {
		if err := json.Unmarshal(factors, &r.RatingFactors); err != nil {
			return nil, fmt.Errorf("failed to unmarshal rating factors: %w", err)
		}
	}
	if len(indicators) > 0 {
		if err := json.Unmarshal(indicators, &r.QualityIndicators); err != nil {
			return nil, fmt.Errorf("failed to unmarshal quality indicators: %w", err)
		}
	}
	return &r, nil
}

// UpsertCostEstimate writes the derived cost row, replacing on conflict
func (s *PostgresStore) UpsertCostEstimate(ctx context.Context, estimate *models.CostEstimate) error {
	breakdown, err := json.Marshal(estimate.Breakdown)
	if err != nil {
		return fmt.Errorf("failed to marshal cost breakdown: %w", err)
	}

	query := `
		INSERT INTO cost_estimates (operation_id, monthly, weekly, breakdown, computed_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (operation_id) DO UPDATE SET
			monthly = EXCLUDED.monthly,
			weekly = EXCLUDED.weekly,
			breakdown = EXCLUDED.breakdown,
			computed_at = EXCLUDED.computed_at
	`
	_, err = s.pool.Exec(ctx, query,
		estimate.OperationID, estimate.Monthly, estimate.Weekly,
		breakdown, estimate.ComputedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert cost estimate: %w", err)
	}
	return nil
}

// GetCostEstimate retrieves the derived cost row for a facility
func (s *PostgresStore) GetCostEstimate(ctx context.Context, operationID string) (*models.CostEstimate, error) {
	query := `
		SELECT operation_id, monthly, weekly, breakdown, computed_at
		FROM cost_estimates WHERE operation_id = $1
	`
	var e models.CostEstimate
	var breakdown []byte
	err := s.pool.QueryRow(ctx, query, operationID).Scan(
		&e.OperationID, &e.Monthly, &e.Weekly, &breakdown, &e.ComputedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get cost estimate: %w", err)
	}
	if len(breakdown) > 0 {
		if err := json.Unmarshal(breakdown, &e.Breakdown); err != nil {
			return nil, fmt.Errorf("failed to unmarshal cost breakdown: %w", err)
		}
	}
	return &e, nil
}

// SavePipelineRun writes a run record, replacing on conflict
func (s *PostgresStore) SavePipelineRun(ctx context.Context, run *models.PipelineRun) error {
	query := `
		INSERT INTO pipeline_runs (id, status, processed, failed, started_at, finished_at, triggered_by, error)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			processed = EXCLUDED.processed,
			failed = EXCLUDED.failed,
			finished_at = EXCLUDED.finished_at,
			error = EXCLUDED.error
	`
	_, err := s.pool.Exec(ctx, query,
		run.ID, string(run.Status), run.Processed, run.Failed,
		run.StartedAt, run.FinishedAt, run.TriggeredBy, run.Error,
	)
	if err != nil {
		return fmt.Errorf("failed to save pipeline run: %w", err)
	}
	return nil
}

// GetPipelineRun retrieves a run record by ID
func (s *PostgresStore) GetPipelineRun(ctx context.Context, id string) (*models.PipelineRun, error) {
	query := `
		SELECT id, status, processed, failed, started_at, finished_at, triggered_by, error
		FROM pipeline_runs WHERE id = $1
	`
	run, err := scanPgPipelineRun(s.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get pipeline run: %w", err)
	}
	return run, nil
}

// ListPipelineRuns retrieves the most recent run records
func (s *PostgresStore) ListPipelineRuns(ctx context.Context, limit int) ([]models.PipelineRun, error) {
	if limit <= 0 {
		limit = 20
	}
	query := `
		SELECT id, status, processed, failed, started_at, finished_at, triggered_by, error
		FROM pipeline_runs ORDER BY started_at DESC LIMIT $1
	`
	rows, err := s.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list pipeline runs: %w", err)
	}
	defer rows.Close()

	var runs []models.PipelineRun
	for rows.Next() {
		run, err := scanPgPipelineRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan pipeline run: %w", err)
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

// Close releases the connection pool
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func scanPgPipelineRun(row pgx.Row) (*models.PipelineRun, error) {
	var run models.PipelineRun
	var status string
	err := row.Scan(&run.ID, &status, &run.Processed, &run.Failed,
		&run.StartedAt, &run.FinishedAt, &run.TriggeredBy, &run.Error)
	if err != nil {
		return nil, err
	}
	run.Status = models.PipelineRunStatus(status)
	return &run, nil
}
