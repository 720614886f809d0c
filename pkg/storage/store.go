package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/daycarealert/daycarealert-go/pkg/config"
	"github.com/daycarealert/daycarealert-go/pkg/models"
)

// ErrNotFound is returned when a requested row does not exist
var ErrNotFound = errors.New("not found")

// Store is the persistence contract for facilities, violations, and the
// derived scoring rows. All derived writes are idempotent upserts keyed by
// operation ID, never appends.
type Store interface {
	UpsertFacilities(ctx context.Context, facilities []models.Facility) error
	GetFacility(ctx context.Context, operationID string) (*models.Facility, error)
	ListFacilities(ctx context.Context, filter models.FacilityFilter) ([]models.Facility, error)

	UpsertViolations(ctx context.Context, violations []models.Violation) error
	ListViolations(ctx context.Context, operationID string) ([]models.Violation, error)
	UpdateViolationClassification(ctx context.Context, id, category string, revised models.RiskLevel) error

	UpsertRiskAnalysis(ctx context.Context, analysis *models.RiskAnalysis) error
	GetRiskAnalysis(ctx context.Context, operationID string) (*models.RiskAnalysis, error)

	UpsertRating(ctx context.Context, rating *models.Rating) error
	GetRating(ctx context.Context, operationID string) (*models.Rating, error)

	UpsertCostEstimate(ctx context.Context, estimate *models.CostEstimate) error
	GetCostEstimate(ctx context.Context, operationID string) (*models.CostEstimate, error)

	SavePipelineRun(ctx context.Context, run *models.PipelineRun) error
	GetPipelineRun(ctx context.Context, id string) (*models.PipelineRun, error)
	ListPipelineRuns(ctx context.Context, limit int) ([]models.PipelineRun, error)

	Close() error
}

// Open creates the store selected by the database configuration
func Open(ctx context.Context, cfg config.DatabaseConfig) (Store, error) {
	switch cfg.Driver {
	case "postgres":
		return NewPostgresStore(ctx, cfg)
	case "sqlite":
		return NewSQLiteStore(cfg.SQLitePath)
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", cfg.Driver)
	}
}
