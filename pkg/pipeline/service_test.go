package pipeline

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/daycarealert/daycarealert-go/pkg/config"
	"github.com/daycarealert/daycarealert-go/pkg/logging"
	"github.com/daycarealert/daycarealert-go/pkg/models"
	"github.com/daycarealert/daycarealert-go/pkg/storage"
)

func newTestService(t *testing.T) (*Service, storage.Store) {
	t.Helper()
	store, err := storage.NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	service := NewService(config.PipelineConfig{Workers: 2, ChunkSize: 10}, store, nil, logging.New())
	return service, store
}

func seedFacility(t *testing.T, store storage.Store, id string, violations int) {
	t.Helper()
	ctx := context.Background()

	f := models.Facility{
		OperationID:      id,
		Name:             "Facility " + id,
		Status:           models.FacilityStatusActive,
		YearsInOperation: 5,
		TotalInspections: 3,
		Infant:           true,
	}
	require.NoError(t, store.UpsertFacilities(ctx, []models.Facility{f}))

	vs := make([]models.Violation, 0, violations)
	for i := 0; i < violations; i++ {
		activity := time.Now().UTC().AddDate(0, 0, -(30 + i*100))
		vs = append(vs, models.Violation{
			ID:           id + "-v" + string(rune('a'+i)),
			OperationID:  id,
			Description:  "Child left unsupervised near a hazard",
			RiskLevel:    models.RiskLevelHigh,
			ActivityDate: &activity,
		})
	}
	if len(vs) > 0 {
		require.NoError(t, store.UpsertViolations(ctx, vs))
	}
}

func TestRunScoresEveryFacility(t *testing.T) {
	service, store := newTestService(t)
	ctx := context.Background()

	seedFacility(t, store, "op-1", 2)
	seedFacility(t, store, "op-2", 0)

	run, err := service.Run(ctx, "test")
	require.NoError(t, err)

	assert.Equal(t, models.PipelineRunStatusCompleted, run.Status)
	assert.Equal(t, 2, run.Processed)
	assert.Equal(t, 0, run.Failed)
	require.NotNil(t, run.FinishedAt)
	assert.Equal(t, "test", run.TriggeredBy)

	// derived rows exist for both facilities
	for _, id := range []string{"op-1", "op-2"} {
		analysis, err := store.GetRiskAnalysis(ctx, id)
		require.NoError(t, err, id)
		assert.Greater(t, analysis.RiskScore, 0.0)

		rating, err := store.GetRating(ctx, id)
		require.NoError(t, err, id)
		assert.GreaterOrEqual(t, rating.Overall, 0.0)
		assert.LessOrEqual(t, rating.Overall, 5.0)

		estimate, err := store.GetCostEstimate(ctx, id)
		require.NoError(t, err, id)
		assert.Greater(t, estimate.Monthly, 0)
	}

	// the facility with violations scores worse than the clean one
	dirty, _ := store.GetRiskAnalysis(ctx, "op-1")
	clean, _ := store.GetRiskAnalysis(ctx, "op-2")
	assert.Greater(t, dirty.RiskScore, clean.RiskScore)
}

func TestRunPersistsClassification(t *testing.T) {
	service, store := newTestService(t)
	ctx := context.Background()

	seedFacility(t, store, "op-1", 1)

	_, err := service.Run(ctx, "test")
	require.NoError(t, err)

	violations, err := store.ListViolations(ctx, "op-1")
	require.NoError(t, err)
	require.Len(t, violations, 1)
	assert.Equal(t, "Safety", violations[0].Category)
	assert.Equal(t, models.RiskLevelHigh, violations[0].RevisedRiskLevel)
}

func TestRunIsIdempotent(t *testing.T) {
	service, store := newTestService(t)
	ctx := context.Background()

	seedFacility(t, store, "op-1", 2)

	_, err := service.Run(ctx, "test")
	require.NoError(t, err)
	first, err := store.GetRiskAnalysis(ctx, "op-1")
	require.NoError(t, err)

	_, err = service.Run(ctx, "test")
	require.NoError(t, err)
	second, err := store.GetRiskAnalysis(ctx, "op-1")
	require.NoError(t, err)

	assert.Equal(t, first.RiskScore, second.RiskScore)
	assert.Equal(t, first.ViolationCounts, second.ViolationCounts)

	// one rating row, not an append per run
	rating, err := store.GetRating(ctx, "op-1")
	require.NoError(t, err)
	assert.NotNil(t, rating)
}

func TestRecentCountSkipsMissingAndFutureDates(t *testing.T) {
	now := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	recent := now.AddDate(0, 0, -30)
	old := now.AddDate(0, 0, -400)
	future := now.AddDate(0, 0, 30)

	violations := []models.Violation{
		{ID: "a", ActivityDate: &recent},
		{ID: "b", ActivityDate: &old},
		{ID: "c", ActivityDate: &future},
		{ID: "d", ActivityDate: nil},
	}
	assert.Equal(t, 1, recentCount(violations, now))
}

func TestRunRecordsAreListed(t *testing.T) {
	service, store := newTestService(t)
	ctx := context.Background()

	seedFacility(t, store, "op-1", 0)

	run, err := service.Run(ctx, "scheduler")
	require.NoError(t, err)

	got, err := store.GetPipelineRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PipelineRunStatusCompleted, got.Status)

	runs, err := store.ListPipelineRuns(ctx, 5)
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}

func TestRunEmptyStoreCompletes(t *testing.T) {
	service, _ := newTestService(t)

	run, err := service.Run(context.Background(), "test")
	require.NoError(t, err)
	assert.Equal(t, models.PipelineRunStatusCompleted, run.Status)
	assert.Equal(t, 0, run.Processed)
}
