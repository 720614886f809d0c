package scheduler

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/daycarealert/daycarealert-go/pkg/config"
	"github.com/daycarealert/daycarealert-go/pkg/ingest"
	"github.com/daycarealert/daycarealert-go/pkg/logging"
	"github.com/daycarealert/daycarealert-go/pkg/pipeline"
	"github.com/daycarealert/daycarealert-go/pkg/storage"
)

func newTestScheduler(t *testing.T, cfg config.SchedulerConfig) *Service {
	t.Helper()
	store, err := storage.NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	logger := logging.New()
	p := pipeline.NewService(config.PipelineConfig{Workers: 1, ChunkSize: 10}, store, nil, logger)
	loader := ingest.NewLoader(config.IngestConfig{PageSize: 100}, store, time.Second, logger)
	return NewService(cfg, loader, p, logger)
}

func TestStartDisabledRegistersNothing(t *testing.T) {
	s := newTestScheduler(t, config.SchedulerConfig{Enabled: false})
	require.NoError(t, s.Start())
	assert.Empty(t, s.entries)
}

func TestStartRegistersJobs(t *testing.T) {
	s := newTestScheduler(t, config.SchedulerConfig{
		Enabled:        true,
		IngestSchedule: "0 3 * * *",
		ScoreSchedule:  "0 5 * * *",
	})
	require.NoError(t, s.Start())
	defer s.Stop()

	assert.Len(t, s.entries, 2)
	assert.Contains(t, s.entries, "ingest")
	assert.Contains(t, s.entries, "scoring")
}

func TestStartRejectsInvalidSchedule(t *testing.T) {
	s := newTestScheduler(t, config.SchedulerConfig{
		Enabled:        true,
		IngestSchedule: "not a cron expression",
	})
	assert.Error(t, s.Start())
}
