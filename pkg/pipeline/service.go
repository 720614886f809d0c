package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/daycarealert/daycarealert-go/pkg/cache"
	"github.com/daycarealert/daycarealert-go/pkg/classifier"
	"github.com/daycarealert/daycarealert-go/pkg/config"
	"github.com/daycarealert/daycarealert-go/pkg/cost"
	"github.com/daycarealert/daycarealert-go/pkg/logging"
	"github.com/daycarealert/daycarealert-go/pkg/models"
	"github.com/daycarealert/daycarealert-go/pkg/rating"
	"github.com/daycarealert/daycarealert-go/pkg/risk"
	"github.com/daycarealert/daycarealert-go/pkg/storage"
)

// ErrRunInProgress is returned when a scoring run is requested while one
// is already executing
var ErrRunInProgress = errors.New("pipeline run already in progress")

// Service runs the batch scoring pipeline: classify violations, compute
// risk, rating, and cost for every facility, and upsert the derived rows
type Service struct {
	store      storage.Store
	cache      *cache.Cache
	classifier *classifier.Classifier
	scorer     *risk.Scorer
	engine     *rating.Engine
	estimator  *cost.Estimator
	logger     *logging.Logger

	workers   int
	chunkSize int

	mu      sync.Mutex
	running bool
}

// NewService creates a pipeline service with the default scoring tables
func NewService(cfg config.PipelineConfig, store storage.Store, c *cache.Cache, logger *logging.Logger) *Service {
	cls := classifier.New(classifier.DefaultConfig())
	return &Service{
		store:      store,
		cache:      c,
		classifier: cls,
		scorer:     risk.NewScorer(risk.DefaultConfig(), cls),
		engine:     rating.NewEngine(rating.DefaultConfig()),
		estimator:  cost.NewEstimator(cost.DefaultConfig()),
		logger:     logger,
		workers:    cfg.Workers,
		chunkSize:  cfg.ChunkSize,
	}
}

// Run executes a full scoring run synchronously and returns the completed
// run record. Only one run executes at a time.
func (s *Service) Run(ctx context.Context, triggeredBy string) (*models.PipelineRun, error) {
	run, err := s.begin(ctx, triggeredBy)
	if err != nil {
		return nil, err
	}
	s.execute(ctx, run)
	if run.Status == models.PipelineRunStatusFailed {
		return run, errors.New(run.Error)
	}
	return run, nil
}

// Start launches a run in the background and returns its initial record.
// Callers poll the run by ID for progress.
func (s *Service) Start(triggeredBy string) (*models.PipelineRun, error) {
	ctx := context.Background()
	run, err := s.begin(ctx, triggeredBy)
	if err != nil {
		return nil, err
	}

	snapshot := *run
	go s.execute(ctx, run)
	return &snapshot, nil
}

// begin claims the single-run slot and persists the initial run record
func (s *Service) begin(ctx context.Context, triggeredBy string) (*models.PipelineRun, error) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil, ErrRunInProgress
	}
	s.running = true
	s.mu.Unlock()

	run := &models.PipelineRun{
		ID:          uuid.NewString(),
		Status:      models.PipelineRunStatusRunning,
		StartedAt:   time.Now().UTC(),
		TriggeredBy: triggeredBy,
	}
	if err := s.store.SavePipelineRun(ctx, run); err != nil {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
		return nil, fmt.Errorf("failed to record pipeline run: %w", err)
	}
	return run, nil
}

// execute processes the facility set and finalizes the run record
func (s *Service) execute(ctx context.Context, run *models.PipelineRun) {
	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	s.logger.Info("pipeline run started",
		logging.Component("pipeline"), logging.String("run_id", run.ID),
		logging.String("triggered_by", run.TriggeredBy))

	processed, failed, err := s.processAll(ctx, run.ID)

	run.Processed = processed
	run.Failed = failed
	now := time.Now().UTC()
	run.FinishedAt = &now
	if err != nil {
		run.Status = models.PipelineRunStatusFailed
		run.Error = err.Error()
	} else {
		run.Status = models.PipelineRunStatusCompleted
	}
	if err := s.store.SavePipelineRun(ctx, run); err != nil {
		s.logger.Error("failed to finalize pipeline run", err, logging.String("run_id", run.ID))
	}

	s.logger.Info("pipeline run finished",
		logging.Component("pipeline"), logging.String("run_id", run.ID),
		logging.String("status", string(run.Status)),
		logging.Int("processed", processed), logging.Int("failed", failed))
}

// processAll pages through the facility set in chunks and scores each
// facility on a bounded worker pool. Per-facility failures are counted,
// not fatal.
func (s *Service) processAll(ctx context.Context, runID string) (processed, failed int, err error) {
	var mu sync.Mutex

	offset := 0
	for {
		chunk, err := s.store.ListFacilities(ctx, models.FacilityFilter{Limit: s.chunkSize, Offset: offset})
		if err != nil {
			return processed, failed, fmt.Errorf("failed to list facilities: %w", err)
		}
		if len(chunk) == 0 {
			break
		}

		jobs := make(chan models.Facility)
		var wg sync.WaitGroup
		for w := 0; w < s.workers; w++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for facility := range jobs {
					if err := s.processFacility(ctx, &facility); err != nil {
						s.logger.Warn("facility scoring failed",
							logging.Component("pipeline"), logging.String("run_id", runID),
							logging.String("operation_id", facility.OperationID), logging.Err(err))
						mu.Lock()
						failed++
						mu.Unlock()
						continue
					}
					mu.Lock()
					processed++
					mu.Unlock()
				}
			}()
		}

		cancelled := false
		for _, facility := range chunk {
			select {
			case <-ctx.Done():
				cancelled = true
			case jobs <- facility:
			}
			if cancelled {
				break
			}
		}
		close(jobs)
		wg.Wait()
		if cancelled {
			return processed, failed, ctx.Err()
		}

		if len(chunk) < s.chunkSize {
			break
		}
		offset += s.chunkSize
	}

	return processed, failed, nil
}

// processFacility computes and persists all derived rows for one facility
func (s *Service) processFacility(ctx context.Context, facility *models.Facility) error {
	violations, err := s.store.ListViolations(ctx, facility.OperationID)
	if err != nil {
		return fmt.Errorf("failed to load violations: %w", err)
	}

	for i := range violations {
		v := &violations[i]
		s.classifier.ClassifyViolation(v)
		if err := s.store.UpdateViolationClassification(ctx, v.ID, v.Category, v.RevisedRiskLevel); err != nil {
			return fmt.Errorf("failed to persist classification: %w", err)
		}
	}

	analysis := s.scorer.Analyze(facility, violations)
	if err := s.store.UpsertRiskAnalysis(ctx, analysis); err != nil {
		return fmt.Errorf("failed to upsert risk analysis: %w", err)
	}

	input := rating.Input{
		RiskScore:            analysis.RiskScore,
		ViolationCount:       analysis.ViolationCounts.Total(),
		HighRiskCount:        analysis.ViolationCounts.High,
		RecentViolationCount: recentCount(violations, time.Now()),
	}
	facilityRating := s.engine.Rate(facility, input)
	facilityRating.ComputedAt = analysis.ComputedAt
	if err := s.store.UpsertRating(ctx, facilityRating); err != nil {
		return fmt.Errorf("failed to upsert rating: %w", err)
	}

	estimate := s.estimator.Estimate(facility, &analysis.RiskScore)
	estimate.ComputedAt = analysis.ComputedAt
	if err := s.store.UpsertCostEstimate(ctx, estimate); err != nil {
		return fmt.Errorf("failed to upsert cost estimate: %w", err)
	}

	s.cache.Invalidate(ctx, facility.OperationID)
	return nil
}

// recentCount tallies violations dated within the last year
func recentCount(violations []models.Violation, now time.Time) int {
	count := 0
	for i := range violations {
		d := violations[i].ActivityDate
		if d == nil || d.IsZero() || d.After(now) {
			continue
		}
		if now.Sub(*d).Hours()/24 <= 365 {
			count++
		}
	}
	return count
}
