package scheduler

import (
	"context"
	"errors"
	"fmt"

	"github.com/robfig/cron/v3"

	"github.com/daycarealert/daycarealert-go/pkg/config"
	"github.com/daycarealert/daycarealert-go/pkg/ingest"
	"github.com/daycarealert/daycarealert-go/pkg/logging"
	"github.com/daycarealert/daycarealert-go/pkg/pipeline"
)

// Service schedules the periodic ingest and scoring jobs
type Service struct {
	cron     *cron.Cron
	config   config.SchedulerConfig
	loader   *ingest.Loader
	pipeline *pipeline.Service
	logger   *logging.Logger
	entries  map[string]cron.EntryID
}

// NewService creates a scheduler service
func NewService(cfg config.SchedulerConfig, loader *ingest.Loader, p *pipeline.Service, logger *logging.Logger) *Service {
	return &Service{
		cron:     cron.New(),
		config:   cfg,
		loader:   loader,
		pipeline: p,
		logger:   logger,
		entries:  make(map[string]cron.EntryID),
	}
}

// Start registers the configured jobs and starts the cron loop
func (s *Service) Start() error {
	if !s.config.Enabled {
		s.logger.Info("scheduler disabled", logging.Component("scheduler"))
		return nil
	}

	if s.config.IngestSchedule != "" {
		id, err := s.cron.AddFunc(s.config.IngestSchedule, s.runIngest)
		if err != nil {
			return fmt.Errorf("invalid ingest schedule %q: %w", s.config.IngestSchedule, err)
		}
		s.entries["ingest"] = id
	}

	if s.config.ScoreSchedule != "" {
		id, err := s.cron.AddFunc(s.config.ScoreSchedule, s.runScoring)
		if err != nil {
			return fmt.Errorf("invalid scoring schedule %q: %w", s.config.ScoreSchedule, err)
		}
		s.entries["scoring"] = id
	}

	s.cron.Start()
	s.logger.Info("scheduler started", logging.Component("scheduler"),
		logging.String("ingest_schedule", s.config.IngestSchedule),
		logging.String("score_schedule", s.config.ScoreSchedule))
	return nil
}

// Stop halts the cron loop and waits for running jobs to finish
func (s *Service) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("scheduler stopped", logging.Component("scheduler"))
}

func (s *Service) runIngest() {
	ctx := context.Background()

	facilities, err := s.loader.ImportOperations(ctx)
	if err != nil {
		s.logger.Error("scheduled operations import failed", err, logging.Component("scheduler"))
		return
	}
	violations, err := s.loader.ImportViolations(ctx)
	if err != nil {
		s.logger.Error("scheduled non-compliance import failed", err, logging.Component("scheduler"))
		return
	}

	s.logger.Info("scheduled import complete", logging.Component("scheduler"),
		logging.Int("facilities", facilities), logging.Int("violations", violations))
}

func (s *Service) runScoring() {
	_, err := s.pipeline.Run(context.Background(), "scheduler")
	if errors.Is(err, pipeline.ErrRunInProgress) {
		s.logger.Warn("scheduled scoring skipped, run already in progress", logging.Component("scheduler"))
		return
	}
	if err != nil {
		s.logger.Error("scheduled scoring run failed", err, logging.Component("scheduler"))
	}
}
