package main

import (
	"context"
	"flag"
	"os"

	"github.com/daycarealert/daycarealert-go/pkg/cache"
	"github.com/daycarealert/daycarealert-go/pkg/config"
	"github.com/daycarealert/daycarealert-go/pkg/ingest"
	"github.com/daycarealert/daycarealert-go/pkg/logging"
	"github.com/daycarealert/daycarealert-go/pkg/pipeline"
	"github.com/daycarealert/daycarealert-go/pkg/storage"
)

// One-shot runner: optionally import the source datasets, then execute a
// full scoring run. Intended for cron-less deployments and backfills.
func main() {
	configPath := flag.String("config", "", "path to YAML config file")
	doImport := flag.Bool("import", false, "import source datasets before scoring")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logging.GetLogger().Error("failed to load configuration", err)
		os.Exit(1)
	}

	logging.Init(cfg.Logging.Level, cfg.Logging.Format)
	logger := logging.GetLogger()

	ctx := context.Background()

	store, err := storage.Open(ctx, cfg.Database)
	if err != nil {
		logger.Error("failed to open store", err)
		os.Exit(1)
	}
	defer store.Close()

	derivedCache, err := cache.New(ctx, cfg.Redis, cfg.CacheTTL(), logger)
	if err != nil {
		logger.Error("failed to connect to redis", err)
		os.Exit(1)
	}
	defer derivedCache.Close()

	if *doImport {
		loader := ingest.NewLoader(cfg.Ingest, store, cfg.IngestTimeout(), logger)
		facilities, err := loader.ImportOperations(ctx)
		if err != nil {
			logger.Error("operations import failed", err)
			os.Exit(1)
		}
		violations, err := loader.ImportViolations(ctx)
		if err != nil {
			logger.Error("non-compliance import failed", err)
			os.Exit(1)
		}
		logger.Info("import complete",
			logging.Int("facilities", facilities), logging.Int("violations", violations))
	}

	service := pipeline.NewService(cfg.Pipeline, store, derivedCache, logger)
	run, err := service.Run(ctx, "cli")
	if err != nil {
		logger.Error("scoring run failed", err)
		os.Exit(1)
	}

	logger.Info("scoring run complete",
		logging.String("run_id", run.ID),
		logging.Int("processed", run.Processed),
		logging.Int("failed", run.Failed))
}
