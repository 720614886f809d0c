package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/daycarealert/daycarealert-go/pkg/api"
	"github.com/daycarealert/daycarealert-go/pkg/cache"
	"github.com/daycarealert/daycarealert-go/pkg/config"
	"github.com/daycarealert/daycarealert-go/pkg/ingest"
	"github.com/daycarealert/daycarealert-go/pkg/logging"
	"github.com/daycarealert/daycarealert-go/pkg/pipeline"
	"github.com/daycarealert/daycarealert-go/pkg/scheduler"
	"github.com/daycarealert/daycarealert-go/pkg/storage"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config file")
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

	pipelineService := pipeline.NewService(cfg.Pipeline, store, derivedCache, logger)
	loader := ingest.NewLoader(cfg.Ingest, store, cfg.IngestTimeout(), logger)

	sched := scheduler.NewService(cfg.Scheduler, loader, pipelineService, logger)
	if err := sched.Start(); err != nil {
		logger.Error("failed to start scheduler", err)
		os.Exit(1)
	}
	defer sched.Stop()

	server := api.NewServer(cfg.Server, store, derivedCache, pipelineService, logger)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil {
			logger.Error("server error", err)
			os.Exit(1)
		}
	case sig := <-stop:
		logger.Info("received signal, shutting down", logging.String("signal", sig.String()))
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown error", err)
		}
	}
}
