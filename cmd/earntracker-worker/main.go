package main

import (
	"context"
	"errors"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"earntracker/internal/backend"
	"earntracker/internal/cli"
	"earntracker/internal/log"
	"earntracker/internal/services"
	"earntracker/internal/worker"
)

func main() {
	cli.LoadEnvFile()

	cfg := cli.LoadAndValidateConfig(cli.SetupLogger(nil, log.ComponentWorker))
	logger := cli.SetupLogger(cfg, log.ComponentWorker)
	logger.Info("Starting earntracker-worker")

	backendConfig, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", "error", err)
		os.Exit(1)
	}
	infra, err := backend.NewFactory(logger).Create(context.Background(), backendConfig)
	if err != nil {
		logger.Error("Failed to initialize backend", "error", err)
		os.Exit(1)
	}

	// The worker only reads rules and income; it never publishes.
	taxes := services.NewTaxService(infra.Store, nil)
	snapshots := worker.NewSnapshotWorker(infra.Store, taxes, infra.Reports, cfg.SnapshotBatchSize)

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, nil)

	logger.Info("Performing startup snapshot check...")
	if err := snapshots.StartupCheck(ctx); err != nil {
		// Don't exit - the periodic pass retries
		logger.Error("Startup snapshot check failed", "error", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return snapshots.Run(gctx, cfg.SnapshotInterval)
	})
	if infra.Bus != nil {
		g.Go(func() error {
			err := infra.Bus.Run(gctx, snapshots.HandlePeriodChanged)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})
	} else {
		logger.Info("AMQP disabled - relying on periodic stale snapshot passes",
			"interval", cfg.SnapshotInterval)
	}

	exitCode := 0
	if err := g.Wait(); err != nil {
		logger.Error("Worker stopped with error", "error", err)
		exitCode = 1
	}
	if err := infra.Cleanup(); err != nil {
		logger.Error("Backend cleanup error", "error", err)
	}
	if exitCode != 0 {
		os.Exit(exitCode)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Worker stopped gracefully")
}
