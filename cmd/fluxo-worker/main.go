package main

import (
	"context"
	"errors"
	"os"
	"time"

	"fluxo/internal/amqp"
	"fluxo/internal/analytics"
	"fluxo/internal/backend"
	"fluxo/internal/cli"
	"fluxo/internal/log"
	"fluxo/internal/services"
	"fluxo/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"), os.Stdout)

	logger.Info("Starting fluxo-worker")
	if err := run(logger); err != nil {
		logger.Error("Worker failed", log.FieldError, err.Error())
		os.Exit(1)
	}
	logger.Info("Worker shutdown complete")
}

func run(logger *log.Logger) error {
	cfg, err := cli.LoadAndValidateConfig(logger)
	if err != nil {
		return err
	}
	if cfg.AMQPURL == "" {
		return errors.New("AMQP_URL is required by the report worker")
	}

	opts, err := cfg.AnalyticsOptions()
	if err != nil {
		return err
	}
	engine, err := analytics.NewEngine(opts)
	if err != nil {
		return err
	}

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return err
	}
	be, err := backend.NewFactory(logger).CreateBackend(context.Background(), backendCfg)
	if err != nil {
		return err
	}
	defer be.Close()
	if be.Type != backend.SQLiteBackend {
		logger.Warn("Reports are kept in process memory and are not visible to the API",
			log.FieldBackend, be.Type.String())
	}

	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
	if err != nil {
		return err
	}
	defer client.Close()

	// Every message recomputes from the ledger, so the worker runs uncached.
	snapshots := services.NewSnapshotService(engine, be.Ledger, services.WithLogger(logger))
	reports := worker.NewReportWorker(snapshots, be.Reports, cfg.ReportRetention, logger)

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, nil)

	reports.StartupRefresh(ctx, cfg.ReportOrganizations)

	err = client.ConsumeLedgerChanged(ctx, reports.HandleLedgerChanged)
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	cli.WaitForShutdown(ctx, done)
	return nil
}
