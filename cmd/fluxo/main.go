package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"fluxo/internal/amqp"
	"fluxo/internal/analytics"
	"fluxo/internal/backend"
	"fluxo/internal/cache"
	"fluxo/internal/cli"
	"fluxo/internal/config"
	apphttp "fluxo/internal/http"
	"fluxo/internal/log"
	"fluxo/internal/services"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"), os.Stdout)

	if err := run(logger); err != nil {
		logger.Error("Server failed", log.FieldError, err.Error())
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
}

func run(logger *log.Logger) error {
	cfg, err := cli.LoadAndValidateConfig(logger)
	if err != nil {
		return err
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
	defer func() {
		if err := be.Close(); err != nil {
			logger.Warn("Backend close failed", log.FieldError, err.Error())
		}
	}()

	serviceOpts := []services.Option{services.WithLogger(logger)}
	if be.Type.SharedLedger() {
		logger.Info("Snapshot cache disabled, ledger is edited outside the API",
			log.FieldBackend, be.Type.String())
	} else {
		snapshotCache := cache.NewLRUCache[*analytics.Result](cfg.SnapshotCacheSize, cfg.SnapshotCacheTTL)
		cacheManager := cache.NewManager(logger)
		cacheManager.Register(snapshotCache)
		cacheManager.StartCleanup(time.Minute)
		defer cacheManager.Stop()
		serviceOpts = append(serviceOpts, services.WithCache(snapshotCache))
	}
	if client := connectPublisher(cfg, logger); client != nil {
		defer client.Close()
		serviceOpts = append(serviceOpts, services.WithPublisher(client))
	}
	snapshots := services.NewSnapshotService(engine, be.Ledger, serviceOpts...)

	srv := apphttp.NewServer(apphttp.Options{
		Addr:         ":" + cfg.Port,
		Snapshots:    snapshots,
		Reports:      be.Reports,
		Ready:        be.Ping,
		RateLimitRPM: cfg.RateLimitRPM,
		Logger:       logger,
	})

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err.Error())
		}
	})

	logger.Info("Starting fluxo server",
		"port", cfg.Port,
		log.FieldBackend, be.Type.String(),
		log.FieldWindowMonths, opts.WindowMonths,
		log.FieldTopCategories, opts.TopCategories)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	cli.WaitForShutdown(ctx, done)
	return nil
}

// connectPublisher returns an AMQP client for ledger.changed events, or nil
// when AMQP is not configured or the broker is unreachable. The API keeps
// serving without events; the report worker then only sees startup refreshes.
func connectPublisher(cfg *config.Config, logger *log.Logger) *amqp.Client {
	if cfg.AMQPURL == "" {
		logger.Info("AMQP disabled - no AMQP_URL provided")
		return nil
	}
	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
	if err != nil {
		logger.Warn("AMQP unavailable, ledger events disabled", log.FieldError, err.Error())
		return nil
	}
	return client
}
