package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/tokenmeter/internal/auth"
	"github.com/kailas-cloud/tokenmeter/internal/config"
	"github.com/kailas-cloud/tokenmeter/internal/db/dbopen"
	logpkg "github.com/kailas-cloud/tokenmeter/internal/logger"
	"github.com/kailas-cloud/tokenmeter/internal/metrics"
	settingsrepo "github.com/kailas-cloud/tokenmeter/internal/repository/settings"
	usagerepo "github.com/kailas-cloud/tokenmeter/internal/repository/usage"
	chiTransport "github.com/kailas-cloud/tokenmeter/internal/transport/chi"
	"github.com/kailas-cloud/tokenmeter/internal/transport/upstream"
	healthuc "github.com/kailas-cloud/tokenmeter/internal/usecase/health"
	proxyuc "github.com/kailas-cloud/tokenmeter/internal/usecase/proxy"
	"github.com/kailas-cloud/tokenmeter/internal/usecase/quota"
	resetuc "github.com/kailas-cloud/tokenmeter/internal/usecase/reset"
	settingsuc "github.com/kailas-cloud/tokenmeter/internal/usecase/settings"
	usageuc "github.com/kailas-cloud/tokenmeter/internal/usecase/usage"
	"github.com/kailas-cloud/tokenmeter/internal/version"
)

func main() {
	// Load configuration based on ENV
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting tokenmeter server",
		zap.String("version", version.String()),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("db_driver", cfg.Database.Driver),
		zap.String("key_prefix", cfg.Storage.KeyPrefix),
		zap.String("upstream", cfg.Upstream.BaseURL),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := dbopen.Open(ctx, cfg.Database)
	if err != nil {
		logger.Fatal("Failed to create database store", zap.Error(err))
	}
	defer store.Close()

	if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		logger.Fatal("Database not ready", zap.Error(err))
	}
	logger.Info("Connected to database")

	// Register metering metrics explicitly (no init())
	metrics.RegisterMeterMetrics()

	settings := settingsrepo.New(store, cfg.Storage.KeyPrefix)
	usage := usagerepo.New(store, cfg.Storage.KeyPrefix)

	settingsSvc := settingsuc.New(settings, logger)
	if cfg.Settings.File != "" {
		if _, err := settingsSvc.ApplyFile(ctx, cfg.Settings.File); err != nil {
			logger.Fatal("Failed to apply settings file", zap.String("path", cfg.Settings.File), zap.Error(err))
		}
		if cfg.Settings.Watch {
			watcher := settingsuc.NewWatcher(settingsSvc, cfg.Settings.File, 0, logger)
			go func() {
				if err := watcher.Watch(ctx); err != nil {
					logger.Error("Settings watcher exited", zap.Error(err))
				}
			}()
		}
	}

	httpClient := &http.Client{Timeout: time.Duration(cfg.Upstream.TimeoutSec) * time.Second}
	gateway := upstream.NewGateway(settings, upstream.Config{
		BaseURL:    cfg.Upstream.BaseURL,
		HTTPClient: httpClient,
		Logger:     logger,
	})

	// Pass nil interface (not typed nil pointer!) when the probe is disabled.
	var upstreamChecker healthuc.UpstreamChecker
	if cfg.Upstream.HealthCheckEnabled() {
		upstreamChecker = gateway
	}

	guard := quota.New(settings, usage)
	proxySvc := proxyuc.New(guard, gateway, usage, logger)
	usageSvc := usageuc.New(settings, usage)
	healthSvc := healthuc.New(store, upstreamChecker)

	var scheduler *resetuc.Scheduler
	if cfg.Scheduler.IsEnabled() {
		scheduler = startScheduler(ctx, cfg.Scheduler, resetuc.New(usage, logger), logger)
	}

	verifier := auth.NewStatic(cfg.Auth.Tokens)
	if verifier.Len() == 0 {
		logger.Warn("No auth tokens configured; every call will be rejected")
	}

	server := chiTransport.NewServer(proxySvc, usageSvc, healthSvc).WithMaxBodyBytes(cfg.HTTP.MaxBodyBytes)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      chiTransport.NewRouter(server, verifier, logger),
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}
	if scheduler != nil {
		scheduler.Stop()
	}

	logger.Info("Server stopped gracefully")
}

func startScheduler(ctx context.Context, cfg config.SchedulerConfig, svc *resetuc.Service, logger *zap.Logger) *resetuc.Scheduler {
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		logger.Fatal("Invalid scheduler timezone", zap.Error(err))
	}

	scheduler, err := resetuc.NewScheduler(svc, resetuc.Schedule{
		Daily:    cfg.Daily,
		Monthly:  cfg.Monthly,
		Location: loc,
	}, logger)
	if err != nil {
		logger.Fatal("Invalid reset schedule", zap.Error(err))
	}
	if err := scheduler.Start(ctx); err != nil {
		logger.Fatal("Failed to start reset scheduler", zap.Error(err))
	}
	return scheduler
}
