package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/terra-clan/simulex-engine/internal/api"
	"github.com/terra-clan/simulex-engine/internal/attempt"
	"github.com/terra-clan/simulex-engine/internal/auth"
	"github.com/terra-clan/simulex-engine/internal/cache"
	"github.com/terra-clan/simulex-engine/internal/catalog"
	"github.com/terra-clan/simulex-engine/internal/config"
	"github.com/terra-clan/simulex-engine/internal/dashboard"
	"github.com/terra-clan/simulex-engine/internal/evaluator"
	"github.com/terra-clan/simulex-engine/internal/health"
	"github.com/terra-clan/simulex-engine/internal/logging"
	"github.com/terra-clan/simulex-engine/internal/metrics"
	"github.com/terra-clan/simulex-engine/internal/storage"
	"github.com/terra-clan/simulex-engine/internal/telemetry"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Setup structured logging
	logger, logCloser, err := logging.New(cfg.Log)
	if err != nil {
		slog.Error("failed to setup logging", "error", err)
		os.Exit(1)
	}
	defer logCloser.Close()
	slog.SetDefault(logger)

	slog.Info("starting simulex-engine",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
		"driver", cfg.Database.Driver,
	)

	// Create context for initialization
	initCtx, initCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer initCancel()

	shutdownTracing, err := telemetry.Setup(initCtx, cfg.Tracing.Endpoint, cfg.Tracing.SampleRatio)
	if err != nil {
		slog.Error("failed to setup tracing", "error", err)
		os.Exit(1)
	}

	// Open the result store and run migrations
	repo, err := storage.Open(initCtx, storage.Options{
		Driver:        cfg.Database.Driver,
		DSN:           cfg.Database.DSN,
		MaxOpenConns:  int32(cfg.Database.MaxOpenConns),
		MaxIdleConns:  int32(cfg.Database.MaxIdleConns),
		MaxLifetime:   cfg.Database.ConnMaxLifetime,
		MigrationsDir: cfg.Database.MigrationsDir,
	})
	if err != nil {
		slog.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	slog.Info("database connected successfully")

	registry := health.NewRegistry()
	registry.Register("database", repo)

	// Dashboard cache is optional
	var dashCache cache.Cache = cache.Nop{}
	var redisCache *cache.RedisCache
	if cfg.Redis.Address != "" {
		redisCache, err = cache.NewRedisCache(initCtx, cache.RedisOptions{
			Address:   cfg.Redis.Address,
			Password:  cfg.Redis.Password,
			DB:        cfg.Redis.DB,
			KeyPrefix: cfg.Redis.KeyPrefix,
		})
		if err != nil {
			slog.Error("failed to connect redis", "error", err)
			os.Exit(1)
		}
		dashCache = redisCache
		registry.Register("cache", redisCache)
	}

	// Load and seed the catalog
	if cfg.Catalog.SeedOnStart {
		loader := catalog.NewLoader(cfg.Catalog.Dir, logger)
		if err := loader.Reload(); err != nil {
			slog.Warn("failed to load catalog", "dir", cfg.Catalog.Dir, "error", err)
		} else if err := catalog.Seed(initCtx, repo, loader); err != nil {
			slog.Error("failed to seed catalog", "error", err)
			os.Exit(1)
		}
	}

	m := metrics.New()
	dash := dashboard.NewService(repo, dashCache, cfg.Dashboard.CacheTTL, logger)
	tracker := attempt.New(repo, evaluator.NewRandom(nil),
		attempt.WithLogger(logger),
		attempt.WithMetrics(m),
		attempt.WithOpenHook(dash.InvalidateFor),
		attempt.WithFinalizeHook(dash.InvalidateFor),
	)

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	limiter := api.NewRateLimiter(cfg.RateLimit.PerMinute, cfg.RateLimit.Burst)
	go limiter.Run(ctx)

	// Setup HTTP server
	server := api.NewServer(cfg.Server, api.Dependencies{
		Repo:      repo,
		Tracker:   tracker,
		Dashboard: dash,
		Health:    registry,
		Metrics:   m,
		Verifier:  auth.NewVerifier(cfg.Auth.TokenSecret),
		Limiter:   limiter,
		Logger:    logger,
	})
	httpServer := &http.Server{
		Addr:              cfg.Address(),
		Handler:           server.Router(),
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		slog.Info("HTTP server starting", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down gracefully...")

	// Cancel context to stop background workers
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}

	if redisCache != nil {
		if err := redisCache.Close(); err != nil {
			slog.Error("redis close error", "error", err)
		}
	}

	if err := repo.Close(); err != nil {
		slog.Error("database close error", "error", err)
	}

	if err := shutdownTracing(shutdownCtx); err != nil {
		slog.Error("tracing shutdown error", "error", err)
	}

	slog.Info("simulex-engine stopped")
}
