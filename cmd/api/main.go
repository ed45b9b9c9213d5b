package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/saturnino-fabrica-de-software/emotisense/internal/api"
	"github.com/saturnino-fabrica-de-software/emotisense/internal/api/handler"
	"github.com/saturnino-fabrica-de-software/emotisense/internal/api/middleware"
	"github.com/saturnino-fabrica-de-software/emotisense/internal/config"
	"github.com/saturnino-fabrica-de-software/emotisense/internal/database"
	"github.com/saturnino-fabrica-de-software/emotisense/internal/detection"
	"github.com/saturnino-fabrica-de-software/emotisense/internal/history"
	"github.com/saturnino-fabrica-de-software/emotisense/internal/media"
	"github.com/saturnino-fabrica-de-software/emotisense/internal/model"
	"github.com/saturnino-fabrica-de-software/emotisense/internal/provider"
	"github.com/saturnino-fabrica-de-software/emotisense/internal/repository"
	"github.com/saturnino-fabrica-de-software/emotisense/internal/session"
	"github.com/saturnino-fabrica-de-software/emotisense/internal/ws"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Initialize logger
	logger := config.NewLogger(os.Stdout, cfg.Environment, cfg.LogLevel)
	slog.SetDefault(logger)

	logger.Info("starting EmotiSense API",
		slog.String("environment", cfg.Environment),
		slog.Int("port", cfg.Port),
		slog.String("provider", cfg.ProviderType),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	hub := ws.NewHub()

	// Model is loaded lazily on first detection or POST /v1/models/load
	p, err := model.NewProvider(cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to create provider: %w", err)
	}
	svc := model.NewService(p,
		model.WithLogger(logger),
		model.WithListener(hub.PublishModelStatus),
		model.WithLoadTimeout(cfg.ModelLoadTimeout),
	)

	previews, err := media.NewPreviews(cfg.PreviewDir)
	if err != nil {
		return fmt.Errorf("failed to create preview store: %w", err)
	}
	defer func() {
		if err := previews.Close(); err != nil {
			logger.Error("failed to remove previews", slog.Any("error", err))
		}
	}()

	deps := &api.Dependencies{
		Model:     svc,
		Previews:  previews,
		Hub:       hub,
		Limits:    handler.MediaLimits{MaxImageSize: cfg.MaxImageSize, MaxVideoSize: cfg.MaxVideoSize},
		RateLimit: middleware.DefaultRateLimiterConfig(),
	}

	// History: Postgres when configured, log only otherwise
	var sink history.Sink
	var pool *pgxpool.Pool
	if cfg.HistoryEnabled() {
		if err := database.MigrateUp(cfg.DatabaseURL); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}

		pool, err = database.NewPool(ctx, database.DefaultPoolConfig(cfg.DatabaseURL))
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer pool.Close()

		repo := repository.NewDetectionRepository(pool)
		sink = history.NewRepositorySink(repo)
		deps.History = repo
		deps.DB = pool
		logger.Info("detection history enabled")
	} else {
		sink = history.NewSlogSink(logger)
		logger.Info("detection history disabled, transitions are logged only")
	}

	recorder := history.NewRecorder(sink, logger, history.DefaultRecorderConfig())
	recorder.Start()
	defer recorder.Stop()

	sessions := session.NewManager(svc, previews, sessionConfig(cfg),
		session.WithLogger(logger),
		session.WithPublisher(hub),
		session.WithRecorder(recorder),
	)
	defer sessions.CloseAll()
	go sessions.Run(ctx)
	deps.Sessions = sessions

	// Setup router
	router := api.NewRouter(logger, deps)
	router.Setup()

	// Start server in goroutine
	errChan := make(chan error, 1)
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Port)
		logger.Info("server listening", slog.String("addr", addr))
		if err := router.Listen(addr); err != nil {
			errChan <- err
		}
	}()

	// Wait for shutdown signal or error
	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-errChan:
		return fmt.Errorf("server error: %w", err)
	}

	logger.Info("shutting down server...")
	done := make(chan error, 1)
	go func() { done <- router.Shutdown() }()

	select {
	case err := <-done:
		if err != nil {
			logger.Error("shutdown error", slog.Any("error", err))
		}
	case <-time.After(10 * time.Second):
		logger.Warn("shutdown timed out")
	}

	logger.Info("server stopped")
	return nil
}

// sessionConfig maps the environment onto session defaults
func sessionConfig(cfg *config.Config) session.Config {
	sc := session.DefaultConfig()

	// Validate already rejected unknown values
	configured, _ := detection.ParseNoFacePolicy(cfg.NoFacePolicy)
	policies := detection.ResolvePolicies(configured)

	live := provider.DetectOptions{InputSize: cfg.LiveInputSize, ScoreThreshold: cfg.ScoreThreshold}

	sc.IdleTimeout = cfg.SessionIdleTimeout
	sc.LivePoller.Interval = cfg.DetectionInterval
	sc.LivePoller.Timeout = cfg.DetectionTimeout
	sc.LivePoller.Options = live
	sc.LivePoller.Policy = policies.Live
	sc.VideoPoller = sc.LivePoller

	sc.ImageOptions = provider.DetectOptions{InputSize: cfg.ImageInputSize, ScoreThreshold: cfg.ScoreThreshold}
	sc.ImagePolicy = policies.Still

	sc.CameraDeviceEnabled = cfg.CameraDeviceEnabled
	sc.CameraDevice = cfg.CameraDevice
	return sc
}
