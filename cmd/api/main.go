package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pmiaudio/audiobook-api/internal/auth"
	"github.com/pmiaudio/audiobook-api/internal/cache"
	"github.com/pmiaudio/audiobook-api/internal/catalog"
	"github.com/pmiaudio/audiobook-api/internal/config"
	"github.com/pmiaudio/audiobook-api/internal/database"
	"github.com/pmiaudio/audiobook-api/internal/logging"
	"github.com/pmiaudio/audiobook-api/internal/progress"
	"github.com/pmiaudio/audiobook-api/internal/queue"
	"github.com/pmiaudio/audiobook-api/internal/recommend"
	"github.com/pmiaudio/audiobook-api/internal/storage"
	"github.com/pmiaudio/audiobook-api/internal/tracing"
)

func main() {
	// Load configuration
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.NewLogger(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}

	// Initialize tracing
	if cfg.Tracing.Enabled {
		closer, err := tracing.Init(cfg.Tracing)
		if err != nil {
			logger.WithError(err).Fatal("Failed to initialize tracer")
		}
		defer closer.Close()
	}

	// Initialize database
	db, err := database.New(cfg.Database)
	if err != nil {
		logger.WithError(err).Fatal("Failed to connect to database")
	}
	defer db.Close()

	migrateCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := db.Migrate(migrateCtx); err != nil {
		cancel()
		logger.WithError(err).Fatal("Failed to run migrations")
	}
	cancel()

	repo := database.NewRepository(db)

	// Initialize cache
	redisCache, err := cache.NewCache(cfg.Redis.Host, cfg.Redis.Port, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		logger.WithError(err).Fatal("Failed to connect to Redis")
	}

	// Initialize storage
	stor, err := storage.New(cfg.Storage)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize storage")
	}

	// Initialize queue
	q, err := queue.New(cfg.Queue)
	if err != nil {
		logger.WithError(err).Fatal("Failed to connect to queue")
	}
	defer q.Close()

	// Wire services
	tokens := auth.NewTokenManager(cfg.Auth)
	api := &API{
		repo:        repo,
		auth:        auth.NewService(repo, tokens, q, auth.NewGoogleVerifier(), cfg.Auth, logger),
		catalog:     catalog.NewService(repo, redisCache, logger),
		tracker:     progress.NewTracker(repo, logger),
		recommender: recommend.NewEngine(repo),
		storage:     stor,
		tokens:      tokens,
		logger:      logger,
	}

	router := setupRouter(api, cfg)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		logger.Infof("Starting API server on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Fatal("Failed to start server")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.WithError(err).Fatal("Server forced to shutdown")
	}

	logger.Info("Server stopped")
}
