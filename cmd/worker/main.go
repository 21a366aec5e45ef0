package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pmiaudio/audiobook-api/internal/config"
	"github.com/pmiaudio/audiobook-api/internal/logging"
	"github.com/pmiaudio/audiobook-api/internal/mailer"
	"github.com/pmiaudio/audiobook-api/internal/metrics"
	"github.com/pmiaudio/audiobook-api/internal/queue"
	"github.com/pmiaudio/audiobook-api/pkg/models"
)

const metricsPort = 9091

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

	// Initialize queue
	q, err := queue.New(cfg.Queue)
	if err != nil {
		logger.WithError(err).Fatal("Failed to connect to queue")
	}
	defer q.Close()

	sender := mailer.New(cfg.Email)

	// Metrics endpoint for the worker process
	metricsServer := metrics.NewServer(metricsPort, logger)
	go func() {
		if err := metricsServer.Start(); err != nil {
			logger.WithError(err).Error("Metrics server failed")
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		logger.Info("Shutting down worker gracefully...")
		cancel()
	}()

	// Report queue depth while running
	go func() {
		ticker := time.NewTicker(15 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if depth, err := q.GetQueueDepth(); err == nil {
					metrics.EmailQueueDepth.Set(float64(depth))
				}
			}
		}
	}()

	jobHandler := func(job *models.EmailJob) error {
		err := sender.Send(job)
		logger.LogEmailJob(string(job.Type), job.To, err)

		if err != nil {
			metrics.RecordEmailProcessed(string(job.Type), "failed")
			return err
		}

		metrics.RecordEmailProcessed(string(job.Type), "sent")
		return nil
	}

	logger.Info("Worker started, waiting for email jobs...")
	if err := q.ConsumeEmails(ctx, jobHandler); err != nil {
		logger.WithError(err).Fatal("Failed to consume email jobs")
	}

	<-ctx.Done()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("Failed to stop metrics server")
	}

	logger.Info("Worker stopped")
}
