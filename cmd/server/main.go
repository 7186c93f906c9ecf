// Package main provides the full server entry point: PostgreSQL-backed
// persistence, Redis caching, and the HTTP prediction API.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/ivf-outcome-server/internal/api"
	"github.com/ivf-outcome-server/internal/cache"
	"github.com/ivf-outcome-server/internal/config"
	"github.com/ivf-outcome-server/internal/database"
	"github.com/ivf-outcome-server/internal/engine"
	"github.com/ivf-outcome-server/internal/repository"
	"github.com/ivf-outcome-server/internal/service"
)

func main() {
	configManager, err := config.NewManager()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	if err := configManager.Validate(); err != nil {
		log.Fatalf("Configuration validation failed: %v", err)
	}

	cfg := configManager.GetConfig()
	logger := buildLogger(cfg.Logging.Level, cfg.Logging.Format)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Database and migrations
	dbConfig := database.FromDatabaseConfig(cfg.Database)
	db, err := database.NewConnection(ctx, dbConfig, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to connect to database")
	}
	defer db.Close()

	migrationRunner, err := database.NewMigrationRunner(dbConfig.URL(), "migrations", logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to create migration runner")
	}
	if err := migrationRunner.Up(ctx); err != nil {
		logger.WithError(err).Fatal("Failed to run migrations")
	}
	migrationRunner.Close()

	store := repository.NewPredictionRepository(db.Pool, logger)

	// Redis is optional: without it the service degrades to compute-only
	// caching via the in-process memo.
	var estimateCache service.EstimateCache
	redisCache, err := cache.NewRedisCache(ctx, cfg.Cache, logger)
	if err != nil {
		logger.WithError(err).Warn("Redis unavailable, continuing without distributed cache")
	} else {
		estimateCache = redisCache
		defer redisCache.Close()
	}

	predictor, err := service.NewPredictor(engine.NewEngine(logger), store, estimateCache, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to create prediction service")
	}

	server := api.NewServer(cfg, predictor, logger)
	server.WithHealthCheck("database", db.Health)
	if redisCache != nil {
		server.WithHealthCheck("cache", func(ctx context.Context) error {
			if !redisCache.Healthy(ctx) {
				return context.DeadlineExceeded
			}
			return nil
		})
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		logger.Info("Shutdown signal received, gracefully shutting down")
		cancel()
	}()

	logger.WithFields(logrus.Fields{
		"host": cfg.Server.Host,
		"port": cfg.Server.Port,
	}).Info("Starting outcome prediction server")

	if err := server.Start(ctx); err != nil {
		logger.WithError(err).Fatal("Server failed")
	}

	logger.Info("Server stopped")
}

// buildLogger configures logrus from the logging settings.
func buildLogger(level, format string) *logrus.Logger {
	logger := logrus.New()

	lvl, err := logrus.ParseLevel(strings.ToLower(level))
	if err != nil {
		lvl = logrus.InfoLevel
	}
	logger.SetLevel(lvl)

	if strings.ToLower(format) == "text" {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	} else {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}

	return logger
}
