// Package main provides the lightweight entry point for the outcome
// prediction server. This version requires no external services: it stores
// predictions in SQLite and caches in process memory only.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ivf-outcome-server/internal/api"
	"github.com/ivf-outcome-server/internal/config"
	"github.com/ivf-outcome-server/internal/domain"
	"github.com/ivf-outcome-server/internal/engine"
	"github.com/ivf-outcome-server/internal/service"
	"github.com/ivf-outcome-server/internal/snapshot"
)

func main() {
	cfg := config.LoadLiteConfig()

	if err := cfg.EnsureDataDir(); err != nil {
		log.Fatalf("Failed to create data directory: %v", err)
	}

	logger := buildLogger(cfg.LogLevel, cfg.LogFormat)

	store, err := snapshot.NewSQLiteStore(cfg.PredictionsDBPath())
	if err != nil {
		logger.WithError(err).Fatal("Failed to open prediction store")
	}
	defer store.Close()

	// Export / import subcommands operate on the store directly.
	if len(os.Args) > 1 {
		if err := runSubcommand(os.Args[1:], cfg, store); err != nil {
			logger.WithError(err).Fatal("Command failed")
		}
		return
	}

	predictor, err := service.NewPredictor(engine.NewEngine(logger), store, nil, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to create prediction service")
	}

	server := api.NewServer(liteServerConfig(cfg), predictor, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		logger.Info("Shutdown signal received, gracefully shutting down")
		cancel()
	}()

	logger.WithFields(logrus.Fields{
		"port":     cfg.HTTPPort,
		"data_dir": cfg.DataDir,
	}).Info("Starting outcome prediction server (lite)")

	if err := server.Start(ctx); err != nil {
		logger.WithError(err).Fatal("Server failed")
	}

	logger.Info("Server stopped")
}

// runSubcommand handles the export and import maintenance commands.
func runSubcommand(args []string, cfg *config.LiteConfig, store *snapshot.SQLiteStore) error {
	ctx := context.Background()

	switch args[0] {
	case "export":
		path := filepath.Join(cfg.ExportDir(),
			fmt.Sprintf("predictions-%s.json", time.Now().UTC().Format("20060102-150405")))
		if len(args) > 1 {
			path = args[1]
		}

		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("creating export file: %w", err)
		}
		defer f.Close()

		if err := store.ExportJSON(ctx, f); err != nil {
			return err
		}
		fmt.Printf("Exported predictions to %s\n", path)
		return nil

	case "import":
		if len(args) < 2 {
			return fmt.Errorf("usage: server-lite import <file>")
		}

		f, err := os.Open(args[1])
		if err != nil {
			return fmt.Errorf("opening import file: %w", err)
		}
		defer f.Close()

		imported, skipped, err := store.ImportJSON(ctx, f)
		if err != nil {
			return err
		}
		fmt.Printf("Imported %d predictions, skipped %d existing\n", imported, skipped)
		return nil

	default:
		return fmt.Errorf("unknown command %q (expected export or import)", args[0])
	}
}

// liteServerConfig maps the lite settings onto the shared server config.
func liteServerConfig(cfg *config.LiteConfig) *domain.Config {
	return &domain.Config{
		Server: domain.ServerConfig{
			Host:         "0.0.0.0",
			Port:         cfg.HTTPPort,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  120 * time.Second,
		},
		Logging: domain.LoggingConfig{
			Level:  cfg.LogLevel,
			Format: cfg.LogFormat,
		},
		RateLimit: domain.RateLimitConfig{
			Enabled:           true,
			RequestsPerSecond: 25,
			Burst:             50,
			ClientTTL:         10 * time.Minute,
		},
	}
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
