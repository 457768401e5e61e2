package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/clinsight-server/internal/api"
	"github.com/clinsight-server/internal/audit"
	"github.com/clinsight-server/internal/config"
	"github.com/clinsight-server/internal/database"
	"github.com/clinsight-server/internal/domain"
	"github.com/clinsight-server/internal/repository"
	"github.com/clinsight-server/internal/service"
	"github.com/clinsight-server/pkg/mlapi"
)

func main() {
	// Load configuration
	configManager, err := config.NewManager()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	if err := configManager.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Configuration validation failed: %v\n", err)
		os.Exit(1)
	}

	cfg := configManager.GetConfig()
	logger := newLogger(cfg.Logging)

	logger.WithFields(logrus.Fields{
		"host": cfg.Server.Host,
		"port": cfg.Server.Port,
	}).Info("Starting clinical insight server")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Database connection and migrations
	var patients domain.PatientRepository
	db, err := database.NewConnection(ctx, cfg.Database, logger)
	if err != nil {
		logger.WithError(err).Warn("Database unavailable, patient storage disabled")
	} else {
		defer db.Close()

		runner, err := database.NewMigrationRunner(configManager.GetDatabaseURL(), "migrations", logger)
		if err != nil {
			logger.WithError(err).Fatal("Failed to create migration runner")
		}
		if err := runner.Up(); err != nil {
			logger.WithError(err).Fatal("Failed to run migrations")
		}
		runner.Close()

		patients = repository.NewPatientRepository(db.Pool, logger)
	}

	// Prediction audit store
	auditStore, err := newAuditStore(configManager, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to open audit store")
	}
	defer auditStore.Close()

	// External ML prediction client
	var mlClient domain.MLPredictor
	if cfg.MLAPI.Enabled {
		var cache *mlapi.PredictionCache
		if cfg.Cache.RedisURL != "" {
			cache, err = mlapi.NewPredictionCache(cfg.Cache)
			if err != nil {
				logger.WithError(err).Warn("Prediction cache unavailable, ML responses will not be cached")
				cache = nil
			} else {
				defer cache.Close()
			}
		}
		mlClient = mlapi.NewResilientClient(cfg.MLAPI, cache, logger)
	}

	catalog := domain.DefaultCatalog()
	engine := service.NewPredictionService(catalog, logger)

	server := api.NewServer(api.ServerOptions{
		ConfigManager: configManager,
		Catalog:       catalog,
		Engine:        engine,
		Patients:      patients,
		MLClient:      mlClient,
		AuditStore:    auditStore,
		Logger:        logger,
	})

	// Handle shutdown signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		logger.Info("Shutdown signal received, gracefully shutting down...")
		cancel()
	}()

	if err := server.Start(ctx); err != nil {
		logger.WithError(err).Fatal("Server failed")
	}

	logger.Info("Server stopped")
}

// newLogger builds the process logger from configuration.
func newLogger(cfg domain.LoggingConfig) *logrus.Logger {
	logger := logrus.New()

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	if cfg.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: time.RFC3339Nano,
			FieldMap: logrus.FieldMap{
				logrus.FieldKeyTime:  "timestamp",
				logrus.FieldKeyLevel: "level",
				logrus.FieldKeyMsg:   "message",
			},
		})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{
			TimestampFormat: time.RFC3339,
			FullTimestamp:   true,
		})
	}

	return logger
}

// newAuditStore selects the audit backend from configuration.
func newAuditStore(configManager *config.Manager, logger *logrus.Logger) (audit.Store, error) {
	cfg := configManager.GetConfig()

	switch cfg.Audit.Backend {
	case "postgres":
		logger.Info("Using PostgreSQL audit store")
		return audit.NewPostgresStoreFromURL(configManager.GetDatabaseConnectionString())
	default:
		logger.WithField("path", cfg.Audit.SQLitePath).Info("Using SQLite audit store")
		return audit.NewSQLiteStore(cfg.Audit.SQLitePath)
	}
}
