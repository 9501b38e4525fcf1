package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/stackhaven/marketscan/internal/api"
	"github.com/stackhaven/marketscan/internal/config"
	"github.com/stackhaven/marketscan/internal/database"
	"github.com/stackhaven/marketscan/internal/database/repositories"
	"github.com/stackhaven/marketscan/internal/registry"
	"github.com/stackhaven/marketscan/internal/scanner"
	"github.com/stackhaven/marketscan/internal/scanner/ai"
)

// Version information (set during build)
var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

func main() {
	logger := initLogger()
	logger.WithFields(logrus.Fields{
		"version":    Version,
		"commit":     Commit,
		"build_date": BuildDate,
	}).Info("Starting marketscan")

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.WithError(err).Fatal("Failed to load configuration")
	}
	cfg.Version = Version
	applyLogConfig(logger, cfg)

	db, err := initDatabase(cfg, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize database")
	}

	store := registry.NewGormStore(db.DB())

	svc, err := initScanner(cfg, store, db, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize scanner")
	}

	server, err := api.NewServer(&api.ServerConfig{
		Config:   cfg,
		Logger:   logger,
		DB:       db,
		Registry: store,
		Scanner:  svc,
	})
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize API server")
	}

	if err := server.Start(); err != nil {
		logger.WithError(err).Fatal("Failed to start API server")
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	logger.WithField("signal", sig.String()).Info("Shutdown signal received")

	server.Shutdown()
	logger.Info("Server shutdown complete")
}

// initLogger configures the logger before configuration is loaded; the level
// and format from config are applied afterwards.
func initLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})
	logger.SetLevel(logrus.InfoLevel)
	return logger
}

func applyLogConfig(logger *logrus.Logger, cfg *config.Config) {
	if level, err := logrus.ParseLevel(cfg.Logging.Level); err == nil {
		logger.SetLevel(level)
	} else {
		logger.WithField("level", cfg.Logging.Level).Warn("Invalid log level, keeping info")
	}
	if cfg.Logging.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}
}

func initDatabase(cfg *config.Config, logger *logrus.Logger) (database.Database, error) {
	logger.WithFields(logrus.Fields{
		"type": cfg.Database.Type,
		"host": cfg.Database.Host,
		"name": cfg.Database.Name,
	}).Info("Initializing database connection")

	db, err := database.InitDatabase(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	return db, nil
}

func initScanner(cfg *config.Config, store registry.Store, db database.Database, logger *logrus.Logger) (*scanner.Service, error) {
	options := []scanner.ServiceOption{
		scanner.WithServiceLogger(logger),
		scanner.WithResultStore(repositories.NewScanResultRepository(db.DB())),
	}

	if cfg.AI.Enabled {
		client, err := ai.NewFantasyClient(context.Background(), cfg.AI.BaseURL, cfg.AI.APIKey, cfg.AI.Model)
		if err != nil {
			return nil, fmt.Errorf("failed to create AI client: %w", err)
		}
		analyzer := ai.NewAnalyzer(client,
			ai.WithWorkers(cfg.AI.Workers),
			ai.WithMaxFiles(cfg.AI.MaxFiles),
			ai.WithMaxBytes(cfg.AI.MaxBytes),
			ai.WithCallTimeout(cfg.AI.CallTimeout),
			ai.WithRateLimit(cfg.AI.RatePerSec, cfg.AI.RateBurst),
			ai.WithLogger(logger),
		)
		options = append(options, scanner.WithAnalyzer(analyzer))
	} else {
		logger.Info("AI analysis disabled, running rule scanners only")
	}

	return scanner.NewService(cfg, store, options...), nil
}
