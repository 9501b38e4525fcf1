// Package database provides the persistence layer for scan results and the
// package registry
package database

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"github.com/stackhaven/marketscan/internal/config"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Database represents the interface for database operations
type Database interface {
	// DB returns the underlying database instance
	DB() *gorm.DB

	// Connect establishes a connection to the database
	Connect() error

	// Close closes the database connection
	Close() error

	// Migrate runs database migrations for the given models
	Migrate(models ...interface{}) error

	// Ping checks if the database is reachable
	Ping() error

	// Transaction executes the given function within a transaction
	Transaction(fn func(tx *gorm.DB) error) error
}

// Factory defines interface for creating database instances
type Factory interface {
	// Create returns a database instance based on the configuration and logger
	Create(cfg *config.Config, log *logrus.Logger) (Database, error)
}

// DefaultFactory implements the Factory interface
type DefaultFactory struct{}

// NewFactory creates a new database factory
func NewFactory() Factory {
	return &DefaultFactory{}
}

// Create creates a new database instance based on the configuration and logger
func (f *DefaultFactory) Create(cfg *config.Config, log *logrus.Logger) (Database, error) {
	switch cfg.Database.Type {
	case "postgres":
		return NewPostgresDB(cfg, log)
	case "sqlite":
		return NewSQLiteDB(cfg, log)
	default:
		return nil, fmt.Errorf("unsupported database type: %s", cfg.Database.Type)
	}
}

// InitDatabase initializes the database based on configuration and runs the
// schema migrations for the scanner's models
func InitDatabase(cfg *config.Config, log *logrus.Logger) (Database, error) {
	factory := NewFactory()
	db, err := factory.Create(cfg, log)
	if err != nil {
		log.WithError(err).Error("Failed to create database instance")
		return nil, err
	}

	log.Info("Connecting to database...")
	if err := db.Connect(); err != nil {
		log.WithError(err).Error("Failed to connect to database")
		return nil, err
	}
	log.Info("Database connection established.")

	if err := RunMigrations(db, log); err != nil {
		log.WithError(err).Error("Failed to run database migrations")
		return nil, err
	}

	return db, nil
}

// LogrusAdapter adapts a logrus logger to gorm's logger.Writer interface
type LogrusAdapter struct {
	log *logrus.Logger
}

// NewLogrusAdapter creates a new adapter around the given logrus logger
func NewLogrusAdapter(log *logrus.Logger) *LogrusAdapter {
	return &LogrusAdapter{log: log}
}

// Printf implements the logger.Writer interface
func (a *LogrusAdapter) Printf(format string, args ...interface{}) {
	a.log.Tracef(format, args...)
}

// discardWriter is a logger.Writer that drops everything
type discardWriter struct{}

// Printf implements the logger.Writer interface
func (discardWriter) Printf(string, ...interface{}) {}

// getLogLevel maps the configured log level to a gorm log level
func getLogLevel(level string) logger.LogLevel {
	switch level {
	case "debug", "trace":
		return logger.Info
	case "warn":
		return logger.Warn
	case "error":
		return logger.Error
	default:
		return logger.Silent
	}
}

// ensureDirectoryExists creates the parent directory of path if needed
func ensureDirectoryExists(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0755)
}
