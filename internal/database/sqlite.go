package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stackhaven/marketscan/internal/config"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// SQLiteDB implements the Database interface for SQLite
type SQLiteDB struct {
	config *config.Config
	db     *gorm.DB
	sqlDB  *sql.DB
	log    *logrus.Logger
}

// NewSQLiteDB creates a new SQLite database instance
func NewSQLiteDB(cfg *config.Config, log *logrus.Logger) (*SQLiteDB, error) {
	return &SQLiteDB{
		config: cfg,
		log:    log,
	}, nil
}

// Connect establishes a connection to the SQLite database
func (s *SQLiteDB) Connect() error {
	databasePath := s.config.Database.SQLite.Path
	if databasePath == "" {
		databasePath = "marketscan.db"
	}

	if err := ensureDirectoryExists(databasePath); err != nil {
		return fmt.Errorf("failed to create directory for SQLite database: %w", err)
	}

	var logAdapter logger.Writer
	if s.log != nil {
		logAdapter = NewLogrusAdapter(s.log)
	} else {
		logAdapter = discardWriter{}
	}

	gormLogger := logger.New(
		logAdapter,
		logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  getLogLevel(s.config.Logging.Level),
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	db, err := gorm.Open(sqlite.Open(databasePath), &gorm.Config{
		Logger: gormLogger,
	})
	if err != nil {
		return fmt.Errorf("failed to connect to SQLite database: %w", err)
	}

	if err := db.Exec("PRAGMA journal_mode=WAL; PRAGMA foreign_keys=ON;").Error; err != nil {
		if s.log != nil {
			s.log.WithError(err).Warn("Failed to set SQLite pragmas")
		}
	}

	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying SQL DB: %w", err)
	}

	// SQLite performs best with a single writer connection
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	sqlDB.SetConnMaxLifetime(s.config.Database.ConnMaxLifetime)

	s.db = db
	s.sqlDB = sqlDB

	return nil
}

// DB returns the underlying database instance
func (s *SQLiteDB) DB() *gorm.DB {
	return s.db
}

// Close closes the database connection
func (s *SQLiteDB) Close() error {
	if s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// Migrate runs database migrations for the given models
func (s *SQLiteDB) Migrate(models ...interface{}) error {
	if s.db == nil {
		return fmt.Errorf("database is not connected")
	}
	return s.db.AutoMigrate(models...)
}

// Ping checks if the database is reachable
func (s *SQLiteDB) Ping() error {
	if s.sqlDB == nil {
		return fmt.Errorf("database is not connected")
	}
	return s.sqlDB.Ping()
}

// Transaction executes the given function within a transaction
func (s *SQLiteDB) Transaction(fn func(tx *gorm.DB) error) error {
	if s.db == nil {
		return fmt.Errorf("database is not connected")
	}
	return s.db.Transaction(fn)
}
