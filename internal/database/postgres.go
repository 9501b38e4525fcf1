package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stackhaven/marketscan/internal/config"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// PostgresDB implements the Database interface for PostgreSQL
type PostgresDB struct {
	config *config.Config
	db     *gorm.DB
	sqlDB  *sql.DB
	log    *logrus.Logger
}

// NewPostgresDB creates a new PostgreSQL database instance
func NewPostgresDB(cfg *config.Config, log *logrus.Logger) (*PostgresDB, error) {
	return &PostgresDB{
		config: cfg,
		log:    log,
	}, nil
}

// Connect establishes a connection to the PostgreSQL database
func (p *PostgresDB) Connect() error {
	cfg := p.config.Database

	dsn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host,
		cfg.Port,
		cfg.User,
		cfg.Password,
		cfg.Name,
		getSslMode(cfg.SSLMode),
	)

	var logAdapter logger.Writer
	if p.log != nil {
		logAdapter = NewLogrusAdapter(p.log)
	} else {
		logAdapter = discardWriter{}
	}

	gormLogger := logger.New(
		logAdapter,
		logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  getLogLevel(p.config.Logging.Level),
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormLogger,
	})
	if err != nil {
		return fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying SQL DB: %w", err)
	}

	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	p.db = db
	p.sqlDB = sqlDB

	return nil
}

// DB returns the underlying database instance
func (p *PostgresDB) DB() *gorm.DB {
	return p.db
}

// Close closes the database connection
func (p *PostgresDB) Close() error {
	if p.sqlDB == nil {
		return nil
	}
	return p.sqlDB.Close()
}

// Migrate runs database migrations for the given models
func (p *PostgresDB) Migrate(models ...interface{}) error {
	if p.db == nil {
		return fmt.Errorf("database is not connected")
	}
	return p.db.AutoMigrate(models...)
}

// Ping checks if the database is reachable
func (p *PostgresDB) Ping() error {
	if p.sqlDB == nil {
		return fmt.Errorf("database is not connected")
	}
	return p.sqlDB.Ping()
}

// Transaction executes the given function within a transaction
func (p *PostgresDB) Transaction(fn func(tx *gorm.DB) error) error {
	if p.db == nil {
		return fmt.Errorf("database is not connected")
	}
	return p.db.Transaction(fn)
}

// getSslMode normalizes the configured SSL mode, defaulting to disable
func getSslMode(mode string) string {
	switch mode {
	case "require", "verify-ca", "verify-full", "disable":
		return mode
	default:
		return "disable"
	}
}
