package database

import (
	"github.com/sirupsen/logrus"
	"github.com/stackhaven/marketscan/internal/models"
)

// RunMigrations migrates the schema for all scanner models
func RunMigrations(db Database, log *logrus.Logger) error {
	log.Info("Running database migrations")

	err := db.Migrate(
		&models.Package{},
		&models.Team{},
		&models.InstalledPackage{},
		&models.ScanResult{},
	)
	if err != nil {
		return err
	}

	log.Info("Database migrations complete")
	return nil
}
