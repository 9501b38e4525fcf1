// Package repositories contains database access for scanner records
package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/stackhaven/marketscan/internal/models"
	"github.com/stackhaven/marketscan/internal/utils"
	"gorm.io/gorm"
)

// Common repository errors
var (
	// ErrNotFound indicates the requested record does not exist
	ErrNotFound = errors.New("record not found")

	// ErrDatabaseOperation indicates a database operation failed
	ErrDatabaseOperation = errors.New("database operation failed")

	// ErrInvalidRecord indicates the record failed validation
	ErrInvalidRecord = errors.New("invalid record")
)

// ScanResultRepository handles database operations for scan results. Scan
// results are append-only: one record per scan attempt, never updated.
type ScanResultRepository struct {
	db *gorm.DB
}

// NewScanResultRepository creates a new scan result repository
func NewScanResultRepository(db *gorm.DB) *ScanResultRepository {
	return &ScanResultRepository{
		db: db,
	}
}

// Create persists a new scan result
func (r *ScanResultRepository) Create(ctx context.Context, result *models.ScanResult) error {
	if err := utils.ValidateStruct(result); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRecord, err)
	}
	if err := r.db.WithContext(ctx).Create(result).Error; err != nil {
		return fmt.Errorf("%w: %v", ErrDatabaseOperation, err)
	}
	return nil
}

// GetLatestByPackageID retrieves the most recent scan result for a package
func (r *ScanResultRepository) GetLatestByPackageID(ctx context.Context, packageID string) (*models.ScanResult, error) {
	var result models.ScanResult
	err := r.db.WithContext(ctx).
		Where("package_id = ?", packageID).
		Order("scanned_at DESC").
		First(&result).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrDatabaseOperation, err)
	}

	return &result, nil
}

// ListByPackageID retrieves all scan attempts for a package, newest first
func (r *ScanResultRepository) ListByPackageID(ctx context.Context, packageID string) ([]models.ScanResult, error) {
	var results []models.ScanResult
	err := r.db.WithContext(ctx).
		Where("package_id = ?", packageID).
		Order("scanned_at DESC").
		Find(&results).Error

	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDatabaseOperation, err)
	}

	return results, nil
}

// CountBlocked returns the number of blocked scan results
func (r *ScanResultRepository) CountBlocked(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.ScanResult{}).
		Where("status = ?", models.ScanBlocked).
		Count(&count).Error

	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrDatabaseOperation, err)
	}

	return count, nil
}
