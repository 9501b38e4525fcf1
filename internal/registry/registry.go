// Package registry provides access to the marketplace package and team
// registry. The registry owns Package records; the scanner reads them and
// requests approval-status transitions.
package registry

import (
	"context"
	"errors"
	"fmt"

	"github.com/stackhaven/marketscan/internal/models"
	"gorm.io/gorm"
)

// Common errors
var (
	// ErrPackageNotFound indicates the package does not exist in the registry
	ErrPackageNotFound = errors.New("package not found")

	// ErrTeamNotFound indicates the team does not exist in the registry
	ErrTeamNotFound = errors.New("team not found")
)

// Store is the registry interface the scanner depends on
type Store interface {
	// GetPackage retrieves a package by id
	GetPackage(ctx context.Context, id string) (*models.Package, error)

	// GetTeam retrieves a team by id
	GetTeam(ctx context.Context, id string) (*models.Team, error)

	// ListInstalledPackages returns the packages a team already runs
	ListInstalledPackages(ctx context.Context, teamID string) ([]models.InstalledPackage, error)

	// UpdateApprovalStatus transitions a package's approval status. The
	// scanner treats this as fire-and-forget: a failed transition is logged
	// but never changes an already finalized scan result.
	UpdateApprovalStatus(ctx context.Context, packageID string, status models.ApprovalStatus, notes string) error
}

// GormStore implements Store against the shared marketplace database
type GormStore struct {
	db *gorm.DB
}

// NewGormStore creates a registry store backed by the given database
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// GetPackage retrieves a package by id
func (s *GormStore) GetPackage(ctx context.Context, id string) (*models.Package, error) {
	var pkg models.Package
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&pkg).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPackageNotFound
		}
		return nil, fmt.Errorf("failed to load package %s: %w", id, err)
	}
	return &pkg, nil
}

// GetTeam retrieves a team by id
func (s *GormStore) GetTeam(ctx context.Context, id string) (*models.Team, error) {
	var team models.Team
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&team).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTeamNotFound
		}
		return nil, fmt.Errorf("failed to load team %s: %w", id, err)
	}
	return &team, nil
}

// ListInstalledPackages returns the packages a team already runs
func (s *GormStore) ListInstalledPackages(ctx context.Context, teamID string) ([]models.InstalledPackage, error) {
	var installed []models.InstalledPackage
	err := s.db.WithContext(ctx).
		Where("team_id = ?", teamID).
		Order("installed_at DESC").
		Find(&installed).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list installed packages for team %s: %w", teamID, err)
	}
	return installed, nil
}

// UpdateApprovalStatus transitions a package's approval status
func (s *GormStore) UpdateApprovalStatus(ctx context.Context, packageID string, status models.ApprovalStatus, notes string) error {
	result := s.db.WithContext(ctx).
		Model(&models.Package{}).
		Where("id = ?", packageID).
		Updates(map[string]interface{}{
			"approval_status": status,
			"review_notes":    notes,
		})
	if result.Error != nil {
		return fmt.Errorf("failed to update approval status for %s: %w", packageID, result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrPackageNotFound
	}
	return nil
}
