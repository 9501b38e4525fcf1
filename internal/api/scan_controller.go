package api

import (
	"context"
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/stackhaven/marketscan/internal/database/repositories"
	"github.com/stackhaven/marketscan/internal/models"
	"github.com/stackhaven/marketscan/internal/registry"
	"github.com/stackhaven/marketscan/internal/utils"
)

// PackageScanner runs the scan pipeline for one package.
type PackageScanner interface {
	ScanPackage(ctx context.Context, pkg *models.Package) (*models.ScanResult, error)
}

// ScanResultReader is the read side of scan result persistence.
type ScanResultReader interface {
	GetLatestByPackageID(ctx context.Context, packageID string) (*models.ScanResult, error)
	ListByPackageID(ctx context.Context, packageID string) ([]models.ScanResult, error)
}

// ScanController handles scan trigger and result endpoints.
type ScanController struct {
	scanner  PackageScanner
	registry registry.Store
	results  ScanResultReader
	logger   *logrus.Logger
}

// NewScanController creates a ScanController.
func NewScanController(svc PackageScanner, store registry.Store, results ScanResultReader, logger *logrus.Logger) *ScanController {
	return &ScanController{
		scanner:  svc,
		registry: store,
		results:  results,
		logger:   logger,
	}
}

// TriggerScan runs the full pipeline for one package, synchronously, and
// returns the finalized result.
func (ctrl *ScanController) TriggerScan(c *gin.Context) {
	packageID := c.Param("id")
	if packageID == "" {
		utils.BadRequest(c, "package id is required")
		return
	}

	pkg, err := ctrl.registry.GetPackage(c.Request.Context(), packageID)
	if err != nil {
		if errors.Is(err, registry.ErrPackageNotFound) {
			utils.NotFound(c, "package not found")
			return
		}
		ctrl.logger.WithError(err).WithField("package_id", packageID).Error("Failed to load package")
		utils.InternalServerError(c, "failed to load package")
		return
	}

	if pkg.ApprovalStatus == models.ApprovalScanning {
		utils.Conflict(c, "a scan is already in progress for this package")
		return
	}

	result, err := ctrl.scanner.ScanPackage(c.Request.Context(), pkg)
	if err != nil {
		ctrl.logger.WithError(err).WithField("package_id", packageID).Error("Scan failed")
		utils.InternalServerError(c, "scan failed")
		return
	}

	utils.SuccessResponse(c, result)
}

// GetLatestScan returns the most recent scan result for a package.
func (ctrl *ScanController) GetLatestScan(c *gin.Context) {
	packageID := c.Param("id")

	result, err := ctrl.results.GetLatestByPackageID(c.Request.Context(), packageID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			utils.NotFound(c, "no scan results for package")
			return
		}
		ctrl.logger.WithError(err).WithField("package_id", packageID).Error("Failed to load scan result")
		utils.InternalServerError(c, "failed to load scan result")
		return
	}

	utils.SuccessResponse(c, result)
}

// ListScans returns every scan attempt for a package, newest first.
func (ctrl *ScanController) ListScans(c *gin.Context) {
	packageID := c.Param("id")

	results, err := ctrl.results.ListByPackageID(c.Request.Context(), packageID)
	if err != nil {
		ctrl.logger.WithError(err).WithField("package_id", packageID).Error("Failed to list scan results")
		utils.InternalServerError(c, "failed to list scan results")
		return
	}

	utils.SuccessResponse(c, gin.H{
		"package_id": packageID,
		"count":      len(results),
		"scans":      results,
	})
}
