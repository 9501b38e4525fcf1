// Package scanner orchestrates the marketplace package security scan. It
// wires the extractor, rule scanners, AI analyzer, false-positive filter,
// scorer, and decision policy into a single pipeline invoked per package.
package scanner

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/stackhaven/marketscan/internal/models"
	"github.com/stackhaven/marketscan/internal/registry"
)

// ContextBuilder assembles the tenant environment snapshot used for
// false-positive suppression and severity weighting. Registry failures never
// fail a scan; the builder degrades to a minimal context and reports the
// degradation as soft warnings.
type ContextBuilder struct {
	store  registry.Store
	logger *logrus.Logger
}

// NewContextBuilder creates a ContextBuilder backed by the given registry.
func NewContextBuilder(store registry.Store, logger *logrus.Logger) *ContextBuilder {
	if logger == nil {
		logger = logrus.New()
	}
	return &ContextBuilder{
		store:  store,
		logger: logger,
	}
}

// Build queries the registry for the submitting team's tier and installed
// packages. A missing team reference or a registry error yields a minimal
// context plus warnings; Build never returns an error.
func (b *ContextBuilder) Build(ctx context.Context, pkg *models.Package) (*models.ScanContext, []string) {
	sctx := &models.ScanContext{
		Isolation: models.DefaultIsolationArchitecture,
	}
	var warnings []string

	if pkg == nil || pkg.TeamID == "" {
		return sctx, warnings
	}

	sctx.TenantID = pkg.TeamID

	if b.store == nil {
		warnings = append(warnings, "registry unavailable, scanning without team context")
		return sctx, warnings
	}

	team, err := b.store.GetTeam(ctx, pkg.TeamID)
	if err != nil {
		b.logger.WithError(err).WithField("team_id", pkg.TeamID).Warn("Failed to load team")
		warnings = append(warnings, fmt.Sprintf("team lookup failed: %v", err))
	} else {
		sctx.TeamTier = team.Tier
		sctx.TeamMemberCount = team.MemberCount
	}

	installed, err := b.store.ListInstalledPackages(ctx, pkg.TeamID)
	if err != nil {
		b.logger.WithError(err).WithField("team_id", pkg.TeamID).Warn("Failed to list installed packages")
		warnings = append(warnings, fmt.Sprintf("installed package lookup failed: %v", err))
	} else {
		sctx.InstalledPackages = installed
	}

	return sctx, warnings
}
