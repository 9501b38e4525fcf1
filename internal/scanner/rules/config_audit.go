package rules

import (
	"fmt"
	"sort"
	"strings"

	"github.com/stackhaven/marketscan/internal/models"
)

// DangerousPermissions is the fixed set of declared permissions that always
// warrants reviewer attention
var DangerousPermissions = map[string]bool{
	"filesystem_write":   true,
	"process_exec":       true,
	"network_raw":        true,
	"database_admin":     true,
	"user_impersonation": true,
	"cross_tenant_read":  true,
	"webhook_outbound":   true,
}

// Lower-tier teams requesting many dangerous permissions are weighted higher
var lowTiers = map[string]bool{
	"free":    true,
	"starter": true,
}

// ConfigAuditor inspects a package's declared permissions and embedding
// policy. It is a pure function of the manifest metadata and the scan
// context; no file-tree walk is involved.
type ConfigAuditor struct{}

// NewConfigAuditor creates a configuration auditor
func NewConfigAuditor() *ConfigAuditor {
	return &ConfigAuditor{}
}

// Audit flags dangerous permission requests and missing sandbox restrictions
func (a *ConfigAuditor) Audit(pkg *models.Package, sctx *models.ScanContext) []models.Finding {
	var findings []models.Finding

	if f := a.auditPermissions(pkg, sctx); f != nil {
		findings = append(findings, *f)
	}
	if f := a.auditSandbox(pkg); f != nil {
		findings = append(findings, *f)
	}
	return findings
}

func (a *ConfigAuditor) auditPermissions(pkg *models.Package, sctx *models.ScanContext) *models.Finding {
	var dangerous []string
	for _, permission := range pkg.Permissions {
		if DangerousPermissions[permission] {
			dangerous = append(dangerous, permission)
		}
	}
	if len(dangerous) == 0 {
		return nil
	}
	sort.Strings(dangerous)

	severity := models.SeverityMedium
	if len(dangerous) > 2 {
		severity = models.SeverityHigh
	} else if len(dangerous) > 1 && lowTiers[sctx.TeamTier] {
		// A small team asking for several dangerous capabilities is a
		// stronger signal than the same request from an established tenant
		severity = models.SeverityHigh
	}

	return &models.Finding{
		Type:     models.FindingDangerousPerms,
		Severity: severity,
		Description: fmt.Sprintf("Package requests %d dangerous permission(s): %s",
			len(dangerous), strings.Join(dangerous, ", ")),
		File:         "manifest",
		Snippet:      strings.Join(dangerous, ", "),
		Origin:       models.OriginRule,
		TenantImpact: fmt.Sprintf("requested by %s tier team", sctx.TeamTier),
	}
}

func (a *ConfigAuditor) auditSandbox(pkg *models.Package) *models.Finding {
	policy := strings.ToLower(strings.TrimSpace(pkg.SandboxPolicy))
	if policy != "" && policy != "none" {
		return nil
	}

	return &models.Finding{
		Type:        models.FindingMissingSandbox,
		Severity:    models.SeverityMedium,
		Description: "Embedding configuration declares no sandbox restriction",
		File:        "manifest",
		Origin:      models.OriginRule,
	}
}
