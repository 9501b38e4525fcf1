package ai

import (
	"fmt"
	"strings"

	"github.com/stackhaven/marketscan/internal/models"
)

// legitimatePatterns enumerates platform idioms the model must not flag.
// Kept in sync with the false-positive filter's allowlist so the two layers
// agree on what "routine" means.
var legitimatePatterns = []string{
	"Queries filtered by tenant_id (e.g. ->where('tenant_id', ...)) are the required data-access idiom, not an injection risk",
	"Tenant-aware storage paths (storage/tenants/<id>/...) and tenant_path() helpers are the sanctioned filesystem layout",
	"Cache keys namespaced per tenant via cache_key_for_tenant() or a tenant prefix are expected",
	"Tenant::current() and tenant()->id accessors read request-scoped tenant context and are safe",
	"Session access through the platform session facade is isolated per tenant by the platform",
}

func describeIsolation(iso models.IsolationArchitecture) string {
	var sb strings.Builder
	sb.WriteString("Platform tenant-isolation architecture:\n")
	sb.WriteString(fmt.Sprintf("- Database separated per tenant: %v\n", iso.DatabasePerTenant))
	sb.WriteString(fmt.Sprintf("- File storage separated per tenant: %v\n", iso.StoragePerTenant))
	sb.WriteString(fmt.Sprintf("- Cache separated per tenant: %v\n", iso.CachePerTenant))
	sb.WriteString(fmt.Sprintf("- Sessions separated per tenant: %v\n", iso.SessionPerTenant))
	return sb.String()
}

// buildFilePrompt assembles the per-file analysis prompt: tenant context,
// legitimate-pattern list, truncated file content and the response contract
func buildFilePrompt(relPath, content string, pkg *models.Package, sctx *models.ScanContext) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("Analyze file %q from marketplace package %q (type: %s) for security vulnerabilities.\n\n",
		relPath, pkg.Name, pkg.Type))

	sb.WriteString(describeIsolation(sctx.Isolation))

	sb.WriteString("\nLEGITIMATE PLATFORM PATTERNS (do NOT report these):\n")
	for _, pattern := range legitimatePatterns {
		sb.WriteString("- ")
		sb.WriteString(pattern)
		sb.WriteString("\n")
	}

	if len(sctx.InstalledPackages) > 0 {
		sb.WriteString(fmt.Sprintf("\nThe submitting team already runs %d installed package(s): %s\n",
			len(sctx.InstalledPackages), strings.Join(sctx.InstalledNames(), ", ")))
	}

	sb.WriteString("\nFILE CONTENT (may be truncated):\n")
	sb.WriteString(content)

	sb.WriteString(`

Respond with a single JSON object, nothing else:
{
  "vulnerabilities": [
    {"type": "...", "severity": "low|medium|high|critical", "description": "...", "file": "...", "line": 0, "snippet": "...", "tenant_impact": "..."}
  ],
  "recommendations": ["..."]
}`)

	return sb.String()
}

// buildNarrativePrompt assembles the package-level summary prompt
func buildNarrativePrompt(pkg *models.Package, sctx *models.ScanContext, findings []models.Finding) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("Write a short security review summary for marketplace package %q (type: %s, team tier: %s).\n",
		pkg.Name, pkg.Type, sctx.TeamTier))
	sb.WriteString(fmt.Sprintf("The scan produced %d finding(s):\n", len(findings)))

	for i, f := range findings {
		if i >= 30 {
			sb.WriteString(fmt.Sprintf("... and %d more\n", len(findings)-i))
			break
		}
		sb.WriteString(fmt.Sprintf("- [%s] %s in %s: %s\n", f.Severity, f.Type, f.File, f.Description))
	}

	sb.WriteString("\nSummarize the overall risk for a human reviewer in plain prose, 3-5 sentences. Do not use JSON.")
	return sb.String()
}
