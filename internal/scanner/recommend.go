package scanner

import (
	"fmt"

	"github.com/stackhaven/marketscan/internal/models"
)

// Baseline guidance attached to every scan result.
var baselineRecommendations = []string{
	"Scope all database access to the current tenant",
	"Use tenant-aware storage and cache namespaces for persisted data",
	"Validate and sanitize all user-supplied input",
}

// Per-type remediation templates. Types without an entry get no extra
// guidance.
var typeRecommendations = map[string]string{
	models.FindingMalwarePattern:   "Remove the flagged code patterns before resubmitting; obfuscated or self-modifying code is not accepted",
	models.FindingCommandInjection: "Replace shell invocations with framework APIs; never pass request data to a shell",
	models.FindingSQLInjection:     "Use parameterized queries or the query builder instead of string concatenation",
	models.FindingTenantIsolation:  "Route all tenant data access through the platform's tenancy helpers",
	models.FindingDynamicEval:      "Remove dynamic code evaluation; declare behavior statically",
	models.FindingRemoteInclusion:  "Bundle all code with the package; remote code loading is not permitted",
	models.FindingObfuscation:      "Submit readable source; encoded payloads cannot be reviewed",
	models.FindingVulnerableDep:    "Upgrade the flagged dependencies to patched versions",
	models.FindingDangerousPerms:   "Request only the permissions the package actually uses",
	models.FindingMissingSandbox:   "Declare a sandbox policy restricting embedded content",
	models.FindingDatabaseQuery:    "Prefer the data-access layer over raw queries",
	models.FindingCrossTenantAccess: "Remove any access to data outside the requesting tenant's scope",
}

// Recommend builds the deduplicated remediation list for a scan: baseline
// guidance, context-derived notes, then one note per distinct finding type.
// Order is stable for a given input.
func Recommend(findings []models.Finding, sctx *models.ScanContext) []string {
	seen := make(map[string]struct{})
	var out []string
	add := func(rec string) {
		if _, dup := seen[rec]; dup {
			return
		}
		seen[rec] = struct{}{}
		out = append(out, rec)
	}

	for _, rec := range baselineRecommendations {
		add(rec)
	}

	if sctx != nil {
		if n := len(sctx.InstalledPackages); n > 0 {
			add(fmt.Sprintf("Verify compatibility with the team's %d installed packages", n))
		}
		switch sctx.TeamTier {
		case "free", "starter":
			add("Keep resource usage modest; lower-tier plans run with tighter quotas")
		}
	}

	for _, f := range findings {
		if rec, ok := typeRecommendations[f.Type]; ok {
			add(rec)
		}
	}

	return out
}
