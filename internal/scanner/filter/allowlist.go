// Package filter suppresses findings that match known-legitimate tenant
// isolation patterns before they reach scoring.
package filter

import "regexp"

// AllowlistVersion identifies the pattern revision applied to a scan.
const AllowlistVersion = "2025.08"

// allowPattern marks a code idiom that is standard practice in tenant-scoped
// modules and must not be reported as a violation.
type allowPattern struct {
	Name    string
	Pattern *regexp.Regexp
}

var allowPatterns = []allowPattern{
	{
		Name:    "tenant-scoped-query",
		Pattern: regexp.MustCompile(`(?i)where\s*\(\s*['"]tenant_id['"]`),
	},
	{
		Name:    "tenant-id-condition",
		Pattern: regexp.MustCompile(`(?i)['"]tenant_id['"]\s*(=>|:|,)\s*`),
	},
	{
		Name:    "tenant-storage-path",
		Pattern: regexp.MustCompile(`storage/tenants/|tenant_path\s*\(`),
	},
	{
		Name:    "tenant-cache-key",
		Pattern: regexp.MustCompile(`cache_key_for_tenant\s*\(`),
	},
	{
		Name:    "current-tenant-accessor",
		Pattern: regexp.MustCompile(`Tenant::current\s*\(\)|tenant\(\)\s*->\s*id`),
	},
	{
		Name:    "session-facade",
		Pattern: regexp.MustCompile(`Session::(get|put|has)\s*\(`),
	},
}

// safeTypes are finding types that describe routine module behavior inside an
// isolated runtime rather than a security defect.
var safeTypes = map[string]struct{}{
	"tenant_scoped_query":  {},
	"framework_api_usage":  {},
	"standard_file_access": {},
}

func snippetAllowed(snippet string) (string, bool) {
	if snippet == "" {
		return "", false
	}
	for _, p := range allowPatterns {
		if p.Pattern.MatchString(snippet) {
			return p.Name, true
		}
	}
	return "", false
}

func typeAllowed(findingType string) bool {
	_, ok := safeTypes[findingType]
	return ok
}
