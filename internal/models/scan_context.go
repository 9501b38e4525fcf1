package models

// IsolationArchitecture describes how the platform separates tenants. The
// flags are a fixed property of the platform, not of any one team, and are
// embedded into AI prompts so the analyzer does not flag the platform's own
// conventions as vulnerabilities.
type IsolationArchitecture struct {
	DatabasePerTenant bool `json:"database_per_tenant"`
	StoragePerTenant  bool `json:"storage_per_tenant"`
	CachePerTenant    bool `json:"cache_per_tenant"`
	SessionPerTenant  bool `json:"session_per_tenant"`
}

// DefaultIsolationArchitecture reflects the platform's multi-tenant
// separation model
var DefaultIsolationArchitecture = IsolationArchitecture{
	DatabasePerTenant: true,
	StoragePerTenant:  true,
	CachePerTenant:    true,
	SessionPerTenant:  true,
}

// ScanContext is the tenant environment snapshot built once per scan. It is
// immutable for the scan's lifetime and passed explicitly through every
// pipeline stage; nothing reads ambient tenant state.
type ScanContext struct {
	TenantID          string                `json:"tenant_id,omitempty"`
	TeamTier          string                `json:"team_tier"`
	TeamMemberCount   int                   `json:"team_member_count"`
	InstalledPackages []InstalledPackage    `json:"installed_packages"`
	Isolation         IsolationArchitecture `json:"isolation"`
}

// HasModulePeers reports whether the team already runs at least one
// module-style package. Module ecosystems commonly perform direct database
// queries, so the false-positive filter uses this to suppress that class of
// finding.
func (c *ScanContext) HasModulePeers() bool {
	for _, pkg := range c.InstalledPackages {
		if pkg.Type == PackageTypeModule || pkg.Type == PackageTypePlugin {
			return true
		}
	}
	return false
}

// InstalledNames returns the names of all installed packages
func (c *ScanContext) InstalledNames() []string {
	names := make([]string, 0, len(c.InstalledPackages))
	for _, pkg := range c.InstalledPackages {
		names = append(names, pkg.Name)
	}
	return names
}
