package models

// Severity classifies how dangerous a single finding is
type Severity string

// Severity levels, ordered from least to most dangerous
const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Rank returns the ordinal position of the severity, with unknown values
// ranked below low so they never dominate a score
func (s Severity) Rank() int {
	switch s {
	case SeverityCritical:
		return 4
	case SeverityHigh:
		return 3
	case SeverityMedium:
		return 2
	case SeverityLow:
		return 1
	default:
		return 0
	}
}

// Valid reports whether the severity is one of the four known levels
func (s Severity) Valid() bool {
	return s.Rank() > 0
}

// FindingOrigin identifies which analyzer class produced a finding
type FindingOrigin string

const (
	// OriginRule marks findings produced by deterministic rule scanners
	OriginRule FindingOrigin = "rule"

	// OriginAI marks findings extracted from the AI semantic analyzer
	OriginAI FindingOrigin = "ai"
)

// Finding types emitted by the scanners. The filter and decision engine key
// off these values, so they are shared constants rather than free strings.
const (
	FindingMalwarePattern    = "malware_pattern"
	FindingCommandInjection  = "command_injection"
	FindingSQLInjection      = "sql_injection"
	FindingTenantIsolation   = "tenant_isolation_violation"
	FindingDynamicEval       = "dynamic_code_evaluation"
	FindingRemoteInclusion   = "remote_file_inclusion"
	FindingObfuscation       = "code_obfuscation"
	FindingVulnerableDep     = "vulnerable_dependency"
	FindingDangerousPerms    = "dangerous_permissions"
	FindingMissingSandbox    = "missing_sandbox"
	FindingDatabaseQuery     = "database_query"
	FindingFileManipulation  = "file_manipulation"
	FindingConfigAccess      = "configuration_access"
	FindingSessionTampering  = "session_tampering"
	FindingCrossTenantAccess = "cross_tenant_access"
)

// Finding represents a single detected issue. Findings are value objects:
// they are never mutated after creation, only removed by the false-positive
// filter.
type Finding struct {
	Type         string        `json:"type"`
	Severity     Severity      `json:"severity"`
	Description  string        `json:"description"`
	File         string        `json:"file"`
	Line         int           `json:"line,omitempty"`
	Snippet      string        `json:"snippet,omitempty"`
	Origin       FindingOrigin `json:"origin"`
	TenantImpact string        `json:"tenant_impact,omitempty"`
}
