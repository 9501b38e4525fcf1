// Package rules implements the deterministic rule-based scanners: signature
// matching, dependency vulnerability lookup and configuration audit
package rules

import (
	"regexp"

	"github.com/stackhaven/marketscan/internal/models"
)

// SignatureRule is a named pattern with a fixed severity. Rules are static
// configuration, not derived data; the table below is the versioned source
// of truth for pattern detection.
type SignatureRule struct {
	Name        string
	Type        string
	Severity    models.Severity
	Pattern     *regexp.Regexp
	Description string
}

// SignatureTableVersion identifies the active revision of the signature table
const SignatureTableVersion = "2025.08"

// DefaultSignatures is the signature table evaluated against every text-like
// file in the extracted tree
var DefaultSignatures = []SignatureRule{
	{
		Name:        "php-shell-exec",
		Type:        models.FindingCommandInjection,
		Severity:    models.SeverityCritical,
		Pattern:     regexp.MustCompile(`(?i)\b(system|exec|shell_exec|passthru|popen|proc_open)\s*\(`),
		Description: "Shell command invocation detected",
	},
	{
		Name:        "php-backtick-exec",
		Type:        models.FindingCommandInjection,
		Severity:    models.SeverityCritical,
		Pattern:     regexp.MustCompile("`[^`\n]*\\$[^`\n]*`"),
		Description: "Backtick shell execution with interpolated variable",
	},
	{
		Name:        "dynamic-eval",
		Type:        models.FindingDynamicEval,
		Severity:    models.SeverityHigh,
		Pattern:     regexp.MustCompile(`(?i)\beval\s*\(`),
		Description: "Dynamic code evaluation detected",
	},
	{
		Name:        "php-create-function",
		Type:        models.FindingDynamicEval,
		Severity:    models.SeverityHigh,
		Pattern:     regexp.MustCompile(`(?i)\b(create_function|assert)\s*\(\s*\$`),
		Description: "Runtime code construction from variable input",
	},
	{
		Name:        "js-function-constructor",
		Type:        models.FindingDynamicEval,
		Severity:    models.SeverityHigh,
		Pattern:     regexp.MustCompile(`new\s+Function\s*\(`),
		Description: "JavaScript Function constructor used to build code at runtime",
	},
	{
		Name:        "js-child-process",
		Type:        models.FindingCommandInjection,
		Severity:    models.SeverityCritical,
		Pattern:     regexp.MustCompile(`require\s*\(\s*['"]child_process['"]\s*\)`),
		Description: "Node child_process module loaded",
	},
	{
		Name:        "remote-include",
		Type:        models.FindingRemoteInclusion,
		Severity:    models.SeverityHigh,
		Pattern:     regexp.MustCompile(`(?i)\b(include|include_once|require|require_once)\s*\(?\s*['"]https?://`),
		Description: "Remote file inclusion detected",
	},
	{
		Name:        "obfuscated-eval",
		Type:        models.FindingObfuscation,
		Severity:    models.SeverityHigh,
		Pattern:     regexp.MustCompile(`(?i)\beval\s*\(\s*(base64_decode|gzinflate|gzuncompress|str_rot13)\s*\(`),
		Description: "Obfuscated payload executed via eval",
	},
	{
		Name:        "base64-payload",
		Type:        models.FindingObfuscation,
		Severity:    models.SeverityMedium,
		Pattern:     regexp.MustCompile(`(?i)\bbase64_decode\s*\(\s*['"][A-Za-z0-9+/=]{64,}`),
		Description: "Long inline base64 payload decoded at runtime",
	},
	{
		Name:        "preg-replace-eval",
		Type:        models.FindingDynamicEval,
		Severity:    models.SeverityCritical,
		Pattern:     regexp.MustCompile(`(?i)\bpreg_replace\s*\(\s*['"][^'"]*/[a-z]*e[a-z]*['"]`),
		Description: "preg_replace with eval modifier",
	},
	{
		Name:        "raw-sql-concat",
		Type:        models.FindingSQLInjection,
		Severity:    models.SeverityHigh,
		Pattern:     regexp.MustCompile(`(?i)(SELECT|INSERT|UPDATE|DELETE)\s+[^;'"]*['"]\s*(\.|\+)\s*\$`),
		Description: "SQL statement concatenated with a variable",
	},
	{
		Name:        "curl-exec-upload",
		Type:        models.FindingMalwarePattern,
		Severity:    models.SeverityHigh,
		Pattern:     regexp.MustCompile(`(?i)curl_exec\s*\([^)]*\)\s*;?\s*//?\s*(upload|exfil)?`),
		Description: "Outbound transfer via curl_exec",
	},
	{
		Name:        "superglobal-exec",
		Type:        models.FindingMalwarePattern,
		Severity:    models.SeverityCritical,
		Pattern:     regexp.MustCompile(`(?i)\b(system|exec|eval|assert)\s*\(\s*\$_(GET|POST|REQUEST|COOKIE)`),
		Description: "Request input passed directly to an execution primitive",
	},
}
