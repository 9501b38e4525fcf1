package rules

import (
	"strconv"
	"strings"
)

// VulnTableVersion identifies the active revision of the vulnerable-ranges
// table
const VulnTableVersion = "2025.08"

// VulnerableRange is one entry in the curated vulnerable-ranges table. A
// version matches when it is below Below and, if AtLeast is set, at or above
// AtLeast.
type VulnerableRange struct {
	Ecosystem string
	Package   string
	AtLeast   string
	Below     string
	Advisory  string
}

// Matches reports whether the given version falls inside the vulnerable range
func (r VulnerableRange) Matches(version string) bool {
	v, ok := parseVersion(version)
	if !ok {
		return false
	}
	below, ok := parseVersion(r.Below)
	if !ok {
		return false
	}
	if compareVersions(v, below) >= 0 {
		return false
	}
	if r.AtLeast != "" {
		atLeast, ok := parseVersion(r.AtLeast)
		if !ok {
			return false
		}
		if compareVersions(v, atLeast) < 0 {
			return false
		}
	}
	return true
}

// DefaultVulnTable is the curated vulnerable-ranges table. This is a small
// static rule set, not a live vulnerability feed.
var DefaultVulnTable = []VulnerableRange{
	{Ecosystem: "composer", Package: "guzzlehttp/guzzle", Below: "6.5.8", Advisory: "CVE-2022-31090 cookie handling"},
	{Ecosystem: "composer", Package: "guzzlehttp/guzzle", AtLeast: "7.0.0", Below: "7.4.5", Advisory: "CVE-2022-31090 cookie handling"},
	{Ecosystem: "composer", Package: "symfony/http-kernel", Below: "4.4.50", Advisory: "CVE-2022-24894 header cache poisoning"},
	{Ecosystem: "composer", Package: "monolog/monolog", Below: "1.12.0", Advisory: "header injection via untrusted records"},
	{Ecosystem: "composer", Package: "phpmailer/phpmailer", Below: "6.5.0", Advisory: "CVE-2021-3603 path traversal in language loader"},
	{Ecosystem: "composer", Package: "league/flysystem", Below: "1.1.4", Advisory: "CVE-2021-32708 TOCTOU path traversal"},
	{Ecosystem: "npm", Package: "lodash", Below: "4.17.21", Advisory: "CVE-2021-23337 command injection in template"},
	{Ecosystem: "npm", Package: "minimist", Below: "1.2.6", Advisory: "CVE-2021-44906 prototype pollution"},
	{Ecosystem: "npm", Package: "node-fetch", Below: "2.6.7", Advisory: "CVE-2022-0235 credential forwarding on redirect"},
	{Ecosystem: "npm", Package: "axios", Below: "0.21.2", Advisory: "CVE-2021-3749 ReDoS in trim"},
	{Ecosystem: "npm", Package: "serialize-javascript", Below: "3.1.0", Advisory: "CVE-2020-7660 remote code execution"},
	{Ecosystem: "npm", Package: "jquery", Below: "3.5.0", Advisory: "CVE-2020-11022 XSS in htmlPrefilter"},
}

// LookupVulnerable returns the matching vulnerable-range entries for a
// package/version pair in the given ecosystem
func LookupVulnerable(table []VulnerableRange, ecosystem, name, version string) []VulnerableRange {
	var matches []VulnerableRange
	for _, entry := range table {
		if entry.Ecosystem != ecosystem || entry.Package != name {
			continue
		}
		if entry.Matches(version) {
			matches = append(matches, entry)
		}
	}
	return matches
}

// parseVersion parses a dotted numeric version, tolerating a leading "v" and
// common constraint prefixes from manifests (^, ~, >=). Missing components
// are zero. Returns false for versions with no leading digit, including
// wildcard constraints.
func parseVersion(raw string) ([3]int, bool) {
	s := strings.TrimSpace(raw)
	s = strings.TrimLeft(s, "^~>=<")
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "v")
	if s == "" {
		return [3]int{}, false
	}

	// Drop pre-release/build suffixes
	if i := strings.IndexAny(s, "-+ "); i >= 0 {
		s = s[:i]
	}

	parts := strings.Split(s, ".")
	var out [3]int
	for i := 0; i < len(parts) && i < 3; i++ {
		n, err := strconv.Atoi(parts[i])
		if err != nil {
			if i == 0 {
				return [3]int{}, false
			}
			break
		}
		out[i] = n
	}
	return out, true
}

// compareVersions returns -1, 0 or 1
func compareVersions(a, b [3]int) int {
	for i := 0; i < 3; i++ {
		if a[i] < b[i] {
			return -1
		}
		if a[i] > b[i] {
			return 1
		}
	}
	return 0
}
