package rules

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/stackhaven/marketscan/internal/config"
	"github.com/stackhaven/marketscan/internal/models"
	"github.com/stackhaven/marketscan/internal/scanner/walk"
)

// composerManifest is the subset of composer.json the scanner reads
type composerManifest struct {
	Require    map[string]string `json:"require"`
	RequireDev map[string]string `json:"require-dev"`
}

// npmManifest is the subset of package.json the scanner reads
type npmManifest struct {
	Dependencies    map[string]string `json:"dependencies"`
	DevDependencies map[string]string `json:"devDependencies"`
}

// DependencyScanner parses dependency manifests in the extracted tree and
// checks every declared package/version pair against the vulnerable-ranges
// table. Malformed manifests produce a warning and are skipped, never a
// finding.
type DependencyScanner struct {
	table  []VulnerableRange
	caps   config.AnalyzerCapabilities
	logger *logrus.Logger
}

// NewDependencyScanner creates a dependency scanner over the given table
func NewDependencyScanner(caps config.AnalyzerCapabilities, logger *logrus.Logger) *DependencyScanner {
	return &DependencyScanner{
		table:  DefaultVulnTable,
		caps:   caps,
		logger: logger,
	}
}

// WithVulnTable overrides the vulnerable-ranges table, used by tests
func (s *DependencyScanner) WithVulnTable(table []VulnerableRange) *DependencyScanner {
	s.table = table
	return s
}

// Scan locates recognized manifests and returns one medium-severity finding
// per vulnerable dependency. The returned warnings list records manifests
// that could not be parsed.
func (s *DependencyScanner) Scan(ctx context.Context, root string) ([]models.Finding, []string, error) {
	var names []string
	if s.caps.ComposerManifests {
		names = append(names, "composer.json")
	}
	if s.caps.NPMManifests {
		names = append(names, "package.json")
	}
	if len(names) == 0 {
		return nil, nil, nil
	}

	var findings []models.Finding
	var warnings []string

	err := walk.Files(root, walk.Options{Names: names}, func(f walk.File) error {
		if err := ctx.Err(); err != nil {
			return err
		}

		deps, ecosystem, err := s.parseManifest(f)
		if err != nil {
			warning := fmt.Sprintf("manifest %s skipped: %v", f.Rel, err)
			warnings = append(warnings, warning)
			s.logger.WithField("manifest", f.Rel).WithError(err).Warn("Skipping malformed manifest")
			return nil
		}

		for name, version := range deps {
			for _, match := range LookupVulnerable(s.table, ecosystem, name, version) {
				findings = append(findings, models.Finding{
					Type:     models.FindingVulnerableDep,
					Severity: models.SeverityMedium,
					Description: fmt.Sprintf("Dependency %s %s is vulnerable (%s)",
						name, version, match.Advisory),
					File:    f.Rel,
					Snippet: fmt.Sprintf("%s: %s", name, version),
					Origin:  models.OriginRule,
				})
			}
		}
		return nil
	})

	if err != nil && ctx.Err() == nil {
		return findings, warnings, err
	}
	return findings, warnings, nil
}

func (s *DependencyScanner) parseManifest(f walk.File) (map[string]string, string, error) {
	data, err := os.ReadFile(f.Path)
	if err != nil {
		return nil, "", fmt.Errorf("cannot read manifest: %w", err)
	}

	switch {
	case hasBaseName(f.Rel, "composer.json"):
		var manifest composerManifest
		if err := json.Unmarshal(data, &manifest); err != nil {
			return nil, "", fmt.Errorf("invalid composer manifest: %w", err)
		}
		return mergeDeps(manifest.Require, manifest.RequireDev), "composer", nil
	case hasBaseName(f.Rel, "package.json"):
		var manifest npmManifest
		if err := json.Unmarshal(data, &manifest); err != nil {
			return nil, "", fmt.Errorf("invalid npm manifest: %w", err)
		}
		return mergeDeps(manifest.Dependencies, manifest.DevDependencies), "npm", nil
	default:
		return nil, "", fmt.Errorf("unrecognized manifest name")
	}
}

func hasBaseName(rel, name string) bool {
	if rel == name {
		return true
	}
	return len(rel) > len(name) && rel[len(rel)-len(name)-1] == '/' && rel[len(rel)-len(name):] == name
}

func mergeDeps(maps ...map[string]string) map[string]string {
	merged := make(map[string]string)
	for _, m := range maps {
		for k, v := range m {
			merged[k] = v
		}
	}
	return merged
}
