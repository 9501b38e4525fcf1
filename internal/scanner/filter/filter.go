package filter

import (
	"github.com/sirupsen/logrus"

	"github.com/stackhaven/marketscan/internal/models"
)

// Filter removes findings that describe legitimate tenant-scoped behavior.
// It never changes a finding's severity or other fields.
type Filter struct {
	logger *logrus.Logger
}

// Option configures a Filter.
type Option func(*Filter)

// WithLogger sets the logger used to record suppressed findings.
func WithLogger(logger *logrus.Logger) Option {
	return func(f *Filter) {
		if logger != nil {
			f.logger = logger
		}
	}
}

// New creates a Filter.
func New(options ...Option) *Filter {
	f := &Filter{
		logger: logrus.New(),
	}
	for _, opt := range options {
		opt(f)
	}
	return f
}

// Apply returns the findings that survive suppression. The input slice is
// never modified.
func (f *Filter) Apply(findings []models.Finding, sctx *models.ScanContext) []models.Finding {
	kept := make([]models.Finding, 0, len(findings))
	hasModulePeers := sctx != nil && sctx.HasModulePeers()

	for _, finding := range findings {
		if reason, suppressed := f.suppress(finding, hasModulePeers); suppressed {
			f.logger.WithFields(logrus.Fields{
				"type":    finding.Type,
				"file":    finding.File,
				"reason":  reason,
				"version": AllowlistVersion,
			}).Debug("Suppressed finding")
			continue
		}
		kept = append(kept, finding)
	}
	return kept
}

func (f *Filter) suppress(finding models.Finding, hasModulePeers bool) (string, bool) {
	if name, ok := snippetAllowed(finding.Snippet); ok {
		return "allow_pattern:" + name, true
	}
	if typeAllowed(finding.Type) {
		return "safe_type", true
	}
	if finding.Type == models.FindingDatabaseQuery && hasModulePeers {
		return "module_peer_heuristic", true
	}
	return "", false
}
