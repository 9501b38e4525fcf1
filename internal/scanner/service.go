package scanner

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/stackhaven/marketscan/internal/config"
	"github.com/stackhaven/marketscan/internal/metrics"
	"github.com/stackhaven/marketscan/internal/models"
	"github.com/stackhaven/marketscan/internal/registry"
	"github.com/stackhaven/marketscan/internal/scanner/ai"
	"github.com/stackhaven/marketscan/internal/scanner/extract"
	"github.com/stackhaven/marketscan/internal/scanner/filter"
	"github.com/stackhaven/marketscan/internal/scanner/rules"
)

// ErrNilPackage indicates ScanPackage was called without a package.
var ErrNilPackage = errors.New("package is nil")

// SemanticAnalyzer is the AI analysis surface the pipeline depends on.
type SemanticAnalyzer interface {
	AnalyzeTree(ctx context.Context, root string, pkg *models.Package, sctx *models.ScanContext) ai.Result
	Narrative(ctx context.Context, pkg *models.Package, sctx *models.ScanContext, findings []models.Finding) string
}

// ResultStore persists finalized scan results.
type ResultStore interface {
	Create(ctx context.Context, result *models.ScanResult) error
}

// Service runs the full security-scan pipeline for one package at a time.
// Concurrent calls for different packages are safe; each scan owns its
// extraction directory.
type Service struct {
	extractor *extract.Extractor
	contexts  *ContextBuilder
	malware   *rules.MalwareScanner
	deps      *rules.DependencyScanner
	auditor   *rules.ConfigAuditor
	analyzer  SemanticAnalyzer
	filter    *filter.Filter
	results   ResultStore
	store     registry.Store
	logger    *logrus.Logger
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithAnalyzer enables AI semantic analysis. Without it the pipeline runs
// rule scanners only.
func WithAnalyzer(analyzer SemanticAnalyzer) ServiceOption {
	return func(s *Service) {
		s.analyzer = analyzer
	}
}

// WithResultStore sets the scan result persistence layer.
func WithResultStore(results ResultStore) ServiceOption {
	return func(s *Service) {
		s.results = results
	}
}

// WithServiceLogger sets the service logger.
func WithServiceLogger(logger *logrus.Logger) ServiceOption {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewService wires the pipeline from configuration. The registry store is
// required; the analyzer and result store are optional and degrade to
// rule-only scanning and non-persisted results respectively.
func NewService(cfg *config.Config, store registry.Store, options ...ServiceOption) *Service {
	logger := logrus.New()

	s := &Service{
		store:  store,
		logger: logger,
	}
	for _, opt := range options {
		opt(s)
	}

	s.extractor = extract.New(cfg.Scanner.WorkDir,
		extract.WithMaxFiles(cfg.Scanner.MaxArchiveFiles),
		extract.WithLogger(s.logger),
	)
	s.contexts = NewContextBuilder(store, s.logger)
	caps := cfg.Scanner.Capabilities
	if caps.MalwareScanner {
		s.malware = rules.NewMalwareScanner(
			rules.WithMaxFileSize(cfg.Scanner.MaxFileSize),
			rules.WithFileTimeout(cfg.Scanner.FileScanTimeout),
			rules.WithWorkers(cfg.Scanner.Workers),
			rules.WithMalwareLogger(s.logger),
		)
	}
	if caps.DependencyScanner {
		s.deps = rules.NewDependencyScanner(caps, s.logger)
	}
	if caps.ConfigAuditor {
		s.auditor = rules.NewConfigAuditor()
	}
	s.filter = filter.New(filter.WithLogger(s.logger))

	return s
}

// ScanPackage runs the complete pipeline and returns the finalized result.
// Extraction failure is the only fatal outcome; every later stage degrades
// with warnings. The extraction directory is removed unconditionally before
// the result is returned.
func (s *Service) ScanPackage(ctx context.Context, pkg *models.Package) (result *models.ScanResult, err error) {
	if pkg == nil {
		return nil, ErrNilPackage
	}

	started := time.Now()
	log := s.logger.WithFields(logrus.Fields{
		"package_id": pkg.ID,
		"package":    pkg.Name,
		"version":    pkg.Version,
	})
	log.Info("Starting package scan")

	s.updateStatus(ctx, pkg.ID, models.ApprovalScanning, "")

	sctx, warnings := s.contexts.Build(ctx, pkg)

	root, extractErr := s.extractor.Extract(pkg.ArchivePath)
	if extractErr != nil {
		log.WithError(extractErr).Error("Archive extraction failed")
		result = s.failedResult(pkg, fmt.Sprintf("extraction failed: %v", extractErr))
		s.finalize(ctx, pkg, result, started)
		return result, nil
	}
	defer func() {
		if r := recover(); r != nil {
			log.WithField("panic", r).Error("Scan panicked")
			result = s.failedResult(pkg, fmt.Sprintf("internal error: %v", r))
			err = nil
			s.finalize(ctx, pkg, result, started)
		}
		if rmErr := os.RemoveAll(root); rmErr != nil {
			log.WithError(rmErr).Warn("Failed to remove extraction directory")
		}
	}()

	findings, ruleWarnings := s.runRuleScanners(ctx, root, pkg, sctx)
	warnings = append(warnings, ruleWarnings...)

	var (
		aiRecommendations []string
		narrative         = ai.NarrativeUnavailable
	)
	if s.analyzer != nil {
		aiResult := s.analyzer.AnalyzeTree(ctx, root, pkg, sctx)
		findings = append(findings, aiResult.Findings...)
		aiRecommendations = aiResult.Recommendations
		warnings = append(warnings, aiResult.Warnings...)
	}

	raw := len(findings)
	findings = s.filter.Apply(findings, sctx)
	if suppressed := raw - len(findings); suppressed > 0 {
		metrics.SuppressedFindingsTotal.Add(float64(suppressed))
	}

	if s.analyzer != nil {
		narrative = s.analyzer.Narrative(ctx, pkg, sctx, findings)
	}

	risk := RiskLevelFor(findings)
	decision := Decide(risk, findings)

	recommendations := Recommend(findings, sctx)
	recommendations = mergeRecommendations(recommendations, aiRecommendations)

	result = &models.ScanResult{
		PackageID:       pkg.ID,
		Status:          decision.Status,
		RiskLevel:       risk,
		Score:           Score(findings),
		Findings:        findings,
		Recommendations: recommendations,
		BlockedReasons:  decision.BlockedReasons,
		AIAnalysis:      narrative,
		Warnings:        warnings,
		ScannedAt:       time.Now().UTC(),
	}

	s.finalize(ctx, pkg, result, started)

	log.WithFields(logrus.Fields{
		"status":     result.Status,
		"risk_level": result.RiskLevel,
		"score":      result.Score,
		"findings":   len(result.Findings),
		"duration":   time.Since(started).String(),
	}).Info("Scan complete")

	return result, nil
}

// runRuleScanners fans the enabled rule scanners out over goroutines and
// collects findings through a mutex-guarded accumulator. Scanners disabled
// by capability flags are nil and skipped. Scanner errors degrade to
// warnings.
func (s *Service) runRuleScanners(ctx context.Context, root string, pkg *models.Package, sctx *models.ScanContext) ([]models.Finding, []string) {
	var (
		mu       sync.Mutex
		findings []models.Finding
		warnings []string
		wg       sync.WaitGroup
	)
	collect := func(fs []models.Finding, ws []string) {
		mu.Lock()
		findings = append(findings, fs...)
		warnings = append(warnings, ws...)
		mu.Unlock()
	}

	if s.malware != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			fs, err := s.malware.Scan(ctx, root)
			if err != nil {
				collect(nil, []string{fmt.Sprintf("malware scan failed: %v", err)})
				return
			}
			collect(fs, nil)
		}()
	}
	if s.deps != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			fs, ws, err := s.deps.Scan(ctx, root)
			if err != nil {
				collect(nil, []string{fmt.Sprintf("dependency scan failed: %v", err)})
				return
			}
			collect(fs, ws)
		}()
	}
	if s.auditor != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			collect(s.auditor.Audit(pkg, sctx), nil)
		}()
	}
	wg.Wait()

	return findings, warnings
}

// failedResult builds the terminal result for an extraction failure.
func (s *Service) failedResult(pkg *models.Package, warning string) *models.ScanResult {
	return &models.ScanResult{
		PackageID:  pkg.ID,
		Status:     models.ScanFailed,
		RiskLevel:  models.RiskUnknown,
		Score:      0,
		AIAnalysis: ai.NarrativeUnavailable,
		Warnings:   []string{warning},
		ScannedAt:  time.Now().UTC(),
	}
}

// finalize persists the result, requests the registry status transition, and
// records metrics. Persistence and transition failures are logged, never
// propagated; the result is already final.
func (s *Service) finalize(ctx context.Context, pkg *models.Package, result *models.ScanResult, started time.Time) {
	if s.results != nil {
		if err := s.results.Create(ctx, result); err != nil {
			s.logger.WithError(err).WithField("package_id", pkg.ID).Error("Failed to persist scan result")
		}
	}

	notes := ""
	if len(result.BlockedReasons) > 0 {
		notes = "blocked: " + result.BlockedReasons[0]
	}
	s.updateStatus(ctx, pkg.ID, approvalFor(result.Status), notes)

	metrics.ScansTotal.WithLabelValues(string(result.Status)).Inc()
	for severity, count := range result.SeverityCounts() {
		metrics.FindingsTotal.WithLabelValues(string(severity)).Add(float64(count))
	}
	metrics.ScanDuration.Observe(time.Since(started).Seconds())
}

// updateStatus requests a registry transition, fire-and-forget.
func (s *Service) updateStatus(ctx context.Context, packageID string, status models.ApprovalStatus, notes string) {
	if s.store == nil {
		return
	}
	if err := s.store.UpdateApprovalStatus(ctx, packageID, status, notes); err != nil {
		s.logger.WithError(err).WithFields(logrus.Fields{
			"package_id": packageID,
			"status":     status,
		}).Warn("Failed to update approval status")
	}
}

func approvalFor(status models.ScanStatus) models.ApprovalStatus {
	switch status {
	case models.ScanPassed:
		return models.ApprovalPassed
	case models.ScanBlocked:
		return models.ApprovalBlocked
	default:
		return models.ApprovalFailed
	}
}

func mergeRecommendations(base, extra []string) []string {
	seen := make(map[string]struct{}, len(base))
	for _, rec := range base {
		seen[rec] = struct{}{}
	}
	for _, rec := range extra {
		if _, dup := seen[rec]; dup {
			continue
		}
		seen[rec] = struct{}{}
		base = append(base, rec)
	}
	return base
}
