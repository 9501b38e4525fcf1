package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stackhaven/marketscan/internal/metrics"
	"github.com/stackhaven/marketscan/internal/models"
	"github.com/stackhaven/marketscan/internal/scanner/walk"
	"golang.org/x/time/rate"
)

// NarrativeUnavailable is stored as the package narrative whenever the
// package-level AI call fails; AI degradation never fails a scan.
const NarrativeUnavailable = "AI analysis unavailable for this scan; the assessment reflects rule-based findings only. Manual review recommended."

// manualReviewNote is contributed by files whose AI response held no
// parseable JSON
const manualReviewNote = "AI response could not be parsed for one or more files; manual review suggested"

// aiResponse is the structured reply requested from the model
type aiResponse struct {
	Vulnerabilities []json.RawMessage `json:"vulnerabilities"`
	Recommendations []string          `json:"recommendations"`
}

// aiVulnerability mirrors the finding schema
type aiVulnerability struct {
	Type         string `json:"type"`
	Severity     string `json:"severity"`
	Description  string `json:"description"`
	File         string `json:"file"`
	Line         int    `json:"line"`
	Snippet      string `json:"snippet"`
	TenantImpact string `json:"tenant_impact"`
}

// Result is the combined outcome of the per-file AI analysis
type Result struct {
	Findings        []models.Finding
	Recommendations []string
	Warnings        []string
}

// Analyzer sends bounded sets of source files to the text-completion service
// and turns validated structured responses into findings. Every failure mode
// degrades to a warning; the analyzer never propagates an error into the
// pipeline.
type Analyzer struct {
	client      TextCompleter
	limiter     *rate.Limiter
	workers     int
	maxFiles    int
	maxBytes    int
	callTimeout time.Duration
	logger      *logrus.Logger
}

// AnalyzerOption configures an Analyzer
type AnalyzerOption func(*Analyzer)

// WithWorkers sets the worker pool size for per-file calls
func WithWorkers(n int) AnalyzerOption {
	return func(a *Analyzer) {
		if n > 0 {
			a.workers = n
		}
	}
}

// WithMaxFiles caps how many source files are analyzed per scan
func WithMaxFiles(n int) AnalyzerOption {
	return func(a *Analyzer) {
		a.maxFiles = n
	}
}

// WithMaxBytes caps how much of each file is embedded in the prompt
func WithMaxBytes(n int) AnalyzerOption {
	return func(a *Analyzer) {
		a.maxBytes = n
	}
}

// WithCallTimeout sets the timeout carried by each completion call
func WithCallTimeout(d time.Duration) AnalyzerOption {
	return func(a *Analyzer) {
		a.callTimeout = d
	}
}

// WithRateLimit throttles completion calls
func WithRateLimit(perSec float64, burst int) AnalyzerOption {
	return func(a *Analyzer) {
		a.limiter = rate.NewLimiter(rate.Limit(perSec), burst)
	}
}

// WithLogger sets the logger
func WithLogger(logger *logrus.Logger) AnalyzerOption {
	return func(a *Analyzer) {
		a.logger = logger
	}
}

// NewAnalyzer creates an analyzer over the given completion client
func NewAnalyzer(client TextCompleter, options ...AnalyzerOption) *Analyzer {
	a := &Analyzer{
		client:      client,
		limiter:     rate.NewLimiter(rate.Limit(2), 4),
		workers:     3,
		maxFiles:    20,
		maxBytes:    16384,
		callTimeout: 45 * time.Second,
		logger:      logrus.New(),
	}
	for _, option := range options {
		option(a)
	}
	return a
}

// AnalyzeTree runs the per-file analysis over a bounded set of source files
// in the extracted tree. Files are processed by a bounded worker pool; a
// timed-out or unparseable file contributes a warning and no findings.
func (a *Analyzer) AnalyzeTree(ctx context.Context, root string, pkg *models.Package, sctx *models.ScanContext) Result {
	var targets []walk.File
	err := walk.Files(root, walk.Options{SourceOnly: true, MaxFileSize: int64(a.maxBytes) * 8}, func(f walk.File) error {
		if len(targets) >= a.maxFiles {
			return nil
		}
		targets = append(targets, f)
		return nil
	})

	result := Result{}
	if err != nil {
		result.Warnings = append(result.Warnings, fmt.Sprintf("AI analysis skipped: cannot enumerate source files: %v", err))
		return result
	}
	if len(targets) == 0 {
		return result
	}

	var (
		mu          sync.Mutex
		parseFailed bool
	)

	files := make(chan walk.File)
	var wg sync.WaitGroup
	for i := 0; i < a.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for f := range files {
				findings, recs, warning, badParse := a.analyzeFile(ctx, f, pkg, sctx)
				mu.Lock()
				result.Findings = append(result.Findings, findings...)
				result.Recommendations = append(result.Recommendations, recs...)
				if warning != "" {
					result.Warnings = append(result.Warnings, warning)
				}
				if badParse {
					parseFailed = true
				}
				mu.Unlock()
			}
		}()
	}

	for _, f := range targets {
		select {
		case files <- f:
		case <-ctx.Done():
		}
	}
	close(files)
	wg.Wait()

	if parseFailed {
		result.Recommendations = append(result.Recommendations, manualReviewNote)
	}
	return result
}

// analyzeFile sends one file to the completion service. Returns findings,
// recommendations, an optional warning, and whether the response held no
// parseable JSON.
func (a *Analyzer) analyzeFile(ctx context.Context, f walk.File, pkg *models.Package, sctx *models.ScanContext) ([]models.Finding, []string, string, bool) {
	content, err := os.ReadFile(f.Path)
	if err != nil {
		return nil, nil, fmt.Sprintf("AI analysis skipped %s: %v", f.Rel, err), false
	}
	if walk.IsBinary(content) {
		return nil, nil, "", false
	}
	if len(content) > a.maxBytes {
		content = content[:a.maxBytes]
	}

	text, err := a.complete(ctx, buildFilePrompt(f.Rel, string(content), pkg, sctx))
	if err != nil {
		a.logger.WithError(err).WithField("file", f.Rel).Warn("AI call failed for file")
		return nil, nil, fmt.Sprintf("AI analysis failed for %s: %v", f.Rel, err), false
	}

	raw, ok := extractJSON(text)
	if !ok {
		a.logger.WithField("file", f.Rel).Warn("AI response held no parseable JSON")
		return nil, nil, "", true
	}

	var response aiResponse
	if err := json.Unmarshal(raw, &response); err != nil {
		return nil, nil, "", true
	}

	var findings []models.Finding
	for _, entry := range response.Vulnerabilities {
		if err := validateFinding(entry); err != nil {
			a.logger.WithError(err).WithField("file", f.Rel).Debug("Discarding AI finding that failed schema validation")
			continue
		}
		var vuln aiVulnerability
		if err := json.Unmarshal(entry, &vuln); err != nil {
			continue
		}
		file := vuln.File
		if file == "" {
			file = f.Rel
		}
		findings = append(findings, models.Finding{
			Type:         vuln.Type,
			Severity:     models.Severity(vuln.Severity),
			Description:  vuln.Description,
			File:         file,
			Line:         vuln.Line,
			Snippet:      vuln.Snippet,
			Origin:       models.OriginAI,
			TenantImpact: vuln.TenantImpact,
		})
	}

	return findings, response.Recommendations, "", false
}

// Narrative produces the package-level free-text summary. Any failure
// degrades to the fixed placeholder.
func (a *Analyzer) Narrative(ctx context.Context, pkg *models.Package, sctx *models.ScanContext, findings []models.Finding) string {
	text, err := a.complete(ctx, buildNarrativePrompt(pkg, sctx, findings))
	if err != nil {
		a.logger.WithError(err).Warn("Package-level AI narrative failed")
		return NarrativeUnavailable
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return NarrativeUnavailable
	}
	return text
}

// complete wraps one completion call with the rate limiter, call timeout,
// and outcome counting
func (a *Analyzer) complete(ctx context.Context, prompt string) (string, error) {
	if err := a.limiter.Wait(ctx); err != nil {
		metrics.AICallsTotal.WithLabelValues("error").Inc()
		return "", err
	}
	callCtx, cancel := context.WithTimeout(ctx, a.callTimeout)
	defer cancel()
	text, err := a.client.Complete(callCtx, prompt)
	switch {
	case err == nil:
		metrics.AICallsTotal.WithLabelValues("success").Inc()
	case errors.Is(err, context.DeadlineExceeded):
		metrics.AICallsTotal.WithLabelValues("timeout").Inc()
	default:
		metrics.AICallsTotal.WithLabelValues("error").Inc()
	}
	return text, err
}
