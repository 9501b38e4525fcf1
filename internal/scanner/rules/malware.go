package rules

import (
	"context"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stackhaven/marketscan/internal/models"
	"github.com/stackhaven/marketscan/internal/scanner/walk"
)

const snippetLimit = 160

// MalwareScanner evaluates the signature table against every text-like file
// in an extracted tree. Scanning is deterministic and side-effect free; a
// single slow file cannot stall the scan because each file carries its own
// timeout and files are processed by a bounded worker pool.
type MalwareScanner struct {
	signatures     []SignatureRule
	maxFileSize    int64
	perFileTimeout time.Duration
	workers        int
	logger         *logrus.Logger
}

// MalwareOption configures a MalwareScanner
type MalwareOption func(*MalwareScanner)

// WithSignatures overrides the signature table
func WithSignatures(signatures []SignatureRule) MalwareOption {
	return func(s *MalwareScanner) {
		s.signatures = signatures
	}
}

// WithMaxFileSize sets the per-file size ceiling
func WithMaxFileSize(size int64) MalwareOption {
	return func(s *MalwareScanner) {
		s.maxFileSize = size
	}
}

// WithFileTimeout sets the per-file scan timeout
func WithFileTimeout(d time.Duration) MalwareOption {
	return func(s *MalwareScanner) {
		if d > 0 {
			s.perFileTimeout = d
		}
	}
}

// WithWorkers sets the worker pool size
func WithWorkers(n int) MalwareOption {
	return func(s *MalwareScanner) {
		if n > 0 {
			s.workers = n
		}
	}
}

// WithMalwareLogger sets the logger
func WithMalwareLogger(logger *logrus.Logger) MalwareOption {
	return func(s *MalwareScanner) {
		s.logger = logger
	}
}

// NewMalwareScanner creates a malware scanner with the default signature table
func NewMalwareScanner(options ...MalwareOption) *MalwareScanner {
	s := &MalwareScanner{
		signatures:     DefaultSignatures,
		maxFileSize:    2 * 1024 * 1024,
		perFileTimeout: 10 * time.Second,
		workers:        8,
		logger:         logrus.New(),
	}
	for _, option := range options {
		option(s)
	}
	return s
}

// Scan walks the extracted tree and returns one finding per signature match
// per file. Binary and oversized files are skipped, not flagged. A file that
// exceeds its scan timeout contributes no findings and is not a failure.
func (s *MalwareScanner) Scan(ctx context.Context, root string) ([]models.Finding, error) {
	files := make(chan walk.File)
	var (
		mu       sync.Mutex
		findings []models.Finding
	)

	var wg sync.WaitGroup
	for i := 0; i < s.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for f := range files {
				found := s.scanFile(ctx, f)
				if len(found) == 0 {
					continue
				}
				mu.Lock()
				findings = append(findings, found...)
				mu.Unlock()
			}
		}()
	}

	err := walk.Files(root, walk.Options{MaxFileSize: s.maxFileSize}, func(f walk.File) error {
		select {
		case files <- f:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	})
	close(files)
	wg.Wait()

	if err != nil && ctx.Err() == nil {
		return findings, err
	}
	return findings, nil
}

// scanFile matches every signature against one file under the per-file
// timeout. Timeout means no findings for this file, never an error.
func (s *MalwareScanner) scanFile(ctx context.Context, f walk.File) []models.Finding {
	fileCtx, cancel := context.WithTimeout(ctx, s.perFileTimeout)
	defer cancel()

	done := make(chan []models.Finding, 1)
	go func() {
		done <- s.matchFile(f)
	}()

	select {
	case found := <-done:
		return found
	case <-fileCtx.Done():
		s.logger.WithField("file", f.Rel).Warn("Pattern scan timed out for file, skipping")
		return nil
	}
}

func (s *MalwareScanner) matchFile(f walk.File) []models.Finding {
	content, err := os.ReadFile(f.Path)
	if err != nil {
		s.logger.WithError(err).WithField("file", f.Rel).Debug("Cannot read file, skipping")
		return nil
	}
	if walk.IsBinary(content) {
		return nil
	}

	text := string(content)
	var findings []models.Finding
	for _, rule := range s.signatures {
		loc := rule.Pattern.FindStringIndex(text)
		if loc == nil {
			continue
		}

		snippet := text[loc[0]:loc[1]]
		if len(snippet) > snippetLimit {
			snippet = snippet[:snippetLimit]
		}

		findings = append(findings, models.Finding{
			Type:        rule.Type,
			Severity:    rule.Severity,
			Description: rule.Description,
			File:        f.Rel,
			Line:        lineOf(text, loc[0]),
			Snippet:     strings.TrimSpace(snippet),
			Origin:      models.OriginRule,
		})
	}
	return findings
}

// lineOf returns the 1-based line number of the byte offset
func lineOf(text string, offset int) int {
	return strings.Count(text[:offset], "\n") + 1
}
