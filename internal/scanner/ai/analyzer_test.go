package ai

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stackhaven/marketscan/internal/metrics"
	"github.com/stackhaven/marketscan/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubCompleter returns canned responses keyed by a substring of the prompt
type stubCompleter struct {
	mu        sync.Mutex
	responses map[string]string
	fallback  string
	err       error
	calls     int
}

func (s *stubCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()

	if s.err != nil {
		return "", s.err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	for key, response := range s.responses {
		if strings.Contains(prompt, key) {
			return response, nil
		}
	}
	return s.fallback, nil
}

func (s *stubCompleter) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func testPackage() *models.Package {
	return &models.Package{ID: "pkg-1", Name: "demo-crm", Type: models.PackageTypeModule}
}

func testContext() *models.ScanContext {
	return &models.ScanContext{
		TeamTier:  "pro",
		Isolation: models.DefaultIsolationArchitecture,
	}
}

func writeSource(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for name, content := range files {
		path := filepath.Join(root, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	}
	return root
}

func TestAnalyzeTreeParsesFindings(t *testing.T) {
	root := writeSource(t, map[string]string{
		"src/db.php": "<?php $rows = query('SELECT * FROM users');",
	})

	stub := &stubCompleter{
		fallback: `Here is my assessment:
{"vulnerabilities": [{"type": "sql_injection", "severity": "high", "description": "unparameterized query", "line": 1, "snippet": "SELECT * FROM users"}], "recommendations": ["use parameterized queries"]}`,
	}

	a := NewAnalyzer(stub, WithRateLimit(1000, 1000))
	result := a.AnalyzeTree(context.Background(), root, testPackage(), testContext())

	require.Len(t, result.Findings, 1)
	f := result.Findings[0]
	assert.Equal(t, "sql_injection", f.Type)
	assert.Equal(t, models.SeverityHigh, f.Severity)
	assert.Equal(t, models.OriginAI, f.Origin)
	assert.Equal(t, "src/db.php", f.File)
	assert.Equal(t, []string{"use parameterized queries"}, result.Recommendations)
	assert.Empty(t, result.Warnings)
}

func TestAnalyzeTreeDiscardsInvalidFindings(t *testing.T) {
	root := writeSource(t, map[string]string{
		"src/a.js": "const x = 1;",
	})

	// Second vulnerability has an invalid severity and must be discarded
	stub := &stubCompleter{
		fallback: `{"vulnerabilities": [
			{"type": "xss", "severity": "medium", "description": "reflected input"},
			{"type": "xss", "severity": "catastrophic", "description": "bad severity"},
			{"severity": "high", "description": "missing type"}
		], "recommendations": []}`,
	}

	a := NewAnalyzer(stub, WithRateLimit(1000, 1000))
	result := a.AnalyzeTree(context.Background(), root, testPackage(), testContext())

	require.Len(t, result.Findings, 1)
	assert.Equal(t, "xss", result.Findings[0].Type)
	assert.Equal(t, models.SeverityMedium, result.Findings[0].Severity)
}

func TestAnalyzeTreeUnparseableResponse(t *testing.T) {
	root := writeSource(t, map[string]string{
		"src/a.php": "<?php echo 1;",
	})

	stub := &stubCompleter{fallback: "I could not produce structured output, sorry."}

	a := NewAnalyzer(stub, WithRateLimit(1000, 1000))
	result := a.AnalyzeTree(context.Background(), root, testPackage(), testContext())

	assert.Empty(t, result.Findings)
	require.Len(t, result.Recommendations, 1)
	assert.Contains(t, result.Recommendations[0], "manual review")
}

func TestAnalyzeTreeTransportErrorDegrades(t *testing.T) {
	root := writeSource(t, map[string]string{
		"src/a.php": "<?php echo 1;",
		"src/b.php": "<?php echo 2;",
	})

	stub := &stubCompleter{err: errors.New("connection refused")}

	a := NewAnalyzer(stub, WithRateLimit(1000, 1000))
	result := a.AnalyzeTree(context.Background(), root, testPackage(), testContext())

	assert.Empty(t, result.Findings)
	assert.Len(t, result.Warnings, 2)
}

func TestAnalyzeTreeHonorsMaxFiles(t *testing.T) {
	files := map[string]string{}
	for _, name := range []string{"a", "b", "c", "d", "e"} {
		files["src/"+name+".php"] = "<?php echo 1;"
	}
	root := writeSource(t, files)

	stub := &stubCompleter{fallback: `{"vulnerabilities": [], "recommendations": []}`}

	a := NewAnalyzer(stub, WithMaxFiles(2), WithRateLimit(1000, 1000))
	a.AnalyzeTree(context.Background(), root, testPackage(), testContext())

	assert.Equal(t, 2, stub.callCount())
}

func TestAnalyzeTreeSkipsNonSourceFiles(t *testing.T) {
	root := writeSource(t, map[string]string{
		"readme.txt":  "docs only",
		"style.css":   "body {}",
		"src/app.php": "<?php echo 1;",
	})

	stub := &stubCompleter{fallback: `{"vulnerabilities": [], "recommendations": []}`}

	a := NewAnalyzer(stub, WithRateLimit(1000, 1000))
	a.AnalyzeTree(context.Background(), root, testPackage(), testContext())

	assert.Equal(t, 1, stub.callCount())
}

func TestNarrative(t *testing.T) {
	stub := &stubCompleter{fallback: "The package looks routine with two low-risk issues."}
	a := NewAnalyzer(stub, WithRateLimit(1000, 1000))

	narrative := a.Narrative(context.Background(), testPackage(), testContext(), nil)
	assert.Equal(t, "The package looks routine with two low-risk issues.", narrative)
}

func TestNarrativeFallsBackOnError(t *testing.T) {
	stub := &stubCompleter{err: errors.New("timeout")}
	a := NewAnalyzer(stub, WithRateLimit(1000, 1000))

	narrative := a.Narrative(context.Background(), testPackage(), testContext(), nil)
	assert.Equal(t, NarrativeUnavailable, narrative)
}

func TestNarrativeFallsBackOnEmpty(t *testing.T) {
	stub := &stubCompleter{fallback: "   "}
	a := NewAnalyzer(stub, WithRateLimit(1000, 1000))

	narrative := a.Narrative(context.Background(), testPackage(), testContext(), nil)
	assert.Equal(t, NarrativeUnavailable, narrative)
}

func TestCompleteTimeout(t *testing.T) {
	slow := &slowCompleter{delay: 200 * time.Millisecond}
	a := NewAnalyzer(slow, WithCallTimeout(10*time.Millisecond), WithRateLimit(1000, 1000))

	narrative := a.Narrative(context.Background(), testPackage(), testContext(), nil)
	assert.Equal(t, NarrativeUnavailable, narrative)
}

func TestCompleteCountsCallOutcomes(t *testing.T) {
	success := testutil.ToFloat64(metrics.AICallsTotal.WithLabelValues("success"))
	failed := testutil.ToFloat64(metrics.AICallsTotal.WithLabelValues("error"))
	timedOut := testutil.ToFloat64(metrics.AICallsTotal.WithLabelValues("timeout"))

	ok := NewAnalyzer(&stubCompleter{fallback: "fine"}, WithRateLimit(1000, 1000))
	ok.Narrative(context.Background(), testPackage(), testContext(), nil)
	assert.Equal(t, success+1, testutil.ToFloat64(metrics.AICallsTotal.WithLabelValues("success")))

	broken := NewAnalyzer(&stubCompleter{err: errors.New("connection refused")}, WithRateLimit(1000, 1000))
	broken.Narrative(context.Background(), testPackage(), testContext(), nil)
	assert.Equal(t, failed+1, testutil.ToFloat64(metrics.AICallsTotal.WithLabelValues("error")))

	slow := NewAnalyzer(&slowCompleter{delay: 200 * time.Millisecond},
		WithCallTimeout(10*time.Millisecond), WithRateLimit(1000, 1000))
	slow.Narrative(context.Background(), testPackage(), testContext(), nil)
	assert.Equal(t, timedOut+1, testutil.ToFloat64(metrics.AICallsTotal.WithLabelValues("timeout")))
}

type slowCompleter struct {
	delay time.Duration
}

func (s *slowCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	select {
	case <-time.After(s.delay):
		return "too late", nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
		ok   bool
	}{
		{
			name: "bare object",
			text: `{"a": 1}`,
			want: `{"a": 1}`,
			ok:   true,
		},
		{
			name: "object with prose around it",
			text: "Sure! Here you go:\n{\"a\": [1, 2]}\nLet me know.",
			want: `{"a": [1, 2]}`,
			ok:   true,
		},
		{
			name: "braces inside strings",
			text: `{"msg": "use {tenant_id} placeholder"}`,
			want: `{"msg": "use {tenant_id} placeholder"}`,
			ok:   true,
		},
		{
			name: "no json",
			text: "plain prose only",
			ok:   false,
		},
		{
			name: "unbalanced",
			text: `{"a": [1, 2`,
			ok:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw, ok := extractJSON(tt.text)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, string(raw))
			}
		})
	}
}
