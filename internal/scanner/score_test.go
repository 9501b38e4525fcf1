package scanner

import (
	"testing"

	"github.com/stackhaven/marketscan/internal/models"
	"github.com/stretchr/testify/assert"
)

func findingsOf(severities ...models.Severity) []models.Finding {
	findings := make([]models.Finding, 0, len(severities))
	for _, s := range severities {
		findings = append(findings, models.Finding{
			Type:     models.FindingMalwarePattern,
			Severity: s,
			Origin:   models.OriginRule,
		})
	}
	return findings
}

func TestScore(t *testing.T) {
	tests := []struct {
		name       string
		severities []models.Severity
		want       int
	}{
		{"no findings", nil, 100},
		{"one low", []models.Severity{models.SeverityLow}, 97},
		{"one medium", []models.Severity{models.SeverityMedium}, 92},
		{"one high", []models.Severity{models.SeverityHigh}, 85},
		{"one critical", []models.Severity{models.SeverityCritical}, 75},
		{"mixed", []models.Severity{models.SeverityCritical, models.SeverityHigh, models.SeverityMedium, models.SeverityLow}, 49},
		{"floor at zero", []models.Severity{
			models.SeverityCritical, models.SeverityCritical, models.SeverityCritical,
			models.SeverityCritical, models.SeverityCritical,
		}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Score(findingsOf(tt.severities...)))
		})
	}
}

func TestScoreMonotone(t *testing.T) {
	severities := []models.Severity{
		models.SeverityLow, models.SeverityMedium, models.SeverityHigh,
		models.SeverityCritical, models.SeverityHigh, models.SeverityMedium,
	}
	prev := Score(nil)
	for i := 1; i <= len(severities); i++ {
		score := Score(findingsOf(severities[:i]...))
		assert.LessOrEqual(t, score, prev, "score must not increase as findings accumulate")
		prev = score
	}
}

func TestRiskLevelFor(t *testing.T) {
	tests := []struct {
		name       string
		severities []models.Severity
		want       models.RiskLevel
	}{
		{"empty", nil, models.RiskLow},
		{"only low", []models.Severity{models.SeverityLow, models.SeverityLow}, models.RiskLow},
		{"one medium", []models.Severity{models.SeverityMedium}, models.RiskMedium},
		{"three medium stays high threshold", []models.Severity{
			models.SeverityMedium, models.SeverityMedium, models.SeverityMedium,
		}, models.RiskMedium},
		{"four medium escalates to high", []models.Severity{
			models.SeverityMedium, models.SeverityMedium, models.SeverityMedium, models.SeverityMedium,
		}, models.RiskHigh},
		{"one high", []models.Severity{models.SeverityHigh}, models.RiskHigh},
		{"two high stays high", []models.Severity{
			models.SeverityHigh, models.SeverityHigh,
		}, models.RiskHigh},
		{"three high escalates to critical", []models.Severity{
			models.SeverityHigh, models.SeverityHigh, models.SeverityHigh,
		}, models.RiskCritical},
		{"one critical", []models.Severity{models.SeverityCritical}, models.RiskCritical},
		{"critical precedes medium count", []models.Severity{
			models.SeverityCritical, models.SeverityLow,
		}, models.RiskCritical},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, RiskLevelFor(findingsOf(tt.severities...)))
		})
	}
}

// A single critical shell-invocation finding scores 75 and rates critical.
func TestShellInvocationScenario(t *testing.T) {
	findings := []models.Finding{{
		Type:     models.FindingCommandInjection,
		Severity: models.SeverityCritical,
		Origin:   models.OriginRule,
	}}

	assert.Equal(t, 75, Score(findings))
	assert.Equal(t, models.RiskCritical, RiskLevelFor(findings))
}
