package scanner

import (
	"testing"

	"github.com/stackhaven/marketscan/internal/models"
	"github.com/stretchr/testify/assert"
)

func TestDecideCriticalRiskBlocks(t *testing.T) {
	findings := []models.Finding{{
		Type:     models.FindingCommandInjection,
		Severity: models.SeverityCritical,
	}}

	d := Decide(models.RiskCritical, findings)

	assert.Equal(t, models.ScanBlocked, d.Status)
	assert.Equal(t, []string{"command_injection_vulnerability", "critical_risk_level"}, d.BlockedReasons)
}

func TestDecideHighRiskBlocksOnlyForBlockingTypes(t *testing.T) {
	blocking := []models.Finding{{
		Type:     models.FindingSQLInjection,
		Severity: models.SeverityHigh,
	}}
	d := Decide(models.RiskHigh, blocking)
	assert.Equal(t, models.ScanBlocked, d.Status)
	assert.Equal(t, []string{"sql_injection_vulnerability"}, d.BlockedReasons)

	nonBlocking := []models.Finding{{
		Type:     models.FindingObfuscation,
		Severity: models.SeverityHigh,
	}}
	d = Decide(models.RiskHigh, nonBlocking)
	assert.Equal(t, models.ScanPassed, d.Status)
	assert.Empty(t, d.BlockedReasons)
}

func TestDecidePassesLowerRisk(t *testing.T) {
	findings := []models.Finding{{
		Type:     models.FindingMalwarePattern,
		Severity: models.SeverityMedium,
	}}

	for _, risk := range []models.RiskLevel{models.RiskLow, models.RiskMedium} {
		d := Decide(risk, findings)
		assert.Equal(t, models.ScanPassed, d.Status)
		assert.Empty(t, d.BlockedReasons)
	}
}

func TestDecideDeduplicatesReasons(t *testing.T) {
	findings := []models.Finding{
		{Type: models.FindingSQLInjection, Severity: models.SeverityHigh},
		{Type: models.FindingSQLInjection, Severity: models.SeverityHigh},
		{Type: models.FindingCommandInjection, Severity: models.SeverityCritical},
		{Type: models.FindingVulnerableDep, Severity: models.SeverityMedium},
	}

	d := Decide(models.RiskCritical, findings)

	assert.Equal(t, []string{
		"command_injection_vulnerability",
		"critical_risk_level",
		"sql_injection_vulnerability",
	}, d.BlockedReasons)
}

func TestDecideDeterministic(t *testing.T) {
	findings := []models.Finding{
		{Type: models.FindingTenantIsolation, Severity: models.SeverityCritical},
		{Type: models.FindingMalwarePattern, Severity: models.SeverityHigh},
	}

	first := Decide(models.RiskCritical, findings)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, Decide(models.RiskCritical, findings))
	}
}
