package scanner

import "github.com/stackhaven/marketscan/internal/models"

// Severity deductions applied to the 100-point baseline. These are policy
// constants shared with the marketplace review team, not tunables.
const (
	deductionCritical = 25
	deductionHigh     = 15
	deductionMedium   = 8
	deductionLow      = 3
)

// Risk escalation thresholds over the post-filter finding multiset.
const (
	highCountCritical = 2 // more than this many high findings escalates to critical
	mediumCountHigh   = 3 // more than this many medium findings escalates to high
)

// Score computes the 0-100 security score for a finding set. The score is
// monotonically non-increasing as findings accumulate.
func Score(findings []models.Finding) int {
	score := 100
	for _, f := range findings {
		switch f.Severity {
		case models.SeverityCritical:
			score -= deductionCritical
		case models.SeverityHigh:
			score -= deductionHigh
		case models.SeverityMedium:
			score -= deductionMedium
		case models.SeverityLow:
			score -= deductionLow
		}
	}
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}
	return score
}

// RiskLevelFor derives the risk level from a finding set. The checks run in
// strict precedence order: the critical conditions are evaluated before the
// high conditions, and so on.
func RiskLevelFor(findings []models.Finding) models.RiskLevel {
	var critical, high, medium, low int
	for _, f := range findings {
		switch f.Severity {
		case models.SeverityCritical:
			critical++
		case models.SeverityHigh:
			high++
		case models.SeverityMedium:
			medium++
		case models.SeverityLow:
			low++
		}
	}

	switch {
	case critical > 0 || high > highCountCritical:
		return models.RiskCritical
	case high > 0 || medium > mediumCountHigh:
		return models.RiskHigh
	case medium > 0:
		return models.RiskMedium
	default:
		return models.RiskLow
	}
}
