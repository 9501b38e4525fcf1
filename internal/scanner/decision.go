package scanner

import (
	"sort"

	"github.com/stackhaven/marketscan/internal/models"
)

// alwaysBlockingTypes are finding types that block publication whenever the
// overall risk is high, independent of the score.
var alwaysBlockingTypes = map[string]struct{}{
	models.FindingMalwarePattern:   {},
	models.FindingCommandInjection: {},
	models.FindingSQLInjection:     {},
	models.FindingTenantIsolation:  {},
}

// Decision is the publish verdict for one scan.
type Decision struct {
	Status         models.ScanStatus
	BlockedReasons []string
}

// Decide applies the fixed publication policy: block on critical risk, or on
// high risk combined with at least one always-blocking finding type.
// BlockedReasons lists the deduplicated causes, sorted for reproducibility.
func Decide(risk models.RiskLevel, findings []models.Finding) Decision {
	blocked := false
	if risk == models.RiskCritical {
		blocked = true
	} else if risk == models.RiskHigh {
		for _, f := range findings {
			if _, ok := alwaysBlockingTypes[f.Type]; ok {
				blocked = true
				break
			}
		}
	}

	if !blocked {
		return Decision{Status: models.ScanPassed}
	}

	reasons := map[string]struct{}{}
	if risk == models.RiskCritical {
		reasons["critical_risk_level"] = struct{}{}
	}
	for _, f := range findings {
		if f.Severity == models.SeverityCritical || f.Severity == models.SeverityHigh {
			reasons[f.Type+"_vulnerability"] = struct{}{}
		}
	}

	list := make([]string, 0, len(reasons))
	for reason := range reasons {
		list = append(list, reason)
	}
	sort.Strings(list)

	return Decision{
		Status:         models.ScanBlocked,
		BlockedReasons: list,
	}
}
