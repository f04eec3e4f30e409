package recommendation

import (
	"welfareBot/business/signal"
	"welfareBot/domain"
)

type CriticalCounter interface {
	CriticalCount(signals []signal.Canonical) int
}

// ClassifyRisk grades canonical signals by how many distinct critical
// signals they contain. It does not look at the gate outcome.
func ClassifyRisk(cc CriticalCounter, signals []signal.Canonical) domain.RiskLevel {
	if len(signals) == 0 {
		return domain.RiskNone
	}

	switch n := cc.CriticalCount(signals); {
	case n >= 2:
		return domain.RiskHigh
	case n == 1:
		return domain.RiskMedium
	default:
		return domain.RiskLow
	}
}
