package recommendation

import (
	"welfareBot/business/signal"
)

type ReasonCode string

const (
	ReasonInsufficientInfo ReasonCode = "INSUFFICIENT_INFO"
	ReasonNoMinimalSignal  ReasonCode = "NO_MINIMAL_SIGNAL"
	ReasonNoPrePool        ReasonCode = "NO_PREPOOL"
	ReasonUnknownSignal    ReasonCode = "UNKNOWN_SIGNAL"
	ReasonAlreadyIssued    ReasonCode = "ALREADY_ISSUED"
)

// MinimalChecker is the part of the signal ontology the gate depends on.
type MinimalChecker interface {
	ContainsMinimalConditionSignal(signals []signal.Canonical) bool
}

type GateInput struct {
	Signals           signal.NormalizationResult
	InsufficientInfo  bool
	PoolAvailable     bool
	AlreadyIssued     bool
	OverrideTriggered bool
}

type GateResult struct {
	Passed  bool         `json:"passed"`
	Reasons []ReasonCode `json:"reasons"`
	// Override is set when a previous issuance was bypassed by a
	// re-recommend trigger phrase.
	Override bool `json:"override"`
}

// EvaluateGate collects every minimal-condition failure that applies. The
// gate passes only when none does.
func EvaluateGate(mc MinimalChecker, in GateInput) GateResult {
	reasons := []ReasonCode{}

	if in.InsufficientInfo {
		reasons = append(reasons, ReasonInsufficientInfo)
	}
	if !mc.ContainsMinimalConditionSignal(in.Signals.Canonical) {
		reasons = append(reasons, ReasonNoMinimalSignal)
	}
	if !in.PoolAvailable {
		reasons = append(reasons, ReasonNoPrePool)
	}
	if in.Signals.HasUnknownOnly() {
		reasons = append(reasons, ReasonUnknownSignal)
	}

	override := in.AlreadyIssued && in.OverrideTriggered
	if in.AlreadyIssued && !override {
		reasons = append(reasons, ReasonAlreadyIssued)
	}

	return GateResult{
		Passed:   len(reasons) == 0,
		Reasons:  reasons,
		Override: override,
	}
}

func (r GateResult) ReasonStrings() []string {
	out := make([]string, 0, len(r.Reasons))
	for _, c := range r.Reasons {
		out = append(out, string(c))
	}
	return out
}
