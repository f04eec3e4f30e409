package recommendation

import (
	"testing"

	"welfareBot/business/signal"
	"welfareBot/domain"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testOntologyYAML = `
minimalConditionSignals: [housing_stress, unemployment, low_income]
canonicalSignals:
  housing_stress: [주거불안, 월세체납]
  unemployment: [실직, 미취업]
  low_income: [저소득]
  mental_health: [우울]
`

func newTestOntology(t *testing.T) *signal.Ontology {
	t.Helper()
	o, err := signal.ParseOntology([]byte(testOntologyYAML))
	require.NoError(t, err)
	return o
}

func TestEvaluateGate(t *testing.T) {
	o := newTestOntology(t)
	minimal := o.Normalize([]string{"실직"})
	nonMinimal := o.Normalize([]string{"우울"})
	unknownOnly := o.Normalize([]string{"외계인"})

	tests := []struct {
		name         string
		in           GateInput
		wantPassed   bool
		wantReasons  []ReasonCode
		wantOverride bool
	}{
		{
			name:        "all conditions met",
			in:          GateInput{Signals: minimal, PoolAvailable: true},
			wantPassed:  true,
			wantReasons: []ReasonCode{},
		},
		{
			name:        "insufficient info",
			in:          GateInput{Signals: minimal, InsufficientInfo: true, PoolAvailable: true},
			wantReasons: []ReasonCode{ReasonInsufficientInfo},
		},
		{
			name:        "no minimal signal",
			in:          GateInput{Signals: nonMinimal, PoolAvailable: true},
			wantReasons: []ReasonCode{ReasonNoMinimalSignal},
		},
		{
			name:        "unknown only collects every reason",
			in:          GateInput{Signals: unknownOnly, InsufficientInfo: true},
			wantReasons: []ReasonCode{ReasonInsufficientInfo, ReasonNoMinimalSignal, ReasonNoPrePool, ReasonUnknownSignal},
		},
		{
			name:        "already issued",
			in:          GateInput{Signals: minimal, PoolAvailable: true, AlreadyIssued: true},
			wantReasons: []ReasonCode{ReasonAlreadyIssued},
		},
		{
			name:         "already issued with trigger",
			in:           GateInput{Signals: minimal, PoolAvailable: true, AlreadyIssued: true, OverrideTriggered: true},
			wantPassed:   true,
			wantReasons:  []ReasonCode{},
			wantOverride: true,
		},
		{
			name:        "trigger without prior issuance is not an override",
			in:          GateInput{Signals: minimal, PoolAvailable: true, OverrideTriggered: true},
			wantPassed:  true,
			wantReasons: []ReasonCode{},
		},
		{
			name:         "override does not hide other failures",
			in:           GateInput{Signals: minimal, InsufficientInfo: true, PoolAvailable: true, AlreadyIssued: true, OverrideTriggered: true},
			wantReasons:  []ReasonCode{ReasonInsufficientInfo},
			wantOverride: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := EvaluateGate(o, tt.in)

			assert.Equal(t, tt.wantPassed, got.Passed)
			assert.Equal(t, tt.wantOverride, got.Override)
			if diff := cmp.Diff(tt.wantReasons, got.Reasons); diff != "" {
				t.Errorf("reasons mismatch (-want +got):\n%s", diff)
			}
			assert.Equal(t, len(got.Reasons) == 0, got.Passed)
		})
	}
}

func TestEvaluateGate_Deterministic(t *testing.T) {
	o := newTestOntology(t)
	in := GateInput{
		Signals:          o.Normalize([]string{"외계인", "우울"}),
		InsufficientInfo: true,
		AlreadyIssued:    true,
	}

	first := EvaluateGate(o, in)
	for i := 0; i < 50; i++ {
		if diff := cmp.Diff(first, EvaluateGate(o, in)); diff != "" {
			t.Fatalf("gate result changed on run %d:\n%s", i, diff)
		}
	}
}

func TestClassifyRisk(t *testing.T) {
	o := newTestOntology(t)

	tests := []struct {
		name string
		raw  []string
		want domain.RiskLevel
	}{
		{"no signals", nil, domain.RiskNone},
		{"two critical", []string{"월세체납", "실직"}, domain.RiskHigh},
		{"same critical twice", []string{"주거불안", "월세체납"}, domain.RiskMedium},
		{"one critical", []string{"저소득", "우울"}, domain.RiskMedium},
		{"no critical", []string{"우울"}, domain.RiskLow},
		{"unknown only", []string{"외계인"}, domain.RiskLow},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ClassifyRisk(o, o.Normalize(tt.raw).Canonical)
			assert.Equal(t, tt.want, got)
		})
	}
}
