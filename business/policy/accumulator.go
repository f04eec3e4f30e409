package policy

import (
	"math"

	"welfareBot/domain"
)

// Accumulator enforces a hard ceiling on the total boost one candidate can
// receive. It is not safe for concurrent use; create one per candidate.
type Accumulator struct {
	cap      float64
	consumed float64
}

func NewAccumulator(limit float64) *Accumulator {
	if limit < 0 || math.IsNaN(limit) {
		limit = 0
	}
	return &Accumulator{cap: limit}
}

// Apply consumes up to amount from the remaining budget and returns what was
// actually applied.
func (a *Accumulator) Apply(amount float64) float64 {
	if amount <= 0 || math.IsNaN(amount) {
		return 0
	}
	remaining := a.cap - a.consumed
	if remaining <= 0 {
		return 0
	}
	applied := math.Min(amount, remaining)
	a.consumed += applied
	return applied
}

func (a *Accumulator) Consumed() float64 {
	return a.consumed
}

func (a *Accumulator) Remaining() float64 {
	return math.Max(a.cap-a.consumed, 0)
}

// Scored is the outcome of boosting one baseline score.
type Scored struct {
	BaseScore     float64
	FinalScore    float64
	BaseTagBoosts []domain.AppliedBoost
	SignalBoosts  []domain.AppliedBoost
	TotalBoost    float64
	Categories    []string
}

// Score applies base-tag rules and then signal rules, in caller order, to a
// baseline score under the table's boost cap. A rule fires when one of its
// categories is among the categories resolved for benefitCategory.
func (t *Table) Score(benefitCategory string, baseScore float64, baseTags, signals []string) Scored {
	resolved := t.ResolveCategories(benefitCategory)
	acc := NewAccumulator(t.boostCap)

	out := Scored{
		BaseScore:     clamp01(baseScore),
		BaseTagBoosts: []domain.AppliedBoost{},
		SignalBoosts:  []domain.AppliedBoost{},
		Categories:    resolved,
	}

	for _, tag := range baseTags {
		rule, ok := t.BaseTagRule(tag)
		if !ok || !intersects(rule.Categories, resolved) {
			continue
		}
		out.BaseTagBoosts = append(out.BaseTagBoosts, domain.AppliedBoost{
			Key:       Normalize(tag),
			Requested: rule.Boost,
			Applied:   acc.Apply(rule.Boost),
		})
	}

	for _, s := range signals {
		rule, ok := t.SignalRule(s)
		if !ok || !intersects(rule.Categories, resolved) {
			continue
		}
		out.SignalBoosts = append(out.SignalBoosts, domain.AppliedBoost{
			Key:       Normalize(s),
			Requested: rule.Boost,
			Applied:   acc.Apply(rule.Boost),
		})
	}

	out.TotalBoost = acc.Consumed()
	out.FinalScore = math.Min(out.BaseScore+out.TotalBoost, 1.0)
	return out
}

func intersects(a, b []string) bool {
	if len(a) == 0 || len(b) == 0 {
		return false
	}
	set := make(map[string]struct{}, len(b))
	for _, s := range b {
		set[s] = struct{}{}
	}
	for _, s := range a {
		if _, ok := set[s]; ok {
			return true
		}
	}
	return false
}
