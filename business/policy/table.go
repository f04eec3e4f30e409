package policy

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"unicode"

	"welfareBot/pkg/logger"

	"gopkg.in/yaml.v3"
)

const (
	defaultBoostCap         = 0.2
	defaultPoolSize         = 15
	defaultPoolBaseScore    = 0.5
	defaultPoolTagIncrement = 0.20
	defaultTopN             = 3
	defaultFallbackScore    = 0.5
)

type BoostRule struct {
	Categories []string `yaml:"categories" json:"categories"`
	Boost      float64  `yaml:"boost" json:"boost"`
}

// EngineSettings carries the numeric knobs of pool building and ranking.
type EngineSettings struct {
	PoolSize         int     `yaml:"poolSize" json:"poolSize"`
	PoolBaseScore    float64 `yaml:"poolBaseScore" json:"poolBaseScore"`
	PoolTagIncrement float64 `yaml:"poolTagIncrement" json:"poolTagIncrement"`
	TopN             int     `yaml:"topN" json:"topN"`
	FallbackScore    float64 `yaml:"fallbackScore" json:"fallbackScore"`
}

func DefaultEngineSettings() EngineSettings {
	return EngineSettings{
		PoolSize:         defaultPoolSize,
		PoolBaseScore:    defaultPoolBaseScore,
		PoolTagIncrement: defaultPoolTagIncrement,
		TopN:             defaultTopN,
		FallbackScore:    defaultFallbackScore,
	}
}

type policyDocument struct {
	BaseTagBoost        map[string]*BoostRule `yaml:"baseTagBoost"`
	SignalBoost         map[string]*BoostRule `yaml:"signalBoost"`
	CategoryKeywords    map[string][]string   `yaml:"categoryKeywords"`
	ReRecommendTriggers []string              `yaml:"reRecommendTriggers"`
	BoostCap            *float64              `yaml:"boostCap"`
	Engine              *engineDocument       `yaml:"engine"`
}

type engineDocument struct {
	PoolSize         *int     `yaml:"poolSize"`
	PoolBaseScore    *float64 `yaml:"poolBaseScore"`
	PoolTagIncrement *float64 `yaml:"poolTagIncrement"`
	TopN             *int     `yaml:"topN"`
	FallbackScore    *float64 `yaml:"fallbackScore"`
}

// Table is the normalized, read-only view of the recommendation policy.
// Every key is trimmed and lower-cased at load time and no map or list is nil.
type Table struct {
	baseTagBoost        map[string]BoostRule
	signalBoost         map[string]BoostRule
	categoryKeywords    map[string][]string
	reRecommendTriggers []string
	boostCap            float64
	engine              EngineSettings
}

func LoadTable(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read recommendation policy %s: %w", path, err)
	}
	return ParseTable(data)
}

func ParseTable(data []byte) (*Table, error) {
	var doc policyDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse recommendation policy: %w", err)
	}

	t := &Table{
		baseTagBoost:        normalizeRules(doc.BaseTagBoost),
		signalBoost:         normalizeRules(doc.SignalBoost),
		categoryKeywords:    make(map[string][]string, len(doc.CategoryKeywords)),
		reRecommendTriggers: normalizeList(doc.ReRecommendTriggers),
		boostCap:            defaultBoostCap,
		engine:              normalizeEngine(doc.Engine),
	}

	if doc.BoostCap != nil {
		if *doc.BoostCap < 0 {
			return nil, fmt.Errorf("parse recommendation policy: boostCap must not be negative, got %v", *doc.BoostCap)
		}
		t.boostCap = *doc.BoostCap
	}

	for category, keywords := range doc.CategoryKeywords {
		key := Normalize(category)
		if key == "" {
			continue
		}
		if _, exists := t.categoryKeywords[key]; exists {
			continue
		}
		t.categoryKeywords[key] = normalizeList(keywords)
	}

	logger.Info("recommendation policy loaded",
		"base_tag_rules", len(t.baseTagBoost),
		"signal_rules", len(t.signalBoost),
		"categories", len(t.categoryKeywords),
		"boost_cap", t.boostCap,
	)

	return t, nil
}

func (t *Table) BoostCap() float64 {
	return t.boostCap
}

func (t *Table) Engine() EngineSettings {
	return t.engine
}

func (t *Table) BaseTagRule(tag string) (BoostRule, bool) {
	r, ok := t.baseTagBoost[Normalize(tag)]
	return r, ok
}

func (t *Table) SignalRule(signal string) (BoostRule, bool) {
	r, ok := t.signalBoost[Normalize(signal)]
	return r, ok
}

func (t *Table) BaseTagRules() map[string]BoostRule {
	return copyRules(t.baseTagBoost)
}

func (t *Table) SignalRules() map[string]BoostRule {
	return copyRules(t.signalBoost)
}

func (t *Table) CategoryKeywords() map[string][]string {
	out := make(map[string][]string, len(t.categoryKeywords))
	for k, v := range t.categoryKeywords {
		out[k] = append([]string(nil), v...)
	}
	return out
}

func (t *Table) ReRecommendTriggers() []string {
	return append([]string(nil), t.reRecommendTriggers...)
}

// ResolveCategories returns, sorted, every canonical category whose keyword
// list has a member contained in the benefit category. Matching ignores case
// and whitespace.
func (t *Table) ResolveCategories(benefitCategory string) []string {
	category := compact(Normalize(benefitCategory))
	if category == "" {
		return []string{}
	}

	out := []string{}
	for canonical, keywords := range t.categoryKeywords {
		for _, kw := range keywords {
			k := compact(kw)
			if k != "" && strings.Contains(category, k) {
				out = append(out, canonical)
				break
			}
		}
	}
	sort.Strings(out)
	return out
}

// MatchesTrigger reports whether the message asks for a fresh recommendation.
func (t *Table) MatchesTrigger(message string) bool {
	msg := compact(strings.ToLower(message))
	if msg == "" {
		return false
	}
	for _, trigger := range t.reRecommendTriggers {
		tr := compact(trigger)
		if tr != "" && strings.Contains(msg, tr) {
			return true
		}
	}
	return false
}

// Normalize is the key normalization used for every policy lookup.
func Normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func compact(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}

func normalizeRules(src map[string]*BoostRule) map[string]BoostRule {
	out := make(map[string]BoostRule, len(src))
	for key, rule := range src {
		k := Normalize(key)
		if k == "" || rule == nil {
			continue
		}
		boost := rule.Boost
		if boost < 0 {
			boost = 0
		}
		out[k] = BoostRule{
			Categories: normalizeList(rule.Categories),
			Boost:      boost,
		}
	}
	return out
}

func normalizeList(src []string) []string {
	out := make([]string, 0, len(src))
	for _, s := range src {
		if n := Normalize(s); n != "" {
			out = append(out, n)
		}
	}
	return out
}

func normalizeEngine(doc *engineDocument) EngineSettings {
	e := DefaultEngineSettings()
	if doc == nil {
		return e
	}
	if doc.PoolSize != nil && *doc.PoolSize > 0 {
		e.PoolSize = *doc.PoolSize
	}
	if doc.PoolBaseScore != nil {
		e.PoolBaseScore = clamp01(*doc.PoolBaseScore)
	}
	if doc.PoolTagIncrement != nil && *doc.PoolTagIncrement >= 0 {
		e.PoolTagIncrement = *doc.PoolTagIncrement
	}
	if doc.TopN != nil && *doc.TopN > 0 {
		e.TopN = *doc.TopN
	}
	if doc.FallbackScore != nil {
		e.FallbackScore = clamp01(*doc.FallbackScore)
	}
	return e
}

func copyRules(src map[string]BoostRule) map[string]BoostRule {
	out := make(map[string]BoostRule, len(src))
	for k, v := range src {
		out[k] = BoostRule{Categories: append([]string(nil), v.Categories...), Boost: v.Boost}
	}
	return out
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// AppliesTo reports whether the rule targets any of the resolved categories.
func (r BoostRule) AppliesTo(categories []string) bool {
	return intersects(r.Categories, categories)
}
