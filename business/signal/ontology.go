package signal

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"welfareBot/pkg/logger"

	"gopkg.in/yaml.v3"
)

// Fallback is added once whenever a raw signal resolves to no canonical entry.
const Fallback Canonical = "기타위험"

// Canonical is a signal from the closed, configured vocabulary. Only
// Ontology.Normalize produces values of this type from raw input.
type Canonical string

type NormalizationResult struct {
	Canonical []Canonical `json:"canonicalSignals"`
	Unknown   []string    `json:"unknownSignals"`
}

// HasUnknownOnly is true when unknown signals were seen and nothing but the
// fallback survived normalization.
func (r NormalizationResult) HasUnknownOnly() bool {
	if len(r.Unknown) == 0 {
		return false
	}
	for _, c := range r.Canonical {
		if c != Fallback {
			return false
		}
	}
	return true
}

// Strings returns the canonical signals as plain strings.
func (r NormalizationResult) Strings() []string {
	out := make([]string, 0, len(r.Canonical))
	for _, c := range r.Canonical {
		out = append(out, string(c))
	}
	return out
}

type ontologyDocument struct {
	MinimalConditionSignals []string            `yaml:"minimalConditionSignals"`
	CriticalSignals         []string            `yaml:"criticalSignals"`
	CanonicalSignals        map[string][]string `yaml:"canonicalSignals"`
}

// Ontology is immutable once built and safe for concurrent readers.
type Ontology struct {
	minimal             map[Canonical]struct{}
	critical            map[Canonical]struct{}
	synonymToCanonical  map[string]Canonical
	canonicalToSynonyms map[Canonical][]string
}

func LoadOntology(path string) (*Ontology, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read signal ontology %s: %w", path, err)
	}
	return ParseOntology(data)
}

func ParseOntology(data []byte) (*Ontology, error) {
	var doc ontologyDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse signal ontology: %w", err)
	}

	o := &Ontology{
		minimal:             make(map[Canonical]struct{}),
		critical:            make(map[Canonical]struct{}),
		synonymToCanonical:  make(map[string]Canonical),
		canonicalToSynonyms: make(map[Canonical][]string),
	}

	for canonical, synonyms := range doc.CanonicalSignals {
		key := normalize(canonical)
		if key == "" {
			continue
		}
		c := Canonical(key)
		o.synonymToCanonical[key] = c
		list := make([]string, 0, len(synonyms))
		for _, s := range synonyms {
			syn := normalize(s)
			if syn == "" {
				continue
			}
			o.synonymToCanonical[syn] = c
			list = append(list, syn)
		}
		o.canonicalToSynonyms[c] = list
	}

	for _, s := range doc.MinimalConditionSignals {
		if key := normalize(s); key != "" {
			o.minimal[Canonical(key)] = struct{}{}
		}
	}

	critical := doc.CriticalSignals
	if len(critical) == 0 {
		critical = doc.MinimalConditionSignals
	}
	for _, s := range critical {
		if key := normalize(s); key != "" {
			o.critical[Canonical(key)] = struct{}{}
		}
	}

	logger.Info("signal ontology loaded",
		"canonical", len(o.canonicalToSynonyms),
		"minimal", len(o.minimal),
		"critical", len(o.critical),
	)

	return o, nil
}

// Normalize maps raw extractor signals onto the canonical vocabulary.
func (o *Ontology) Normalize(raw []string) NormalizationResult {
	result := NormalizationResult{
		Canonical: []Canonical{},
		Unknown:   []string{},
	}
	seen := make(map[Canonical]struct{})

	add := func(c Canonical) {
		if _, ok := seen[c]; ok {
			return
		}
		seen[c] = struct{}{}
		result.Canonical = append(result.Canonical, c)
	}

	for _, r := range raw {
		s := normalize(r)
		if s == "" {
			continue
		}
		if c, ok := o.synonymToCanonical[s]; ok {
			add(c)
			continue
		}
		logger.Info("unknown signal detected", "signal", s)
		result.Unknown = append(result.Unknown, s)
		add(Fallback)
	}

	return result
}

func (o *Ontology) ContainsMinimalConditionSignal(signals []Canonical) bool {
	for _, s := range signals {
		if _, ok := o.minimal[Canonical(normalize(string(s)))]; ok {
			return true
		}
	}
	return false
}

// CriticalCount counts distinct critical signals.
func (o *Ontology) CriticalCount(signals []Canonical) int {
	seen := make(map[Canonical]struct{})
	for _, s := range signals {
		if _, ok := o.critical[s]; ok {
			seen[s] = struct{}{}
		}
	}
	return len(seen)
}

func (o *Ontology) CanonicalCount() int {
	return len(o.canonicalToSynonyms)
}

// MinimalConditionSignals lists the minimal set in sorted order.
func (o *Ontology) MinimalConditionSignals() []string {
	out := make([]string, 0, len(o.minimal))
	for s := range o.minimal {
		out = append(out, string(s))
	}
	sort.Strings(out)
	return out
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
