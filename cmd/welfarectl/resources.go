package main

import (
	"fmt"
	"sort"

	"welfareBot/business/benefit"
	"welfareBot/business/policy"
	"welfareBot/business/signal"

	"golang.org/x/sync/errgroup"
)

type resourceParams struct {
	policyPath   string
	ontologyPath string
	catalogPath  string
}

type resources struct {
	table    *policy.Table
	ontology *signal.Ontology
	catalog  *benefit.Catalog
}

func loadResources(p resourceParams) (resources, error) {
	var r resources
	var g errgroup.Group
	g.Go(func() (err error) {
		r.table, err = policy.LoadTable(p.policyPath)
		return err
	})
	g.Go(func() (err error) {
		r.ontology, err = signal.LoadOntology(p.ontologyPath)
		return err
	})
	g.Go(func() (err error) {
		r.catalog, err = benefit.LoadCatalog(p.catalogPath)
		return err
	})
	if err := g.Wait(); err != nil {
		return resources{}, err
	}
	return r, nil
}

// Finding is one cross-resource consistency problem.
type Finding struct {
	Severity string `json:"severity"`
	Message  string `json:"message"`
}

const (
	severityError   = "error"
	severityWarning = "warning"
)

// checkResources cross-checks the three resources against each other.
// Errors break scoring; warnings leave parts of the catalog unreachable.
func checkResources(r resources) []Finding {
	var findings []Finding
	add := func(sev, format string, args ...any) {
		findings = append(findings, Finding{Severity: sev, Message: fmt.Sprintf(format, args...)})
	}

	keywords := r.table.CategoryKeywords()

	checkRules := func(kind string, rules map[string]policy.BoostRule) {
		for _, key := range sortedKeys(rules) {
			rule := rules[key]
			if len(rule.Categories) == 0 {
				add(severityWarning, "%s rule %q targets no category", kind, key)
			}
			for _, c := range rule.Categories {
				if _, ok := keywords[c]; !ok {
					add(severityError, "%s rule %q targets unknown category %q", kind, key, c)
				}
			}
		}
	}
	checkRules("baseTagBoost", r.table.BaseTagRules())
	checkRules("signalBoost", r.table.SignalRules())

	for key := range r.table.SignalRules() {
		if key == string(signal.Fallback) {
			continue
		}
		if res := r.ontology.Normalize([]string{key}); len(res.Unknown) > 0 {
			add(severityWarning, "signalBoost rule %q is not a canonical signal and never fires", key)
		}
	}

	if len(r.ontology.MinimalConditionSignals()) == 0 {
		add(severityError, "ontology declares no minimal condition signals, every chat turn would be blocked")
	}

	if r.catalog.Len() == 0 {
		add(severityError, "benefit catalog is empty")
	}
	for _, b := range r.catalog.All() {
		if b.BenefitID == "" {
			add(severityWarning, "benefit %q has no id and can never be recommended", b.Title)
			continue
		}
		if len(r.table.ResolveCategories(b.Category)) == 0 {
			add(severityWarning, "benefit %s category %q matches no category keyword", b.BenefitID, b.Category)
		}
	}

	return findings
}

func sortedKeys(m map[string]policy.BoostRule) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
