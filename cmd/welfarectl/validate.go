package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

type validateParams struct {
	resources resourceParams
	format    string
	strict    bool
	stdout    io.Writer
}

func newValidateConfigCmd() *cobra.Command {
	var format string
	var strict bool

	cmd := &cobra.Command{
		Use:   "validate-config",
		Short: "Load and cross-check policy, ontology and catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(validateParams{
				resources: resourcePaths(cmd),
				format:    format,
				strict:    strict,
				stdout:    cmd.OutOrStdout(),
			})
		},
	}

	cmd.Flags().StringVar(&format, "format", "text", "output format: text or json")
	cmd.Flags().BoolVar(&strict, "strict", false, "treat warnings as errors")
	return cmd
}

func runValidate(p validateParams) error {
	if p.format != "text" && p.format != "json" {
		return fmt.Errorf("invalid format %q: must be 'text' or 'json'", p.format)
	}

	r, err := loadResources(p.resources)
	if err != nil {
		return err
	}

	findings := checkResources(r)

	if p.format == "json" {
		enc := json.NewEncoder(p.stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(struct {
			Benefits  int       `json:"benefits"`
			Canonical int       `json:"canonicalSignals"`
			Findings  []Finding `json:"findings"`
		}{r.catalog.Len(), r.ontology.CanonicalCount(), nonNilFindings(findings)}); err != nil {
			return err
		}
	} else {
		fmt.Fprintf(p.stdout, "benefits: %d, canonical signals: %d, boost cap: %.2f\n",
			r.catalog.Len(), r.ontology.CanonicalCount(), r.table.BoostCap())
		for _, f := range findings {
			fmt.Fprintf(p.stdout, "%-7s %s\n", f.Severity, f.Message)
		}
		if len(findings) == 0 {
			fmt.Fprintln(p.stdout, "ok")
		}
	}

	errs, warns := 0, 0
	for _, f := range findings {
		if f.Severity == severityError {
			errs++
		} else {
			warns++
		}
	}
	if errs > 0 || (p.strict && warns > 0) {
		return fmt.Errorf("configuration check failed: %d errors, %d warnings", errs, warns)
	}
	return nil
}

func nonNilFindings(f []Finding) []Finding {
	if f == nil {
		return []Finding{}
	}
	return f
}
