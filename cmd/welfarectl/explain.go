package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"welfareBot/business/prepool"
	"welfareBot/business/recommendation"
	"welfareBot/domain"

	"github.com/spf13/cobra"
	"gorm.io/datatypes"
)

// The offline profile always has this id.
const offlineUserID uint = 1

type explainParams struct {
	resources resourceParams
	signals   []string
	baseTags  []string
	rejected  []string
	age       int
	issued    bool
	limit     int
	format    string
	stdout    io.Writer
}

func newExplainCmd() *cobra.Command {
	p := explainParams{}

	cmd := &cobra.Command{
		Use:   "explain",
		Short: "Score the candidate pool for a set of signals",
		Long: `explain builds the candidate pool for an offline profile and ranks it for
the given raw signals exactly as the chat endpoint would, printing the gate
outcome, the risk level and every applied boost.`,
		Example: `  welfarectl explain --signals 미취업,주거불안 --tags 미취업 --age 29`,
		RunE: func(cmd *cobra.Command, args []string) error {
			p.resources = resourcePaths(cmd)
			p.stdout = cmd.OutOrStdout()
			return runExplain(cmd.Context(), p)
		},
	}

	cmd.Flags().StringSliceVar(&p.signals, "signals", nil, "raw signals as the extractor would return them")
	cmd.Flags().StringSliceVar(&p.baseTags, "tags", nil, "base tags of the profile")
	cmd.Flags().StringSliceVar(&p.rejected, "reject", nil, "benefit ids the profile rejected")
	cmd.Flags().IntVar(&p.age, "age", -1, "profile age, negative for unknown")
	cmd.Flags().BoolVar(&p.issued, "issued", false, "profile already received a recommendation")
	cmd.Flags().IntVarP(&p.limit, "top", "n", 0, "number of candidates, 0 for the configured top N")
	cmd.Flags().StringVar(&p.format, "format", "text", "output format: text or json")
	_ = cmd.MarkFlagRequired("signals")
	return cmd
}

func runExplain(ctx context.Context, p explainParams) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if p.format != "text" && p.format != "json" {
		return fmt.Errorf("invalid format %q: must be 'text' or 'json'", p.format)
	}

	r, err := loadResources(p.resources)
	if err != nil {
		return err
	}

	profile, err := offlineProfile(p)
	if err != nil {
		return err
	}

	pools := prepool.NewService(&memPoolRepository{}, r.catalog, r.table)
	svc := recommendation.NewService(
		nil,
		offlineUsers{user: profile},
		nil,
		offlineRejects(p.rejected),
		pools,
		nil,
		r.catalog,
		recommendation.AgeEligibilityChecker{},
		r.ontology,
		r.table,
	)

	exp, err := svc.Explain(ctx, offlineUserID, p.signals, p.limit)
	if err != nil {
		return err
	}

	if p.format == "json" {
		enc := json.NewEncoder(p.stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(exp)
	}
	printExplanation(p.stdout, exp)
	return nil
}

func offlineProfile(p explainParams) (domain.User, error) {
	tags := p.baseTags
	if tags == nil {
		tags = []string{}
	}
	raw, err := json.Marshal(tags)
	if err != nil {
		return domain.User{}, err
	}

	u := domain.User{
		ID:                   offlineUserID,
		Name:                 "offline",
		BaseTags:             datatypes.JSON(raw),
		RecommendationIssued: p.issued,
	}
	if p.age >= 0 {
		age := p.age
		u.Age = &age
	}
	return u, nil
}

func printExplanation(w io.Writer, exp recommendation.Explanation) {
	fmt.Fprintf(w, "signals:  %s\n", strings.Join(exp.Signals.Strings(), ", "))
	if len(exp.Signals.Unknown) > 0 {
		fmt.Fprintf(w, "unknown:  %s\n", strings.Join(exp.Signals.Unknown, ", "))
	}
	fmt.Fprintf(w, "risk:     %s\n", exp.RiskLevel)
	if exp.Gate.Passed {
		fmt.Fprintln(w, "gate:     passed")
	} else {
		fmt.Fprintf(w, "gate:     blocked (%s)\n", strings.Join(exp.Gate.ReasonStrings(), ", "))
	}

	for i, c := range exp.Candidates {
		fmt.Fprintf(w, "%2d. %-16s %.2f -> %.2f  %s [%s]\n",
			i+1, c.Benefit.BenefitID, c.BaseScore, c.FinalScore, c.Benefit.Title, c.Benefit.Category)
		for _, b := range c.AppliedBaseTagBoosts {
			fmt.Fprintf(w, "      tag    %-12s +%.2f (requested %.2f)\n", b.Key, b.Applied, b.Requested)
		}
		for _, b := range c.AppliedSignalBoosts {
			fmt.Fprintf(w, "      signal %-12s +%.2f (requested %.2f)\n", b.Key, b.Applied, b.Requested)
		}
	}
	if len(exp.Candidates) == 0 {
		fmt.Fprintln(w, "no candidates")
	}
}

type offlineUsers struct {
	user domain.User
}

func (o offlineUsers) FindByID(ctx context.Context, id uint) (domain.User, error) {
	if id != o.user.ID {
		return domain.User{}, domain.ErrUserNotFound
	}
	return o.user, nil
}

func (offlineUsers) MarkIssued(ctx context.Context, id uint, at time.Time) error {
	return nil
}

type offlineRejects []string

func (o offlineRejects) RejectedBenefitIDs(ctx context.Context, userID uint) (map[string]struct{}, error) {
	out := make(map[string]struct{}, len(o))
	for _, id := range o {
		if id = strings.TrimSpace(id); id != "" {
			out[id] = struct{}{}
		}
	}
	return out, nil
}

type memPoolRepository struct {
	entries []domain.PreRecommendation
}

func (m *memPoolRepository) FindByUser(ctx context.Context, userID uint) ([]domain.PreRecommendation, error) {
	return append([]domain.PreRecommendation(nil), m.entries...), nil
}

func (m *memPoolRepository) ReplaceByUser(ctx context.Context, userID uint, entries []domain.PreRecommendation) error {
	m.entries = append([]domain.PreRecommendation(nil), entries...)
	return nil
}
