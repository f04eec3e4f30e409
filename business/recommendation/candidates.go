package recommendation

import (
	"context"
	"sort"

	"welfareBot/domain"
	"welfareBot/pkg/logger"
)

// rankCandidates scores the pool entries that survive rejection, catalog
// lookup and eligibility, and returns the best limit of them.
func (s *Service) rankCandidates(
	ctx context.Context,
	u *domain.User,
	pool []domain.PreRecommendation,
	rejected map[string]struct{},
	baseTags []string,
	signals []string,
	limit int,
) []domain.ScoredCandidate {

	out := make([]domain.ScoredCandidate, 0, len(pool))
	for _, entry := range pool {
		if _, skip := rejected[entry.BenefitID]; skip {
			continue
		}

		b, ok := s.catalog.FindByID(entry.BenefitID)
		if !ok {
			logger.Debug("pool entry not in catalog", "benefit_id", entry.BenefitID)
			continue
		}

		if !s.eligible(ctx, u, b) {
			continue
		}

		scored := s.policy.Score(b.Category, entry.BaseScore, baseTags, signals)
		out = append(out, domain.ScoredCandidate{
			Benefit:              b,
			BaseScore:            scored.BaseScore,
			FinalScore:           scored.FinalScore,
			AppliedBaseTagBoosts: scored.BaseTagBoosts,
			AppliedSignalBoosts:  scored.SignalBoosts,
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].FinalScore > out[j].FinalScore
	})

	if limit >= 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// fallbackCandidates returns the first limit eligible catalog benefits at
// the fixed fallback score. Rejected benefits are skipped unless that leaves
// nothing; ineligible ones are always skipped.
func (s *Service) fallbackCandidates(
	ctx context.Context,
	u *domain.User,
	rejected map[string]struct{},
	limit int,
) []domain.ScoredCandidate {
	score := s.policy.Engine().FallbackScore

	eligible := make([]domain.Benefit, 0, len(s.catalog.All()))
	for _, b := range s.catalog.All() {
		if b.BenefitID == "" || !s.eligible(ctx, u, b) {
			continue
		}
		eligible = append(eligible, b)
	}

	pick := func(skipRejected bool) []domain.ScoredCandidate {
		out := make([]domain.ScoredCandidate, 0, limit)
		for _, b := range eligible {
			if len(out) >= limit {
				break
			}
			if _, skip := rejected[b.BenefitID]; skip && skipRejected {
				continue
			}
			out = append(out, domain.ScoredCandidate{
				Benefit:              b,
				BaseScore:            score,
				FinalScore:           score,
				AppliedBaseTagBoosts: []domain.AppliedBoost{},
				AppliedSignalBoosts:  []domain.AppliedBoost{},
			})
		}
		return out
	}

	out := pick(true)
	if len(out) == 0 {
		out = pick(false)
	}
	return out
}

// eligible treats a checker error as ineligible.
func (s *Service) eligible(ctx context.Context, u *domain.User, b domain.Benefit) bool {
	ok, err := s.eligChecker.IsEligible(ctx, u, b)
	if err != nil {
		logger.Warn("eligibility check failed", "benefit_id", b.BenefitID, "error", err)
		return false
	}
	return ok
}
