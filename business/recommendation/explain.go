package recommendation

import (
	"context"
	"fmt"

	"welfareBot/business/signal"
	"welfareBot/business/user"
	"welfareBot/domain"
	"welfareBot/pkg/logger"
)

// Explanation shows how a set of raw signals would be treated for a user.
type Explanation struct {
	Signals    signal.NormalizationResult `json:"signals"`
	RiskLevel  domain.RiskLevel           `json:"riskLevel"`
	Gate       GateResult                 `json:"gate"`
	Candidates []domain.ScoredCandidate   `json:"candidates"`
}

// Explain scores the user's pool for rawSignals without calling the
// extractor, writing audit records or touching issuance state. userID 0
// explains against the anonymous pool. A non-positive limit means the
// configured top N.
func (s *Service) Explain(ctx context.Context, userID uint, rawSignals []string, limit int) (Explanation, error) {
	if err := ctx.Err(); err != nil {
		return Explanation{}, fmt.Errorf("context error: %w", err)
	}
	if limit <= 0 {
		limit = s.policy.Engine().TopN
	}

	var (
		u        *domain.User
		baseTags []string
		issued   bool
		rejected = map[string]struct{}{}
	)

	if userID != 0 {
		found, err := s.userRepo.FindByID(ctx, userID)
		if err != nil {
			return Explanation{}, err
		}
		u = &found
		baseTags = user.ParseBaseTags(found)
		issued = found.RecommendationIssued

		rejected, err = s.rejects.RejectedBenefitIDs(ctx, userID)
		if err != nil {
			return Explanation{}, fmt.Errorf("load rejected benefits: %w", err)
		}
	}

	pool, err := s.pools.GetPool(ctx, u)
	if err != nil {
		return Explanation{}, fmt.Errorf("load candidate pool: %w", err)
	}

	normalized := s.ontology.Normalize(rawSignals)
	gate := EvaluateGate(s.ontology, GateInput{
		Signals:       normalized,
		PoolAvailable: len(pool) > 0,
		AlreadyIssued: issued,
	})

	logger.Debug("recommend_explain",
		"trace_id", TraceIDFromContext(ctx),
		"user_id", userID,
		"signals", normalized.Strings(),
		"pool", len(pool),
		"limit", limit,
	)

	return Explanation{
		Signals:    normalized,
		RiskLevel:  ClassifyRisk(s.ontology, normalized.Canonical),
		Gate:       gate,
		Candidates: s.rankCandidates(ctx, u, pool, rejected, baseTags, normalized.Strings(), limit),
	}, nil
}
