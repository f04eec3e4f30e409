package recommendation

import (
	"context"
	"encoding/json"

	"welfareBot/business/signal"
	"welfareBot/domain"
	"welfareBot/pkg/logger"
	"welfareBot/pkg/metrics"

	"gorm.io/datatypes"
)

// writeAudit never fails the request; the result has already been decided.
func (s *Service) writeAudit(ctx context.Context, record domain.BenefitMatchLog) {
	if err := s.auditRepo.Save(ctx, &record); err != nil {
		metrics.AuditWriteFailures.Inc()
		logger.Error("failed to write decision audit",
			"trace_id", TraceIDFromContext(ctx),
			"user_id", record.UserID,
			"decision", record.DecisionType,
			"error", err,
		)
	}
}

func (s *Service) blockedRecord(
	userID uint,
	gate GateResult,
	risk domain.RiskLevel,
	normalized signal.NormalizationResult,
) domain.BenefitMatchLog {
	return domain.BenefitMatchLog{
		UserID:            userID,
		AppliedBoostTags:  jsonColumn([]domain.AppliedBoost{}),
		AppliedSignals:    jsonColumn([]domain.AppliedBoost{}),
		DecisionType:      domain.DecisionBlocked,
		MCFailReasons:     jsonColumn(gate.ReasonStrings()),
		NormalizedSignals: jsonColumn(normalized),
		RiskLevel:         risk,
		CreatedAt:         s.now(),
	}
}

func (s *Service) issuedRecord(
	userID uint,
	c domain.ScoredCandidate,
	decision domain.DecisionType,
	risk domain.RiskLevel,
	normalized signal.NormalizationResult,
) domain.BenefitMatchLog {
	benefitID := c.Benefit.BenefitID
	base := c.BaseScore
	boosted := c.FinalScore

	return domain.BenefitMatchLog{
		UserID:            userID,
		BenefitID:         &benefitID,
		BaseScore:         &base,
		BoostedScore:      &boosted,
		AppliedBoostTags:  jsonColumn(c.AppliedBaseTagBoosts),
		AppliedSignals:    jsonColumn(c.AppliedSignalBoosts),
		DecisionType:      decision,
		MCFailReasons:     jsonColumn([]string{}),
		NormalizedSignals: jsonColumn(normalized),
		RiskLevel:         risk,
		CreatedAt:         s.now(),
	}
}

func jsonColumn(v any) datatypes.JSON {
	raw, err := json.Marshal(v)
	if err != nil {
		return datatypes.JSON("null")
	}
	return datatypes.JSON(raw)
}
