package reject

import (
	"context"
	"fmt"
	"strings"

	"welfareBot/domain"
	"welfareBot/pkg/logger"
)

type RejectRepository interface {
	Exists(ctx context.Context, userID uint, benefitID string) (bool, error)
	Create(ctx context.Context, reject *domain.UserRejectBenefit) error
	FindBenefitIDsByUser(ctx context.Context, userID uint) ([]string, error)
}

// BenefitResolver maps a user supplied id onto the catalog entry, with the
// same normalization the benefit detail endpoint uses.
type BenefitResolver interface {
	Detail(ctx context.Context, rawID string) (domain.Benefit, error)
}

type rejectService struct {
	repo     RejectRepository
	benefits BenefitResolver
}

func NewRejectService(repo RejectRepository, benefits BenefitResolver) *rejectService {
	return &rejectService{repo: repo, benefits: benefits}
}

// Reject excludes a benefit from the user's future recommendations. The id is
// stored in its catalog form so "#JOB-001" and "job-001" reject the same
// benefit. Repeated calls are no-ops; an id outside the catalog is an error.
func (s *rejectService) Reject(ctx context.Context, userID uint, benefitID string) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context error: %w", err)
	}

	benefitID = strings.TrimSpace(benefitID)
	if userID == 0 || benefitID == "" {
		return nil
	}

	b, err := s.benefits.Detail(ctx, benefitID)
	if err != nil {
		return fmt.Errorf("resolve rejected benefit: %w", err)
	}
	benefitID = b.BenefitID

	exists, err := s.repo.Exists(ctx, userID, benefitID)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	if err := s.repo.Create(ctx, &domain.UserRejectBenefit{UserID: userID, BenefitID: benefitID}); err != nil {
		logger.Error("failed to store rejected benefit", "user_id", userID, "benefit_id", benefitID, "error", err)
		return err
	}

	logger.Info("benefit rejected", "user_id", userID, "benefit_id", benefitID)
	return nil
}

// RejectedBenefitIDs returns the user's exclusion set.
func (s *rejectService) RejectedBenefitIDs(ctx context.Context, userID uint) (map[string]struct{}, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context error: %w", err)
	}

	out := map[string]struct{}{}
	if userID == 0 {
		return out, nil
	}

	ids, err := s.repo.FindBenefitIDsByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	for _, id := range ids {
		out[id] = struct{}{}
	}
	return out, nil
}
