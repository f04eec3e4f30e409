package postgres

import (
	"context"
	"fmt"

	"welfareBot/domain"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type RejectRepository struct {
	DB *gorm.DB
}

func NewRejectRepository(db *gorm.DB) *RejectRepository {
	return &RejectRepository{DB: db}
}

func (r *RejectRepository) Exists(ctx context.Context, userID uint, benefitID string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, fmt.Errorf("context error: %w", err)
	}

	var count int64
	if err := r.DB.WithContext(ctx).Model(&domain.UserRejectBenefit{}).
		Where("user_id = ? AND benefit_id = ?", userID, benefitID).
		Count(&count).Error; err != nil {
		return false, fmt.Errorf("failed to query user_reject_benefits: %w", err)
	}

	return count > 0, nil
}

// Create ignores a duplicate (user_id, benefit_id) pair.
func (r *RejectRepository) Create(ctx context.Context, reject *domain.UserRejectBenefit) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context error: %w", err)
	}

	if err := r.DB.WithContext(ctx).Clauses(
		clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "benefit_id"}},
			DoNothing: true,
		},
	).Create(reject).Error; err != nil {
		return fmt.Errorf("failed to insert user_reject_benefits: %w", err)
	}

	return nil
}

func (r *RejectRepository) FindBenefitIDsByUser(ctx context.Context, userID uint) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context error: %w", err)
	}

	var ids []string
	if err := r.DB.WithContext(ctx).Model(&domain.UserRejectBenefit{}).
		Where("user_id = ?", userID).
		Pluck("benefit_id", &ids).Error; err != nil {
		return nil, fmt.Errorf("failed to query user_reject_benefits: %w", err)
	}

	return ids, nil
}
