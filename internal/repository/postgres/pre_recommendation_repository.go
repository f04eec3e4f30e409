package postgres

import (
	"context"
	"fmt"

	"welfareBot/domain"

	"gorm.io/gorm"
)

type PreRecommendationRepository struct {
	DB *gorm.DB
}

func NewPreRecommendationRepository(db *gorm.DB) *PreRecommendationRepository {
	return &PreRecommendationRepository{
		DB: db,
	}
}

// FindByUser returns the user's pool ordered by base score DESC.
func (r *PreRecommendationRepository) FindByUser(ctx context.Context, userID uint) ([]domain.PreRecommendation, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context error: %w", err)
	}

	var rows []domain.PreRecommendation
	if err := r.DB.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("base_score DESC").
		Order("id ASC").
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to query user_pre_recommendations: %w", err)
	}

	return rows, nil
}

// ReplaceByUser deletes the user's pool and writes entries in one transaction,
// so readers see either the old pool or the new one.
func (r *PreRecommendationRepository) ReplaceByUser(ctx context.Context, userID uint, entries []domain.PreRecommendation) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context error: %w", err)
	}

	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", userID).Delete(&domain.PreRecommendation{}).Error; err != nil {
			return fmt.Errorf("failed to delete previous pool: %w", err)
		}
		if len(entries) == 0 {
			return nil
		}

		rows := make([]domain.PreRecommendation, 0, len(entries))
		for _, e := range entries {
			id := userID
			rows = append(rows, domain.PreRecommendation{
				UserID:    &id,
				BenefitID: e.BenefitID,
				BaseScore: e.BaseScore,
				CreatedAt: e.CreatedAt,
			})
		}

		if err := tx.Create(&rows).Error; err != nil {
			return fmt.Errorf("failed to insert pool: %w", err)
		}
		return nil
	})
}
