package postgres

import (
	"context"
	"fmt"

	"welfareBot/domain"

	"gorm.io/gorm"
)

// MatchLogRepository writes the append-only decision audit.
type MatchLogRepository struct {
	DB *gorm.DB
}

func NewMatchLogRepository(db *gorm.DB) *MatchLogRepository {
	return &MatchLogRepository{DB: db}
}

func (r *MatchLogRepository) Save(ctx context.Context, record *domain.BenefitMatchLog) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context error: %w", err)
	}

	if err := r.DB.WithContext(ctx).Create(record).Error; err != nil {
		return fmt.Errorf("failed to save benefit match log: %w", err)
	}

	return nil
}

// FindByUser lists a user's audit records, newest first.
func (r *MatchLogRepository) FindByUser(ctx context.Context, userID uint, limit int) ([]domain.BenefitMatchLog, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context error: %w", err)
	}

	if limit <= 0 {
		limit = 50
	}

	var logs []domain.BenefitMatchLog
	if err := r.DB.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&logs).Error; err != nil {
		return nil, fmt.Errorf("failed to query benefit_match_logs: %w", err)
	}

	return logs, nil
}
