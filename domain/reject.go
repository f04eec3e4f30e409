package domain

import "time"

type UserRejectBenefit struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"column:user_id;not null;uniqueIndex:idx_user_reject_benefit" json:"userId"`
	BenefitID string    `gorm:"column:benefit_id;size:50;not null;uniqueIndex:idx_user_reject_benefit" json:"benefitId"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
}

func (UserRejectBenefit) TableName() string {
	return "user_reject_benefits"
}
