package domain

import "time"

// CREATE TABLE public.user_pre_recommendations (
//     id          BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
//     user_id     BIGINT REFERENCES users(id),
//     benefit_id  VARCHAR(50) NOT NULL,
//     base_score  DOUBLE PRECISION NOT NULL,
//     created_at  TIMESTAMPTZ DEFAULT NOW()
// );

// PreRecommendation is one entry of a user's candidate pool. A nil UserID
// marks the anonymous default pool, which is computed but never stored.
type PreRecommendation struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    *uint     `gorm:"column:user_id;index" json:"userId"`
	BenefitID string    `gorm:"column:benefit_id;size:50;not null" json:"benefitId"`
	BaseScore float64   `gorm:"column:base_score;not null" json:"baseScore"`
	CreatedAt time.Time `gorm:"column:created_at" json:"createdAt"`
}

func (PreRecommendation) TableName() string {
	return "user_pre_recommendations"
}
