package domain

import (
	"time"

	"gorm.io/datatypes"
)

// CREATE TABLE public.users (
//     id                      BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
//     name                    TEXT,
//     age                     INT,
//     residence               TEXT,
//     base_tags               JSONB,
//     recommendation_issued   BOOLEAN DEFAULT FALSE,
//     last_recommendation_at  TIMESTAMPTZ,
//     created_at              TIMESTAMPTZ DEFAULT NOW()
// );

type User struct {
	ID                   uint           `gorm:"primaryKey" json:"id"`
	Name                 string         `gorm:"column:name;type:text" json:"name"`
	Age                  *int           `gorm:"column:age" json:"age"`
	Residence            string         `gorm:"column:residence;type:text" json:"residence"`
	BaseTags             datatypes.JSON `gorm:"column:base_tags;type:jsonb" json:"-"`
	RecommendationIssued bool           `gorm:"column:recommendation_issued;default:false" json:"recommendationIssued"`
	LastRecommendationAt *time.Time     `gorm:"column:last_recommendation_at" json:"lastRecommendationAt"`
	CreatedAt            time.Time      `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
}

func (User) TableName() string {
	return "users"
}

// UserProfile is the API view of a user with decoded base tags.
type UserProfile struct {
	ID                   uint       `json:"id"`
	Name                 string     `json:"name"`
	Age                  *int       `json:"age"`
	Residence            string     `json:"residence"`
	BaseTags             []string   `json:"baseTags"`
	RecommendationIssued bool       `json:"recommendationIssued"`
	LastRecommendationAt *time.Time `json:"lastRecommendationAt"`
}
