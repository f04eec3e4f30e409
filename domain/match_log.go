package domain

import (
	"time"

	"gorm.io/datatypes"
)

type DecisionType string

const (
	DecisionIssued   DecisionType = "ISSUED"
	DecisionOverride DecisionType = "OVERRIDE"
	DecisionBlocked  DecisionType = "BLOCKED"
)

type RiskLevel string

const (
	RiskHigh   RiskLevel = "HIGH"
	RiskMedium RiskLevel = "MEDIUM"
	RiskLow    RiskLevel = "LOW"
	RiskNone   RiskLevel = "NONE"
)

// BenefitMatchLog is the append-only decision audit record: one row per
// issued item, or one row without a benefit for a blocked decision.
type BenefitMatchLog struct {
	ID                uint           `gorm:"primaryKey" json:"id"`
	UserID            uint           `gorm:"column:user_id;index" json:"userId"`
	BenefitID         *string        `gorm:"column:benefit_id;size:50" json:"benefitId"`
	BaseScore         *float64       `gorm:"column:base_score" json:"baseScore"`
	BoostedScore      *float64       `gorm:"column:boosted_score" json:"boostedScore"`
	AppliedBoostTags  datatypes.JSON `gorm:"column:applied_boost_tags;type:jsonb" json:"appliedBoostTags"`
	AppliedSignals    datatypes.JSON `gorm:"column:applied_signals;type:jsonb" json:"appliedSignals"`
	DecisionType      DecisionType   `gorm:"column:decision_type;size:30" json:"decisionType"`
	MCFailReasons     datatypes.JSON `gorm:"column:mc_fail_reasons;type:jsonb" json:"mcFailReasons"`
	NormalizedSignals datatypes.JSON `gorm:"column:normalized_signals;type:jsonb" json:"normalizedSignals"`
	RiskLevel         RiskLevel      `gorm:"column:risk_level;size:20" json:"riskLevel"`
	CreatedAt         time.Time      `gorm:"column:created_at" json:"createdAt"`
}

func (BenefitMatchLog) TableName() string {
	return "benefit_match_logs"
}
