package domain

import "time"

type ConversationTurn struct {
	Role    string `json:"role"`
	Message string `json:"message"`
}

type ChatRequest struct {
	UserID  uint               `json:"userId" validate:"required"`
	Message string             `json:"message" validate:"required"`
	History []ConversationTurn `json:"history"`
}

type ChatResponse struct {
	AssistantMessage     string               `json:"assistantMessage"`
	Recommendations      []RecommendationItem `json:"recommendations"`
	RiskLevel            RiskLevel            `json:"riskLevel"`
	RecommendationIssued bool                 `json:"recommendationIssued"`
}

type RecommendationItem struct {
	BenefitID string        `json:"benefitId"`
	Title     string        `json:"title"`
	Category  string        `json:"category"`
	Score     float64       `json:"score"`
	Summary   string        `json:"summary"`
	Location  *ItemLocation `json:"location"`
}

type ItemLocation struct {
	Lat *float64 `json:"lat"`
	Lng *float64 `json:"lng"`
}

// AppliedBoost explains one boost rule that fired for a candidate.
type AppliedBoost struct {
	Key       string  `json:"key"`
	Requested float64 `json:"requested"`
	Applied   float64 `json:"applied"`
}

// ScoredCandidate is request scoped and never persisted.
type ScoredCandidate struct {
	Benefit              Benefit        `json:"benefit"`
	BaseScore            float64        `json:"baseScore"`
	FinalScore           float64        `json:"finalScore"`
	AppliedBaseTagBoosts []AppliedBoost `json:"appliedBaseTagBoosts"`
	AppliedSignalBoosts  []AppliedBoost `json:"appliedSignalBoosts"`
}

// SessionState is the per browser session issuance flag.
type SessionState struct {
	Issued   bool       `json:"issued"`
	IssuedAt *time.Time `json:"issuedAt,omitempty"`
}

type FollowupRequest struct {
	ConversationHistory  string   `json:"conversationHistory"`
	Signals              []string `json:"signals"`
	LastUserMessage      string   `json:"lastUserMessage"`
	LastAssistantMessage string   `json:"lastAssistantMessage"`
}

// ExtractRequest is what the signal extractor sees of one chat turn.
type ExtractRequest struct {
	User    UserProfile
	History []ConversationTurn
	Message string
}

type ExtractResult struct {
	AssistantMessage string   `json:"assistantMessage"`
	Signals          []string `json:"signals"`
	InsufficientInfo bool     `json:"insufficient_info"`
}
