package recommendation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"welfareBot/business/policy"
	"welfareBot/business/signal"
	"welfareBot/business/user"
	"welfareBot/domain"
	"welfareBot/pkg/logger"
	"welfareBot/pkg/metrics"
)

// FallbackAssistantMessage replaces a blank extractor reply.
const FallbackAssistantMessage = "말씀해주신 상황을 바탕으로 받을 수 있는 지원을 찾아봤어요."

// ErrExtraction wraps every signal extractor failure.
var ErrExtraction = errors.New("signal extraction failed")

// ---- Repository interfaces ----

type SignalExtractor interface {
	Extract(ctx context.Context, req domain.ExtractRequest) (domain.ExtractResult, error)
}

type UserRepository interface {
	FindByID(ctx context.Context, id uint) (domain.User, error)
	MarkIssued(ctx context.Context, id uint, at time.Time) error
}

type SessionStore interface {
	Read(ctx context.Context, sessionID string) (domain.SessionState, error)
	MarkIssued(ctx context.Context, sessionID string, at time.Time) error
}

type RejectionProvider interface {
	RejectedBenefitIDs(ctx context.Context, userID uint) (map[string]struct{}, error)
}

type PoolProvider interface {
	GetPool(ctx context.Context, user *domain.User) ([]domain.PreRecommendation, error)
}

type AuditRepository interface {
	Save(ctx context.Context, record *domain.BenefitMatchLog) error
}

type Catalog interface {
	FindByID(id string) (domain.Benefit, bool)
	All() []domain.Benefit
}

// Decision is the full outcome of one chat turn, before it is cut down to
// the public response.
type Decision struct {
	AssistantMessage string
	RiskLevel        domain.RiskLevel
	Recommendations  []domain.ScoredCandidate
	Issued           bool
	IssuedAt         *time.Time
	DecisionType     domain.DecisionType
	Gate             GateResult
	Signals          signal.NormalizationResult
	Fallback         bool
}

func (d Decision) Response() domain.ChatResponse {
	items := make([]domain.RecommendationItem, 0, len(d.Recommendations))
	for _, c := range d.Recommendations {
		item := domain.RecommendationItem{
			BenefitID: c.Benefit.BenefitID,
			Title:     c.Benefit.Title,
			Category:  c.Benefit.Category,
			Score:     c.FinalScore,
			Summary:   c.Benefit.Summary,
		}
		if loc := c.Benefit.Location; loc != nil {
			item.Location = &domain.ItemLocation{Lat: loc.Lat, Lng: loc.Lng}
		}
		items = append(items, item)
	}

	return domain.ChatResponse{
		AssistantMessage:     d.AssistantMessage,
		Recommendations:      items,
		RiskLevel:            d.RiskLevel,
		RecommendationIssued: d.Issued,
	}
}

// ---- Usecase / Service ----

type Service struct {
	extractor   SignalExtractor
	userRepo    UserRepository
	sessions    SessionStore
	rejects     RejectionProvider
	pools       PoolProvider
	auditRepo   AuditRepository
	catalog     Catalog
	eligChecker EligibilityChecker
	ontology    *signal.Ontology
	policy      *policy.Table
	now         func() time.Time
}

func NewService(
	extractor SignalExtractor,
	userRepo UserRepository,
	sessions SessionStore,
	rejects RejectionProvider,
	pools PoolProvider,
	auditRepo AuditRepository,
	catalog Catalog,
	eligChecker EligibilityChecker,
	ontology *signal.Ontology,
	table *policy.Table,
) *Service {
	if eligChecker == nil {
		eligChecker = NoopEligibilityChecker{}
	}
	return &Service{
		extractor:   extractor,
		userRepo:    userRepo,
		sessions:    sessions,
		rejects:     rejects,
		pools:       pools,
		auditRepo:   auditRepo,
		catalog:     catalog,
		eligChecker: eligChecker,
		ontology:    ontology,
		policy:      table,
		now:         time.Now,
	}
}

// Chat runs one conversational turn for a known user and records the
// issuance on the browser session when something was recommended.
func (s *Service) Chat(ctx context.Context, req domain.ChatRequest, sessionID string) (domain.ChatResponse, error) {
	if err := ctx.Err(); err != nil {
		return domain.ChatResponse{}, fmt.Errorf("context error: %w", err)
	}

	u, err := s.userRepo.FindByID(ctx, req.UserID)
	if err != nil {
		return domain.ChatResponse{}, err
	}

	state := domain.SessionState{}
	if sessionID != "" && s.sessions != nil {
		st, err := s.sessions.Read(ctx, sessionID)
		if err != nil {
			logger.Warn("session state unreadable, assuming not issued",
				"trace_id", TraceIDFromContext(ctx),
				"error", err,
			)
		} else {
			state = st
		}
	}

	d, err := s.Decide(ctx, req, u, state)
	if err != nil {
		return domain.ChatResponse{}, err
	}

	if d.Issued && sessionID != "" && s.sessions != nil {
		if err := s.sessions.MarkIssued(ctx, sessionID, *d.IssuedAt); err != nil {
			logger.Warn("failed to mark session issued",
				"trace_id", TraceIDFromContext(ctx),
				"error", err,
			)
		}
	}

	return d.Response(), nil
}

// Decide is the recommendation decision for one message. An extractor
// failure aborts before anything is written.
func (s *Service) Decide(
	ctx context.Context,
	req domain.ChatRequest,
	u domain.User,
	session domain.SessionState,
) (Decision, error) {

	if err := ctx.Err(); err != nil {
		return Decision{}, fmt.Errorf("context error: %w", err)
	}

	// 1) extract + normalize
	extracted, err := s.extractor.Extract(ctx, domain.ExtractRequest{
		User:    user.ToProfile(u),
		History: req.History,
		Message: req.Message,
	})
	if err != nil {
		return Decision{}, fmt.Errorf("%w: %w", ErrExtraction, err)
	}

	normalized := s.ontology.Normalize(extracted.Signals)
	if n := len(normalized.Unknown); n > 0 {
		metrics.UnknownSignals.Add(float64(n))
	}
	risk := ClassifyRisk(s.ontology, normalized.Canonical)

	message := strings.TrimSpace(extracted.AssistantMessage)
	if message == "" {
		message = FallbackAssistantMessage
	}

	// 2) gate
	alreadyIssued := u.RecommendationIssued || session.Issued
	trigger := alreadyIssued && s.policy.MatchesTrigger(req.Message)

	pool, err := s.pools.GetPool(ctx, &u)
	if err != nil {
		return Decision{}, fmt.Errorf("load candidate pool: %w", err)
	}

	gate := EvaluateGate(s.ontology, GateInput{
		Signals:           normalized,
		InsufficientInfo:  extracted.InsufficientInfo,
		PoolAvailable:     len(pool) > 0,
		AlreadyIssued:     alreadyIssued,
		OverrideTriggered: trigger,
	})

	tid := TraceIDFromContext(ctx)
	logger.Debug("recommend_gate",
		"trace_id", tid,
		"user_id", u.ID,
		"signals", normalized.Strings(),
		"unknown", normalized.Unknown,
		"risk", risk,
		"passed", gate.Passed,
		"reasons", gate.ReasonStrings(),
		"override", gate.Override,
	)

	metrics.RecommendRisk.WithLabelValues(string(risk)).Inc()

	d := Decision{
		AssistantMessage: message,
		RiskLevel:        risk,
		Recommendations:  []domain.ScoredCandidate{},
		Gate:             gate,
		Signals:          normalized,
	}

	if !gate.Passed {
		d.DecisionType = domain.DecisionBlocked
		for _, r := range gate.Reasons {
			metrics.GateFailures.WithLabelValues(string(r)).Inc()
		}
		metrics.RecommendDecisions.WithLabelValues(string(d.DecisionType)).Inc()

		s.writeAudit(ctx, s.blockedRecord(u.ID, gate, risk, normalized))
		return d, nil
	}

	// 3) rank
	rejected, err := s.rejects.RejectedBenefitIDs(ctx, u.ID)
	if err != nil {
		return Decision{}, fmt.Errorf("load rejected benefits: %w", err)
	}

	topN := s.policy.Engine().TopN
	candidates := s.rankCandidates(ctx, &u, pool, rejected, user.ParseBaseTags(u), normalized.Strings(), topN)
	if len(candidates) == 0 {
		candidates = s.fallbackCandidates(ctx, &u, rejected, topN)
		d.Fallback = len(candidates) > 0
		if d.Fallback {
			metrics.FallbackRecommendations.Inc()
		}
	}

	d.Recommendations = candidates
	d.DecisionType = domain.DecisionIssued
	if gate.Override {
		d.DecisionType = domain.DecisionOverride
	}

	// 4) issue, then audit
	if len(candidates) > 0 {
		now := s.now()
		if err := s.userRepo.MarkIssued(ctx, u.ID, now); err != nil {
			return Decision{}, fmt.Errorf("mark recommendation issued: %w", err)
		}
		d.Issued = true
		d.IssuedAt = &now

		for _, c := range candidates {
			s.writeAudit(ctx, s.issuedRecord(u.ID, c, d.DecisionType, risk, normalized))
		}
	}

	metrics.RecommendDecisions.WithLabelValues(string(d.DecisionType)).Inc()
	logger.Info("recommend_decision",
		"trace_id", tid,
		"user_id", u.ID,
		"decision", d.DecisionType,
		"risk", risk,
		"items", len(candidates),
		"fallback", d.Fallback,
	)

	return d, nil
}
