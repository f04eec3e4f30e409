package recommendation

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"welfareBot/business/benefit"
	"welfareBot/business/policy"
	"welfareBot/business/prepool"
	"welfareBot/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

const testPolicyYAML = `
baseTagBoost:
  미취업:
    categories: [employment]
    boost: 0.0
signalBoost:
  unemployment:
    categories: [employment]
    boost: 0.15
  housing_stress:
    categories: [housing]
    boost: 0.3
categoryKeywords:
  employment: [일자리]
  housing: [주거]
reRecommendTriggers: [다시 추천, 다른 거]
boostCap: 0.2
`

var fixedNow = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

// ---- fakes ----

type fakeExtractor struct {
	result domain.ExtractResult
	err    error
	calls  int
}

func (f *fakeExtractor) Extract(ctx context.Context, req domain.ExtractRequest) (domain.ExtractResult, error) {
	f.calls++
	return f.result, f.err
}

type fakeUsers struct {
	users   map[uint]domain.User
	marked  []uint
	markErr error
}

func (f *fakeUsers) FindByID(ctx context.Context, id uint) (domain.User, error) {
	u, ok := f.users[id]
	if !ok {
		return domain.User{}, domain.ErrUserNotFound
	}
	return u, nil
}

func (f *fakeUsers) MarkIssued(ctx context.Context, id uint, at time.Time) error {
	if f.markErr != nil {
		return f.markErr
	}
	f.marked = append(f.marked, id)
	return nil
}

type fakeSessions struct {
	states map[string]domain.SessionState
}

func (f *fakeSessions) Read(ctx context.Context, sessionID string) (domain.SessionState, error) {
	return f.states[sessionID], nil
}

func (f *fakeSessions) MarkIssued(ctx context.Context, sessionID string, at time.Time) error {
	f.states[sessionID] = domain.SessionState{Issued: true, IssuedAt: &at}
	return nil
}

type fakeRejects struct {
	ids map[string]struct{}
}

func (f *fakeRejects) RejectedBenefitIDs(ctx context.Context, userID uint) (map[string]struct{}, error) {
	out := make(map[string]struct{}, len(f.ids))
	for k := range f.ids {
		out[k] = struct{}{}
	}
	return out, nil
}

type fakePools struct {
	pool  []domain.PreRecommendation
	calls int
}

func (f *fakePools) GetPool(ctx context.Context, u *domain.User) ([]domain.PreRecommendation, error) {
	f.calls++
	return f.pool, nil
}

type fakeAudit struct {
	records []domain.BenefitMatchLog
	err     error
}

func (f *fakeAudit) Save(ctx context.Context, record *domain.BenefitMatchLog) error {
	if f.err != nil {
		return f.err
	}
	f.records = append(f.records, *record)
	return nil
}

type memPoolRepo struct {
	mu    sync.Mutex
	pools map[uint][]domain.PreRecommendation
}

func (r *memPoolRepo) FindByUser(ctx context.Context, userID uint) ([]domain.PreRecommendation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pools[userID], nil
}

func (r *memPoolRepo) ReplaceByUser(ctx context.Context, userID uint, entries []domain.PreRecommendation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pools[userID] = entries
	return nil
}

// ---- fixture ----

type fixture struct {
	svc       *Service
	extractor *fakeExtractor
	users     *fakeUsers
	sessions  *fakeSessions
	rejects   *fakeRejects
	pools     *fakePools
	audit     *fakeAudit
}

var testCatalog = []domain.Benefit{
	{BenefitID: "job-1", Title: "청년 일자리", Category: "일자리", Summary: "job"},
	{BenefitID: "house-1", Title: "월세 지원", Category: "주거", Summary: "rent"},
	{BenefitID: "culture-1", Title: "문화누리", Category: "문화", Summary: "culture"},
	{BenefitID: "job-2", Title: "취업 상담", Category: "일자리 상담", Summary: "job2"},
}

func poolOf(ids ...string) []domain.PreRecommendation {
	out := make([]domain.PreRecommendation, 0, len(ids))
	for _, id := range ids {
		out = append(out, domain.PreRecommendation{BenefitID: id, BaseScore: 0.5})
	}
	return out
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	table, err := policy.ParseTable([]byte(testPolicyYAML))
	require.NoError(t, err)

	f := &fixture{
		extractor: &fakeExtractor{result: domain.ExtractResult{
			AssistantMessage: "힘드셨겠어요.",
			Signals:          []string{"실직"},
		}},
		users: &fakeUsers{users: map[uint]domain.User{
			1: {ID: 1, Name: "kim", BaseTags: datatypes.JSON(`["미취업"]`)},
		}},
		sessions: &fakeSessions{states: map[string]domain.SessionState{}},
		rejects:  &fakeRejects{ids: map[string]struct{}{}},
		pools:    &fakePools{pool: poolOf("job-1", "house-1", "culture-1", "job-2")},
		audit:    &fakeAudit{},
	}
	f.svc = NewService(
		f.extractor,
		f.users,
		f.sessions,
		f.rejects,
		f.pools,
		f.audit,
		benefit.NewCatalog(testCatalog),
		AgeEligibilityChecker{},
		newTestOntology(t),
		table,
	)
	f.svc.now = func() time.Time { return fixedNow }
	return f
}

func chatRequest(msg string) domain.ChatRequest {
	return domain.ChatRequest{UserID: 1, Message: msg}
}

func ids(cs []domain.ScoredCandidate) []string {
	out := make([]string, 0, len(cs))
	for _, c := range cs {
		out = append(out, c.Benefit.BenefitID)
	}
	return out
}

// ---- tests ----

func TestDecide_IssuesTopCandidates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	d, err := f.svc.Decide(ctx, chatRequest("일자리를 잃었어요"), f.users.users[1], domain.SessionState{})
	require.NoError(t, err)

	assert.True(t, d.Gate.Passed)
	assert.Equal(t, domain.DecisionIssued, d.DecisionType)
	assert.Equal(t, domain.RiskMedium, d.RiskLevel)
	assert.Equal(t, []string{"job-1", "job-2", "house-1"}, ids(d.Recommendations))
	assert.InDelta(t, 0.65, d.Recommendations[0].FinalScore, 1e-9)
	assert.True(t, d.Issued)
	require.NotNil(t, d.IssuedAt)
	assert.Equal(t, fixedNow, *d.IssuedAt)
	assert.Equal(t, []uint{1}, f.users.marked)

	require.Len(t, f.audit.records, 3)
	for _, rec := range f.audit.records {
		assert.Equal(t, domain.DecisionIssued, rec.DecisionType)
		require.NotNil(t, rec.BenefitID)
		assert.JSONEq(t, `[]`, string(rec.MCFailReasons))
	}
}

func TestDecide_InsufficientInfoBlocks(t *testing.T) {
	f := newFixture(t)
	f.extractor.result.InsufficientInfo = true

	d, err := f.svc.Decide(context.Background(), chatRequest("음..."), f.users.users[1], domain.SessionState{})
	require.NoError(t, err)

	assert.False(t, d.Gate.Passed)
	assert.Contains(t, d.Gate.Reasons, ReasonInsufficientInfo)
	assert.Empty(t, d.Recommendations)
	assert.False(t, d.Issued)
	assert.Nil(t, d.IssuedAt)
	assert.Empty(t, f.users.marked)

	require.Len(t, f.audit.records, 1)
	rec := f.audit.records[0]
	assert.Equal(t, domain.DecisionBlocked, rec.DecisionType)
	assert.Nil(t, rec.BenefitID)

	var reasons []string
	require.NoError(t, json.Unmarshal(rec.MCFailReasons, &reasons))
	assert.Equal(t, []string{"INSUFFICIENT_INFO"}, reasons)
}

func TestDecide_AlreadyIssuedInSessionBlocks(t *testing.T) {
	f := newFixture(t)

	d, err := f.svc.Decide(context.Background(), chatRequest("또 힘들어요"), f.users.users[1], domain.SessionState{Issued: true})
	require.NoError(t, err)

	assert.Equal(t, domain.DecisionBlocked, d.DecisionType)
	assert.Equal(t, []ReasonCode{ReasonAlreadyIssued}, d.Gate.Reasons)
	assert.Empty(t, d.Recommendations)
	assert.Empty(t, f.users.marked)
}

func TestDecide_TriggerOverridesPreviousIssuance(t *testing.T) {
	f := newFixture(t)
	u := f.users.users[1]
	u.RecommendationIssued = true

	d, err := f.svc.Decide(context.Background(), chatRequest("다른거 다시추천 해주세요"), u, domain.SessionState{})
	require.NoError(t, err)

	assert.True(t, d.Gate.Passed)
	assert.True(t, d.Gate.Override)
	assert.NotContains(t, d.Gate.Reasons, ReasonAlreadyIssued)
	assert.Equal(t, domain.DecisionOverride, d.DecisionType)
	assert.NotEmpty(t, d.Recommendations)

	for _, rec := range f.audit.records {
		assert.Equal(t, domain.DecisionOverride, rec.DecisionType)
	}
}

func TestDecide_AllRejectedFallsBackToCatalog(t *testing.T) {
	f := newFixture(t)
	f.pools.pool = poolOf("job-1", "house-1")
	f.rejects.ids = map[string]struct{}{"job-1": {}, "house-1": {}}

	d, err := f.svc.Decide(context.Background(), chatRequest("일이 없어요"), f.users.users[1], domain.SessionState{})
	require.NoError(t, err)

	assert.True(t, d.Fallback)
	assert.Equal(t, []string{"culture-1", "job-2"}, ids(d.Recommendations))
	for _, c := range d.Recommendations {
		assert.Equal(t, 0.5, c.FinalScore)
		assert.Equal(t, 0.5, c.BaseScore)
	}
	assert.True(t, d.Issued)
	assert.Len(t, f.audit.records, 2)
}

func TestDecide_FallbackUsesRawCatalogWhenEverythingRejected(t *testing.T) {
	f := newFixture(t)
	f.rejects.ids = map[string]struct{}{"job-1": {}, "house-1": {}, "culture-1": {}, "job-2": {}}

	d, err := f.svc.Decide(context.Background(), chatRequest("일이 없어요"), f.users.users[1], domain.SessionState{})
	require.NoError(t, err)

	assert.Equal(t, []string{"job-1", "house-1", "culture-1"}, ids(d.Recommendations))
}

func TestDecide_ExtractorFailureWritesNothing(t *testing.T) {
	f := newFixture(t)
	f.extractor.err = errors.New("upstream 500")

	_, err := f.svc.Decide(context.Background(), chatRequest("hi"), f.users.users[1], domain.SessionState{})
	assert.ErrorIs(t, err, ErrExtraction)
	assert.ErrorContains(t, err, "upstream 500")

	assert.Zero(t, f.pools.calls)
	assert.Empty(t, f.audit.records)
	assert.Empty(t, f.users.marked)
}

func TestDecide_BlankAssistantMessageUsesFallbackSentence(t *testing.T) {
	f := newFixture(t)
	f.extractor.result.AssistantMessage = "   "

	d, err := f.svc.Decide(context.Background(), chatRequest("실직했어요"), f.users.users[1], domain.SessionState{})
	require.NoError(t, err)
	assert.Equal(t, FallbackAssistantMessage, d.AssistantMessage)
}

func TestDecide_AuditFailureIsSwallowed(t *testing.T) {
	f := newFixture(t)
	f.audit.err = errors.New("disk full")

	d, err := f.svc.Decide(context.Background(), chatRequest("실직했어요"), f.users.users[1], domain.SessionState{})
	require.NoError(t, err)
	assert.Len(t, d.Recommendations, 3)
}

func TestDecide_MarkIssuedFailureFailsRequest(t *testing.T) {
	f := newFixture(t)
	f.users.markErr = errors.New("db down")

	_, err := f.svc.Decide(context.Background(), chatRequest("실직했어요"), f.users.users[1], domain.SessionState{})
	assert.ErrorContains(t, err, "db down")
	assert.Empty(t, f.audit.records)
}

func TestDecide_SkipsMissingAndIneligibleBenefits(t *testing.T) {
	f := newFixture(t)
	age := 70
	ageMax := 39
	catalog := append([]domain.Benefit(nil), testCatalog...)
	catalog[0].Eligibility = &domain.BenefitEligibility{AgeMax: &ageMax}
	f.svc.catalog = benefit.NewCatalog(catalog)
	f.pools.pool = poolOf("ghost", "job-1", "job-2")

	u := f.users.users[1]
	u.Age = &age

	d, err := f.svc.Decide(context.Background(), chatRequest("실직"), u, domain.SessionState{})
	require.NoError(t, err)
	assert.Equal(t, []string{"job-2"}, ids(d.Recommendations))
}

func TestDecide_UnemploymentScenario(t *testing.T) {
	f := newFixture(t)
	catalog := benefit.NewCatalog([]domain.Benefit{{BenefitID: "job-1", Title: "청년 일자리", Category: "일자리"}})
	f.svc.catalog = catalog
	f.svc.pools = prepool.NewService(&memPoolRepo{pools: map[uint][]domain.PreRecommendation{}}, catalog, f.svc.policy)

	d, err := f.svc.Decide(context.Background(), chatRequest("실직했어요"), f.users.users[1], domain.SessionState{})
	require.NoError(t, err)

	require.Len(t, d.Recommendations, 1)
	c := d.Recommendations[0]
	assert.InDelta(t, 0.70, c.BaseScore, 1e-9)
	assert.InDelta(t, 0.85, c.FinalScore, 1e-9)
	require.Len(t, c.AppliedSignalBoosts, 1)
	assert.Equal(t, "unemployment", c.AppliedSignalBoosts[0].Key)
	assert.LessOrEqual(t, c.FinalScore-c.BaseScore, f.svc.policy.BoostCap()+1e-9)
}

func TestDecide_ScoresStayBounded(t *testing.T) {
	f := newFixture(t)
	f.extractor.result.Signals = []string{"실직", "주거불안", "월세체납"}
	f.pools.pool = []domain.PreRecommendation{
		{BenefitID: "job-1", BaseScore: 0.95},
		{BenefitID: "house-1", BaseScore: 0.9},
	}

	d, err := f.svc.Decide(context.Background(), chatRequest("집도 일도 없어요"), f.users.users[1], domain.SessionState{})
	require.NoError(t, err)

	assert.Equal(t, domain.RiskHigh, d.RiskLevel)
	for _, c := range d.Recommendations {
		assert.GreaterOrEqual(t, c.FinalScore, c.BaseScore)
		assert.LessOrEqual(t, c.FinalScore, 1.0)
	}
}

func TestChat_UnknownUser(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Chat(context.Background(), domain.ChatRequest{UserID: 99, Message: "hi"}, "sess")
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
	assert.Zero(t, f.extractor.calls)
}

func TestChat_MarksSessionWhenIssued(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	resp, err := f.svc.Chat(ctx, chatRequest("실직했어요"), "sess-1")
	require.NoError(t, err)
	assert.True(t, resp.RecommendationIssued)
	assert.Len(t, resp.Recommendations, 3)
	assert.True(t, f.sessions.states["sess-1"].Issued)

	// the session flag now blocks the next turn even though the stored user
	// fake was never updated
	resp, err = f.svc.Chat(ctx, chatRequest("실직했어요"), "sess-1")
	require.NoError(t, err)
	assert.False(t, resp.RecommendationIssued)
	assert.Empty(t, resp.Recommendations)
	assert.NotNil(t, resp.Recommendations)
}

func TestExplain_HasNoSideEffects(t *testing.T) {
	f := newFixture(t)

	exp, err := f.svc.Explain(context.Background(), 1, []string{"실직"}, 10)
	require.NoError(t, err)

	assert.Len(t, exp.Candidates, 4)
	assert.Equal(t, "job-1", exp.Candidates[0].Benefit.BenefitID)
	assert.True(t, exp.Gate.Passed)
	assert.Zero(t, f.extractor.calls)
	assert.Empty(t, f.audit.records)
	assert.Empty(t, f.users.marked)
}

func TestExplain_UnknownUser(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Explain(context.Background(), 42, nil, 0)
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
}

func TestDecide_FallbackRespectsAgeEligibility(t *testing.T) {
	f := newFixture(t)
	age := 70
	ageMin, ageMax := 18, 34
	f.svc.catalog = benefit.NewCatalog([]domain.Benefit{
		{BenefitID: "job-1", Title: "청년 일자리", Category: "일자리",
			Eligibility: &domain.BenefitEligibility{AgeMin: &ageMin, AgeMax: &ageMax}},
	})
	f.pools.pool = poolOf("job-1")

	u := f.users.users[1]
	u.Age = &age

	d, err := f.svc.Decide(context.Background(), chatRequest("실직했어요"), u, domain.SessionState{})
	require.NoError(t, err)

	assert.Empty(t, d.Recommendations)
	assert.False(t, d.Fallback)
	assert.False(t, d.Issued)
	assert.Empty(t, f.users.marked)
	assert.Empty(t, f.audit.records)
}

func TestDecide_FallbackSkipsIneligibleEvenWhenRejectedAreReused(t *testing.T) {
	f := newFixture(t)
	age := 70
	ageMax := 34
	catalog := append([]domain.Benefit(nil), testCatalog...)
	catalog[0].Eligibility = &domain.BenefitEligibility{AgeMax: &ageMax}
	f.svc.catalog = benefit.NewCatalog(catalog)
	f.rejects.ids = map[string]struct{}{"job-1": {}, "house-1": {}, "culture-1": {}, "job-2": {}}

	u := f.users.users[1]
	u.Age = &age

	d, err := f.svc.Decide(context.Background(), chatRequest("일이 없어요"), u, domain.SessionState{})
	require.NoError(t, err)

	assert.True(t, d.Fallback)
	assert.Equal(t, []string{"house-1", "culture-1", "job-2"}, ids(d.Recommendations))
}

type failingEligibility struct {
	failFor string
}

func (c failingEligibility) IsEligible(ctx context.Context, u *domain.User, b domain.Benefit) (bool, error) {
	if b.BenefitID == c.failFor {
		return false, errors.New("lookup timed out")
	}
	return true, nil
}

func TestDecide_EligibilityErrorSkipsBenefit(t *testing.T) {
	f := newFixture(t)
	f.svc.eligChecker = failingEligibility{failFor: "job-1"}

	d, err := f.svc.Decide(context.Background(), chatRequest("실직했어요"), f.users.users[1], domain.SessionState{})
	require.NoError(t, err)

	assert.NotContains(t, ids(d.Recommendations), "job-1")
	assert.Equal(t, []string{"job-2", "house-1", "culture-1"}, ids(d.Recommendations))
}

func TestDecide_AlreadyIssuedOnUserBlocks(t *testing.T) {
	f := newFixture(t)
	u := f.users.users[1]
	u.RecommendationIssued = true

	d, err := f.svc.Decide(context.Background(), chatRequest("또 힘들어요"), u, domain.SessionState{})
	require.NoError(t, err)

	assert.False(t, d.Gate.Passed)
	assert.False(t, d.Gate.Override)
	assert.Equal(t, []ReasonCode{ReasonAlreadyIssued}, d.Gate.Reasons)
	assert.Equal(t, domain.DecisionBlocked, d.DecisionType)
	assert.Empty(t, d.Recommendations)
	assert.Empty(t, f.users.marked)

	require.Len(t, f.audit.records, 1)
	assert.Equal(t, domain.DecisionBlocked, f.audit.records[0].DecisionType)
}
