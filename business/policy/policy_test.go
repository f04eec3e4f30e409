package policy

import (
	"math"
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testPolicyYAML = `
boostCap: 0.2
baseTagBoost:
  " 미취업 ":
    categories: [JOB]
    boost: 0.05
  저소득:
    categories: [housing, living]
    boost: 0.05
signalBoost:
  unemployment:
    categories: [job]
    boost: 0.1
  housing_stress:
    categories: [housing]
    boost: 0.15
  low_income:
    categories: [living, housing]
    boost: 0.1
categoryKeywords:
  JOB: ["일자리", "취업 지원"]
  housing: ["주거"]
  living: ["생계", "생활"]
reRecommendTriggers:
  - "다시 추천"
  - " Another One "
  - ""
`

func newTestTable(t *testing.T) *Table {
	t.Helper()
	tbl, err := ParseTable([]byte(testPolicyYAML))
	require.NoError(t, err)
	return tbl
}

func TestParseTable_NormalizesKeys(t *testing.T) {
	tbl := newTestTable(t)

	rule, ok := tbl.BaseTagRule("미취업")
	require.True(t, ok)
	assert.Equal(t, []string{"job"}, rule.Categories)

	_, ok = tbl.CategoryKeywords()["job"]
	assert.True(t, ok)
	assert.Equal(t, []string{"다시 추천", "another one"}, tbl.ReRecommendTriggers())
}

func TestParseTable_DefaultsWhenEmpty(t *testing.T) {
	tbl, err := ParseTable([]byte("{}"))
	require.NoError(t, err)

	assert.Equal(t, 0.2, tbl.BoostCap())
	assert.NotNil(t, tbl.BaseTagRules())
	assert.NotNil(t, tbl.SignalRules())
	assert.NotNil(t, tbl.CategoryKeywords())
	assert.NotNil(t, tbl.ReRecommendTriggers())
	assert.Equal(t, DefaultEngineSettings(), tbl.Engine())
	assert.Empty(t, tbl.ResolveCategories("일자리"))
}

func TestParseTable_EngineOverrides(t *testing.T) {
	tbl, err := ParseTable([]byte("engine:\n  poolSize: 5\n  topN: 2\n  poolTagIncrement: 0.3\n"))
	require.NoError(t, err)

	e := tbl.Engine()
	assert.Equal(t, 5, e.PoolSize)
	assert.Equal(t, 2, e.TopN)
	assert.Equal(t, 0.3, e.PoolTagIncrement)
	assert.Equal(t, 0.5, e.PoolBaseScore)
}

func TestParseTable_RejectsNegativeCap(t *testing.T) {
	_, err := ParseTable([]byte("boostCap: -0.1"))
	assert.Error(t, err)
}

func TestResolveCategories(t *testing.T) {
	tbl := newTestTable(t)

	tests := []struct {
		name     string
		category string
		want     []string
	}{
		{"single", "일자리", []string{"job"}},
		{"case and space insensitive", "  청년 취업지원 ", []string{"job"}},
		{"multiple", "주거/생활 안정", []string{"housing", "living"}},
		{"none", "문화", []string{}},
		{"blank", "   ", []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, tbl.ResolveCategories(tt.category)); diff != "" {
				t.Errorf("ResolveCategories(%q) mismatch (-want +got):\n%s", tt.category, diff)
			}
		})
	}
}

func TestMatchesTrigger(t *testing.T) {
	tbl := newTestTable(t)

	assert.True(t, tbl.MatchesTrigger("혹시 다시추천 해줄 수 있어?"))
	assert.True(t, tbl.MatchesTrigger("give me ANOTHER one"))
	assert.False(t, tbl.MatchesTrigger("고마워요"))
	assert.False(t, tbl.MatchesTrigger(""))
}

func TestAccumulator_HardCap(t *testing.T) {
	acc := NewAccumulator(0.2)

	assert.InDelta(t, 0.15, acc.Apply(0.15), 1e-9)
	assert.InDelta(t, 0.05, acc.Apply(0.15), 1e-9)
	assert.Equal(t, 0.0, acc.Apply(0.15))
	assert.Equal(t, 0.0, acc.Apply(-1))
	assert.InDelta(t, 0.2, acc.Consumed(), 1e-9)
	assert.Equal(t, 0.0, acc.Remaining())
}

func TestAccumulator_RandomSequencesNeverExceedCap(t *testing.T) {
	r := rand.New(rand.NewSource(42))

	for i := 0; i < 500; i++ {
		limit := r.Float64()
		acc := NewAccumulator(limit)
		total := 0.0
		for j := 0; j < 20; j++ {
			applied := acc.Apply(r.Float64()*0.3 - 0.05)
			require.GreaterOrEqual(t, applied, 0.0)
			total += applied
		}
		require.LessOrEqual(t, total, limit+1e-9)
	}
}

func TestScore_BaseTagsBeforeSignals(t *testing.T) {
	tbl := newTestTable(t)

	got := tbl.Score("주거 지원", 0.5, []string{"저소득"}, []string{"housing_stress", "low_income"})

	require.Len(t, got.BaseTagBoosts, 1)
	require.Len(t, got.SignalBoosts, 2)
	assert.InDelta(t, 0.05, got.BaseTagBoosts[0].Applied, 1e-9)
	assert.InDelta(t, 0.15, got.SignalBoosts[0].Applied, 1e-9)
	// cap exhausted before the last rule
	assert.InDelta(t, 0.0, got.SignalBoosts[1].Applied, 1e-9)
	assert.InDelta(t, 0.7, got.FinalScore, 1e-9)
}

func TestScore_NoMatchingCategory(t *testing.T) {
	tbl := newTestTable(t)

	got := tbl.Score("문화", 0.5, []string{"미취업"}, []string{"unemployment"})

	assert.Empty(t, got.BaseTagBoosts)
	assert.Empty(t, got.SignalBoosts)
	assert.Equal(t, 0.5, got.FinalScore)
}

func TestScore_FinalScoreBounded(t *testing.T) {
	tbl := newTestTable(t)

	got := tbl.Score("일자리", 0.95, []string{"미취업"}, []string{"unemployment"})

	assert.Equal(t, 1.0, got.FinalScore)
	assert.GreaterOrEqual(t, got.FinalScore, got.BaseScore)
	assert.LessOrEqual(t, got.TotalBoost, tbl.BoostCap()+1e-9)
}

func TestScore_UnemployedJobSeekerScenario(t *testing.T) {
	tbl, err := ParseTable([]byte(`
baseTagBoost:
  미취업: {categories: [job], boost: 0}
signalBoost:
  unemployment: {categories: [job], boost: 0.1}
categoryKeywords:
  job: [일자리]
`))
	require.NoError(t, err)

	got := tbl.Score("일자리", 0.70, []string{"미취업"}, []string{"unemployment"})

	assert.InDelta(t, math.Min(0.70+0.1, 1.0), got.FinalScore, 1e-9)
}
