package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	// Decisions taken by the recommendation engine, by decision type.
	RecommendDecisions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "welfare_recommend_decisions_total",
		Help: "Recommendation decisions by decision type (ISSUED, OVERRIDE, BLOCKED)",
	}, []string{"decision"})

	// Risk level distribution of evaluated chat turns.
	RecommendRisk = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "welfare_recommend_risk_total",
		Help: "Chat turns by classified risk level",
	}, []string{"risk_level"})

	// MC gate failure reasons.
	GateFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "welfare_gate_failures_total",
		Help: "Minimal condition failures by reason code",
	}, []string{"reason"})

	UnknownSignals = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "welfare_unknown_signals_total",
		Help: "Raw extractor signals that mapped to no canonical signal",
	})

	AuditWriteFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "welfare_audit_write_failures_total",
		Help: "Decision audit records that could not be written",
	})

	PoolRebuilds = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "welfare_pool_rebuilds_total",
		Help: "Pre-recommendation pools (re)built and persisted",
	})

	FallbackRecommendations = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "welfare_fallback_recommendations_total",
		Help: "Admitted decisions served from the unscored catalog fallback",
	})
)

func Init() {
	prometheus.MustRegister(
		RecommendDecisions,
		RecommendRisk,
		GateFailures,
		UnknownSignals,
		AuditWriteFailures,
		PoolRebuilds,
		FallbackRecommendations,
	)
}
