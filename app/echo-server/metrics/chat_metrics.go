package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	ChatDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "welfare_chat_latency_seconds",
		Help:    "Latency of the recommendation chat endpoint",
		Buckets: []float64{0.25, 0.5, 1, 2, 4, 8, 16, 32},
	})

	ChatTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "welfare_chat_requests_total",
		Help: "Chat requests served, by response status",
	}, []string{"status"})
)

func Init() {
	prometheus.MustRegister(ChatDuration, ChatTotal)
}
