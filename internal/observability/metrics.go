package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "law_backend"

// Completion outcomes.
const (
	OutcomeOK       = "ok"
	OutcomeFallback = "fallback"
	OutcomeTimeout  = "timeout"
)

var (
	CompletionOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "completion_outcomes_total",
		Help:      "Completion calls by provider and outcome.",
	}, []string{"provider", "outcome"})

	CompletionLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "completion_latency_ms",
		Help:      "Latency of upstream completion calls in milliseconds.",
		Buckets:   []float64{250, 500, 1000, 2000, 5000, 10000, 20000, 30000},
	}, []string{"provider"})

	ConversationMode = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "conversation_storage_mode_total",
		Help:      "Conversation requests by selected storage mode.",
	}, []string{"mode"})

	PersistFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "conversation_persist_failures_total",
		Help:      "Durable transcript writes that failed and were swallowed.",
	})

	DurableReady = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "durable_store_ready",
		Help:      "1 when the durable store answered its last health ping.",
	})
)

func ObserveCompletion(provider, outcome string, d time.Duration) {
	CompletionOutcomes.WithLabelValues(provider, outcome).Inc()
	CompletionLatency.WithLabelValues(provider).Observe(float64(d.Milliseconds()))
}

func MetricsHandler() http.Handler {
	return promhttp.Handler()
}
