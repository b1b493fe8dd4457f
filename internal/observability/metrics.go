package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "omnidesk_http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)
	httpRequestDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "omnidesk_http_request_duration_seconds",
			Help:    "HTTP request latency by route.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
	chatRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "omnidesk_chat_runs_total",
			Help: "Total number of orchestration runs by outcome.",
		},
		[]string{"outcome"},
	)
	chatRunDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "omnidesk_chat_run_duration_seconds",
			Help:    "End-to-end orchestration latency in seconds.",
			Buckets: []float64{0.5, 1, 2, 4, 8, 15, 30, 60, 120},
		},
	)
	llmRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "omnidesk_llm_requests_total",
			Help: "Total number of language model calls by stage, model and outcome.",
		},
		[]string{"stage", "model", "outcome"},
	)
	llmFallbackTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "omnidesk_llm_fallback_total",
			Help: "Total number of primary-to-fallback model switches.",
		},
	)
	planFallbackTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "omnidesk_plan_fallback_total",
			Help: "Total number of runs that used the default plan, by reason.",
		},
		[]string{"reason"},
	)
	sqlRejectedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "omnidesk_sql_rejected_total",
			Help: "Total number of generated statements replaced by the sentinel.",
		},
		[]string{"store"},
	)
	storeQueriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "omnidesk_store_queries_total",
			Help: "Total number of store queries by outcome.",
		},
		[]string{"store", "outcome"},
	)
	storeQueryDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "omnidesk_store_query_duration_seconds",
			Help:    "Store query latency in seconds.",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"store"},
	)
)

func init() {
	prometheus.MustRegister(
		httpRequestsTotal,
		httpRequestDurationSeconds,
		chatRunsTotal,
		chatRunDurationSeconds,
		llmRequestsTotal,
		llmFallbackTotal,
		planFallbackTotal,
		sqlRejectedTotal,
		storeQueriesTotal,
		storeQueryDurationSeconds,
	)
}

func ObserveChatRun(err error, elapsed time.Duration) {
	chatRunsTotal.WithLabelValues(outcome(err)).Inc()
	chatRunDurationSeconds.Observe(elapsed.Seconds())
}

func ObserveLLMRequest(stage, model string, err error) {
	llmRequestsTotal.WithLabelValues(stage, model, outcome(err)).Inc()
}

func IncrementLLMFallback() {
	llmFallbackTotal.Inc()
}

func IncrementPlanFallback(reason string) {
	planFallbackTotal.WithLabelValues(reason).Inc()
}

func IncrementSQLRejected(store string) {
	sqlRejectedTotal.WithLabelValues(store).Inc()
}

func ObserveStoreQuery(store string, err error, elapsed time.Duration) {
	storeQueriesTotal.WithLabelValues(store, outcome(err)).Inc()
	storeQueryDurationSeconds.WithLabelValues(store).Observe(elapsed.Seconds())
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
