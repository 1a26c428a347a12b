package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics for monitoring
var (
	QuoteCacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "swapsage_quote_cache_lookups_total",
		Help: "Quote cache lookups by result (hit, miss, stale, shared)",
	}, []string{"result"})

	UpstreamRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "swapsage_upstream_requests_total",
		Help: "Requests sent to the swap aggregator by endpoint and outcome",
	}, []string{"endpoint", "outcome"})

	UpstreamLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "swapsage_upstream_request_seconds",
		Help:    "Latency of swap aggregator requests",
		Buckets: prometheus.ExponentialBuckets(0.05, 2, 10), // 50ms doubling up to ~25s
	}, []string{"endpoint"})

	RiskLabels = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "swapsage_quote_risk_total",
		Help: "Quotes served by risk label",
	}, []string{"level"})

	IntentTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "swapsage_intent_transitions_total",
		Help: "Swap intent status changes by target status and outcome",
	}, []string{"status", "outcome"})

	ExplanationLogFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "swapsage_explanation_log_failures_total",
		Help: "Explanation history writes that failed and were dropped",
	})

	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "swapsage_http_requests_total",
		Help: "API requests by route and status code",
	}, []string{"route", "code"})

	HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "swapsage_http_request_seconds",
		Help:    "API request latency by route",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})
)
