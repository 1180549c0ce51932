// Package observability provides Prometheus metrics, HTTP middleware, and
// OpenTelemetry tracing setup for monitoring the course search service.
package observability

import "github.com/prometheus/client_golang/prometheus"

// SearchBuckets defines histogram buckets suited for database-backed search
// latencies, ranging from 5ms to 10s.
var SearchBuckets = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10}

// Source query outcomes used as the status label of SourceQueriesTotal.
const (
	StatusOK          = "ok"
	StatusError       = "error"
	StatusTimeout     = "timeout"
	StatusUnavailable = "unavailable"
	StatusBreakerOpen = "breaker_open"
)

var (
	// RequestsTotal counts all HTTP requests by method, status class, and route.
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "coursesearch_requests_total",
			Help: "Total requests",
		},
		[]string{"method", "status", "route"},
	)

	// RequestDuration records HTTP request duration in seconds by method and route.
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "coursesearch_request_duration_seconds",
			Help:    "Request duration",
			Buckets: SearchBuckets,
		},
		[]string{"method", "route"},
	)

	// InFlightRequests tracks the number of HTTP requests being served.
	InFlightRequests = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "coursesearch_requests_in_flight",
			Help: "Requests in flight",
		},
	)

	// SearchesTotal counts completed searches by resulting page state.
	SearchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "coursesearch_searches_total",
			Help: "Searches performed",
		},
		[]string{"state"},
	)

	// SearchDuration records end-to-end aggregation latency in seconds.
	SearchDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "coursesearch_search_duration_seconds",
			Help:    "Aggregated search duration",
			Buckets: SearchBuckets,
		},
	)

	// SourceQueriesTotal counts content source invocations by outcome.
	SourceQueriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "coursesearch_source_queries_total",
			Help: "Content source queries",
		},
		[]string{"source", "status"},
	)

	// SourceLatency records per-source query latency in seconds.
	SourceLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "coursesearch_source_latency_seconds",
			Help:    "Content source latency",
			Buckets: SearchBuckets,
		},
		[]string{"source"},
	)

	// SourceResultsTotal counts results contributed by each source.
	SourceResultsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "coursesearch_source_results_total",
			Help: "Results returned per content source",
		},
		[]string{"source"},
	)

	// RowsSkippedTotal counts matched rows dropped during placement resolution.
	RowsSkippedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "coursesearch_rows_skipped_total",
			Help: "Matched rows skipped before becoming results",
		},
		[]string{"source", "reason"},
	)

	// BreakerState reports the circuit breaker state per source
	// (0 closed, 1 half-open, 2 open).
	BreakerState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "coursesearch_source_breaker_state",
			Help: "Circuit breaker state per content source",
		},
		[]string{"source"},
	)

	// RateLimitRejectedTotal counts requests rejected by the rate limiter.
	RateLimitRejectedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "coursesearch_ratelimit_rejected_total",
			Help: "Rate limit rejections by caller role",
		},
		[]string{"role"},
	)

	// ToolCallsTotal counts MCP tool invocations by name and outcome.
	ToolCallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "coursesearch_tool_calls_total",
			Help: "MCP tool calls",
		},
		[]string{"tool_name", "status"},
	)
)

func init() {
	prometheus.MustRegister(
		RequestsTotal,
		RequestDuration,
		InFlightRequests,
		SearchesTotal,
		SearchDuration,
		SourceQueriesTotal,
		SourceLatency,
		SourceResultsTotal,
		RowsSkippedTotal,
		BreakerState,
		RateLimitRejectedTotal,
		ToolCallsTotal,
	)
}
