package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Outbound API request metrics
	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "Outbound API request latency in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path", "status"},
	)

	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of outbound API requests",
		},
		[]string{"method", "path", "status"},
	)

	APIRequestRetriesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "api_request_retries_total",
			Help: "Total number of requests re-issued after a token refresh",
		},
	)

	// Token refresh metrics
	TokenRefreshTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "token_refresh_total",
			Help: "Total number of token refresh rounds by outcome",
		},
		[]string{"outcome"},
	)

	TokenRefreshWaiters = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "token_refresh_waiters_total",
			Help: "Total number of callers that waited on an in-flight refresh",
		},
	)

	// Query cache metrics
	CacheOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "query_cache_operations_total",
			Help: "Total number of query cache lookups by result",
		},
		[]string{"result"},
	)

	CacheEntries = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "query_cache_entries",
			Help: "Number of entries currently held in the query cache",
		},
	)

	// Upload metrics
	UploadBytesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "upload_bytes_total",
			Help: "Total number of bytes sent through file uploads",
		},
	)
)

// Token refresh outcomes
const (
	RefreshOutcomeSuccess      = "success"
	RefreshOutcomeFailure      = "failure"
	RefreshOutcomeShortCircuit = "short_circuit"
)
