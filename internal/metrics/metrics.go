package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Session Metrics
var (
	// AuthAttemptsTotal tracks register/login/restore attempts by operation and status
	AuthAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vpnapp_auth_attempts_total",
			Help: "Authentication attempts by operation and status",
		},
		[]string{"operation", "status"},
	)

	// SessionsActive tracks the current identity mode (one series per mode, 0 or 1)
	SessionsActive = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "vpnapp_identity_mode",
			Help: "Current identity mode (exactly one series is 1)",
		},
		[]string{"mode"},
	)
)

// Catalog Metrics
var (
	// CatalogFetchesTotal tracks catalog fetches by status
	CatalogFetchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vpnapp_catalog_fetches_total",
			Help: "Catalog fetches by status",
		},
		[]string{"status"},
	)

	// CatalogFetchDuration tracks catalog fetch latency in seconds
	CatalogFetchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "vpnapp_catalog_fetch_duration_seconds",
			Help:    "Catalog fetch duration in seconds",
			Buckets: []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
	)

	// CatalogStaleResponsesTotal counts fetch responses discarded by the generation guard
	CatalogStaleResponsesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "vpnapp_catalog_stale_responses_total",
			Help: "Catalog responses discarded because a newer fetch was issued",
		},
	)
)

// Connection Metrics
var (
	// ConnectionTransitionsTotal tracks connection state machine transitions by target state
	ConnectionTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vpnapp_connection_transitions_total",
			Help: "Connection state machine transitions by target state",
		},
		[]string{"state"},
	)

	// CircuitBreakerStateChanges tracks catalog circuit breaker transitions
	CircuitBreakerStateChanges = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vpnapp_circuit_breaker_state_changes_total",
			Help: "Circuit breaker state transitions by component and new state",
		},
		[]string{"component", "state"},
	)
)

// API Client Metrics
var (
	// APIRequestsTotal tracks backend requests by endpoint and status
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vpnapp_api_requests_total",
			Help: "Backend API requests by endpoint and status",
		},
		[]string{"endpoint", "status"},
	)
)
