package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Outbound API client metrics
	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "storefront_api_request_duration_seconds",
			Help:    "Backend API request latency in seconds",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path", "status"},
	)

	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_api_requests_total",
			Help: "Total number of backend API requests",
		},
		[]string{"method", "path", "status"},
	)

	// Session metrics
	TokenRefreshesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_token_refreshes_total",
			Help: "Total number of access token refresh attempts",
		},
		[]string{"outcome"},
	)

	SessionTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_session_transitions_total",
			Help: "Total number of guest/authenticated session transitions",
		},
		[]string{"from", "to"},
	)

	// Cart metrics
	CartOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_cart_operations_total",
			Help: "Total number of cart store operations",
		},
		[]string{"operation", "outcome"},
	)

	// Event bus metrics
	BusEventsEmitted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_bus_events_emitted_total",
			Help: "Total number of in-process events emitted",
		},
		[]string{"event"},
	)

	// Dev backend HTTP metrics
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// Push listener metrics
	PushConnectionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "storefront_push_connections_active",
			Help: "Number of active update-push WebSocket connections",
		},
	)

	PushMessagesReceived = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_push_messages_received_total",
			Help: "Total number of push messages received",
		},
		[]string{"event"},
	)
)
