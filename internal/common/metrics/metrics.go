// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	NegotiationRounds = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quote_negotiation_rounds_total",
			Help: "Total number of negotiation rounds processed",
		},
		[]string{"operation", "outcome"},
	)

	UpstreamCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quote_upstream_calls_total",
			Help: "Total number of calls to the rate-calculation service",
		},
		[]string{"call", "status"},
	)

	UpstreamCallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "quote_upstream_call_duration_seconds",
			Help: "Duration of rate-calculation service calls in seconds",
		},
		[]string{"call"},
	)

	SessionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "quote_sessions_fallback_active",
			Help: "Number of sessions held in the in-memory fallback store",
		},
	)

	StoreFallbacks = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "quote_session_store_fallbacks_total",
			Help: "Times the session store fell back to in-memory storage",
		},
	)
)
