package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Metering Prometheus metrics.
var (
	UpstreamRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tokenmeter",
			Name:      "upstream_requests_total",
			Help:      "Total number of provider requests",
		},
		[]string{"status"}, // HTTP status code, or "error" for transport failures
	)

	UpstreamRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "tokenmeter",
			Name:      "upstream_request_duration_seconds",
			Help:      "Provider request duration in seconds",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		},
		[]string{"outcome"}, // "success" / "error"
	)

	UpstreamTokensTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "tokenmeter",
			Name:      "upstream_tokens_total",
			Help:      "Total tokens reported by the provider and charged to callers",
		},
	)

	QuotaDecisionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tokenmeter",
			Name:      "quota_decisions_total",
			Help:      "Quota guard decisions",
		},
		[]string{"decision", "reason"},
	)

	UsageResetsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tokenmeter",
			Name:      "usage_resets_total",
			Help:      "Usage reset job runs",
		},
		[]string{"job", "status"},
	)

	UsageResetCallersTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tokenmeter",
			Name:      "usage_reset_callers_total",
			Help:      "Caller records touched by usage reset jobs",
		},
		[]string{"job"},
	)
)

var registerMeterOnce sync.Once

// RegisterMeterMetrics registers the metering metrics with the default registry.
// Safe to call more than once.
func RegisterMeterMetrics() {
	registerMeterOnce.Do(func() {
		prometheus.MustRegister(
			UpstreamRequestsTotal,
			UpstreamRequestDuration,
			UpstreamTokensTotal,
			QuotaDecisionsTotal,
			UsageResetsTotal,
			UsageResetCallersTotal,
		)
	})
}
