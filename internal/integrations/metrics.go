package integrations

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	callsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "onboarding",
			Subsystem: "integration",
			Name:      "calls_total",
			Help:      "Settled integration calls by outcome status",
		},
		[]string{"integration", "status"},
	)

	callDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "onboarding",
			Subsystem: "integration",
			Name:      "call_duration_seconds",
			Help:      "Wall-clock time from dispatch to settlement, retries included",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"integration"},
	)

	retriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "onboarding",
			Subsystem: "integration",
			Name:      "retries_total",
			Help:      "Integration attempts that were retried",
		},
		[]string{"integration"},
	)
)
