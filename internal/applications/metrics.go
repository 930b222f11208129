package applications

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	decisionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "onboarding",
			Subsystem: "workflow",
			Name:      "decisions_total",
			Help:      "Applications reaching a disposition",
		},
		[]string{"account_type", "status"},
	)

	stageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "onboarding",
			Subsystem: "workflow",
			Name:      "stage_duration_seconds",
			Help:      "Time spent running each workflow stage",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"stage"},
	)

	conflictsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "onboarding",
			Subsystem: "workflow",
			Name:      "concurrency_conflicts_total",
			Help:      "Process calls rejected because the application was held",
		},
	)

	queueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "onboarding",
			Subsystem: "workflow",
			Name:      "queue_depth",
			Help:      "Submitted applications waiting for a worker",
		},
	)
)
