package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initAccessMetrics() {
	r.AccessDecisionsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "zerotrust_access_decisions_total",
			Help: "Total number of access decisions by outcome",
		},
		[]string{"decision"},
	)

	r.AccessRiskScore = promauto.With(r.registry).NewHistogram(
		prometheus.HistogramOpts{
			Name:    "zerotrust_access_risk_score",
			Help:    "Distribution of overall risk scores across evaluated requests",
			Buckets: prometheus.LinearBuckets(0.1, 0.1, 9),
		},
	)

	r.ActivityBatchesTotal = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "zerotrust_activity_batches_total",
			Help: "Total number of activity simulation batches started",
		},
	)
}
