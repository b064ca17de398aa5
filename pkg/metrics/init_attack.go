package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initAttackMetrics() {
	r.AttackRunsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "zerotrust_attack_runs_total",
			Help: "Total number of attack simulations started by model",
		},
		[]string{"model"},
	)

	r.AttackStepsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "zerotrust_attack_steps_total",
			Help: "Total number of attack steps by model and result",
		},
		[]string{"model", "result"},
	)

	r.AttackDuration = promauto.With(r.registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "zerotrust_attack_duration_seconds",
			Help:    "Wall-clock duration of completed attack runs",
			Buckets: []float64{1, 5, 10, 15, 20, 30, 45, 60},
		},
		[]string{"model"},
	)

	r.CompromisedDevices = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "zerotrust_compromised_devices",
			Help: "Current number of compromised devices",
		},
	)

	r.NetworkDevicesTotal = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "zerotrust_network_devices",
			Help: "Total number of devices in the simulated network",
		},
	)

	r.NetworkResetsTotal = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "zerotrust_network_resets_total",
			Help: "Total number of network resets",
		},
	)
}
