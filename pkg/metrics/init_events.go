package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initEventMetrics() {
	r.EventsPublishedTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "zerotrust_events_published_total",
			Help: "Total number of events delivered to subscribers by topic",
		},
		[]string{"topic"},
	)

	r.EventsDroppedTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "zerotrust_events_dropped_total",
			Help: "Total number of events dropped because a subscriber buffer was full",
		},
		[]string{"topic"},
	)

	r.WebsocketClients = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "zerotrust_websocket_clients",
			Help: "Current number of connected websocket clients",
		},
	)
}
