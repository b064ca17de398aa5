package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Registry holds all metrics for the simulator
type Registry struct {
	// HTTP Metrics
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge

	// Access Decision Metrics
	AccessDecisionsTotal *prometheus.CounterVec
	AccessRiskScore      prometheus.Histogram
	ActivityBatchesTotal prometheus.Counter

	// Attack Metrics
	AttackRunsTotal     *prometheus.CounterVec
	AttackStepsTotal    *prometheus.CounterVec
	AttackDuration      *prometheus.HistogramVec
	CompromisedDevices  prometheus.Gauge
	NetworkDevicesTotal prometheus.Gauge
	NetworkResetsTotal  prometheus.Counter

	// Event Bus Metrics
	EventsPublishedTotal *prometheus.CounterVec
	EventsDroppedTotal   *prometheus.CounterVec
	WebsocketClients     prometheus.Gauge

	// System Metrics
	UptimeSeconds    prometheus.Gauge
	GoRoutines       prometheus.Gauge
	MemoryAllocBytes prometheus.Gauge
	MemorySysBytes   prometheus.Gauge

	registry *prometheus.Registry
}

var (
	// Global registry instance
	defaultRegistry *Registry
	once            sync.Once
)

// DefaultRegistry returns the global metrics registry
func DefaultRegistry() *Registry {
	once.Do(func() {
		defaultRegistry = NewRegistry()
	})
	return defaultRegistry
}

// NewRegistry creates a new metrics registry with all metrics initialized
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()

	r := &Registry{
		registry: reg,
	}

	// Initialize all metrics
	r.initHTTPMetrics()
	r.initAccessMetrics()
	r.initAttackMetrics()
	r.initEventMetrics()
	r.initSystemMetrics()

	return r
}

// GetPrometheusRegistry returns the underlying Prometheus registry
func (r *Registry) GetPrometheusRegistry() *prometheus.Registry {
	return r.registry
}
