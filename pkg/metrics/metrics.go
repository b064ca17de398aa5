package metrics

import (
	"time"
)

// RecordHTTPRequest records an HTTP request with its duration
func (r *Registry) RecordHTTPRequest(method, path, status string, duration time.Duration) {
	r.HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	r.HTTPRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}

// RecordAccessDecision records one evaluated access request
func (r *Registry) RecordAccessDecision(decision string, overallRisk float64) {
	r.AccessDecisionsTotal.WithLabelValues(decision).Inc()
	r.AccessRiskScore.Observe(overallRisk)
}

// RecordActivityBatch records the start of an activity simulation batch
func (r *Registry) RecordActivityBatch() {
	r.ActivityBatchesTotal.Inc()
}

// RecordAttackStart records the beginning of an attack run
func (r *Registry) RecordAttackStart(model string) {
	r.AttackRunsTotal.WithLabelValues(model).Inc()
}

// RecordAttackStep records one lateral movement attempt
func (r *Registry) RecordAttackStep(model, result string) {
	r.AttackStepsTotal.WithLabelValues(model, result).Inc()
}

// RecordAttackComplete records the wall-clock time of a finished attack run
func (r *Registry) RecordAttackComplete(model string, duration time.Duration) {
	r.AttackDuration.WithLabelValues(model).Observe(duration.Seconds())
}

// RecordNetworkReset records a network reset
func (r *Registry) RecordNetworkReset() {
	r.NetworkResetsTotal.Inc()
}

// UpdateNetworkGauges refreshes the device gauges after a state change
func (r *Registry) UpdateNetworkGauges(totalDevices, compromised int) {
	r.NetworkDevicesTotal.Set(float64(totalDevices))
	r.CompromisedDevices.Set(float64(compromised))
}

// RecordEventPublish records the fan-out result of one published event
func (r *Registry) RecordEventPublish(topic string, sent, dropped int) {
	if sent > 0 {
		r.EventsPublishedTotal.WithLabelValues(topic).Add(float64(sent))
	}
	if dropped > 0 {
		r.EventsDroppedTotal.WithLabelValues(topic).Add(float64(dropped))
	}
}
