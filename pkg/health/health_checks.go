package health

import (
	"fmt"
	"time"
)

// Common health check functions

// SimpleCheck creates a check result that always reports healthy
func SimpleCheck(name string) Check {
	return Check{
		Name:        name,
		Status:      StatusHealthy,
		LastChecked: time.Now(),
	}
}

// NetworkCheck reports on the simulated network. A compromised network
// is degraded rather than unhealthy: the simulator itself is fine, that
// is the whole point of running attacks.
func NetworkCheck(counts func() (total, compromised int)) CheckFunc {
	return func() Check {
		check := Check{
			Name:    "network",
			Details: make(map[string]any),
		}

		total, compromised := counts()

		check.Details["total_devices"] = total
		check.Details["compromised_devices"] = compromised

		switch {
		case total == 0:
			check.Status = StatusUnhealthy
			check.Message = "No devices configured"
		case compromised == 0:
			check.Status = StatusHealthy
			check.Message = "All devices clean"
		case compromised < total:
			check.Status = StatusDegraded
			check.Message = fmt.Sprintf("%d of %d devices compromised", compromised, total)
		default:
			check.Status = StatusDegraded
			check.Message = "Every device compromised"
		}

		return check
	}
}

// AttackCheck reports whether an attack simulation is executing. Always
// healthy; the flag is informational.
func AttackCheck(running func() bool) CheckFunc {
	return func() Check {
		check := Check{
			Name:    "attack",
			Status:  StatusHealthy,
			Details: make(map[string]any),
		}

		if running() {
			check.Message = "Attack simulation running"
			check.Details["attack_running"] = true
		} else {
			check.Message = "Idle"
			check.Details["attack_running"] = false
		}

		return check
	}
}

// EventBusCheck reports subscriber counts on the event bus
func EventBusCheck(subscribers func() map[string]int) CheckFunc {
	return func() Check {
		check := Check{
			Name:    "event_bus",
			Status:  StatusHealthy,
			Details: make(map[string]any),
		}

		total := 0
		for topic, n := range subscribers() {
			check.Details[topic] = n
			total += n
		}
		check.Message = fmt.Sprintf("%d subscribers", total)

		return check
	}
}

// MemoryCheck creates a health check for memory usage
func MemoryCheck(getUsage func() (alloc, sys uint64)) CheckFunc {
	return func() Check {
		check := Check{
			Name:    "memory",
			Details: make(map[string]any),
		}

		alloc, sys := getUsage()

		check.Details["alloc_bytes"] = alloc
		check.Details["sys_bytes"] = sys

		usagePercent := float64(alloc) / float64(sys) * 100

		if usagePercent > 90 {
			check.Status = StatusDegraded
			check.Message = "High memory usage"
		} else {
			check.Status = StatusHealthy
			check.Message = "Memory usage normal"
		}

		return check
	}
}
