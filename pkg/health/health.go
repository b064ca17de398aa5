// Package health aggregates named component checks into liveness and
// readiness signals for the HTTP layer.
package health

import (
	"time"
)

// NewChecker creates a health checker
func NewChecker() *Checker {
	return &Checker{
		checks:      make(map[string]CheckFunc),
		readyChecks: make(map[string]CheckFunc),
		liveChecks:  make(map[string]CheckFunc),
		started:     time.Now(),
	}
}

// RegisterCheck registers a general health check
func (c *Checker) RegisterCheck(name string, check CheckFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.checks[name] = check
}

// RegisterReadinessCheck registers a readiness check
func (c *Checker) RegisterReadinessCheck(name string, check CheckFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.readyChecks[name] = check
}

// RegisterLivenessCheck registers a liveness check
func (c *Checker) RegisterLivenessCheck(name string, check CheckFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.liveChecks[name] = check
}

// Check performs all general health checks
func (c *Checker) Check() Response {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.performChecks(c.checks)
}

// CheckReadiness performs readiness checks
func (c *Checker) CheckReadiness() Response {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.performChecks(c.readyChecks)
}

// CheckLiveness performs liveness checks
func (c *Checker) CheckLiveness() Response {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.performChecks(c.liveChecks)
}

func (c *Checker) performChecks(checksMap map[string]CheckFunc) Response {
	response := Response{
		Status:        StatusHealthy,
		Timestamp:     time.Now(),
		Checks:        make(map[string]Check),
		UptimeSeconds: time.Since(c.started).Seconds(),
	}

	for name, checkFunc := range checksMap {
		start := time.Now()
		check := checkFunc()
		check.Duration = time.Since(start)
		check.LastChecked = start

		response.Checks[name] = check

		// Worst status wins
		if check.Status == StatusUnhealthy {
			response.Status = StatusUnhealthy
		} else if check.Status == StatusDegraded && response.Status != StatusUnhealthy {
			response.Status = StatusDegraded
		}
	}

	return response
}
