// Package audit keeps a bounded in-memory trail of everything the
// simulator decided and did: access evaluations, attack steps, resets.
package audit

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Kind classifies audit events
type Kind string

const (
	KindAccessDecision Kind = "access_decision"
	KindAttackStep     Kind = "attack_step"
	KindAttackComplete Kind = "attack_complete"
	KindNetworkReset   Kind = "network_reset"
)

// Event represents a single audit trail entry
type Event struct {
	ID        string         `json:"id"`
	Timestamp time.Time      `json:"timestamp"`
	Kind      Kind           `json:"kind"`
	UserID    string         `json:"user_id,omitempty"`
	DeviceID  string         `json:"device_id,omitempty"`
	Resource  string         `json:"resource,omitempty"`
	Decision  string         `json:"decision,omitempty"`
	Reason    string         `json:"reason,omitempty"`
	Model     string         `json:"model,omitempty"`
	AttackID  string         `json:"attack_id,omitempty"`
	Source    string         `json:"source,omitempty"`
	Target    string         `json:"target,omitempty"`
	Result    string         `json:"result,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// Filter represents filtering criteria for audit events
type Filter struct {
	Kind      Kind
	UserID    string
	DeviceID  string
	Decision  string
	Model     string
	AttackID  string
	StartTime *time.Time
	EndTime   *time.Time
}

// Trail manages audit events with a circular buffer
type Trail struct {
	events     []*Event
	bufferSize int
	index      int
	count      int
	mu         sync.RWMutex
}

// NewTrail creates a new audit trail with the specified buffer size
func NewTrail(bufferSize int) *Trail {
	return &Trail{
		events:     make([]*Event, bufferSize),
		bufferSize: bufferSize,
		index:      0,
		count:      0,
	}
}

// Log records an audit event
func (t *Trail) Log(event *Event) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	// Set timestamp and ID if not set
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	if event.ID == "" {
		event.ID = uuid.New().String()
	}

	// Store in circular buffer
	t.events[t.index] = event
	t.index = (t.index + 1) % t.bufferSize

	// Track total count (up to buffer size)
	if t.count < t.bufferSize {
		t.count++
	}

	return nil
}

// GetEvents retrieves audit events with optional filtering, oldest first
func (t *Trail) GetEvents(filter *Filter) []*Event {
	t.mu.RLock()
	defer t.mu.RUnlock()

	result := make([]*Event, 0, t.count)

	for i := 0; i < t.count; i++ {
		// Calculate the actual index in the circular buffer
		idx := (t.index - t.count + i + t.bufferSize) % t.bufferSize
		event := t.events[idx]

		if event == nil {
			continue
		}

		if filter != nil {
			if filter.Kind != "" && event.Kind != filter.Kind {
				continue
			}
			if filter.UserID != "" && event.UserID != filter.UserID {
				continue
			}
			if filter.DeviceID != "" && event.DeviceID != filter.DeviceID {
				continue
			}
			if filter.Decision != "" && event.Decision != filter.Decision {
				continue
			}
			if filter.Model != "" && event.Model != filter.Model {
				continue
			}
			if filter.AttackID != "" && event.AttackID != filter.AttackID {
				continue
			}
			if filter.StartTime != nil && event.Timestamp.Before(*filter.StartTime) {
				continue
			}
			if filter.EndTime != nil && event.Timestamp.After(*filter.EndTime) {
				continue
			}
		}

		result = append(result, event)
	}

	return result
}

// GetRecentEvents returns the N most recent events, newest first
func (t *Trail) GetRecentEvents(n int) []*Event {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if n > t.count {
		n = t.count
	}

	result := make([]*Event, 0, n)

	for i := 0; i < n; i++ {
		idx := (t.index - 1 - i + t.bufferSize) % t.bufferSize
		if t.events[idx] != nil {
			result = append(result, t.events[idx])
		}
	}

	return result
}

// GetEventCount returns the total number of events currently stored
func (t *Trail) GetEventCount() int64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return int64(t.count)
}

// Clear removes all events from the trail
func (t *Trail) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.events = make([]*Event, t.bufferSize)
	t.index = 0
	t.count = 0
}

// NewAccessEvent creates an audit entry for one evaluated access request
func NewAccessEvent(userID, deviceID, resource, decision, reason string) *Event {
	return &Event{
		ID:        uuid.New().String(),
		Timestamp: time.Now(),
		Kind:      KindAccessDecision,
		UserID:    userID,
		DeviceID:  deviceID,
		Resource:  resource,
		Decision:  decision,
		Reason:    reason,
	}
}

// NewAttackStepEvent creates an audit entry for one lateral movement attempt
func NewAttackStepEvent(model, attackID, source, target, result, reason string) *Event {
	return &Event{
		ID:        uuid.New().String(),
		Timestamp: time.Now(),
		Kind:      KindAttackStep,
		Model:     model,
		AttackID:  attackID,
		Source:    source,
		Target:    target,
		Result:    result,
		Reason:    reason,
	}
}

// NewAttackCompleteEvent creates an audit entry for a finished attack run
func NewAttackCompleteEvent(model, attackID string, compromised, total int, containment string) *Event {
	return &Event{
		ID:        uuid.New().String(),
		Timestamp: time.Now(),
		Kind:      KindAttackComplete,
		Model:     model,
		AttackID:  attackID,
		Metadata: map[string]any{
			"compromised_count":         compromised,
			"total_nodes":               total,
			"containment_effectiveness": containment,
		},
	}
}

// NewResetEvent creates an audit entry for a network reset
func NewResetEvent() *Event {
	return &Event{
		ID:        uuid.New().String(),
		Timestamp: time.Now(),
		Kind:      KindNetworkReset,
	}
}

// String returns a human-readable representation of an event
func (e *Event) String() string {
	switch e.Kind {
	case KindAccessDecision:
		return fmt.Sprintf("[%s] %s: %s@%s -> %s (%s: %s)",
			e.Timestamp.Format(time.RFC3339),
			e.Kind,
			e.UserID,
			e.DeviceID,
			e.Resource,
			e.Decision,
			e.Reason,
		)
	case KindAttackStep:
		return fmt.Sprintf("[%s] %s: %s %s->%s %s (%s)",
			e.Timestamp.Format(time.RFC3339),
			e.Kind,
			e.Model,
			e.Source,
			e.Target,
			e.Result,
			e.Reason,
		)
	default:
		return fmt.Sprintf("[%s] %s", e.Timestamp.Format(time.RFC3339), e.Kind)
	}
}
