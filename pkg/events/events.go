// Package events fans simulator state changes out to whoever is watching:
// the websocket relay, the terminal dashboard, tests.
package events

import (
	"context"
	"errors"
	"sync"
)

// Topics published by the simulation engine
const (
	TopicActivity = "activity_update"
	TopicAttack   = "attack_update"
	TopicReset    = "network_reset"
)

// ErrClosed is returned by Subscribe after the bus has shut down
var ErrClosed = errors.New("events: bus closed")

// subscriptionBuffer is the per-subscriber channel depth. Attack and
// activity loops publish on simulation cadence, so a consumer this far
// behind is stuck, not slow.
const subscriptionBuffer = 100

// Event is one published message together with the topic it arrived on
type Event struct {
	Topic string
	Data  any
}

// Bus provides publish/subscribe fan-out for real-time simulator updates
type Bus struct {
	subscribers map[string]map[*Subscription]bool
	mu          sync.RWMutex
	shutdown    chan struct{}
	shutdownMu  sync.Mutex
	isShutdown  bool
}

// Subscription represents a subscription to a topic
type Subscription struct {
	topic     string
	channel   chan Event
	bus       *Bus
	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once // Ensures channel is only closed once
}

// NewBus creates a new Bus
func NewBus() *Bus {
	return &Bus{
		subscribers: make(map[string]map[*Subscription]bool),
		shutdown:    make(chan struct{}),
	}
}

// Subscribe creates a new subscription to a topic. The subscription is
// torn down when ctx is cancelled, Unsubscribe is called, or the bus
// shuts down.
func (b *Bus) Subscribe(ctx context.Context, topic string) (*Subscription, error) {
	b.shutdownMu.Lock()
	if b.isShutdown {
		b.shutdownMu.Unlock()
		return nil, ErrClosed
	}
	b.shutdownMu.Unlock()

	subCtx, cancel := context.WithCancel(ctx)
	sub := &Subscription{
		topic:   topic,
		channel: make(chan Event, subscriptionBuffer),
		bus:     b,
		ctx:     subCtx,
		cancel:  cancel,
	}

	b.mu.Lock()
	if b.subscribers[topic] == nil {
		b.subscribers[topic] = make(map[*Subscription]bool)
	}
	b.subscribers[topic][sub] = true
	b.mu.Unlock()

	// Monitor context cancellation
	go func() {
		select {
		case <-subCtx.Done():
			sub.Unsubscribe()
		case <-b.shutdown:
			sub.close()
		}
	}()

	return sub, nil
}

// Publish sends a message to all subscribers of a topic. Sends never
// block: a subscriber whose buffer is full misses the message. Returns
// how many subscribers received the message and how many dropped it.
func (b *Bus) Publish(topic string, data any) (sent, dropped int) {
	b.shutdownMu.Lock()
	if b.isShutdown {
		b.shutdownMu.Unlock()
		return 0, 0
	}
	b.shutdownMu.Unlock()

	// Take a snapshot of subscribers under lock to avoid race condition
	// during iteration (concurrent Unsubscribe could modify the map)
	b.mu.RLock()
	topicSubs := b.subscribers[topic]
	if len(topicSubs) == 0 {
		b.mu.RUnlock()
		return 0, 0
	}
	subs := make([]*Subscription, 0, len(topicSubs))
	for sub := range topicSubs {
		subs = append(subs, sub)
	}
	b.mu.RUnlock()

	// Send outside the lock so a full channel cannot stall the bus
	evt := Event{Topic: topic, Data: data}
	for _, sub := range subs {
		select {
		case sub.channel <- evt:
			sent++
		default:
			dropped++
		}
	}
	return sent, dropped
}

// SubscriberCount returns the number of subscribers for a topic
func (b *Bus) SubscriberCount(topic string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return len(b.subscribers[topic])
}

// Shutdown closes all subscriptions and shuts down the bus
func (b *Bus) Shutdown() {
	b.shutdownMu.Lock()
	if b.isShutdown {
		b.shutdownMu.Unlock()
		return
	}
	b.isShutdown = true
	b.shutdownMu.Unlock()

	close(b.shutdown)

	b.mu.Lock()
	for topic := range b.subscribers {
		for sub := range b.subscribers[topic] {
			sub.close()
		}
		delete(b.subscribers, topic)
	}
	b.mu.Unlock()
}

// Events returns the subscription's message channel
func (s *Subscription) Events() <-chan Event {
	return s.channel
}

// Topic returns the topic this subscription listens on
func (s *Subscription) Topic() string {
	return s.topic
}

// Unsubscribe removes the subscription and closes its channel
func (s *Subscription) Unsubscribe() {
	s.cancel()

	s.bus.mu.Lock()
	defer s.bus.mu.Unlock()

	if s.bus.subscribers[s.topic] != nil {
		delete(s.bus.subscribers[s.topic], s)
		if len(s.bus.subscribers[s.topic]) == 0 {
			delete(s.bus.subscribers, s.topic)
		}
	}

	s.close()
}

// close closes the subscription channel safely (idempotent)
func (s *Subscription) close() {
	s.closeOnce.Do(func() {
		close(s.channel)
	})
}
