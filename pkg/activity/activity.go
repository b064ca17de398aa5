// Package activity generates synthetic user access traffic and keeps the
// running tally of decisions.
package activity

import (
	"context"
	"fmt"
	"math/rand"
	"sync/atomic"
	"time"

	"github.com/dd0wney/cluso-zerotrust/pkg/risk"
	"github.com/dd0wney/cluso-zerotrust/pkg/simnet"
)

// BatchSize is the number of requests generated per simulation batch
const BatchSize = 10

// Default delay bounds between consecutive requests
const (
	DefaultMinDelay = 500 * time.Millisecond
	DefaultMaxDelay = 2 * time.Second
)

// resourceCatalog lists the resources simulated users ask for
var resourceCatalog = []string{
	"email", "file_share", "database", "web_app", "printer",
	"admin_panel", "reports", "customer_data", "financial_data", "hr_records",
}

// Stats tracks the running tally of access decisions
type Stats struct {
	allowed    atomic.Int64
	denied     atomic.Int64
	challenged atomic.Int64
}

// Snapshot is a point-in-time copy of the tally
type Snapshot struct {
	Allowed       int64 `json:"allowed"`
	Denied        int64 `json:"denied"`
	Challenged    int64 `json:"challenged"`
	TotalRequests int64 `json:"total_requests"`
}

// Record counts one decision
func (s *Stats) Record(decision risk.Decision) {
	switch decision {
	case risk.DecisionAllow:
		s.allowed.Add(1)
	case risk.DecisionDeny:
		s.denied.Add(1)
	case risk.DecisionChallenge:
		s.challenged.Add(1)
	}
}

// Snapshot returns a consistent copy of the current tally
func (s *Stats) Snapshot() Snapshot {
	allowed := s.allowed.Load()
	denied := s.denied.Load()
	challenged := s.challenged.Load()
	return Snapshot{
		Allowed:       allowed,
		Denied:        denied,
		Challenged:    challenged,
		TotalRequests: allowed + denied + challenged,
	}
}

// Reset zeroes the tally
func (s *Stats) Reset() {
	s.allowed.Store(0)
	s.denied.Store(0)
	s.challenged.Store(0)
}

// Update is one activity frame as broadcast to watchers. Timestamp is
// in epoch milliseconds for direct use by dashboard clients.
type Update struct {
	Type      string   `json:"type"`
	User      string   `json:"user"`
	Resource  string   `json:"resource"`
	Decision  string   `json:"decision"`
	Reason    string   `json:"reason"`
	Timestamp int64    `json:"timestamp"`
	Stats     Snapshot `json:"stats"`
}

// Generator produces batches of synthetic access requests against a
// network. Delay bounds and the update callback may be adjusted before
// the first RunBatch call.
type Generator struct {
	network *simnet.Network
	stats   *Stats
	rng     *rand.Rand

	MinDelay time.Duration
	MaxDelay time.Duration

	// OnDecision receives every evaluated request together with the
	// broadcast frame derived from it
	OnDecision func(req risk.Request, eval risk.Evaluation, update Update)
}

// NewGenerator creates a generator bound to a network and tally. The
// rng must be safe for use from the goroutine calling RunBatch.
func NewGenerator(network *simnet.Network, stats *Stats, rng *rand.Rand) *Generator {
	return &Generator{
		network:  network,
		stats:    stats,
		rng:      rng,
		MinDelay: DefaultMinDelay,
		MaxDelay: DefaultMaxDelay,
	}
}

// RunBatch generates n access requests, evaluating each one against the
// current network state and recording the outcome. Requests are spaced
// by a randomized delay in [MinDelay, MaxDelay]. Returns early with
// ctx.Err() when the context is cancelled.
func (g *Generator) RunBatch(ctx context.Context, n int) error {
	users := g.network.UserIDs()
	devices := g.network.EndpointDeviceIDs()
	if len(users) == 0 || len(devices) == 0 {
		return fmt.Errorf("activity: network has no users or endpoint devices")
	}

	for i := 0; i < n; i++ {
		req := risk.Request{
			UserID:    users[g.rng.Intn(len(users))],
			DeviceID:  devices[g.rng.Intn(len(devices))],
			Resource:  resourceCatalog[g.rng.Intn(len(resourceCatalog))],
			Action:    "access",
			Timestamp: time.Now(),
		}

		eval := risk.Evaluate(req, g.network)
		g.stats.Record(eval.Decision)

		if g.OnDecision != nil {
			g.OnDecision(req, eval, Update{
				Type:      "activity_update",
				User:      req.UserID,
				Resource:  req.Resource,
				Decision:  string(eval.Decision),
				Reason:    eval.Reason,
				Timestamp: time.Now().UnixMilli(),
				Stats:     g.stats.Snapshot(),
			})
		}

		if err := sleepCtx(ctx, g.stepDelay()); err != nil {
			return err
		}
	}

	return nil
}

func (g *Generator) stepDelay() time.Duration {
	if g.MaxDelay <= g.MinDelay {
		return g.MinDelay
	}
	return g.MinDelay + time.Duration(g.rng.Int63n(int64(g.MaxDelay-g.MinDelay)))
}

// sleepCtx waits for d or until ctx is cancelled, whichever comes first
func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
			return nil
		}
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
