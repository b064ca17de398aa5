// Package engine coordinates the simulated network, the risk evaluator,
// the activity generator and the attack runner behind a single facade.
// It owns the shared request statistics, the audit trail, the metrics
// registry and the event bus, and enforces that at most one attack
// simulation runs at a time.
package engine

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/dd0wney/cluso-zerotrust/pkg/activity"
	"github.com/dd0wney/cluso-zerotrust/pkg/attack"
	"github.com/dd0wney/cluso-zerotrust/pkg/audit"
	"github.com/dd0wney/cluso-zerotrust/pkg/events"
	"github.com/dd0wney/cluso-zerotrust/pkg/logging"
	"github.com/dd0wney/cluso-zerotrust/pkg/metrics"
	"github.com/dd0wney/cluso-zerotrust/pkg/risk"
	"github.com/dd0wney/cluso-zerotrust/pkg/simnet"
)

// ErrAttackInProgress is returned by StartAttack while an earlier attack
// run is still executing.
var ErrAttackInProgress = errors.New("attack simulation already in progress")

// Network health values reported by Status
const (
	HealthHealthy     = "HEALTHY"
	HealthCompromised = "COMPROMISED"
)

// Default capacity of the in-memory audit trail
const defaultTrailSize = 10000

// ActivityAck acknowledges a started activity batch
type ActivityAck struct {
	Status   string `json:"status"`
	Requests int    `json:"requests"`
}

// AttackAck acknowledges a started attack run
type AttackAck struct {
	Status     string `json:"status"`
	Model      string `json:"model"`
	EntryPoint string `json:"entry_point"`
	AttackID   string `json:"attack_id"`
}

// ResetAck acknowledges a completed reset over REST
type ResetAck struct {
	Status string `json:"status"`
}

// ResetNotice is broadcast to event subscribers after a reset
type ResetNotice struct {
	Status string `json:"status"`
}

// Status is the network health summary served by the status endpoint
type Status struct {
	TotalDevices       int               `json:"total_devices"`
	CompromisedDevices int               `json:"compromised_devices"`
	NetworkHealth      string            `json:"network_health"`
	Stats              activity.Snapshot `json:"stats"`
}

// Config carries the engine's dependencies. Every field is optional:
// nil dependencies are replaced with working defaults and a zero Seed
// falls back to the clock.
type Config struct {
	Network *simnet.Network
	Bus     *events.Bus
	Trail   *audit.Trail
	Metrics *metrics.Registry
	Logger  logging.Logger

	// Seed fixes the random source so simulation runs are reproducible
	Seed int64

	// Instant disables all pacing delays. Used by tests and demos.
	Instant bool
}

// Engine drives all simulation work against one network. Its methods
// are safe for concurrent use.
type Engine struct {
	network *simnet.Network
	bus     *events.Bus
	trail   *audit.Trail
	metrics *metrics.Registry
	logger  logging.Logger

	stats     *activity.Stats
	generator *activity.Generator
	runner    *attack.Runner

	mu            sync.Mutex
	attackRunning bool
	runCtx        context.Context
	runCancel     context.CancelFunc
	wg            sync.WaitGroup
}

// New creates an engine around the given network, building any
// dependency left nil in the config.
func New(cfg Config) (*Engine, error) {
	network := cfg.Network
	if network == nil {
		n, err := simnet.NewNetwork(simnet.DefaultConfig())
		if err != nil {
			return nil, err
		}
		network = n
	}

	bus := cfg.Bus
	if bus == nil {
		bus = events.NewBus()
	}
	trail := cfg.Trail
	if trail == nil {
		trail = audit.NewTrail(defaultTrailSize)
	}
	reg := cfg.Metrics
	if reg == nil {
		reg = metrics.DefaultRegistry()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.DefaultLogger()
	}

	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := newLockedRand(seed)

	e := &Engine{
		network: network,
		bus:     bus,
		trail:   trail,
		metrics: reg,
		logger:  logger.With(logging.Component("engine")),
		stats:   &activity.Stats{},
	}
	e.runCtx, e.runCancel = context.WithCancel(context.Background())

	e.generator = activity.NewGenerator(network, e.stats, rng)
	e.generator.OnDecision = e.handleDecision

	e.runner = attack.NewRunner(network, rng)
	e.runner.OnProgress = e.handleAttackProgress
	e.runner.OnComplete = e.handleAttackComplete

	if cfg.Instant {
		e.generator.MinDelay = 0
		e.generator.MaxDelay = 0
		e.runner.SettleDelay = 0
		e.runner.TradStepMin = 0
		e.runner.TradStepMax = 0
		e.runner.ZTStepMin = 0
		e.runner.ZTStepMax = 0
	}

	e.metrics.UpdateNetworkGauges(network.TotalDevices(), network.CompromisedCount())

	return e, nil
}

// Network returns the simulated network the engine operates on.
func (e *Engine) Network() *simnet.Network { return e.network }

// Bus returns the event bus carrying simulation frames.
func (e *Engine) Bus() *events.Bus { return e.bus }

// Trail returns the audit trail of simulation events.
func (e *Engine) Trail() *audit.Trail { return e.trail }

// Metrics returns the metrics registry the engine records into.
func (e *Engine) Metrics() *metrics.Registry { return e.metrics }

// Generator returns the activity generator. Pacing fields may be tuned
// before the first simulation starts.
func (e *Engine) Generator() *activity.Generator { return e.generator }

// Runner returns the attack runner. Pacing fields may be tuned before
// the first simulation starts.
func (e *Engine) Runner() *attack.Runner { return e.runner }

// Topology returns the current network topology with live risk scores.
func (e *Engine) Topology() simnet.TopologyView {
	return e.network.Topology()
}

// Status reports device counts, overall network health and the running
// request statistics.
func (e *Engine) Status() Status {
	compromised := e.network.CompromisedCount()
	health := HealthHealthy
	if compromised > 0 {
		health = HealthCompromised
	}
	return Status{
		TotalDevices:       e.network.TotalDevices(),
		CompromisedDevices: compromised,
		NetworkHealth:      health,
		Stats:              e.stats.Snapshot(),
	}
}

// StatsSnapshot returns the running request counters.
func (e *Engine) StatsSnapshot() activity.Snapshot {
	return e.stats.Snapshot()
}

// AttackRunning reports whether an attack run is currently executing.
func (e *Engine) AttackRunning() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.attackRunning
}

// StartActivity launches a batch of simulated access requests in the
// background and returns immediately. Batches may overlap; each one
// feeds the same shared statistics.
func (e *Engine) StartActivity() ActivityAck {
	e.mu.Lock()
	ctx := e.runCtx
	e.mu.Unlock()

	e.metrics.RecordActivityBatch()
	e.logger.Info("activity simulation started", logging.Count(activity.BatchSize))

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		if err := e.generator.RunBatch(ctx, activity.BatchSize); err != nil {
			e.logger.Warn("activity batch stopped early", logging.Error(err))
		}
	}()

	return ActivityAck{Status: "Activity simulation started", Requests: activity.BatchSize}
}

// StartAttack launches an attack run in the background using the given
// security model and returns the entry point and attack id chosen for
// it. A second call while a run is executing returns
// ErrAttackInProgress.
func (e *Engine) StartAttack(model string) (AttackAck, error) {
	parsed, err := attack.ParseModel(model)
	if err != nil {
		return AttackAck{}, err
	}

	e.mu.Lock()
	if e.attackRunning {
		e.mu.Unlock()
		return AttackAck{}, ErrAttackInProgress
	}
	session, err := e.runner.NewSession(parsed)
	if err != nil {
		e.mu.Unlock()
		return AttackAck{}, err
	}
	e.attackRunning = true
	ctx := e.runCtx
	e.mu.Unlock()

	e.metrics.RecordAttackStart(string(parsed))
	e.logger.Info("attack simulation started",
		logging.Model(string(parsed)),
		logging.AttackID(session.ID),
		logging.DeviceID(session.EntryPoint))

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		defer func() {
			e.mu.Lock()
			e.attackRunning = false
			e.mu.Unlock()
		}()

		start := time.Now()
		if err := e.runner.Run(ctx, session); err != nil {
			e.logger.Warn("attack run stopped early",
				logging.AttackID(session.ID), logging.Error(err))
			return
		}
		e.metrics.RecordAttackComplete(string(parsed), time.Since(start))
	}()

	return AttackAck{
		Status:     "Attack simulation started",
		Model:      string(parsed),
		EntryPoint: session.EntryPoint,
		AttackID:   session.ID,
	}, nil
}

// Reset cancels any running simulations, waits for them to stop, then
// restores every device and clears the request statistics. Subscribers
// are notified on the reset topic. The audit trail is kept.
func (e *Engine) Reset() ResetAck {
	e.mu.Lock()
	cancel := e.runCancel
	e.mu.Unlock()

	cancel()
	e.wg.Wait()

	e.mu.Lock()
	e.runCtx, e.runCancel = context.WithCancel(context.Background())
	e.attackRunning = false
	e.mu.Unlock()

	e.network.ClearCompromised()
	e.stats.Reset()

	e.metrics.RecordNetworkReset()
	e.metrics.UpdateNetworkGauges(e.network.TotalDevices(), 0)
	if err := e.trail.Log(audit.NewResetEvent()); err != nil {
		e.logger.Warn("audit log failed", logging.Error(err))
	}
	e.publish(events.TopicReset, ResetNotice{Status: "Network reset complete"})
	e.logger.Info("network reset")

	return ResetAck{Status: "Network reset successfully"}
}

// Close stops all running simulations and waits for them to unwind. The
// engine must not be used afterwards.
func (e *Engine) Close() {
	e.mu.Lock()
	cancel := e.runCancel
	e.mu.Unlock()

	cancel()
	e.wg.Wait()
}

func (e *Engine) publish(topic string, data any) {
	sent, dropped := e.bus.Publish(topic, data)
	e.metrics.RecordEventPublish(topic, sent, dropped)
}

// handleDecision runs on the generator goroutine for every evaluated
// access request.
func (e *Engine) handleDecision(req risk.Request, eval risk.Evaluation, update activity.Update) {
	overall := 0.0
	if eval.Factors != nil {
		overall = eval.Factors.Sum()
	}
	e.metrics.RecordAccessDecision(string(eval.Decision), overall)

	if err := e.trail.Log(audit.NewAccessEvent(req.UserID, req.DeviceID, req.Resource, string(eval.Decision), eval.Reason)); err != nil {
		e.logger.Warn("audit log failed", logging.Error(err))
	}

	e.publish(events.TopicActivity, update)

	e.logger.Debug("access request evaluated",
		logging.UserID(req.UserID),
		logging.DeviceID(req.DeviceID),
		logging.Resource(req.Resource),
		logging.Decision(string(eval.Decision)))
}

// handleAttackProgress runs on the attack goroutine after every
// movement attempt.
func (e *Engine) handleAttackProgress(p attack.Progress) {
	e.metrics.RecordAttackStep(string(p.Step.Model), p.Step.Result)
	e.metrics.UpdateNetworkGauges(e.network.TotalDevices(), e.network.CompromisedCount())

	if err := e.trail.Log(audit.NewAttackStepEvent(string(p.Step.Model), p.AttackID,
		p.Step.Source, p.Step.Target, p.Step.Result, p.Step.Reason)); err != nil {
		e.logger.Warn("audit log failed", logging.Error(err))
	}

	e.publish(events.TopicAttack, p)

	e.logger.Info("attack step",
		logging.Model(string(p.Step.Model)),
		logging.AttackID(p.AttackID),
		logging.String("source", p.Step.Source),
		logging.String("target", p.Step.Target),
		logging.String("result", p.Step.Result))
}

// handleAttackComplete runs on the attack goroutine once a run finishes
// without being cancelled.
func (e *Engine) handleAttackComplete(c attack.Complete) {
	r := c.Results
	if err := e.trail.Log(audit.NewAttackCompleteEvent(string(r.Model), r.AttackID,
		r.CompromisedCount, r.TotalNodes, r.ContainmentEffectiveness)); err != nil {
		e.logger.Warn("audit log failed", logging.Error(err))
	}

	e.publish(events.TopicAttack, c)

	e.logger.Info("attack complete",
		logging.Model(string(r.Model)),
		logging.AttackID(r.AttackID),
		logging.Int("compromised", r.CompromisedCount),
		logging.String("containment", r.ContainmentEffectiveness))
}
