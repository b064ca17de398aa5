package attack

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/dd0wney/cluso-zerotrust/pkg/simnet"
)

// Pacing defaults. Tests shrink these to zero.
const (
	DefaultSettleDelay = 1500 * time.Millisecond
	DefaultTradStepMin = 1 * time.Second
	DefaultTradStepMax = 2 * time.Second
	DefaultZTStepMin   = 1 * time.Second
	DefaultZTStepMax   = 1800 * time.Millisecond
)

// Zero-trust lateral movement parameters
const (
	DefaultZTSuccessRate = 0.10
	DefaultZTMaxAttempts = 4
)

// Session is one attack run: its identity, entry point, and the ordered
// set of compromised devices (entry point first).
type Session struct {
	ID         string
	Model      Model
	EntryPoint string

	compromised []string
	seen        map[string]bool
}

func (s *Session) compromise(deviceID string) {
	if s.seen[deviceID] {
		return
	}
	s.seen[deviceID] = true
	s.compromised = append(s.compromised, deviceID)
}

// Compromised returns a copy of the compromised device ids in the order
// they fell
func (s *Session) Compromised() []string {
	out := make([]string, len(s.compromised))
	copy(out, s.compromised)
	return out
}

// CompromisedCount returns how many devices this run has compromised
func (s *Session) CompromisedCount() int {
	return len(s.compromised)
}

// Runner executes attack simulations against a network. Pacing and
// zero-trust parameters may be adjusted before the first Run call.
type Runner struct {
	network *simnet.Network
	rng     *rand.Rand

	SettleDelay time.Duration
	TradStepMin time.Duration
	TradStepMax time.Duration
	ZTStepMin   time.Duration
	ZTStepMax   time.Duration

	ZTSuccessRate float64
	ZTMaxAttempts int

	// OnProgress and OnComplete receive frames as the run produces them
	OnProgress func(Progress)
	OnComplete func(Complete)
}

// NewRunner creates a runner bound to a network. The rng must be safe
// for use from the goroutine calling Run.
func NewRunner(network *simnet.Network, rng *rand.Rand) *Runner {
	return &Runner{
		network:       network,
		rng:           rng,
		SettleDelay:   DefaultSettleDelay,
		TradStepMin:   DefaultTradStepMin,
		TradStepMax:   DefaultTradStepMax,
		ZTStepMin:     DefaultZTStepMin,
		ZTStepMax:     DefaultZTStepMax,
		ZTSuccessRate: DefaultZTSuccessRate,
		ZTMaxAttempts: DefaultZTMaxAttempts,
	}
}

// NewSession picks a random entry point and identity for one attack
// run. Routers are never entry points; attackers land on endpoints.
func (r *Runner) NewSession(model Model) (*Session, error) {
	endpoints := r.network.EndpointDeviceIDs()
	if len(endpoints) == 0 {
		return nil, errors.New("attack: network has no endpoint devices")
	}
	return r.NewSessionAt(model, endpoints[r.rng.Intn(len(endpoints))])
}

// NewSessionAt creates a session with a fixed entry point, for
// replaying a specific scenario
func (r *Runner) NewSessionAt(model Model, entryPoint string) (*Session, error) {
	if _, ok := r.network.Device(entryPoint); !ok {
		return nil, fmt.Errorf("attack: unknown entry point %q", entryPoint)
	}

	return &Session{
		ID:         uuid.New().String(),
		Model:      model,
		EntryPoint: entryPoint,
		seen:       make(map[string]bool),
	}, nil
}

// Run executes the session to completion. Device compromises are
// applied to the network as they happen and stay applied until the next
// reset. A cancelled context stops the run between steps; no completion
// frame is emitted in that case.
func (r *Runner) Run(ctx context.Context, session *Session) error {
	switch session.Model {
	case ModelTraditional:
		return r.runTraditional(ctx, session)
	case ModelZeroTrust:
		return r.runZeroTrust(ctx, session)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownModel, session.Model)
	}
}

// runTraditional spreads to every device: perimeter security offers no
// internal resistance once the attacker is inside.
func (r *Runner) runTraditional(ctx context.Context, session *Session) error {
	if err := r.breach(session, reasonInitialTraditional); err != nil {
		return err
	}
	if err := sleepCtx(ctx, r.SettleDelay); err != nil {
		return err
	}

	for _, target := range r.network.DeviceIDs() {
		if target == session.EntryPoint {
			continue
		}
		if err := sleepCtx(ctx, r.stepDelay(r.TradStepMin, r.TradStepMax)); err != nil {
			return err
		}

		// The reported source is drawn from the devices that fell
		// before this one; it only matters for trace readability
		source := session.compromised[r.rng.Intn(len(session.compromised))]
		session.compromise(target)
		if err := r.network.Compromise(target); err != nil {
			return err
		}

		r.emitProgress(session, Step{
			Source: source,
			Target: target,
			Result: ResultSuccess,
			Model:  ModelTraditional,
			Reason: reasonLateralTraditional,
		})
	}

	r.emitComplete(session)
	return nil
}

// runZeroTrust attempts lateral movement only to the entry point's
// first few neighbors, and almost every attempt is blocked by
// continuous verification.
func (r *Runner) runZeroTrust(ctx context.Context, session *Session) error {
	if err := r.breach(session, reasonInitialZeroTrust); err != nil {
		return err
	}
	if err := sleepCtx(ctx, r.SettleDelay); err != nil {
		return err
	}

	neighbors := r.network.Neighbors(session.EntryPoint)
	if len(neighbors) > r.ZTMaxAttempts {
		neighbors = neighbors[:r.ZTMaxAttempts]
	}

	for _, target := range neighbors {
		if err := sleepCtx(ctx, r.stepDelay(r.ZTStepMin, r.ZTStepMax)); err != nil {
			return err
		}

		step := Step{
			Source: session.EntryPoint,
			Target: target,
			Model:  ModelZeroTrust,
		}
		if r.rng.Float64() < r.ZTSuccessRate {
			session.compromise(target)
			if err := r.network.Compromise(target); err != nil {
				return err
			}
			step.Result = ResultSuccess
			step.Reason = reasonLateralSucceeded
		} else {
			step.Result = ResultBlocked
			step.Reason = reasonLateralBlocked
		}

		r.emitProgress(session, step)
	}

	r.emitComplete(session)
	return nil
}

// breach marks the entry point compromised and emits the initial frame
func (r *Runner) breach(session *Session, reason string) error {
	session.compromise(session.EntryPoint)
	if err := r.network.Compromise(session.EntryPoint); err != nil {
		return err
	}

	r.emitProgress(session, Step{
		Source: externalSource,
		Target: session.EntryPoint,
		Result: ResultSuccess,
		Model:  session.Model,
		Reason: reason,
	})
	return nil
}

func (r *Runner) emitProgress(session *Session, step Step) {
	if r.OnProgress == nil {
		return
	}
	r.OnProgress(Progress{
		Type:             TypeProgress,
		Step:             step,
		CompromisedNodes: session.Compromised(),
		AttackID:         session.ID,
	})
}

func (r *Runner) emitComplete(session *Session) {
	if r.OnComplete == nil {
		return
	}

	total := r.network.TotalDevices()
	count := session.CompromisedCount()
	r.OnComplete(Complete{
		Type: TypeComplete,
		Results: Results{
			Model:                    session.Model,
			CompromisedCount:         count,
			TotalNodes:               total,
			ContainmentEffectiveness: Containment(count, total),
			AttackID:                 session.ID,
			EntryPoint:               session.EntryPoint,
			Duration:                 float64(time.Now().UnixMilli()) / 1000.0,
		},
	})
}

// Containment formats the share of devices that stayed clean as a
// percentage with one decimal, e.g. "77.8%"
func Containment(compromised, total int) string {
	if total == 0 {
		return "0.0%"
	}
	return fmt.Sprintf("%.1f%%", float64(total-compromised)/float64(total)*100)
}

func (r *Runner) stepDelay(min, max time.Duration) time.Duration {
	if max <= min {
		return min
	}
	return min + time.Duration(r.rng.Float64()*float64(max-min))
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
