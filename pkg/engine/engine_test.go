package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dd0wney/cluso-zerotrust/pkg/activity"
	"github.com/dd0wney/cluso-zerotrust/pkg/attack"
	"github.com/dd0wney/cluso-zerotrust/pkg/audit"
	"github.com/dd0wney/cluso-zerotrust/pkg/events"
	"github.com/dd0wney/cluso-zerotrust/pkg/logging"
	"github.com/dd0wney/cluso-zerotrust/pkg/metrics"
)

const waitTimeout = 5 * time.Second

// newTestEngine builds an instant-pacing engine with an isolated metrics
// registry so counters do not bleed between tests.
func newTestEngine(t *testing.T, seed int64) *Engine {
	t.Helper()
	e, err := New(Config{
		Seed:    seed,
		Instant: true,
		Logger:  logging.NewNopLogger(),
		Metrics: metrics.NewRegistry(),
	})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	t.Cleanup(e.Close)
	return e
}

func subscribe(t *testing.T, e *Engine, topic string) *events.Subscription {
	t.Helper()
	sub, err := e.Bus().Subscribe(context.Background(), topic)
	if err != nil {
		t.Fatalf("Subscribe(%q) error: %v", topic, err)
	}
	return sub
}

// waitForComplete drains the attack topic until the completion frame
// arrives, returning it along with every progress frame seen on the way.
func waitForComplete(t *testing.T, sub *events.Subscription) (attack.Complete, []attack.Progress) {
	t.Helper()
	var steps []attack.Progress
	deadline := time.After(waitTimeout)
	for {
		select {
		case ev, ok := <-sub.Events():
			if !ok {
				t.Fatal("subscription closed before attack completed")
			}
			switch v := ev.Data.(type) {
			case attack.Progress:
				steps = append(steps, v)
			case attack.Complete:
				return v, steps
			default:
				t.Fatalf("unexpected event payload %T", ev.Data)
			}
		case <-deadline:
			t.Fatal("timed out waiting for attack completion")
		}
	}
}

func TestStatusInitial(t *testing.T) {
	e := newTestEngine(t, 1)

	st := e.Status()
	if st.TotalDevices != 9 {
		t.Errorf("TotalDevices = %d, want 9", st.TotalDevices)
	}
	if st.CompromisedDevices != 0 {
		t.Errorf("CompromisedDevices = %d, want 0", st.CompromisedDevices)
	}
	if st.NetworkHealth != HealthHealthy {
		t.Errorf("NetworkHealth = %q, want %q", st.NetworkHealth, HealthHealthy)
	}
	if st.Stats.TotalRequests != 0 {
		t.Errorf("Stats.TotalRequests = %d, want 0", st.Stats.TotalRequests)
	}
}

func TestStartActivity(t *testing.T) {
	e := newTestEngine(t, 42)
	sub := subscribe(t, e, events.TopicActivity)

	ack := e.StartActivity()
	if ack.Status != "Activity simulation started" {
		t.Errorf("ack.Status = %q", ack.Status)
	}
	if ack.Requests != activity.BatchSize {
		t.Errorf("ack.Requests = %d, want %d", ack.Requests, activity.BatchSize)
	}

	deadline := time.After(waitTimeout)
	var updates []activity.Update
	for len(updates) < activity.BatchSize {
		select {
		case ev := <-sub.Events():
			u, ok := ev.Data.(activity.Update)
			if !ok {
				t.Fatalf("unexpected event payload %T", ev.Data)
			}
			updates = append(updates, u)
		case <-deadline:
			t.Fatalf("timed out after %d updates", len(updates))
		}
	}

	last := updates[len(updates)-1]
	if last.Stats.TotalRequests != int64(activity.BatchSize) {
		t.Errorf("final running total = %d, want %d", last.Stats.TotalRequests, activity.BatchSize)
	}
	if snap := e.StatsSnapshot(); snap.TotalRequests != int64(activity.BatchSize) {
		t.Errorf("engine stats total = %d, want %d", snap.TotalRequests, activity.BatchSize)
	}

	accesses := e.Trail().GetEvents(&audit.Filter{Kind: audit.KindAccessDecision})
	if len(accesses) != activity.BatchSize {
		t.Errorf("audit trail has %d access events, want %d", len(accesses), activity.BatchSize)
	}
}

func TestStartAttackTraditional(t *testing.T) {
	e := newTestEngine(t, 7)
	sub := subscribe(t, e, events.TopicAttack)

	ack, err := e.StartAttack("traditional")
	if err != nil {
		t.Fatalf("StartAttack() error: %v", err)
	}
	if ack.Status != "Attack simulation started" {
		t.Errorf("ack.Status = %q", ack.Status)
	}
	if ack.Model != "traditional" {
		t.Errorf("ack.Model = %q", ack.Model)
	}
	if ack.AttackID == "" {
		t.Error("ack.AttackID is empty")
	}
	if _, ok := e.Network().Device(ack.EntryPoint); !ok {
		t.Errorf("ack.EntryPoint %q is not a known device", ack.EntryPoint)
	}

	complete, steps := waitForComplete(t, sub)

	if len(steps) != 9 {
		t.Errorf("got %d progress frames, want 9", len(steps))
	}
	if complete.Results.CompromisedCount != 9 || complete.Results.TotalNodes != 9 {
		t.Errorf("results = %d/%d compromised, want 9/9",
			complete.Results.CompromisedCount, complete.Results.TotalNodes)
	}
	if complete.Results.ContainmentEffectiveness != "0.0%" {
		t.Errorf("containment = %q, want 0.0%%", complete.Results.ContainmentEffectiveness)
	}
	if complete.Results.AttackID != ack.AttackID {
		t.Errorf("completion attack id %q != ack id %q", complete.Results.AttackID, ack.AttackID)
	}

	st := e.Status()
	if st.CompromisedDevices != 9 || st.NetworkHealth != HealthCompromised {
		t.Errorf("status after attack = %d compromised, health %q",
			st.CompromisedDevices, st.NetworkHealth)
	}

	stepEvents := e.Trail().GetEvents(&audit.Filter{Kind: audit.KindAttackStep})
	if len(stepEvents) != 9 {
		t.Errorf("audit trail has %d step events, want 9", len(stepEvents))
	}
	completions := e.Trail().GetEvents(&audit.Filter{Kind: audit.KindAttackComplete})
	if len(completions) != 1 {
		t.Errorf("audit trail has %d completion events, want 1", len(completions))
	}
}

func TestStartAttackUnknownModel(t *testing.T) {
	e := newTestEngine(t, 1)

	_, err := e.StartAttack("perimeter")
	if !errors.Is(err, attack.ErrUnknownModel) {
		t.Errorf("StartAttack(perimeter) error = %v, want ErrUnknownModel", err)
	}
}

func TestStartAttackExclusion(t *testing.T) {
	e := newTestEngine(t, 3)
	// Hold the first run in its settle delay so the second start overlaps
	e.Runner().SettleDelay = 500 * time.Millisecond
	sub := subscribe(t, e, events.TopicAttack)

	if _, err := e.StartAttack("zerotrust"); err != nil {
		t.Fatalf("first StartAttack() error: %v", err)
	}
	if _, err := e.StartAttack("zerotrust"); !errors.Is(err, ErrAttackInProgress) {
		t.Errorf("second StartAttack() error = %v, want ErrAttackInProgress", err)
	}

	waitForComplete(t, sub)

	if e.AttackRunning() {
		t.Error("AttackRunning() still true after completion")
	}
	if _, err := e.StartAttack("zerotrust"); err != nil {
		t.Errorf("StartAttack() after completion error: %v", err)
	}
}

func TestResetCancelsRunningAttack(t *testing.T) {
	e := newTestEngine(t, 11)
	// Park the run in a long settle delay so Reset interrupts it
	e.Runner().SettleDelay = time.Minute
	attackSub := subscribe(t, e, events.TopicAttack)
	resetSub := subscribe(t, e, events.TopicReset)

	if _, err := e.StartAttack("traditional"); err != nil {
		t.Fatalf("StartAttack() error: %v", err)
	}

	// Initial breach frame proves the run is underway
	select {
	case ev := <-attackSub.Events():
		if _, ok := ev.Data.(attack.Progress); !ok {
			t.Fatalf("unexpected event payload %T", ev.Data)
		}
	case <-time.After(waitTimeout):
		t.Fatal("timed out waiting for initial breach frame")
	}

	done := make(chan ResetAck, 1)
	go func() { done <- e.Reset() }()

	var ack ResetAck
	select {
	case ack = <-done:
	case <-time.After(waitTimeout):
		t.Fatal("Reset() did not return; cancelled run not unwinding")
	}
	if ack.Status != "Network reset successfully" {
		t.Errorf("reset ack = %q", ack.Status)
	}

	select {
	case ev := <-resetSub.Events():
		notice, ok := ev.Data.(ResetNotice)
		if !ok {
			t.Fatalf("unexpected reset payload %T", ev.Data)
		}
		if notice.Status != "Network reset complete" {
			t.Errorf("reset notice = %q", notice.Status)
		}
	case <-time.After(waitTimeout):
		t.Fatal("timed out waiting for reset notice")
	}

	st := e.Status()
	if st.CompromisedDevices != 0 || st.NetworkHealth != HealthHealthy {
		t.Errorf("status after reset = %d compromised, health %q",
			st.CompromisedDevices, st.NetworkHealth)
	}
	if e.AttackRunning() {
		t.Error("AttackRunning() true after reset")
	}

	// No completion frame should arrive for the cancelled run
	select {
	case ev := <-attackSub.Events():
		if _, ok := ev.Data.(attack.Complete); ok {
			t.Error("cancelled run still published a completion frame")
		}
	case <-time.After(100 * time.Millisecond):
	}

	e.Runner().SettleDelay = 0
	if _, err := e.StartAttack("traditional"); err != nil {
		t.Errorf("StartAttack() after reset error: %v", err)
	}
}

func TestResetClearsStats(t *testing.T) {
	e := newTestEngine(t, 5)
	sub := subscribe(t, e, events.TopicActivity)

	e.StartActivity()
	deadline := time.After(waitTimeout)
	for seen := 0; seen < activity.BatchSize; {
		select {
		case <-sub.Events():
			seen++
		case <-deadline:
			t.Fatalf("timed out after %d updates", seen)
		}
	}

	e.Reset()

	if snap := e.StatsSnapshot(); snap.TotalRequests != 0 {
		t.Errorf("stats after reset = %+v, want zeros", snap)
	}
	resets := e.Trail().GetEvents(&audit.Filter{Kind: audit.KindNetworkReset})
	if len(resets) != 1 {
		t.Errorf("audit trail has %d reset events, want 1", len(resets))
	}
}

func TestSeededRunsAreReproducible(t *testing.T) {
	run := func() (string, []attack.Progress) {
		e := newTestEngine(t, 99)
		sub := subscribe(t, e, events.TopicAttack)
		ack, err := e.StartAttack("zerotrust")
		if err != nil {
			t.Fatalf("StartAttack() error: %v", err)
		}
		_, steps := waitForComplete(t, sub)
		return ack.EntryPoint, steps
	}

	entry1, steps1 := run()
	entry2, steps2 := run()

	if entry1 != entry2 {
		t.Errorf("entry points differ between seeded runs: %q vs %q", entry1, entry2)
	}
	if len(steps1) != len(steps2) {
		t.Fatalf("step counts differ: %d vs %d", len(steps1), len(steps2))
	}
	for i := range steps1 {
		if steps1[i].Step != steps2[i].Step {
			t.Errorf("step %d differs: %+v vs %+v", i, steps1[i].Step, steps2[i].Step)
		}
	}
}

func TestTopology(t *testing.T) {
	e := newTestEngine(t, 1)

	topo := e.Topology()
	if len(topo.Nodes) != 9 {
		t.Errorf("topology has %d nodes, want 9", len(topo.Nodes))
	}
	if len(topo.Links) == 0 {
		t.Error("topology has no links")
	}
}
