package attack

import (
	"context"
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/dd0wney/cluso-zerotrust/pkg/simnet"
)

func newTestNetwork(t *testing.T) *simnet.Network {
	t.Helper()
	n, err := simnet.NewNetwork(simnet.DefaultConfig())
	if err != nil {
		t.Fatalf("NewNetwork() error: %v", err)
	}
	return n
}

// zeroDelayRunner returns a runner that executes without pacing
func zeroDelayRunner(net *simnet.Network, seed int64) *Runner {
	r := NewRunner(net, rand.New(rand.NewSource(seed)))
	r.SettleDelay = 0
	r.TradStepMin = 0
	r.TradStepMax = 0
	r.ZTStepMin = 0
	r.ZTStepMax = 0
	return r
}

// capture collects every frame a run emits
type capture struct {
	progress []Progress
	complete []Complete
}

func (c *capture) bind(r *Runner) {
	r.OnProgress = func(p Progress) { c.progress = append(c.progress, p) }
	r.OnComplete = func(cm Complete) { c.complete = append(c.complete, cm) }
}

func TestParseModel(t *testing.T) {
	tests := []struct {
		input   string
		want    Model
		wantErr bool
	}{
		{"", ModelZeroTrust, false},
		{"zerotrust", ModelZeroTrust, false},
		{"traditional", ModelTraditional, false},
		{"Traditional", "", true},
		{"perimeter", "", true},
		{"zero-trust", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseModel(tt.input)
			if tt.wantErr {
				if !errors.Is(err, ErrUnknownModel) {
					t.Errorf("ParseModel(%q) error = %v, want ErrUnknownModel", tt.input, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseModel(%q) error: %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("ParseModel(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestTraditionalAttackSpreadsEverywhere(t *testing.T) {
	net := newTestNetwork(t)
	runner := zeroDelayRunner(net, 42)

	var frames capture
	frames.bind(runner)

	session, err := runner.NewSessionAt(ModelTraditional, "ws-hr-01")
	if err != nil {
		t.Fatalf("NewSessionAt() error: %v", err)
	}

	if err := runner.Run(context.Background(), session); err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	total := net.TotalDevices()

	// One initial frame plus one per remaining device
	if len(frames.progress) != total {
		t.Fatalf("got %d progress frames, want %d", len(frames.progress), total)
	}

	initial := frames.progress[0]
	if initial.Step.Source != "external" {
		t.Errorf("initial source = %q, want external", initial.Step.Source)
	}
	if initial.Step.Target != "ws-hr-01" {
		t.Errorf("initial target = %q, want ws-hr-01", initial.Step.Target)
	}
	if initial.Step.Reason != "Initial compromise via phishing/malware" {
		t.Errorf("initial reason = %q", initial.Step.Reason)
	}
	if len(initial.CompromisedNodes) != 1 {
		t.Errorf("initial compromised = %v", initial.CompromisedNodes)
	}
	if initial.AttackID != session.ID {
		t.Errorf("attack id = %q, want %q", initial.AttackID, session.ID)
	}

	// Lateral movement visits the remaining devices in their insertion order
	wantOrder := make([]string, 0, total-1)
	for _, id := range net.DeviceIDs() {
		if id != "ws-hr-01" {
			wantOrder = append(wantOrder, id)
		}
	}

	for i, frame := range frames.progress[1:] {
		if frame.Step.Target != wantOrder[i] {
			t.Errorf("frame %d target = %q, want %q", i+1, frame.Step.Target, wantOrder[i])
		}
		if frame.Step.Result != ResultSuccess {
			t.Errorf("frame %d result = %q", i+1, frame.Step.Result)
		}
		if frame.Step.Reason != "Lateral movement via shared credentials/network access" {
			t.Errorf("frame %d reason = %q", i+1, frame.Step.Reason)
		}
		if len(frame.CompromisedNodes) != i+2 {
			t.Errorf("frame %d compromised count = %d, want %d", i+1, len(frame.CompromisedNodes), i+2)
		}

		// Source must be a device that fell before this target
		if frame.Step.Source == frame.Step.Target {
			t.Errorf("frame %d source equals target %q", i+1, frame.Step.Target)
		}
		priorSet := make(map[string]bool)
		for _, id := range frame.CompromisedNodes[:len(frame.CompromisedNodes)-1] {
			priorSet[id] = true
		}
		if !priorSet[frame.Step.Source] {
			t.Errorf("frame %d source %q was not previously compromised", i+1, frame.Step.Source)
		}
	}

	if net.CompromisedCount() != total {
		t.Errorf("network compromised = %d, want %d", net.CompromisedCount(), total)
	}

	if len(frames.complete) != 1 {
		t.Fatalf("got %d completion frames, want 1", len(frames.complete))
	}
	results := frames.complete[0].Results
	if results.Model != ModelTraditional {
		t.Errorf("results model = %q", results.Model)
	}
	if results.CompromisedCount != total || results.TotalNodes != total {
		t.Errorf("results counts = %d/%d, want %d/%d", results.CompromisedCount, results.TotalNodes, total, total)
	}
	if results.ContainmentEffectiveness != "0.0%" {
		t.Errorf("containment = %q, want 0.0%%", results.ContainmentEffectiveness)
	}
	if results.EntryPoint != "ws-hr-01" {
		t.Errorf("entry point = %q", results.EntryPoint)
	}
	if results.AttackID != session.ID {
		t.Errorf("results attack id = %q", results.AttackID)
	}
	if results.Duration <= 0 {
		t.Errorf("duration = %v, want > 0", results.Duration)
	}
}

func TestZeroTrustAttackAllBlocked(t *testing.T) {
	net := newTestNetwork(t)
	runner := zeroDelayRunner(net, 7)
	runner.ZTSuccessRate = 0 // Every lateral attempt fails verification

	var frames capture
	frames.bind(runner)

	session, err := runner.NewSessionAt(ModelZeroTrust, "ws-finance-01")
	if err != nil {
		t.Fatalf("NewSessionAt() error: %v", err)
	}

	if err := runner.Run(context.Background(), session); err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	attempts := net.Degree("ws-finance-01")
	if attempts > DefaultZTMaxAttempts {
		attempts = DefaultZTMaxAttempts
	}
	if len(frames.progress) != 1+attempts {
		t.Fatalf("got %d progress frames, want %d", len(frames.progress), 1+attempts)
	}

	initial := frames.progress[0]
	if initial.Step.Reason != "Initial compromise via social engineering" {
		t.Errorf("initial reason = %q", initial.Step.Reason)
	}

	neighbors := net.Neighbors("ws-finance-01")
	for i, frame := range frames.progress[1:] {
		if frame.Step.Source != "ws-finance-01" {
			t.Errorf("frame %d source = %q, want entry point", i+1, frame.Step.Source)
		}
		if frame.Step.Target != neighbors[i] {
			t.Errorf("frame %d target = %q, want %q", i+1, frame.Step.Target, neighbors[i])
		}
		if frame.Step.Result != ResultBlocked {
			t.Errorf("frame %d result = %q, want blocked", i+1, frame.Step.Result)
		}
		if frame.Step.Reason != "Zero-trust policy blocked lateral movement - continuous verification failed" {
			t.Errorf("frame %d reason = %q", i+1, frame.Step.Reason)
		}
		if len(frame.CompromisedNodes) != 1 {
			t.Errorf("frame %d compromised = %v, want entry only", i+1, frame.CompromisedNodes)
		}
	}

	if net.CompromisedCount() != 1 {
		t.Errorf("network compromised = %d, want 1", net.CompromisedCount())
	}

	results := frames.complete[0].Results
	if results.CompromisedCount != 1 {
		t.Errorf("results compromised = %d, want 1", results.CompromisedCount)
	}
	if results.ContainmentEffectiveness != "88.9%" {
		t.Errorf("containment = %q, want 88.9%%", results.ContainmentEffectiveness)
	}
}

func TestZeroTrustAttackRareBreakthrough(t *testing.T) {
	net := newTestNetwork(t)
	runner := zeroDelayRunner(net, 11)
	runner.ZTSuccessRate = 1 // Force every attempt through

	var frames capture
	frames.bind(runner)

	session, err := runner.NewSessionAt(ModelZeroTrust, "ws-finance-01")
	if err != nil {
		t.Fatalf("NewSessionAt() error: %v", err)
	}

	if err := runner.Run(context.Background(), session); err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	attempts := net.Degree("ws-finance-01")
	if attempts > DefaultZTMaxAttempts {
		attempts = DefaultZTMaxAttempts
	}

	for i, frame := range frames.progress[1:] {
		if frame.Step.Result != ResultSuccess {
			t.Errorf("frame %d result = %q, want success", i+1, frame.Step.Result)
		}
		if frame.Step.Reason != "Lateral movement succeeded despite zero-trust (rare vulnerability)" {
			t.Errorf("frame %d reason = %q", i+1, frame.Step.Reason)
		}
	}

	want := 1 + attempts
	if got := frames.complete[0].Results.CompromisedCount; got != want {
		t.Errorf("compromised = %d, want %d", got, want)
	}
	if net.CompromisedCount() != want {
		t.Errorf("network compromised = %d, want %d", net.CompromisedCount(), want)
	}
}

func TestZeroTrustNeighborCap(t *testing.T) {
	// A hub endpoint with six neighbors only ever sees four attempts
	cfg := simnet.Config{
		Devices: []simnet.Device{
			{ID: "hub", Type: simnet.DeviceWorkstation, IPAddress: "10.0.0.1", TrustScore: 0.8},
		},
		Users: []simnet.User{
			{ID: "u", Name: "U", Role: "Analyst", RiskScore: 0.1, Department: "it"},
		},
	}
	for i := 0; i < 6; i++ {
		id := string(rune('a' + i))
		cfg.Devices = append(cfg.Devices, simnet.Device{
			ID: id, Type: simnet.DeviceWorkstation, IPAddress: "10.0.0.2", TrustScore: 0.8,
		})
		cfg.Links = append(cfg.Links, simnet.Link{Source: "hub", Target: id})
	}

	net, err := simnet.NewNetwork(cfg)
	if err != nil {
		t.Fatalf("NewNetwork() error: %v", err)
	}

	runner := zeroDelayRunner(net, 3)
	var frames capture
	frames.bind(runner)

	session, err := runner.NewSessionAt(ModelZeroTrust, "hub")
	if err != nil {
		t.Fatalf("NewSessionAt() error: %v", err)
	}
	if err := runner.Run(context.Background(), session); err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	if len(frames.progress) != 1+DefaultZTMaxAttempts {
		t.Errorf("got %d frames, want %d", len(frames.progress), 1+DefaultZTMaxAttempts)
	}

	// The four attempts target the first four neighbors in link order
	neighbors := net.Neighbors("hub")
	for i, frame := range frames.progress[1:] {
		if frame.Step.Target != neighbors[i] {
			t.Errorf("attempt %d target = %q, want %q", i, frame.Step.Target, neighbors[i])
		}
	}
}

func TestRunCancellation(t *testing.T) {
	net := newTestNetwork(t)
	runner := NewRunner(net, rand.New(rand.NewSource(5)))
	runner.SettleDelay = 50 * time.Millisecond
	runner.TradStepMin = 50 * time.Millisecond
	runner.TradStepMax = 100 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())

	var frames capture
	frames.bind(runner)
	runner.OnProgress = func(p Progress) {
		frames.progress = append(frames.progress, p)
		cancel() // Stop after the initial compromise
	}

	session, err := runner.NewSessionAt(ModelTraditional, "ws-it-01")
	if err != nil {
		t.Fatalf("NewSessionAt() error: %v", err)
	}

	err = runner.Run(ctx, session)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Run() error = %v, want context.Canceled", err)
	}

	if len(frames.complete) != 0 {
		t.Error("cancelled run emitted a completion frame")
	}
	if net.CompromisedCount() != 1 {
		t.Errorf("network compromised = %d, want 1 (entry only)", net.CompromisedCount())
	}
}

func TestNewSessionPicksEndpoints(t *testing.T) {
	net := newTestNetwork(t)
	runner := zeroDelayRunner(net, 9)

	endpoints := make(map[string]bool)
	for _, id := range net.EndpointDeviceIDs() {
		endpoints[id] = true
	}

	for i := 0; i < 50; i++ {
		session, err := runner.NewSession(ModelZeroTrust)
		if err != nil {
			t.Fatalf("NewSession() error: %v", err)
		}
		if !endpoints[session.EntryPoint] {
			t.Fatalf("entry point %q is not an endpoint device", session.EntryPoint)
		}
		if session.ID == "" {
			t.Fatal("session without id")
		}
	}
}

func TestNewSessionAtUnknownDevice(t *testing.T) {
	net := newTestNetwork(t)
	runner := zeroDelayRunner(net, 1)

	if _, err := runner.NewSessionAt(ModelZeroTrust, "ws-ghost"); err == nil {
		t.Error("NewSessionAt() with unknown device should fail")
	}
}

func TestContainment(t *testing.T) {
	tests := []struct {
		compromised int
		total       int
		want        string
	}{
		{9, 9, "0.0%"},
		{1, 9, "88.9%"},
		{2, 9, "77.8%"},
		{3, 4, "25.0%"},
		{0, 0, "0.0%"},
		{1, 2, "50.0%"},
	}

	for _, tt := range tests {
		if got := Containment(tt.compromised, tt.total); got != tt.want {
			t.Errorf("Containment(%d, %d) = %q, want %q", tt.compromised, tt.total, tt.want)
		}
	}
}
