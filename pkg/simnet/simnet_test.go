package simnet

import (
	"strings"
	"sync"
	"testing"
)

func testConfig() Config {
	return Config{
		Devices: []Device{
			{ID: "gw", Type: DeviceRouter, IPAddress: "10.0.0.1", TrustScore: 0.9},
			{ID: "srv", Type: DeviceServer, IPAddress: "10.0.0.2", TrustScore: 0.8},
			{ID: "ws-1", Type: DeviceWorkstation, IPAddress: "10.0.0.3", TrustScore: 0.7},
			{ID: "ws-2", Type: DeviceWorkstation, IPAddress: "10.0.0.4", TrustScore: 0.6},
		},
		Links: []Link{
			{Source: "gw", Target: "srv"},
			{Source: "gw", Target: "ws-1"},
			{Source: "ws-1", Target: "ws-2"},
		},
		Users: []User{
			{ID: "u1", Name: "User One", Role: "Analyst", RiskScore: 0.2, Department: "it"},
			{ID: "u2", Name: "User Two", Role: "Contractor", RiskScore: 0.8, Department: "external"},
		},
	}
}

func TestNewNetwork(t *testing.T) {
	n, err := NewNetwork(testConfig())
	if err != nil {
		t.Fatalf("NewNetwork() error: %v", err)
	}

	if n.TotalDevices() != 4 {
		t.Errorf("TotalDevices() = %d, want 4", n.TotalDevices())
	}
	if n.TotalUsers() != 2 {
		t.Errorf("TotalUsers() = %d, want 2", n.TotalUsers())
	}
	if n.CompromisedCount() != 0 {
		t.Errorf("new network should start clean, got %d compromised", n.CompromisedCount())
	}
}

func TestNewNetworkValidation(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name: "dangling link source",
			mutate: func(c *Config) {
				c.Links = append(c.Links, Link{Source: "ghost", Target: "srv"})
			},
			wantErr: "unknown device",
		},
		{
			name: "dangling link target",
			mutate: func(c *Config) {
				c.Links = append(c.Links, Link{Source: "srv", Target: "ghost"})
			},
			wantErr: "unknown device",
		},
		{
			name: "self loop",
			mutate: func(c *Config) {
				c.Links = append(c.Links, Link{Source: "srv", Target: "srv"})
			},
			wantErr: "self-loop",
		},
		{
			name: "duplicate link",
			mutate: func(c *Config) {
				c.Links = append(c.Links, Link{Source: "srv", Target: "gw"})
			},
			wantErr: "duplicate link",
		},
		{
			name: "duplicate device",
			mutate: func(c *Config) {
				c.Devices = append(c.Devices, Device{ID: "srv", Type: DeviceServer, TrustScore: 0.5})
			},
			wantErr: "duplicate device",
		},
		{
			name: "duplicate user",
			mutate: func(c *Config) {
				c.Users = append(c.Users, User{ID: "u1", RiskScore: 0.5})
			},
			wantErr: "duplicate user",
		},
		{
			name: "trust score out of range",
			mutate: func(c *Config) {
				c.Devices[0].TrustScore = 1.5
			},
			wantErr: "out of range",
		},
		{
			name: "risk score out of range",
			mutate: func(c *Config) {
				c.Users[0].RiskScore = -0.1
			},
			wantErr: "out of range",
		},
		{
			name: "unknown device type",
			mutate: func(c *Config) {
				c.Devices[0].Type = "toaster"
			},
			wantErr: "unknown type",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			tt.mutate(&cfg)
			_, err := NewNetwork(cfg)
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %q, want substring %q", err, tt.wantErr)
			}
		})
	}
}

func TestNeighborsOrder(t *testing.T) {
	n, err := NewNetwork(DefaultConfig())
	if err != nil {
		t.Fatalf("NewNetwork() error: %v", err)
	}

	// firewall-01's neighbors follow link configuration order
	want := []string{
		"dc-server-01", "db-server-01", "ws-finance-01", "ws-finance-02",
		"ws-hr-01", "ws-it-01", "mobile-ceo", "printer-01",
	}
	got := n.Neighbors("firewall-01")
	if len(got) != len(want) {
		t.Fatalf("Neighbors() returned %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Neighbors()[%d] = %q, want %q", i, got[i], want[i])
		}
	}

	// Adjacency is symmetric
	found := false
	for _, id := range n.Neighbors("ws-finance-02") {
		if id == "ws-finance-01" {
			found = true
		}
	}
	if !found {
		t.Error("ws-finance-02 should list ws-finance-01 as neighbor")
	}
}

func TestEndpointDeviceIDs(t *testing.T) {
	n, err := NewNetwork(DefaultConfig())
	if err != nil {
		t.Fatalf("NewNetwork() error: %v", err)
	}

	for _, id := range n.EndpointDeviceIDs() {
		d, ok := n.Device(id)
		if !ok {
			t.Fatalf("unknown endpoint device %q", id)
		}
		if d.Type == DeviceRouter {
			t.Errorf("router %q listed as endpoint", id)
		}
	}

	if got := len(n.EndpointDeviceIDs()); got != 8 {
		t.Errorf("endpoint count = %d, want 8", got)
	}
}

func TestCompromiseAndClear(t *testing.T) {
	n, err := NewNetwork(testConfig())
	if err != nil {
		t.Fatalf("NewNetwork() error: %v", err)
	}

	if err := n.Compromise("ws-1"); err != nil {
		t.Fatalf("Compromise() error: %v", err)
	}
	if !n.IsCompromised("ws-1") {
		t.Error("ws-1 should be compromised")
	}
	if n.CompromisedCount() != 1 {
		t.Errorf("CompromisedCount() = %d, want 1", n.CompromisedCount())
	}

	// Device() returns a snapshot, not a live reference
	snap, _ := n.Device("ws-2")
	snap.Compromised = true
	if n.IsCompromised("ws-2") {
		t.Error("mutating a snapshot must not touch the network")
	}

	if err := n.Compromise("ghost"); err == nil {
		t.Error("Compromise(unknown) should fail")
	}

	n.ClearCompromised()
	if n.CompromisedCount() != 0 {
		t.Errorf("after clear, CompromisedCount() = %d", n.CompromisedCount())
	}

	// Idempotent
	n.ClearCompromised()
	if n.CompromisedCount() != 0 {
		t.Error("second clear changed state")
	}
}

func TestTopologyView(t *testing.T) {
	n, err := NewNetwork(DefaultConfig())
	if err != nil {
		t.Fatalf("NewNetwork() error: %v", err)
	}

	view := n.Topology()

	if len(view.Nodes) != 9 {
		t.Errorf("nodes = %d, want 9", len(view.Nodes))
	}
	if len(view.Links) != 10 {
		t.Errorf("links = %d, want 10", len(view.Links))
	}

	// Nodes follow configuration order
	if view.Nodes[0].ID != "firewall-01" {
		t.Errorf("first node = %q, want firewall-01", view.Nodes[0].ID)
	}

	seen := make(map[string]bool)
	for _, l := range view.Links {
		if l.Source == l.Target {
			t.Errorf("self-loop %s-%s", l.Source, l.Target)
		}
		if l.Source > l.Target {
			t.Errorf("link %s-%s not ordered", l.Source, l.Target)
		}
		key := l.Source + "|" + l.Target
		if seen[key] {
			t.Errorf("duplicate link %s", key)
		}
		seen[key] = true
	}
}

func TestTopologyReflectsCompromise(t *testing.T) {
	n, err := NewNetwork(DefaultConfig())
	if err != nil {
		t.Fatalf("NewNetwork() error: %v", err)
	}

	n.Compromise("printer-01")

	for _, node := range n.Topology().Nodes {
		want := node.ID == "printer-01"
		if node.IsCompromised != want {
			t.Errorf("node %q IsCompromised = %v, want %v", node.ID, node.IsCompromised, want)
		}
	}
}

func TestConcurrentCompromise(t *testing.T) {
	n, err := NewNetwork(DefaultConfig())
	if err != nil {
		t.Fatalf("NewNetwork() error: %v", err)
	}

	ids := n.DeviceIDs()
	var wg sync.WaitGroup
	for _, id := range ids {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			n.Compromise(id)
			n.IsCompromised(id)
			n.CompromisedCount()
		}(id)
	}
	wg.Wait()

	if n.CompromisedCount() != len(ids) {
		t.Errorf("CompromisedCount() = %d, want %d", n.CompromisedCount(), len(ids))
	}
}

func TestDefaultConfigShape(t *testing.T) {
	cfg := DefaultConfig()

	if len(cfg.Devices) != 9 {
		t.Errorf("devices = %d, want 9", len(cfg.Devices))
	}
	if len(cfg.Links) != 10 {
		t.Errorf("links = %d, want 10", len(cfg.Links))
	}
	if len(cfg.Users) != 6 {
		t.Errorf("users = %d, want 6", len(cfg.Users))
	}

	n, err := NewNetwork(cfg)
	if err != nil {
		t.Fatalf("default config should build: %v", err)
	}

	d, ok := n.Device("ws-finance-01")
	if !ok {
		t.Fatal("ws-finance-01 missing")
	}
	if d.TrustScore != 0.8 {
		t.Errorf("ws-finance-01 trust = %v, want 0.8", d.TrustScore)
	}

	u, ok := n.User("eve.contractor")
	if !ok {
		t.Fatal("eve.contractor missing")
	}
	if u.Department != "external" {
		t.Errorf("eve.contractor department = %q, want external", u.Department)
	}
}
