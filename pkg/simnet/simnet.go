package simnet

import (
	"fmt"
	"sync"
)

// Network is the shared substrate the simulator reads and mutates.
// Structure (devices, users, adjacency) is fixed at construction; the only
// mutable state is each device's Compromised flag.
type Network struct {
	mu          sync.RWMutex
	devices     map[string]*Device
	deviceOrder []string
	users       map[string]*User
	userOrder   []string
	adjacency   map[string][]string
	links       []Link
}

// NewNetwork builds a Network from a configuration. Every link must
// reference two distinct, existing devices; device and user IDs must be
// unique.
func NewNetwork(cfg Config) (*Network, error) {
	n := &Network{
		devices:   make(map[string]*Device, len(cfg.Devices)),
		users:     make(map[string]*User, len(cfg.Users)),
		adjacency: make(map[string][]string),
	}

	for _, d := range cfg.Devices {
		if d.ID == "" {
			return nil, fmt.Errorf("device with empty ID")
		}
		if !d.Type.Valid() {
			return nil, fmt.Errorf("device %q: unknown type %q", d.ID, d.Type)
		}
		if d.TrustScore < 0 || d.TrustScore > 1 {
			return nil, fmt.Errorf("device %q: trust score %v out of range [0,1]", d.ID, d.TrustScore)
		}
		if _, exists := n.devices[d.ID]; exists {
			return nil, fmt.Errorf("duplicate device %q", d.ID)
		}
		device := d
		device.Compromised = false
		n.devices[d.ID] = &device
		n.deviceOrder = append(n.deviceOrder, d.ID)
	}

	for _, l := range cfg.Links {
		if l.Source == l.Target {
			return nil, fmt.Errorf("self-loop on device %q", l.Source)
		}
		if _, ok := n.devices[l.Source]; !ok {
			return nil, fmt.Errorf("link references unknown device %q", l.Source)
		}
		if _, ok := n.devices[l.Target]; !ok {
			return nil, fmt.Errorf("link references unknown device %q", l.Target)
		}
		if n.connected(l.Source, l.Target) {
			return nil, fmt.Errorf("duplicate link %s-%s", l.Source, l.Target)
		}
		n.adjacency[l.Source] = append(n.adjacency[l.Source], l.Target)
		n.adjacency[l.Target] = append(n.adjacency[l.Target], l.Source)
		n.links = append(n.links, l)
	}

	for _, u := range cfg.Users {
		if u.ID == "" {
			return nil, fmt.Errorf("user with empty ID")
		}
		if u.RiskScore < 0 || u.RiskScore > 1 {
			return nil, fmt.Errorf("user %q: risk score %v out of range [0,1]", u.ID, u.RiskScore)
		}
		if _, exists := n.users[u.ID]; exists {
			return nil, fmt.Errorf("duplicate user %q", u.ID)
		}
		user := u
		n.users[u.ID] = &user
		n.userOrder = append(n.userOrder, u.ID)
	}

	return n, nil
}

func (n *Network) connected(a, b string) bool {
	for _, id := range n.adjacency[a] {
		if id == b {
			return true
		}
	}
	return false
}

// Device returns a snapshot copy of the device with the given ID
func (n *Network) Device(id string) (Device, bool) {
	n.mu.RLock()
	defer n.mu.RUnlock()

	d, ok := n.devices[id]
	if !ok {
		return Device{}, false
	}
	return *d, true
}

// User returns the user with the given ID
func (n *Network) User(id string) (User, bool) {
	n.mu.RLock()
	defer n.mu.RUnlock()

	u, ok := n.users[id]
	if !ok {
		return User{}, false
	}
	return *u, true
}

// Devices returns snapshot copies of all devices in configuration order
func (n *Network) Devices() []Device {
	n.mu.RLock()
	defer n.mu.RUnlock()

	out := make([]Device, 0, len(n.deviceOrder))
	for _, id := range n.deviceOrder {
		out = append(out, *n.devices[id])
	}
	return out
}

// Users returns all users in configuration order
func (n *Network) Users() []User {
	n.mu.RLock()
	defer n.mu.RUnlock()

	out := make([]User, 0, len(n.userOrder))
	for _, id := range n.userOrder {
		out = append(out, *n.users[id])
	}
	return out
}

// DeviceIDs returns all device IDs in configuration order
func (n *Network) DeviceIDs() []string {
	n.mu.RLock()
	defer n.mu.RUnlock()

	out := make([]string, len(n.deviceOrder))
	copy(out, n.deviceOrder)
	return out
}

// UserIDs returns all user IDs in configuration order
func (n *Network) UserIDs() []string {
	n.mu.RLock()
	defer n.mu.RUnlock()

	out := make([]string, len(n.userOrder))
	copy(out, n.userOrder)
	return out
}

// EndpointDeviceIDs returns the IDs of devices users actually work from.
// Routers are infrastructure, not access endpoints, and are excluded.
func (n *Network) EndpointDeviceIDs() []string {
	n.mu.RLock()
	defer n.mu.RUnlock()

	out := make([]string, 0, len(n.deviceOrder))
	for _, id := range n.deviceOrder {
		if n.devices[id].Type != DeviceRouter {
			out = append(out, id)
		}
	}
	return out
}

// Neighbors returns the IDs adjacent to the given device, in the order
// their links were configured
func (n *Network) Neighbors(id string) []string {
	n.mu.RLock()
	defer n.mu.RUnlock()

	adj := n.adjacency[id]
	out := make([]string, len(adj))
	copy(out, adj)
	return out
}

// Degree returns how many links the given device has
func (n *Network) Degree(id string) int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return len(n.adjacency[id])
}

// Compromise marks a device as compromised
func (n *Network) Compromise(id string) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	d, ok := n.devices[id]
	if !ok {
		return fmt.Errorf("unknown device %q", id)
	}
	d.Compromised = true
	return nil
}

// IsCompromised reports whether the device is currently compromised.
// Unknown devices report false.
func (n *Network) IsCompromised(id string) bool {
	n.mu.RLock()
	defer n.mu.RUnlock()

	d, ok := n.devices[id]
	return ok && d.Compromised
}

// CompromisedCount returns how many devices are currently compromised
func (n *Network) CompromisedCount() int {
	n.mu.RLock()
	defer n.mu.RUnlock()

	count := 0
	for _, d := range n.devices {
		if d.Compromised {
			count++
		}
	}
	return count
}

// TotalDevices returns the number of devices on the network
func (n *Network) TotalDevices() int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return len(n.devices)
}

// TotalUsers returns the number of configured users
func (n *Network) TotalUsers() int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return len(n.users)
}

// ClearCompromised resets every device's compromised flag. Idempotent.
func (n *Network) ClearCompromised() {
	n.mu.Lock()
	defer n.mu.Unlock()

	for _, d := range n.devices {
		d.Compromised = false
	}
}

// Topology returns the wire snapshot of the network: nodes in
// configuration order, each undirected link exactly once with the pair
// ordered lexicographically.
func (n *Network) Topology() TopologyView {
	n.mu.RLock()
	defer n.mu.RUnlock()

	view := TopologyView{
		Nodes: make([]NodeView, 0, len(n.deviceOrder)),
		Links: make([]LinkView, 0, len(n.links)),
	}

	for _, id := range n.deviceOrder {
		d := n.devices[id]
		view.Nodes = append(view.Nodes, NodeView{
			ID:            d.ID,
			Type:          string(d.Type),
			TrustScore:    d.TrustScore,
			IsCompromised: d.Compromised,
			X:             d.X,
			Y:             d.Y,
		})
	}

	for _, l := range n.links {
		src, dst := l.Source, l.Target
		if dst < src {
			src, dst = dst, src
		}
		view.Links = append(view.Links, LinkView{Source: src, Target: dst})
	}

	return view
}
