package simnet

// DeviceType categorizes a device on the simulated network
type DeviceType string

const (
	DeviceRouter      DeviceType = "router"
	DeviceServer      DeviceType = "server"
	DeviceWorkstation DeviceType = "workstation"
	DeviceMobile      DeviceType = "mobile"
	DeviceIOT         DeviceType = "iot"
)

// Valid reports whether the device type is one of the known categories
func (t DeviceType) Valid() bool {
	switch t {
	case DeviceRouter, DeviceServer, DeviceWorkstation, DeviceMobile, DeviceIOT:
		return true
	}
	return false
}

// Device is a node on the simulated network.
// TrustScore is fixed for the lifetime of the simulation; only the
// Compromised flag mutates, and only under the network's lock.
type Device struct {
	ID          string
	Type        DeviceType
	IPAddress   string
	TrustScore  float64
	Compromised bool
	X           float64
	Y           float64
}

// User is an identity that issues access requests. Immutable after
// initialization.
type User struct {
	ID         string
	Name       string
	Role       string
	RiskScore  float64
	Department string
}

// Link is an undirected connection between two devices
type Link struct {
	Source string
	Target string
}

// Config is the immutable description a Network is built from
type Config struct {
	Devices []Device
	Links   []Link
	Users   []User
}

// NodeView is a device as exposed through the topology snapshot
type NodeView struct {
	ID            string  `json:"id"`
	Type          string  `json:"type"`
	TrustScore    float64 `json:"trust_score"`
	IsCompromised bool    `json:"is_compromised"`
	X             float64 `json:"x"`
	Y             float64 `json:"y"`
}

// LinkView is a deduplicated undirected edge: Source < Target
type LinkView struct {
	Source string `json:"source"`
	Target string `json:"target"`
}

// TopologyView is the wire representation of the network graph
type TopologyView struct {
	Nodes []NodeView `json:"nodes"`
	Links []LinkView `json:"links"`
}
