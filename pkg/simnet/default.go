package simnet

// DefaultConfig returns the built-in corporate network: a firewall fronting
// two servers, four workstations, an executive phone and a printer. Device
// positions are fixed so visualizations render consistently.
func DefaultConfig() Config {
	return Config{
		Devices: []Device{
			{ID: "firewall-01", Type: DeviceRouter, IPAddress: "192.168.1.1", TrustScore: 0.95, X: 400, Y: 100},
			{ID: "dc-server-01", Type: DeviceServer, IPAddress: "192.168.1.10", TrustScore: 0.9, X: 300, Y: 200},
			{ID: "db-server-01", Type: DeviceServer, IPAddress: "192.168.1.11", TrustScore: 0.85, X: 500, Y: 200},
			{ID: "ws-finance-01", Type: DeviceWorkstation, IPAddress: "192.168.2.10", TrustScore: 0.8, X: 200, Y: 300},
			{ID: "ws-finance-02", Type: DeviceWorkstation, IPAddress: "192.168.2.11", TrustScore: 0.9, X: 350, Y: 350},
			{ID: "ws-hr-01", Type: DeviceWorkstation, IPAddress: "192.168.2.20", TrustScore: 0.7, X: 450, Y: 350},
			{ID: "ws-it-01", Type: DeviceWorkstation, IPAddress: "192.168.2.30", TrustScore: 0.95, X: 600, Y: 300},
			{ID: "mobile-ceo", Type: DeviceMobile, IPAddress: "10.0.1.5", TrustScore: 0.8, X: 100, Y: 400},
			{ID: "printer-01", Type: DeviceIOT, IPAddress: "192.168.3.10", TrustScore: 0.4, X: 700, Y: 400},
		},
		Links: []Link{
			{Source: "firewall-01", Target: "dc-server-01"},
			{Source: "firewall-01", Target: "db-server-01"},
			{Source: "firewall-01", Target: "ws-finance-01"},
			{Source: "firewall-01", Target: "ws-finance-02"},
			{Source: "firewall-01", Target: "ws-hr-01"},
			{Source: "firewall-01", Target: "ws-it-01"},
			{Source: "firewall-01", Target: "mobile-ceo"},
			{Source: "firewall-01", Target: "printer-01"},
			{Source: "dc-server-01", Target: "db-server-01"},
			{Source: "ws-finance-01", Target: "ws-finance-02"},
		},
		Users: []User{
			{ID: "alice.finance", Name: "Alice Johnson", Role: "CFO", RiskScore: 0.3, Department: "finance"},
			{ID: "bob.it", Name: "Bob Wilson", Role: "IT Admin", RiskScore: 0.2, Department: "it"},
			{ID: "carol.hr", Name: "Carol Brown", Role: "HR Manager", RiskScore: 0.4, Department: "hr"},
			{ID: "dave.sales", Name: "Dave Miller", Role: "Sales Rep", RiskScore: 0.5, Department: "sales"},
			{ID: "eve.contractor", Name: "Eve Davis", Role: "Contractor", RiskScore: 0.8, Department: "external"},
			{ID: "frank.intern", Name: "Frank Smith", Role: "Intern", RiskScore: 0.6, Department: "intern"},
		},
	}
}
