// Package attack simulates lateral movement through the network under
// two security postures: a traditional perimeter model where movement
// inside the network is unimpeded, and a zero-trust model where every
// hop is re-verified and usually blocked.
package attack

import (
	"errors"
	"fmt"
)

// Model selects the security posture an attack runs against
type Model string

const (
	ModelTraditional Model = "traditional"
	ModelZeroTrust   Model = "zerotrust"
)

// ErrUnknownModel is returned for model strings other than
// "traditional" and "zerotrust"
var ErrUnknownModel = errors.New("attack: unknown security model")

// ParseModel validates a model string. An empty string defaults to the
// zero-trust model.
func ParseModel(s string) (Model, error) {
	switch s {
	case "":
		return ModelZeroTrust, nil
	case string(ModelTraditional):
		return ModelTraditional, nil
	case string(ModelZeroTrust):
		return ModelZeroTrust, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownModel, s)
	}
}

// Step results
const (
	ResultSuccess = "success"
	ResultBlocked = "blocked"
)

// Step reasons as shown on the dashboard trace
const (
	reasonInitialTraditional = "Initial compromise via phishing/malware"
	reasonLateralTraditional = "Lateral movement via shared credentials/network access"
	reasonInitialZeroTrust   = "Initial compromise via social engineering"
	reasonLateralSucceeded   = "Lateral movement succeeded despite zero-trust (rare vulnerability)"
	reasonLateralBlocked     = "Zero-trust policy blocked lateral movement - continuous verification failed"
)

// externalSource marks the initial compromise as coming from outside
// the network
const externalSource = "external"

// Step describes one movement attempt inside an attack run
type Step struct {
	Source string `json:"source"`
	Target string `json:"target"`
	Result string `json:"result"`
	Model  Model  `json:"model"`
	Reason string `json:"reason"`
}

// Progress is the frame broadcast after every movement attempt
type Progress struct {
	Type             string   `json:"type"`
	Step             Step     `json:"step"`
	CompromisedNodes []string `json:"compromised_nodes"`
	AttackID         string   `json:"attack_id"`
}

// Results summarizes a finished attack run. Duration is the epoch time
// in seconds at completion.
type Results struct {
	Model                    Model   `json:"model"`
	CompromisedCount         int     `json:"compromised_count"`
	TotalNodes               int     `json:"total_nodes"`
	ContainmentEffectiveness string  `json:"containment_effectiveness"`
	AttackID                 string  `json:"attack_id"`
	EntryPoint               string  `json:"entry_point"`
	Duration                 float64 `json:"duration"`
}

// Complete is the frame broadcast once an attack run finishes
type Complete struct {
	Type    string  `json:"type"`
	Results Results `json:"results"`
}

// Frame type tags on Progress and Complete
const (
	TypeProgress = "attack_progress"
	TypeComplete = "attack_complete"
)
