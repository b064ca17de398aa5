package risk

import (
	"time"

	"github.com/dd0wney/cluso-zerotrust/pkg/simnet"
)

// Decision is the outcome of evaluating an access request
type Decision string

const (
	DecisionAllow     Decision = "allowed"
	DecisionDeny      Decision = "denied"
	DecisionChallenge Decision = "challenged"
)

// Decision reasons surfaced to the dashboard and the audit trail
const (
	ReasonLowRisk           = "Low risk profile - access granted"
	ReasonMediumRisk        = "Medium risk - additional verification required"
	ReasonHighRisk          = "High risk profile - access denied"
	ReasonDeviceCompromised = "Device compromised - access blocked"
	ReasonLowDeviceTrust    = "Insufficient device trust for sensitive resource"
	ReasonExternalUser      = "External user accessing internal resource"
	ReasonUnknownSubject    = "Unknown user or device"
)

// Factor weights. They sum to 1.0 so the overall risk stays in [0,1].
const (
	userWeight     = 0.30
	deviceWeight   = 0.30
	resourceWeight = 0.25
	timeWeight     = 0.15
)

// Decision thresholds on the overall risk score
const (
	allowBelow = 0.5
	denyFrom   = 0.8
)

// Request is one synthetic access attempt
type Request struct {
	UserID    string
	DeviceID  string
	Resource  string
	Action    string
	Timestamp time.Time
}

// Factors breaks the overall risk into its weighted components
type Factors struct {
	UserRisk            float64 `json:"user_risk"`
	DeviceRisk          float64 `json:"device_risk"`
	ResourceSensitivity float64 `json:"resource_sensitivity"`
	TimeRisk            float64 `json:"time_risk"`
}

// Sum returns the overall risk score
func (f Factors) Sum() float64 {
	return f.UserRisk + f.DeviceRisk + f.ResourceSensitivity + f.TimeRisk
}

// Evaluation is the full result of a zero-trust access decision
type Evaluation struct {
	Decision   Decision `json:"decision"`
	Reason     string   `json:"reason"`
	TrustScore float64  `json:"trust_score"`
	Factors    *Factors `json:"risk_factors,omitempty"`
}

// Evaluate runs the zero-trust decision function against the current
// network snapshot. It is a pure function of the request and the referenced
// user/device state: it never mutates the network and never fails. A
// request naming an unknown user or device degrades to a deny.
func Evaluate(req Request, net *simnet.Network) Evaluation {
	user, userOK := net.User(req.UserID)
	device, deviceOK := net.Device(req.DeviceID)
	if !userOK || !deviceOK {
		return Evaluation{
			Decision:   DecisionDeny,
			Reason:     ReasonUnknownSubject,
			TrustScore: 0.0,
		}
	}

	sensitivity := ResourceSensitivity(req.Resource)
	factors := Factors{
		UserRisk:            user.RiskScore * userWeight,
		DeviceRisk:          (1 - device.TrustScore) * deviceWeight,
		ResourceSensitivity: sensitivity * resourceWeight,
		TimeRisk:            (1 - TimeSafety(req.Timestamp)) * timeWeight,
	}
	overall := factors.Sum()

	var decision Decision
	var reason string
	switch {
	case overall < allowBelow:
		decision = DecisionAllow
		reason = ReasonLowRisk
	case overall < denyFrom:
		decision = DecisionChallenge
		reason = ReasonMediumRisk
	default:
		decision = DecisionDeny
		reason = ReasonHighRisk
	}

	// Overrides, in precedence order. At most one fires.
	if device.Compromised {
		decision = DecisionDeny
		reason = ReasonDeviceCompromised
	} else if sensitivity > 0.8 && device.TrustScore < 0.8 {
		decision = DecisionDeny
		reason = ReasonLowDeviceTrust
	} else if user.Department == "external" && sensitivity > 0.5 {
		decision = DecisionChallenge
		reason = ReasonExternalUser
	}

	return Evaluation{
		Decision:   decision,
		Reason:     reason,
		TrustScore: 1 - overall,
		Factors:    &factors,
	}
}

// sensitivityTable scores how protected each resource should be
var sensitivityTable = map[string]float64{
	"database":       0.9,
	"financial_data": 0.95,
	"customer_data":  0.85,
	"admin_panel":    0.9,
	"hr_records":     0.8,
	"source_code":    0.7,
	"file_share":     0.5,
	"email":          0.3,
	"printer":        0.2,
	"web_app":        0.4,
	"reports":        0.6,
}

// ResourceSensitivity returns the sensitivity score for a resource in
// [0,1]. Unknown resources score 0.5.
func ResourceSensitivity(resource string) float64 {
	if s, ok := sensitivityTable[resource]; ok {
		return s
	}
	return 0.5
}

// TimeSafety buckets the local hour of day into a safety score:
// business hours are safest, the night shift is not.
func TimeSafety(t time.Time) float64 {
	hour := t.Hour()
	switch {
	case hour >= 9 && hour <= 17:
		return 0.9
	case (hour >= 7 && hour < 9) || (hour > 17 && hour <= 20):
		return 0.6
	default:
		return 0.2
	}
}
