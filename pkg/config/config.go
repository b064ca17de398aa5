// Package config loads and validates simulator configuration. Defaults
// reproduce the built-in corporate lab network; a YAML file and a small
// set of environment variables can override them.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/dd0wney/cluso-zerotrust/pkg/simnet"
)

// validate is a singleton validator instance
var validate *validator.Validate

func init() {
	validate = validator.New()
}

// Environment variables recognized by Load
const (
	EnvAddr      = "ZEROTRUST_ADDR"
	EnvLogLevel  = "ZEROTRUST_LOG_LEVEL"
	EnvLogFormat = "ZEROTRUST_LOG_FORMAT"
	EnvSeed      = "ZEROTRUST_SEED"
)

// Duration is a time.Duration written in Go's duration syntax in YAML,
// e.g. "30s" or "250ms"
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return fmt.Errorf("duration must be a string like \"30s\": %w", err)
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the standard library representation
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Config is the root simulator configuration
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Simulation SimulationConfig `yaml:"simulation"`
	Network    NetworkConfig    `yaml:"network"`
}

// ServerConfig configures the HTTP listener
type ServerConfig struct {
	Addr            string   `yaml:"addr" validate:"required"`
	ShutdownTimeout Duration `yaml:"shutdown_timeout" validate:"min=0"`
	LogLevel        string   `yaml:"log_level" validate:"oneof=debug info warn error"`
	LogFormat       string   `yaml:"log_format" validate:"oneof=json text"`
}

// SimulationConfig configures simulation behavior. A zero seed means
// runs are seeded from the clock.
type SimulationConfig struct {
	Seed int64 `yaml:"seed"`
}

// NetworkConfig describes the simulated network
type NetworkConfig struct {
	Devices []DeviceConfig `yaml:"devices" validate:"required,min=1,dive"`
	Links   []LinkConfig   `yaml:"links" validate:"dive"`
	Users   []UserConfig   `yaml:"users" validate:"required,min=1,dive"`
}

// DeviceConfig describes one device
type DeviceConfig struct {
	ID         string  `yaml:"id" validate:"required"`
	Type       string  `yaml:"type" validate:"required,oneof=router server workstation mobile iot"`
	IPAddress  string  `yaml:"ip_address" validate:"required,ip"`
	TrustScore float64 `yaml:"trust_score" validate:"min=0,max=1"`
	X          float64 `yaml:"x"`
	Y          float64 `yaml:"y"`
}

// LinkConfig describes one undirected connection
type LinkConfig struct {
	Source string `yaml:"source" validate:"required"`
	Target string `yaml:"target" validate:"required"`
}

// UserConfig describes one user identity
type UserConfig struct {
	ID         string  `yaml:"id" validate:"required"`
	Name       string  `yaml:"name" validate:"required"`
	Role       string  `yaml:"role" validate:"required"`
	RiskScore  float64 `yaml:"risk_score" validate:"min=0,max=1"`
	Department string  `yaml:"department" validate:"required"`
}

// Default returns the built-in configuration: the standard corporate
// lab network served on the original port.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Addr:            ":5000",
			ShutdownTimeout: Duration(10 * time.Second),
			LogLevel:        "info",
			LogFormat:       "json",
		},
		Network: fromSimnet(simnet.DefaultConfig()),
	}
}

// Load builds the effective configuration: defaults, overridden by the
// YAML file at path (if non-empty), overridden by environment
// variables. The result is validated before it is returned.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) error {
	if v := os.Getenv(EnvAddr); v != "" {
		cfg.Server.Addr = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		cfg.Server.LogLevel = v
	}
	if v := os.Getenv(EnvLogFormat); v != "" {
		cfg.Server.LogFormat = v
	}
	if v := os.Getenv(EnvSeed); v != "" {
		seed, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("%s: %q is not an integer", EnvSeed, v)
		}
		cfg.Simulation.Seed = seed
	}
	return nil
}

// Validate checks struct tags and the topology cross-references. The
// first problem found is returned as a user-facing message.
func Validate(cfg Config) error {
	if err := validate.Struct(cfg); err != nil {
		return formatValidationError(err)
	}

	devices := make(map[string]bool, len(cfg.Network.Devices))
	for _, d := range cfg.Network.Devices {
		if devices[d.ID] {
			return fmt.Errorf("network.devices: duplicate device id %q", d.ID)
		}
		devices[d.ID] = true
	}

	users := make(map[string]bool, len(cfg.Network.Users))
	for _, u := range cfg.Network.Users {
		if users[u.ID] {
			return fmt.Errorf("network.users: duplicate user id %q", u.ID)
		}
		users[u.ID] = true
	}

	for i, l := range cfg.Network.Links {
		if !devices[l.Source] {
			return fmt.Errorf("network.links[%d]: source %q is not a configured device", i, l.Source)
		}
		if !devices[l.Target] {
			return fmt.Errorf("network.links[%d]: target %q is not a configured device", i, l.Target)
		}
		if l.Source == l.Target {
			return fmt.Errorf("network.links[%d]: device %q linked to itself", i, l.Source)
		}
	}

	return nil
}

// ToSimnet converts the network section into the form simnet consumes.
func (n NetworkConfig) ToSimnet() simnet.Config {
	out := simnet.Config{
		Devices: make([]simnet.Device, len(n.Devices)),
		Links:   make([]simnet.Link, len(n.Links)),
		Users:   make([]simnet.User, len(n.Users)),
	}
	for i, d := range n.Devices {
		out.Devices[i] = simnet.Device{
			ID:         d.ID,
			Type:       simnet.DeviceType(d.Type),
			IPAddress:  d.IPAddress,
			TrustScore: d.TrustScore,
			X:          d.X,
			Y:          d.Y,
		}
	}
	for i, l := range n.Links {
		out.Links[i] = simnet.Link{Source: l.Source, Target: l.Target}
	}
	for i, u := range n.Users {
		out.Users[i] = simnet.User{
			ID:         u.ID,
			Name:       u.Name,
			Role:       u.Role,
			RiskScore:  u.RiskScore,
			Department: u.Department,
		}
	}
	return out
}

func fromSimnet(cfg simnet.Config) NetworkConfig {
	out := NetworkConfig{
		Devices: make([]DeviceConfig, len(cfg.Devices)),
		Links:   make([]LinkConfig, len(cfg.Links)),
		Users:   make([]UserConfig, len(cfg.Users)),
	}
	for i, d := range cfg.Devices {
		out.Devices[i] = DeviceConfig{
			ID:         d.ID,
			Type:       string(d.Type),
			IPAddress:  d.IPAddress,
			TrustScore: d.TrustScore,
			X:          d.X,
			Y:          d.Y,
		}
	}
	for i, l := range cfg.Links {
		out.Links[i] = LinkConfig{Source: l.Source, Target: l.Target}
	}
	for i, u := range cfg.Users {
		out.Users[i] = UserConfig{
			ID:         u.ID,
			Name:       u.Name,
			Role:       u.Role,
			RiskScore:  u.RiskScore,
			Department: u.Department,
		}
	}
	return out
}

// formatValidationError converts validator errors to a more
// user-friendly format
func formatValidationError(err error) error {
	if err == nil {
		return nil
	}

	validationErrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}

	for _, e := range validationErrs {
		field := e.Namespace()
		tag := e.Tag()
		param := e.Param()

		switch tag {
		case "required":
			return fmt.Errorf("%s: field is required", field)
		case "min":
			return fmt.Errorf("%s: must be at least %s", field, param)
		case "max":
			return fmt.Errorf("%s: must not exceed %s", field, param)
		case "oneof":
			return fmt.Errorf("%s: must be one of [%s]", field, param)
		case "ip":
			return fmt.Errorf("%s: must be a valid IP address", field)
		default:
			return fmt.Errorf("%s: validation failed (%s)", field, tag)
		}
	}

	return err
}
