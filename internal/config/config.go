// Package config loads the YAML-based settings for the agent and
// controller processes: a handful of required fields plus a defaulted,
// dotted section layout. Validation happens here, once, at process start —
// every other package trusts the resulting struct.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sanverite/sdwan-control-plane/internal/sdwanerr"
)

// Defaults for options the config file may leave unset.
const (
	DefaultProbeWindowSize      = 10
	DefaultSyncRetryAttempts    = 3
	DefaultControllerTimeout    = 5 * time.Second
	DefaultOverlayInterface     = "wg0"
	DefaultOverlaySubnet        = "10.254.0.0/24"
	DefaultPenaltyFactor        = 100
	DefaultHysteresisFraction   = 0.15
	DefaultStaleThresholdSecs   = 60
	DefaultControllerListenAddr = "0.0.0.0:8080"
)

// DefaultRetryBackoffSecs is the default backoff sequence for retried
// controller calls.
var DefaultRetryBackoffSecs = []int{1, 2, 4}

// Agent is the settings struct consumed by cmd/agent.
type Agent struct {
	AgentID string `yaml:"agent_id"`

	Controller struct {
		URL     string `yaml:"url"`
		Timeout int    `yaml:"timeout"` // seconds
	} `yaml:"controller"`

	Probe struct {
		Interval   int `yaml:"interval"` // seconds
		Timeout    int `yaml:"timeout"`  // seconds
		WindowSize int `yaml:"window_size"`
	} `yaml:"probe"`

	Sync struct {
		Interval      int   `yaml:"interval"` // seconds
		RetryAttempts int   `yaml:"retry_attempts"`
		RetryBackoff  []int `yaml:"retry_backoff"` // seconds
	} `yaml:"sync"`

	Network struct {
		Interface string   `yaml:"wg_interface"`
		Subnet    string   `yaml:"subnet"`
		PeerIPs   []string `yaml:"peer_ips"`
	} `yaml:"network"`

	MetricsListenAddr string `yaml:"metrics_listen_addr"`
}

// Controller is the settings struct consumed by cmd/controller.
type Controller struct {
	ListenAddr        string  `yaml:"listen_addr"`
	MetricsListenAddr string  `yaml:"metrics_listen_addr"`
	PenaltyFactor     int     `yaml:"penalty_factor"`
	HysteresisFrac    float64 `yaml:"hysteresis_fraction"`
	StaleThresholdSec int     `yaml:"stale_threshold_secs"`
}

// LoadAgent reads and validates an Agent config from path, applying
// defaults for anything the file leaves zero-valued.
func LoadAgent(path string) (*Agent, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	var cfg Agent
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %v: %w", path, err, sdwanerr.ErrInvalidArgument)
	}

	cfg.applyDefaults()

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Agent) applyDefaults() {
	if c.Probe.WindowSize == 0 {
		c.Probe.WindowSize = DefaultProbeWindowSize
	}
	if c.Controller.Timeout == 0 {
		c.Controller.Timeout = int(DefaultControllerTimeout.Seconds())
	}
	if c.Sync.RetryAttempts == 0 {
		c.Sync.RetryAttempts = DefaultSyncRetryAttempts
	}
	if len(c.Sync.RetryBackoff) == 0 {
		c.Sync.RetryBackoff = append([]int(nil), DefaultRetryBackoffSecs...)
	}
	if c.Network.Interface == "" {
		c.Network.Interface = DefaultOverlayInterface
	}
	if c.Network.Subnet == "" {
		c.Network.Subnet = DefaultOverlaySubnet
	}
}

// validate enforces the fields an Agent config must carry.
func (c *Agent) validate() error {
	var missing []string
	if c.AgentID == "" {
		missing = append(missing, "agent_id")
	}
	if c.Controller.URL == "" {
		missing = append(missing, "controller.url")
	}
	if c.Probe.Interval <= 0 {
		missing = append(missing, "probe.interval")
	}
	if c.Sync.Interval <= 0 {
		missing = append(missing, "sync.interval")
	}
	if c.Network.Interface == "" {
		missing = append(missing, "network.wg_interface")
	}
	if len(c.Network.PeerIPs) == 0 {
		missing = append(missing, "network.peer_ips")
	}
	if len(missing) > 0 {
		return fmt.Errorf("config: missing required fields %v: %w", missing, sdwanerr.ErrInvalidArgument)
	}
	return nil
}

// LoadController reads a Controller config from path and applies defaults.
// No field is required; only a read or YAML parse failure is an error.
func LoadController(path string) (*Controller, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	var cfg Controller
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %v: %w", path, err, sdwanerr.ErrInvalidArgument)
	}

	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Controller) applyDefaults() {
	if c.ListenAddr == "" {
		c.ListenAddr = DefaultControllerListenAddr
	}
	if c.PenaltyFactor == 0 {
		c.PenaltyFactor = DefaultPenaltyFactor
	}
	if c.HysteresisFrac == 0 {
		c.HysteresisFrac = DefaultHysteresisFraction
	}
	if c.StaleThresholdSec == 0 {
		c.StaleThresholdSec = DefaultStaleThresholdSecs
	}
}
