package robot

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the session configuration
type Config struct {
	Service   ServiceConfig `json:"service" yaml:"service"`
	Motion    MotionConfig  `json:"motion" yaml:"motion"`
	Robot     Pose          `json:"robot" yaml:"robot"`
	Layout    Layout        `json:"layout" yaml:"layout"`
	Workspace Workspace     `json:"workspace,omitempty" yaml:"workspace,omitempty"`
}

// ServiceConfig locates the robot-control service
type ServiceConfig struct {
	BaseURL          string `json:"base_url" yaml:"base_url"`
	PollIntervalMs   int    `json:"poll_interval_ms" yaml:"poll_interval_ms"`
	RequestTimeoutMs int    `json:"request_timeout_ms" yaml:"request_timeout_ms"`
}

// MotionConfig tunes the choreographies
type MotionConfig struct {
	Speed     float64 `json:"speed" yaml:"speed"`
	HomeSpeed float64 `json:"home_speed" yaml:"home_speed"`
	// GraspOffset is added to a table's x/y to reach its grasp center. Its Z
	// is the absolute grasp height.
	GraspOffset       Pose `json:"grasp_offset" yaml:"grasp_offset"`
	ContinueOnFailure bool `json:"continue_on_failure" yaml:"continue_on_failure"`
	StrictInitialize  bool `json:"strict_initialize" yaml:"strict_initialize"`
	EnforceBounds     bool `json:"enforce_bounds" yaml:"enforce_bounds"`
}

// DefaultConfig returns the stock cell layout
func DefaultConfig() *Config {
	return &Config{
		Service: ServiceConfig{
			BaseURL:          "http://127.0.0.1:8000",
			PollIntervalMs:   20,
			RequestTimeoutMs: 2000,
		},
		Motion: MotionConfig{
			Speed:       90,
			HomeSpeed:   90,
			GraspOffset: Pose{X: 25, Y: 25, Z: 0},
		},
		Robot: Pose{X: 100, Y: 100, Z: 0},
		Layout: Layout{
			TableA: Pose{X: 50, Y: 50, Z: 0},
			TableB: Pose{X: 250, Y: 250, Z: 0},
			Home:   Pose{X: 150, Y: 150, Z: 0},
		},
		Workspace: DefaultWorkspace(),
	}
}

// PollInterval returns the delay between two samples of a move
func (c *Config) PollInterval() time.Duration {
	if c.Service.PollIntervalMs <= 0 {
		return 20 * time.Millisecond
	}
	return time.Duration(c.Service.PollIntervalMs) * time.Millisecond
}

// RequestTimeout returns the deadline of a single service call
func (c *Config) RequestTimeout() time.Duration {
	if c.Service.RequestTimeoutMs <= 0 {
		return 2 * time.Second
	}
	return time.Duration(c.Service.RequestTimeoutMs) * time.Millisecond
}

// NewStore creates a session store seeded from the configuration
func (c *Config) NewStore() *Store {
	s := NewStore(c.Robot, c.Layout)
	if c.Motion.EnforceBounds {
		s.SetWorkspace(c.Workspace)
	}
	return s
}

// LoadConfigFrom loads configuration from a specific file. Fields missing
// from the file keep their defaults.
func LoadConfigFrom(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if isYAML(path) {
		err = yaml.Unmarshal(data, cfg)
	} else {
		err = json.Unmarshal(data, cfg)
	}
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

// SaveTo saves configuration to a specific file
func (c *Config) SaveTo(path string) error {
	var (
		data []byte
		err  error
	)
	if isYAML(path) {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func isYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}
