package simulator

import (
	"fmt"
	"time"
)

// DefaultInterval is the period between two simulated readings.
const DefaultInterval = 5 * time.Second

// Config holds parameters for the sensor simulator.
type Config struct {
	// IntervalMS is the generation period in milliseconds.
	IntervalMS int `json:"interval_ms"`
	// Seed makes runs reproducible; zero seeds from the clock.
	Seed uint64 `json:"seed"`
	// ProfilePath is an optional YAML or JSON climate profile.
	ProfilePath string `json:"profile_path"`
	// Source tags the readings on the event bus.
	Source string `json:"source"`
	// Publish sends every reading over MQTT when the mqtt section is enabled.
	Publish bool `json:"publish"`
}

// SetDefaults applies sane defaults.
func (c *Config) SetDefaults() {
	if c.IntervalMS == 0 {
		c.IntervalMS = int(DefaultInterval / time.Millisecond)
	}
	if c.Source == "" {
		c.Source = "simulator"
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.IntervalMS <= 0 {
		return fmt.Errorf("simulator interval_ms must be positive, got %d", c.IntervalMS)
	}
	return nil
}

// Interval returns the generation period.
func (c Config) Interval() time.Duration {
	return time.Duration(c.IntervalMS) * time.Millisecond
}
