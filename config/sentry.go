package config

import "fmt"

// SentryConfig enables error reporting. An empty DSN disables it.
type SentryConfig struct {
	DSN              string  `json:"dsn"`
	Environment      string  `json:"environment"`
	TracesSampleRate float64 `json:"traces_sample_rate"`
	Release          string  `json:"release"`
	// Plant is reported as the server name; defaults to mqtt.plant.
	Plant string `json:"plant"`
}

// SetDefaults names the environment and the server when left blank.
func (c *SentryConfig) SetDefaults(plant string) {
	if c.Environment == "" {
		c.Environment = "production"
	}
	if c.Plant == "" {
		c.Plant = plant
	}
}

// Enabled reports whether a DSN is configured.
func (c SentryConfig) Enabled() bool { return c.DSN != "" }

func (c SentryConfig) Validate() error {
	if c.TracesSampleRate < 0 || c.TracesSampleRate > 1 {
		return fmt.Errorf("traces_sample_rate must be within [0,1], got %v", c.TracesSampleRate)
	}
	return nil
}
