// Package config loads the solarcast configuration file.
package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/kilianp07/solarcast/core/audit"
	"github.com/kilianp07/solarcast/core/factory"
	"github.com/kilianp07/solarcast/core/history"
	"github.com/kilianp07/solarcast/core/metrics"
	"github.com/kilianp07/solarcast/core/training"
	"github.com/kilianp07/solarcast/infra/mqtt"
	"github.com/kilianp07/solarcast/simulator"
)

type Config struct {
	Server    ServerConfig         `json:"server"`
	History   history.Config       `json:"history"`
	Model     ModelConfig          `json:"model"`
	Weather   factory.ModuleConfig `json:"weather"`
	Telemetry TelemetryConfig      `json:"telemetry"`
	Simulator simulator.Config     `json:"simulator"`
	Training  training.Config      `json:"training"`
	Metrics   metrics.Config       `json:"metrics"`
	Audit     audit.Config         `json:"audit"`
	MQTT      mqtt.Config          `json:"mqtt"`
	Sentry    SentryConfig         `json:"sentry"`
	Logging   LoggingConfig        `json:"logging"`
}

// Load reads path (YAML or JSON), applies K_SECTION__KEY environment
// overrides, fills defaults and validates every section. An empty path
// loads defaults and environment overrides only.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	if path != "" {
		ext := strings.ToLower(filepath.Ext(path))
		var parser koanf.Parser
		switch ext {
		case ".yaml", ".yml":
			parser = yaml.Parser()
		case ".json":
			parser = json.Parser()
		default:
			return nil, fmt.Errorf("unsupported config format: %s", ext)
		}
		if err := k.Load(file.Provider(path), parser); err != nil {
			return nil, err
		}
	}
	// Optional environment overrides
	if err := k.Load(env.Provider("K_", "__", func(s string) string {
		s = strings.TrimPrefix(strings.ToLower(s), "k_")
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, err
	}
	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, err
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// SetDefaults fills every section.
func (c *Config) SetDefaults() {
	c.Server.SetDefaults()
	c.History.SetDefaults()
	c.Model.SetDefaults()
	if c.Weather.Type == "" {
		c.Weather.Type = "random"
	}
	c.Telemetry.SetDefaults()
	c.Simulator.SetDefaults()
	if c.Training.ArtifactPath == "" {
		c.Training.ArtifactPath = c.Model.ArtifactPath
	}
	c.Training.SetDefaults()
	c.Metrics.SetDefaults()
	c.Audit.SetDefaults()
	c.MQTT.SetDefaults()
	c.Sentry.SetDefaults(c.MQTT.Plant)
	c.Logging.SetDefaults()
}

// Validate checks every section and names the failing one.
func (c Config) Validate() error {
	checks := []struct {
		name string
		fn   func() error
	}{
		{"server", c.Server.Validate},
		{"history", c.History.Validate},
		{"model", c.Model.Validate},
		{"telemetry", c.Telemetry.Validate},
		{"simulator", c.Simulator.Validate},
		{"training", c.Training.Validate},
		{"audit", c.Audit.Validate},
		{"mqtt", c.MQTT.Validate},
		{"sentry", c.Sentry.Validate},
		{"logging", c.Logging.Validate},
		{"mqtt", c.validateWriters},
	}
	for _, chk := range checks {
		if err := chk.fn(); err != nil {
			return fmt.Errorf("config %s: %w", chk.name, err)
		}
	}
	return nil
}

// validateWriters keeps a single writer on the history file. The simulator
// appends every reading itself, so the server must not append the same
// readings again when they arrive over MQTT.
func (c Config) validateWriters() error {
	if c.MQTT.Enabled && c.MQTT.Ingest && c.Simulator.Publish {
		return errors.New("ingest and simulator.publish both append to the history; enable only one")
	}
	return nil
}
