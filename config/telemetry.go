package config

import (
	"fmt"

	"github.com/kilianp07/solarcast/core/telemetry"
)

// TelemetryConfig holds the panel inventory reported by the telemetry source.
type TelemetryConfig struct {
	Panels []telemetry.PanelReading `json:"panels"`
}

func (c *TelemetryConfig) SetDefaults() {
	if len(c.Panels) == 0 {
		c.Panels = telemetry.DefaultPanels()
	}
}

func (c TelemetryConfig) Validate() error {
	seen := make(map[string]bool, len(c.Panels))
	for _, p := range c.Panels {
		if p.ID == "" {
			return fmt.Errorf("panel without id")
		}
		if seen[p.ID] {
			return fmt.Errorf("panel %s listed twice", p.ID)
		}
		seen[p.ID] = true
		if p.ExpectedPower < 0 || p.ACPower < 0 {
			return fmt.Errorf("panel %s: negative power", p.ID)
		}
	}
	return nil
}
