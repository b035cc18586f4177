// Package weather supplies the weather estimates used for forecasts beyond
// the current instant.
package weather

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/kilianp07/solarcast/core/factory"
)

// Estimate is the expected weather at a point in time.
type Estimate struct {
	AmbientTemperature float64 `json:"ambient_temperature"`
	ModuleTemperature  float64 `json:"module_temperature"`
	Irradiation        float64 `json:"irradiation"`
}

// Validate rejects non-finite values.
func (e Estimate) Validate() error {
	for name, v := range map[string]float64{
		"ambient_temperature": e.AmbientTemperature,
		"module_temperature":  e.ModuleTemperature,
		"irradiation":         e.Irradiation,
	} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("weather estimate %s is not finite", name)
		}
	}
	return nil
}

// Source returns weather estimates for arbitrary instants.
type Source interface {
	Estimate(ctx context.Context, t time.Time) (Estimate, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context, t time.Time) (Estimate, error)

// Estimate calls f.
func (f SourceFunc) Estimate(ctx context.Context, t time.Time) (Estimate, error) { return f(ctx, t) }

// Fixed always returns the same estimate.
type Fixed Estimate

// Estimate implements Source.
func (f Fixed) Estimate(context.Context, time.Time) (Estimate, error) { return Estimate(f), nil }

var registry = factory.NewRegistry[Source]()

// Register adds a weather source factory.
func Register(kind string, f factory.Factory[Source]) error {
	return registry.Register(kind, f)
}

// New builds the source described by cfg.
func New(cfg factory.ModuleConfig) (Source, error) {
	if cfg.Type == "" {
		cfg.Type = "random"
	}
	return registry.Create(cfg)
}
