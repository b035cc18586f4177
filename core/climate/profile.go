// Package climate describes the seasonal conditions of a plant site: typical
// temperature and midday irradiation per month, and the sampling rules the
// sensor simulator and the climate weather source draw from.
package climate

import (
	"encoding/json"
	"fmt"
	"math"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Profile holds monthly climate normals, January first.
type Profile struct {
	// MeanTemperature is the monthly mean ambient temperature in °C.
	MeanTemperature [12]float64 `json:"mean_temperature" yaml:"mean_temperature"`
	// PeakIrradiation is the monthly irradiation at solar noon in kW/m².
	PeakIrradiation [12]float64 `json:"peak_irradiation" yaml:"peak_irradiation"`
	// TemperatureJitter bounds the uniform noise added to the ambient temperature.
	TemperatureJitter float64 `json:"temperature_jitter" yaml:"temperature_jitter"`
	// ModuleOffsetMin and ModuleOffsetMax bound how much hotter panels run.
	ModuleOffsetMin float64 `json:"module_offset_min" yaml:"module_offset_min"`
	ModuleOffsetMax float64 `json:"module_offset_max" yaml:"module_offset_max"`
	// IrradiationJitter bounds the uniform noise added to the irradiation.
	IrradiationJitter float64 `json:"irradiation_jitter" yaml:"irradiation_jitter"`
	// PowerFactor scales irradiation·(100 - ambient) into AC power.
	PowerFactor float64 `json:"power_factor" yaml:"power_factor"`
}

// Default returns the built-in temperate profile.
func Default() Profile {
	return Profile{
		MeanTemperature:   [12]float64{5, 6, 10, 15, 20, 25, 30, 29, 24, 18, 12, 7},
		PeakIrradiation:   [12]float64{0.5, 0.6, 0.8, 1.0, 1.2, 1.4, 1.5, 1.4, 1.2, 1.0, 0.7, 0.5},
		TemperatureJitter: 5,
		ModuleOffsetMin:   5,
		ModuleOffsetMax:   10,
		IrradiationJitter: 0.1,
		PowerFactor:       0.1,
	}
}

// Validate checks the profile is usable.
func (p Profile) Validate() error {
	for i, v := range p.PeakIrradiation {
		if v < 0 || math.IsNaN(v) {
			return fmt.Errorf("peak irradiation for month %d must be non-negative", i+1)
		}
	}
	if p.TemperatureJitter < 0 || p.IrradiationJitter < 0 {
		return fmt.Errorf("jitter must be non-negative")
	}
	if p.ModuleOffsetMax < p.ModuleOffsetMin {
		return fmt.Errorf("module offset range [%v, %v] is empty", p.ModuleOffsetMin, p.ModuleOffsetMax)
	}
	if p.PowerFactor <= 0 {
		return fmt.Errorf("power factor must be positive")
	}
	return nil
}

// BaseTemperature is the mean temperature of t's month.
func (p Profile) BaseTemperature(t time.Time) float64 {
	return p.MeanTemperature[t.Month()-1]
}

// ClearSkyIrradiation is the noiseless irradiation at t: the monthly peak
// scaled linearly by the distance of the hour from noon.
func (p Profile) ClearSkyIrradiation(t time.Time) float64 {
	factor := math.Abs(12-float64(t.Hour())) / 12
	return p.PeakIrradiation[t.Month()-1] * (1 - factor)
}

// Power is the AC output for the given irradiation and ambient temperature,
// never negative.
func (p Profile) Power(irradiation, ambient float64) float64 {
	return math.Max(0, irradiation*(100-ambient)*p.PowerFactor)
}

// Sample is one draw of site conditions.
type Sample struct {
	AmbientTemperature float64
	ModuleTemperature  float64
	Irradiation        float64
	ACPower            float64
}

// Sample draws conditions at t using rng.
func (p Profile) Sample(t time.Time, rng *rand.Rand) Sample {
	ambient := p.BaseTemperature(t) + uniform(rng, -p.TemperatureJitter, p.TemperatureJitter)
	module := ambient + uniform(rng, p.ModuleOffsetMin, p.ModuleOffsetMax)
	irr := p.ClearSkyIrradiation(t) + uniform(rng, -p.IrradiationJitter, p.IrradiationJitter)
	return Sample{
		AmbientTemperature: ambient,
		ModuleTemperature:  module,
		Irradiation:        irr,
		ACPower:            p.Power(irr, ambient),
	}
}

func uniform(rng *rand.Rand, lo, hi float64) float64 {
	return lo + rng.Float64()*(hi-lo)
}

// LoadProfile reads a profile from a YAML or JSON file. Fields absent from
// the file keep their default value.
func LoadProfile(path string) (Profile, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Profile{}, err
	}
	p := Default()
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(b, &p)
	case ".json":
		err = json.Unmarshal(b, &p)
	default:
		return Profile{}, fmt.Errorf("unsupported profile format: %s", ext)
	}
	if err != nil {
		return Profile{}, err
	}
	return p, p.Validate()
}
