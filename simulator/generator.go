// Package simulator produces synthetic sensor readings from a climate profile
// and feeds them into the history store.
package simulator

import (
	"math/rand/v2"
	"time"

	"github.com/kilianp07/solarcast/core/climate"
	"github.com/kilianp07/solarcast/core/features"
	"github.com/kilianp07/solarcast/core/model"
)

// Generator draws readings from a climate profile.
type Generator struct {
	profile climate.Profile
	rng     *rand.Rand
}

// NewGenerator returns a Generator for p. A zero seed draws one from the
// clock.
func NewGenerator(p climate.Profile, seed uint64) *Generator {
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return &Generator{profile: p, rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

// Next returns the reading observed at now.
func (g *Generator) Next(now time.Time) model.Reading {
	s := g.profile.Sample(now, g.rng)
	return features.NewReading(now, s.AmbientTemperature, s.ModuleTemperature, s.Irradiation, s.ACPower)
}
