package weather

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/kilianp07/solarcast/core/climate"
)

// Range is a closed interval sampled uniformly.
type Range struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

func (r Range) sample(rng *rand.Rand) float64 {
	return r.Min + rng.Float64()*(r.Max-r.Min)
}

// RandomConfig bounds the estimates of a Random source.
type RandomConfig struct {
	Ambient     Range  `json:"ambient"`
	Module      Range  `json:"module"`
	Irradiation Range  `json:"irradiation"`
	Seed        uint64 `json:"seed"`
}

// SetDefaults applies the stock ranges: ambient 20-40 °C, module 25-50 °C,
// irradiation 0-1 kW/m².
func (c *RandomConfig) SetDefaults() {
	if c.Ambient == (Range{}) {
		c.Ambient = Range{Min: 20, Max: 40}
	}
	if c.Module == (Range{}) {
		c.Module = Range{Min: 25, Max: 50}
	}
	if c.Irradiation == (Range{}) {
		c.Irradiation = Range{Min: 0, Max: 1}
	}
}

// Validate checks every range is ordered.
func (c RandomConfig) Validate() error {
	for name, r := range map[string]Range{"ambient": c.Ambient, "module": c.Module, "irradiation": c.Irradiation} {
		if r.Max < r.Min {
			return fmt.Errorf("weather %s range [%v, %v] is empty", name, r.Min, r.Max)
		}
	}
	return nil
}

// Random draws every estimate uniformly from fixed ranges, ignoring time.
type Random struct {
	mu  sync.Mutex
	cfg RandomConfig
	rng *rand.Rand
}

// NewRandom returns a Random source. A zero seed draws from the runtime
// entropy source.
func NewRandom(cfg RandomConfig) *Random {
	cfg.SetDefaults()
	var rng *rand.Rand
	if cfg.Seed == 0 {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	} else {
		rng = rand.New(rand.NewPCG(cfg.Seed, cfg.Seed))
	}
	return &Random{cfg: cfg, rng: rng}
}

// Estimate implements Source.
func (r *Random) Estimate(ctx context.Context, _ time.Time) (Estimate, error) {
	if err := ctx.Err(); err != nil {
		return Estimate{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return Estimate{
		AmbientTemperature: r.cfg.Ambient.sample(r.rng),
		ModuleTemperature:  r.cfg.Module.sample(r.rng),
		Irradiation:        r.cfg.Irradiation.sample(r.rng),
	}, nil
}

// Climate estimates weather from a seasonal profile: monthly temperature and
// the clear-sky irradiation curve, optionally with the profile's noise.
type Climate struct {
	mu      sync.Mutex
	profile climate.Profile
	noisy   bool
	rng     *rand.Rand
}

// NewClimate returns a Climate source. Without noise estimates are the
// deterministic profile means.
func NewClimate(p climate.Profile, noisy bool, seed uint64) *Climate {
	return &Climate{profile: p, noisy: noisy, rng: rand.New(rand.NewPCG(seed, seed))}
}

// Estimate implements Source.
func (c *Climate) Estimate(ctx context.Context, t time.Time) (Estimate, error) {
	if err := ctx.Err(); err != nil {
		return Estimate{}, err
	}
	if c.noisy {
		c.mu.Lock()
		s := c.profile.Sample(t, c.rng)
		c.mu.Unlock()
		return Estimate{AmbientTemperature: s.AmbientTemperature, ModuleTemperature: s.ModuleTemperature, Irradiation: s.Irradiation}, nil
	}
	ambient := c.profile.BaseTemperature(t)
	return Estimate{
		AmbientTemperature: ambient,
		ModuleTemperature:  ambient + (c.profile.ModuleOffsetMin+c.profile.ModuleOffsetMax)/2,
		Irradiation:        c.profile.ClearSkyIrradiation(t),
	}, nil
}
