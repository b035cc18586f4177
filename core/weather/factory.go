package weather

import (
	"github.com/kilianp07/solarcast/core/climate"
	"github.com/kilianp07/solarcast/core/factory"
)

// init registers built-in weather sources.
func init() {
	_ = Register("random", func(conf map[string]any) (Source, error) {
		var c RandomConfig
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		c.SetDefaults()
		if err := c.Validate(); err != nil {
			return nil, err
		}
		return NewRandom(c), nil
	})

	_ = Register("climate", func(conf map[string]any) (Source, error) {
		var c struct {
			ProfilePath string `json:"profile_path"`
			Noise       bool   `json:"noise"`
			Seed        uint64 `json:"seed"`
		}
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		p := climate.Default()
		if c.ProfilePath != "" {
			var err error
			if p, err = climate.LoadProfile(c.ProfilePath); err != nil {
				return nil, err
			}
		}
		return NewClimate(p, c.Noise, c.Seed), nil
	})

	_ = Register("http", func(conf map[string]any) (Source, error) {
		var c HTTPConfig
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		return NewHTTPSource(c)
	})

	_ = Register("fixed", func(conf map[string]any) (Source, error) {
		var e Estimate
		if err := factory.Decode(conf, &e); err != nil {
			return nil, err
		}
		return Fixed(e), nil
	})
}
