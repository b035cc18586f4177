package climate

import (
	"math/rand/v2"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClearSkyIrradiation(t *testing.T) {
	p := Default()
	noon := time.Date(2021, 7, 1, 12, 0, 0, 0, time.UTC)
	assert.InDelta(t, 1.5, p.ClearSkyIrradiation(noon), 1e-12)
	assert.InDelta(t, 0.75, p.ClearSkyIrradiation(noon.Add(-6*time.Hour)), 1e-12)
	assert.InDelta(t, 0, p.ClearSkyIrradiation(noon.Add(-12*time.Hour)), 1e-12)
}

func TestPowerNeverNegative(t *testing.T) {
	p := Default()
	assert.Equal(t, 0.0, p.Power(-0.1, 20))
	assert.InDelta(t, 8, p.Power(1, 20), 1e-12)
}

func TestSampleBounds(t *testing.T) {
	p := Default()
	rng := rand.New(rand.NewPCG(1, 1))
	ts := time.Date(2021, 1, 10, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 500; i++ {
		s := p.Sample(ts, rng)
		assert.GreaterOrEqual(t, s.AmbientTemperature, 0.0)
		assert.LessOrEqual(t, s.AmbientTemperature, 10.0)
		d := s.ModuleTemperature - s.AmbientTemperature
		assert.GreaterOrEqual(t, d, 5.0)
		assert.LessOrEqual(t, d, 10.0)
		assert.InDelta(t, 0.5, s.Irradiation, 0.1+1e-9)
		assert.GreaterOrEqual(t, s.ACPower, 0.0)
	}
}

func TestLoadProfile(t *testing.T) {
	dir := t.TempDir()
	yml := filepath.Join(dir, "site.yaml")
	require.NoError(t, os.WriteFile(yml, []byte("power_factor: 0.2\nmean_temperature: [1,2,3,4,5,6,7,8,9,10,11,12]\n"), 0o644))
	p, err := LoadProfile(yml)
	require.NoError(t, err)
	assert.Equal(t, 0.2, p.PowerFactor)
	assert.Equal(t, 12.0, p.MeanTemperature[11])
	assert.Equal(t, Default().PeakIrradiation, p.PeakIrradiation)

	js := filepath.Join(dir, "site.json")
	require.NoError(t, os.WriteFile(js, []byte(`{"module_offset_min": 9, "module_offset_max": 3}`), 0o644))
	_, err = LoadProfile(js)
	assert.Error(t, err)

	_, err = LoadProfile(filepath.Join(dir, "site.toml"))
	assert.Error(t, err)
}
