package prediction

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/solarcast/core/audit"
	"github.com/kilianp07/solarcast/core/events"
	"github.com/kilianp07/solarcast/core/features"
	"github.com/kilianp07/solarcast/core/forecast"
	"github.com/kilianp07/solarcast/core/health"
	"github.com/kilianp07/solarcast/core/history"
	"github.com/kilianp07/solarcast/core/model"
	"github.com/kilianp07/solarcast/core/telemetry"
	"github.com/kilianp07/solarcast/core/weather"
	"github.com/kilianp07/solarcast/internal/eventbus"
)

var now = time.Date(2021, 6, 15, 8, 30, 0, 0, time.UTC) // Tuesday

func clock() time.Time { return now }

// sumModel predicts the sum of the weather features plus the hour.
var sumModel = forecast.ModelFunc(func(v model.FeatureVector) (float64, error) {
	return v[0] + v[1] + v[2] + v[3], nil
})

type memAudit struct {
	mu   sync.Mutex
	recs []audit.LogRecord
}

func (m *memAudit) Append(_ context.Context, rec audit.LogRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.recs = append(m.recs, rec)
	return nil
}

func (m *memAudit) Query(context.Context, audit.LogQuery) ([]audit.LogRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]audit.LogRecord(nil), m.recs...), nil
}

func (m *memAudit) Close() error { return nil }

// countingStore records whether the history was touched.
type countingStore struct {
	history.Store
	calls int
}

func (c *countingStore) Append(ctx context.Context, r model.Reading) error {
	c.calls++
	return c.Store.Append(ctx, r)
}

func (c *countingStore) ReadAll(ctx context.Context) ([]model.Reading, error) {
	c.calls++
	return c.Store.ReadAll(ctx)
}

func (c *countingStore) Tail(ctx context.Context, n int) ([]model.Reading, error) {
	c.calls++
	return c.Store.Tail(ctx, n)
}

func newStore(t *testing.T, rows ...model.Reading) history.Store {
	t.Helper()
	s := history.NewBoundedStore(history.NewMemoryStorage(), 100, history.WithLocation(time.UTC))
	for _, r := range rows {
		require.NoError(t, s.Append(context.Background(), r))
	}
	return s
}

func validFields() features.RawFields {
	return features.RawFields{
		"AMBIENT_TEMPERATURE": 25.0,
		"MODULE_TEMPERATURE":  "30",
		"IRRADIATION":         0.5,
		"DATE_TIME":           "2021-06-15 10:00:00",
	}
}

func TestPredictNow(t *testing.T) {
	var got model.FeatureVector
	m := forecast.ModelFunc(func(v model.FeatureVector) (float64, error) {
		got = v
		return 42, nil
	})
	store := &countingStore{Store: newStore(t)}
	svc := NewService(m, store, WithClock(clock))

	y, err := svc.PredictNow(context.Background(), validFields())
	require.NoError(t, err)
	assert.Equal(t, 42.0, y)
	assert.Equal(t, model.FeatureVector{25, 30, 0.5, 10, 1, 6}, got)
	assert.Zero(t, store.calls)
}

func TestPredictNow_ExplicitCalendar(t *testing.T) {
	svc := NewService(sumModel, nil, WithClock(clock))
	raw := features.RawFields{
		"ambient_temperature": 20, "module_temperature": 25, "irradiation": 1,
		"HOUR": 12, "DAY_OF_WEEK": 3, "MONTH": 7,
	}
	y, err := svc.PredictNow(context.Background(), raw)
	require.NoError(t, err)
	assert.Equal(t, 58.0, y)
}

func TestPredictNow_Errors(t *testing.T) {
	store := &countingStore{Store: newStore(t)}
	svc := NewService(sumModel, store, WithClock(clock))
	ctx := context.Background()

	raw := validFields()
	delete(raw, "IRRADIATION")
	_, err := svc.PredictNow(ctx, raw)
	var missing *features.MissingFieldError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, "IRRADIATION", missing.Field)
	assert.Zero(t, store.calls)

	raw = validFields()
	raw["AMBIENT_TEMPERATURE"] = "warm"
	_, err = svc.PredictNow(ctx, raw)
	var invalid *features.InvalidFieldError
	require.ErrorAs(t, err, &invalid)
	assert.ErrorIs(t, err, features.ErrInvalidField)

	_, err = NewService(nil, nil).PredictNow(ctx, validFields())
	assert.ErrorIs(t, err, forecast.ErrModelUnavailable)
}

func TestPredictNow_NonFinite(t *testing.T) {
	m := forecast.ModelFunc(func(model.FeatureVector) (float64, error) {
		return 0, forecast.ErrNonFinitePrediction
	})
	_, err := NewService(m, nil).PredictNow(context.Background(), validFields())
	assert.ErrorIs(t, err, forecast.ErrNonFinitePrediction)
}

func TestPredictNow_PublishesAndAudits(t *testing.T) {
	bus := eventbus.New()
	sub := bus.Subscribe()
	log := &memAudit{}
	svc := NewService(sumModel, nil, WithClock(clock), WithBus(bus), WithAudit(log))

	_, err := svc.PredictNow(context.Background(), validFields())
	require.NoError(t, err)
	_, err = svc.PredictNow(context.Background(), features.RawFields{})
	require.Error(t, err)

	ev := (<-sub).(events.PredictionServed)
	assert.Equal(t, audit.KindNow, ev.Kind)
	assert.Equal(t, 65.5, ev.Value)
	assert.NoError(t, ev.Err)
	ev = (<-sub).(events.PredictionServed)
	assert.Error(t, ev.Err)

	require.Len(t, log.recs, 2)
	assert.Equal(t, []float64{25, 30, 0.5, 10, 1, 6}, log.recs[0].Vector)
	assert.Equal(t, []float64{65.5}, log.recs[0].Prediction)
	assert.NotEmpty(t, log.recs[0].ID)
	assert.NotEmpty(t, log.recs[1].Error)
}

func TestPredictHorizon(t *testing.T) {
	var asked []time.Time
	src := weather.SourceFunc(func(_ context.Context, at time.Time) (weather.Estimate, error) {
		asked = append(asked, at)
		return weather.Estimate{AmbientTemperature: 30, ModuleTemperature: 40, Irradiation: 1}, nil
	})
	svc := NewService(sumModel, nil, WithClock(clock), WithWeather(src))

	h, err := svc.PredictHorizon(context.Background(), 3, time.Hour)
	require.NoError(t, err)
	assert.Empty(t, asked, "weather must be requested lazily")

	var pts []ForecastPoint
	for h.Next() {
		pts = append(pts, h.Point())
		assert.Len(t, asked, len(pts))
	}
	require.NoError(t, h.Err())
	require.Len(t, pts, 3)
	for i, p := range pts {
		want := now.Add(time.Duration(i+1) * time.Hour)
		assert.True(t, want.Equal(p.Timestamp))
		assert.Equal(t, 71.0+float64(9+i), p.Prediction)
	}
	assert.False(t, h.Next(), "horizon is not restartable")
}

func TestPredictHorizon_DailyCrossesMonth(t *testing.T) {
	start := time.Date(2021, 6, 29, 12, 0, 0, 0, time.UTC)
	var months []float64
	m := forecast.ModelFunc(func(v model.FeatureVector) (float64, error) {
		months = append(months, v[5])
		return 1, nil
	})
	svc := NewService(m, nil, WithClock(func() time.Time { return start }),
		WithWeather(weather.Fixed{AmbientTemperature: 20, ModuleTemperature: 25, Irradiation: 0.3}))
	h, err := svc.PredictHorizon(context.Background(), 3, 24*time.Hour)
	require.NoError(t, err)
	pts, err := h.Collect()
	require.NoError(t, err)
	assert.Len(t, pts, 3)
	assert.Equal(t, []float64{6, 7, 7}, months)
}

func TestPredictHorizon_Invalid(t *testing.T) {
	svc := NewService(sumModel, nil)
	for _, c := range []struct {
		n    int
		step time.Duration
	}{{0, time.Hour}, {-1, time.Hour}, {3, 0}, {3, -time.Minute}} {
		_, err := svc.PredictHorizon(context.Background(), c.n, c.step)
		assert.ErrorIs(t, err, ErrInvalidHorizon)
	}
	_, err := NewService(nil, nil).PredictHorizon(context.Background(), 1, time.Hour)
	assert.ErrorIs(t, err, forecast.ErrModelUnavailable)
}

func TestPredictHorizon_HugeInterval(t *testing.T) {
	svc := NewService(sumModel, nil, WithClock(clock),
		WithWeather(weather.Fixed{AmbientTemperature: 20, ModuleTemperature: 25, Irradiation: 0.3}))

	_, err := svc.PredictHorizon(context.Background(), 3, 1_000_000*time.Hour)
	assert.ErrorIs(t, err, ErrInvalidHorizon)

	h, err := svc.PredictHorizon(context.Background(), 2, 1_000_000*time.Hour)
	require.NoError(t, err)
	pts, err := h.Collect()
	require.NoError(t, err)
	require.Len(t, pts, 2)
	assert.True(t, pts[0].Timestamp.After(now))
	assert.True(t, pts[1].Timestamp.After(pts[0].Timestamp))
	assert.True(t, now.Add(2_000_000*time.Hour).Equal(pts[1].Timestamp))
}

func TestPredictHorizon_WeatherFailure(t *testing.T) {
	boom := errors.New("upstream down")
	calls := 0
	src := weather.SourceFunc(func(context.Context, time.Time) (weather.Estimate, error) {
		calls++
		if calls == 2 {
			return weather.Estimate{}, boom
		}
		return weather.Estimate{AmbientTemperature: 1, ModuleTemperature: 1, Irradiation: 1}, nil
	})
	log := &memAudit{}
	svc := NewService(sumModel, nil, WithClock(clock), WithWeather(src), WithAudit(log))
	h, err := svc.PredictHorizon(context.Background(), 5, time.Hour)
	require.NoError(t, err)

	pts, err := h.Collect()
	assert.ErrorIs(t, err, boom)
	assert.Nil(t, pts)
	assert.False(t, h.Next())
	require.Len(t, log.recs, 1)
	assert.Equal(t, audit.KindHorizon, log.recs[0].Kind)
	assert.Contains(t, log.recs[0].Error, "step 2")
}

func TestPredictHorizon_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	svc := NewService(sumModel, nil, WithWeather(weather.Fixed{}))
	h, err := svc.PredictHorizon(ctx, 10, time.Minute)
	require.NoError(t, err)
	require.True(t, h.Next())
	cancel()
	assert.False(t, h.Next())
	assert.ErrorIs(t, h.Err(), context.Canceled)
}

func TestPredictHorizon_AuditsOnce(t *testing.T) {
	log := &memAudit{}
	svc := NewService(sumModel, nil, WithClock(clock), WithAudit(log),
		WithWeather(weather.Fixed{AmbientTemperature: 1, ModuleTemperature: 1, Irradiation: 0}))
	h, err := svc.PredictHorizon(context.Background(), 2, time.Hour)
	require.NoError(t, err)
	_, err = h.Collect()
	require.NoError(t, err)
	h.Next()
	require.Len(t, log.recs, 1)
	assert.Equal(t, 2, log.recs[0].Steps)
	assert.Equal(t, []float64{11, 12}, log.recs[0].Prediction)
}

func reading(min int, ac float64) model.Reading {
	return features.NewReading(now.Add(time.Duration(min)*time.Minute), 25, 30, 0.5, ac)
}

func TestRecentHistory(t *testing.T) {
	store := newStore(t, reading(0, 1), reading(1, 2), reading(2, 3))
	svc := NewService(sumModel, store)

	rows, err := svc.RecentHistory(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, 2.0, rows[0].ACPower)
	assert.Equal(t, 3.0, rows[1].ACPower)

	_, err = svc.RecentHistory(context.Background(), -1)
	assert.ErrorIs(t, err, history.ErrInvalidLimit)
}

func TestRecentHistory_Unavailable(t *testing.T) {
	mem := history.NewMemoryStorage()
	mem.Set([]byte("garbage\n1,2\n"))
	svc := NewService(sumModel, history.NewBoundedStore(mem, 100))
	_, err := svc.RecentHistory(context.Background(), 10)
	var unavailable *history.StoreUnavailableError
	assert.ErrorAs(t, err, &unavailable)

	_, err = NewService(sumModel, nil).RecentHistory(context.Background(), 10)
	assert.ErrorIs(t, err, history.ErrStoreUnavailable)
}

func TestMaintenanceAndAlerts(t *testing.T) {
	// sumModel predicts 25+30+0.5+hour for the stored reading (hour 8): 63.5.
	store := newStore(t, reading(0, 70), reading(1, 50))
	svc := NewService(sumModel, store)
	ctx := context.Background()

	st, err := svc.CheckMaintenance(ctx)
	require.NoError(t, err)
	assert.True(t, st.Required)
	assert.Equal(t, 50.0, st.Actual)
	assert.Equal(t, 63.5, st.Predicted)

	faulty, err := svc.FaultyPanels(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Panel_2"}, faulty)

	alerts, err := svc.Alerts(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{health.MsgMaintenanceRequired, "Faulty equipment detected: Panel_2."}, alerts)

	cur, err := svc.Current(ctx)
	require.NoError(t, err)
	assert.Equal(t, 50.0, cur.ACPower)
}

func TestMaintenance_NoReading(t *testing.T) {
	mem := history.NewMemoryStorage()
	mem.Set(nil)
	svc := NewService(sumModel, history.NewBoundedStore(mem, 100))
	_, err := svc.CheckMaintenance(context.Background())
	assert.ErrorIs(t, err, telemetry.ErrNoReading)
}
