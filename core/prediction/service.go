package prediction

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/kilianp07/solarcast/core/audit"
	"github.com/kilianp07/solarcast/core/events"
	"github.com/kilianp07/solarcast/core/features"
	"github.com/kilianp07/solarcast/core/forecast"
	"github.com/kilianp07/solarcast/core/history"
	"github.com/kilianp07/solarcast/core/logger"
	"github.com/kilianp07/solarcast/core/model"
	"github.com/kilianp07/solarcast/core/telemetry"
	"github.com/kilianp07/solarcast/core/weather"
	"github.com/kilianp07/solarcast/internal/eventbus"
)

// ErrInvalidHorizon is returned for a non-positive step count or interval.
var ErrInvalidHorizon = errors.New("invalid forecast horizon")

// Option configures a Service.
type Option func(*Service)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithWeather sets the source of weather estimates used by horizons.
func WithWeather(src weather.Source) Option {
	return func(s *Service) { s.weather = src }
}

// WithTelemetry sets the source of the current plant state.
func WithTelemetry(src telemetry.Source) Option {
	return func(s *Service) { s.telemetry = src }
}

// WithBus publishes a PredictionServed event per request.
func WithBus(bus eventbus.EventBus) Option {
	return func(s *Service) { s.bus = bus }
}

// WithAudit records every request in store.
func WithAudit(store audit.LogStore) Option {
	return func(s *Service) { s.audit = store }
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) { s.log = logger.OrNop(l) }
}

// Service answers prediction requests. It holds no per-request state; the
// model is read-only after construction.
type Service struct {
	model     forecast.Model
	store     history.Store
	weather   weather.Source
	telemetry telemetry.Source
	bus       eventbus.EventBus
	audit     audit.LogStore
	log       logger.Logger
	now       func() time.Time
}

// NewService returns a Service predicting with m and reading history from
// store. Weather defaults to uniform random estimates and telemetry to the
// newest history row.
func NewService(m forecast.Model, store history.Store, opts ...Option) *Service {
	s := &Service{
		model: m,
		store: store,
		audit: audit.NopStore{},
		log:   logger.NopLogger{},
		now:   time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	if s.weather == nil {
		var cfg weather.RandomConfig
		cfg.SetDefaults()
		s.weather = weather.NewRandom(cfg)
	}
	if s.telemetry == nil && store != nil {
		s.telemetry = telemetry.NewHistorySource(store, nil)
	}
	return s
}

// Ready reports whether a model is loaded.
func (s *Service) Ready() bool { return s.model != nil }

// PredictNow converts raw into a feature vector and returns the model output.
// It never touches the history store.
func (s *Service) PredictNow(ctx context.Context, raw features.RawFields) (float64, error) {
	start := s.now()
	rec := audit.NewRecord(audit.KindNow, start)
	y, err := s.predictNow(raw, &rec)
	s.finish(ctx, rec, y, 1, start, err)
	return y, err
}

func (s *Service) predictNow(raw features.RawFields, rec *audit.LogRecord) (float64, error) {
	if s.model == nil {
		return 0, forecast.ErrModelUnavailable
	}
	v, err := features.ToVector(raw)
	if err != nil {
		return 0, err
	}
	rec.Vector = v.Slice()
	y, err := s.model.Predict(v)
	if err != nil {
		return 0, err
	}
	rec.Prediction = []float64{y}
	return y, nil
}

// Predict runs the model on an already built vector.
func (s *Service) Predict(v model.FeatureVector) (float64, error) {
	if s.model == nil {
		return 0, forecast.ErrModelUnavailable
	}
	return s.model.Predict(v)
}

// PredictHorizon returns a lazy sequence of exactly n forecast points spaced
// by step after now. Weather is requested for each point as it is consumed.
func (s *Service) PredictHorizon(ctx context.Context, n int, step time.Duration) (*Horizon, error) {
	if n <= 0 || step <= 0 {
		return nil, fmt.Errorf("%w: %d steps of %s", ErrInvalidHorizon, n, step)
	}
	// n·step must fit in a Duration.
	if step > time.Duration(math.MaxInt64)/time.Duration(n) {
		return nil, fmt.Errorf("%w: %d steps of %s overflow", ErrInvalidHorizon, n, step)
	}
	if s.model == nil {
		return nil, forecast.ErrModelUnavailable
	}
	start := s.now()
	return &Horizon{
		svc:   s,
		ctx:   ctx,
		start: start,
		at:    start,
		n:     n,
		step:  step,
		rec:   audit.NewRecord(audit.KindHorizon, start),
	}, nil
}

// RecentHistory returns the newest limit readings, oldest first.
func (s *Service) RecentHistory(ctx context.Context, limit int) ([]model.Reading, error) {
	if s.store == nil {
		return nil, &history.StoreUnavailableError{Source: "none", Err: errors.New("no history store configured")}
	}
	return s.store.Tail(ctx, limit)
}

// Current returns the newest plant reading.
func (s *Service) Current(ctx context.Context) (model.Reading, error) {
	if s.telemetry == nil {
		return model.Reading{}, telemetry.ErrNoReading
	}
	return s.telemetry.Current(ctx)
}

// Panels returns the per-panel output.
func (s *Service) Panels(ctx context.Context) ([]telemetry.PanelReading, error) {
	if s.telemetry == nil {
		return nil, telemetry.ErrNoReading
	}
	return s.telemetry.Panels(ctx)
}

func (s *Service) finish(ctx context.Context, rec audit.LogRecord, value float64, steps int, start time.Time, err error) {
	latency := s.now().Sub(start)
	rec.Steps = steps
	if err != nil {
		rec.Error = err.Error()
	}
	if s.bus != nil {
		s.bus.Publish(events.PredictionServed{
			Kind:    rec.Kind,
			Value:   value,
			Steps:   steps,
			Latency: latency,
			Err:     err,
			Time:    start,
		})
	}
	if aerr := s.audit.Append(context.WithoutCancel(ctx), rec); aerr != nil {
		s.log.Warnf("audit %s prediction: %v", rec.Kind, aerr)
	}
	if err != nil {
		s.log.Debugw("prediction failed", map[string]any{"kind": rec.Kind, "error": err.Error()})
	}
}
