package simulator

import (
	"context"
	"time"

	"github.com/kilianp07/solarcast/core/events"
	"github.com/kilianp07/solarcast/core/history"
	"github.com/kilianp07/solarcast/core/logger"
	"github.com/kilianp07/solarcast/core/model"
	"github.com/kilianp07/solarcast/core/monitoring"
	"github.com/kilianp07/solarcast/internal/eventbus"
)

// ReadingPublisher forwards readings to an external feed such as MQTT.
type ReadingPublisher interface {
	PublishReading(ctx context.Context, r model.Reading) error
}

// Runner appends a generated reading to the store on every tick.
type Runner struct {
	gen      *Generator
	store    history.Store
	interval time.Duration
	source   string
	bus      eventbus.EventBus
	pub      ReadingPublisher
	log      logger.Logger
	now      func() time.Time
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithBus publishes a ReadingAppended event after every append.
func WithBus(b eventbus.EventBus) RunnerOption { return func(r *Runner) { r.bus = b } }

// WithPublisher forwards every reading to p.
func WithPublisher(p ReadingPublisher) RunnerOption { return func(r *Runner) { r.pub = p } }

// WithLogger sets the logger.
func WithLogger(l logger.Logger) RunnerOption { return func(r *Runner) { r.log = l } }

// WithClock overrides the reading timestamps.
func WithClock(now func() time.Time) RunnerOption { return func(r *Runner) { r.now = now } }

// NewRunner returns a Runner writing to store.
func NewRunner(cfg Config, gen *Generator, store history.Store, opts ...RunnerOption) *Runner {
	cfg.SetDefaults()
	r := &Runner{
		gen:      gen,
		store:    store,
		interval: cfg.Interval(),
		source:   cfg.Source,
		now:      time.Now,
	}
	for _, o := range opts {
		o(r)
	}
	r.log = logger.OrNop(r.log)
	return r
}

// Run generates readings until ctx is done. Append failures are logged and
// the loop carries on.
func (r *Runner) Run(ctx context.Context) error {
	defer monitoring.Recover()
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	r.log.Infof("simulating a reading every %s", r.interval)
	for {
		r.Step(ctx)
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if ctx.Err() != nil {
				return nil
			}
		}
	}
}

// Step generates, stores and forwards one reading.
func (r *Runner) Step(ctx context.Context) {
	reading := r.gen.Next(r.now())
	if err := r.store.Append(ctx, reading); err != nil {
		r.log.Errorf("append reading: %v", err)
		monitoring.CaptureException(err, map[string]string{"module": "simulator"})
		return
	}
	r.log.Debugw("reading appended", map[string]any{
		"ac_power":    reading.ACPower,
		"irradiation": reading.Irradiation,
	})
	if r.bus != nil {
		rows := -1
		if all, err := r.store.ReadAll(ctx); err == nil {
			rows = len(all)
		}
		r.bus.Publish(events.ReadingAppended{Reading: reading, Source: r.source, Rows: rows})
	}
	if r.pub != nil {
		if err := r.pub.PublishReading(ctx, reading); err != nil {
			r.log.Warnf("publish reading: %v", err)
		}
	}
}
