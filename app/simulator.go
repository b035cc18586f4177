package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/kilianp07/solarcast/config"
	"github.com/kilianp07/solarcast/core/climate"
	"github.com/kilianp07/solarcast/core/history"
	coremetrics "github.com/kilianp07/solarcast/core/metrics"
	"github.com/kilianp07/solarcast/infra/logger"
	"github.com/kilianp07/solarcast/infra/metrics"
	"github.com/kilianp07/solarcast/infra/mqtt"
	"github.com/kilianp07/solarcast/internal/eventbus"
	"github.com/kilianp07/solarcast/simulator"
)

// Simulation runs the sensor simulator against the configured history.
type Simulation struct {
	runner *simulator.Runner
	store  history.Store
	bus    *eventbus.Bus
	sink   coremetrics.MetricsSink
	mqtt   *mqtt.PahoClient
}

// NewSimulation builds the simulator from cfg. Readings are published over
// MQTT when both mqtt.enabled and simulator.publish are set.
func NewSimulation(cfg *config.Config) (sim *Simulation, err error) {
	profile := climate.Default()
	if cfg.Simulator.ProfilePath != "" {
		if profile, err = climate.LoadProfile(cfg.Simulator.ProfilePath); err != nil {
			return nil, fmt.Errorf("climate profile: %w", err)
		}
	}
	s := &Simulation{bus: eventbus.New()}
	defer func() {
		if err != nil {
			_ = s.Close()
		}
	}()
	if s.store, err = history.Open(cfg.History, history.WithLogger(logger.New("history"))); err != nil {
		return nil, fmt.Errorf("history: %w", err)
	}
	if s.sink, err = coremetrics.NewMetricsSink(cfg.Metrics.Sinks); err != nil {
		return nil, fmt.Errorf("metrics: %w", err)
	}
	opts := []simulator.RunnerOption{
		simulator.WithBus(s.bus),
		simulator.WithLogger(logger.New("simulator")),
	}
	if cfg.MQTT.Enabled && cfg.Simulator.Publish {
		if s.mqtt, err = mqtt.NewPahoClient(cfg.MQTT); err != nil {
			return nil, fmt.Errorf("mqtt client: %w", err)
		}
		opts = append(opts, simulator.WithPublisher(s.mqtt))
	}
	gen := simulator.NewGenerator(profile, cfg.Simulator.Seed)
	s.runner = simulator.NewRunner(cfg.Simulator, gen, s.store, opts...)
	return s, nil
}

// Run generates readings until ctx is cancelled.
func (s *Simulation) Run(ctx context.Context) error {
	done := metrics.StartEventCollector(ctx, s.bus, s.sink)
	err := s.runner.Run(ctx)
	s.bus.Close()
	<-done
	return err
}

// Close releases the store and the MQTT connection.
func (s *Simulation) Close() error {
	var errs []error
	if s.mqtt != nil {
		s.mqtt.Disconnect()
	}
	if s.store != nil {
		errs = append(errs, s.store.Close())
	}
	s.bus.Close()
	if s.sink != nil {
		coremetrics.Close(s.sink)
	}
	return errors.Join(errs...)
}
