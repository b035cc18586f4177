// Package app wires configuration into the running server and simulator.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kilianp07/solarcast/api"
	"github.com/kilianp07/solarcast/config"
	"github.com/kilianp07/solarcast/core/audit"
	"github.com/kilianp07/solarcast/core/events"
	"github.com/kilianp07/solarcast/core/forecast"
	"github.com/kilianp07/solarcast/core/history"
	coremetrics "github.com/kilianp07/solarcast/core/metrics"
	"github.com/kilianp07/solarcast/core/model"
	"github.com/kilianp07/solarcast/core/monitoring"
	"github.com/kilianp07/solarcast/core/prediction"
	"github.com/kilianp07/solarcast/core/telemetry"
	"github.com/kilianp07/solarcast/core/weather"
	"github.com/kilianp07/solarcast/infra/logger"
	"github.com/kilianp07/solarcast/infra/metrics"
	"github.com/kilianp07/solarcast/infra/mqtt"
	"github.com/kilianp07/solarcast/internal/eventbus"
)

// Service is the HTTP prediction server with its dependencies.
type Service struct {
	cfg       *config.Config
	Predictor *prediction.Service
	store     history.Store
	audit     audit.LogStore
	bus       *eventbus.Bus
	sink      coremetrics.MetricsSink
	mqtt      *mqtt.PahoClient
	handler   http.Handler
	log       logger.Logger
}

// New loads the model and opens every store named in cfg. A model that
// cannot be loaded is an error: the server never starts without one.
func New(cfg *config.Config) (*Service, error) {
	logg := logger.New("service")
	pred, err := forecast.Load(cfg.Model.ArtifactPath)
	if err != nil {
		return nil, fmt.Errorf("load model: %w", err)
	}
	logg.Infof("loaded %s model trained at %s", pred.Name(), pred.TrainedAt().Format(time.RFC3339))
	return NewWithModel(cfg, pred)
}

// NewWithModel is New with an already loaded model.
func NewWithModel(cfg *config.Config, m forecast.Model) (svc *Service, err error) {
	logg := logger.New("service")
	s := &Service{cfg: cfg, log: logg, bus: eventbus.New()}
	defer func() {
		if err != nil {
			_ = s.Close()
		}
	}()

	if s.store, err = history.Open(cfg.History, history.WithLogger(logger.New("history"))); err != nil {
		return nil, fmt.Errorf("history: %w", err)
	}
	if s.audit, err = audit.Open(cfg.Audit); err != nil {
		return nil, fmt.Errorf("audit: %w", err)
	}
	if s.sink, err = coremetrics.NewMetricsSink(cfg.Metrics.Sinks); err != nil {
		return nil, fmt.Errorf("metrics: %w", err)
	}
	src, err := weather.New(cfg.Weather)
	if err != nil {
		return nil, fmt.Errorf("weather: %w", err)
	}
	if cfg.MQTT.Enabled {
		if s.mqtt, err = mqtt.NewPahoClient(cfg.MQTT); err != nil {
			return nil, fmt.Errorf("mqtt client: %w", err)
		}
	}

	s.Predictor = prediction.NewService(m, s.store,
		prediction.WithWeather(src),
		prediction.WithTelemetry(telemetry.NewHistorySource(s.store, cfg.Telemetry.Panels)),
		prediction.WithBus(s.bus),
		prediction.WithAudit(s.audit),
		prediction.WithLogger(logger.New("prediction")),
	)

	opts := api.Options{
		AuditToken:      cfg.Audit.Token,
		CORSOrigins:     cfg.Server.CORSOrigins,
		MaxHorizonSteps: cfg.Server.MaxHorizonSteps,
		Log:             logger.New("http"),
	}
	if cfg.Audit.Backend != audit.BackendNone {
		opts.Audit = s.audit
	}
	if cfg.Metrics.PrometheusEnabled() {
		opts.Metrics = promhttp.Handler()
		opts.MetricsPath = cfg.Metrics.PrometheusPath
	}
	s.handler = api.NewRouter(s.Predictor, opts)
	return s, nil
}

// Handler returns the HTTP handler.
func (s *Service) Handler() http.Handler { return s.handler }

// Run serves HTTP until ctx is cancelled, then shuts down gracefully.
func (s *Service) Run(ctx context.Context) error {
	done := metrics.StartEventCollector(ctx, s.bus, s.sink)
	if s.mqtt != nil && s.cfg.MQTT.Ingest {
		if err := s.mqtt.SubscribeReadings(func(r model.Reading) { s.ingest(ctx, r) }); err != nil {
			return fmt.Errorf("mqtt subscribe: %w", err)
		}
		s.log.Infof("ingesting readings from %s", s.mqtt.Topic())
	}

	srv := &http.Server{
		Addr:         s.cfg.Server.Address,
		Handler:      s.handler,
		ReadTimeout:  s.cfg.Server.ReadTimeout(),
		WriteTimeout: s.cfg.Server.WriteTimeout(),
	}
	errc := make(chan error, 1)
	go func() {
		defer monitoring.Recover()
		s.log.Infof("listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	var runErr error
	select {
	case <-ctx.Done():
	case err := <-errc:
		runErr = err
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.Server.ShutdownTimeout())
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		s.log.Warnf("http shutdown: %v", err)
	}
	s.bus.Close()
	<-done
	return runErr
}

func (s *Service) ingest(ctx context.Context, r model.Reading) {
	if err := s.store.Append(ctx, r); err != nil {
		s.log.Errorf("ingest reading: %v", err)
		return
	}
	rows := -1
	if all, err := s.store.ReadAll(ctx); err == nil {
		rows = len(all)
	}
	s.bus.Publish(events.ReadingAppended{Reading: r, Source: "mqtt", Rows: rows})
}

// Close releases stores and connections.
func (s *Service) Close() error {
	var errs []error
	if s.mqtt != nil {
		s.mqtt.Disconnect()
	}
	if s.audit != nil {
		errs = append(errs, s.audit.Close())
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
