package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"

	coremetrics "github.com/kilianp07/solarcast/core/metrics"
)

// PromSink records prediction and reading metrics in Prometheus collectors.
type PromSink struct {
	predictions *prometheus.CounterVec
	latency     *prometheus.HistogramVec
	predicted   prometheus.Gauge
	readings    prometheus.Counter
	acPower     prometheus.Gauge
	rows        prometheus.Gauge
}

// NewPromSink registers the collectors on the default Prometheus registerer.
func NewPromSink() (*PromSink, error) {
	return NewPromSinkWithRegistry(prometheus.DefaultRegisterer)
}

// NewPromSinkWithRegistry registers the collectors on reg. A nil registerer
// defaults to the global one. Collectors already registered are reused.
func NewPromSinkWithRegistry(reg prometheus.Registerer) (*PromSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	s := &PromSink{
		predictions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "solar_predictions_total",
			Help: "Prediction requests by kind and outcome",
		}, []string{"kind", "outcome"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "solar_prediction_latency_seconds",
			Help:    "Time spent serving a prediction",
			Buckets: prometheus.DefBuckets,
		}, []string{"kind"}),
		predicted: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "solar_predicted_power_kw",
			Help: "Last predicted AC power",
		}),
		readings: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "solar_readings_total",
			Help: "Sensor readings appended to the history",
		}),
		acPower: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "solar_ac_power_kw",
			Help: "AC power of the latest sensor reading",
		}),
		rows: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "solar_history_rows",
			Help: "Rows currently held by the history store",
		}),
	}
	var err error
	if s.predictions, err = register(reg, s.predictions); err != nil {
		return nil, err
	}
	if s.latency, err = register(reg, s.latency); err != nil {
		return nil, err
	}
	if s.predicted, err = register(reg, s.predicted); err != nil {
		return nil, err
	}
	if s.readings, err = register(reg, s.readings); err != nil {
		return nil, err
	}
	if s.acPower, err = register(reg, s.acPower); err != nil {
		return nil, err
	}
	if s.rows, err = register(reg, s.rows); err != nil {
		return nil, err
	}
	return s, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

// RecordPrediction counts the request and observes its latency. The gauge
// only moves on success.
func (s *PromSink) RecordPrediction(ev coremetrics.PredictionEvent) error {
	s.predictions.WithLabelValues(ev.Kind, ev.Outcome).Inc()
	s.latency.WithLabelValues(ev.Kind).Observe(ev.Latency.Seconds())
	if ev.Outcome == coremetrics.OutcomeOK {
		s.predicted.Set(ev.Value)
	}
	return nil
}

// RecordReading counts the reading and exposes its AC power.
func (s *PromSink) RecordReading(ev coremetrics.ReadingEvent) error {
	s.readings.Inc()
	s.acPower.Set(ev.ACPower)
	return nil
}

// RecordHistorySize sets the history gauge.
func (s *PromSink) RecordHistorySize(rows int) error {
	s.rows.Set(float64(rows))
	return nil
}
