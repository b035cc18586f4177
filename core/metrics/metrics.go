package metrics

import "time"

// Prediction outcomes.
const (
	OutcomeOK    = "ok"
	OutcomeError = "error"
)

// Prediction kinds.
const (
	KindNow     = "now"
	KindHorizon = "horizon"
)

// PredictionEvent describes one served prediction request.
type PredictionEvent struct {
	Kind    string
	Outcome string
	// Value is the predicted AC power; for horizons the last point.
	Value   float64
	Steps   int
	Latency time.Duration
	Time    time.Time
}

// MetricsSink records prediction events.
type MetricsSink interface {
	RecordPrediction(ev PredictionEvent) error
}

// ReadingEvent is a sensor reading appended to the history store.
type ReadingEvent struct {
	Source             string
	AmbientTemperature float64
	ModuleTemperature  float64
	Irradiation        float64
	ACPower            float64
	Time               time.Time
}

// ReadingRecorder records sensor readings.
type ReadingRecorder interface {
	RecordReading(ev ReadingEvent) error
}

// HistorySizeRecorder tracks the number of rows held by the history store.
type HistorySizeRecorder interface {
	RecordHistorySize(rows int) error
}

// NopSink discards everything.
type NopSink struct{}

func (NopSink) RecordPrediction(PredictionEvent) error { return nil }
func (NopSink) RecordReading(ReadingEvent) error       { return nil }
func (NopSink) RecordHistorySize(int) error            { return nil }
