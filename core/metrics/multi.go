package metrics

// MultiSink fans events out to several sinks.
type MultiSink struct {
	Sinks []MetricsSink
}

// NewMultiSink creates a MultiSink with the provided sinks.
func NewMultiSink(sinks ...MetricsSink) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

// RecordPrediction forwards the event to all sinks, returning the first error encountered.
func (m *MultiSink) RecordPrediction(ev PredictionEvent) error {
	for _, s := range m.Sinks {
		if err := s.RecordPrediction(ev); err != nil {
			return err
		}
	}
	return nil
}

// RecordReading forwards readings to sinks implementing ReadingRecorder.
func (m *MultiSink) RecordReading(ev ReadingEvent) error {
	for _, s := range m.Sinks {
		if rec, ok := s.(ReadingRecorder); ok {
			if err := rec.RecordReading(ev); err != nil {
				return err
			}
		}
	}
	return nil
}

// RecordHistorySize forwards the row count when supported by the sink.
func (m *MultiSink) RecordHistorySize(rows int) error {
	for _, s := range m.Sinks {
		if rec, ok := s.(HistorySizeRecorder); ok {
			if err := rec.RecordHistorySize(rows); err != nil {
				return err
			}
		}
	}
	return nil
}
