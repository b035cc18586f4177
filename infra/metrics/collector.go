package metrics

import (
	"context"

	"github.com/kilianp07/solarcast/core/events"
	coremetrics "github.com/kilianp07/solarcast/core/metrics"
	"github.com/kilianp07/solarcast/core/monitoring"
	"github.com/kilianp07/solarcast/infra/logger"
	"github.com/kilianp07/solarcast/internal/eventbus"
)

// StartEventCollector subscribes to the event bus and records metrics for
// events. It stops when the context is canceled or the bus is closed. The
// returned channel is closed once the collector has exited.
func StartEventCollector(ctx context.Context, bus eventbus.EventBus, sink coremetrics.MetricsSink) <-chan struct{} {
	done := make(chan struct{})
	if bus == nil || sink == nil {
		close(done)
		return done
	}
	log := logger.New("metrics-collector")
	sub := bus.Subscribe()
	go func() {
		defer close(done)
		defer bus.Unsubscribe(sub)
		defer monitoring.Recover()
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-sub:
				if !ok {
					return
				}
				if err := record(sink, ev); err != nil {
					log.Warnf("record %T: %v", ev, err)
				}
			}
		}
	}()
	return done
}

func record(sink coremetrics.MetricsSink, ev eventbus.Event) error {
	switch e := ev.(type) {
	case events.PredictionServed:
		outcome := coremetrics.OutcomeOK
		if e.Err != nil {
			outcome = coremetrics.OutcomeError
		}
		return sink.RecordPrediction(coremetrics.PredictionEvent{
			Kind:    e.Kind,
			Outcome: outcome,
			Value:   e.Value,
			Steps:   e.Steps,
			Latency: e.Latency,
			Time:    e.Time,
		})
	case events.ReadingAppended:
		if r, ok := sink.(coremetrics.ReadingRecorder); ok {
			if err := r.RecordReading(coremetrics.ReadingEvent{
				Source:             e.Source,
				AmbientTemperature: e.Reading.AmbientTemperature,
				ModuleTemperature:  e.Reading.ModuleTemperature,
				Irradiation:        e.Reading.Irradiation,
				ACPower:            e.Reading.ACPower,
				Time:               e.Reading.Timestamp,
			}); err != nil {
				return err
			}
		}
		if r, ok := sink.(coremetrics.HistorySizeRecorder); ok && e.Rows >= 0 {
			return r.RecordHistorySize(e.Rows)
		}
	}
	return nil
}
