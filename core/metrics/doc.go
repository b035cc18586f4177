// Package metrics defines the sink interfaces used to observe predictions
// and sensor readings. Implementations such as PromSink and InfluxSink live
// in infra/metrics and register themselves with RegisterMetricsSink; several
// configured sinks are combined into a MultiSink.
package metrics
