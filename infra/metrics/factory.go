package metrics

import (
	"errors"
	"fmt"
	"net/url"

	"github.com/kilianp07/solarcast/core/factory"
	coremetrics "github.com/kilianp07/solarcast/core/metrics"
)

// Sink type names accepted in metrics.sinks.
const (
	SinkNop        = "nop"
	SinkPrometheus = "prometheus"
	SinkInflux     = "influx"
)

// SetDefaults fills the organisation and bucket left blank.
func (c *InfluxConfig) SetDefaults() {
	if c.Org == "" {
		c.Org = "solarcast"
	}
	if c.Bucket == "" {
		c.Bucket = "solar"
	}
}

// Validate requires an absolute http(s) URL.
func (c InfluxConfig) Validate() error {
	if c.URL == "" {
		return errors.New("influx url is required")
	}
	u, err := url.Parse(c.URL)
	if err != nil {
		return fmt.Errorf("influx url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("influx url scheme %q not supported", u.Scheme)
	}
	return nil
}

func newInflux(conf map[string]any) (coremetrics.MetricsSink, error) {
	var c InfluxConfig
	if err := factory.Decode(conf, &c); err != nil {
		return nil, err
	}
	c.SetDefaults()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return NewInfluxSinkWithFallback(c), nil
}

func init() {
	_ = coremetrics.RegisterMetricsSink(SinkNop, func(map[string]any) (coremetrics.MetricsSink, error) {
		return coremetrics.NopSink{}, nil
	})
	_ = coremetrics.RegisterMetricsSink(SinkPrometheus, func(map[string]any) (coremetrics.MetricsSink, error) {
		return NewPromSink()
	})
	_ = coremetrics.RegisterMetricsSink(SinkInflux, newInflux)
}
