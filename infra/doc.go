// Package infra groups the adapters behind the core interfaces: zerolog
// logging, Prometheus and InfluxDB metrics sinks, the MQTT reading feed and
// Sentry error monitoring.
package infra
