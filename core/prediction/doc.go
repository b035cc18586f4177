// Package prediction serves AC power forecasts: a single prediction from
// request fields, a lazy multi-step horizon driven by weather estimates,
// the recent sensor history, and the maintenance checks built on them.
package prediction
