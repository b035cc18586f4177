// Package events defines the events published on the internal event bus.
//
//   - ReadingAppended: a sensor reading was stored in the history
//   - PredictionServed: a prediction request completed
package events
