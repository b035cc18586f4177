package prediction

import (
	"context"
	"fmt"
	"time"

	"github.com/kilianp07/solarcast/core/audit"
	"github.com/kilianp07/solarcast/core/features"
)

// ForecastPoint is one step of a horizon.
type ForecastPoint struct {
	Timestamp  time.Time `json:"timestamp"`
	Prediction float64   `json:"prediction"`
}

// Horizon iterates over forecast points. It is finite and cannot be
// restarted; use it from a single goroutine.
//
//	h, err := svc.PredictHorizon(ctx, 24, time.Hour)
//	for h.Next() {
//		p := h.Point()
//	}
//	if err := h.Err(); err != nil { ... }
type Horizon struct {
	svc   *Service
	ctx   context.Context
	start time.Time
	n     int
	step  time.Duration

	k    int
	at   time.Time
	cur  ForecastPoint
	err  error
	done bool
	rec  audit.LogRecord
}

// Len is the number of points the horizon yields when no error occurs.
func (h *Horizon) Len() int { return h.n }

// Next computes the next point. It returns false once all points were
// produced or an error occurred.
func (h *Horizon) Next() bool {
	if h.done {
		return false
	}
	if h.k >= h.n {
		h.close(nil)
		return false
	}
	if err := h.ctx.Err(); err != nil {
		h.close(err)
		return false
	}
	h.k++
	t := h.at.Add(h.step)
	h.at = t
	est, err := h.svc.weather.Estimate(h.ctx, t)
	if err == nil {
		err = est.Validate()
	}
	if err != nil {
		h.close(fmt.Errorf("weather at step %d: %w", h.k, err))
		return false
	}
	r := features.NewReading(t, est.AmbientTemperature, est.ModuleTemperature, est.Irradiation, 0)
	y, err := h.svc.model.Predict(features.FromReading(r))
	if err != nil {
		h.close(fmt.Errorf("step %d: %w", h.k, err))
		return false
	}
	h.cur = ForecastPoint{Timestamp: t, Prediction: y}
	h.rec.Prediction = append(h.rec.Prediction, y)
	if h.k == h.n {
		h.close(nil)
	}
	return true
}

// Point returns the point computed by the last successful Next.
func (h *Horizon) Point() ForecastPoint { return h.cur }

// Err returns the error that stopped the iteration, if any.
func (h *Horizon) Err() error { return h.err }

// Collect drains the horizon.
func (h *Horizon) Collect() ([]ForecastPoint, error) {
	out := make([]ForecastPoint, 0, h.n-h.k)
	for h.Next() {
		out = append(out, h.Point())
	}
	if h.err != nil {
		return nil, h.err
	}
	return out, nil
}

func (h *Horizon) close(err error) {
	if h.done {
		return
	}
	h.done = true
	h.err = err
	h.svc.finish(h.ctx, h.rec, h.cur.Prediction, h.n, h.start, err)
}
