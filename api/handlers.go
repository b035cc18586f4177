package api

import (
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/kilianp07/solarcast/core/features"
	"github.com/kilianp07/solarcast/core/model"
	"github.com/kilianp07/solarcast/core/prediction"
	"github.com/kilianp07/solarcast/pkg/export"
)

const (
	defaultHistoryLimit = 100
	defaultFutureDays   = 3
	defaultSteps        = 24
	maxBodyBytes        = 1 << 16
)

func (s *server) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *server) predict(w http.ResponseWriter, r *http.Request) {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.UseNumber()
	var raw features.RawFields
	if err := dec.Decode(&raw); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}
	y, err := s.svc.PredictNow(r.Context(), raw)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string][]float64{"prediction": {y}})
}

type datedPrediction struct {
	Date       string  `json:"date"`
	Prediction float64 `json:"prediction"`
}

func (s *server) predictFuture(w http.ResponseWriter, r *http.Request) {
	days, err := s.intParam(r, "days", defaultFutureDays)
	if err != nil {
		fail(w, r, err)
		return
	}
	points, err := s.collect(r, days, 24*time.Hour)
	if err != nil {
		fail(w, r, err)
		return
	}
	out := make([]datedPrediction, len(points))
	for i, p := range points {
		out[i] = datedPrediction{Date: p.Timestamp.Format(model.TimestampLayout), Prediction: p.Prediction}
	}
	writeJSON(w, http.StatusOK, map[string][]datedPrediction{"predictions": out})
}

func (s *server) forecast(w http.ResponseWriter, r *http.Request) {
	steps, err := s.intParam(r, "steps", defaultSteps)
	if err != nil {
		fail(w, r, err)
		return
	}
	interval := time.Hour
	if v := r.URL.Query().Get("interval"); v != "" {
		if interval, err = time.ParseDuration(v); err != nil {
			fail(w, r, fmt.Errorf("%w: interval %q", prediction.ErrInvalidHorizon, v))
			return
		}
	}
	format, err := formatParam(r, export.FormatJSON)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	points, err := s.collect(r, steps, interval)
	if err != nil {
		fail(w, r, err)
		return
	}
	if format == export.FormatCSV {
		w.Header().Set("Content-Type", format.ContentType())
		_ = export.WriteForecast(w, format, points)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"interval": interval.String(), "points": points})
}

func (s *server) collect(r *http.Request, n int, step time.Duration) ([]prediction.ForecastPoint, error) {
	h, err := s.svc.PredictHorizon(r.Context(), n, step)
	if err != nil {
		return nil, err
	}
	return h.Collect()
}

func (s *server) history(w http.ResponseWriter, r *http.Request) {
	limit := defaultHistoryLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid limit %q", v))
			return
		}
		limit = n
	}
	rows, err := s.svc.RecentHistory(r.Context(), limit)
	if err != nil {
		fail(w, r, err)
		return
	}
	if rows == nil {
		rows = []model.Reading{}
	}
	writeJSON(w, http.StatusOK, rows)
}

func (s *server) exportHistory(w http.ResponseWriter, r *http.Request) {
	format, err := formatParam(r, export.FormatCSV)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	rows, err := s.svc.RecentHistory(r.Context(), math.MaxInt)
	if err != nil {
		fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=sensor_history.%s", format))
	_ = export.WriteReadings(w, format, rows)
}

func (s *server) currentData(w http.ResponseWriter, r *http.Request) {
	cur, err := s.svc.Current(r.Context())
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cur)
}

func (s *server) currentPower(w http.ResponseWriter, r *http.Request) {
	cur, err := s.svc.Current(r.Context())
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"power":     cur.ACPower,
		"timestamp": cur.Timestamp.Format(model.TimestampLayout),
	})
}

func (s *server) checkMaintenance(w http.ResponseWriter, r *http.Request) {
	st, err := s.svc.CheckMaintenance(r.Context())
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *server) faultyEquipment(w http.ResponseWriter, r *http.Request) {
	ids, err := s.svc.FaultyPanels(r.Context())
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string][]string{"faulty_panels": ids})
}

func (s *server) alerts(w http.ResponseWriter, r *http.Request) {
	msgs, err := s.svc.Alerts(r.Context())
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string][]string{"alerts": msgs})
}

// intParam reads a positive step count capped by the configured maximum.
func (s *server) intParam(r *http.Request, name string, def int) (int, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%w: %s=%q", prediction.ErrInvalidHorizon, name, v)
	}
	if s.maxSteps > 0 && n > s.maxSteps {
		return 0, fmt.Errorf("%w: %s=%d exceeds %d", prediction.ErrInvalidHorizon, name, n, s.maxSteps)
	}
	return n, nil
}

func formatParam(r *http.Request, def export.Format) (export.Format, error) {
	v := r.URL.Query().Get("format")
	if v == "" {
		return def, nil
	}
	return export.ParseFormat(v)
}
