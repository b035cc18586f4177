package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/kilianp07/solarcast/core/features"
	"github.com/kilianp07/solarcast/core/forecast"
	"github.com/kilianp07/solarcast/core/history"
	"github.com/kilianp07/solarcast/core/monitoring"
	"github.com/kilianp07/solarcast/core/prediction"
	"github.com/kilianp07/solarcast/core/telemetry"
)

type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorBody{Error: msg})
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, features.ErrMissingField),
		errors.Is(err, features.ErrInvalidField),
		errors.Is(err, prediction.ErrInvalidHorizon),
		errors.Is(err, history.ErrInvalidLimit):
		return http.StatusBadRequest
	case errors.Is(err, forecast.ErrModelUnavailable),
		errors.Is(err, history.ErrStoreUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, telemetry.ErrNoReading):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// fail writes err with its mapped status. Server-side failures go to the
// error monitor.
func fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		monitoring.CaptureException(err, map[string]string{"module": "api", "path": r.URL.Path})
	}
	writeError(w, status, err.Error())
}
