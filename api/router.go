// Package api exposes the prediction service over HTTP.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"github.com/kilianp07/solarcast/api/predictions"
	"github.com/kilianp07/solarcast/core/audit"
	"github.com/kilianp07/solarcast/core/features"
	"github.com/kilianp07/solarcast/core/health"
	"github.com/kilianp07/solarcast/core/logger"
	"github.com/kilianp07/solarcast/core/model"
	"github.com/kilianp07/solarcast/core/prediction"
)

// Service is the prediction surface the handlers need.
type Service interface {
	PredictNow(ctx context.Context, raw features.RawFields) (float64, error)
	PredictHorizon(ctx context.Context, n int, step time.Duration) (*prediction.Horizon, error)
	RecentHistory(ctx context.Context, limit int) ([]model.Reading, error)
	Current(ctx context.Context) (model.Reading, error)
	CheckMaintenance(ctx context.Context) (health.MaintenanceStatus, error)
	FaultyPanels(ctx context.Context) ([]string, error)
	Alerts(ctx context.Context) ([]string, error)
}

// Options configures the router.
type Options struct {
	// Audit backs /api/predictions/log; nil disables the route.
	Audit      audit.LogStore
	AuditToken string
	// Metrics is mounted at MetricsPath when set.
	Metrics     http.Handler
	MetricsPath string
	CORSOrigins []string
	// MaxHorizonSteps caps days and steps; zero means no cap.
	MaxHorizonSteps int
	Log             logger.Logger
}

type server struct {
	svc      Service
	maxSteps int
}

// NewRouter returns the HTTP handler serving svc. Panics are recovered into
// 500 responses and every request is access-logged.
func NewRouter(svc Service, opts Options) http.Handler {
	s := &server{svc: svc, maxSteps: opts.MaxHorizonSteps}
	r := mux.NewRouter()

	r.HandleFunc("/healthz", s.healthz).Methods(http.MethodGet)
	r.HandleFunc("/predict", s.predict).Methods(http.MethodPost)
	r.HandleFunc("/predict-future", s.predictFuture).Methods(http.MethodGet)
	r.HandleFunc("/api/forecast", s.forecast).Methods(http.MethodGet)
	r.HandleFunc("/history", s.history).Methods(http.MethodGet)
	r.HandleFunc("/history/export", s.exportHistory).Methods(http.MethodGet)
	r.HandleFunc("/current-data", s.currentData).Methods(http.MethodGet)
	r.HandleFunc("/current-power", s.currentPower).Methods(http.MethodGet)
	r.HandleFunc("/check-maintenance", s.checkMaintenance).Methods(http.MethodGet)
	r.HandleFunc("/faulty-equipment", s.faultyEquipment).Methods(http.MethodGet)
	r.HandleFunc("/alerts", s.alerts).Methods(http.MethodGet)
	if opts.Audit != nil {
		r.Handle("/api/predictions/log", predictions.NewLogHandler(opts.Audit, opts.AuditToken)).Methods(http.MethodGet)
	}
	if opts.Metrics != nil {
		path := opts.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		r.Handle(path, opts.Metrics).Methods(http.MethodGet)
	}
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	origins := opts.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	var h http.Handler = r
	h = handlers.CORS(
		handlers.AllowedOrigins(origins),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Content-Type", "Authorization"}),
	)(h)
	h = handlers.RecoveryHandler(handlers.RecoveryLogger(recoveryLogger{logger.OrNop(opts.Log)}))(h)
	return accessLog(logger.OrNop(opts.Log))(h)
}

type recoveryLogger struct{ log logger.Logger }

func (l recoveryLogger) Println(v ...any) {
	l.log.Errorf("http handler panic: %v", v)
}
