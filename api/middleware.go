package api

import (
	"io"
	"net/http"
	"time"

	"github.com/gorilla/handlers"

	"github.com/kilianp07/solarcast/core/logger"
)

// accessLog writes one line per request through log. Server errors are
// logged at warn level.
func accessLog(log logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return handlers.CustomLoggingHandler(io.Discard, next, accessFormatter(log))
	}
}

func accessFormatter(log logger.Logger) handlers.LogFormatter {
	return func(_ io.Writer, p handlers.LogFormatterParams) {
		status := p.StatusCode
		if status == 0 {
			status = http.StatusOK
		}
		fl, ok := log.(logger.FieldLogger)
		if !ok {
			log.Infof("%s %s %d", p.Request.Method, p.URL.Path, status)
			return
		}
		fields := map[string]any{
			"method":      p.Request.Method,
			"path":        p.URL.Path,
			"status":      status,
			"bytes":       p.Size,
			"duration_ms": time.Since(p.TimeStamp).Milliseconds(),
			"remote":      p.Request.RemoteAddr,
		}
		if status >= http.StatusInternalServerError {
			fl.Warnw("request", fields)
			return
		}
		fl.Infow("request", fields)
	}
}
