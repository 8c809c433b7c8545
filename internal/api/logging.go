package api

import (
	"net/http"
	"strconv"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/torquehq/torque/internal/logger"
	"github.com/torquehq/torque/internal/metrics"
)

// requestLogger logs every request at Info level and records it in the
// ingress HTTP metrics, matching the teacher's apiMiddleware.RequestLogger.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		duration := time.Since(start)
		status := strconv.Itoa(ww.Status())

		logger.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("duration", duration).
			Msg("request handled")

		metrics.RecordHTTPRequest(r.Method, r.URL.Path, status, duration.Seconds())
	})
}
