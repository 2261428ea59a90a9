package middleware

import (
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/zatekoja/keywordscout/internal/infrastructure/observability"
)

// LoggingMiddleware logs one line per HTTP request
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		// Create a response writer wrapper to capture status code
		rw := &loggingResponseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(rw, r)

		logger := observability.LoggerFromContext(r.Context())
		var event *zerolog.Event
		switch {
		case rw.statusCode >= http.StatusInternalServerError:
			event = logger.Error()
		case rw.statusCode >= http.StatusBadRequest:
			event = logger.Warn()
		default:
			event = logger.Info()
		}
		event.
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", rw.statusCode).
			Dur("duration", time.Since(start)).
			Msg("HTTP request")
	})
}

// loggingResponseWriter wraps http.ResponseWriter to capture status code
type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *loggingResponseWriter) WriteHeader(statusCode int) {
	rw.statusCode = statusCode
	rw.ResponseWriter.WriteHeader(statusCode)
}

func (rw *loggingResponseWriter) Flush() {
	if flusher, ok := rw.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}
