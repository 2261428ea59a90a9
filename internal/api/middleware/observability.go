package middleware

import (
	"fmt"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/zatekoja/keywordscout/internal/infrastructure/observability"
)

// RouteResolver maps a request to its registered route pattern, e.g.
// "GET /api/keywords/{keyword}". Requests that match nothing resolve to "".
type RouteResolver func(*http.Request) string

// MuxRoutes resolves routes against mux without dispatching the request
func MuxRoutes(mux *http.ServeMux) RouteResolver {
	return func(r *http.Request) string {
		_, pattern := mux.Handler(r)
		return pattern
	}
}

// ObservabilityMiddleware opens a span per request and records request
// count and latency labelled by route pattern. Keywords travel in the path,
// so the raw path is never used as a label.
func ObservabilityMiddleware(metrics *observability.Metrics, routes RouteResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			route := ""
			if routes != nil {
				route = routes(r)
			}
			if route == "" {
				route = "unmatched"
			}

			ctx, span := observability.StartSpan(r.Context(), route)
			defer span.End()

			observability.SetSpanAttributes(span,
				attribute.String("http.method", r.Method),
				attribute.String("http.route", route),
				attribute.String("http.user_agent", r.UserAgent()),
			)

			rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
			start := time.Now()
			next.ServeHTTP(rw, r.WithContext(ctx))

			observability.RecordRequestMetric(ctx, metrics, r.Method, route, rw.statusCode, time.Since(start))
			observability.SetSpanAttributes(span, attribute.Int("http.status_code", rw.statusCode))
			if rw.statusCode >= http.StatusInternalServerError {
				span.SetStatus(codes.Error, fmt.Sprintf("status %d", rw.statusCode))
			}
		})
	}
}

type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(statusCode int) {
	rw.statusCode = statusCode
	rw.ResponseWriter.WriteHeader(statusCode)
}

// Flush keeps progress streams working through the wrapper
func (rw *responseWriter) Flush() {
	if flusher, ok := rw.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}
