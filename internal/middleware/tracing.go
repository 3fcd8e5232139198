package middleware

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

type contextKey string

// LoggerContextKey is the key for the request span logger in the context.
const LoggerContextKey = contextKey("logger")

// RequestIDHeader carries the request id in both directions.
const RequestIDHeader = "X-Request-ID"

// Logger returns the span logger stored by Tracing, or a no-op logger.
func Logger(ctx context.Context) *zap.Logger {
	if l, ok := ctx.Value(LoggerContextKey).(*zap.Logger); ok {
		return l
	}
	return zap.NewNop()
}

// Tracing opens a span for every request and logs its outcome. It wraps the
// whole router, so unmatched paths and recovered panics are logged too; routes
// resolves matched_path.
func Tracing(logger *zap.Logger, routes *mux.Router) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			requestID := r.Header.Get(RequestIDHeader)
			if requestID == "" {
				requestID = uuid.NewString()
			}
			w.Header().Set(RequestIDHeader, requestID)

			span := logger.With(
				zap.String("span", "http_request"),
				zap.String("method", r.Method),
				zap.String("matched_path", matchedPath(routes, r)),
				zap.String("uri", r.URL.RequestURI()),
				zap.String("request_id", requestID),
			)
			span.Info(fmt.Sprintf("Started %s request to %s", r.Method, r.URL.RequestURI()))

			wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
			ctx := context.WithValue(r.Context(), LoggerContextKey, span)
			next.ServeHTTP(wrapped, r.WithContext(ctx))

			logResponse(span, wrapped, time.Since(start))
		})
	}
}

func matchedPath(routes *mux.Router, r *http.Request) string {
	route := mux.CurrentRoute(r)
	if route == nil && routes != nil {
		var match mux.RouteMatch
		if routes.Match(r, &match) {
			route = match.Route
		}
	}
	if route == nil {
		return ""
	}
	tpl, err := route.GetPathTemplate()
	if err != nil {
		return ""
	}
	return tpl
}

func logResponse(span *zap.Logger, rw *responseWriter, latency time.Duration) {
	status := rw.statusCode
	fields := []zap.Field{
		zap.Int("status", status),
		zap.Int64("latency_ms", latency.Milliseconds()),
	}

	switch {
	case status >= 200 && status < 300:
		span.Info("completed request", fields...)
	case status >= 500:
		span.Error("completed request", fields...)
	default:
		span.Warn("request completed with non-200 status", fields...)
		if ct := rw.Header().Get("Content-Type"); ct != "" {
			span.Info("response content-type", zap.String("content_type", ct))
		}
	}
}

// responseWriter captures the status code written by the handler.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
	written    bool
}

func (rw *responseWriter) WriteHeader(code int) {
	if !rw.written {
		rw.statusCode = code
		rw.written = true
		rw.ResponseWriter.WriteHeader(code)
	}
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	if !rw.written {
		rw.WriteHeader(http.StatusOK)
	}
	return rw.ResponseWriter.Write(b)
}
