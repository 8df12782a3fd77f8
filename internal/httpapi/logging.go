package httpapi

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"volterra/admin-service/internal/auth"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

type metrics struct {
	requests *prometheus.CounterVec
	errors   *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

func newMetrics(reg prometheus.Registerer) *metrics {
	m := &metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "HTTP requests served, by route and status.",
		}, []string{"method", "route", "status"}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_request_errors_total",
			Help: "HTTP requests answered with a 4xx or 5xx status.",
		}, []string{"method", "route", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
	reg.MustRegister(m.requests, m.errors, m.duration)
	return m
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// requestEntry is filled in by inner middleware so the access log can name
// the resolved user.
type requestEntry struct {
	userID int64
}

type requestEntryKey struct{}

func (h *Handler) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		entry := &requestEntry{}
		writer := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(writer, r.WithContext(context.WithValue(r.Context(), requestEntryKey{}, entry)))
		duration := time.Since(start)

		route := routePattern(r)
		status := strconv.Itoa(writer.status)
		h.metrics.requests.WithLabelValues(r.Method, route, status).Inc()
		if writer.status >= http.StatusBadRequest {
			h.metrics.errors.WithLabelValues(r.Method, route, status).Inc()
		}
		h.metrics.duration.WithLabelValues(r.Method, route).Observe(duration.Seconds())

		h.logger.Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", writer.status),
			zap.Int64("duration_ms", duration.Milliseconds()),
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.Int64("user_id", entry.userID))
	})
}

// tagUser copies the resolved user id into the access log entry.
func tagUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if entry, ok := r.Context().Value(requestEntryKey{}).(*requestEntry); ok {
			if user := auth.UserFromContext(r.Context()); user != nil {
				entry.userID = user.ID
			}
		}
		next.ServeHTTP(w, r)
	})
}

// routePattern keeps metric labels bounded by using the matched chi pattern.
func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unmatched"
}
