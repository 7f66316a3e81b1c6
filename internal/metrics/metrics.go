// Package metrics defines the Prometheus collectors exported on /metrics.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recipes_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status_code"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "recipes_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
		[]string{"method", "route"},
	)

	LoginAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recipes_login_attempts_total",
			Help: "Login attempts by outcome",
		},
		[]string{"result"},
	)

	Registrations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recipes_registrations_total",
			Help: "Registration submissions by outcome",
		},
		[]string{"result"},
	)

	RecipeMutations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recipes_recipe_mutations_total",
			Help: "Author recipe changes by operation",
		},
		[]string{"op"},
	)

	SessionsPurged = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "recipes_sessions_purged_total",
			Help: "Expired sessions removed by the cleanup loop",
		},
	)
)

// Outcome labels.
const (
	LoginSuccess   = "success"
	LoginInvalid   = "invalid_form"
	LoginBadCreds  = "bad_credentials"
	LoginFailed    = "error"
	LoginLimited   = "rate_limited"
	RegisterOK     = "created"
	RegisterReject = "rejected"
)

// RecordHTTPRequest records one finished request.
func RecordHTTPRequest(method, route string, status int, duration time.Duration) {
	HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	HTTPRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// Middleware records request count and latency per chi route pattern, so
// /recipe/1 and /recipe/2 share one series.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		mw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(mw, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				route = p
			}
		}
		RecordHTTPRequest(r.Method, route, mw.status, time.Since(start))
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}
