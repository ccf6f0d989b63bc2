// Package metrics exposes Prometheus counters for the auth lifecycle.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	PathSignature  = "signature"
	PathDBFallback = "db_fallback"

	ResultSuccess = "success"
	ResultFailure = "failure"
)

// AuthMetrics : nil receivers are valid and record nothing
type AuthMetrics struct {
	registry *prometheus.Registry

	logins      *prometheus.CounterVec
	refreshes   *prometheus.CounterVec
	validations *prometheus.CounterVec
	revocations *prometheus.CounterVec

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
}

func NewAuthMetrics() *AuthMetrics {
	m := &AuthMetrics{
		registry: prometheus.NewRegistry(),
		logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "auth_logins_total",
			Help: "Session issuances by entry point and outcome.",
		}, []string{"method", "result"}),
		refreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "auth_refresh_total",
			Help: "Access token refreshes by outcome.",
		}, []string{"result"}),
		validations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "auth_token_validations_total",
			Help: "Access token validations by verification path and outcome.",
		}, []string{"path", "result"}),
		revocations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "auth_revocations_total",
			Help: "Revocations by scope.",
		}, []string{"scope"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}

	m.registry.MustRegister(
		m.logins, m.refreshes, m.validations, m.revocations,
		m.httpRequests, m.httpDuration,
		collectors.NewGoCollector(),
	)
	return m
}

func result(ok bool) string {
	if ok {
		return ResultSuccess
	}
	return ResultFailure
}

// Login : method is password, register or vendor
func (m *AuthMetrics) Login(method string, ok bool) {
	if m == nil {
		return
	}
	m.logins.WithLabelValues(method, result(ok)).Inc()
}

func (m *AuthMetrics) Refresh(ok bool) {
	if m == nil {
		return
	}
	m.refreshes.WithLabelValues(result(ok)).Inc()
}

func (m *AuthMetrics) Validation(path string, ok bool) {
	if m == nil {
		return
	}
	m.validations.WithLabelValues(path, result(ok)).Inc()
}

// Revocation : scope is session, device, user or global
func (m *AuthMetrics) Revocation(scope string, count int64) {
	if m == nil || count <= 0 {
		return
	}
	m.revocations.WithLabelValues(scope).Add(float64(count))
}

func (m *AuthMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *AuthMetrics) Registry() *prometheus.Registry {
	return m.registry
}

// Instrument : request count and latency labelled by the chi route pattern
func (m *AuthMetrics) Instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, code: http.StatusOK}
		next.ServeHTTP(sw, r)

		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		status := strconv.Itoa(sw.code)

		m.httpDuration.WithLabelValues(r.Method, route, status).Observe(time.Since(start).Seconds())
		m.httpRequests.WithLabelValues(r.Method, route, status).Inc()
	})
}

type statusWriter struct {
	http.ResponseWriter
	code int
}

func (w *statusWriter) WriteHeader(code int) {
	w.code = code
	w.ResponseWriter.WriteHeader(code)
}
