package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics mengumpulkan metrik Prometheus untuk aplikasi.
type Metrics struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	sourceFetches   *prometheus.CounterVec
	fallbacks       *prometheus.CounterVec
	composeDuration *prometheus.HistogramVec
}

// NewMetrics menginisialisasi registry dan metrik dasar.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "meridian_http_requests_total",
		Help: "Jumlah permintaan HTTP berdasarkan route dan status.",
	}, []string{"route", "code"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "meridian_http_request_duration_seconds",
		Help:    "Durasi permintaan HTTP per route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})
	fetches := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "meridian_source_fetches_total",
		Help: "Jumlah fetch per domain metrik berdasarkan hasilnya.",
	}, []string{"domain", "outcome"})
	fallbacks := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "meridian_fallback_syntheses_total",
		Help: "Jumlah sintesis fallback per domain metrik.",
	}, []string{"domain"})
	compose := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "meridian_dashboard_compose_duration_seconds",
		Help:    "Durasi komposisi dashboard per role.",
		Buckets: prometheus.DefBuckets,
	}, []string{"role"})
	registry.MustRegister(requests, duration, fetches, fallbacks, compose)
	return &Metrics{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestsTotal:   requests,
		requestDuration: duration,
		sourceFetches:   fetches,
		fallbacks:       fallbacks,
		composeDuration: compose,
	}
}

// Handler mengembalikan http.Handler untuk endpoint /metrics.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// Middleware mencatat metrik untuk setiap permintaan HTTP.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(&recorder, r)
		route := routePattern(r)
		m.requestsTotal.WithLabelValues(route, strconv.Itoa(recorder.status)).Inc()
		m.requestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}

// ObserveSourceFetch mencatat hasil fetch satu domain metrik.
func (m *Metrics) ObserveSourceFetch(domain, outcome string) {
	if m == nil {
		return
	}
	m.sourceFetches.WithLabelValues(domain, outcome).Inc()
}

// ObserveFallback mencatat satu sintesis fallback.
func (m *Metrics) ObserveFallback(domain string) {
	if m == nil {
		return
	}
	m.fallbacks.WithLabelValues(domain).Inc()
}

// ObserveCompose mencatat durasi komposisi dashboard untuk satu role.
func (m *Metrics) ObserveCompose(role string, d time.Duration) {
	if m == nil {
		return
	}
	m.composeDuration.WithLabelValues(role).Observe(d.Seconds())
}

// Registerer mengekspos registry untuk pendaftaran metrik khusus.
func (m *Metrics) Registerer() prometheus.Registerer {
	if m == nil {
		return prometheus.DefaultRegisterer
	}
	return m.registry
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func routePattern(r *http.Request) string {
	if routeCtx := chi.RouteContext(r.Context()); routeCtx != nil {
		if pattern := routeCtx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unknown"
}
