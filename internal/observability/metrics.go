package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics collects Prometheus metrics for the application.
type Metrics struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	previewsTotal   *prometheus.CounterVec
	savesTotal      *prometheus.CounterVec
	periodsInserted prometheus.Counter
}

// NewMetrics initialises the registry and base metrics.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "meridian_http_requests_total",
		Help: "HTTP requests by route and status code.",
	}, []string{"route", "code"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "meridian_http_request_duration_seconds",
		Help:    "HTTP request duration per route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})
	previews := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "meridian_calendar_previews_total",
		Help: "Generated calendar previews by pay frequency.",
	}, []string{"frequency"})
	saves := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "meridian_calendar_saves_total",
		Help: "Persisted calendar batches by outcome.",
	}, []string{"outcome"})
	inserted := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "meridian_pay_periods_inserted_total",
		Help: "Pay period rows inserted across all saves.",
	})
	registry.MustRegister(requests, duration, previews, saves, inserted)
	return &Metrics{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestsTotal:   requests,
		requestDuration: duration,
		previewsTotal:   previews,
		savesTotal:      saves,
		periodsInserted: inserted,
	}
}

// Handler returns the http.Handler for the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// Middleware records metrics for every HTTP request.
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

// ObservePreview counts a generated calendar preview.
func (m *Metrics) ObservePreview(frequency string) {
	if m == nil {
		return
	}
	m.previewsTotal.WithLabelValues(frequency).Inc()
}

// ObserveSave counts a save attempt and the rows it inserted.
func (m *Metrics) ObserveSave(outcome string, inserted int) {
	if m == nil {
		return
	}
	m.savesTotal.WithLabelValues(outcome).Inc()
	if inserted > 0 {
		m.periodsInserted.Add(float64(inserted))
	}
}

// Registerer exposes the registry for custom metric registration.
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
