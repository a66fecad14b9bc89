package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "carrier_directory"

// Metrics holds the application collectors. A nil *Metrics is a valid no-op recorder.
type Metrics struct {
	registry *prometheus.Registry

	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	ImportValidations *prometheus.CounterVec
	ImportRows        prometheus.Counter
	ImportServices    *prometheus.CounterVec
	PortsBulk         *prometheus.CounterVec
}

// New creates a Metrics instance backed by its own registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	m := &Metrics{
		registry: registry,
		HTTPRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"method", "route", "status"}),
		HTTPRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		ImportValidations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "import_validations_total",
			Help:      "Service upload validations by result",
		}, []string{"result"}),
		ImportRows: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "import_rows_total",
			Help:      "Rows read from uploaded service files",
		}),
		ImportServices: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "import_services_total",
			Help:      "Services processed by the upload commit stage",
		}, []string{"result"}),
		PortsBulk: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ports_bulk_total",
			Help:      "Ports processed by the bulk endpoint",
		}, []string{"result"}),
	}

	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.ImportValidations,
		m.ImportRows,
		m.ImportServices,
		m.PortsBulk,
	)
	return m
}

// Handler exposes the registry for scraping.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Middleware records request counts and latency by chi route pattern.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		m.HTTPRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		m.HTTPRequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

// ObserveValidation records one upload validation.
func (m *Metrics) ObserveValidation(valid bool, rows int) {
	if m == nil {
		return
	}
	result := "valid"
	if !valid {
		result = "invalid"
	}
	m.ImportValidations.WithLabelValues(result).Inc()
	m.ImportRows.Add(float64(rows))
}

// ObserveCommit records the outcome of an upload commit.
func (m *Metrics) ObserveCommit(created, failed int) {
	if m == nil {
		return
	}
	m.ImportServices.WithLabelValues("created").Add(float64(created))
	m.ImportServices.WithLabelValues("failed").Add(float64(failed))
}

// ObservePortsBulk records the outcome of a ports bulk upload.
func (m *Metrics) ObservePortsBulk(created, duplicates, errored int) {
	if m == nil {
		return
	}
	m.PortsBulk.WithLabelValues("created").Add(float64(created))
	m.PortsBulk.WithLabelValues("duplicate").Add(float64(duplicates))
	m.PortsBulk.WithLabelValues("error").Add(float64(errored))
}
