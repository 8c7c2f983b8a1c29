// Package metrics holds the Prometheus collectors of the engine.
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

// Metrics bundles the collectors and the registry they are registered in
type Metrics struct {
	registry *prometheus.Registry

	AttemptsOpened   *prometheus.CounterVec
	Finalizations    *prometheus.CounterVec
	TimerExpiries    prometheus.Counter
	ActiveCountdowns prometheus.Gauge
	RequestCounter   *prometheus.CounterVec
	RequestDuration  *prometheus.HistogramVec
}

// New creates the collectors on a fresh registry
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		AttemptsOpened: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "simulex_attempts_opened_total",
				Help: "Attempts opened, by whether a new result was created or an open one resumed",
			},
			[]string{"outcome"},
		),
		Finalizations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "simulex_attempt_finalizations_total",
				Help: "Finalize calls by trigger and result",
			},
			[]string{"trigger", "result"},
		),
		TimerExpiries: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "simulex_timer_expiries_total",
			Help: "Countdowns that reached zero",
		}),
		ActiveCountdowns: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "simulex_active_countdowns",
			Help: "Countdown streams currently attached",
		}),
		RequestCounter: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "endpoint", "status"},
		),
		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Duration of HTTP requests",
				Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5},
			},
			[]string{"method", "endpoint"},
		),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.AttemptsOpened,
		m.Finalizations,
		m.TimerExpiries,
		m.ActiveCountdowns,
		m.RequestCounter,
		m.RequestDuration,
	)

	return m
}

// Registry returns the registry holding all collectors
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Middleware records request count and latency by route pattern
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		endpoint := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			endpoint = rctx.RoutePattern()
		}

		m.RequestCounter.WithLabelValues(r.Method, endpoint, strconv.Itoa(ww.Status())).Inc()
		m.RequestDuration.WithLabelValues(r.Method, endpoint).Observe(time.Since(start).Seconds())
	})
}
