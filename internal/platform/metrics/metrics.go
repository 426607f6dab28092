// Package metrics exposes Prometheus counters for checkout outcomes and HTTP traffic.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Option applies a configuration option to the Manager.
type Option func(*Manager)

// WithNamespace sets the namespace for all metrics.
func WithNamespace(namespace string) Option {
	return func(m *Manager) {
		if namespace != "" {
			m.namespace = namespace
		}
	}
}

// WithRegistry registers metrics on a caller-owned registry.
func WithRegistry(registry *prometheus.Registry) Option {
	return func(m *Manager) {
		if registry != nil {
			m.registry = registry
		}
	}
}

// WithHistogramBuckets sets custom latency buckets in seconds.
func WithHistogramBuckets(buckets []float64) Option {
	return func(m *Manager) {
		if len(buckets) > 0 {
			m.buckets = buckets
		}
	}
}

// Manager owns the site's collectors. It satisfies services.CheckoutRecorder.
type Manager struct {
	namespace string
	buckets   []float64
	registry  *prometheus.Registry

	checkoutSessions *prometheus.CounterVec
	registrations    *prometheus.CounterVec
	stepTransitions  *prometheus.CounterVec
	confirmations    *prometheus.CounterVec
	httpRequests     *prometheus.CounterVec
	httpDuration     *prometheus.HistogramVec
}

// NewManager creates the collectors on a fresh registry unless one is supplied.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace: "lowping",
		buckets:   prometheus.DefBuckets,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.registry == nil {
		m.registry = prometheus.NewRegistry()
		m.registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}

	auto := promauto.With(m.registry)
	m.checkoutSessions = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "checkout",
		Name:      "sessions_total",
		Help:      "Checkout attempts by outcome (created, free, failed).",
	}, []string{"outcome"})
	m.registrations = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "registration",
		Name:      "submissions_total",
		Help:      "Registration form submissions by outcome (accepted, invalid).",
	}, []string{"outcome"})
	m.stepTransitions = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "registration",
		Name:      "step_transitions_total",
		Help:      "Funnel step changes by source and target step.",
	}, []string{"from", "to"})
	m.confirmations = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "checkout",
		Name:      "confirmations_total",
		Help:      "Confirmation messages by publish status.",
	}, []string{"status"})
	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "HTTP requests by method, route and status code.",
	}, []string{"method", "route", "status"})
	m.httpDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency by method and route.",
		Buckets:   m.buckets,
	}, []string{"method", "route"})
	return m
}

// CheckoutSession counts a checkout attempt outcome.
func (m *Manager) CheckoutSession(outcome string) {
	m.checkoutSessions.WithLabelValues(outcome).Inc()
}

// RegistrationSubmitted counts a data-entry submission.
func (m *Manager) RegistrationSubmitted(outcome string) {
	m.registrations.WithLabelValues(outcome).Inc()
}

// StepTransition counts a funnel step change.
func (m *Manager) StepTransition(from, to string) {
	m.stepTransitions.WithLabelValues(from, to).Inc()
}

// Confirmation counts a confirmation publish result.
func (m *Manager) Confirmation(status string) {
	m.confirmations.WithLabelValues(status).Inc()
}

// Registry returns the registry backing the manager.
func (m *Manager) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Manager) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Middleware records request counts and latency keyed by the chi route pattern
// so path parameters do not explode label cardinality.
func (m *Manager) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		m.httpRequests.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		m.httpDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}
