package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckoutCounters(t *testing.T) {
	m := NewManager(WithRegistry(prometheus.NewRegistry()))
	m.CheckoutSession("created")
	m.CheckoutSession("created")
	m.CheckoutSession("free")
	m.Confirmation("published")
	m.RegistrationSubmitted("invalid")
	m.StepTransition("data_entry", "checkout_review")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.checkoutSessions.WithLabelValues("created")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.checkoutSessions.WithLabelValues("free")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.confirmations.WithLabelValues("published")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.registrations.WithLabelValues("invalid")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.stepTransitions.WithLabelValues("data_entry", "checkout_review")))
}

func TestMiddlewareUsesRoutePattern(t *testing.T) {
	m := NewManager(WithRegistry(prometheus.NewRegistry()), WithNamespace("test"))
	r := chi.NewRouter()
	r.Use(m.Middleware)
	r.Get("/events/{id}/calendar.ics", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/events/a/calendar.ics", nil))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/events/b/calendar.ics", nil))

	got := testutil.ToFloat64(m.httpRequests.WithLabelValues(http.MethodGet, "/events/{id}/calendar.ics", "404"))
	assert.Equal(t, 2.0, got)
}

func TestHandlerExposesMetrics(t *testing.T) {
	m := NewManager()
	m.CheckoutSession("failed")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, `lowping_checkout_sessions_total{outcome="failed"} 1`), body)
	assert.True(t, strings.Contains(body, "go_goroutines"))
}
