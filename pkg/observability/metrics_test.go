package observability

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMetrics_Registers(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := NewMetrics(registry)
	require.NotNil(t, m)

	m.RecordGuard("render")
	m.RecordAuth("login", "success")
	m.RecordBackend("validate", 200, 10*time.Millisecond)
	m.RecordBackend("validate", 0, time.Millisecond)

	assert.Equal(t, float64(1), testutil.ToFloat64(m.GuardDecisionsTotal.WithLabelValues("render")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.AuthEventsTotal.WithLabelValues("login", "success")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.BackendRequestsTotal.WithLabelValues("validate", "200")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.BackendRequestsTotal.WithLabelValues("validate", "error")))

	assert.Panics(t, func() { NewMetrics(registry) }, "double registration must fail")
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordGuard("x")
		m.RecordAuth("a", "b")
		m.RecordBackend("e", 500, time.Second)
		m.SetSessionsCached(3)
		m.RecordStoreError("get")
		m.RecordPurged(4)
		m.RecordRateLimited("login")
		m.RecordRoleMutation("create", "ok")
		m.RecordCache("settings", true)
	})
}

func TestMetrics_Counters(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.SetSessionsCached(5)
	m.RecordPurged(3)
	m.RecordPurged(0)
	m.RecordCache("settings", true)
	m.RecordCache("settings", false)
	m.RecordCache("settings", false)

	assert.Equal(t, float64(5), testutil.ToFloat64(m.SessionsCached))
	assert.Equal(t, float64(3), testutil.ToFloat64(m.SessionsPurgedTotal))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.CacheHitsTotal.WithLabelValues("settings")))
	assert.Equal(t, float64(2), testutil.ToFloat64(m.CacheMissesTotal.WithLabelValues("settings")))
}

func TestHTTPMetricsMiddleware(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())
	handler := HTTPMetricsMiddleware(m, func(*http.Request) string { return "spa" })(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTeapot)
		}),
	)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/customers/42", nil))

	assert.Equal(t, http.StatusTeapot, rec.Code)
	assert.Equal(t, float64(1), testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("GET", "spa", "418")))
}

func TestRegisterMetricsEndpoint(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := NewMetrics(registry)
	m.RecordGuard("no_access")

	mux := http.NewServeMux()
	RegisterMetricsEndpoint(mux, registry)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `venuedesk_guard_decisions_total{decision="no_access"} 1`)
}
