package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Upstream API metrics
	BackendRequestsTotal   *prometheus.CounterVec
	BackendRequestDuration *prometheus.HistogramVec

	// Session metrics
	AuthEventsTotal     *prometheus.CounterVec
	GuardDecisionsTotal *prometheus.CounterVec
	SessionsCached      prometheus.Gauge
	SessionStoreErrors  *prometheus.CounterVec
	SessionsPurgedTotal prometheus.Counter

	// Misc
	RateLimitedTotal *prometheus.CounterVec
	RoleMutations    *prometheus.CounterVec
	CacheHitsTotal   *prometheus.CounterVec
	CacheMissesTotal *prometheus.CounterVec
}

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "venuedesk_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "venuedesk_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),

		BackendRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "venuedesk_backend_requests_total",
				Help: "Total number of calls to the venue API",
			},
			[]string{"endpoint", "status"},
		),
		BackendRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "venuedesk_backend_request_duration_seconds",
				Help:    "Venue API call duration in seconds",
				Buckets: []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"endpoint"},
		),

		AuthEventsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "venuedesk_auth_events_total",
				Help: "Session lifecycle events by outcome",
			},
			[]string{"event", "outcome"},
		),
		GuardDecisionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "venuedesk_guard_decisions_total",
				Help: "Route guard decisions",
			},
			[]string{"decision"},
		),
		SessionsCached: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "venuedesk_sessions_cached",
				Help: "Number of client sessions held in memory",
			},
		),
		SessionStoreErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "venuedesk_session_store_errors_total",
				Help: "Session store operation failures",
			},
			[]string{"operation"},
		),
		SessionsPurgedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "venuedesk_session_entries_purged_total",
				Help: "Expired session entries removed by the janitor",
			},
		),

		RateLimitedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "venuedesk_rate_limited_total",
				Help: "Requests rejected by rate limiting",
			},
			[]string{"scope"},
		),
		RoleMutations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "venuedesk_role_mutations_total",
				Help: "Role administration actions by outcome",
			},
			[]string{"action", "outcome"},
		),
		CacheHitsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "venuedesk_cache_hits_total",
				Help: "Cache hits",
			},
			[]string{"cache"},
		),
		CacheMissesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "venuedesk_cache_misses_total",
				Help: "Cache misses",
			},
			[]string{"cache"},
		),
	}

	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.BackendRequestsTotal,
		m.BackendRequestDuration,
		m.AuthEventsTotal,
		m.GuardDecisionsTotal,
		m.SessionsCached,
		m.SessionStoreErrors,
		m.SessionsPurgedTotal,
		m.RateLimitedTotal,
		m.RoleMutations,
		m.CacheHitsTotal,
		m.CacheMissesTotal,
	)

	return m
}

// The record helpers below accept a nil receiver so callers can run
// without metrics wired.

// RecordBackend records one upstream call
func (m *Metrics) RecordBackend(endpoint string, status int, d time.Duration) {
	if m == nil {
		return
	}
	label := "error"
	if status > 0 {
		label = strconv.Itoa(status)
	}
	m.BackendRequestsTotal.WithLabelValues(endpoint, label).Inc()
	m.BackendRequestDuration.WithLabelValues(endpoint).Observe(d.Seconds())
}

// RecordAuth records a session lifecycle event
func (m *Metrics) RecordAuth(event, outcome string) {
	if m == nil {
		return
	}
	m.AuthEventsTotal.WithLabelValues(event, outcome).Inc()
}

// RecordGuard records a route guard decision
func (m *Metrics) RecordGuard(decision string) {
	if m == nil {
		return
	}
	m.GuardDecisionsTotal.WithLabelValues(decision).Inc()
}

// SetSessionsCached sets the number of in-memory client sessions
func (m *Metrics) SetSessionsCached(n int) {
	if m == nil {
		return
	}
	m.SessionsCached.Set(float64(n))
}

// RecordStoreError records a failed session store operation
func (m *Metrics) RecordStoreError(operation string) {
	if m == nil {
		return
	}
	m.SessionStoreErrors.WithLabelValues(operation).Inc()
}

// RecordPurged adds n purged session entries
func (m *Metrics) RecordPurged(n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.SessionsPurgedTotal.Add(float64(n))
}

// RecordRateLimited records a rejected request
func (m *Metrics) RecordRateLimited(scope string) {
	if m == nil {
		return
	}
	m.RateLimitedTotal.WithLabelValues(scope).Inc()
}

// RecordRoleMutation records a role administration action
func (m *Metrics) RecordRoleMutation(action, outcome string) {
	if m == nil {
		return
	}
	m.RoleMutations.WithLabelValues(action, outcome).Inc()
}

// RecordCache records a cache lookup
func (m *Metrics) RecordCache(cache string, hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.CacheHitsTotal.WithLabelValues(cache).Inc()
		return
	}
	m.CacheMissesTotal.WithLabelValues(cache).Inc()
}

// responseWriter wraps http.ResponseWriter to capture the status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Flush keeps streaming responses working through the wrapper
func (rw *responseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// HTTPMetricsMiddleware instruments HTTP requests. route names the label
// for a request so unbounded paths do not explode cardinality.
func HTTPMetricsMiddleware(metrics *Metrics, route func(*http.Request) string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if metrics == nil {
				next.ServeHTTP(w, r)
				return
			}
			start := time.Now()
			rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(rw, r)

			label := r.URL.Path
			if route != nil {
				label = route(r)
			}
			metrics.HTTPRequestsTotal.WithLabelValues(r.Method, label, strconv.Itoa(rw.statusCode)).Inc()
			metrics.HTTPRequestDuration.WithLabelValues(r.Method, label).Observe(time.Since(start).Seconds())
		})
	}
}

// RegisterMetricsEndpoint registers the /metrics endpoint
func RegisterMetricsEndpoint(mux *http.ServeMux, registry *prometheus.Registry) {
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
}
