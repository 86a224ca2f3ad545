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

	// Authorization metrics
	AuthzChecksTotal   *prometheus.CounterVec
	AuthzCheckDuration *prometheus.HistogramVec

	// Denial audit metrics
	DenialsRecordedTotal     *prometheus.CounterVec
	DenialLogsPersistedTotal prometheus.Counter
	DenialPersistErrorsTotal prometheus.Counter
	DenialCountersActive     prometheus.Gauge
	DenialLogsPurgedTotal    prometheus.Counter

	// Delegation metrics
	DelegationGrantsTotal  prometheus.Counter
	DelegationRevokesTotal prometheus.Counter

	// Database metrics
	DBConnectionsActive prometheus.Gauge
	DBConnectionsIdle   prometheus.Gauge
}

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "casehub_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "casehub_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		AuthzChecksTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "casehub_authz_checks_total",
				Help: "Total number of permission checks by outcome",
			},
			[]string{"resource", "action", "decision", "reason"},
		),
		AuthzCheckDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "casehub_authz_check_duration_seconds",
				Help:    "Permission check duration in seconds",
				Buckets: []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25},
			},
			[]string{"resource", "action"},
		),
		DenialsRecordedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "casehub_denials_recorded_total",
				Help: "Total number of denials recorded by the auditor",
			},
			[]string{"resource", "action", "reason"},
		),
		DenialLogsPersistedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "casehub_denial_logs_persisted_total",
				Help: "Total number of denial audit rows persisted",
			},
		),
		DenialPersistErrorsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "casehub_denial_persist_errors_total",
				Help: "Total number of swallowed denial persistence failures",
			},
		),
		DenialCountersActive: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "casehub_denial_counters_active",
				Help: "Number of in-memory denial counters currently held",
			},
		),
		DenialLogsPurgedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "casehub_denial_logs_purged_total",
				Help: "Total number of denial audit rows removed by retention",
			},
		),
		DelegationGrantsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "casehub_delegation_grants_total",
				Help: "Total number of delegation grants (including upserts)",
			},
		),
		DelegationRevokesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "casehub_delegation_revokes_total",
				Help: "Total number of delegation revocations",
			},
		),
		DBConnectionsActive: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "casehub_db_connections_active",
				Help: "Number of active database connections",
			},
		),
		DBConnectionsIdle: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "casehub_db_connections_idle",
				Help: "Number of idle database connections",
			},
		),
	}

	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.AuthzChecksTotal,
		m.AuthzCheckDuration,
		m.DenialsRecordedTotal,
		m.DenialLogsPersistedTotal,
		m.DenialPersistErrorsTotal,
		m.DenialCountersActive,
		m.DenialLogsPurgedTotal,
		m.DelegationGrantsTotal,
		m.DelegationRevokesTotal,
		m.DBConnectionsActive,
		m.DBConnectionsIdle,
	)

	return m
}

// ObserveCheck records a single permission check outcome.
func (m *Metrics) ObserveCheck(resource, action string, allowed bool, reason string, duration time.Duration) {
	decision := "allow"
	if !allowed {
		decision = "deny"
	}
	m.AuthzChecksTotal.WithLabelValues(resource, action, decision, reason).Inc()
	m.AuthzCheckDuration.WithLabelValues(resource, action).Observe(duration.Seconds())
}

// Handler returns an HTTP handler exposing the registry.
func Handler(registry *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}

// statusRecorder captures the response status for HTTP metrics.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// HTTPMiddleware instruments a handler with request count and duration.
func (m *Metrics) HTTPMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		m.HTTPRequestsTotal.WithLabelValues(r.Method, r.URL.Path, strconv.Itoa(rec.status)).Inc()
		m.HTTPRequestDuration.WithLabelValues(r.Method, r.URL.Path).Observe(time.Since(start).Seconds())
	})
}
