package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"
)

// Metrics holds all Prometheus metrics for the console.
type Metrics struct {
	// Registry is the Prometheus registry that owns these metrics.
	// Exposed so the /metrics endpoint can use it.
	Registry *prometheus.Registry

	requestDuration    *prometheus.HistogramVec
	backendErrors      *prometheus.CounterVec
	cacheHits          *prometheus.CounterVec
	cacheMisses        *prometheus.CounterVec
	sessionTransitions *prometheus.CounterVec
	loginAttempts      *prometheus.CounterVec
	authFailures       *prometheus.CounterVec
	proxyRequests      *prometheus.CounterVec
}

// SessionSnapshot summarizes session activity for the ops endpoint.
type SessionSnapshot struct {
	Logins           int64   `json:"logins"`
	LoginFailures    int64   `json:"loginFailures"`
	Logouts          int64   `json:"logouts"`
	AuthFailures     int64   `json:"authFailures"`
	SilentRefreshes  int64   `json:"silentRefreshes"`
	CacheHitRate     float64 `json:"cacheHitRate"`
	ProxiedRequests  int64   `json:"proxiedRequests"`
	ProxiedRejected  int64   `json:"proxiedRejected"`
}

// NewMetrics creates a dedicated Prometheus registry and registers all
// console metrics in it. Using a private registry avoids "duplicate
// collector" panics when NewMetrics is called more than once (e.g. in tests).
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,

		requestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "console_request_duration_seconds",
				Help:    "Duration of backend operations by name.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		backendErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "console_backend_errors_total",
				Help: "Total errors from freight backend calls.",
			},
			[]string{"operation"},
		),
		cacheHits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "console_cache_hits_total",
				Help: "Total reference-data cache hits.",
			},
			[]string{"cache"},
		),
		cacheMisses: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "console_cache_misses_total",
				Help: "Total reference-data cache misses.",
			},
			[]string{"cache"},
		),
		sessionTransitions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "console_session_transitions_total",
				Help: "Session state transitions by target state.",
			},
			[]string{"to", "cause"},
		),
		loginAttempts: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "console_login_attempts_total",
				Help: "Login attempts by outcome.",
			},
			[]string{"outcome"},
		),
		authFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "console_auth_failures_total",
				Help: "Authorization failures signalled by the backend.",
			},
			[]string{"source"},
		),
		proxyRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "console_proxy_requests_total",
				Help: "Feature requests proxied to the backend, by class.",
			},
			[]string{"status"},
		),
	}
}

// RecordRequestDuration records the duration of a backend operation.
func (m *Metrics) RecordRequestDuration(operation string, d time.Duration) {
	m.requestDuration.WithLabelValues(operation).Observe(d.Seconds())
}

// IncrBackendError increments the backend error counter.
func (m *Metrics) IncrBackendError(operation string) {
	m.backendErrors.WithLabelValues(operation).Inc()
}

// IncrCacheHit increments the cache hit counter.
func (m *Metrics) IncrCacheHit(cache string) {
	m.cacheHits.WithLabelValues(cache).Inc()
}

// IncrCacheMiss increments the cache miss counter.
func (m *Metrics) IncrCacheMiss(cache string) {
	m.cacheMisses.WithLabelValues(cache).Inc()
}

// IncrSessionTransition records a session state transition.
func (m *Metrics) IncrSessionTransition(to, cause string) {
	m.sessionTransitions.WithLabelValues(to, cause).Inc()
}

// IncrLoginAttempt records a login attempt outcome ("ok", "rejected",
// "throttled").
func (m *Metrics) IncrLoginAttempt(outcome string) {
	m.loginAttempts.WithLabelValues(outcome).Inc()
}

// IncrAuthFailure records a 401 signalled by the backend, by source
// ("client" or "proxy").
func (m *Metrics) IncrAuthFailure(source string) {
	m.authFailures.WithLabelValues(source).Inc()
}

// IncrProxyRequest records a proxied feature request by status class.
func (m *Metrics) IncrProxyRequest(status string) {
	m.proxyRequests.WithLabelValues(status).Inc()
}

// GetSessionSnapshot returns a snapshot of session metrics for the
// GET /v1/session endpoint.
func (m *Metrics) GetSessionSnapshot() *SessionSnapshot {
	hits := getCounterValue(m.cacheHits, "currencies")
	misses := getCounterValue(m.cacheMisses, "currencies")
	hitRate := float64(0)
	if hits+misses > 0 {
		hitRate = hits / (hits + misses)
	}

	return &SessionSnapshot{
		Logins:          int64(getCounterValue(m.loginAttempts, "ok")),
		LoginFailures:   int64(getCounterValue(m.loginAttempts, "rejected")),
		Logouts:         int64(getCounterValue2(m.sessionTransitions, "anonymous", "logout")),
		AuthFailures:    int64(getCounterValue(m.authFailures, "client") + getCounterValue(m.authFailures, "proxy")),
		SilentRefreshes: int64(getCounterValue2(m.sessionTransitions, "active", "refresh")),
		CacheHitRate:    hitRate,
		ProxiedRequests: int64(getCounterValue(m.proxyRequests, "2xx") + getCounterValue(m.proxyRequests, "4xx") + getCounterValue(m.proxyRequests, "5xx")),
		ProxiedRejected: int64(getCounterValue(m.proxyRequests, "401")),
	}
}

// getCounterValue extracts the current float64 value from a CounterVec for a given label.
func getCounterValue(cv *prometheus.CounterVec, label string) float64 {
	counter := cv.WithLabelValues(label)
	m := &dto.Metric{}
	if err := counter.(prometheus.Metric).Write(m); err != nil {
		return 0
	}
	if m.Counter != nil && m.Counter.Value != nil {
		return *m.Counter.Value
	}
	return 0
}

func getCounterValue2(cv *prometheus.CounterVec, l1, l2 string) float64 {
	counter := cv.WithLabelValues(l1, l2)
	m := &dto.Metric{}
	if err := counter.(prometheus.Metric).Write(m); err != nil {
		return 0
	}
	if m.Counter != nil && m.Counter.Value != nil {
		return *m.Counter.Value
	}
	return 0
}
