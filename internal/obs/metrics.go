package obs

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// HTTP surface metrics.
var (
	httpInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "http_in_flight_requests",
		Help: "In-flight HTTP requests.",
	})

	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)

// Authorization core metrics.
var (
	sessionsIssued = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "auth_sessions_issued_total",
		Help: "Sessions created.",
	})
	sessionsRevoked = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "auth_sessions_revoked_total",
		Help: "Sessions deactivated by revocation.",
	})
	sessionsPruned = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "auth_sessions_pruned_total",
		Help: "Expired sessions deactivated by maintenance.",
	})
	authorizeDecisions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_authorize_decisions_total",
			Help: "Authorization decisions by outcome.",
		},
		[]string{"outcome"},
	)
	auditEntries = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "audit_entries_written_total",
		Help: "Audit entries appended.",
	})
)

// Init registers all metrics with the default registry. Call once at startup.
func Init() {
	prometheus.MustRegister(
		httpInFlight, httpRequestsTotal, httpRequestDuration,
		sessionsIssued, sessionsRevoked, sessionsPruned,
		authorizeDecisions, auditEntries,
	)
}

// Handler serves the Prometheus scrape endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// SessionIssued counts one created session.
func SessionIssued() { sessionsIssued.Inc() }

// SessionsRevoked counts sessions deactivated by revoke operations.
func SessionsRevoked(n int) {
	if n > 0 {
		sessionsRevoked.Add(float64(n))
	}
}

// SessionsPruned counts sessions deactivated by expiry maintenance.
func SessionsPruned(n int) {
	if n > 0 {
		sessionsPruned.Add(float64(n))
	}
}

// AuthorizeDecision counts one access decision by outcome label.
func AuthorizeDecision(outcome string) {
	authorizeDecisions.WithLabelValues(outcome).Inc()
}

// AuditEntryWritten counts one appended audit entry.
func AuditEntryWritten() { auditEntries.Inc() }

// Instrument wraps a handler with request counting and latency observation.
func Instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := CanonicalPath(r.URL.Path)
		method := r.Method

		httpInFlight.Inc()
		start := time.Now()

		sw := &statusWriter{ResponseWriter: w, code: 200}
		next.ServeHTTP(sw, r)

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(sw.code)

		httpRequestDuration.WithLabelValues(method, path, status).Observe(duration)
		httpRequestsTotal.WithLabelValues(method, path, status).Inc()
		httpInFlight.Dec()
	})
}

// CanonicalPath collapses resource identifiers so metric labels stay bounded.
func CanonicalPath(path string) string {
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	if path == "" {
		return "/"
	}
	parts := strings.Split(path, "/")
	// /v1/organizations/:id and /v1/organizations/:id/users
	if len(parts) >= 4 && parts[1] == "v1" && parts[2] == "organizations" && parts[3] != "" {
		switch len(parts) {
		case 4:
			return "/v1/organizations/:id"
		case 5:
			if parts[4] == "users" {
				return "/v1/organizations/:id/users"
			}
		}
	}
	// /v1/users/:id
	if len(parts) == 4 && parts[1] == "v1" && parts[2] == "users" && parts[3] != "" {
		return "/v1/users/:id"
	}
	return path
}

type statusWriter struct {
	http.ResponseWriter
	code int
}

func (w *statusWriter) WriteHeader(code int) {
	w.code = code
	w.ResponseWriter.WriteHeader(code)
}
