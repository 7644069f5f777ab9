package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTP metrics
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path"},
	)

	httpRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
	)

	// Business metrics
	reportsCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reports_created_total",
			Help: "Total number of civic reports created",
		},
		[]string{"category", "priority"},
	)

	reportStatusChanged = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "report_status_changed_total",
			Help: "Total number of report status changes",
		},
		[]string{"to_status"},
	)

	assignmentsUpdated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "report_assignments_total",
			Help: "Total number of report assignment changes",
		},
		[]string{"department"},
	)

	notificationsCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "notifications_created_total",
			Help: "Total number of in-app notifications created",
		},
	)

	alertEmails = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "alert_emails_total",
			Help: "Total number of alert email dispatch attempts",
		},
		[]string{"outcome"},
	)

	syncEventsApplied = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sync_events_applied_total",
			Help: "Total number of remote change events applied locally",
		},
		[]string{"table", "op"},
	)

	replicationFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "replication_failures_total",
			Help: "Total number of swallowed remote replication failures",
		},
		[]string{"operation"},
	)
)

// Handler returns the Prometheus metrics HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware creates HTTP metrics middleware
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		httpRequestsInFlight.Inc()
		defer httpRequestsInFlight.Dec()

		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapped, r)

		duration := time.Since(start).Seconds()
		path := normalizePath(r.URL.Path)

		httpRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(wrapped.statusCode)).Inc()
		httpRequestDuration.WithLabelValues(r.Method, path).Observe(duration)
	})
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// normalizePath normalizes URL paths for metrics to avoid cardinality explosion
func normalizePath(path string) string {
	if len(path) > 100 {
		return "/api/..."
	}
	return path
}

// --- Business metric helpers ---

// RecordReportCreated records a report creation
func RecordReportCreated(category, priority string) {
	reportsCreated.WithLabelValues(category, priority).Inc()
}

// RecordStatusChange records a report status change
func RecordStatusChange(toStatus string) {
	reportStatusChanged.WithLabelValues(toStatus).Inc()
}

// RecordAssignment records an assignment change
func RecordAssignment(department string) {
	assignmentsUpdated.WithLabelValues(department).Inc()
}

// RecordNotificationCreated records an in-app notification creation
func RecordNotificationCreated() {
	notificationsCreated.Inc()
}

// RecordAlertEmail records an alert email dispatch outcome
func RecordAlertEmail(outcome string) {
	alertEmails.WithLabelValues(outcome).Inc()
}

// RecordSyncEvent records a remote change event applied to the local store
func RecordSyncEvent(table, op string) {
	syncEventsApplied.WithLabelValues(table, op).Inc()
}

// RecordReplicationFailure records a swallowed remote write failure
func RecordReplicationFailure(operation string) {
	replicationFailures.WithLabelValues(operation).Inc()
}
