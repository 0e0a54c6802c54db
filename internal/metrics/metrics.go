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
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "casewatch_http_requests_total",
			Help: "Total HTTP requests by method, path, and status",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "casewatch_http_request_duration_seconds",
			Help:    "HTTP request latency distribution",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"method", "path"},
	)

	signalsCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "casewatch_signals_created_total",
			Help: "Total dashboard signals stored by type",
		},
		[]string{"type"},
	)

	signalsDeleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "casewatch_signals_deleted_total",
			Help: "Total dashboard signals deleted by type",
		},
		[]string{"type"},
	)

	eventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "casewatch_events_published_total",
			Help: "Total screen events published by result",
		},
		[]string{"result"},
	)

	mailsSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "casewatch_mails_sent_total",
			Help: "Total notification mails dispatched by signal type",
		},
		[]string{"type"},
	)

	mailsSkipped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "casewatch_mails_skipped_total",
			Help: "Total notification mails skipped by reason",
		},
		[]string{"reason"},
	)

	mailsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "casewatch_mails_failed_total",
			Help: "Total notification mails that failed to dispatch by signal type",
		},
		[]string{"type"},
	)

	scanCandidates = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "casewatch_scan_candidates_total",
			Help: "Total candidates considered by due-date scans",
		},
		[]string{"scan"},
	)

	scanNotified = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "casewatch_scan_notified_total",
			Help: "Total candidates notified by due-date scans",
		},
		[]string{"scan"},
	)

	scanFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "casewatch_scan_failures_total",
			Help: "Total per-candidate failures during due-date scans",
		},
		[]string{"scan"},
	)

	scanDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "casewatch_scan_duration_seconds",
			Help:    "Due-date scan run duration",
			Buckets: []float64{.5, 1, 5, 15, 30, 60, 120, 300},
		},
		[]string{"scan"},
	)

	sqsMessagesInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "casewatch_sqs_messages_in_flight",
			Help: "Current business events being processed from SQS",
		},
	)

	rateLimitRejections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "casewatch_rate_limit_rejections_total",
			Help: "Requests rejected by rate limiter",
		},
		[]string{"key"},
	)

	dbConnectionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "casewatch_db_connections_active",
			Help: "Active database connections",
		},
	)

	redisConnectionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "casewatch_redis_connections_active",
			Help: "Active Redis connections",
		},
	)
)

// Handler returns the Prometheus metrics HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordRequest records HTTP request metrics
func RecordRequest(method, path string, status int, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	httpRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordSignalCreated records a stored dashboard signal
func RecordSignalCreated(signalType string) {
	signalsCreated.WithLabelValues(signalType).Inc()
}

// RecordSignalsDeleted records deleted dashboard signals
func RecordSignalsDeleted(signalType string, count int) {
	signalsDeleted.WithLabelValues(signalType).Add(float64(count))
}

// RecordEventPublished records a screen event publish attempt
func RecordEventPublished(result string) {
	eventsPublished.WithLabelValues(result).Inc()
}

// RecordMailSent records a dispatched notification mail
func RecordMailSent(signalType string) {
	mailsSent.WithLabelValues(signalType).Inc()
}

// RecordMailSkipped records a mail that was not sent, by reason
func RecordMailSkipped(reason string) {
	mailsSkipped.WithLabelValues(reason).Inc()
}

// RecordMailFailed records a mail dispatch failure
func RecordMailFailed(signalType string) {
	mailsFailed.WithLabelValues(signalType).Inc()
}

// RecordScanCandidate records a candidate considered by a due-date scan
func RecordScanCandidate(scan string) {
	scanCandidates.WithLabelValues(scan).Inc()
}

// RecordScanNotified records a candidate notified by a due-date scan
func RecordScanNotified(scan string) {
	scanNotified.WithLabelValues(scan).Inc()
}

// RecordScanFailure records a per-candidate failure during a due-date scan
func RecordScanFailure(scan string) {
	scanFailures.WithLabelValues(scan).Inc()
}

// RecordScanDuration records how long a scan run took
func RecordScanDuration(scan string, duration time.Duration) {
	scanDuration.WithLabelValues(scan).Observe(duration.Seconds())
}

// SetSQSMessagesInFlight sets the current in-flight message count
func SetSQSMessagesInFlight(count int) {
	sqsMessagesInFlight.Set(float64(count))
}

// RecordRateLimitRejection records a rate limit rejection
func RecordRateLimitRejection(key string) {
	rateLimitRejections.WithLabelValues(key).Inc()
}

// SetDBConnections sets active database connection count
func SetDBConnections(count int) {
	dbConnectionsActive.Set(float64(count))
}

// SetRedisConnections sets active Redis connection count
func SetRedisConnections(count int) {
	redisConnectionsActive.Set(float64(count))
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

// Middleware returns HTTP middleware that records request metrics
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &responseWriter{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(wrapped, r)

		RecordRequest(r.Method, r.URL.Path, wrapped.status, time.Since(start))
	})
}
