// Package metrics exposes the dispatch core's Prometheus instrumentation:
// enqueue/claim/outcome counters, outbound latency histograms, and queue
// depth gauges, all mounted behind /metrics by internal/api.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	TasksEnqueued = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "torque_tasks_enqueued_total",
			Help: "Total number of tasks accepted by the dispatcher",
		},
	)

	TaskClaims = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "torque_task_claims_total",
			Help: "Total number of successful claims across all workers",
		},
	)

	TaskOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "torque_task_outcomes_total",
			Help: "Total number of dispatch attempts by outcome classification (completed, retry, failed)",
		},
		[]string{"outcome"},
	)

	TaskAttempts = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "torque_task_attempts",
			Help:    "Number of attempts a task took to reach a terminal state",
			Buckets: []float64{1, 2, 3, 5, 8, 13, 21},
		},
	)

	OutboundDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "torque_outbound_request_duration_seconds",
			Help:    "Duration of outbound webhook POST requests",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"outcome"},
	)

	QueueDepth = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "torque_queue_depth",
			Help: "Current number of tasks by status",
		},
		[]string{"status"},
	)

	ActiveWorkers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "torque_active_workers",
			Help: "Number of worker goroutines currently dispatching a task",
		},
	)

	CommitFencingRejections = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "torque_commit_fencing_rejections_total",
			Help: "Total number of commits rejected because a later claim already owns the task",
		},
	)

	PollerTicks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "torque_poller_ticks_total",
			Help: "Total number of poller ticks, by kind",
		},
		[]string{"kind"},
	)

	PollerPublished = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "torque_poller_published_total",
			Help: "Total number of task identifiers republished onto the notify bus by the poller",
		},
	)

	GCSweptTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "torque_gc_swept_total",
			Help: "Total number of terminal tasks deleted by garbage collection",
		},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "torque_http_request_duration_seconds",
			Help:    "Ingress HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "torque_http_requests_total",
			Help: "Total number of ingress HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	WebSocketConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "torque_websocket_connections",
			Help: "Current number of connected live-feed subscribers",
		},
	)

	WebSocketMessages = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "torque_websocket_messages_total",
			Help: "Total number of live-feed events broadcast",
		},
		[]string{"type"},
	)

	RateLimitRejections = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "torque_rate_limit_rejections_total",
			Help: "Total number of ingress requests rejected by the per-client rate limiter",
		},
	)
)

// RecordOutcome records a terminal or interim dispatch classification.
func RecordOutcome(outcome string) {
	TaskOutcomes.WithLabelValues(outcome).Inc()
}

// RecordOutboundDuration records the wall time of one outbound POST.
func RecordOutboundDuration(outcome string, seconds float64) {
	OutboundDuration.WithLabelValues(outcome).Observe(seconds)
}

// SetQueueDepth sets the gauge for one status bucket.
func SetQueueDepth(status string, depth float64) {
	QueueDepth.WithLabelValues(status).Set(depth)
}

// SetActiveWorkers sets the in-flight dispatch gauge.
func SetActiveWorkers(count float64) {
	ActiveWorkers.Set(count)
}

// RecordHTTPRequest records one ingress request's duration and outcome.
func RecordHTTPRequest(method, path, status string, seconds float64) {
	HTTPRequestDuration.WithLabelValues(method, path, status).Observe(seconds)
	HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
}

// SetWebSocketConnections sets the live-feed subscriber gauge.
func SetWebSocketConnections(count float64) {
	WebSocketConnections.Set(count)
}

// RecordWebSocketMessage records one event broadcast to live-feed subscribers.
func RecordWebSocketMessage(eventType string) {
	WebSocketMessages.WithLabelValues(eventType).Inc()
}

// RecordRateLimitRejection records one ingress request turned away by the
// per-client rate limiter before it ever reached the dispatcher.
func RecordRateLimitRejection() {
	RateLimitRejections.Inc()
}
