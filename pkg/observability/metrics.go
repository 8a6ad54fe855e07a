// Package observability provides Prometheus metrics and HTTP middleware
// for monitoring the webgrant adapter layer.
package observability

import "github.com/prometheus/client_golang/prometheus"

// FlowBuckets defines histogram buckets suited for OAuth2 flow
// latencies, ranging from 1ms to 10s.
var FlowBuckets = []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 10}

var (
	// RequestsTotal counts all HTTP requests by method and status class.
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "webgrant_requests_total",
			Help: "Total requests",
		},
		[]string{"method", "status"},
	)

	// RequestDuration records HTTP request duration in seconds by method.
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "webgrant_request_duration_seconds",
			Help:    "Request duration",
			Buckets: FlowBuckets,
		},
		[]string{"method"},
	)

	// OperationsTotal counts protocol operations run against the engine,
	// by operation name and outcome.
	OperationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "webgrant_operations_total",
			Help: "Protocol operations",
		},
		[]string{"operation", "status"},
	)

	// OperationDuration records operation execution time in seconds.
	OperationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "webgrant_operation_duration_seconds",
			Help:    "Operation duration",
			Buckets: FlowBuckets,
		},
		[]string{"operation"},
	)

	// ErrorsTotal counts unified errors by kind.
	ErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "webgrant_errors_total",
			Help: "Unified errors",
		},
		[]string{"kind"},
	)

	// MailboxDepth tracks the number of operations queued in a dispatch
	// worker's mailbox.
	MailboxDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "webgrant_mailbox_depth",
			Help: "Queued operations",
		},
	)

	// MailboxRejectedTotal counts submissions a dispatch worker refused,
	// by reason (full, closed).
	MailboxRejectedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "webgrant_mailbox_rejected_total",
			Help: "Rejected submissions",
		},
		[]string{"reason"},
	)
)

func init() {
	prometheus.MustRegister(
		RequestsTotal,
		RequestDuration,
		OperationsTotal,
		OperationDuration,
		ErrorsTotal,
		MailboxDepth,
		MailboxRejectedTotal,
	)
}
