// Package metrics provides Prometheus metrics for the flow engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	namespace = "ff_flow"
)

// Notification metrics
var (
	// NotificationsSent counts successful deliveries by channel.
	NotificationsSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_sent_total",
			Help:      "Total number of notifications delivered",
		},
		[]string{"channel"},
	)

	// NotificationsFailed counts failed deliveries by channel.
	NotificationsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_failed_total",
			Help:      "Total number of notifications that failed to deliver",
		},
		[]string{"channel"},
	)

	// NotificationDuration tracks delivery latency by channel.
	NotificationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "notification_duration_seconds",
			Help:      "Notification delivery latency in seconds",
			Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"channel"},
	)
)

// Engine metrics
var (
	// WorkflowExecutions counts recorded workflow executions.
	WorkflowExecutions = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "workflow_executions_total",
			Help:      "Total number of recorded workflow executions",
		},
	)

	// WorkflowFailures counts executions that ended in the failure outcome.
	WorkflowFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "workflow_failures_total",
			Help:      "Total number of workflow runs that ended in failure",
		},
	)

	// BlocksProcessed counts blocks handed to the engine.
	BlocksProcessed = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "watcher",
			Name:      "blocks_processed_total",
			Help:      "Total number of blocks processed",
		},
	)

	// BlockFetchErrors counts blocks skipped because the fetch failed.
	BlockFetchErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "watcher",
			Name:      "block_fetch_errors_total",
			Help:      "Total number of blocks skipped after a fetch error",
		},
	)

	// Resubscriptions counts head subscription reconnects.
	Resubscriptions = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "watcher",
			Name:      "resubscriptions_total",
			Help:      "Total number of head subscription reconnects",
		},
	)

	// LatestBlock is the last block number handled.
	LatestBlock = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "watcher",
			Name:      "latest_block",
			Help:      "Number of the last processed block",
		},
	)
)

// Portfolio metrics
var (
	// AlertsTriggered counts portfolio alerts that fired.
	AlertsTriggered = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "portfolio",
			Name:      "alerts_triggered_total",
			Help:      "Total number of portfolio alerts that fired",
		},
	)

	// PortfolioValue is the last computed portfolio total in USD.
	PortfolioValue = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "portfolio",
			Name:      "value_usd",
			Help:      "Last computed portfolio value in USD",
		},
	)

	// PriceFetchErrors counts per-symbol quote failures.
	PriceFetchErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "portfolio",
			Name:      "price_fetch_errors_total",
			Help:      "Total number of failed price lookups",
		},
		[]string{"symbol"},
	)
)

// HTTP and live update metrics
var (
	// HTTPRequestsTotal counts HTTP requests by method, path, and status.
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// HTTPRequestDuration tracks HTTP request latency.
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency in seconds",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
		[]string{"method", "path"},
	)

	// LiveClients tracks connected WebSocket clients.
	LiveClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "live",
			Name:      "clients",
			Help:      "Number of connected live update clients",
		},
	)

	// EventsPublished counts live events by type and sink.
	EventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "live",
			Name:      "events_published_total",
			Help:      "Total number of live events published",
		},
		[]string{"type", "sink"},
	)
)
