package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ============================================
	// Order metrics
	// ============================================
	OrdersCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gateway_orders_created_total",
			Help: "Total number of orders created",
		},
		[]string{"order_type", "chain", "token"},
	)

	OrderCreationRejected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gateway_order_creation_rejected_total",
			Help: "Total number of order creation requests rejected",
		},
		[]string{"order_type", "code"},
	)

	OrderTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gateway_order_transitions_total",
			Help: "Total number of order status transitions applied",
		},
		[]string{"status"},
	)

	OrdersExpired = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gateway_orders_expired_total",
		Help: "Total number of deposit orders expired by the watchdog",
	})

	// ============================================
	// Callback delivery metrics
	// ============================================
	CallbackAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gateway_callback_attempts_total",
			Help: "Total number of webhook delivery attempts",
		},
		[]string{"outcome"},
	)

	CallbackDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "gateway_callback_duration_seconds",
		Help:    "Webhook delivery duration in seconds",
		Buckets: prometheus.DefBuckets,
	})

	CallbacksExhausted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gateway_callbacks_exhausted_total",
		Help: "Total number of callbacks that exhausted their retry budget",
	})

	// ============================================
	// Authentication metrics
	// ============================================
	AuthFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gateway_auth_failures_total",
			Help: "Total number of rejected signed requests",
		},
		[]string{"code"},
	)

	// ============================================
	// Task queue metrics
	// ============================================
	TasksScheduled = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gateway_tasks_scheduled_total",
			Help: "Total number of background tasks scheduled",
		},
		[]string{"task_type"},
	)

	TaskExecutions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gateway_task_executions_total",
			Help: "Total number of task executions by outcome",
		},
		[]string{"task_type", "outcome"},
	)

	TaskDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gateway_task_duration_seconds",
			Help:    "Task handler duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"task_type"},
	)

	TaskQueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "gateway_task_queue_depth",
		Help: "Number of pending tasks in the queue",
	})

	// ============================================
	// NATS event metrics
	// ============================================
	NATSConnectionStatus = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "gateway_nats_connection_status",
		Help: "NATS connection status (1=connected, 0=disconnected)",
	})

	EventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gateway_events_published_total",
			Help: "Total number of lifecycle events published",
		},
		[]string{"subject"},
	)

	EventsPublishFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gateway_events_publish_failed_total",
			Help: "Total number of lifecycle events that failed to publish",
		},
		[]string{"subject"},
	)
)
