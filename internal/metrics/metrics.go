package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Ingestion metrics
	MessagesReceived = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wfm_messages_received_total",
			Help: "Total number of device messages received by source",
		},
		[]string{"source"},
	)

	MessagesProcessed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wfm_messages_processed_total",
			Help: "Total number of device messages processed by outcome",
		},
		[]string{"outcome"},
	)

	MessagesDropped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "wfm_messages_dropped_total",
			Help: "Total number of device messages dropped because the buffer was full",
		},
	)

	ProcessingDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "wfm_message_processing_seconds",
			Help:    "Time taken to process one device message",
			Buckets: prometheus.DefBuckets,
		},
	)

	// Job metrics
	JobsCreated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wfm_jobs_created_total",
			Help: "Total number of device jobs created by type",
		},
		[]string{"type"},
	)

	JobsCompleted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wfm_jobs_completed_total",
			Help: "Total number of device jobs completed by type and status",
		},
		[]string{"type", "status"},
	)

	JobsPublished = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "wfm_jobs_published_total",
			Help: "Total number of jobs published to devices",
		},
	)

	JobDeliveryFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wfm_job_delivery_failures_total",
			Help: "Job delivery attempts that left jobs pending, by reason",
		},
		[]string{"reason"},
	)

	// Route metrics
	RouteTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wfm_route_transitions_total",
			Help: "Total number of route status changes by target status",
		},
		[]string{"status"},
	)

	RouteDeliveries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wfm_route_deliveries_total",
			Help: "Route commands by delivery channel",
		},
		[]string{"channel"},
	)

	ConnectedClients = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "wfm_realtime_clients",
			Help: "Live websocket connections by audience",
		},
		[]string{"audience"},
	)

	// Notification metrics
	NotificationsCreated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wfm_notifications_created_total",
			Help: "Total number of notifications created by priority",
		},
		[]string{"priority"},
	)

	NotificationsDelivered = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wfm_notifications_delivered_total",
			Help: "Notification deliveries by channel and outcome",
		},
		[]string{"channel", "outcome"},
	)

	// Scheduler metrics
	TaskRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wfm_scheduled_task_runs_total",
			Help: "Periodic task runs by task and outcome",
		},
		[]string{"task", "outcome"},
	)

	// API metrics
	APIRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wfm_api_requests_total",
			Help: "Total number of API requests by method and status",
		},
		[]string{"method", "status"},
	)

	APIRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "wfm_api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method"},
	)
)

func init() {
	prometheus.MustRegister(MessagesReceived)
	prometheus.MustRegister(MessagesProcessed)
	prometheus.MustRegister(MessagesDropped)
	prometheus.MustRegister(ProcessingDuration)
	prometheus.MustRegister(JobsCreated)
	prometheus.MustRegister(JobsCompleted)
	prometheus.MustRegister(JobsPublished)
	prometheus.MustRegister(JobDeliveryFailures)
	prometheus.MustRegister(RouteTransitions)
	prometheus.MustRegister(RouteDeliveries)
	prometheus.MustRegister(ConnectedClients)
	prometheus.MustRegister(NotificationsCreated)
	prometheus.MustRegister(NotificationsDelivered)
	prometheus.MustRegister(TaskRuns)
	prometheus.MustRegister(APIRequestsTotal)
	prometheus.MustRegister(APIRequestDuration)
}

// Handler returns the Prometheus HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}

// Timer measures an operation for a histogram.
type Timer struct {
	start time.Time
}

func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}

func (t *Timer) ObserveDuration(h prometheus.Observer) {
	h.Observe(t.Duration().Seconds())
}
