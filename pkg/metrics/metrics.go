package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Graph metrics
	GraphNodes = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "deaddrop_graph_nodes",
			Help: "Current number of graph nodes by kind",
		},
		[]string{"kind"},
	)

	GraphEdges = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "deaddrop_graph_edges",
			Help: "Current number of graph edges by kind",
		},
		[]string{"kind"},
	)

	CasesTotal = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "deaddrop_cases_total",
			Help: "Current number of cases",
		},
	)

	MutationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "deaddrop_mutations_total",
			Help: "Total accepted graph mutations by action",
		},
		[]string{"action"},
	)

	MutationsRejected = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "deaddrop_mutations_rejected_total",
			Help: "Total mutations rejected by store validation",
		},
	)

	// Blackboard metrics
	TasksScheduled = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "deaddrop_tasks_scheduled_total",
			Help: "Total knowledge-source tasks enqueued by source",
		},
		[]string{"source"},
	)

	TasksCompleted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "deaddrop_tasks_completed_total",
			Help: "Total knowledge-source tasks finished by source and outcome",
		},
		[]string{"source", "outcome"},
	)

	TaskDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "deaddrop_task_duration_seconds",
			Help:    "Knowledge-source handler duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"source"},
	)

	QueueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "deaddrop_queue_depth",
			Help: "Tasks currently waiting in the controller priority queue",
		},
	)

	TriggersSuppressed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "deaddrop_triggers_suppressed_total",
			Help: "Trigger evaluations that did not enqueue a task, by reason",
		},
		[]string{"reason"},
	)

	// Fan-out metrics
	Subscribers = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "deaddrop_subscribers",
			Help: "Connected stream subscribers by stream",
		},
		[]string{"stream"},
	)

	SubscribersDropped = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "deaddrop_subscribers_dropped_total",
			Help: "Subscribers dropped by stream and reason",
		},
		[]string{"stream", "reason"},
	)

	// Event bus metrics
	BusEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "deaddrop_bus_events_total",
			Help: "Events emitted on the bus by topic",
		},
		[]string{"topic"},
	)

	// External service metrics
	ExternalCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "deaddrop_external_calls_total",
			Help: "External service calls by service and outcome",
		},
		[]string{"service", "outcome"},
	)

	// Alert metrics
	AlertsPublished = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "deaddrop_alerts_published_total",
			Help: "Total published public alerts",
		},
	)

	// API metrics
	APIRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "deaddrop_api_requests_total",
			Help: "Total API requests by method, route and status",
		},
		[]string{"method", "path", "status"},
	)

	APIRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "deaddrop_api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)
)

func init() {
	// Register all metrics
	prometheus.MustRegister(GraphNodes)
	prometheus.MustRegister(GraphEdges)
	prometheus.MustRegister(CasesTotal)
	prometheus.MustRegister(MutationsTotal)
	prometheus.MustRegister(MutationsRejected)
	prometheus.MustRegister(TasksScheduled)
	prometheus.MustRegister(TasksCompleted)
	prometheus.MustRegister(TaskDuration)
	prometheus.MustRegister(QueueDepth)
	prometheus.MustRegister(TriggersSuppressed)
	prometheus.MustRegister(Subscribers)
	prometheus.MustRegister(SubscribersDropped)
	prometheus.MustRegister(BusEvents)
	prometheus.MustRegister(ExternalCalls)
	prometheus.MustRegister(AlertsPublished)
	prometheus.MustRegister(APIRequestsTotal)
	prometheus.MustRegister(APIRequestDuration)
}

// Suppression reasons for TriggersSuppressed
const (
	SuppressCap       = "cap"
	SuppressCooldown  = "cooldown"
	SuppressActive    = "active"
	SuppressCondition = "condition"
)

// Task outcomes for TasksCompleted
const (
	OutcomeOK      = "ok"
	OutcomeError   = "error"
	OutcomeTimeout = "timeout"
	OutcomePanic   = "panic"
)

// Handler returns the Prometheus HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}
