package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Agent metrics
	AgentExecutions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "marketintel_agent_executions_total",
			Help: "Total number of agent executions",
		},
		[]string{"agent", "status"}, // status: success|error|cancelled
	)

	AgentDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "marketintel_agent_duration_seconds",
			Help:    "Agent execution duration in seconds",
			Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60, 120, 300},
		},
		[]string{"agent"},
	)

	// Workflow metrics
	WorkflowRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "marketintel_workflow_runs_total",
			Help: "Total number of workflow runs",
		},
		[]string{"status"}, // status: completed|failed|cancelled
	)

	WorkflowDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "marketintel_workflow_duration_seconds",
			Help:    "End-to-end workflow duration in seconds",
			Buckets: []float64{5, 10, 30, 60, 120, 300, 600},
		},
	)

	// LLM metrics
	LLMCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "marketintel_llm_calls_total",
			Help: "Total number of LLM completion calls",
		},
		[]string{"model", "status"}, // status: success|error|rate_limited
	)

	LLMLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "marketintel_llm_latency_seconds",
			Help:    "LLM call latency in seconds",
			Buckets: []float64{0.5, 1, 2, 5, 10, 20, 30, 60},
		},
		[]string{"model"},
	)

	// External source metrics
	SourceCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "marketintel_source_calls_total",
			Help: "Total number of external data source calls",
		},
		[]string{"source", "status"}, // source: search|news, status: success|error|cache_hit
	)

	// Database metrics
	DBQueries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "marketintel_db_queries_total",
			Help: "Total number of database queries",
		},
		[]string{"operation", "status"},
	)
)

// Init registers all metrics with Prometheus
func Init() {
	prometheus.MustRegister(AgentExecutions)
	prometheus.MustRegister(AgentDuration)
	prometheus.MustRegister(WorkflowRuns)
	prometheus.MustRegister(WorkflowDuration)
	prometheus.MustRegister(LLMCalls)
	prometheus.MustRegister(LLMLatency)
	prometheus.MustRegister(SourceCalls)
	prometheus.MustRegister(DBQueries)
}

// Handler returns an HTTP handler for the metrics endpoint
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveAgent records one agent execution with its duration
func ObserveAgent(agent string, status string, started time.Time) {
	AgentExecutions.WithLabelValues(agent, status).Inc()
	AgentDuration.WithLabelValues(agent).Observe(time.Since(started).Seconds())
}
