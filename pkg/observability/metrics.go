// Package observability provides Prometheus metrics for monitoring the
// werkbank gateway.
package observability

import "github.com/prometheus/client_golang/prometheus"

// LoopBuckets defines histogram buckets suited for agent request
// latencies, which include multiple inference and execution rounds.
var LoopBuckets = []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120, 300}

var (
	// RequestsTotal counts agent runs by outcome.
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "werkbank_requests_total",
			Help: "Total agent runs",
		},
		[]string{"status"},
	)

	// RequestDuration records full agent run duration in seconds.
	RequestDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "werkbank_request_duration_seconds",
			Help:    "Agent run duration",
			Buckets: LoopBuckets,
		},
	)

	// LoopRounds records how many think/act rounds a run took.
	LoopRounds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "werkbank_loop_rounds",
			Help:    "Think/act rounds per run",
			Buckets: []float64{1, 2, 3, 5, 8, 10, 15, 20},
		},
	)

	// InferenceRequestsTotal counts calls to the inference backend.
	InferenceRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "werkbank_inference_requests_total",
			Help: "Inference backend calls",
		},
		[]string{"provider", "status"},
	)

	// InferenceLatency records inference backend latency in seconds.
	InferenceLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "werkbank_inference_latency_seconds",
			Help:    "Inference backend latency",
			Buckets: LoopBuckets,
		},
		[]string{"provider"},
	)

	// InferenceTokensTotal counts tokens by direction (input/output).
	InferenceTokensTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "werkbank_inference_tokens_total",
			Help: "Token count",
		},
		[]string{"provider", "direction"},
	)

	// ToolExecutionsTotal counts tool dispatches by name and outcome.
	ToolExecutionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "werkbank_tool_executions_total",
			Help: "Tool executions",
		},
		[]string{"tool_name", "status"},
	)

	// SandboxAcquisitionsTotal counts sandbox provisioning attempts.
	SandboxAcquisitionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "werkbank_sandbox_acquisitions_total",
			Help: "Sandbox acquisitions",
		},
		[]string{"status"},
	)

	// SandboxExecutionsTotal counts code submissions to the sandbox.
	SandboxExecutionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "werkbank_sandbox_executions_total",
			Help: "Sandbox code executions",
		},
		[]string{"status"},
	)

	// SandboxStagedBytes counts bytes uploaded into sandboxes.
	SandboxStagedBytes = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "werkbank_sandbox_staged_bytes_total",
			Help: "Bytes staged into sandboxes",
		},
	)

	// UploadsTotal counts files uploaded into sessions.
	UploadsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "werkbank_uploads_total",
			Help: "Uploaded files",
		},
		[]string{"type"},
	)
)

func init() {
	prometheus.MustRegister(
		RequestsTotal,
		RequestDuration,
		LoopRounds,
		InferenceRequestsTotal,
		InferenceLatency,
		InferenceTokensTotal,
		ToolExecutionsTotal,
		SandboxAcquisitionsTotal,
		SandboxExecutionsTotal,
		SandboxStagedBytes,
		UploadsTotal,
	)
}
