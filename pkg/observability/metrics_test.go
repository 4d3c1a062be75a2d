package observability

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

// TestMetricsRegistered verifies that all metrics are registered in the
// default registry. Counters and histograms only appear in Gather output
// after their first observation, so every metric is seeded first.
func TestMetricsRegistered(t *testing.T) {
	RequestsTotal.WithLabelValues("success").Inc()
	RequestDuration.Observe(0.1)
	LoopRounds.Observe(1)
	InferenceRequestsTotal.WithLabelValues("openaichat", "success").Inc()
	InferenceLatency.WithLabelValues("openaichat").Observe(0.1)
	InferenceTokensTotal.WithLabelValues("openaichat", "input").Add(10)
	ToolExecutionsTotal.WithLabelValues("execute_code", "success").Inc()
	SandboxAcquisitionsTotal.WithLabelValues("success").Inc()
	SandboxExecutionsTotal.WithLabelValues("success").Inc()
	SandboxStagedBytes.Add(1)
	UploadsTotal.WithLabelValues("tabular").Inc()

	families, err := prometheus.DefaultGatherer.Gather()
	if err != nil {
		t.Fatalf("unexpected gather error: %v", err)
	}

	expected := map[string]bool{
		"werkbank_requests_total":             false,
		"werkbank_request_duration_seconds":   false,
		"werkbank_loop_rounds":                false,
		"werkbank_inference_requests_total":   false,
		"werkbank_inference_latency_seconds":  false,
		"werkbank_inference_tokens_total":     false,
		"werkbank_tool_executions_total":      false,
		"werkbank_sandbox_acquisitions_total": false,
		"werkbank_sandbox_executions_total":   false,
		"werkbank_sandbox_staged_bytes_total": false,
		"werkbank_uploads_total":              false,
	}

	for _, mf := range families {
		if _, ok := expected[mf.GetName()]; ok {
			expected[mf.GetName()] = true
		}
	}

	for name, found := range expected {
		if !found {
			t.Errorf("metric %q not found in default registry", name)
		}
	}
}

// TestCounterIncrements verifies counter label plumbing end to end.
func TestCounterIncrements(t *testing.T) {
	before := counterValue(t, RequestsTotal, "error")
	RequestsTotal.WithLabelValues("error").Inc()
	after := counterValue(t, RequestsTotal, "error")
	if after-before != 1 {
		t.Errorf("expected counter to increase by 1, got delta=%f", after-before)
	}
}

// TestTokenCounterAccumulates verifies that token counts add rather than
// overwrite.
func TestTokenCounterAccumulates(t *testing.T) {
	before := counterValue(t, InferenceTokensTotal, "openaichat", "output")
	InferenceTokensTotal.WithLabelValues("openaichat", "output").Add(7)
	InferenceTokensTotal.WithLabelValues("openaichat", "output").Add(3)
	after := counterValue(t, InferenceTokensTotal, "openaichat", "output")
	if after-before != 10 {
		t.Errorf("expected token counter to increase by 10, got delta=%f", after-before)
	}
}

// TestHistogramObservations verifies that round observations are counted.
func TestHistogramObservations(t *testing.T) {
	before := histogramCount(t, LoopRounds)
	LoopRounds.Observe(3)
	after := histogramCount(t, LoopRounds)
	if after-before != 1 {
		t.Errorf("expected histogram sample count to increase by 1, got delta=%d", after-before)
	}
}

// counterValue reads the current value of a CounterVec for the given labels.
func counterValue(t *testing.T, cv *prometheus.CounterVec, labels ...string) float64 {
	t.Helper()
	m := &dto.Metric{}
	c, err := cv.GetMetricWithLabelValues(labels...)
	if err != nil {
		t.Fatalf("getting counter metric: %v", err)
	}
	if err := c.(prometheus.Metric).Write(m); err != nil {
		t.Fatalf("writing counter metric: %v", err)
	}
	return m.GetCounter().GetValue()
}

// histogramCount reads the observation count from a Histogram.
func histogramCount(t *testing.T, h prometheus.Histogram) uint64 {
	t.Helper()
	m := &dto.Metric{}
	if err := h.Write(m); err != nil {
		t.Fatalf("writing histogram metric: %v", err)
	}
	return m.GetHistogram().GetSampleCount()
}
