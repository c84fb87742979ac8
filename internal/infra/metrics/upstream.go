// File: internal/infra/metrics/upstream.go
package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	register(
		upstreamCallsTotal,
		upstreamCallLatencyMs,
		upstreamPromptTokens,
	)
}

var (
	upstreamCallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "upstream_calls_total",
			Help: "Completion endpoint calls per model/mode and outcome.",
		},
		[]string{"model", "mode", "success"},
	)

	upstreamCallLatencyMs = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "upstream_call_latency_ms",
			Help:    "Completion call latency distribution in milliseconds.",
			Buckets: []float64{10, 25, 50, 100, 200, 400, 800, 1600, 3000, 5000, 10000},
		},
		[]string{"model", "mode"},
	)

	upstreamPromptTokens = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "upstream_prompt_tokens",
			Help: "Sum of estimated prompt tokens sent upstream per model.",
		},
		[]string{"model"},
	)
)

// ObserveUpstreamCall records one completion call. For streaming calls the
// latency covers request start to stream-handle receipt, not full generation.
func ObserveUpstreamCall(model, mode string, latencyMs int64, success bool) {
	upstreamCallsTotal.WithLabelValues(norm(model), norm(mode), strconv.FormatBool(success)).Inc()
	upstreamCallLatencyMs.WithLabelValues(norm(model), norm(mode)).Observe(float64(latencyMs))
}

func AddPromptTokens(model string, n int) {
	if n <= 0 {
		return
	}
	upstreamPromptTokens.WithLabelValues(norm(model)).Add(float64(n))
}
