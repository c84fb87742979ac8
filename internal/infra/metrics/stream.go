// File: internal/infra/metrics/stream.go
package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		streamMalformedFrames,
		streamDeltasTotal,
		streamFinalizeTotal,
		streamsActive,
	)
}

var (
	streamMalformedFrames = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "stream_malformed_frames_total",
			Help: "Complete data records whose JSON payload failed to parse.",
		},
	)

	streamsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "streams_active",
			Help: "Streamed turns currently in flight.",
		},
	)

	streamDeltasTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "stream_deltas_total",
			Help: "message_delta events emitted to consumers.",
		},
	)

	streamFinalizeTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stream_finalize_total",
			Help: "Stream terminations by result (complete/error).",
		},
		[]string{"result"},
	)
)

func IncMalformedFrame() { streamMalformedFrames.Inc() }

func IncActiveStreams() { streamsActive.Inc() }

func DecActiveStreams() { streamsActive.Dec() }

func IncStreamDelta() { streamDeltasTotal.Inc() }

func IncStreamFinalize(result string) {
	streamFinalizeTotal.WithLabelValues(norm(result)).Inc()
}
