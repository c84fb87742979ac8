// File: internal/infra/metrics/sessions.go
package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(sessionsCreatedTotal, sessionTurnsTotal)
}

var (
	sessionsCreatedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "chat_sessions_created_total",
			Help: "Chat sessions created, including sendMessage fallbacks onto unknown ids.",
		},
	)

	sessionTurnsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_turns_total",
			Help: "Completed conversation turns by response mode.",
		},
		[]string{"mode"},
	)
)

func IncSessionCreated() { sessionsCreatedTotal.Inc() }

func IncTurn(mode string) { sessionTurnsTotal.WithLabelValues(norm(mode)).Inc() }
