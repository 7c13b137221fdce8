// Package metrics holds the Prometheus collectors of the chat service.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "chat",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "chat",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"method", "route"},
	)

	// ExchangesTotal counts SendMessage calls by outcome.
	ExchangesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "chat",
			Subsystem: "exchange",
			Name:      "total",
			Help:      "Total chat exchanges by outcome",
		},
		[]string{"outcome"},
	)

	ConflictRetries = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "chat",
			Subsystem: "exchange",
			Name:      "conflict_retries_total",
			Help:      "Exchanges restarted after a concurrent save",
		},
	)

	CompletionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "chat",
			Subsystem: "completion",
			Name:      "duration_seconds",
			Help:      "Completion provider call duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"status"},
	)

	CompletionTokens = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "chat",
			Subsystem: "completion",
			Name:      "tokens_total",
			Help:      "Tokens reported by the completion provider",
		},
		[]string{"type"},
	)

	WebSocketConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "chat",
			Subsystem: "ws",
			Name:      "connections",
			Help:      "Open WebSocket connections",
		},
	)
)

// RecordRequest records an HTTP request.
func RecordRequest(method, route, status string, duration time.Duration) {
	RequestsTotal.WithLabelValues(method, route, status).Inc()
	RequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// RecordExchange records the outcome of a chat exchange.
func RecordExchange(outcome string) {
	ExchangesTotal.WithLabelValues(outcome).Inc()
}

// RecordCompletion records a completion provider call. status is "ok" or an error kind.
func RecordCompletion(status string, duration time.Duration) {
	CompletionDuration.WithLabelValues(status).Observe(duration.Seconds())
}

// RecordTokens records provider token usage.
func RecordTokens(prompt, completion int) {
	CompletionTokens.WithLabelValues("prompt").Add(float64(prompt))
	CompletionTokens.WithLabelValues("completion").Add(float64(completion))
}
