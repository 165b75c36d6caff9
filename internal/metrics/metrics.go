// Package metrics exposes the chat agent's Prometheus collectors.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics owns a private registry so several instances can coexist in tests.
type Metrics struct {
	registry *prometheus.Registry

	turns          *prometheus.CounterVec
	remoteCalls    *prometheus.CounterVec
	remoteDuration prometheus.Histogram
	sessionsActive prometheus.Gauge
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		turns: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chat_turns_total",
				Help: "Accepted chat turns by answering strategy and outcome",
			},
			[]string{"strategy", "outcome"},
		),
		remoteCalls: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chat_remote_calls_total",
				Help: "Remote generation calls by result",
			},
			[]string{"result"},
		),
		remoteDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "chat_remote_call_duration_seconds",
				Help:    "Duration of remote generation calls in seconds",
				Buckets: []float64{0.25, 0.5, 1, 2, 4, 8, 15, 30},
			},
		),
		sessionsActive: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "chat_sessions_active",
				Help: "Number of live chat sessions",
			},
		),
	}
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveTurn(strategy, outcome string) {
	m.turns.WithLabelValues(strategy, outcome).Inc()
}

func (m *Metrics) ObserveRemoteCall(result string, d time.Duration) {
	m.remoteCalls.WithLabelValues(result).Inc()
	m.remoteDuration.Observe(d.Seconds())
}

func (m *Metrics) SetActiveSessions(n int) {
	m.sessionsActive.Set(float64(n))
}
