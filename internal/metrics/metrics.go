// Package metrics provides Prometheus metrics for the responder.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the responder. A nil *Metrics is
// valid and records nothing, so components can run unobserved in tests.
type Metrics struct {
	PollCycles      prometheus.Counter
	RepliesSent     prometheus.Counter
	MessagesMarked  prometheus.Counter
	PollErrors      *prometheus.CounterVec
	SeenSetSize     prometheus.Gauge
	SessionRestores *prometheus.CounterVec

	registry *prometheus.Registry
}

// New creates and registers all metrics.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		PollCycles: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "dmreply_poll_cycles_total",
				Help: "Total number of completed poll cycles.",
			},
		),
		RepliesSent: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "dmreply_replies_sent_total",
				Help: "Total number of canned replies sent to the target user.",
			},
		),
		MessagesMarked: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "dmreply_messages_marked_total",
				Help: "Total number of message IDs added to the seen-set.",
			},
		),
		PollErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dmreply_poll_errors_total",
				Help: "Total poll-cycle errors by stage.",
			},
			[]string{"stage"},
		),
		SeenSetSize: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "dmreply_seen_set_size",
				Help: "Current number of message IDs in the seen-set.",
			},
		),
		SessionRestores: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dmreply_session_restores_total",
				Help: "Session restore attempts by result.",
			},
			[]string{"result"},
		),
		registry: reg,
	}

	reg.MustRegister(m.PollCycles)
	reg.MustRegister(m.RepliesSent)
	reg.MustRegister(m.MessagesMarked)
	reg.MustRegister(m.PollErrors)
	reg.MustRegister(m.SeenSetSize)
	reg.MustRegister(m.SessionRestores)

	return m
}

// Handler returns an http.Handler for the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordPollCycle increments the poll cycle counter.
func (m *Metrics) RecordPollCycle() {
	if m == nil {
		return
	}
	m.PollCycles.Inc()
}

// RecordReply increments the sent-replies counter.
func (m *Metrics) RecordReply() {
	if m == nil {
		return
	}
	m.RepliesSent.Inc()
}

// RecordMarked increments the marked-messages counter.
func (m *Metrics) RecordMarked() {
	if m == nil {
		return
	}
	m.MessagesMarked.Inc()
}

// RecordPollError increments the error counter for a stage.
func (m *Metrics) RecordPollError(stage string) {
	if m == nil {
		return
	}
	m.PollErrors.WithLabelValues(stage).Inc()
}

// SetSeenSetSize sets the seen-set size gauge.
func (m *Metrics) SetSeenSetSize(n int) {
	if m == nil {
		return
	}
	m.SeenSetSize.Set(float64(n))
}

// RecordSessionRestore increments the restore counter with a result label.
func (m *Metrics) RecordSessionRestore(result string) {
	if m == nil {
		return
	}
	m.SessionRestores.WithLabelValues(result).Inc()
}
