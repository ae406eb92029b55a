// Package metrics holds the Prometheus instruments exported on /metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Stream outcomes recorded by Metrics.StreamFinished.
const (
	OutcomeCompleted    = "completed"
	OutcomeBackendError = "backend_error"
	OutcomeDisconnected = "client_disconnected"
	OutcomeRejected     = "rejected"
)

// Metrics groups the relay and synthesizer instruments. A nil *Metrics is
// valid and records nothing, which keeps tests free of registry setup.
type Metrics struct {
	registry        *prometheus.Registry
	streams         *prometheus.CounterVec
	deltas          prometheus.Counter
	skipped         *prometheus.CounterVec
	activeStreams   prometheus.Gauge
	soundRenders    *prometheus.CounterVec
	streamDurations prometheus.Histogram
}

// New registers every instrument on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		streams: f.NewCounterVec(prometheus.CounterOpts{
			Name: "relay_streams_total",
			Help: "Chat relay streams by outcome.",
		}, []string{"backend", "outcome"}),
		deltas: f.NewCounter(prometheus.CounterOpts{
			Name: "relay_deltas_total",
			Help: "Text deltas forwarded to clients.",
		}),
		skipped: f.NewCounterVec(prometheus.CounterOpts{
			Name: "relay_skipped_fragments_total",
			Help: "Backend fragments skipped because they could not be parsed.",
		}, []string{"backend"}),
		activeStreams: f.NewGauge(prometheus.GaugeOpts{
			Name: "relay_active_streams",
			Help: "Streams currently open.",
		}),
		soundRenders: f.NewCounterVec(prometheus.CounterOpts{
			Name: "synth_renders_total",
			Help: "Procedural sound clips rendered by kind.",
		}, []string{"kind"}),
		streamDurations: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "relay_stream_duration_seconds",
			Help:    "Wall-clock duration of relay streams.",
			Buckets: prometheus.ExponentialBuckets(0.25, 2, 8),
		}),
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// StreamStarted marks a stream as open.
func (m *Metrics) StreamStarted() {
	if m == nil {
		return
	}
	m.activeStreams.Inc()
}

// StreamFinished records the outcome and duration of one stream.
func (m *Metrics) StreamFinished(backend, outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.activeStreams.Dec()
	m.streams.WithLabelValues(backend, outcome).Inc()
	m.streamDurations.Observe(seconds)
}

// StreamRejected counts a request refused before any stream was opened.
func (m *Metrics) StreamRejected(backend string) {
	if m == nil {
		return
	}
	m.streams.WithLabelValues(backend, OutcomeRejected).Inc()
}

// DeltaForwarded counts one text event written to a client.
func (m *Metrics) DeltaForwarded() {
	if m == nil {
		return
	}
	m.deltas.Inc()
}

// FragmentSkipped counts one unparsable backend fragment.
func (m *Metrics) FragmentSkipped(backend string) {
	if m == nil {
		return
	}
	m.skipped.WithLabelValues(backend).Inc()
}

// SoundRendered counts one synthesized clip.
func (m *Metrics) SoundRendered(kind string) {
	if m == nil {
		return
	}
	m.soundRenders.WithLabelValues(kind).Inc()
}
