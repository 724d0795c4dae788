package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "support_assistant"

// Metrics holds the collectors exported on /metrics. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	ingestSources *prometheus.CounterVec
	ingestChunks  prometheus.Counter
	chatTurns     *prometheus.CounterVec
	turnDuration  prometheus.Histogram
	toolCalls     *prometheus.CounterVec
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		ingestSources: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ingest_sources_total",
			Help:      "Help-center sources processed during ingestion, by outcome.",
		}, []string{"status"}),
		ingestChunks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ingest_chunks_total",
			Help:      "Chunks written to the vector store.",
		}),
		chatTurns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chat_turns_total",
			Help:      "Chat turns handled, by outcome.",
		}, []string{"status"}),
		turnDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "chat_turn_duration_seconds",
			Help:      "Wall time of a chat turn including streaming.",
			Buckets:   prometheus.ExponentialBuckets(0.25, 2, 8),
		}),
		toolCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tool_calls_total",
			Help:      "Tool invocations requested by the model.",
		}, []string{"tool"}),
	}
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.ingestSources, m.ingestChunks, m.chatTurns, m.turnDuration, m.toolCalls,
	)
	return m
}

func (m *Metrics) IngestSource(status string) {
	if m == nil {
		return
	}
	m.ingestSources.WithLabelValues(status).Inc()
}

func (m *Metrics) IngestChunks(n int) {
	if m == nil {
		return
	}
	m.ingestChunks.Add(float64(n))
}

func (m *Metrics) ChatTurn(status string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.chatTurns.WithLabelValues(status).Inc()
	m.turnDuration.Observe(elapsed.Seconds())
}

func (m *Metrics) ToolCall(name string) {
	if m == nil {
		return
	}
	m.toolCalls.WithLabelValues(name).Inc()
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
