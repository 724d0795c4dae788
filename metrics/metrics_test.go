package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestCounters(t *testing.T) {
	m := New()
	m.IngestSource("ok")
	m.IngestSource("ok")
	m.IngestSource("failed")
	m.IngestChunks(12)
	m.ChatTurn("ok", 2*time.Second)
	m.ToolCall("web_search")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.ingestSources.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ingestSources.WithLabelValues("failed")))
	assert.Equal(t, 12.0, testutil.ToFloat64(m.ingestChunks))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.chatTurns.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.toolCalls.WithLabelValues("web_search")))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.IngestSource("ok")
		m.IngestChunks(3)
		m.ChatTurn("error", time.Second)
		m.ToolCall("x")
	})
}
