package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_New(t *testing.T) {
	m := New()
	assert.NotNil(t, m.PollCycles)
	assert.NotNil(t, m.RepliesSent)
	assert.NotNil(t, m.MessagesMarked)
	assert.NotNil(t, m.PollErrors)
	assert.NotNil(t, m.SeenSetSize)
	assert.NotNil(t, m.SessionRestores)
}

func TestMetrics_Counters(t *testing.T) {
	m := New()
	m.RecordPollCycle()
	m.RecordPollCycle()
	m.RecordReply()
	m.RecordMarked()
	m.RecordPollError("fetch_thread")
	m.RecordSessionRestore("fallback")

	body := getMetricsBody(t, m)
	assert.Contains(t, body, "dmreply_poll_cycles_total 2")
	assert.Contains(t, body, "dmreply_replies_sent_total 1")
	assert.Contains(t, body, "dmreply_messages_marked_total 1")
	assert.Contains(t, body, `dmreply_poll_errors_total{stage="fetch_thread"} 1`)
	assert.Contains(t, body, `dmreply_session_restores_total{result="fallback"} 1`)
}

func TestMetrics_SeenSetSize(t *testing.T) {
	m := New()
	m.SetSeenSetSize(42)

	body := getMetricsBody(t, m)
	assert.Contains(t, body, "dmreply_seen_set_size 42")
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	// All record helpers must be no-ops on a nil receiver.
	m.RecordPollCycle()
	m.RecordReply()
	m.RecordMarked()
	m.RecordPollError("any")
	m.SetSeenSetSize(7)
	m.RecordSessionRestore("restored")
}

func TestMetrics_Handler(t *testing.T) {
	m := New()
	handler := m.Handler()
	assert.NotNil(t, handler)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code)
}

func getMetricsBody(t *testing.T, m *Metrics) string {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rr := httptest.NewRecorder()
	m.Handler().ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)
	body, _ := io.ReadAll(rr.Body)
	return strings.TrimSpace(string(body))
}
