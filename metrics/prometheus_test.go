package metrics

import (
	"errors"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordAIRequest(t *testing.T) {
	m := New()

	m.RecordAIRequest("embed", nil, 0.2)
	m.RecordAIRequest("embed", errors.New("timeout"), 1.5)
	m.RecordAIRequest("embed", nil, 0.1)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.AIRequests.WithLabelValues("embed", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.AIRequests.WithLabelValues("embed", "failure")))
}

func TestRecordQuestion(t *testing.T) {
	m := New()

	m.RecordQuestion(true)
	m.RecordQuestion(false)
	m.RecordQuestion(false)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.QuestionsCreated.WithLabelValues("true")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.QuestionsCreated.WithLabelValues("false")))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics

	assert.NotPanics(t, func() {
		m.RecordHTTPRequest("GET", "/health", "200", 0.01)
		m.RecordAudioChunk()
		m.RecordJob("completed")
	})
}

func TestHandler_ExposesCollectors(t *testing.T) {
	m := New()
	m.RecordAudioChunk()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "rooms_audio_chunks_created_total 1")
}
