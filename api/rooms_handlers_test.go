package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/pablobfonseca/go-room-qa/logging"
	"github.com/pablobfonseca/go-room-qa/metrics"
	"github.com/pablobfonseca/go-room-qa/queue"
	"github.com/pablobfonseca/go-room-qa/repository"
	"github.com/pablobfonseca/go-room-qa/rooms"
	"github.com/pablobfonseca/go-room-qa/services/servicestest"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testServer struct {
	handler  http.Handler
	provider *servicestest.FakeProvider
	repo     *repository.MemoryRepository
	queue    *queue.Queue
}

func newTestServer(t *testing.T, withQueue bool) *testServer {
	t.Helper()

	provider := &servicestest.FakeProvider{
		Transcription:    "the sky is blue",
		DefaultEmbedding: []float32{1, 0},
		AnswerText:       "The sky is blue.",
		Embeddings:       map[string][]float32{},
	}
	repo := repository.NewMemoryRepository(2)
	m := metrics.New()
	logger := logging.NewWithWriter(io.Discard, "error", "json")

	policy := rooms.DefaultPolicy()
	policy.MaxAudioBytes = 64
	policy.EmbeddingDimensions = 2
	service := rooms.NewService(provider, repo, policy, logger, m)

	ts := &testServer{provider: provider, repo: repo}

	var jobs JobQueue
	if withQueue {
		mr := miniredis.RunT(t)
		client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		t.Cleanup(func() { client.Close() })
		ts.queue = queue.New(client, queue.AudioProcessingQueue, time.Hour)
		jobs = ts.queue
	}

	ts.handler = NewHandler(service, jobs, logger, m).HTTPHandler([]string{"*"})
	return ts
}

func (ts *testServer) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	return rec
}

func jsonRequest(t *testing.T, path string, body any) *http.Request {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func audioRequest(t *testing.T, path, field, filename, contentType string, audio []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	require.NoError(t, mw.WriteField("note", "ignored"))

	if field != "" {
		header := make(textproto.MIMEHeader)
		header.Set("Content-Disposition", `form-data; name="`+field+`"; filename="`+filename+`"`)
		header.Set("Content-Type", contentType)
		part, err := mw.CreatePart(header)
		require.NoError(t, err)
		_, err = part.Write(audio)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestCreateQuestion_WithContext(t *testing.T) {
	ts := newTestServer(t, false)
	_, err := ts.repo.InsertAudioChunk(context.Background(), "r1", "the sky is blue", []float32{1, 0})
	require.NoError(t, err)
	ts.provider.Embeddings["what color is the sky?"] = []float32{0.85, 0.52678269}

	rec := ts.do(jsonRequest(t, "/rooms/r1/questions", map[string]any{"question": "what color is the sky?"}))

	require.Equal(t, http.StatusCreated, rec.Code)
	body := decode(t, rec)
	assert.NotEmpty(t, body["idQuestion"])
	assert.Equal(t, "The sky is blue.", body["answer"])
}

func TestCreateQuestion_EmptyRoomAnswerIsNull(t *testing.T) {
	ts := newTestServer(t, false)

	rec := ts.do(jsonRequest(t, "/rooms/r2/questions", map[string]any{"question": "anything?"}))

	require.Equal(t, http.StatusCreated, rec.Code)
	body := decode(t, rec)
	assert.NotEmpty(t, body["idQuestion"])
	value, present := body["answer"]
	assert.True(t, present)
	assert.Nil(t, value)
}

func TestCreateQuestion_EmptyQuestion(t *testing.T) {
	ts := newTestServer(t, false)

	rec := ts.do(jsonRequest(t, "/rooms/r1/questions", map[string]any{"question": ""}))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "validation", decode(t, rec)["error"])
	assert.Equal(t, 0, ts.repo.QuestionCount())
}

func TestCreateQuestion_InvalidBody(t *testing.T) {
	ts := newTestServer(t, false)

	for _, body := range []string{`{`, `{"question": 42}`, `{}`} {
		req := httptest.NewRequest(http.MethodPost, "/rooms/r1/questions", strings.NewReader(body))
		rec := ts.do(req)

		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
	}
	assert.Equal(t, 0, ts.repo.QuestionCount())
}

func TestCreateQuestion_UpstreamFailure(t *testing.T) {
	ts := newTestServer(t, false)
	ts.provider.EmbedErr = errors.New("unavailable")

	rec := ts.do(jsonRequest(t, "/rooms/r1/questions", map[string]any{"question": "q"}))

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "upstream", body["error"])
	assert.NotContains(t, body["message"], "unavailable")
}

func TestCreateQuestion_WrongEmbeddingSize(t *testing.T) {
	ts := newTestServer(t, false)
	_, err := ts.repo.InsertAudioChunk(context.Background(), "r1", "the sky is blue", []float32{1, 0})
	require.NoError(t, err)
	ts.provider.Embeddings["what color is the sky?"] = []float32{1, 0, 0}

	rec := ts.do(jsonRequest(t, "/rooms/r1/questions", map[string]any{"question": "what color is the sky?"}))

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, "upstream", decode(t, rec)["error"])
	assert.Equal(t, 0, ts.repo.QuestionCount())
}

func TestListQuestions(t *testing.T) {
	ts := newTestServer(t, false)
	for _, q := range []string{"first", "second"} {
		rec := ts.do(jsonRequest(t, "/rooms/r1/questions", map[string]any{"question": q}))
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	rec := ts.do(httptest.NewRequest(http.MethodGet, "/rooms/r1/questions", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Questions []struct {
			ID       string  `json:"id"`
			Question string  `json:"question"`
			Answer   *string `json:"answer"`
		} `json:"questions"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Questions, 2)
	assert.Equal(t, "second", body.Questions[0].Question)
}

func TestUploadAudio(t *testing.T) {
	ts := newTestServer(t, false)

	rec := ts.do(audioRequest(t, "/rooms/r1/audio", "file", "rec.webm", "audio/webm", []byte("webm-bytes")))

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.NotEmpty(t, decode(t, rec)["idChunck"])
	assert.Equal(t, 1, ts.repo.AudioChunkCount())
	assert.Equal(t, "audio/webm", ts.provider.LastMimeType)
}

func TestUploadAudio_AnyFileField(t *testing.T) {
	ts := newTestServer(t, false)

	rec := ts.do(audioRequest(t, "/rooms/r1/audio", "audio", "rec.mp3", "application/octet-stream", []byte("mp3")))

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "audio/mpeg", ts.provider.LastMimeType)
}

func TestUploadAudio_NoFilePart(t *testing.T) {
	ts := newTestServer(t, false)

	rec := ts.do(audioRequest(t, "/rooms/r1/audio", "", "", "", nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "audio is required", decode(t, rec)["message"])
	assert.Equal(t, 0, ts.repo.AudioChunkCount())
}

func TestUploadAudio_NotMultipart(t *testing.T) {
	ts := newTestServer(t, false)

	rec := ts.do(jsonRequest(t, "/rooms/r1/audio", map[string]any{"audio": "x"}))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, 0, ts.repo.AudioChunkCount())
}

func TestUploadAudio_TooLarge(t *testing.T) {
	ts := newTestServer(t, false)

	rec := ts.do(audioRequest(t, "/rooms/r1/audio", "file", "big.wav", "audio/wav", bytes.Repeat([]byte("a"), 65)))

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	transcribe, _, _ := ts.provider.Calls()
	assert.Zero(t, transcribe)
}

func TestUploadAudio_TranscriptionFailure(t *testing.T) {
	ts := newTestServer(t, false)
	ts.provider.TranscribeErr = errors.New("quota")

	rec := ts.do(audioRequest(t, "/rooms/r1/audio", "file", "rec.webm", "audio/webm", []byte("x")))

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, 0, ts.repo.AudioChunkCount())
}

func TestEnqueueAudio_Disabled(t *testing.T) {
	ts := newTestServer(t, false)

	rec := ts.do(audioRequest(t, "/rooms/r1/audio/jobs", "file", "rec.webm", "audio/webm", []byte("x")))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestEnqueueAudio(t *testing.T) {
	ts := newTestServer(t, true)

	rec := ts.do(audioRequest(t, "/rooms/r1/audio/jobs", "file", "rec.webm", "audio/webm", []byte("x")))

	require.Equal(t, http.StatusAccepted, rec.Code)
	id, _ := decode(t, rec)["idJob"].(string)
	require.NotEmpty(t, id)

	rec = ts.do(httptest.NewRequest(http.MethodGet, "/jobs/"+id, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, id, body["idJob"])
	assert.Equal(t, queue.StatusPending, body["status"])

	task, err := ts.queue.Dequeue(context.Background(), time.Second)
	require.NoError(t, err)
	require.NotNil(t, task)
	assert.Equal(t, "r1", task.RoomID)
	assert.Equal(t, []byte("x"), task.Audio)
}

func TestEnqueueAudio_MissingFile(t *testing.T) {
	ts := newTestServer(t, true)

	rec := ts.do(audioRequest(t, "/rooms/r1/audio/jobs", "", "", "", nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetJob_NotFound(t *testing.T) {
	ts := newTestServer(t, true)

	rec := ts.do(httptest.NewRequest(http.MethodGet, "/jobs/unknown", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "not_found", decode(t, rec)["error"])
}

func TestHealthAndMetrics(t *testing.T) {
	ts := newTestServer(t, false)

	rec := ts.do(httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", decode(t, rec)["status"])

	rec = ts.do(httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `rooms_http_requests_total{method="GET",route="/health",status="200"} 1`)
}

func TestCORSPreflight(t *testing.T) {
	ts := newTestServer(t, false)

	req := httptest.NewRequest(http.MethodOptions, "/rooms/r1/questions", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := ts.do(req)

	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}
