package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/pablobfonseca/go-room-qa/errs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newOllamaTestProvider(t *testing.T, handler http.HandlerFunc) *OllamaProvider {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return NewOllamaProvider(srv.URL+"/", "nomic-embed-text", "gemma3", srv.Client())
}

func TestOllamaProvider_Embed(t *testing.T) {
	p := newOllamaTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/embeddings", r.URL.Path)

		var req OllamaRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "nomic-embed-text", req.Model)
		assert.Equal(t, "hello", req.Prompt)

		writeJSON(w, OllamaEmbeddingResponse{Embedding: []float32{0.1, 0.2, 0.3}})
	})

	vec, err := p.Embed(context.Background(), "hello")

	require.NoError(t, err)
	assert.Equal(t, []float32{0.1, 0.2, 0.3}, vec)
}

func TestOllamaProvider_Embed_Empty(t *testing.T) {
	p := newOllamaTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, OllamaEmbeddingResponse{})
	})

	_, err := p.Embed(context.Background(), "hello")

	assert.True(t, errs.IsCategory(err, errs.CategoryUpstream))
	assert.ErrorIs(t, err, ErrEmptyResponse)
}

func TestOllamaProvider_Answer(t *testing.T) {
	p := newOllamaTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/generate", r.URL.Path)

		var req OllamaRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "gemma3", req.Model)
		assert.False(t, req.Stream)
		assert.Contains(t, req.Prompt, "first chunk\n\nsecond chunk")

		writeJSON(w, OllamaGenerateResponse{Response: " It is blue. ", Done: true})
	})

	answer, err := p.Answer(context.Background(), "what color?", []string{"first chunk", "second chunk"})

	require.NoError(t, err)
	assert.Equal(t, "It is blue.", answer)
}

func TestOllamaProvider_Answer_BadStatus(t *testing.T) {
	p := newOllamaTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	})

	_, err := p.Answer(context.Background(), "q", []string{"c"})

	require.Error(t, err)
	assert.True(t, errs.IsCategory(err, errs.CategoryUpstream))
	assert.Contains(t, err.Error(), "status 404")
}

func TestOllamaProvider_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	host := srv.URL
	srv.Close()

	p := NewOllamaProvider(host, "m", "m", nil)
	_, err := p.Embed(context.Background(), "hello")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to call Ollama")
}
