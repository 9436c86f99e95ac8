package services

import (
	"context"
	"errors"
	"testing"

	"github.com/pablobfonseca/go-room-qa/config"
	"github.com/pablobfonseca/go-room-qa/metrics"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubProvider struct {
	embedErr error
}

func (s stubProvider) Transcribe(ctx context.Context, audio []byte, mimeType string) (string, error) {
	return "text", nil
}

func (s stubProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	return []float32{1}, s.embedErr
}

func (s stubProvider) Answer(ctx context.Context, question string, contexts []string) (string, error) {
	return "answer", nil
}

func TestNewProvider_RoutesOperations(t *testing.T) {
	p, err := NewProvider(config.AIConfig{
		OpenAIAPIKey:       "k",
		TranscriptionModel: "whisper-1",
		EmbeddingProvider:  config.ProviderOllama,
		EmbeddingModel:     "nomic-embed-text",
		AnswerProvider:     config.ProviderOpenAI,
		AnswerModel:        "gpt-4o-mini",
		OllamaHost:         "http://localhost:11434",
	})
	require.NoError(t, err)

	c, ok := p.(composite)
	require.True(t, ok)
	assert.IsType(t, &OpenAIProvider{}, c.Transcriber)
	assert.IsType(t, &OllamaProvider{}, c.Embedder)
	assert.IsType(t, &OpenAIProvider{}, c.Answerer)
}

func TestNewProvider_UnknownProvider(t *testing.T) {
	_, err := NewProvider(config.AIConfig{EmbeddingProvider: "nope", AnswerProvider: config.ProviderOpenAI})

	assert.Error(t, err)
}

func TestWithMetrics_RecordsOutcome(t *testing.T) {
	m := metrics.New()
	p := WithMetrics(stubProvider{embedErr: errors.New("down")}, m)

	_, _ = p.Transcribe(context.Background(), nil, "audio/webm")
	_, _ = p.Embed(context.Background(), "x")
	_, _ = p.Answer(context.Background(), "q", nil)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.AIRequests.WithLabelValues("transcribe", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.AIRequests.WithLabelValues("embed", "failure")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.AIRequests.WithLabelValues("answer", "success")))
}

func TestBuildAnswerPrompt(t *testing.T) {
	prompt := BuildAnswerPrompt("what color is the sky?", []string{"the sky is blue", "grass is green"})

	assert.Contains(t, prompt, "CONTEXT:\nthe sky is blue\n\ngrass is green")
	assert.Contains(t, prompt, "QUESTION:\nwhat color is the sky?")
}
