package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/pablobfonseca/go-room-qa/config"
	"github.com/pablobfonseca/go-room-qa/metrics"
)

var ErrEmptyResponse = errors.New("empty response from AI service")

// Operation names used in errors, logs and metrics
const (
	OperationTranscribe = "transcribe audio"
	OperationEmbed      = "generate embeddings"
	OperationAnswer     = "generate answer"
)

type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte, mimeType string) (string, error)
}

type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

type Answerer interface {
	Answer(ctx context.Context, question string, contexts []string) (string, error)
}

// Provider is the AI gateway used by the room handlers. Each method is a single
// round trip; failures are *errs.Error values of the upstream category.
type Provider interface {
	Transcriber
	Embedder
	Answerer
}

// composite routes each operation to its own backend
type composite struct {
	Transcriber
	Embedder
	Answerer
}

func Compose(t Transcriber, e Embedder, a Answerer) Provider {
	return composite{Transcriber: t, Embedder: e, Answerer: a}
}

// NewProvider builds the gateway described by the configuration. Transcription
// always goes to the OpenAI compatible API; embeddings and answers can go to Ollama.
func NewProvider(cfg config.AIConfig) (Provider, error) {
	httpClient := &http.Client{Timeout: cfg.Timeout}

	openAI := NewOpenAIProvider(OpenAIConfig{
		APIKey:             cfg.OpenAIAPIKey,
		BaseURL:            cfg.OpenAIBaseURL,
		TranscriptionModel: cfg.TranscriptionModel,
		EmbeddingModel:     cfg.EmbeddingModel,
		AnswerModel:        cfg.AnswerModel,
	}, httpClient)

	var embedder Embedder
	switch cfg.EmbeddingProvider {
	case config.ProviderOpenAI:
		embedder = openAI
	case config.ProviderOllama:
		embedder = NewOllamaProvider(cfg.OllamaHost, cfg.EmbeddingModel, cfg.AnswerModel, httpClient)
	default:
		return nil, fmt.Errorf("unsupported embedding provider %q", cfg.EmbeddingProvider)
	}

	var answerer Answerer
	switch cfg.AnswerProvider {
	case config.ProviderOpenAI:
		answerer = openAI
	case config.ProviderOllama:
		answerer = NewOllamaProvider(cfg.OllamaHost, cfg.EmbeddingModel, cfg.AnswerModel, httpClient)
	default:
		return nil, fmt.Errorf("unsupported answer provider %q", cfg.AnswerProvider)
	}

	return Compose(openAI, embedder, answerer), nil
}

type instrumented struct {
	next    Provider
	metrics *metrics.Metrics
}

// WithMetrics records the outcome and latency of every call made through p
func WithMetrics(p Provider, m *metrics.Metrics) Provider {
	if m == nil {
		return p
	}
	return instrumented{next: p, metrics: m}
}

func (i instrumented) Transcribe(ctx context.Context, audio []byte, mimeType string) (string, error) {
	start := time.Now()
	text, err := i.next.Transcribe(ctx, audio, mimeType)
	i.metrics.RecordAIRequest("transcribe", err, time.Since(start).Seconds())
	return text, err
}

func (i instrumented) Embed(ctx context.Context, text string) ([]float32, error) {
	start := time.Now()
	vec, err := i.next.Embed(ctx, text)
	i.metrics.RecordAIRequest("embed", err, time.Since(start).Seconds())
	return vec, err
}

func (i instrumented) Answer(ctx context.Context, question string, contexts []string) (string, error) {
	start := time.Now()
	answer, err := i.next.Answer(ctx, question, contexts)
	i.metrics.RecordAIRequest("answer", err, time.Since(start).Seconds())
	return answer, err
}
