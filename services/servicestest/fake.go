// Package servicestest provides a deterministic AI provider for tests.
package servicestest

import (
	"context"
	"sync"

	"github.com/pablobfonseca/go-room-qa/errs"
	"github.com/pablobfonseca/go-room-qa/services"
)

// FakeProvider answers from fixtures. Texts without a fixture embed to
// DefaultEmbedding. All methods are safe for concurrent use.
type FakeProvider struct {
	mu sync.Mutex

	Transcription    string
	Embeddings       map[string][]float32
	DefaultEmbedding []float32
	AnswerText       string

	TranscribeErr error
	EmbedErr      error
	AnswerErr     error

	TranscribeCalls int
	EmbedCalls      int
	AnswerCalls     int
	LastMimeType    string
	LastContexts    []string
}

var _ services.Provider = (*FakeProvider)(nil)

func (f *FakeProvider) Transcribe(ctx context.Context, audio []byte, mimeType string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.TranscribeCalls++
	f.LastMimeType = mimeType
	if f.TranscribeErr != nil {
		return "", errs.Upstream(services.OperationTranscribe, f.TranscribeErr)
	}
	return f.Transcription, nil
}

func (f *FakeProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.EmbedCalls++
	if f.EmbedErr != nil {
		return nil, errs.Upstream(services.OperationEmbed, f.EmbedErr)
	}
	if vec, ok := f.Embeddings[text]; ok {
		return vec, nil
	}
	return f.DefaultEmbedding, nil
}

func (f *FakeProvider) Answer(ctx context.Context, question string, contexts []string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.AnswerCalls++
	f.LastContexts = append([]string(nil), contexts...)
	if f.AnswerErr != nil {
		return "", errs.Upstream(services.OperationAnswer, f.AnswerErr)
	}
	return f.AnswerText, nil
}

// Calls returns the number of calls made to each operation
func (f *FakeProvider) Calls() (transcribe, embed, answer int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.TranscribeCalls, f.EmbedCalls, f.AnswerCalls
}
