package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/pablobfonseca/go-room-qa/errs"
)

type OllamaEndpoint string

const (
	GenerateEndpoint  OllamaEndpoint = "generate"
	EmbeddingEndpoint OllamaEndpoint = "embeddings"
)

type OllamaRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

type OllamaEmbeddingResponse struct {
	Embedding []float32 `json:"embedding"`
}

type OllamaGenerateResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

// OllamaProvider serves embeddings and answers from a local Ollama server.
// Ollama has no speech to text endpoint, so it is never used as a Transcriber.
type OllamaProvider struct {
	Host           string
	EmbeddingModel string
	AnswerModel    string
	HTTPClient     *http.Client
}

func NewOllamaProvider(host, embeddingModel, answerModel string, httpClient *http.Client) *OllamaProvider {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &OllamaProvider{
		Host:           strings.TrimRight(host, "/"),
		EmbeddingModel: embeddingModel,
		AnswerModel:    answerModel,
		HTTPClient:     httpClient,
	}
}

func (p *OllamaProvider) url(path OllamaEndpoint) string {
	return fmt.Sprintf("%s/api/%s", p.Host, path)
}

// request posts body to the endpoint and decodes the JSON reply into out
func (p *OllamaProvider) request(ctx context.Context, path OllamaEndpoint, body OllamaRequest, out any) error {
	requestBody, err := json.Marshal(body)
	if err != nil {
		return err
	}

	ollamaURL := p.url(path)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, ollamaURL, bytes.NewReader(requestBody))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to call Ollama at %s: %w", ollamaURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("ollama returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}

	return nil
}

func (p *OllamaProvider) Answer(ctx context.Context, question string, contexts []string) (string, error) {
	var result OllamaGenerateResponse
	err := p.request(ctx, GenerateEndpoint, OllamaRequest{
		Model:  p.AnswerModel,
		Prompt: BuildAnswerPrompt(question, contexts),
		Stream: false,
	}, &result)
	if err != nil {
		return "", errs.Upstream(OperationAnswer, err)
	}

	answer := strings.TrimSpace(result.Response)
	if answer == "" {
		return "", errs.Upstream(OperationAnswer, ErrEmptyResponse)
	}

	return answer, nil
}
