package services

import (
	"bytes"
	"context"
	"net/http"
	"strings"

	"github.com/pablobfonseca/go-room-qa/errs"
	"github.com/pablobfonseca/go-room-qa/models"
	openai "github.com/sashabaranov/go-openai"
)

type OpenAIConfig struct {
	APIKey             string
	BaseURL            string
	TranscriptionModel string
	EmbeddingModel     string
	AnswerModel        string
}

// OpenAIProvider talks to any OpenAI compatible API
type OpenAIProvider struct {
	cli *openai.Client
	cfg OpenAIConfig
}

func NewOpenAIProvider(cfg OpenAIConfig, httpClient *http.Client) *OpenAIProvider {
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}
	if httpClient != nil {
		clientConfig.HTTPClient = httpClient
	}

	return &OpenAIProvider{
		cli: openai.NewClientWithConfig(clientConfig),
		cfg: cfg,
	}
}

func (p *OpenAIProvider) Transcribe(ctx context.Context, audio []byte, mimeType string) (string, error) {
	resp, err := p.cli.CreateTranscription(ctx, openai.AudioRequest{
		Model:    p.cfg.TranscriptionModel,
		FilePath: AudioFilename(mimeType),
		Reader:   bytes.NewReader(audio),
		Prompt:   transcriptionPrompt,
	})
	if err != nil {
		return "", errs.Upstream(OperationTranscribe, err)
	}

	text := strings.TrimSpace(resp.Text)
	if text == "" {
		return "", errs.Upstream(OperationTranscribe, ErrEmptyResponse)
	}

	return text, nil
}

func (p *OpenAIProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := p.cli.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input:      []string{text},
		Model:      openai.EmbeddingModel(p.cfg.EmbeddingModel),
		Dimensions: models.EmbeddingDimensions,
	})
	if err != nil {
		return nil, errs.Upstream(OperationEmbed, err)
	}

	if len(resp.Data) == 0 || len(resp.Data[0].Embedding) == 0 {
		return nil, errs.Upstream(OperationEmbed, ErrEmptyResponse)
	}

	return resp.Data[0].Embedding, nil
}

func (p *OpenAIProvider) Answer(ctx context.Context, question string, contexts []string) (string, error) {
	resp, err := p.cli.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: p.cfg.AnswerModel,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleUser,
				Content: BuildAnswerPrompt(question, contexts),
			},
		},
	})
	if err != nil {
		return "", errs.Upstream(OperationAnswer, err)
	}

	if len(resp.Choices) == 0 {
		return "", errs.Upstream(OperationAnswer, ErrEmptyResponse)
	}

	answer := strings.TrimSpace(resp.Choices[0].Message.Content)
	if answer == "" {
		return "", errs.Upstream(OperationAnswer, ErrEmptyResponse)
	}

	return answer, nil
}
