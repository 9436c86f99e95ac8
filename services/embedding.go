package services

import (
	"context"

	"github.com/pablobfonseca/go-room-qa/errs"
)

func (p *OllamaProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	var result OllamaEmbeddingResponse
	err := p.request(ctx, EmbeddingEndpoint, OllamaRequest{
		Model:  p.EmbeddingModel,
		Prompt: text,
	}, &result)
	if err != nil {
		return nil, errs.Upstream(OperationEmbed, err)
	}

	if len(result.Embedding) == 0 {
		return nil, errs.Upstream(OperationEmbed, ErrEmptyResponse)
	}

	return result.Embedding, nil
}
