package llm

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"

	"github.com/PeterSurowski/ai-event-search/resilience"
)

type embeddingsAPI interface {
	CreateEmbeddings(ctx context.Context, conv openai.EmbeddingRequestConverter) (openai.EmbeddingResponse, error)
}

// Embedder turns query text into a vector with the embeddings endpoint.
type Embedder struct {
	api   embeddingsAPI
	exec  *resilience.Executor
	model string
	dims  int
}

// NewEmbedder creates an Embedder. A nil exec calls the API unguarded.
func NewEmbedder(api embeddingsAPI, exec *resilience.Executor, cfg Config) *Embedder {
	model := cfg.EmbeddingModel
	if model == "" {
		model = DefaultConfig().EmbeddingModel
	}
	return &Embedder{api: api, exec: exec, model: model, dims: cfg.Dimensions}
}

// Model returns the embedding model name.
func (e *Embedder) Model() string { return e.model }

// Embed returns the embedding of text.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	req := openai.EmbeddingRequest{
		Input: []string{text},
		Model: openai.EmbeddingModel(e.model),
	}
	if e.dims > 0 {
		req.Dimensions = e.dims
	}

	resp, err := resilience.Do(ctx, e.exec, func(ctx context.Context) (openai.EmbeddingResponse, error) {
		return e.api.CreateEmbeddings(ctx, req)
	})
	if err != nil {
		return nil, fmt.Errorf("llm: create embedding: %w", err)
	}
	if len(resp.Data) == 0 || len(resp.Data[0].Embedding) == 0 {
		return nil, ErrEmptyResponse
	}
	vec := resp.Data[0].Embedding
	if e.dims > 0 && len(vec) != e.dims {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(vec), e.dims)
	}
	return vec, nil
}
