package memory

import (
	"context"

	"github.com/chayo-ai/memoryd/errors"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

type (
	// Embedder converts texts into fixed-length vectors. The contract is
	// all-or-nothing per batch: on success the result has exactly one
	// vector per input, in order; on failure no vectors are returned.
	Embedder interface {
		Embed(ctx context.Context, texts ...string) ([][]float32, error)
		Dimension() int
	}

	// OpenAIEmbedder implements Embedder using the OpenAI embeddings API
	OpenAIEmbedder struct {
		client openai.Client
		model  string
		dim    int
	}
)

var (
	_ Embedder = (*OpenAIEmbedder)(nil)
)

// NewOpenAIEmbedder creates an embedder bound to one model and one
// vector dimension. The dimension must match the deployment's store.
func NewOpenAIEmbedder(apiKey, model string, dimension int) *OpenAIEmbedder {
	return &OpenAIEmbedder{
		client: openai.NewClient(option.WithAPIKey(apiKey)),
		model:  model,
		dim:    dimension,
	}
}

func (e *OpenAIEmbedder) Dimension() int {
	return e.dim
}

func (e *OpenAIEmbedder) Embed(ctx context.Context, texts ...string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	var input openai.EmbeddingNewParamsInputUnion
	input.OfArrayOfStrings = append(input.OfArrayOfStrings, texts...)

	params := openai.EmbeddingNewParams{
		Input:          input,
		Model:          e.model,
		EncodingFormat: openai.EmbeddingNewParamsEncodingFormatFloat,
	}

	resp, err := e.client.Embeddings.New(ctx, params)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrUpstream, "embedding request failed: %v", err)
	}

	// The API never returns a partial batch on success, so a short
	// response indicates a broken upstream, not usable data.
	if len(resp.Data) != len(texts) {
		return nil, errors.Wrapf(errors.ErrUpstream, "embedding count mismatch: got %d, expected %d", len(resp.Data), len(texts))
	}

	embeddings := make([][]float32, len(resp.Data))
	for i, emb := range resp.Data {
		if len(emb.Embedding) != e.dim {
			return nil, errors.Wrapf(errors.ErrInvalidConfig, "model %q returned %d-dim vectors, store is configured for %d", e.model, len(emb.Embedding), e.dim)
		}
		embedding := make([]float32, len(emb.Embedding))
		for j, val := range emb.Embedding {
			embedding[j] = float32(val)
		}
		embeddings[i] = embedding
	}

	return embeddings, nil
}
