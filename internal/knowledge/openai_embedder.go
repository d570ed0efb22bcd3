package knowledge

import (
	"context"
	"fmt"
	"sort"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

const openAIEmbedBatchSize = 64

// OpenAIEmbedder calls the OpenAI embeddings API, or any server that speaks
// the same protocol when a base URL is given.
type OpenAIEmbedder struct {
	client    *openai.Client
	apiKey    string
	model     string
	dimension int
}

func NewOpenAIEmbedder(apiKey, model string, dim int, baseURL string) *OpenAIEmbedder {
	cfg := openai.DefaultConfig(apiKey)
	if url := strings.TrimSpace(baseURL); url != "" {
		cfg.BaseURL = strings.TrimSuffix(strings.TrimRight(url, "/"), "/embeddings")
	}
	if strings.TrimSpace(model) == "" {
		model = string(openai.SmallEmbedding3)
	}
	return &OpenAIEmbedder{
		client:    openai.NewClientWithConfig(cfg),
		apiKey:    apiKey,
		model:     model,
		dimension: dim,
	}
}

func (o *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return first(o.EmbedBatch(ctx, []string{text}))
}

func (o *OpenAIEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if strings.TrimSpace(o.apiKey) == "" {
		return nil, fmt.Errorf("openai api key is required")
	}
	if len(texts) == 0 {
		return nil, nil
	}

	out := make([][]float32, 0, len(texts))
	for i := 0; i < len(texts); i += openAIEmbedBatchSize {
		end := min(i+openAIEmbedBatchSize, len(texts))
		batch := texts[i:end]

		resp, err := o.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
			Model:      openai.EmbeddingModel(o.model),
			Input:      batch,
			Dimensions: o.dimension,
		})
		if err != nil {
			return nil, fmt.Errorf("openai embed request failed: %w", err)
		}
		if len(resp.Data) != len(batch) {
			return nil, fmt.Errorf("openai embedding count mismatch: got %d, expected %d", len(resp.Data), len(batch))
		}

		data := resp.Data
		sort.Slice(data, func(a, b int) bool { return data[a].Index < data[b].Index })
		for _, item := range data {
			out = append(out, item.Embedding)
		}
	}
	return out, nil
}
