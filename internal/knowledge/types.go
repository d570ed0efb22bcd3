package knowledge

import (
	"context"
	"errors"
)

// ErrUnsupportedProvider is returned by NewEmbedder and NewSummarizer for
// unknown providers.
var ErrUnsupportedProvider = errors.New("unsupported provider")

// Embedder converts text to a vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// BatchEmbedder is implemented by embedders that can embed many texts in a
// single request. Results are in input order.
type BatchEmbedder interface {
	Embedder
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// first returns the single vector of a one-text batch.
func first(vecs [][]float32, err error) ([]float32, error) {
	if err != nil {
		return nil, err
	}
	if len(vecs) != 1 {
		return nil, errors.New("embedding response is empty")
	}
	return vecs[0], nil
}
