package knowledge

import (
	"context"
	"math"
	"regexp"
	"strings"

	"github.com/cespare/xxhash/v2"
)

const defaultHashDimension = 256

var hashTokenPattern = regexp.MustCompile(`[\p{L}\p{N}_]+`)

// HashEmbedder maps text to a bag-of-words vector with the hashing trick.
// It runs offline and is deterministic, which makes it useful for tests and
// for indexing without an API key. Similarity is purely lexical.
type HashEmbedder struct {
	dimension int
}

func NewHashEmbedder(dim int) *HashEmbedder {
	if dim <= 0 {
		dim = defaultHashDimension
	}
	return &HashEmbedder{dimension: dim}
}

func (h *HashEmbedder) Dimension() int {
	return h.dimension
}

func (h *HashEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	vec := make([]float32, h.dimension)
	for _, tok := range hashTokenPattern.FindAllString(strings.ToLower(text), -1) {
		sum := xxhash.Sum64String(tok)
		bucket := sum % uint64(h.dimension)
		if sum>>63 == 1 {
			vec[bucket]--
		} else {
			vec[bucket]++
		}
	}

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm > 0 {
		scale := float32(1 / math.Sqrt(norm))
		for i := range vec {
			vec[i] *= scale
		}
	}
	return vec, nil
}

func (h *HashEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		vec, err := h.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		out[i] = vec
	}
	return out, nil
}
