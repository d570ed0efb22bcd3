package retrieval

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"docctx/internal/chunker"
	"docctx/internal/knowledge"
	"docctx/internal/pipeline"
	"docctx/internal/storage"
)

const (
	DefaultTopK = 6

	keywordWeight = 0.15
	// Candidates fetched per requested result, leaving room to reorder.
	overFetch = 2
)

var typeBoosts = map[string]float64{
	string(chunker.TypeHeading):   0.08,
	string(chunker.TypeReference): 0.03,
	string(chunker.TypeCaption):   0.02,
}

var tokenPattern = regexp.MustCompile(`[\p{L}\p{N}_]+`)

// RerankedMatch is a match with its hybrid score.
type RerankedMatch struct {
	storage.Match
	RerankScore float64 `json:"rerankScore"`
}

type options struct {
	topK   int
	rerank bool
	filter storage.Filter
}

type Option func(*options)

// WithTopK sets the number of results. Values below 1 keep the default.
func WithTopK(k int) Option {
	return func(o *options) {
		if k > 0 {
			o.topK = k
		}
	}
}

// WithRerank toggles the keyword and chunk-type rerank pass.
func WithRerank(enabled bool) Option {
	return func(o *options) {
		o.rerank = enabled
	}
}

// WithFilter restricts candidates to records matching filter.
func WithFilter(filter storage.Filter) Option {
	return func(o *options) {
		o.filter = filter
	}
}

// SearchAndRerank embeds query, fetches twice the requested number of
// candidates and returns the best topK. With rerank enabled the order is by
// RerankScore; otherwise it is the store's vector order and RerankScore
// equals Score.
func SearchAndRerank(ctx context.Context, store storage.Store, embedder knowledge.Embedder, query string, opts ...Option) ([]RerankedMatch, error) {
	o := options{topK: DefaultTopK, rerank: true}
	for _, opt := range opts {
		opt(&o)
	}

	vec, err := embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	candidates, err := store.Query(ctx, vec, o.topK*overFetch, o.filter)
	if err != nil {
		return nil, fmt.Errorf("failed to query store: %w", err)
	}

	var ranked []RerankedMatch
	if o.rerank {
		ranked = RerankMatches(query, candidates)
	} else {
		ranked = make([]RerankedMatch, len(candidates))
		for i, m := range candidates {
			ranked[i] = RerankedMatch{Match: m, RerankScore: m.Score}
		}
	}

	if len(ranked) > o.topK {
		ranked = ranked[:o.topK]
	}
	return ranked, nil
}

// RerankMatches scores each match as
//
//	score + 0.15*keywordOverlap + typeBoost
//
// and returns them ordered by that score, highest first. Ties keep the
// input order.
func RerankMatches(query string, matches []storage.Match) []RerankedMatch {
	queryTokens := tokenize(query)

	out := make([]RerankedMatch, len(matches))
	for i, m := range matches {
		overlap := keywordOverlap(queryTokens, tokenize(m.Text))
		out[i] = RerankedMatch{
			Match:       m,
			RerankScore: m.Score + keywordWeight*overlap + typeBoost(m.Metadata),
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].RerankScore > out[j].RerankScore
	})
	return out
}

// keywordOverlap is the share of query tokens found in the candidate.
func keywordOverlap(query, candidate map[string]struct{}) float64 {
	if len(query) == 0 || len(candidate) == 0 {
		return 0
	}
	hits := 0
	for tok := range query {
		if _, ok := candidate[tok]; ok {
			hits++
		}
	}
	return float64(hits) / float64(len(query))
}

func typeBoost(metadata map[string]any) float64 {
	kind, _ := metadata[pipeline.MetaChunkType].(string)
	return typeBoosts[kind]
}

func tokenize(text string) map[string]struct{} {
	tokens := make(map[string]struct{})
	for _, tok := range tokenPattern.FindAllString(strings.ToLower(text), -1) {
		tokens[tok] = struct{}{}
	}
	return tokens
}
