package storage

import (
	"math"
	"sort"
)

const minMagnitude = 1e-8

// CosineSimilarity returns the cosine of the angle between a and b. It is 0
// when either vector is empty, the lengths differ, or either magnitude is
// below 1e-8.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		normA += x * x
		normB += y * y
	}

	magA, magB := math.Sqrt(normA), math.Sqrt(normB)
	if magA < minMagnitude || magB < minMagnitude {
		return 0
	}
	return math.Max(-1, math.Min(1, dot/(magA*magB)))
}

// rank scores the records that pass filter and keeps the best topK.
func rank(query []float32, records []Record, topK int, filter Filter) []Match {
	if topK <= 0 {
		return []Match{}
	}

	matches := make([]Match, 0, len(records))
	for _, r := range records {
		if !filter.Matches(r.Metadata) {
			continue
		}
		matches = append(matches, Match{Record: r, Score: CosineSimilarity(query, r.Embedding)})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})

	if len(matches) > topK {
		matches = matches[:topK]
	}
	return matches
}
