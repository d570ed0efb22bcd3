package summary

import (
	"math"
	"regexp"
	"sort"
	"strings"
)

var (
	sentencePattern = regexp.MustCompile(`[^.!?。！？\n]+[.!?。！？]?`)
	wordPattern     = regexp.MustCompile(`[\p{L}\p{N}]+`)
)

var stopwords = map[string]struct{}{
	"a": {}, "an": {}, "the": {}, "and": {}, "or": {}, "but": {}, "if": {}, "then": {},
	"for": {}, "to": {}, "of": {}, "in": {}, "on": {}, "at": {}, "by": {}, "with": {},
	"as": {}, "is": {}, "are": {}, "was": {}, "were": {}, "be": {}, "been": {}, "it": {},
	"this": {}, "that": {}, "these": {}, "those": {}, "from": {}, "into": {}, "than": {},
	"so": {}, "such": {}, "can": {}, "will": {}, "we": {}, "our": {}, "not": {},
}

// Extractive builds summaries by picking the sentences whose words are most
// frequent in the text. It needs no model and is deterministic.
type Extractive struct {
	MaxSentences int
}

func NewExtractive(maxSentences int) *Extractive {
	if maxSentences <= 0 {
		maxSentences = 2
	}
	return &Extractive{MaxSentences: maxSentences}
}

// Summarize returns up to MaxSentences sentences of text in their original
// order. Heading lines are ignored.
func (e *Extractive) Summarize(text string) string {
	var body []string
	for _, line := range strings.Split(text, "\n") {
		if headingLevel(strings.TrimSpace(line)) > 0 {
			continue
		}
		body = append(body, line)
	}

	var sentences []string
	for _, s := range sentencePattern.FindAllString(strings.Join(body, "\n"), -1) {
		if s = strings.TrimSpace(s); s != "" {
			sentences = append(sentences, s)
		}
	}
	if len(sentences) <= e.MaxSentences {
		return strings.Join(sentences, " ")
	}

	freq := make(map[string]float64)
	peak := 0.0
	for _, s := range sentences {
		for _, w := range contentWords(s) {
			freq[w]++
			peak = math.Max(peak, freq[w])
		}
	}

	type scored struct {
		idx   int
		score float64
	}
	ranked := make([]scored, len(sentences))
	for i, s := range sentences {
		words := contentWords(s)
		total := 0.0
		for _, w := range words {
			total += freq[w] / peak
		}
		if len(words) > 0 {
			total /= math.Sqrt(float64(len(words)))
		}
		ranked[i] = scored{idx: i, score: total}
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].score > ranked[j].score })

	picked := make([]int, e.MaxSentences)
	for i := range picked {
		picked[i] = ranked[i].idx
	}
	sort.Ints(picked)

	out := make([]string, len(picked))
	for i, idx := range picked {
		out[i] = sentences[idx]
	}
	return strings.Join(out, " ")
}

// SummarizeSections summarizes each section, keyed by section ID. Sections
// without any sentence are left out.
func (e *Extractive) SummarizeSections(sections []Section) map[string]string {
	out := make(map[string]string, len(sections))
	for _, s := range sections {
		if text := e.Summarize(s.Content); text != "" {
			out[s.ID] = text
		}
	}
	return out
}

func contentWords(sentence string) []string {
	var words []string
	for _, w := range wordPattern.FindAllString(strings.ToLower(sentence), -1) {
		if _, stop := stopwords[w]; !stop {
			words = append(words, w)
		}
	}
	return words
}
