package window

import (
	"regexp"
	"sort"
	"unicode/utf8"
)

const (
	// DefaultMaxTotalChars is the budget used when none is configured.
	DefaultMaxTotalChars = 1600

	minParagraphChars = 80
	separatorChars    = 2
	ellipsis          = "…"
)

var citationPattern = regexp.MustCompile(`\[[0-9]{1,3}\]|\([A-Za-z][^)]+?\d{4}\)`)

// SelectedParagraph is a paragraph kept by Select, possibly shortened.
type SelectedParagraph struct {
	Index       int    `json:"index"`
	Text        string `json:"text"`
	HasCitation bool   `json:"hasCitation"`
}

type options struct {
	maxTotalChars       int
	prioritizeCitations bool
}

// Option configures Select.
type Option func(*options)

// WithMaxTotalChars sets the character budget for the joined selection.
// Non-positive values keep the default.
func WithMaxTotalChars(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxTotalChars = n
		}
	}
}

// WithCitationPriority controls whether paragraphs carrying citations are
// kept in preference to those without.
func WithCitationPriority(enabled bool) Option {
	return func(o *options) {
		o.prioritizeCitations = enabled
	}
}

// HasCitation reports whether text contains a numeric bracket citation such
// as "[12]" or an author-year parenthetical such as "(Doe, 2021)".
func HasCitation(text string) bool {
	return citationPattern.MatchString(text)
}

// Select picks the paragraphs within radius of cursor and shrinks the set
// until the paragraphs joined by blank lines fit the character budget.
// Lengths are counted in runes. The result is ordered by paragraph index.
func Select(paragraphs []string, cursor, radius int, opts ...Option) []SelectedParagraph {
	if len(paragraphs) == 0 {
		return nil
	}

	o := options{maxTotalChars: DefaultMaxTotalChars, prioritizeCitations: true}
	for _, opt := range opts {
		opt(&o)
	}

	radius = max(0, radius)
	cursor = min(max(0, cursor), len(paragraphs)-1)
	first := max(0, cursor-radius)
	last := min(len(paragraphs)-1, cursor+radius)

	var cands []*candidate
	for i := first; i <= last; i++ {
		text := paragraphs[i]
		cands = append(cands, &candidate{
			index:    i,
			distance: abs(i - cursor),
			text:     text,
			length:   utf8.RuneCountInString(text),
			citation: HasCitation(text),
		})
	}

	b := &budget{
		limit:  o.maxTotalChars,
		cursor: cursor,
		prefer: o.prioritizeCitations,
		cands:  dedupe(prioritize(cands, o.prioritizeCitations)),
	}
	b.enforce()

	kept := b.cands
	sort.Slice(kept, func(i, j int) bool { return kept[i].index < kept[j].index })

	out := make([]SelectedParagraph, len(kept))
	for i, c := range kept {
		out[i] = SelectedParagraph{Index: c.index, Text: c.text, HasCitation: c.citation}
	}
	return out
}

type candidate struct {
	index    int
	distance int
	text     string
	length   int
	citation bool
}

// shorten cuts the text to n runes, the last of which is an ellipsis.
func (c *candidate) shorten(n int) {
	if c.length <= n {
		return
	}
	n = max(1, n)
	runes := []rune(c.text)
	c.text = string(runes[:n-1]) + ellipsis
	c.length = n
}

// prioritize orders candidates by ascending distance from the cursor, with
// citation-bearing ones first when enabled.
func prioritize(cands []*candidate, citationsFirst bool) []*candidate {
	sorted := append([]*candidate(nil), cands...)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if citationsFirst && a.citation != b.citation {
			return a.citation
		}
		return a.distance < b.distance
	})
	return sorted
}

// dedupe keeps one entry per paragraph index; a later entry replaces an
// earlier one in place.
func dedupe(cands []*candidate) []*candidate {
	pos := make(map[int]int, len(cands))
	out := make([]*candidate, 0, len(cands))
	for _, c := range cands {
		if i, ok := pos[c.index]; ok {
			out[i] = c
			continue
		}
		pos[c.index] = len(out)
		out = append(out, c)
	}
	return out
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
