package window

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var citedParagraphs = []string{
	"Intro without citation.",
	"Background [2] with citation and details.",
	"Observation nearby without cite.",
	"Cursor paragraph content without citation.",
	"Result (Doe, 2021) with a second citation.",
	"Postscript without important info.",
}

func longParagraphs() []string {
	return []string{
		strings.Repeat("Intro ", 30),
		strings.Repeat("Cursor paragraph with extensive details ", 15) + "and still going.",
		strings.Repeat("Trailing paragraph with citation [12] and descriptive follow-up ", 10),
	}
}

func totalLength(sel []SelectedParagraph) int {
	if len(sel) == 0 {
		return 0
	}
	n := separatorChars * (len(sel) - 1)
	for _, p := range sel {
		n += utf8.RuneCountInString(p.Text)
	}
	return n
}

func indices(sel []SelectedParagraph) []int {
	out := make([]int, len(sel))
	for i, p := range sel {
		out[i] = p.Index
	}
	return out
}

func TestSelect_KeepsCitationsNearCursor(t *testing.T) {
	sel := Select(citedParagraphs, 3, 2, WithMaxTotalChars(120))

	assert.Equal(t, []int{1, 3, 4}, indices(sel))
	assert.LessOrEqual(t, totalLength(sel), 120)
	assert.True(t, sel[0].HasCitation)
	assert.False(t, sel[1].HasCitation)
	assert.True(t, sel[2].HasCitation)
	assert.Equal(t, citedParagraphs[3], sel[1].Text)
	assert.True(t, strings.HasSuffix(sel[0].Text, ellipsis))
}

func TestSelect_WithoutCitationPriority(t *testing.T) {
	sel := Select(citedParagraphs, 3, 2, WithMaxTotalChars(120), WithCitationPriority(false))

	assert.Equal(t, []int{2, 3, 4}, indices(sel))
	assert.LessOrEqual(t, totalLength(sel), 120)
}

func TestSelect_TrimsCursorParagraph(t *testing.T) {
	sel := Select(longParagraphs(), 1, 1, WithMaxTotalChars(220))

	require.NotEmpty(t, sel)
	assert.LessOrEqual(t, totalLength(sel), 220)

	var cursor *SelectedParagraph
	for i := range sel {
		if sel[i].Index == 1 {
			cursor = &sel[i]
		}
	}
	require.NotNil(t, cursor, "cursor paragraph must be kept")
	assert.True(t, strings.HasSuffix(cursor.Text, ellipsis))
	assert.Equal(t, minParagraphChars, utf8.RuneCountInString(cursor.Text))
}

func TestSelect_ShortensBeforeDropping(t *testing.T) {
	paragraphs := []string{
		strings.Repeat("a", 200),
		strings.Repeat("b", 1000),
		strings.Repeat("c", 200),
	}

	sel := Select(paragraphs, 1, 1, WithMaxTotalChars(1100))

	require.Equal(t, []int{0, 1, 2}, indices(sel), "neighbours are kept once shortened")
	lengths := make([]int, len(sel))
	for i, p := range sel {
		lengths[i] = utf8.RuneCountInString(p.Text)
	}
	assert.Equal(t, []int{minParagraphChars, 936, minParagraphChars}, lengths)
	assert.Equal(t, 1100, totalLength(sel))
}

func TestSelect_NeverExceedsBudget(t *testing.T) {
	inputs := map[string][]string{
		"cited": citedParagraphs,
		"long":  longParagraphs(),
	}

	for name, paragraphs := range inputs {
		t.Run(name, func(t *testing.T) {
			for limit := 1; limit <= 400; limit += 7 {
				for cursor := range paragraphs {
					sel := Select(paragraphs, cursor, 2, WithMaxTotalChars(limit))
					require.NotEmpty(t, sel)
					assert.LessOrEqual(t, totalLength(sel), limit, "limit=%d cursor=%d", limit, cursor)
					for i := 1; i < len(sel); i++ {
						assert.Less(t, sel[i-1].Index, sel[i].Index)
					}
				}
			}
		})
	}
}

func TestSelect_FitsWithoutChanges(t *testing.T) {
	sel := Select(citedParagraphs, 0, 1)

	assert.Equal(t, []int{0, 1}, indices(sel))
	assert.Equal(t, citedParagraphs[0], sel[0].Text)
	assert.Equal(t, citedParagraphs[1], sel[1].Text)
}

func TestSelect_EdgeCases(t *testing.T) {
	t.Run("empty input", func(t *testing.T) {
		assert.Empty(t, Select(nil, 0, 3))
	})

	t.Run("negative radius keeps only cursor", func(t *testing.T) {
		sel := Select(citedParagraphs, 2, -4)
		assert.Equal(t, []int{2}, indices(sel))
	})

	t.Run("cursor past the end is clamped", func(t *testing.T) {
		sel := Select(citedParagraphs, 99, 1)
		assert.Equal(t, []int{4, 5}, indices(sel))
	})

	t.Run("window clipped at the start", func(t *testing.T) {
		sel := Select(citedParagraphs, 0, 2)
		assert.Equal(t, []int{0, 1, 2}, indices(sel))
	})
}

func TestHasCitation(t *testing.T) {
	tests := []struct {
		text string
		want bool
	}{
		{"as shown in [1]", true},
		{"see [123] for details", true},
		{"not a cite [1234]", false},
		{"(Doe, 2021)", true},
		{"(see Smith et al. 1999)", true},
		{"(2021)", false},
		{"plain text", false},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			assert.Equal(t, tt.want, HasCitation(tt.text))
		})
	}
}

func TestCandidateShorten(t *testing.T) {
	c := &candidate{text: "日本語のテキストです", length: 10}
	c.shorten(4)
	assert.Equal(t, "日本語"+ellipsis, c.text)
	assert.Equal(t, 4, c.length)

	c.shorten(0)
	assert.Equal(t, ellipsis, c.text)
	assert.Equal(t, 1, c.length)
}
