package chunker

// Paragraph is a blank-line delimited span of a document with its raw text.
type Paragraph struct {
	Text  string
	Start int
	End   int
}

// ParseParagraphs splits content on blank lines (\r?\n\r?\n). A paragraph
// starts at the first character that is not a line break and runs up to the
// next blank line or the end of input, so trailing single newlines stay part
// of the last paragraph.
func ParseParagraphs(content string) []Paragraph {
	var out []Paragraph
	n := len(content)

	for i := 0; i < n; {
		if content[i] == '\r' || content[i] == '\n' {
			i++
			continue
		}

		start, end := i, n
		for j := start + 1; j < n; j++ {
			if blankLineAt(content, j) {
				end = j
				break
			}
		}
		out = append(out, Paragraph{Text: content[start:end], Start: start, End: end})
		i = end
	}

	return out
}

// ParagraphIndexAt returns the index of the paragraph containing offset. An
// offset that falls between paragraphs maps to the preceding one, and one
// before the first paragraph maps to 0. It returns -1 for an empty list.
func ParagraphIndexAt(paragraphs []Paragraph, offset int) int {
	if len(paragraphs) == 0 {
		return -1
	}
	idx := 0
	for i, p := range paragraphs {
		if p.Start > offset {
			break
		}
		idx = i
	}
	return idx
}

// Texts returns the raw text of each paragraph.
func Texts(paragraphs []Paragraph) []string {
	out := make([]string, len(paragraphs))
	for i, p := range paragraphs {
		out[i] = p.Text
	}
	return out
}

func blankLineAt(s string, i int) bool {
	if s[i] == '\r' {
		i++
		if i >= len(s) {
			return false
		}
	}
	if s[i] != '\n' {
		return false
	}
	i++
	if i < len(s) && s[i] == '\r' {
		i++
	}
	return i < len(s) && s[i] == '\n'
}
