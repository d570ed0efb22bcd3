package chunker

import (
	"regexp"
	"strings"
)

// ChunkType classifies a span of a document.
type ChunkType string

const (
	TypeHeading   ChunkType = "heading"
	TypeParagraph ChunkType = "paragraph"
	TypeCaption   ChunkType = "caption"
	TypeReference ChunkType = "reference"
)

// Chunk is a typed span of a document. Start and End are byte offsets into
// the source; Text is the trimmed content of the span.
type Chunk struct {
	Type  ChunkType `json:"type"`
	Text  string    `json:"text"`
	Start int       `json:"start"`
	End   int       `json:"end"`
}

// Func turns document content into chunks. ChunkDocument is the default.
type Func func(content string) []Chunk

var (
	headingPattern  = regexp.MustCompile(`^#{1,6}\s*\S`)
	headingMarks    = regexp.MustCompile(`^#{1,6}\s*`)
	referencesTitle = regexp.MustCompile(`(?i)^(references|参考文献)\s*$`)
	captionPattern  = regexp.MustCompile(`(?i)^(figure|fig\.|図|表)\s*\d+[:.\-]`)
)

const referenceJoinSep = "\n\n"

// ChunkDocument splits content into heading, caption, paragraph and reference
// chunks in document order.
//
// Once a "References" (or "参考文献") heading is seen, every following
// paragraph is collected verbatim into a single trailing reference chunk,
// including text that would otherwise classify as a heading.
func ChunkDocument(content string) []Chunk {
	var chunks []Chunk
	var refs []Paragraph
	collecting := false

	for _, p := range ParseParagraphs(content) {
		text := strings.TrimSpace(p.Text)
		if text == "" {
			continue
		}
		if collecting {
			refs = append(refs, Paragraph{Text: text, Start: p.Start, End: p.End})
			continue
		}

		switch {
		case headingPattern.MatchString(text):
			chunks = append(chunks, Chunk{Type: TypeHeading, Text: text, Start: p.Start, End: p.End})
			if isReferencesHeading(text) {
				collecting = true
			}
		case captionPattern.MatchString(text):
			chunks = append(chunks, Chunk{Type: TypeCaption, Text: text, Start: p.Start, End: p.End})
		default:
			chunks = append(chunks, Chunk{Type: TypeParagraph, Text: text, Start: p.Start, End: p.End})
		}
	}

	if len(refs) > 0 {
		texts := make([]string, len(refs))
		for i, r := range refs {
			texts[i] = r.Text
		}
		chunks = append(chunks, Chunk{
			Type:  TypeReference,
			Text:  strings.Join(texts, referenceJoinSep),
			Start: refs[0].Start,
			End:   refs[len(refs)-1].End,
		})
	}

	return chunks
}

func isReferencesHeading(text string) bool {
	title := strings.TrimSpace(headingMarks.ReplaceAllString(text, ""))
	return referencesTitle.MatchString(title)
}
