package summary

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

// Section is a heading-delimited part of a markdown or text document.
type Section struct {
	ID      string
	Title   string
	Level   int
	Content string
}

// SplitSections splits content at markdown headings. Text before the first
// heading becomes an "Introduction" section at level 0. Section IDs are
// derived from the file name and title, so they survive edits to the body.
func SplitSections(filename, content string) []Section {
	var sections []Section
	lines := strings.Split(content, "\n")
	if strings.HasSuffix(content, "\n") {
		lines = lines[:len(lines)-1]
	}

	title := "Introduction"
	level := 0
	seen := make(map[string]int)
	var body strings.Builder

	flush := func() {
		if strings.TrimSpace(body.String()) == "" {
			return
		}
		sections = append(sections, newSection(filename, title, level, body.String(), seen))
	}

	for _, line := range lines {
		line = strings.TrimSuffix(line, "\r")
		if n := headingLevel(strings.TrimSpace(line)); n > 0 {
			flush()
			title = strings.TrimSpace(strings.TrimSpace(line)[n:])
			level = n
			body.Reset()
		}
		body.WriteString(line + "\n")
	}
	flush()

	return sections
}

// headingLevel returns the ATX heading level of a trimmed line, or 0.
func headingLevel(trimmed string) int {
	level := 0
	for level < len(trimmed) && trimmed[level] == '#' {
		level++
	}
	if level == 0 || level > 6 || len(trimmed) <= level || trimmed[level] != ' ' {
		return 0
	}
	return level
}

func newSection(filename, title string, level int, content string, seen map[string]int) Section {
	key := fmt.Sprintf("%s:%s", filename, title)
	if n := seen[key]; n > 0 {
		key = fmt.Sprintf("%s#%d", key, n)
	}
	seen[fmt.Sprintf("%s:%s", filename, title)]++

	hash := sha256.Sum256([]byte(key))
	return Section{
		ID:      hex.EncodeToString(hash[:]),
		Title:   title,
		Level:   level,
		Content: content,
	}
}
