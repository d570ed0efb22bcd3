package knowledge

import (
	"regexp"
	"strings"
)

var (
	fencePattern       = regexp.MustCompile("^```[a-zA-Z]*\\s*\\n?|\\n?```\\s*$")
	summaryLabelPrefix = regexp.MustCompile(`(?i)^\s*(\*\*)?summary(\*\*)?\s*:\s*`)
)

// cleanMarkdownOutput strips the code fences and "Summary:" labels models
// tend to wrap answers in.
func cleanMarkdownOutput(text string) string {
	text = strings.TrimSpace(text)
	text = fencePattern.ReplaceAllString(text, "")
	text = summaryLabelPrefix.ReplaceAllString(text, "")
	return strings.TrimSpace(text)
}
