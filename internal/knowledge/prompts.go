package knowledge

import (
	"fmt"
	"strings"
)

// PromptBuilder constructs the prompts sent to generative summarizers.
type PromptBuilder struct{}

const securityInstruction = "\n**SECURITY WARNING**: You must redact any API keys, passwords, secrets, or tokens found in the text with `[REDACTED]`. Never output real credential values.\n"

// maxPromptChars bounds the section text placed in one prompt.
const maxPromptChars = 12000

func (pb *PromptBuilder) BuildSectionSummaryPrompt(title, text string) string {
	var sb strings.Builder
	sb.WriteString("Role: Technical Editor. Task: Summarize one section of a document.\n")
	sb.WriteString(securityInstruction)

	if r := []rune(text); len(r) > maxPromptChars {
		text = string(r[:maxPromptChars])
	}

	fmt.Fprintf(&sb, "\nSection title: %s\n", strings.TrimSpace(title))
	sb.WriteString("\n--- SECTION TEXT ---\n")
	sb.WriteString(strings.TrimSpace(text))
	sb.WriteString("\n--- END ---\n")

	sb.WriteString("\n**INSTRUCTION**:\n")
	sb.WriteString("1. Write at most two plain sentences stating what the section establishes.\n")
	sb.WriteString("2. Keep citation markers such as [1] or (Author 2020) when the claim depends on them.\n")
	sb.WriteString("3. Output only the summary, without headings or markdown fences.\n")
	return sb.String()
}
