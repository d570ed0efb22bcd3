package knowledge

import (
	"context"
	"fmt"
	"strings"

	"docctx/internal/summary"
)

// Summarizer condenses one document section into a short abstract.
type Summarizer interface {
	SummarizeSection(ctx context.Context, title, text string) (string, error)
}

type SummarizerOptions struct {
	Provider     string
	APIKey       string
	Model        string
	BaseURL      string
	MaxSentences int
}

// NewSummarizer builds the summarizer for opts.Provider. An empty provider
// selects the offline extractive summarizer.
func NewSummarizer(ctx context.Context, opts SummarizerOptions) (Summarizer, error) {
	provider := strings.ToLower(strings.TrimSpace(opts.Provider))

	switch provider {
	case "", "extractive", "local":
		return &ExtractiveSummarizer{Extractive: summary.NewExtractive(opts.MaxSentences)}, nil
	case "gemini":
		return NewGeminiSummarizer(ctx, opts.APIKey, opts.Model)
	case "openai":
		return NewOpenAISummarizer(opts.APIKey, opts.Model, opts.BaseURL), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedProvider, opts.Provider)
	}
}

// ExtractiveSummarizer picks the highest scoring sentences of the section.
type ExtractiveSummarizer struct {
	*summary.Extractive
}

func (e *ExtractiveSummarizer) SummarizeSection(ctx context.Context, title, text string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return e.Summarize(text), nil
}

// SummarizeSections runs s over every section and returns the non-empty
// summaries by section ID. The first error stops the run.
func SummarizeSections(ctx context.Context, s Summarizer, sections []summary.Section) (map[string]string, error) {
	out := make(map[string]string, len(sections))
	for _, sec := range sections {
		text, err := s.SummarizeSection(ctx, sec.Title, sec.Content)
		if err != nil {
			return nil, fmt.Errorf("failed to summarize %q: %w", sec.Title, err)
		}
		if text != "" {
			out[sec.ID] = text
		}
	}
	return out, nil
}
