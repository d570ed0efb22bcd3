package knowledge

import (
	"context"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAISummarizer implements Summarizer with the chat completions API.
type OpenAISummarizer struct {
	client        *openai.Client
	apiKey        string
	model         string
	promptBuilder *PromptBuilder
}

func NewOpenAISummarizer(apiKey, model, baseURL string) *OpenAISummarizer {
	cfg := openai.DefaultConfig(apiKey)
	if url := strings.TrimSpace(baseURL); url != "" {
		cfg.BaseURL = strings.TrimSuffix(strings.TrimRight(url, "/"), "/chat/completions")
	}
	if strings.TrimSpace(model) == "" {
		model = openai.GPT4oMini
	}
	return &OpenAISummarizer{
		client:        openai.NewClientWithConfig(cfg),
		apiKey:        apiKey,
		model:         model,
		promptBuilder: &PromptBuilder{},
	}
}

func (s *OpenAISummarizer) SummarizeSection(ctx context.Context, title, text string) (string, error) {
	prompt := s.promptBuilder.BuildSectionSummaryPrompt(title, text)
	return s.generate(ctx, prompt)
}

func (s *OpenAISummarizer) generate(ctx context.Context, prompt string) (string, error) {
	if strings.TrimSpace(s.apiKey) == "" {
		return "", fmt.Errorf("openai api key is required")
	}

	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: s.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: 0.1,
	})
	if err != nil {
		return "", fmt.Errorf("openai chat request failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", nil
	}
	return cleanMarkdownOutput(resp.Choices[0].Message.Content), nil
}
