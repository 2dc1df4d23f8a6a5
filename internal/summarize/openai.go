package summarize

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAI summarizes with any OpenAI-compatible chat completion endpoint
type OpenAI struct {
	client *openai.Client
	model  string
	prompt *Prompt
	logger *slog.Logger
}

// NewOpenAI creates an OpenAI-backed summarizer. BaseURL overrides the API root when set.
func NewOpenAI(config Config, prompt *Prompt, logger *slog.Logger) *OpenAI {
	clientConfig := openai.DefaultConfig(config.APIKey)
	if config.BaseURL != "" {
		clientConfig.BaseURL = config.BaseURL
	}

	return &OpenAI{
		client: openai.NewClientWithConfig(clientConfig),
		model:  config.Model,
		prompt: prompt,
		logger: logger,
	}
}

// Summarize sends the rendered prompt as a single user message
func (o *OpenAI) Summarize(ctx context.Context, transcript string) (string, error) {
	prompt, err := o.prompt.Render(transcript)
	if err != nil {
		return "", err
	}

	startTime := time.Now()
	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: o.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return "", fmt.Errorf("openai completion failed: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", ErrEmptySummary
	}
	summary := strings.TrimSpace(resp.Choices[0].Message.Content)
	if summary == "" {
		return "", ErrEmptySummary
	}

	o.logger.Debug("Summary generated",
		slog.String("provider", "openai"),
		slog.String("model", o.model),
		slog.Int("prompt_chars", len(prompt)),
		slog.Int("summary_chars", len(summary)),
		slog.Duration("elapsed", time.Since(startTime)),
	)

	return summary, nil
}

// Close is a no-op; the HTTP client holds no resources that need releasing
func (o *OpenAI) Close() error {
	return nil
}
