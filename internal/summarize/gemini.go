package summarize

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// Gemini summarizes with a Google generative model
type Gemini struct {
	client *genai.Client
	model  *genai.GenerativeModel
	name   string
	prompt *Prompt
	logger *slog.Logger
}

// NewGemini creates a Gemini-backed summarizer
func NewGemini(ctx context.Context, config Config, prompt *Prompt, logger *slog.Logger) (*Gemini, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("gemini API key cannot be empty")
	}

	opts := []option.ClientOption{option.WithAPIKey(config.APIKey)}
	if config.BaseURL != "" {
		opts = append(opts, option.WithEndpoint(config.BaseURL))
	}

	client, err := genai.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	return &Gemini{
		client: client,
		model:  client.GenerativeModel(config.Model),
		name:   config.Model,
		prompt: prompt,
		logger: logger,
	}, nil
}

// Summarize sends the whole transcript in a single generation request
func (g *Gemini) Summarize(ctx context.Context, transcript string) (string, error) {
	prompt, err := g.prompt.Render(transcript)
	if err != nil {
		return "", err
	}

	startTime := time.Now()
	resp, err := g.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("gemini generation failed: %w", err)
	}

	summary := responseText(resp)
	if summary == "" {
		return "", ErrEmptySummary
	}

	g.logger.Debug("Summary generated",
		slog.String("provider", "gemini"),
		slog.String("model", g.name),
		slog.Int("prompt_chars", len(prompt)),
		slog.Int("summary_chars", len(summary)),
		slog.Duration("elapsed", time.Since(startTime)),
	)

	return summary, nil
}

// Close releases the client
func (g *Gemini) Close() error {
	return g.client.Close()
}

// responseText concatenates the text parts of the first candidate
func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			sb.WriteString(string(text))
		}
	}
	return strings.TrimSpace(sb.String())
}
