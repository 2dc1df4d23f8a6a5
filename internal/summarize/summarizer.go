package summarize

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"text/template"
)

// ErrEmptySummary is returned when the model produced no text
var ErrEmptySummary = errors.New("model returned an empty summary")

// Config contains summarizer configuration
type Config struct {
	Provider       string // "gemini" or "openai"
	Model          string
	APIKey         string
	BaseURL        string
	PromptTemplate string
}

// Summarizer turns a transcript into a summary
type Summarizer interface {
	Summarize(ctx context.Context, transcript string) (string, error)
	Close() error
}

// Prompt renders the instruction template around a transcript
type Prompt struct {
	tmpl *template.Template
}

// NewPrompt parses a template referencing {{.Transcript}}
func NewPrompt(text string) (*Prompt, error) {
	if !strings.Contains(text, "{{.Transcript}}") {
		return nil, fmt.Errorf("prompt template must reference {{.Transcript}}")
	}
	tmpl, err := template.New("prompt").Option("missingkey=error").Parse(text)
	if err != nil {
		return nil, fmt.Errorf("failed to parse prompt template: %w", err)
	}
	return &Prompt{tmpl: tmpl}, nil
}

// Render returns the full prompt for the transcript
func (p *Prompt) Render(transcript string) (string, error) {
	var sb strings.Builder
	if err := p.tmpl.Execute(&sb, struct{ Transcript string }{transcript}); err != nil {
		return "", fmt.Errorf("failed to render prompt: %w", err)
	}
	return sb.String(), nil
}

// New creates the summarizer for the configured provider
func New(ctx context.Context, config Config, logger *slog.Logger) (Summarizer, error) {
	prompt, err := NewPrompt(config.PromptTemplate)
	if err != nil {
		return nil, err
	}

	switch config.Provider {
	case "gemini", "":
		return NewGemini(ctx, config, prompt, logger)
	case "openai":
		return NewOpenAI(config, prompt, logger), nil
	default:
		return nil, fmt.Errorf("unknown summarizer provider %q", config.Provider)
	}
}
