// Package gemini implements ai.Completer using Google's genai SDK.
package gemini

import (
	"context"
	"log/slog"
	"strings"

	"github.com/poiesic/groundwork/ai"
	"google.golang.org/genai"
)

// Completer implements ai.Completer for Gemini models.
type Completer struct {
	client      *genai.Client
	model       string
	temperature float32
	logger      *slog.Logger
}

var _ ai.Completer = (*Completer)(nil)

// NewCompleter creates a Gemini completer using the Gemini API backend.
func NewCompleter(ctx context.Context, config *ai.Config) (ai.Completer, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  config.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, err
	}

	return &Completer{
		client:      client,
		model:       config.CompletionModel,
		temperature: float32(config.Temperature),
		logger:      slog.Default().With("component", "gemini-completer"),
	}, nil
}

// Complete generates a single-turn response and concatenates its text parts.
func (c *Completer) Complete(ctx context.Context, prompt string, maxTokens int) (string, error) {
	temperature := c.temperature
	result, err := c.client.Models.GenerateContent(ctx, c.model, genai.Text(prompt), &genai.GenerateContentConfig{
		Temperature:     &temperature,
		MaxOutputTokens: int32(maxTokens),
	})
	if err != nil {
		c.logger.Error("generate content failed", "model", c.model, "err", err)
		return "", err
	}

	if len(result.Candidates) == 0 || result.Candidates[0].Content == nil {
		return "", ai.ErrEmptyCompletion
	}

	var sb strings.Builder
	for _, part := range result.Candidates[0].Content.Parts {
		if part != nil {
			sb.WriteString(part.Text)
		}
	}
	text := strings.TrimSpace(sb.String())
	if text == "" {
		return "", ai.ErrEmptyCompletion
	}
	return text, nil
}
