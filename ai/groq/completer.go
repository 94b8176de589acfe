// Package groq implements ai.Completer against Groq's OpenAI-compatible API
// using the go-openai client.
package groq

import (
	"context"
	"log/slog"
	"strings"

	"github.com/poiesic/groundwork/ai"
	goopenai "github.com/sashabaranov/go-openai"
)

// Completer implements ai.Completer for Groq-hosted models.
type Completer struct {
	client      *goopenai.Client
	model       string
	temperature float32
	logger      *slog.Logger
}

var _ ai.Completer = (*Completer)(nil)

// NewCompleter creates a Groq completer from config. The config's
// CompletionHost is used as the API base URL.
func NewCompleter(config *ai.Config) (ai.Completer, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	clientConfig := goopenai.DefaultConfig(config.APIKey)
	clientConfig.BaseURL = config.CompletionHost

	return &Completer{
		client:      goopenai.NewClientWithConfig(clientConfig),
		model:       config.CompletionModel,
		temperature: float32(config.Temperature),
		logger:      slog.Default().With("component", "groq-completer"),
	}, nil
}

// Complete sends the prompt as a single user message.
func (c *Completer) Complete(ctx context.Context, prompt string, maxTokens int) (string, error) {
	resp, err := c.client.CreateChatCompletion(ctx, goopenai.ChatCompletionRequest{
		Model: c.model,
		Messages: []goopenai.ChatCompletionMessage{
			{Role: goopenai.ChatMessageRoleUser, Content: prompt},
		},
		MaxTokens:   maxTokens,
		Temperature: c.temperature,
	})
	if err != nil {
		c.logger.Error("chat completion failed", "model", c.model, "err", err)
		return "", err
	}

	if len(resp.Choices) == 0 {
		return "", ai.ErrEmptyCompletion
	}
	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return "", ai.ErrEmptyCompletion
	}
	return text, nil
}
