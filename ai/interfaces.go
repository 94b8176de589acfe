package ai

import "context"

// Embedder generates vector embeddings from text for semantic similarity search.
// Implementations must be thread-safe for concurrent use.
type Embedder interface {
	// EmbedText generates a vector embedding for a single text string.
	// The returned vector represents the semantic meaning of the text.
	// Returns an error if the embedding generation fails.
	EmbedText(ctx context.Context, text string) ([]float32, error)

	// EmbedTexts generates vector embeddings for multiple text strings in a batch.
	// Batch processing is more efficient than calling EmbedText multiple times.
	// The returned slice contains embeddings in the same order as the input texts.
	// Returns an error if any embedding generation fails.
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// Completer produces text from a prompt using a language model.
// Implementations must be thread-safe for concurrent use.
type Completer interface {
	// Complete sends prompt to the model and returns its reply, limited to
	// maxTokens output tokens. An empty reply is reported as ErrEmptyCompletion.
	Complete(ctx context.Context, prompt string, maxTokens int) (string, error)
}

// AIProvider aggregates AI services for convenient initialization and lifecycle management.
type AIProvider interface {
	// Embedder returns the text embedding service.
	// The returned Embedder is safe for concurrent use.
	Embedder() Embedder

	// Completer returns the completion service.
	// The returned Completer is safe for concurrent use.
	Completer() Completer

	// Close releases resources held by the provider and its services.
	// After Close is called, the provider and its services should not be used.
	Close() error
}

// combined pairs an embedder and a completer from different backends.
type combined struct {
	embedder  Embedder
	completer Completer
}

// Combine builds an AIProvider from independently constructed services.
func Combine(embedder Embedder, completer Completer) AIProvider {
	return &combined{embedder: embedder, completer: completer}
}

func (c *combined) Embedder() Embedder   { return c.embedder }
func (c *combined) Completer() Completer { return c.completer }
func (c *combined) Close() error         { return nil }
