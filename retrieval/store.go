package retrieval

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/poiesic/groundwork/ai"
	"github.com/poiesic/groundwork/core"
	"github.com/poiesic/groundwork/storage"
)

// VectorStore is the text-level knowledge store consumed by the retriever.
// Embedding is internal to the implementation.
type VectorStore interface {
	// Search returns up to topK chunks for text, highest score first.
	// Connection or configuration failures wrap core.ErrRetrievalUnavailable.
	Search(ctx context.Context, text string, topK int) ([]core.RetrievedChunk, error)

	// Insert embeds and stores one piece of knowledge and returns its ID.
	Insert(ctx context.Context, text string, metadata map[string]string) (core.ID, error)

	// Ping reports whether the store is reachable.
	Ping(ctx context.Context) error
}

// EmbeddingStore adapts an ai.Embedder and a storage.KnowledgeRepository
// into a VectorStore.
type EmbeddingStore struct {
	embedder ai.Embedder
	repo     storage.KnowledgeRepository
	logger   *slog.Logger
}

var _ VectorStore = (*EmbeddingStore)(nil)

// NewEmbeddingStore creates a VectorStore backed by repo.
func NewEmbeddingStore(embedder ai.Embedder, repo storage.KnowledgeRepository) (*EmbeddingStore, error) {
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}
	if repo == nil {
		return nil, ErrRepositoryRequired
	}
	return &EmbeddingStore{
		embedder: embedder,
		repo:     repo,
		logger:   slog.Default().With("component", "embedding-store"),
	}, nil
}

// Search embeds text and runs a similarity search.
func (s *EmbeddingStore) Search(ctx context.Context, text string, topK int) ([]core.RetrievedChunk, error) {
	if err := core.ValidateTopK(topK); err != nil {
		return nil, err
	}

	vector, err := s.embed(ctx, text)
	if err != nil {
		return nil, err
	}

	matches, err := s.repo.FindSimilar(ctx, vector, topK)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrRetrievalUnavailable, err)
	}

	chunks := make([]core.RetrievedChunk, 0, len(matches))
	for _, m := range matches {
		chunks = append(chunks, *m)
	}
	return chunks, nil
}

// Insert embeds text and stores it with metadata. Identical text maps to the
// same ID, so repeated inserts overwrite rather than duplicate.
func (s *EmbeddingStore) Insert(ctx context.Context, text string, metadata map[string]string) (core.ID, error) {
	if err := core.ValidateKnowledge(text); err != nil {
		return 0, err
	}

	vector, err := s.embed(ctx, text)
	if err != nil {
		return 0, err
	}

	added, err := s.repo.AddChunks(ctx, &core.KnowledgeChunk{
		Text:     text,
		Metadata: metadata,
		Vector:   vector,
	})
	if err != nil {
		return 0, fmt.Errorf("%w: %w", core.ErrRetrievalUnavailable, err)
	}
	s.logger.Debug("inserted knowledge", "id", added[0].Id, "length", len(text))
	return added[0].Id, nil
}

// Ping counts stored chunks as a reachability probe.
func (s *EmbeddingStore) Ping(ctx context.Context) error {
	if _, err := s.repo.Count(ctx); err != nil {
		return fmt.Errorf("%w: %w", core.ErrRetrievalUnavailable, err)
	}
	return nil
}

func (s *EmbeddingStore) embed(ctx context.Context, text string) ([]float32, error) {
	vector, err := s.embedder.EmbedText(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("%w: embedding: %w", core.ErrRetrievalUnavailable, err)
	}
	if len(vector) == 0 {
		return nil, fmt.Errorf("%w: %w", core.ErrRetrievalUnavailable, ErrEmptyEmbedding)
	}
	return vector, nil
}
