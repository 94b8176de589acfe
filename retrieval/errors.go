package retrieval

import "errors"

var (
	// ErrEmbedderRequired is returned when an EmbeddingStore has no embedder.
	ErrEmbedderRequired = errors.New("embedder is required")

	// ErrRepositoryRequired is returned when an EmbeddingStore has no repository.
	ErrRepositoryRequired = errors.New("knowledge repository is required")

	// ErrVectorStoreRequired is returned when a Retriever has no vector store.
	ErrVectorStoreRequired = errors.New("vector store is required")

	// ErrInvalidTimeout is returned for a non-positive timeout.
	ErrInvalidTimeout = errors.New("timeout must be greater than 0")

	// ErrEmptyEmbedding indicates the embedder returned no vector.
	ErrEmptyEmbedding = errors.New("embedder returned an empty vector")
)
