// Package retrieval implements the relevance-gated retriever.
//
// A Retriever asks a VectorStore for the top-k chunks for a question and
// returns a Result. Result.Sufficient(threshold) is the branch point of the
// whole fallback chain: local knowledge suffices iff the best score is at
// least the threshold. Store failures never propagate; they produce an
// empty Result so the pipeline falls through to web search.
//
// EmbeddingStore is the standard VectorStore: it embeds text with an
// ai.Embedder and delegates similarity search to any
// storage.KnowledgeRepository (badger, chroma, pgvector).
package retrieval
