// Package chroma stores knowledge in a ChromaDB collection.
//
// The collection is created with cosine distance, and similarity scores are
// reported as 1 - distance. Chunk ids are the hex form of their content ids.
package chroma
