// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


// Package storage provides the storage abstraction layer for groundwork's
// knowledge base.
//
// This package defines the KnowledgeRepository interface that decouples the
// retriever from any particular vector database. Three backends ship with the
// module:
//
//   - storage/badger: embedded BadgerDB store with brute-force cosine search
//   - storage/chroma: ChromaDB collections over HTTP
//   - storage/pgvector: PostgreSQL with the pgvector extension
//
// # Constructor Return Type Pattern
//
// Public constructors return the storage.KnowledgeRepository interface:
//
//	repo, err := badger.NewKnowledgeRepository(backend)  // returns storage.KnowledgeRepository
//
// Consumers never couple to a specific backend, and tests can swap in an
// in-memory badger repository without modification.
//
// # Usage
//
//	backend, err := badger.OpenBackend("/path/to/db", false)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	repo, err := badger.NewKnowledgeRepository(backend)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer repo.Close()
//
// Use in tests with in-memory storage:
//
//	repo, backend, err := badger.NewMemoryKnowledgeRepository()
//
// # Vectors
//
// Stored vectors are normalized to unit length so cosine similarity reduces
// to a dot product. NormalizeVector performs that normalization.
//
// # Thread Safety
//
// All repository implementations must be thread-safe and support
// concurrent access from multiple goroutines.
package storage
