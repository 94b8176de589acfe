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


package storage

import (
	"context"

	"github.com/poiesic/groundwork/core"
)

// KnowledgeRepository stores embedded knowledge chunks and answers vector
// similarity queries over them.
// Implementations must be thread-safe and support concurrent access.
type KnowledgeRepository interface {
	// AddChunks stores one or more chunks. Chunks with ID=0 are assigned
	// content-based IDs, so inserting identical text twice is idempotent.
	// Sets InsertedAt if not already set.
	AddChunks(ctx context.Context, chunks ...*core.KnowledgeChunk) ([]*core.KnowledgeChunk, error)

	// FindSimilar returns up to limit chunks most similar to vector.
	// Results are ordered by score (highest first) with scores in [0,1];
	// equal scores keep the store's iteration order.
	FindSimilar(ctx context.Context, vector []float32, limit int) ([]*core.RetrievedChunk, error)

	// Count returns the number of stored chunks.
	Count(ctx context.Context) (int, error)

	// Close releases resources held by the repository.
	Close() error
}
