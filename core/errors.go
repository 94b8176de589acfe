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


package core

import "errors"

// Pipeline error taxonomy. Every one of these is absorbed at a component
// boundary and converted into the next fallback tier.
var (
	// ErrModerationBlocked indicates input was refused by the moderation gate.
	ErrModerationBlocked = errors.New("input blocked by moderation")

	// ErrRetrievalUnavailable indicates the vector store could not be queried.
	ErrRetrievalUnavailable = errors.New("retrieval unavailable")

	// ErrWebSearchExhausted indicates every web search provider failed or returned nothing.
	ErrWebSearchExhausted = errors.New("web search exhausted")

	// ErrSynthesisUnavailable indicates the language model failed to produce an answer.
	ErrSynthesisUnavailable = errors.New("synthesis unavailable")
)

// Domain validation errors
var (
	// ErrEmptyQuery indicates the query text is empty or not valid UTF-8.
	ErrEmptyQuery = errors.New("query cannot be empty")

	// ErrInvalidThreshold indicates a relevance threshold outside [0,1].
	ErrInvalidThreshold = errors.New("relevance threshold must be within [0,1]")

	// ErrEmptyContent indicates knowledge text is empty.
	ErrEmptyContent = errors.New("content cannot be empty")

	// ErrInvalidTopK indicates a non-positive result limit.
	ErrInvalidTopK = errors.New("top_k must be greater than 0")
)
