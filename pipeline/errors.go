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


package pipeline

import "errors"

var (
	// ErrModeratorRequired is returned when no moderation gate is provided.
	ErrModeratorRequired = errors.New("moderator required")

	// ErrRetrieverRequired is returned when no retriever is provided.
	ErrRetrieverRequired = errors.New("retriever required")

	// ErrWebSearcherRequired is returned when no web searcher is provided.
	ErrWebSearcherRequired = errors.New("web searcher required")

	// ErrSynthesizerRequired is returned when no synthesizer is provided.
	ErrSynthesizerRequired = errors.New("synthesizer required")

	// ErrMemoryRequired is returned when no conversation memory is provided.
	ErrMemoryRequired = errors.New("conversation memory required")

	// ErrRequestFailed marks a request that ended in the Failed state.
	ErrRequestFailed = errors.New("request failed")
)
