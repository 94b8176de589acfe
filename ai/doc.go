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


// Package ai provides abstractions for the AI services groundwork depends on.
//
// Two capabilities are modelled:
//
//   - Embedder: turns text into vectors for the knowledge store
//   - Completer: turns a grounded prompt into an answer
//
// AIProvider bundles both for lifecycle management.
//
// # Implementation Packages
//
//   - ai/openai: langchaingo client for any OpenAI-compatible server (embeddings and completions)
//   - ai/groq: go-openai client for Groq's hosted models (completions)
//   - ai/gemini: Google genai client (completions)
//   - ai/mock: test doubles for unit testing without external dependencies
//
// Embeddings always come from an OpenAI-compatible endpoint; the completion
// backend is chosen by Config.CompletionBackend. Combine joins an embedder and
// a completer from different packages into one AIProvider.
//
// # Constructor Return Type Pattern
//
// Public constructors return interface types (ai.Embedder, ai.Completer,
// ai.AIProvider). Mock constructors return concrete types so tests can inject
// behavior and assert call counts:
//
//	completer := mock.NewMockCompleter()
//	completer.CompleteFunc = func(ctx context.Context, prompt string, maxTokens int) (string, error) {
//	    return "", context.DeadlineExceeded
//	}
//	count := completer.CallCount()
//
// # Usage Example
//
//	config := ai.NewConfig(
//	    ai.WithCompletionBackend(ai.BackendGroq),
//	    ai.WithAPIKey(os.Getenv("GROQ_API_KEY")),
//	)
//	embedder, err := openai.NewEmbedder(config)
//	completer, err := groq.NewCompleter(config)
//	provider := ai.Combine(embedder, completer)
package ai
