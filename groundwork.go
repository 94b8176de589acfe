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


// Package groundwork answers questions from a local knowledge base, falling
// back to web search when stored knowledge is not relevant enough, and keeps
// a short conversation history per session.
package groundwork

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/poiesic/groundwork/ai"
	"github.com/poiesic/groundwork/ai/gemini"
	"github.com/poiesic/groundwork/ai/groq"
	"github.com/poiesic/groundwork/ai/openai"
	"github.com/poiesic/groundwork/core"
	"github.com/poiesic/groundwork/ingest"
	"github.com/poiesic/groundwork/memory"
	"github.com/poiesic/groundwork/moderation"
	"github.com/poiesic/groundwork/pipeline"
	"github.com/poiesic/groundwork/retrieval"
	"github.com/poiesic/groundwork/storage"
	"github.com/poiesic/groundwork/storage/badger"
	"github.com/poiesic/groundwork/synthesis"
	"github.com/poiesic/groundwork/websearch"
)

// DefaultSweepInterval is how often idle sessions are evicted.
const DefaultSweepInterval = 10 * time.Minute

// Assistant wires the query pipeline to its stores and services.
type Assistant struct {
	backend      *badger.Backend
	repo         storage.KnowledgeRepository
	provider     ai.AIProvider
	gate         *moderation.Gate
	memory       *memory.Store
	retriever    *retrieval.Retriever
	aggregator   *websearch.Aggregator
	orchestrator *pipeline.Orchestrator
	inserter     *ingest.Inserter
	stopSweeper  context.CancelFunc
	logger       *slog.Logger
}

// AssistantOption configures an Assistant.
type AssistantOption func(*assistantOptions)

type assistantOptions struct {
	dataPath        string
	inMemory        bool
	repo            storage.KnowledgeRepository
	aiConfig        *ai.Config
	provider        ai.AIProvider
	searchProviders []websearch.Provider
	serperAPIKey    string
	policy          *moderation.Policy
	sweepInterval   time.Duration
	memoryOpts      []memory.Option
	retrievalOpts   []retrieval.Option
	webSearchOpts   []websearch.Option
	synthesisOpts   []synthesis.Option
	pipelineOpts    []pipeline.Option
	ingestOpts      []ingest.Option
}

// WithDataPath stores knowledge in an embedded badger database at path.
func WithDataPath(path string) AssistantOption {
	return func(o *assistantOptions) {
		o.dataPath = path
		o.inMemory = false
	}
}

// WithInMemoryStore keeps knowledge in an in-memory badger database.
func WithInMemoryStore() AssistantOption {
	return func(o *assistantOptions) {
		o.inMemory = true
	}
}

// WithKnowledgeRepository uses repo instead of badger. The Assistant closes
// it on Close.
func WithKnowledgeRepository(repo storage.KnowledgeRepository) AssistantOption {
	return func(o *assistantOptions) {
		o.repo = repo
	}
}

// WithAIConfig sets the configuration used to build the AI provider.
func WithAIConfig(config *ai.Config) AssistantOption {
	return func(o *assistantOptions) {
		o.aiConfig = config
	}
}

// WithAIProvider uses provider instead of building one from config.
func WithAIProvider(provider ai.AIProvider) AssistantOption {
	return func(o *assistantOptions) {
		o.provider = provider
	}
}

// WithSearchProviders replaces the default Serper, Wikipedia, DuckDuckGo
// chain. Order is priority order.
func WithSearchProviders(providers ...websearch.Provider) AssistantOption {
	return func(o *assistantOptions) {
		o.searchProviders = providers
	}
}

// WithSerperAPIKey sets the key for the default Serper provider.
func WithSerperAPIKey(key string) AssistantOption {
	return func(o *assistantOptions) {
		o.serperAPIKey = key
	}
}

// WithPolicy sets the moderation policy.
func WithPolicy(p moderation.Policy) AssistantOption {
	return func(o *assistantOptions) {
		o.policy = &p
	}
}

// WithSweepInterval sets how often idle sessions are evicted.
func WithSweepInterval(d time.Duration) AssistantOption {
	return func(o *assistantOptions) {
		o.sweepInterval = d
	}
}

// WithMemoryOptions passes options to the conversation memory.
func WithMemoryOptions(opts ...memory.Option) AssistantOption {
	return func(o *assistantOptions) {
		o.memoryOpts = append(o.memoryOpts, opts...)
	}
}

// WithRetrievalOptions passes options to the retriever.
func WithRetrievalOptions(opts ...retrieval.Option) AssistantOption {
	return func(o *assistantOptions) {
		o.retrievalOpts = append(o.retrievalOpts, opts...)
	}
}

// WithWebSearchOptions passes options to the web search aggregator.
func WithWebSearchOptions(opts ...websearch.Option) AssistantOption {
	return func(o *assistantOptions) {
		o.webSearchOpts = append(o.webSearchOpts, opts...)
	}
}

// WithSynthesisOptions passes options to the synthesizer.
func WithSynthesisOptions(opts ...synthesis.Option) AssistantOption {
	return func(o *assistantOptions) {
		o.synthesisOpts = append(o.synthesisOpts, opts...)
	}
}

// WithPipelineOptions passes options to the orchestrator.
func WithPipelineOptions(opts ...pipeline.Option) AssistantOption {
	return func(o *assistantOptions) {
		o.pipelineOpts = append(o.pipelineOpts, opts...)
	}
}

// WithIngestOptions passes options to the knowledge inserter.
func WithIngestOptions(opts ...ingest.Option) AssistantOption {
	return func(o *assistantOptions) {
		o.ingestOpts = append(o.ingestOpts, opts...)
	}
}

// NewAssistant builds an Assistant. Without a repository option knowledge
// lives in badger at the data path; without a provider option the AI
// provider is built from the AI config (ai.DefaultConfig if unset).
func NewAssistant(ctx context.Context, opts ...AssistantOption) (_ *Assistant, err error) {
	options := &assistantOptions{
		aiConfig:      ai.DefaultConfig(),
		sweepInterval: DefaultSweepInterval,
	}
	for _, opt := range opts {
		opt(options)
	}

	a := &Assistant{logger: slog.Default().With("component", "assistant")}
	defer func() {
		if err != nil {
			_ = a.Close()
		}
	}()

	a.repo = options.repo
	if a.repo == nil {
		if !options.inMemory && options.dataPath == "" {
			return nil, ErrDataPathRequired
		}
		a.backend, err = badger.OpenBackend(options.dataPath, options.inMemory)
		if err != nil {
			return nil, err
		}
		a.repo, err = badger.NewKnowledgeRepository(a.backend)
		if err != nil {
			return nil, err
		}
	}

	a.provider = options.provider
	if a.provider == nil {
		a.provider, err = NewAIProvider(ctx, options.aiConfig)
		if err != nil {
			return nil, err
		}
	}

	policy := moderation.DefaultPolicy()
	if options.policy != nil {
		policy = *options.policy
	}
	if a.gate, err = moderation.NewGate(moderation.WithPolicy(policy)); err != nil {
		return nil, err
	}

	if a.memory, err = memory.NewStore(options.memoryOpts...); err != nil {
		return nil, err
	}

	store, err := retrieval.NewEmbeddingStore(a.provider.Embedder(), a.repo)
	if err != nil {
		return nil, err
	}
	if a.retriever, err = retrieval.NewRetriever(store, options.retrievalOpts...); err != nil {
		return nil, err
	}

	providers := options.searchProviders
	if len(providers) == 0 {
		providers = DefaultSearchProviders(options.serperAPIKey)
	}
	if a.aggregator, err = websearch.NewAggregator(providers, options.webSearchOpts...); err != nil {
		return nil, err
	}

	synth, err := synthesis.NewSynthesizer(a.provider.Completer(), options.synthesisOpts...)
	if err != nil {
		return nil, err
	}

	a.orchestrator, err = pipeline.NewOrchestrator(a.gate, a.retriever, a.aggregator, synth, a.memory, options.pipelineOpts...)
	if err != nil {
		return nil, err
	}

	if a.inserter, err = ingest.NewInserter(a.retriever, options.ingestOpts...); err != nil {
		return nil, err
	}

	if options.sweepInterval > 0 {
		sweepCtx, cancel := context.WithCancel(context.Background())
		a.stopSweeper = cancel
		go a.memory.Run(sweepCtx, options.sweepInterval)
	}

	return a, nil
}

// NewAIProvider builds embeddings from the OpenAI-compatible endpoint and
// completions from the configured backend.
func NewAIProvider(ctx context.Context, config *ai.Config) (ai.AIProvider, error) {
	if config == nil {
		return nil, ai.ErrConfigRequired
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.CompletionBackend {
	case ai.BackendOpenAI:
		return openai.NewProvider(config)
	case ai.BackendGroq, ai.BackendGemini:
		embedder, err := openai.NewEmbedder(config)
		if err != nil {
			return nil, err
		}
		var completer ai.Completer
		if config.CompletionBackend == ai.BackendGroq {
			completer, err = groq.NewCompleter(config)
		} else {
			completer, err = gemini.NewCompleter(ctx, config)
		}
		if err != nil {
			return nil, err
		}
		return ai.Combine(embedder, completer), nil
	}
	return nil, fmt.Errorf("%w: %q", ai.ErrUnknownBackend, config.CompletionBackend)
}

// DefaultSearchProviders returns Serper, Wikipedia and DuckDuckGo in
// priority order. Serper fails fast without a key.
func DefaultSearchProviders(serperAPIKey string) []websearch.Provider {
	return []websearch.Provider{
		websearch.NewSerper(serperAPIKey),
		websearch.NewWikipedia(),
		websearch.NewDuckDuckGo(),
	}
}

// Close stops background work and releases stores and services.
func (a *Assistant) Close() error {
	if a.stopSweeper != nil {
		a.stopSweeper()
	}
	if a.inserter != nil {
		a.inserter.Release()
	}
	if a.orchestrator != nil {
		a.orchestrator.Close()
	}

	var errs []error
	if a.provider != nil {
		if err := a.provider.Close(); err != nil {
			a.logger.Error("error closing AI provider", "err", err)
			errs = append(errs, err)
		}
	}
	if a.repo != nil {
		if err := a.repo.Close(); err != nil {
			a.logger.Error("error closing knowledge repository", "err", err)
			errs = append(errs, err)
		}
	}
	if a.backend != nil {
		if err := a.backend.Close(); err != nil {
			a.logger.Error("error closing backend storage", "err", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// HandleQuery answers question in the given session. An empty session id
// starts a new session. Blank questions come back as blocked responses from
// the moderation gate; the only error is an invalid query option such as a
// threshold outside [0,1].
func (a *Assistant) HandleQuery(ctx context.Context, question, sessionID string, opts ...core.QueryOption) (*core.Response, error) {
	q, err := core.NewQuery(question, sessionID, opts...)
	if err != nil {
		return nil, err
	}
	return a.orchestrator.Handle(ctx, q), nil
}

// HandleBatch answers questions concurrently within one session. Responses
// are in input order.
func (a *Assistant) HandleBatch(ctx context.Context, questions []string, sessionID string, opts ...core.QueryOption) ([]*core.Response, error) {
	queries := make([]core.Query, 0, len(questions))
	for _, question := range questions {
		q, err := core.NewQuery(question, sessionID, opts...)
		if err != nil {
			return nil, err
		}
		queries = append(queries, q)
	}
	return a.orchestrator.HandleBatch(ctx, queries), nil
}

// ClearSession forgets a session's history. Unknown sessions are ignored.
func (a *Assistant) ClearSession(sessionID string) {
	a.memory.Clear(sessionID)
}

// SessionStats describes a session's history.
func (a *Assistant) SessionStats(sessionID string) memory.SessionStats {
	return a.memory.Stats(sessionID)
}

// MemorySummary describes all live sessions.
func (a *Assistant) MemorySummary() memory.Summary {
	return a.memory.Summary()
}

// HealthCheck reports the reachability of the vector store, each search
// provider and the language model.
func (a *Assistant) HealthCheck(ctx context.Context) map[string]string {
	return a.orchestrator.Health(ctx)
}

// InsertKnowledge writes text to the knowledge store.
func (a *Assistant) InsertKnowledge(ctx context.Context, text string, metadata map[string]string) (core.ID, error) {
	return a.inserter.Insert(ctx, text, metadata)
}

// IngestDocument splits a document into chunks and inserts them all.
// progress may be nil.
func (a *Assistant) IngestDocument(ctx context.Context, text string, metadata map[string]string, progress *ingest.Progress) (ingest.BatchResult, error) {
	items, err := ingest.Split(text, ingest.DefaultChunkSize, ingest.DefaultChunkOverlap, metadata)
	if err != nil {
		return ingest.BatchResult{}, err
	}
	if len(items) == 0 {
		return ingest.BatchResult{}, core.ErrEmptyContent
	}
	return a.InsertItems(ctx, items, progress), nil
}

// InsertItems inserts pre-split knowledge concurrently. progress may be nil.
func (a *Assistant) InsertItems(ctx context.Context, items []ingest.Item, progress *ingest.Progress) ingest.BatchResult {
	return a.inserter.InsertBatch(ctx, items, progress)
}

// KnowledgeCount returns the number of stored chunks.
func (a *Assistant) KnowledgeCount(ctx context.Context) (int, error) {
	return a.repo.Count(ctx)
}

// WatchPolicy loads the moderation policy at path and reloads it whenever
// the file changes, until ctx is cancelled.
func (a *Assistant) WatchPolicy(ctx context.Context, path string) error {
	watcher, err := moderation.NewWatcher(a.gate, path)
	if err != nil {
		return err
	}
	go watcher.Run(ctx)
	return nil
}
