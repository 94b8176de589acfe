package retrieval

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/poiesic/groundwork/core"
)

// DefaultTimeout bounds a single vector store search.
const DefaultTimeout = 5 * time.Second

// Result is the outcome of one retrieval. A failed or timed out search is an
// empty Result with Err set; callers branch on Sufficient, never on Err.
type Result struct {
	Chunks   []core.RetrievedChunk
	MaxScore float64
	Err      error
}

// Found reports whether any chunk was retrieved.
func (r Result) Found() bool {
	return len(r.Chunks) > 0
}

// Sufficient reports whether local knowledge answers the query:
// MaxScore >= threshold, inclusive.
func (r Result) Sufficient(threshold float64) bool {
	return r.Found() && r.MaxScore >= threshold
}

// Retriever queries a VectorStore and normalizes the outcome for the
// relevance gate.
type Retriever struct {
	store   VectorStore
	timeout time.Duration
	logger  *slog.Logger
}

// Option configures a Retriever.
type Option func(*Retriever) error

// WithTimeout sets the per-search timeout.
func WithTimeout(d time.Duration) Option {
	return func(r *Retriever) error {
		if d <= 0 {
			return ErrInvalidTimeout
		}
		r.timeout = d
		return nil
	}
}

// NewRetriever creates a Retriever over store.
func NewRetriever(store VectorStore, opts ...Option) (*Retriever, error) {
	if store == nil {
		return nil, ErrVectorStoreRequired
	}
	r := &Retriever{
		store:   store,
		timeout: DefaultTimeout,
		logger:  slog.Default().With("component", "retriever"),
	}
	for _, opt := range opts {
		if err := opt(r); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Retrieve searches for up to topK chunks. Store errors and timeouts are
// logged and absorbed into an empty Result. Returned chunks are ordered by
// descending score with ties in store order, and scores are clamped to [0,1].
func (r *Retriever) Retrieve(ctx context.Context, text string, topK int) Result {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	chunks, err := r.search(ctx, text, topK)
	if err != nil {
		r.logger.Warn("retrieval failed, treating as insufficient", "err", err)
		return Result{Err: err}
	}

	for i := range chunks {
		chunks[i].Score = core.ClampScore(chunks[i].Score)
	}
	slices.SortStableFunc(chunks, func(a, b core.RetrievedChunk) int {
		switch {
		case a.Score > b.Score:
			return -1
		case a.Score < b.Score:
			return 1
		}
		return 0
	})
	if topK > 0 && len(chunks) > topK {
		chunks = chunks[:topK]
	}

	res := Result{Chunks: chunks}
	if len(chunks) > 0 {
		res.MaxScore = chunks[0].Score
	}
	return res
}

type searchOutcome struct {
	chunks []core.RetrievedChunk
	err    error
}

// search runs the store call so that a store ignoring ctx still cannot
// hold the pipeline past the timeout; a late reply is dropped.
func (r *Retriever) search(ctx context.Context, text string, topK int) ([]core.RetrievedChunk, error) {
	done := make(chan searchOutcome, 1)
	go func() {
		defer func() {
			if p := recover(); p != nil {
				done <- searchOutcome{err: fmt.Errorf("%w: store panicked: %v", core.ErrRetrievalUnavailable, p)}
			}
		}()
		chunks, err := r.store.Search(ctx, text, topK)
		done <- searchOutcome{chunks: chunks, err: err}
	}()

	select {
	case out := <-done:
		return out.chunks, out.err
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %w", core.ErrRetrievalUnavailable, ctx.Err())
	}
}

// Ping checks that the underlying store is reachable.
func (r *Retriever) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	return r.store.Ping(ctx)
}

// Insert passes knowledge through to the underlying store.
func (r *Retriever) Insert(ctx context.Context, text string, metadata map[string]string) (core.ID, error) {
	return r.store.Insert(ctx, text, metadata)
}
