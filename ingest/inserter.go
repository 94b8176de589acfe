package ingest

import (
	"context"
	"log/slog"
	"maps"
	"runtime"
	"strings"
	"sync"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/groundwork/core"
)

// Store is where knowledge is written. retrieval.EmbeddingStore and
// retrieval.Retriever both satisfy it.
type Store interface {
	Insert(ctx context.Context, text string, metadata map[string]string) (core.ID, error)
}

// Item is one piece of knowledge to insert.
type Item struct {
	Text     string
	Metadata map[string]string
}

// BatchResult holds per-item outcomes in input order.
type BatchResult struct {
	IDs    []core.ID
	Errors []error
}

// Failed counts items that could not be inserted.
func (r BatchResult) Failed() int {
	n := 0
	for _, err := range r.Errors {
		if err != nil {
			n++
		}
	}
	return n
}

// Inserter writes knowledge to a Store, retrying transient failures.
type Inserter struct {
	store   Store
	backoff Backoff
	pool    *ants.Pool
	logger  *slog.Logger
}

// Option configures an Inserter.
type Option func(*Inserter) error

// WithBackoff sets the retry schedule.
func WithBackoff(b Backoff) Option {
	return func(i *Inserter) error {
		if b.MaxAttempts <= 0 {
			return ErrInvalidMaxAttempts
		}
		i.backoff = b
		return nil
	}
}

// WithPoolSize sets the number of concurrent inserts in a batch.
// Default is runtime.NumCPU() / 2, with a minimum of 1.
func WithPoolSize(size int) Option {
	return func(i *Inserter) error {
		if size < 1 {
			size = 1
		}
		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		if i.pool != nil {
			i.pool.Release()
		}
		i.pool = pool
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(i *Inserter) error {
		if logger == nil {
			logger = slog.Default()
		}
		i.logger = logger
		return nil
	}
}

// NewInserter creates an Inserter. Call Release when done.
func NewInserter(store Store, opts ...Option) (*Inserter, error) {
	if store == nil {
		return nil, ErrStoreRequired
	}

	poolSize := runtime.NumCPU() / 2
	if poolSize < 1 {
		poolSize = 1
	}
	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, err
	}

	i := &Inserter{
		store:   store,
		backoff: DefaultBackoff(),
		pool:    pool,
		logger:  slog.Default().With("component", "ingest"),
	}
	for _, opt := range opts {
		if err := opt(i); err != nil {
			i.Release()
			return nil, err
		}
	}
	return i, nil
}

// Release frees the worker pool.
func (i *Inserter) Release() {
	if i.pool != nil {
		i.pool.Release()
	}
}

// Insert validates and writes one piece of knowledge. Identical text maps to
// the same ID, so re-inserting is harmless.
func (i *Inserter) Insert(ctx context.Context, text string, metadata map[string]string) (core.ID, error) {
	if err := core.ValidateKnowledge(text); err != nil {
		return 0, err
	}
	text = strings.TrimSpace(text)
	metadata = maps.Clone(metadata)

	var id core.ID
	err := i.backoff.Retry(ctx, i.logger, func(ctx context.Context) error {
		var err error
		id, err = i.store.Insert(ctx, text, metadata)
		return err
	})
	if err != nil {
		i.logger.Warn("insert failed", "err", err, "length", len(text))
		return 0, err
	}
	return id, nil
}

// InsertBatch inserts items concurrently on the worker pool. A failing item
// does not stop the others. progress may be nil.
func (i *Inserter) InsertBatch(ctx context.Context, items []Item, progress *Progress) BatchResult {
	res := BatchResult{
		IDs:    make([]core.ID, len(items)),
		Errors: make([]error, len(items)),
	}

	var wg sync.WaitGroup
	for idx, item := range items {
		wg.Add(1)
		task := func() {
			defer wg.Done()
			res.IDs[idx], res.Errors[idx] = i.Insert(ctx, item.Text, item.Metadata)
			progress.Record(res.Errors[idx])
		}
		if err := i.pool.Submit(task); err != nil {
			i.logger.Warn("pool rejected insert, running inline", "index", idx, "err", err)
			task()
		}
	}
	wg.Wait()

	i.logger.Info("batch inserted", "items", len(items), "failed", res.Failed())
	return res
}
