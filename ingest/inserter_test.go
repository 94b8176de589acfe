package ingest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/poiesic/groundwork/ai/mock"
	"github.com/poiesic/groundwork/core"
	"github.com/poiesic/groundwork/retrieval"
	"github.com/poiesic/groundwork/storage/badger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// flakyStore fails the first failures inserts of each text.
type flakyStore struct {
	mu       sync.Mutex
	failures int
	seen     map[string]int
	inserted map[string]map[string]string
}

func newFlakyStore(failures int) *flakyStore {
	return &flakyStore{failures: failures, seen: map[string]int{}, inserted: map[string]map[string]string{}}
}

func (f *flakyStore) Insert(ctx context.Context, text string, metadata map[string]string) (core.ID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seen[text]++
	if f.seen[text] <= f.failures {
		return 0, errors.New("transient")
	}
	f.inserted[text] = metadata
	return core.IDFromContent(text), nil
}

func TestNewInserter(t *testing.T) {
	_, err := NewInserter(nil)
	assert.ErrorIs(t, err, ErrStoreRequired)

	_, err = NewInserter(newFlakyStore(0), WithBackoff(Backoff{}))
	assert.ErrorIs(t, err, ErrInvalidMaxAttempts)
}

func TestInsert(t *testing.T) {
	t.Run("retries transient failures", func(t *testing.T) {
		store := newFlakyStore(2)
		ins, err := NewInserter(store, WithBackoff(fastBackoff(3)))
		require.NoError(t, err)
		defer ins.Release()

		id, err := ins.Insert(context.Background(), "  Go is a language.  ", map[string]string{"source": "faq"})
		require.NoError(t, err)
		assert.Equal(t, core.IDFromContent("Go is a language."), id)
		assert.Equal(t, 3, store.seen["Go is a language."])
		assert.Equal(t, "faq", store.inserted["Go is a language."]["source"])
	})

	t.Run("gives up", func(t *testing.T) {
		ins, err := NewInserter(newFlakyStore(5), WithBackoff(fastBackoff(2)))
		require.NoError(t, err)
		defer ins.Release()

		_, err = ins.Insert(context.Background(), "text", nil)
		assert.Error(t, err)
	})

	t.Run("rejects blank text", func(t *testing.T) {
		store := newFlakyStore(0)
		ins, err := NewInserter(store)
		require.NoError(t, err)
		defer ins.Release()

		_, err = ins.Insert(context.Background(), " \n\t", nil)
		assert.ErrorIs(t, err, core.ErrEmptyContent)
		assert.Empty(t, store.seen)
	})
}

func TestInsertBatch(t *testing.T) {
	store := newFlakyStore(1)
	ins, err := NewInserter(store, WithBackoff(fastBackoff(2)), WithPoolSize(3))
	require.NoError(t, err)
	defer ins.Release()

	items := make([]Item, 0, 11)
	for i := range 10 {
		items = append(items, Item{Text: fmt.Sprintf("fact %d", i)})
	}
	items = append(items, Item{Text: ""})

	var progress = NewProgress(&discard{}, len(items), 5)
	res := ins.InsertBatch(context.Background(), items, progress)

	require.Len(t, res.IDs, 11)
	for i := range 10 {
		assert.NoError(t, res.Errors[i])
		assert.Equal(t, core.IDFromContent(fmt.Sprintf("fact %d", i)), res.IDs[i])
	}
	assert.ErrorIs(t, res.Errors[10], core.ErrEmptyContent)
	assert.Equal(t, 1, res.Failed())

	done, failed := progress.Counts()
	assert.Equal(t, 11, done)
	assert.Equal(t, 1, failed)
}

func TestInsertIntoEmbeddingStore(t *testing.T) {
	repo, backend, err := badger.NewMemoryKnowledgeRepository()
	require.NoError(t, err)
	defer backend.Close()

	store, err := retrieval.NewEmbeddingStore(mock.NewMockEmbedder(), repo)
	require.NoError(t, err)

	ins, err := NewInserter(store)
	require.NoError(t, err)
	defer ins.Release()

	items, err := Split("Paragraph one about goroutines.\n\nParagraph two about channels.", 40, 0, nil)
	require.NoError(t, err)

	res := ins.InsertBatch(context.Background(), items, nil)
	assert.Zero(t, res.Failed())

	n, err := repo.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, len(items), n)

	retriever, err := retrieval.NewRetriever(store, retrieval.WithTimeout(time.Second))
	require.NoError(t, err)
	got := retriever.Retrieve(context.Background(), items[0].Text, 1)
	require.True(t, got.Found())
	assert.Equal(t, items[0].Text, got.Chunks[0].Text)
}

type discard struct{}

func (discard) Write(p []byte) (int, error) { return len(p), nil }
