package badger

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/groundwork/core"
	"github.com/poiesic/groundwork/storage"
)

// KnowledgeRepository implements storage.KnowledgeRepository for BadgerDB.
// Similarity search is a full scan computing dot products over unit vectors.
type KnowledgeRepository struct {
	backend *Backend
	posSeq  *badger.Sequence
	logger  *slog.Logger
}

var _ storage.KnowledgeRepository = (*KnowledgeRepository)(nil)

// NewKnowledgeRepository creates a new KnowledgeRepository.
func NewKnowledgeRepository(backend *Backend) (storage.KnowledgeRepository, error) {
	posSeq, err := backend.GetSequence(chunkSeq)
	if err != nil {
		return nil, err
	}

	return &KnowledgeRepository{
		backend: backend,
		posSeq:  posSeq,
		logger:  slog.Default().With("component", "knowledge-repository"),
	}, nil
}

// Close releases the position sequence. The backend is closed by its owner.
func (r *KnowledgeRepository) Close() error {
	return r.posSeq.Release()
}

// AddChunks stores chunks, normalizing their vectors. Re-adding a chunk with
// an existing ID replaces it in place, keeping its original position.
func (r *KnowledgeRepository) AddChunks(ctx context.Context, chunks ...*core.KnowledgeChunk) ([]*core.KnowledgeChunk, error) {
	if r.backend.IsClosed() {
		return nil, storage.ErrStorageClosed
	}

	err := r.backend.WithTx(func(tx *badger.Txn) error {
		for _, chunk := range chunks {
			if chunk.Id == 0 {
				chunk.Id = core.IDFromContent(chunk.Text)
			}
			if chunk.InsertedAt.IsZero() {
				chunk.InsertedAt = time.Now().UTC()
			}
			chunk.Vector = storage.NormalizeVector(chunk.Vector)

			idKey := makeChunkIDKey(chunk.Id)
			pos, found, err := readPosition(tx, idKey)
			if err != nil {
				return err
			}
			if !found {
				pos, err = r.nextPosition()
				if err != nil {
					return err
				}
				if err := tx.Set(idKey, encodePosition(pos)); err != nil {
					return err
				}
			}

			if err := tx.Set(makeChunkKey(pos), storage.MarshalKnowledgeChunk(chunk)); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
	if err != nil {
		return nil, err
	}
	return chunks, nil
}

// nextPosition returns the next insertion position.
func (r *KnowledgeRepository) nextPosition() (uint64, error) {
	pos, err := r.posSeq.Next()
	if err != nil {
		return 0, err
	}
	// BadgerDB sequences can return 0 on first call, so we skip it
	if pos == 0 {
		return r.posSeq.Next()
	}
	return pos, nil
}

func readPosition(tx *badger.Txn, key []byte) (uint64, bool, error) {
	item, err := tx.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	var pos uint64
	err = item.Value(func(val []byte) error {
		pos = decodePosition(val)
		return nil
	})
	return pos, err == nil, err
}

// FindSimilar scans every stored chunk and returns the limit best matches.
// Chunks whose vector length differs from the query are skipped.
func (r *KnowledgeRepository) FindSimilar(ctx context.Context, vector []float32, limit int) ([]*core.RetrievedChunk, error) {
	if limit <= 0 {
		return nil, storage.ErrInvalidQuery
	}
	if r.backend.IsClosed() {
		return nil, storage.ErrStorageClosed
	}

	query := storage.NormalizeVector(vector)
	var results []*core.RetrievedChunk
	mismatched := 0

	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(chunkPrefix)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}

			var chunk *core.KnowledgeChunk
			err := iter.Item().Value(func(val []byte) error {
				var err error
				chunk, err = storage.UnmarshalKnowledgeChunk(val)
				return err
			})
			if err != nil {
				return err
			}
			if len(chunk.Vector) == 0 {
				continue
			}
			if len(chunk.Vector) != len(query) {
				mismatched++
				continue
			}

			results = append(results, &core.RetrievedChunk{
				ID:       chunk.Id,
				Text:     chunk.Text,
				Score:    core.ClampScore(float64(storage.DotProduct(query, chunk.Vector))),
				Metadata: chunk.Metadata,
			})
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}

	if mismatched > 0 {
		r.logger.Warn("skipped chunks with mismatched vector dimension",
			"skipped", mismatched,
			"query_dimension", len(query))
	}

	// Stable so equal scores keep insertion order.
	slices.SortStableFunc(results, func(a, b *core.RetrievedChunk) int {
		switch {
		case a.Score > b.Score:
			return -1
		case a.Score < b.Score:
			return 1
		}
		return 0
	})

	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// Count returns the number of stored chunks.
func (r *KnowledgeRepository) Count(ctx context.Context) (int, error) {
	if r.backend.IsClosed() {
		return 0, storage.ErrStorageClosed
	}

	count := 0
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(chunkPrefix)
		opts.PrefetchValues = false
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			count++
		}
		return nil
	}, false)
	return count, err
}
