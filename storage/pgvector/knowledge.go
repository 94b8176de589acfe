package pgvector

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/lib/pq"
	"github.com/poiesic/groundwork/core"
	"github.com/poiesic/groundwork/storage"
)

// DefaultTable is the table used when none is configured.
const DefaultTable = "knowledge_chunks"

// KnowledgeRepository implements storage.KnowledgeRepository on Postgres
// with the pgvector extension. Similarity is cosine, computed by the
// <=> operator; ties are broken by insertion order.
type KnowledgeRepository struct {
	db     *sql.DB
	table  string
	closed atomic.Bool
	logger *slog.Logger
}

var _ storage.KnowledgeRepository = (*KnowledgeRepository)(nil)

// Open connects with dsn and ensures the extension and table exist.
func Open(ctx context.Context, dsn, table string) (*KnowledgeRepository, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	repo, err := New(ctx, db, table)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return repo, nil
}

// New wraps an open database. The repository owns db and closes it.
func New(ctx context.Context, db *sql.DB, table string) (*KnowledgeRepository, error) {
	if table == "" {
		table = DefaultTable
	}
	r := &KnowledgeRepository{
		db:     db,
		table:  pq.QuoteIdentifier(table),
		logger: slog.Default().With("component", "pgvector-repository", "table", table),
	}
	if err := r.migrate(ctx); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *KnowledgeRepository) migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id          BIGINT PRIMARY KEY,
			position    BIGSERIAL,
			text        TEXT NOT NULL,
			metadata    JSONB NOT NULL DEFAULT '{}',
			embedding   vector NOT NULL,
			inserted_at TIMESTAMPTZ NOT NULL
		)`, r.table),
	}
	for _, stmt := range stmts {
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to prepare pgvector schema: %w", classify(err))
		}
	}
	return nil
}

// Close closes the database.
func (r *KnowledgeRepository) Close() error {
	if r.closed.Swap(true) {
		return nil
	}
	return r.db.Close()
}

// AddChunks inserts chunks in one transaction. Existing ids are left
// untouched.
func (r *KnowledgeRepository) AddChunks(ctx context.Context, chunks ...*core.KnowledgeChunk) ([]*core.KnowledgeChunk, error) {
	if r.closed.Load() {
		return nil, storage.ErrStorageClosed
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, classify(err)
	}
	defer func() { _ = tx.Rollback() }()

	query := fmt.Sprintf(`INSERT INTO %s (id, text, metadata, embedding, inserted_at)
		VALUES ($1, $2, $3, $4::vector, $5) ON CONFLICT (id) DO NOTHING`, r.table)
	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return nil, classify(err)
	}
	defer stmt.Close()

	for _, chunk := range chunks {
		if chunk.Id == 0 {
			chunk.Id = core.IDFromContent(chunk.Text)
		}
		if chunk.InsertedAt.IsZero() {
			chunk.InsertedAt = time.Now().UTC()
		}
		chunk.Vector = storage.NormalizeVector(chunk.Vector)

		md, err := json.Marshal(nonNil(chunk.Metadata))
		if err != nil {
			return nil, fmt.Errorf("%w: %w", storage.ErrSerializationFailed, err)
		}
		if _, err := stmt.ExecContext(ctx, int64(chunk.Id), chunk.Text, md, VectorLiteral(chunk.Vector), chunk.InsertedAt); err != nil {
			return nil, classify(err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, classify(err)
	}
	return chunks, nil
}

// FindSimilar returns the chunks closest to vector among rows of the same
// dimension.
func (r *KnowledgeRepository) FindSimilar(ctx context.Context, vector []float32, limit int) ([]*core.RetrievedChunk, error) {
	if r.closed.Load() {
		return nil, storage.ErrStorageClosed
	}
	if limit <= 0 || len(vector) == 0 {
		return nil, storage.ErrInvalidQuery
	}

	query := fmt.Sprintf(`SELECT id, text, metadata, 1 - (embedding <=> $1::vector) AS score
		FROM %s
		WHERE vector_dims(embedding) = $2
		ORDER BY embedding <=> $1::vector, position
		LIMIT $3`, r.table)

	rows, err := r.db.QueryContext(ctx, query, VectorLiteral(storage.NormalizeVector(vector)), len(vector), limit)
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()

	var out []*core.RetrievedChunk
	for rows.Next() {
		var (
			id    int64
			text  string
			md    []byte
			score sql.NullFloat64
		)
		if err := rows.Scan(&id, &text, &md, &score); err != nil {
			return nil, classify(err)
		}
		chunk := &core.RetrievedChunk{
			ID:    core.ID(uint64(id)),
			Text:  text,
			Score: core.ClampScore(score.Float64),
		}
		if len(md) > 0 {
			if err := json.Unmarshal(md, &chunk.Metadata); err != nil {
				r.logger.Warn("skipping unreadable metadata", "id", id, "err", err)
			}
		}
		out = append(out, chunk)
	}
	return out, classify(rows.Err())
}

// Count returns the number of rows.
func (r *KnowledgeRepository) Count(ctx context.Context) (int, error) {
	if r.closed.Load() {
		return 0, storage.ErrStorageClosed
	}
	var n int
	err := r.db.QueryRowContext(ctx, fmt.Sprintf(`SELECT count(*) FROM %s`, r.table)).Scan(&n)
	return n, classify(err)
}

// VectorLiteral formats v in pgvector's text form, e.g. "[0.1,0.2]".
func VectorLiteral(v []float32) string {
	var b strings.Builder
	b.Grow(len(v)*10 + 2)
	b.WriteByte('[')
	for i, f := range v {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatFloat(float64(f), 'g', -1, 32))
	}
	b.WriteByte(']')
	return b.String()
}

// ParseVectorLiteral parses pgvector's text form.
func ParseVectorLiteral(s string) ([]float32, error) {
	s = strings.TrimSpace(s)
	if len(s) < 2 || s[0] != '[' || s[len(s)-1] != ']' {
		return nil, fmt.Errorf("%w: %q is not a vector literal", storage.ErrSerializationFailed, s)
	}
	body := strings.TrimSpace(s[1 : len(s)-1])
	if body == "" {
		return []float32{}, nil
	}
	parts := strings.Split(body, ",")
	out := make([]float32, len(parts))
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 32)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", storage.ErrSerializationFailed, err)
		}
		out[i] = float32(f)
	}
	return out, nil
}

// classify maps driver errors onto storage errors where one fits.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrConnDone) {
		return fmt.Errorf("%w: %w", storage.ErrStorageClosed, err)
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code.Name() {
		case "data_exception", "invalid_parameter_value":
			return fmt.Errorf("%w: %w", storage.ErrDimensionMismatch, err)
		case "undefined_table", "undefined_object", "undefined_function":
			return fmt.Errorf("%w: %w", storage.ErrNotFound, err)
		}
	}
	return err
}

func nonNil(m map[string]string) map[string]string {
	if m == nil {
		return map[string]string{}
	}
	return m
}
