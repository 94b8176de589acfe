package chroma

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"sync/atomic"
	"time"

	chromago "github.com/amikos-tech/chroma-go/pkg/api/v2"
	"github.com/amikos-tech/chroma-go/pkg/embeddings"
	"github.com/poiesic/groundwork/core"
	"github.com/poiesic/groundwork/storage"
)

// DefaultCollection is the collection used when none is configured.
const DefaultCollection = "groundwork-knowledge"

const insertedAtKey = "inserted_at"

// KnowledgeRepository implements storage.KnowledgeRepository on a ChromaDB
// collection using cosine distance.
type KnowledgeRepository struct {
	client     chromago.Client
	collection chromago.Collection
	closed     atomic.Bool
	logger     *slog.Logger
}

var _ storage.KnowledgeRepository = (*KnowledgeRepository)(nil)

// Open connects to the Chroma server at baseURL and gets or creates the
// named collection.
func Open(ctx context.Context, baseURL, collection string) (*KnowledgeRepository, error) {
	if collection == "" {
		collection = DefaultCollection
	}

	var opts []chromago.ClientOption
	if baseURL != "" {
		opts = append(opts, chromago.WithBaseURL(baseURL))
	}
	client, err := chromago.NewHTTPClient(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create chroma client: %w", err)
	}

	coll, err := client.GetOrCreateCollection(ctx, collection,
		chromago.WithCollectionMetadataCreate(
			chromago.NewMetadata(
				chromago.NewStringAttribute("hnsw:space", "cosine"),
				chromago.NewStringAttribute("created_by", "groundwork"),
			),
		),
	)
	if err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to get or create collection %q: %w", collection, err)
	}

	return &KnowledgeRepository{
		client:     client,
		collection: coll,
		logger:     slog.Default().With("component", "chroma-repository", "collection", collection),
	}, nil
}

// Close closes the client.
func (r *KnowledgeRepository) Close() error {
	if r.closed.Swap(true) {
		return nil
	}
	return r.client.Close()
}

// AddChunks adds chunks keyed by content ID. Chroma ignores ids that already
// exist, which keeps inserts idempotent.
func (r *KnowledgeRepository) AddChunks(ctx context.Context, chunks ...*core.KnowledgeChunk) ([]*core.KnowledgeChunk, error) {
	if r.closed.Load() {
		return nil, storage.ErrStorageClosed
	}
	if len(chunks) == 0 {
		return chunks, nil
	}

	ids := make([]chromago.DocumentID, len(chunks))
	texts := make([]string, len(chunks))
	vectors := make([]embeddings.Embedding, len(chunks))
	metadatas := make([]chromago.DocumentMetadata, len(chunks))
	for i, chunk := range chunks {
		if chunk.Id == 0 {
			chunk.Id = core.IDFromContent(chunk.Text)
		}
		if chunk.InsertedAt.IsZero() {
			chunk.InsertedAt = time.Now().UTC()
		}
		chunk.Vector = storage.NormalizeVector(chunk.Vector)

		ids[i] = formatID(chunk.Id)
		texts[i] = chunk.Text
		vectors[i] = embeddings.NewEmbeddingFromFloat32(chunk.Vector)
		metadatas[i] = toDocumentMetadata(chunk)
	}

	err := r.collection.Add(ctx,
		chromago.WithIDs(ids...),
		chromago.WithTexts(texts...),
		chromago.WithEmbeddings(vectors...),
		chromago.WithMetadatas(metadatas...),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to add chunks to chroma: %w", err)
	}
	return chunks, nil
}

// FindSimilar queries the collection with vector.
func (r *KnowledgeRepository) FindSimilar(ctx context.Context, vector []float32, limit int) ([]*core.RetrievedChunk, error) {
	if r.closed.Load() {
		return nil, storage.ErrStorageClosed
	}
	if limit <= 0 {
		return nil, storage.ErrInvalidQuery
	}

	results, err := r.collection.Query(ctx,
		chromago.WithQueryEmbeddings(embeddings.NewEmbeddingFromFloat32(storage.NormalizeVector(vector))),
		chromago.WithNResults(limit),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query chroma: %w", err)
	}

	idGroups := results.GetIDGroups()
	docGroups := results.GetDocumentsGroups()
	metaGroups := results.GetMetadatasGroups()
	distGroups := results.GetDistancesGroups()
	if len(docGroups) == 0 {
		return nil, nil
	}

	out := make([]*core.RetrievedChunk, 0, len(docGroups[0]))
	for i, doc := range docGroups[0] {
		chunk := &core.RetrievedChunk{Text: doc.ContentString()}
		if len(idGroups) > 0 && i < len(idGroups[0]) {
			chunk.ID = parseID(idGroups[0][i])
		}
		if len(metaGroups) > 0 && i < len(metaGroups[0]) {
			chunk.Metadata = metadataToMap(metaGroups[0][i], r.logger)
		}
		if len(distGroups) > 0 && i < len(distGroups[0]) {
			chunk.Score = scoreFromDistance(float64(distGroups[0][i]))
		}
		out = append(out, chunk)
	}
	return out, nil
}

// Count returns the number of documents in the collection.
func (r *KnowledgeRepository) Count(ctx context.Context) (int, error) {
	if r.closed.Load() {
		return 0, storage.ErrStorageClosed
	}
	return r.collection.Count(ctx)
}

func formatID(id core.ID) chromago.DocumentID {
	return chromago.DocumentID(strconv.FormatUint(uint64(id), 16))
}

func parseID(id chromago.DocumentID) core.ID {
	v, err := strconv.ParseUint(string(id), 16, 64)
	if err != nil {
		return 0
	}
	return core.ID(v)
}

// scoreFromDistance converts a cosine distance (1 - cos) to a [0,1] score.
func scoreFromDistance(d float64) float64 {
	return core.ClampScore(1 - d)
}

func toDocumentMetadata(chunk *core.KnowledgeChunk) chromago.DocumentMetadata {
	attrs := make([]*chromago.MetaAttribute, 0, len(chunk.Metadata)+1)
	for k, v := range chunk.Metadata {
		attrs = append(attrs, chromago.NewStringAttribute(k, v))
	}
	attrs = append(attrs, chromago.NewIntAttribute(insertedAtKey, chunk.InsertedAt.UnixMicro()))
	return chromago.NewDocumentMetadata(attrs...)
}

// metadataToMap flattens document metadata to strings. DocumentMetadata has
// no key accessor, so it goes through its JSON form.
func metadataToMap(md chromago.DocumentMetadata, logger *slog.Logger) map[string]string {
	if md == nil {
		return nil
	}
	raw, err := json.Marshal(md)
	if err != nil {
		logger.Warn("could not marshal chroma metadata", "err", err)
		return nil
	}
	var values map[string]any
	if err := json.Unmarshal(raw, &values); err != nil {
		logger.Warn("could not unmarshal chroma metadata", "err", err)
		return nil
	}

	out := make(map[string]string, len(values))
	for k, v := range values {
		if k == insertedAtKey {
			continue
		}
		switch tv := v.(type) {
		case string:
			out[k] = tv
		case float64:
			out[k] = strconv.FormatFloat(tv, 'f', -1, 64)
		case bool:
			out[k] = strconv.FormatBool(tv)
		case nil:
		default:
			out[k] = fmt.Sprint(tv)
		}
	}
	return out
}
