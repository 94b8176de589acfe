package ingest

import (
	"maps"
	"strconv"
	"strings"

	"github.com/tmc/langchaingo/textsplitter"
)

const (
	// DefaultChunkSize is the target chunk length in characters.
	DefaultChunkSize = 1000
	// DefaultChunkOverlap is the overlap between consecutive chunks.
	DefaultChunkOverlap = 200
)

// Split breaks a document into overlapping chunks. Each item carries a copy
// of metadata plus "chunk" (its zero-based index) and "chunks" (the total).
// Blank chunks are dropped.
func Split(text string, chunkSize, overlap int, metadata map[string]string) ([]Item, error) {
	if chunkSize <= 0 || overlap < 0 || overlap >= chunkSize {
		return nil, ErrInvalidChunking
	}

	splitter := textsplitter.NewRecursiveCharacter(
		textsplitter.WithChunkSize(chunkSize),
		textsplitter.WithChunkOverlap(overlap),
	)
	parts, err := splitter.SplitText(text)
	if err != nil {
		return nil, err
	}

	kept := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			kept = append(kept, p)
		}
	}

	items := make([]Item, len(kept))
	for i, p := range kept {
		md := maps.Clone(metadata)
		if md == nil {
			md = make(map[string]string, 2)
		}
		md["chunk"] = strconv.Itoa(i)
		md["chunks"] = strconv.Itoa(len(kept))
		items[i] = Item{Text: p, Metadata: md}
	}
	return items, nil
}
