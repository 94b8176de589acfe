// Package ingest writes knowledge into the vector store.
//
// It backs the administrative insert_knowledge passthrough: single inserts
// with retry and exponential backoff, concurrent batch inserts on a worker
// pool with progress reporting, and document splitting for the CLI.
//
//	items, err := ingest.Split(doc, ingest.DefaultChunkSize, ingest.DefaultChunkOverlap,
//		map[string]string{"source": "handbook.md"})
//	inserter, err := ingest.NewInserter(store)
//	defer inserter.Release()
//	res := inserter.InsertBatch(ctx, items, ingest.NewProgress(os.Stderr, len(items), 10))
package ingest
