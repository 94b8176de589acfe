package pipeline

import (
	"context"
	"sync"

	"github.com/poiesic/groundwork/core"
)

// HandleBatch answers queries concurrently on the worker pool. Responses are
// returned in input order. Queries sharing a session id are not ordered
// relative to each other.
func (o *Orchestrator) HandleBatch(ctx context.Context, queries []core.Query) []*core.Response {
	responses := make([]*core.Response, len(queries))

	var wg sync.WaitGroup
	for i, q := range queries {
		wg.Add(1)
		task := func() {
			defer wg.Done()
			responses[i] = o.Handle(ctx, q)
		}
		if err := o.pool.Submit(task); err != nil {
			o.logger.Warn("pool rejected batch query, running inline", "index", i, "err", err)
			task()
		}
	}
	wg.Wait()

	o.logger.Info("batch handled", "queries", len(queries))
	return responses
}
