package pipeline

import (
	"context"
	"sync"
)

// Health component names.
const (
	ComponentVectorStore = "vector_store"
	ComponentLLM         = "llm"
	ComponentWebPrefix   = "web_search."
)

// StatusOK is reported for reachable components.
const StatusOK = "ok"

// Health probes the vector store, each search provider and the language
// model concurrently. Values are "ok" or "unavailable: <reason>".
func (o *Orchestrator) Health(ctx context.Context) map[string]string {
	var (
		mu  sync.Mutex
		wg  sync.WaitGroup
		out = make(map[string]string)
	)
	record := func(name string, err error) {
		mu.Lock()
		defer mu.Unlock()
		out[name] = status(err)
	}

	probes := map[string]func(context.Context){
		ComponentVectorStore: func(ctx context.Context) {
			record(ComponentVectorStore, o.retriever.Ping(ctx))
		},
		ComponentLLM: func(ctx context.Context) {
			record(ComponentLLM, o.synthesizer.Ping(ctx))
		},
		"web_search": func(ctx context.Context) {
			for name, err := range o.searcher.Ping(ctx) {
				record(ComponentWebPrefix+name, err)
			}
		},
	}

	for name, probe := range probes {
		wg.Add(1)
		task := func() {
			defer wg.Done()
			pctx, cancel := context.WithTimeout(ctx, o.healthTimeout)
			defer cancel()
			probe(pctx)
		}
		if err := o.pool.Submit(task); err != nil {
			o.logger.Warn("pool rejected health probe, running inline", "probe", name, "err", err)
			task()
		}
	}
	wg.Wait()
	return out
}

func status(err error) string {
	if err == nil {
		return StatusOK
	}
	return "unavailable: " + err.Error()
}
