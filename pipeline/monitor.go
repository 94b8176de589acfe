package pipeline

import (
	"fmt"
	"io"
	"sync"

	"github.com/poiesic/groundwork/core"
	"github.com/poiesic/groundwork/retrieval"
	"github.com/poiesic/groundwork/synthesis"
	"github.com/poiesic/groundwork/websearch"
)

// Monitor provides hooks to observe request handling.
// Implement this interface to trace state transitions and stage results.
// A Monitor shared by concurrent requests must be safe for concurrent use.
type Monitor interface {
	Start(query core.Query)
	Transition(from, to State)
	AfterModeration(verdict core.ModerationVerdict)
	AfterRetrieval(result retrieval.Result)
	AfterWebSearch(result websearch.Result)
	AfterSynthesis(result synthesis.Result)
	Finish(response *core.Response)
}

// noopMonitor is a no-op implementation of Monitor
type noopMonitor struct{}

var _ Monitor = (*noopMonitor)(nil)

func (n *noopMonitor) Start(_ core.Query)                       {}
func (n *noopMonitor) Transition(_, _ State)                    {}
func (n *noopMonitor) AfterModeration(_ core.ModerationVerdict) {}
func (n *noopMonitor) AfterRetrieval(_ retrieval.Result)        {}
func (n *noopMonitor) AfterWebSearch(_ websearch.Result)        {}
func (n *noopMonitor) AfterSynthesis(_ synthesis.Result)        {}
func (n *noopMonitor) Finish(_ *core.Response)                  {}

// TraceMonitor writes a human readable trace of one request to W.
type TraceMonitor struct {
	W io.Writer

	mu sync.Mutex
}

var _ Monitor = (*TraceMonitor)(nil)

func (t *TraceMonitor) printf(format string, args ...any) {
	t.mu.Lock()
	defer t.mu.Unlock()
	fmt.Fprintf(t.W, format, args...)
}

func (t *TraceMonitor) Start(query core.Query) {
	t.printf("query: %q (session %s, threshold %.2f)\n", query.Text(), query.SessionID(), query.RelevanceThreshold())
}

func (t *TraceMonitor) Transition(from, to State) {
	t.printf("  %s -> %s\n", from, to)
}

func (t *TraceMonitor) AfterModeration(verdict core.ModerationVerdict) {
	if verdict.Allowed {
		t.printf("  moderation: allowed\n")
		return
	}
	t.printf("  moderation: %v\n", verdict.Err())
}

func (t *TraceMonitor) AfterRetrieval(result retrieval.Result) {
	if result.Err != nil {
		t.printf("  retrieval: unavailable: %v\n", result.Err)
		return
	}
	t.printf("  retrieval: %d chunks, max score %.3f\n", len(result.Chunks), result.MaxScore)
}

func (t *TraceMonitor) AfterWebSearch(result websearch.Result) {
	for _, a := range result.Attempts {
		status := fmt.Sprintf("%d results", a.Results)
		if a.Err != nil {
			status = a.Err.Error()
		}
		t.printf("  web search: %s: %s (%dms)\n", a.Provider, status, a.Elapsed.Milliseconds())
	}
	t.printf("  web search: provider %s\n", result.Provider)
}

func (t *TraceMonitor) AfterSynthesis(result synthesis.Result) {
	if result.Err != nil {
		t.printf("  synthesis: degraded: %v\n", result.Err)
		return
	}
	t.printf("  synthesis: confidence %.2f\n", result.Confidence)
}

func (t *TraceMonitor) Finish(response *core.Response) {
	t.printf("  finished in %s\n", response.ProcessingTime)
}
