// Package pipeline implements the query orchestrator.
//
// Each query moves through a fixed set of states:
//
//	Received -> Moderated -> Retrieved -> [WebSearched] -> Synthesized -> MemoryUpdated -> Completed
//
// Blocked is reached from Received when moderation refuses the input, and
// Failed when the caller cancels or an internal invariant breaks. Web search
// runs only when the best retrieval score is below the query's relevance
// threshold. Collaborator failures never fail a request: retrieval errors
// fall back to web search, exhausted providers and model failures produce
// degraded answers with confidence 0.
//
// Basic usage:
//
//	orch, err := pipeline.NewOrchestrator(gate, retriever, aggregator, synthesizer, store)
//	if err != nil {
//		return err
//	}
//	defer orch.Close()
//
//	q, _ := core.NewQuery("What is machine learning?", sessionID)
//	resp := orch.Handle(ctx, q)
package pipeline
