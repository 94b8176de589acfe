// Package websearch provides the web search fallback used when local
// knowledge is not relevant enough.
//
// Providers (Serper, Wikipedia, DuckDuckGo) implement the Provider interface
// and are tried in order by an Aggregator:
//
//	agg, err := websearch.NewAggregator([]websearch.Provider{
//		websearch.NewSerper(apiKey),
//		websearch.NewWikipedia(),
//		websearch.NewDuckDuckGo(),
//	})
//	res := agg.Search(ctx, "what is machine learning")
//	if res.Exhausted() {
//		// res.Provider == "none"
//	}
//
// Each attempt is bounded by a timeout. Failures, timeouts and empty results
// all fall through to the next provider without retries. Results are
// deduplicated by normalized URL.
package websearch
