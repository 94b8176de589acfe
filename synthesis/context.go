package synthesis

import (
	"github.com/poiesic/groundwork/core"
	"github.com/poiesic/groundwork/websearch"
)

// Kind tags where the context came from. It only changes the grounding
// instruction and the confidence rule.
type Kind string

const (
	KindKnowledge Kind = core.SourceKnowledgeBase
	KindWeb       Kind = core.SourceWebSearch
)

// Context is the material an answer must be grounded in.
type Context struct {
	Kind       Kind
	Chunks     []core.RetrievedChunk
	WebResults []core.WebResult
	// Provider names the web search provider; empty for knowledge context.
	Provider string
}

// KnowledgeContext wraps retrieved chunks, best first.
func KnowledgeContext(chunks []core.RetrievedChunk) Context {
	return Context{Kind: KindKnowledge, Chunks: chunks}
}

// WebContext wraps the results of the given provider.
func WebContext(results []core.WebResult, provider string) Context {
	return Context{Kind: KindWeb, WebResults: results, Provider: provider}
}

// Empty reports whether there is nothing to ground an answer in.
func (c Context) Empty() bool {
	if c.Kind == KindKnowledge {
		return len(c.Chunks) == 0
	}
	return len(c.WebResults) == 0
}

// topSnippet returns the text of the best context item.
func (c Context) topSnippet() string {
	if c.Kind == KindKnowledge {
		if len(c.Chunks) > 0 {
			return c.Chunks[0].Text
		}
		return ""
	}
	if len(c.WebResults) > 0 {
		return c.WebResults[0].Snippet
	}
	return ""
}

// maxScore is the highest chunk score, clamped.
func (c Context) maxScore() float64 {
	best := 0.0
	for _, ch := range c.Chunks {
		if s := core.ClampScore(ch.Score); s > best {
			best = s
		}
	}
	return best
}

// citations attributes each context item.
func (c Context) citations() []core.Citation {
	if c.Kind == KindKnowledge {
		out := make([]core.Citation, 0, len(c.Chunks))
		for _, ch := range c.Chunks {
			out = append(out, core.Citation{
				Title:    chunkTitle(ch),
				Score:    core.ClampScore(ch.Score),
				Metadata: ch.Metadata,
			})
		}
		return out
	}
	out := make([]core.Citation, 0, len(c.WebResults))
	for _, r := range c.WebResults {
		out = append(out, core.Citation{Title: r.Title, URL: r.URL})
	}
	return out
}

func chunkTitle(ch core.RetrievedChunk) string {
	for _, key := range []string{"title", "source", "filename"} {
		if v := ch.Metadata[key]; v != "" {
			return v
		}
	}
	return ""
}

// ConfidenceTable maps web search providers to a fixed confidence.
type ConfidenceTable struct {
	Providers map[string]float64
	Default   float64
}

// DefaultConfidenceTable returns the built-in provider tiers.
func DefaultConfidenceTable() ConfidenceTable {
	return ConfidenceTable{
		Providers: map[string]float64{
			websearch.SerperName:     0.8,
			websearch.WikipediaName:  0.75,
			websearch.DuckDuckGoName: 0.7,
		},
		Default: 0.6,
	}
}

// For returns the confidence for provider.
func (t ConfidenceTable) For(provider string) float64 {
	if v, ok := t.Providers[provider]; ok {
		return v
	}
	return t.Default
}

func (t ConfidenceTable) validate() error {
	if t.Default < 0 || t.Default > 1 {
		return ErrInvalidConfidence
	}
	for _, v := range t.Providers {
		if v < 0 || v > 1 {
			return ErrInvalidConfidence
		}
	}
	return nil
}
