package groundwork

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/poiesic/groundwork/ai"
	"github.com/poiesic/groundwork/ai/mock"
	"github.com/poiesic/groundwork/core"
	"github.com/poiesic/groundwork/moderation"
	"github.com/poiesic/groundwork/pipeline"
	"github.com/poiesic/groundwork/websearch"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubProvider struct {
	results []core.WebResult
}

func (s *stubProvider) Name() string { return "stub" }

func (s *stubProvider) Search(ctx context.Context, query string) ([]core.WebResult, error) {
	return s.results, nil
}

func (s *stubProvider) Ping(ctx context.Context) error { return nil }

// topicEmbedder puts text mentioning Go on one axis and everything else on
// an orthogonal one.
func topicEmbedder() *mock.MockEmbedder {
	e := mock.NewMockEmbedder()
	e.EmbedTextFunc = func(ctx context.Context, text string) ([]float32, error) {
		if strings.Contains(strings.ToLower(text), "go") {
			return []float32{1, 0}, nil
		}
		return []float32{0, 1}, nil
	}
	return e
}

func newTestAssistant(t *testing.T, opts ...AssistantOption) (*Assistant, *mock.MockCompleter) {
	t.Helper()
	completer := mock.NewMockCompleter()
	completer.Response = "Go is a programming language."

	base := []AssistantOption{
		WithInMemoryStore(),
		WithAIProvider(mock.NewMockProviderWithServices(topicEmbedder(), completer)),
		WithSearchProviders(&stubProvider{results: []core.WebResult{
			{Title: "Paris weather", Snippet: "Sunny and mild.", URL: "https://example.com/paris"},
		}}),
	}
	a, err := NewAssistant(context.Background(), append(base, opts...)...)
	require.NoError(t, err)
	t.Cleanup(func() { a.Close() })
	return a, completer
}

func TestNewAssistant_RequiresStore(t *testing.T) {
	_, err := NewAssistant(context.Background(), WithAIProvider(mock.NewMockProvider()))
	assert.ErrorIs(t, err, ErrDataPathRequired)
}

func TestNewAssistant_PersistsToDisk(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "knowledge")

	a, err := NewAssistant(ctx, WithDataPath(path), WithAIProvider(mock.NewMockProvider()))
	require.NoError(t, err)
	_, err = a.InsertKnowledge(ctx, "Go has goroutines.", map[string]string{"source": "notes"})
	require.NoError(t, err)
	require.NoError(t, a.Close())

	a, err = NewAssistant(ctx, WithDataPath(path), WithAIProvider(mock.NewMockProvider()))
	require.NoError(t, err)
	defer a.Close()

	count, err := a.KnowledgeCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestHandleQuery_LocalKnowledge(t *testing.T) {
	a, completer := newTestAssistant(t)
	ctx := context.Background()

	_, err := a.InsertKnowledge(ctx, "Go is a statically typed language.", map[string]string{"title": "Go"})
	require.NoError(t, err)

	resp, err := a.HandleQuery(ctx, "What is Go?", "s1")
	require.NoError(t, err)

	assert.Equal(t, core.SourceKnowledgeBase, resp.Source)
	assert.True(t, resp.Success)
	assert.Equal(t, "s1", resp.SessionID)
	assert.InDelta(t, 1.0, resp.Confidence, 1e-6)
	assert.Equal(t, "Go is a programming language.", resp.Answer)
	assert.Contains(t, completer.LastPrompt(), "Go is a statically typed language.")
}

func TestHandleQuery_WebFallback(t *testing.T) {
	a, _ := newTestAssistant(t)
	ctx := context.Background()

	_, err := a.InsertKnowledge(ctx, "Go is a statically typed language.", nil)
	require.NoError(t, err)

	resp, err := a.HandleQuery(ctx, "What's the weather in Paris?", "")
	require.NoError(t, err)

	assert.Equal(t, core.SourceWebSearch, resp.Source)
	assert.Equal(t, "stub", resp.Provider)
	assert.NotEmpty(t, resp.SessionID)
}

func TestHandleQuery_BlankIsBlocked(t *testing.T) {
	a, completer := newTestAssistant(t)

	resp, err := a.HandleQuery(context.Background(), "   ", "s1")
	require.NoError(t, err)

	assert.Equal(t, core.SourceBlocked, resp.Source)
	assert.Equal(t, moderation.ReasonEmptyQuery, resp.Reason)
	assert.False(t, resp.Success)
	assert.Zero(t, completer.CallCount())
	assert.False(t, a.SessionStats("s1").Exists)
}

func TestHandleQuery_InvalidThreshold(t *testing.T) {
	a, _ := newTestAssistant(t)

	_, err := a.HandleQuery(context.Background(), "What is Go?", "s1", core.WithRelevanceThreshold(1.5))
	assert.ErrorIs(t, err, core.ErrInvalidThreshold)
}

func TestHandleBatch_PreservesOrder(t *testing.T) {
	a, _ := newTestAssistant(t)
	ctx := context.Background()

	_, err := a.InsertKnowledge(ctx, "Go is a statically typed language.", nil)
	require.NoError(t, err)

	questions := []string{"What is Go?", "", "What's the weather in Paris?"}
	responses, err := a.HandleBatch(ctx, questions, "batch")
	require.NoError(t, err)
	require.Len(t, responses, 3)

	assert.Equal(t, core.SourceKnowledgeBase, responses[0].Source)
	assert.Equal(t, core.SourceBlocked, responses[1].Source)
	assert.Equal(t, core.SourceWebSearch, responses[2].Source)
	assert.Equal(t, "What's the weather in Paris?", responses[2].Question)
}

func TestSessionLifecycle(t *testing.T) {
	a, _ := newTestAssistant(t)
	ctx := context.Background()

	for _, q := range []string{"What is Go?", "Who made Go?"} {
		_, err := a.HandleQuery(ctx, q, "s1")
		require.NoError(t, err)
	}

	stats := a.SessionStats("s1")
	assert.True(t, stats.Exists)
	assert.Equal(t, 2, stats.Turns)
	assert.Equal(t, 1, a.MemorySummary().ActiveSessions)

	a.ClearSession("s1")
	assert.False(t, a.SessionStats("s1").Exists)

	// Clearing an unknown session is a no-op.
	a.ClearSession("missing")
}

func TestHealthCheck(t *testing.T) {
	a, _ := newTestAssistant(t)

	health := a.HealthCheck(context.Background())
	assert.Equal(t, pipeline.StatusOK, health[pipeline.ComponentVectorStore])
	assert.Equal(t, pipeline.StatusOK, health[pipeline.ComponentLLM])
	assert.Equal(t, pipeline.StatusOK, health[pipeline.ComponentWebPrefix+"stub"])
}

func TestIngestDocument(t *testing.T) {
	a, _ := newTestAssistant(t)
	ctx := context.Background()

	var b strings.Builder
	for i := 0; i < 40; i++ {
		b.WriteString("Channels connect concurrent workers in a pipeline. ")
		if i%10 == 9 {
			b.WriteString("\n\n")
		}
	}

	result, err := a.IngestDocument(ctx, b.String(), map[string]string{"filename": "notes.txt"}, nil)
	require.NoError(t, err)
	assert.Zero(t, result.Failed())
	assert.NotEmpty(t, result.IDs)

	count, err := a.KnowledgeCount(ctx)
	require.NoError(t, err)
	assert.Positive(t, count)

	_, err = a.IngestDocument(ctx, "  \n ", nil, nil)
	assert.ErrorIs(t, err, core.ErrEmptyContent)
}

func TestWatchPolicy(t *testing.T) {
	a, completer := newTestAssistant(t)
	path := filepath.Join(t.TempDir(), "policy.yaml")
	policy := `categories:
  - name: spoilers
    patterns: ['\bending\b']
    block: true
    message: No spoilers.
`
	require.NoError(t, os.WriteFile(path, []byte(policy), 0o644))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, a.WatchPolicy(ctx, path))

	resp, err := a.HandleQuery(ctx, "How does the ending go?", "s1")
	require.NoError(t, err)
	assert.Equal(t, core.SourceBlocked, resp.Source)
	assert.Equal(t, "spoilers", resp.Reason)
	assert.Equal(t, "No spoilers.", resp.Answer)
	assert.Zero(t, completer.CallCount())

	assert.Error(t, a.WatchPolicy(ctx, filepath.Join(t.TempDir(), "missing.yaml")))
}

func TestNewAIProvider_Errors(t *testing.T) {
	ctx := context.Background()

	_, err := NewAIProvider(ctx, nil)
	assert.ErrorIs(t, err, ai.ErrConfigRequired)

	_, err = NewAIProvider(ctx, ai.NewConfig(ai.WithCompletionBackend("bogus")))
	assert.ErrorIs(t, err, ai.ErrUnknownBackend)

	_, err = NewAIProvider(ctx, ai.NewConfig(ai.WithCompletionBackend(ai.BackendGemini)))
	assert.ErrorIs(t, err, ai.ErrConfigRequired)
}

func TestDefaultSearchProviders(t *testing.T) {
	providers := DefaultSearchProviders("")
	require.Len(t, providers, 3)
	assert.Equal(t, websearch.SerperName, providers[0].Name())
	assert.Equal(t, websearch.WikipediaName, providers[1].Name())
	assert.Equal(t, websearch.DuckDuckGoName, providers[2].Name())
}

func TestClose_StopsSweeper(t *testing.T) {
	a, err := NewAssistant(context.Background(),
		WithInMemoryStore(),
		WithAIProvider(mock.NewMockProvider()),
		WithSweepInterval(time.Millisecond))
	require.NoError(t, err)
	assert.NoError(t, a.Close())
}
