package synthesis

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/poiesic/groundwork/ai"
	"github.com/poiesic/groundwork/ai/mock"
	"github.com/poiesic/groundwork/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2025, 3, 14, 12, 0, 0, 0, time.UTC)

func newTestSynthesizer(t *testing.T, completer ai.Completer, opts ...Option) *Synthesizer {
	t.Helper()
	opts = append([]Option{WithClock(func() time.Time { return fixedNow })}, opts...)
	s, err := NewSynthesizer(completer, opts...)
	require.NoError(t, err)
	return s
}

func knowledge() Context {
	return KnowledgeContext([]core.RetrievedChunk{
		{Text: "Machine learning is a subfield of AI.", Score: 0.85, Metadata: map[string]string{"source": "ml.pdf"}},
		{Text: "Neural networks are models.", Score: 0.72},
	})
}

func web(provider string) Context {
	return WebContext([]core.WebResult{
		{Title: "Machine learning", Snippet: "ML studies algorithms that learn from data.", URL: "https://en.wikipedia.org/wiki/Machine_learning"},
		{Title: "Other", Snippet: "Second snippet.", URL: "https://other.example"},
	}, provider)
}

func TestNewSynthesizer(t *testing.T) {
	_, err := NewSynthesizer(nil)
	assert.ErrorIs(t, err, ErrCompleterRequired)

	_, err = NewSynthesizer(mock.NewMockCompleter(), WithTimeout(0))
	assert.ErrorIs(t, err, ErrInvalidTimeout)

	_, err = NewSynthesizer(mock.NewMockCompleter(), WithMaxTokens(-1))
	assert.ErrorIs(t, err, ErrInvalidMaxTokens)

	_, err = NewSynthesizer(mock.NewMockCompleter(), WithConfidenceTable(ConfidenceTable{Default: 1.5}))
	assert.ErrorIs(t, err, ErrInvalidConfidence)
}

func TestSynthesizeKnowledge(t *testing.T) {
	completer := mock.NewMockCompleter()
	completer.Response = "  ML is a subfield of AI.  "
	s := newTestSynthesizer(t, completer)

	res := s.Synthesize(context.Background(), "What is machine learning?", knowledge(), nil)

	assert.True(t, res.Success)
	assert.NoError(t, res.Err)
	assert.Equal(t, "ML is a subfield of AI.", res.Answer)
	assert.InDelta(t, 0.85, res.Confidence, 1e-9)
	require.Len(t, res.Citations, 2)
	assert.Equal(t, "ml.pdf", res.Citations[0].Title)
	assert.Equal(t, 1, completer.CallCount())

	prompt := completer.LastPrompt()
	assert.Contains(t, prompt, "ONLY the information in the context")
	assert.Contains(t, prompt, knowledgeGrounding)
	assert.Contains(t, prompt, "Machine learning is a subfield of AI.")
	assert.Contains(t, prompt, "Question: What is machine learning?")
	assert.NotContains(t, prompt, "Current date:")
}

func TestKnowledgeConfidenceFollowsScore(t *testing.T) {
	s := newTestSynthesizer(t, mock.NewMockCompleter())
	prev := -1.0
	for _, score := range []float64{0, 0.3, 0.7, 0.71, 0.9, 1, 1.4} {
		c := KnowledgeContext([]core.RetrievedChunk{{Text: "x", Score: score}})
		got := s.Confidence(c)
		assert.GreaterOrEqual(t, got, prev)
		assert.LessOrEqual(t, got, 1.0)
		prev = got
	}
}

func TestSynthesizeWebConfidence(t *testing.T) {
	tests := []struct {
		provider string
		want     float64
	}{
		{"serper", 0.8},
		{"wikipedia", 0.75},
		{"duckduckgo", 0.7},
		{"something-else", 0.6},
	}
	for _, tt := range tests {
		t.Run(tt.provider, func(t *testing.T) {
			completer := mock.NewMockCompleter()
			s := newTestSynthesizer(t, completer)

			res := s.Synthesize(context.Background(), "q", web(tt.provider), nil)
			assert.True(t, res.Success)
			assert.InDelta(t, tt.want, res.Confidence, 1e-9)
			require.Len(t, res.Citations, 2)
			assert.Equal(t, "https://en.wikipedia.org/wiki/Machine_learning", res.Citations[0].URL)

			prompt := completer.LastPrompt()
			assert.Contains(t, prompt, "Current date: 2025-03-14")
			assert.Contains(t, prompt, "web search results from "+tt.provider)
		})
	}
}

func TestSynthesizeDegraded(t *testing.T) {
	t.Run("completer error", func(t *testing.T) {
		completer := mock.NewMockCompleter()
		completer.CompleteFunc = func(ctx context.Context, prompt string, maxTokens int) (string, error) {
			return "", errors.New("quota exceeded")
		}
		s := newTestSynthesizer(t, completer)

		res := s.Synthesize(context.Background(), "q", web("serper"), nil)
		assert.False(t, res.Success)
		assert.Zero(t, res.Confidence)
		assert.Equal(t, "ML studies algorithms that learn from data.", res.Answer)
		assert.ErrorIs(t, res.Err, core.ErrSynthesisUnavailable)
		assert.NotEmpty(t, res.Citations)
	})

	t.Run("empty completion", func(t *testing.T) {
		completer := mock.NewMockCompleter()
		completer.CompleteFunc = func(ctx context.Context, prompt string, maxTokens int) (string, error) {
			return " \n ", nil
		}
		s := newTestSynthesizer(t, completer)

		res := s.Synthesize(context.Background(), "q", knowledge(), nil)
		assert.False(t, res.Success)
		assert.Equal(t, "Machine learning is a subfield of AI.", res.Answer)
		assert.ErrorIs(t, res.Err, ai.ErrEmptyCompletion)
	})

	t.Run("timeout with a completer that ignores context", func(t *testing.T) {
		completer := mock.NewMockCompleter()
		completer.CompleteFunc = func(ctx context.Context, prompt string, maxTokens int) (string, error) {
			time.Sleep(300 * time.Millisecond)
			return "too late", nil
		}
		s := newTestSynthesizer(t, completer, WithTimeout(20*time.Millisecond))

		start := time.Now()
		res := s.Synthesize(context.Background(), "q", knowledge(), nil)
		assert.Less(t, time.Since(start), 250*time.Millisecond)
		assert.False(t, res.Success)
		assert.ErrorIs(t, res.Err, context.DeadlineExceeded)
	})

	t.Run("long snippet is truncated", func(t *testing.T) {
		completer := mock.NewMockCompleter()
		completer.CompleteFunc = func(ctx context.Context, prompt string, maxTokens int) (string, error) {
			return "", errors.New("down")
		}
		s := newTestSynthesizer(t, completer)
		long := strings.Repeat("word ", 300)

		res := s.Synthesize(context.Background(), "q",
			KnowledgeContext([]core.RetrievedChunk{{Text: long, Score: 0.9}}), nil)
		assert.LessOrEqual(t, len([]rune(res.Answer)), DegradedAnswerLimit)
		assert.True(t, strings.HasSuffix(res.Answer, "..."))
	})
}

func TestSynthesizeEmptyContext(t *testing.T) {
	completer := mock.NewMockCompleter()
	s := newTestSynthesizer(t, completer)

	res := s.Synthesize(context.Background(), "q", WebContext(nil, core.ProviderNone), nil)
	assert.False(t, res.Success)
	assert.Zero(t, res.Confidence)
	assert.Equal(t, NoContextAnswer, res.Answer)
	assert.ErrorIs(t, res.Err, core.ErrWebSearchExhausted)
	assert.Zero(t, completer.CallCount())
}

func TestPromptHistory(t *testing.T) {
	history := []core.ConversationTurn{
		{Question: "first question", Answer: "first answer"},
		{Question: "second question", Answer: "second answer"},
		{Question: "third question", Answer: strings.Repeat("a", 400)},
	}

	t.Run("last turns oldest first", func(t *testing.T) {
		prompt := buildPrompt("follow up", knowledge(), history, 2, 150, fixedNow)

		assert.NotContains(t, prompt, "first question")
		second := strings.Index(prompt, "second question")
		third := strings.Index(prompt, "third question")
		require.Positive(t, second)
		assert.Less(t, second, third)
		assert.NotContains(t, prompt, strings.Repeat("a", 151))
		assert.Contains(t, prompt, strings.Repeat("a", 147)+"...")
	})

	t.Run("history disabled", func(t *testing.T) {
		prompt := buildPrompt("follow up", knowledge(), history, 0, 150, fixedNow)
		assert.NotContains(t, prompt, "Conversation so far")
	})
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcdefg...", truncate("abcdefghijklmnop", 10))
	assert.Equal(t, "héllo", truncate("  héllo  ", 5))
	assert.Equal(t, "ab", truncate("abcdef", 2))
	assert.Equal(t, "unbounded", truncate("unbounded", 0))
}
