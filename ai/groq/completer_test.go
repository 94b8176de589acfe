package groq

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/poiesic/groundwork/ai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, content string, captured *map[string]any) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer gsk-test", r.Header.Get("Authorization"))
		if captured != nil {
			require.NoError(t, json.NewDecoder(r.Body).Decode(captured))
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"id":     "cmpl-1",
			"object": "chat.completion",
			"choices": []map[string]any{
				{"index": 0, "message": map[string]any{"role": "assistant", "content": content}},
			},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestCompleter(t *testing.T, url string) ai.Completer {
	t.Helper()
	cfg := ai.NewConfig(
		ai.WithCompletionBackend(ai.BackendGroq),
		ai.WithCompletionHost(url),
		ai.WithAPIKey("gsk-test"),
	)
	c, err := NewCompleter(cfg)
	require.NoError(t, err)
	return c
}

func TestComplete(t *testing.T) {
	var body map[string]any
	srv := newTestServer(t, "  Machine learning is a subfield of AI.  ", &body)
	c := newTestCompleter(t, srv.URL)

	text, err := c.Complete(context.Background(), "What is ML?", 500)
	require.NoError(t, err)
	assert.Equal(t, "Machine learning is a subfield of AI.", text)

	assert.Equal(t, "llama-3.1-8b-instant", body["model"])
	assert.EqualValues(t, 500, body["max_tokens"])
}

func TestComplete_EmptyContent(t *testing.T) {
	srv := newTestServer(t, "   ", nil)
	c := newTestCompleter(t, srv.URL)

	_, err := c.Complete(context.Background(), "q", 10)
	assert.ErrorIs(t, err, ai.ErrEmptyCompletion)
}

func TestComplete_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"rate limited"}}`, http.StatusTooManyRequests)
	}))
	defer srv.Close()
	c := newTestCompleter(t, srv.URL)

	_, err := c.Complete(context.Background(), "q", 10)
	assert.Error(t, err)
}

func TestNewCompleter_RequiresKey(t *testing.T) {
	cfg := ai.NewConfig(ai.WithCompletionBackend(ai.BackendGroq), ai.WithAPIKey(""))
	_, err := NewCompleter(cfg)
	assert.ErrorIs(t, err, ai.ErrConfigRequired)
}
