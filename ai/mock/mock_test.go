package mock

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockEmbedder_Deterministic(t *testing.T) {
	m := NewMockEmbedder()
	ctx := context.Background()

	v1, err := m.EmbedText(ctx, "hello")
	require.NoError(t, err)
	v2, err := m.EmbedText(ctx, "hello")
	require.NoError(t, err)

	assert.Equal(t, v1, v2)
	assert.Len(t, v1, 384)
	assert.Equal(t, 2, m.CallCount())

	m.Reset()
	assert.Equal(t, 0, m.CallCount())
}

func TestMockCompleter(t *testing.T) {
	m := NewMockCompleter()
	ctx := context.Background()

	text, err := m.Complete(ctx, "prompt one", 10)
	require.NoError(t, err)
	assert.Equal(t, "mock answer", text)

	m.Response = "canned"
	text, err = m.Complete(ctx, "prompt two", 10)
	require.NoError(t, err)
	assert.Equal(t, "canned", text)
	assert.Equal(t, "prompt two", m.LastPrompt())

	boom := errors.New("boom")
	m.CompleteFunc = func(ctx context.Context, prompt string, maxTokens int) (string, error) {
		return "", boom
	}
	_, err = m.Complete(ctx, "prompt three", 10)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 3, m.CallCount())

	m.Reset()
	assert.Equal(t, 0, m.CallCount())
	assert.Empty(t, m.LastPrompt())
}

func TestMockProvider(t *testing.T) {
	p := NewMockProvider().(*MockProvider)
	assert.Same(t, p.GetMockEmbedder(), p.Embedder())
	assert.Same(t, p.GetMockCompleter(), p.Completer())
	assert.NoError(t, p.Close())
}
