package ai

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.NotNil(t, cfg)
	assert.Equal(t, "http://localhost:11434/v1", cfg.EmbeddingHost)
	assert.Equal(t, "http://localhost:11434/v1", cfg.CompletionHost)
	assert.Equal(t, "embeddinggemma", cfg.EmbeddingModel)
	assert.Equal(t, "qwen2.5:3b", cfg.CompletionModel)
	assert.Equal(t, BackendOpenAI, cfg.CompletionBackend)
	assert.Equal(t, 0.1, cfg.Temperature)
	require.NoError(t, cfg.Validate())
}

func TestNewConfig(t *testing.T) {
	t.Run("with no options", func(t *testing.T) {
		cfg := NewConfig()
		assert.Equal(t, DefaultConfig(), cfg)
	})

	t.Run("with custom host", func(t *testing.T) {
		cfg := NewConfig(WithHost("http://custom:8080/v1"))

		assert.Equal(t, "http://custom:8080/v1", cfg.EmbeddingHost)
		assert.Equal(t, "http://custom:8080/v1", cfg.CompletionHost)
	})

	t.Run("with separate hosts", func(t *testing.T) {
		cfg := NewConfig(
			WithEmbeddingHost("http://embed:8080/v1"),
			WithCompletionHost("http://complete:9090/v1"),
		)

		assert.Equal(t, "http://embed:8080/v1", cfg.EmbeddingHost)
		assert.Equal(t, "http://complete:9090/v1", cfg.CompletionHost)
	})

	t.Run("groq backend defaults", func(t *testing.T) {
		cfg := NewConfig(WithCompletionBackend(BackendGroq), WithAPIKey("gsk-test"))

		assert.Equal(t, "https://api.groq.com/openai/v1", cfg.CompletionHost)
		assert.Equal(t, "llama-3.1-8b-instant", cfg.CompletionModel)
		require.NoError(t, cfg.Validate())
	})

	t.Run("backend then model override", func(t *testing.T) {
		cfg := NewConfig(
			WithCompletionBackend(BackendGemini),
			WithCompletionModel("gemini-1.5-pro"),
			WithAPIKey("key"),
		)

		assert.Equal(t, "gemini-1.5-pro", cfg.CompletionModel)
		assert.Empty(t, cfg.CompletionHost)
		require.NoError(t, cfg.Validate())
	})
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		name   string
		host   string
		expect string
	}{
		{"adds suffix", "http://localhost:11434", "http://localhost:11434/v1"},
		{"trailing slash", "http://localhost:11434/", "http://localhost:11434/v1"},
		{"already suffixed", "http://localhost:11434/v1", "http://localhost:11434/v1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewConfig(WithHost(tt.host))
			cfg.Normalize()
			assert.Equal(t, tt.expect, cfg.EmbeddingHost)
			assert.Equal(t, tt.expect, cfg.CompletionHost)
		})
	}

	t.Run("fills empty completion model", func(t *testing.T) {
		cfg := NewConfig(WithCompletionModel(""))
		cfg.Normalize()
		assert.Equal(t, "qwen2.5:3b", cfg.CompletionModel)
	})
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		opts    []ConfigOption
		wantErr error
	}{
		{"missing embedding host", []ConfigOption{WithEmbeddingHost("")}, ErrConfigRequired},
		{"missing embedding model", []ConfigOption{WithEmbeddingModel("")}, ErrConfigRequired},
		{"missing completion host", []ConfigOption{WithCompletionHost("")}, ErrConfigRequired},
		{"groq without key", []ConfigOption{WithCompletionBackend(BackendGroq), WithAPIKey("")}, ErrConfigRequired},
		{"gemini with placeholder key", []ConfigOption{WithCompletionBackend(BackendGemini)}, ErrConfigRequired},
		{"unknown backend", []ConfigOption{WithCompletionBackend("bogus")}, ErrUnknownBackend},
		{"temperature too high", []ConfigOption{WithTemperature(2.5)}, ErrInvalidTemperature},
		{"negative temperature", []ConfigOption{WithTemperature(-1)}, ErrInvalidTemperature},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewConfig(tt.opts...).Validate()
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}
