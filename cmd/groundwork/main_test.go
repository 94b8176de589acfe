package main

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/poiesic/groundwork/ai"
	"github.com/poiesic/groundwork/core"
	"github.com/poiesic/groundwork/pipeline"
	"github.com/poiesic/groundwork/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"
)

// runWithFlags parses args against the shared assistant flags and hands the
// resulting context to fn.
func runWithFlags(t *testing.T, args []string, fn func(c *cli.Context) error) error {
	t.Helper()
	app := &cli.App{
		Name:   "groundwork",
		Flags:  assistantFlags(),
		Action: fn,
	}
	return app.Run(append([]string{"groundwork"}, args...))
}

func TestAIConfigFromFlags(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		var cfg *ai.Config
		require.NoError(t, runWithFlags(t, nil, func(c *cli.Context) error {
			cfg = aiConfig(c)
			return nil
		}))
		assert.Equal(t, ai.BackendOpenAI, cfg.CompletionBackend)
		assert.Equal(t, "embeddinggemma", cfg.EmbeddingModel)
		assert.NoError(t, cfg.Validate())
	})

	t.Run("backend defaults then overrides", func(t *testing.T) {
		var cfg *ai.Config
		args := []string{"--completion-backend", "groq", "--completion-model", "llama-3.3-70b", "--api-key", "k"}
		require.NoError(t, runWithFlags(t, args, func(c *cli.Context) error {
			cfg = aiConfig(c)
			return nil
		}))
		assert.Equal(t, ai.BackendGroq, cfg.CompletionBackend)
		assert.Equal(t, ai.DefaultCompletionHost(ai.BackendGroq), cfg.CompletionHost)
		assert.Equal(t, "llama-3.3-70b", cfg.CompletionModel)
		assert.Equal(t, "k", cfg.APIKey)
	})

	t.Run("gemini without key is invalid", func(t *testing.T) {
		var cfg *ai.Config
		require.NoError(t, runWithFlags(t, []string{"--completion-backend", "gemini"}, func(c *cli.Context) error {
			cfg = aiConfig(c)
			return nil
		}))
		assert.ErrorIs(t, cfg.Validate(), ai.ErrConfigRequired)
	})
}

func TestOpenRepository(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{"badger is opened by the assistant", nil, ""},
		{"unknown store", []string{"--store", "sqlite"}, "unknown store"},
		{"pgvector needs a dsn", []string{"--store", "pgvector"}, "postgres-dsn"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("DATABASE_URL", "")
			err := runWithFlags(t, tt.args, func(c *cli.Context) error {
				repo, err := openRepository(context.Background(), c)
				if err == nil {
					assert.Equal(t, storage.KnowledgeRepository(nil), repo)
				}
				return err
			})
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestAskRequiresQuestion(t *testing.T) {
	err := newApp().Run([]string{"groundwork", "ask"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "question is required")
}

func TestIngestArguments(t *testing.T) {
	err := newApp().Run([]string{"groundwork", "ingest"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exactly one file")

	err = newApp().Run([]string{"groundwork", "ingest", filepath.Join(t.TempDir(), "missing.txt")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read")
}

func TestInvalidLogLevel(t *testing.T) {
	err := newApp().Run([]string{"groundwork", "--log-level", "loud", "health"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid log level")
}

func TestPrintResponse(t *testing.T) {
	resp := &core.Response{
		Answer:     "Paris is sunny.",
		Source:     core.SourceWebSearch,
		Provider:   "wikipedia",
		Confidence: 0.75,
		Citations:  []core.Citation{{Title: "Paris", URL: "https://en.wikipedia.org/wiki/Paris"}},
	}

	var buf bytes.Buffer
	require.NoError(t, printResponse(&buf, resp, false))
	out := buf.String()
	assert.Contains(t, out, "Paris is sunny.")
	assert.Contains(t, out, "Source: web_search (wikipedia)")
	assert.Contains(t, out, "Confidence: 0.75")
	assert.Contains(t, out, "<https://en.wikipedia.org/wiki/Paris>")

	buf.Reset()
	require.NoError(t, printResponse(&buf, resp, true))
	assert.Contains(t, buf.String(), `"provider": "wikipedia"`)
}

func TestPrintHealth(t *testing.T) {
	var buf bytes.Buffer
	err := printHealth(&buf, map[string]string{
		pipeline.ComponentVectorStore: pipeline.StatusOK,
		pipeline.ComponentLLM:         pipeline.StatusOK,
	})
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "llm")

	buf.Reset()
	err = printHealth(&buf, map[string]string{
		pipeline.ComponentLLM:                 pipeline.StatusOK,
		pipeline.ComponentWebPrefix + "serper": "unavailable: api key required",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 component(s) unhealthy")
	assert.Contains(t, buf.String(), "web_search.serper")
}
