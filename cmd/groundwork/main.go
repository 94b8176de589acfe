// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/poiesic/groundwork"
	"github.com/poiesic/groundwork/ai"
	"github.com/poiesic/groundwork/core"
	"github.com/poiesic/groundwork/ingest"
	"github.com/poiesic/groundwork/logging"
	"github.com/poiesic/groundwork/pipeline"
	"github.com/poiesic/groundwork/server"
	"github.com/poiesic/groundwork/storage"
	"github.com/poiesic/groundwork/storage/chroma"
	"github.com/poiesic/groundwork/storage/pgvector"
	"github.com/urfave/cli/v2"
)

const (
	storeBadger   = "badger"
	storeChroma   = "chroma"
	storePgvector = "pgvector"
)

func main() {
	// A missing .env is fine; the environment may already be set.
	_ = godotenv.Load()

	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "groundwork",
		Usage: "Answer questions from a knowledge base, falling back to web search",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
				EnvVars: []string{"GROUNDWORK_LOG_LEVEL"},
			},
			&cli.StringFlag{
				Name:    "log-format",
				Usage:   "Log output format (text, json)",
				Value:   "text",
				EnvVars: []string{"GROUNDWORK_LOG_FORMAT"},
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Serve the HTTP API",
				Action: serveCommand,
				Flags: append(assistantFlags(),
					&cli.StringFlag{
						Name:    "addr",
						Usage:   "Listen address",
						Value:   ":8080",
						EnvVars: []string{"GROUNDWORK_ADDR"},
					},
				),
			},
			{
				Name:      "ask",
				Usage:     "Answer one question",
				ArgsUsage: "<question>",
				Action:    askCommand,
				Flags: append(assistantFlags(),
					&cli.StringFlag{
						Name:  "session",
						Usage: "Session id for conversation history",
					},
					&cli.Float64Flag{
						Name:  "threshold",
						Usage: "Minimum relevance score for local knowledge",
						Value: core.DefaultRelevanceThreshold,
					},
					&cli.BoolFlag{
						Name:  "trace",
						Usage: "Print each pipeline step to stderr",
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Print the full response as JSON",
					},
				),
			},
			{
				Name:      "ingest",
				Usage:     "Split a text file into chunks and store them",
				ArgsUsage: "<file>",
				Action:    ingestCommand,
				Flags: append(assistantFlags(),
					&cli.IntFlag{
						Name:  "chunk-size",
						Usage: "Maximum characters per chunk",
						Value: ingest.DefaultChunkSize,
					},
					&cli.IntFlag{
						Name:  "chunk-overlap",
						Usage: "Characters shared by adjacent chunks",
						Value: ingest.DefaultChunkOverlap,
					},
					&cli.IntFlag{
						Name:  "report-interval",
						Usage: "Report progress every N chunks",
						Value: 10,
					},
				),
			},
			{
				Name:   "health",
				Usage:  "Check the vector store, language model and search providers",
				Action: healthCommand,
				Flags:  assistantFlags(),
			},
		},
	}
}

// assistantFlags returns a fresh copy of the flags shared by every command
// that builds an Assistant.
func assistantFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "store",
			Usage:   "Knowledge store backend (badger, chroma, pgvector)",
			Value:   storeBadger,
			EnvVars: []string{"GROUNDWORK_STORE"},
		},
		&cli.StringFlag{
			Name:    "db",
			Aliases: []string{"d"},
			Usage:   "Path to BadgerDB database directory",
			Value:   "groundwork-data",
			EnvVars: []string{"GROUNDWORK_DB"},
		},
		&cli.StringFlag{
			Name:    "chroma-url",
			Usage:   "Chroma server URL",
			Value:   "http://localhost:8000",
			EnvVars: []string{"CHROMA_URL"},
		},
		&cli.StringFlag{
			Name:    "collection",
			Usage:   "Chroma collection or Postgres table name",
			Value:   "knowledge",
			EnvVars: []string{"GROUNDWORK_COLLECTION"},
		},
		&cli.StringFlag{
			Name:    "postgres-dsn",
			Usage:   "Postgres connection string for the pgvector store",
			EnvVars: []string{"DATABASE_URL"},
		},
		&cli.StringFlag{
			Name:    "embedding-host",
			Usage:   "Embedding service host URL",
			Value:   "http://localhost:11434/v1",
			EnvVars: []string{"EMBEDDING_HOST"},
		},
		&cli.StringFlag{
			Name:    "embedding-model",
			Usage:   "Embedding model name",
			Value:   "embeddinggemma",
			EnvVars: []string{"EMBEDDING_MODEL"},
		},
		&cli.StringFlag{
			Name:    "embedding-token",
			Usage:   "Embedding service API token",
			Value:   "none",
			EnvVars: []string{"EMBEDDING_TOKEN", "OPENAI_API_KEY"},
		},
		&cli.StringFlag{
			Name:    "completion-backend",
			Usage:   "Completion backend (openai, groq, gemini)",
			Value:   string(ai.BackendOpenAI),
			EnvVars: []string{"COMPLETION_BACKEND"},
		},
		&cli.StringFlag{
			Name:    "completion-host",
			Usage:   "Completion service host URL (defaults per backend)",
			EnvVars: []string{"COMPLETION_HOST"},
		},
		&cli.StringFlag{
			Name:    "completion-model",
			Usage:   "Completion model name (defaults per backend)",
			EnvVars: []string{"COMPLETION_MODEL"},
		},
		&cli.StringFlag{
			Name:    "api-key",
			Usage:   "Completion API key, required for groq and gemini",
			EnvVars: []string{"COMPLETION_API_KEY", "GROQ_API_KEY", "GEMINI_API_KEY"},
		},
		&cli.Float64Flag{
			Name:    "temperature",
			Usage:   "Completion sampling temperature",
			Value:   0.1,
			EnvVars: []string{"COMPLETION_TEMPERATURE"},
		},
		&cli.StringFlag{
			Name:    "serper-api-key",
			Usage:   "Serper API key; without it Serper is skipped",
			EnvVars: []string{"SERPER_API_KEY"},
		},
		&cli.StringFlag{
			Name:    "policy",
			Usage:   "Moderation policy YAML file, reloaded on change",
			EnvVars: []string{"GROUNDWORK_POLICY"},
		},
	}
}

func setupLogger(c *cli.Context) error {
	return logging.Setup(os.Stderr, c.String("log-level"), c.String("log-format"))
}

// aiConfig builds the AI configuration from flags. The backend is applied
// first so explicit host and model flags override its defaults.
func aiConfig(c *cli.Context) *ai.Config {
	opts := []ai.ConfigOption{
		ai.WithCompletionBackend(ai.Backend(strings.ToLower(c.String("completion-backend")))),
		ai.WithEmbeddingHost(c.String("embedding-host")),
		ai.WithEmbeddingModel(c.String("embedding-model")),
		ai.WithEmbeddingToken(c.String("embedding-token")),
		ai.WithTemperature(c.Float64("temperature")),
	}
	if host := c.String("completion-host"); host != "" {
		opts = append(opts, ai.WithCompletionHost(host))
	}
	if model := c.String("completion-model"); model != "" {
		opts = append(opts, ai.WithCompletionModel(model))
	}
	if key := c.String("api-key"); key != "" {
		opts = append(opts, ai.WithAPIKey(key))
	}
	return ai.NewConfig(opts...)
}

// openRepository opens the non-default knowledge stores. Badger is opened
// by the Assistant itself, so it returns nil for that backend.
func openRepository(ctx context.Context, c *cli.Context) (storage.KnowledgeRepository, error) {
	switch c.String("store") {
	case storeBadger:
		return nil, nil
	case storeChroma:
		return chroma.Open(ctx, c.String("chroma-url"), c.String("collection"))
	case storePgvector:
		dsn := c.String("postgres-dsn")
		if dsn == "" {
			return nil, fmt.Errorf("postgres-dsn is required for the pgvector store")
		}
		return pgvector.Open(ctx, dsn, c.String("collection"))
	}
	return nil, fmt.Errorf("unknown store %q: must be one of badger, chroma, pgvector", c.String("store"))
}

func openAssistant(ctx context.Context, c *cli.Context, extra ...groundwork.AssistantOption) (*groundwork.Assistant, error) {
	cfg := aiConfig(c)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid AI configuration: %w", err)
	}

	opts := []groundwork.AssistantOption{
		groundwork.WithAIConfig(cfg),
		groundwork.WithSerperAPIKey(c.String("serper-api-key")),
	}

	repo, err := openRepository(ctx, c)
	if err != nil {
		return nil, fmt.Errorf("failed to open knowledge store: %w", err)
	}
	if repo != nil {
		opts = append(opts, groundwork.WithKnowledgeRepository(repo))
	} else {
		opts = append(opts, groundwork.WithDataPath(c.String("db")))
	}

	a, err := groundwork.NewAssistant(ctx, append(opts, extra...)...)
	if err != nil {
		if repo != nil {
			repo.Close()
		}
		return nil, fmt.Errorf("failed to start assistant: %w", err)
	}

	if path := c.String("policy"); path != "" {
		if err := a.WatchPolicy(ctx, path); err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to load moderation policy: %w", err)
		}
	}
	return a, nil
}

func serveCommand(c *cli.Context) error {
	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := openAssistant(ctx, c)
	if err != nil {
		return err
	}
	defer a.Close()

	srv, err := server.New(a)
	if err != nil {
		return err
	}
	return srv.Run(ctx, c.String("addr"))
}

func askCommand(c *cli.Context) error {
	question := strings.Join(c.Args().Slice(), " ")
	if strings.TrimSpace(question) == "" {
		return fmt.Errorf("a question is required")
	}

	var extra []groundwork.AssistantOption
	if c.Bool("trace") {
		extra = append(extra, groundwork.WithPipelineOptions(
			pipeline.WithMonitor(&pipeline.TraceMonitor{W: os.Stderr})))
	}

	a, err := openAssistant(c.Context, c, extra...)
	if err != nil {
		return err
	}
	defer a.Close()

	resp, err := a.HandleQuery(c.Context, question, c.String("session"),
		core.WithRelevanceThreshold(c.Float64("threshold")))
	if err != nil {
		return err
	}
	return printResponse(c.App.Writer, resp, c.Bool("json"))
}

func printResponse(w io.Writer, resp *core.Response, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(resp)
	}

	fmt.Fprintln(w, resp.Answer)
	fmt.Fprintln(w)
	source := resp.Source
	if resp.Provider != "" {
		source += " (" + resp.Provider + ")"
	}
	fmt.Fprintf(w, "Source: %s\n", source)
	fmt.Fprintf(w, "Confidence: %.2f\n", resp.Confidence)
	for _, cite := range resp.Citations {
		switch {
		case cite.URL != "":
			fmt.Fprintf(w, "  - %s <%s>\n", cite.Title, cite.URL)
		case cite.Title != "":
			fmt.Fprintf(w, "  - %s (%.2f)\n", cite.Title, cite.Score)
		}
	}
	if resp.Reason != "" {
		fmt.Fprintf(w, "Reason: %s\n", resp.Reason)
	}
	return nil
}

func ingestCommand(c *cli.Context) error {
	if c.NArg() != 1 {
		return fmt.Errorf("exactly one file is required")
	}
	path := c.Args().First()

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}

	items, err := ingest.Split(string(data), c.Int("chunk-size"), c.Int("chunk-overlap"),
		map[string]string{"filename": filepath.Base(path), "source": path})
	if err != nil {
		return err
	}
	if len(items) == 0 {
		return fmt.Errorf("%s: %w", path, core.ErrEmptyContent)
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := openAssistant(ctx, c)
	if err != nil {
		return err
	}
	defer a.Close()

	fmt.Fprintf(os.Stderr, "File: %s\n", path)
	fmt.Fprintf(os.Stderr, "Chunks: %d\n", len(items))
	fmt.Fprintln(os.Stderr)

	progress := ingest.NewProgress(os.Stderr, len(items), c.Int("report-interval"))
	result := a.InsertItems(ctx, items, progress)
	progress.Finish()

	if failed := result.Failed(); failed > 0 {
		return fmt.Errorf("%d of %d chunks failed to insert", failed, len(items))
	}
	return nil
}

func healthCommand(c *cli.Context) error {
	a, err := openAssistant(c.Context, c)
	if err != nil {
		return err
	}
	defer a.Close()

	health := a.HealthCheck(c.Context)
	return printHealth(c.App.Writer, health)
}

// printHealth writes one line per component in name order and fails if any
// component is unhealthy.
func printHealth(w io.Writer, health map[string]string) error {
	names := make([]string, 0, len(health))
	for name := range health {
		names = append(names, name)
	}
	sort.Strings(names)

	unhealthy := 0
	for _, name := range names {
		fmt.Fprintf(w, "%-24s %s\n", name, health[name])
		if health[name] != pipeline.StatusOK {
			unhealthy++
		}
	}
	if unhealthy > 0 {
		return fmt.Errorf("%d component(s) unhealthy", unhealthy)
	}
	return nil
}
