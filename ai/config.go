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


package ai

import (
	"fmt"
	"strings"
)

// Backend names the service used for answer completions.
type Backend string

const (
	// BackendOpenAI is any OpenAI-compatible server (Ollama, vLLM, OpenAI) via langchaingo.
	BackendOpenAI Backend = "openai"
	// BackendGroq is Groq's OpenAI-compatible API via go-openai.
	BackendGroq Backend = "groq"
	// BackendGemini is Google's Gemini API via the genai SDK.
	BackendGemini Backend = "gemini"
)

const (
	defaultLocalHost = "http://localhost:11434/v1"
	defaultGroqHost  = "https://api.groq.com/openai/v1"
)

// Config holds configuration for AI service providers.
type Config struct {
	// EmbeddingHost is the base URL for the OpenAI-compatible embedding API.
	// Example: "http://localhost:11434/v1" for local OpenAI-compatible server
	EmbeddingHost string

	// EmbeddingModel is the model identifier to use for text embeddings.
	// Example: "embeddinggemma", "text-embedding-3-small"
	EmbeddingModel string

	// EmbeddingToken authenticates embedding requests. Local servers accept "none".
	EmbeddingToken string

	// CompletionBackend selects the completion service.
	CompletionBackend Backend

	// CompletionHost is the base URL for the completion API.
	// Ignored by the gemini backend.
	CompletionHost string

	// CompletionModel is the model identifier used for answer synthesis.
	// Example: "qwen2.5:3b", "llama-3.1-8b-instant", "gemini-2.0-flash"
	CompletionModel string

	// APIKey authenticates completion requests. Required for groq and gemini.
	APIKey string

	// Temperature is the sampling temperature for completions, in [0,2].
	// Default: 0.1
	Temperature float64
}

// ConfigOption is a functional option for configuring a Config.
type ConfigOption func(*Config)

// WithEmbeddingHost sets the embedding service host URL.
func WithEmbeddingHost(host string) ConfigOption {
	return func(c *Config) {
		c.EmbeddingHost = host
	}
}

// WithCompletionHost sets the completion service host URL.
func WithCompletionHost(host string) ConfigOption {
	return func(c *Config) {
		c.CompletionHost = host
	}
}

// WithHost sets both embedding and completion hosts to the same URL.
func WithHost(host string) ConfigOption {
	return func(c *Config) {
		c.EmbeddingHost = host
		c.CompletionHost = host
	}
}

// WithEmbeddingModel sets the embedding model identifier.
func WithEmbeddingModel(model string) ConfigOption {
	return func(c *Config) {
		c.EmbeddingModel = model
	}
}

// WithEmbeddingToken sets the token sent with embedding requests.
func WithEmbeddingToken(token string) ConfigOption {
	return func(c *Config) {
		c.EmbeddingToken = token
	}
}

// WithCompletionBackend selects the completion backend and resets the
// completion host and model to that backend's defaults. Apply it before
// WithCompletionHost or WithCompletionModel.
func WithCompletionBackend(backend Backend) ConfigOption {
	return func(c *Config) {
		c.CompletionBackend = backend
		c.CompletionHost = DefaultCompletionHost(backend)
		c.CompletionModel = DefaultCompletionModel(backend)
	}
}

// WithCompletionModel sets the completion model identifier.
func WithCompletionModel(model string) ConfigOption {
	return func(c *Config) {
		c.CompletionModel = model
	}
}

// WithAPIKey sets the completion API key.
func WithAPIKey(key string) ConfigOption {
	return func(c *Config) {
		c.APIKey = key
	}
}

// WithTemperature sets the completion sampling temperature.
func WithTemperature(t float64) ConfigOption {
	return func(c *Config) {
		c.Temperature = t
	}
}

// DefaultCompletionHost returns the default completion URL for a backend.
func DefaultCompletionHost(backend Backend) string {
	switch backend {
	case BackendGroq:
		return defaultGroqHost
	case BackendGemini:
		return ""
	default:
		return defaultLocalHost
	}
}

// DefaultCompletionModel returns the default completion model for a backend.
func DefaultCompletionModel(backend Backend) string {
	switch backend {
	case BackendGroq:
		return "llama-3.1-8b-instant"
	case BackendGemini:
		return "gemini-2.0-flash"
	default:
		return "qwen2.5:3b"
	}
}

// DefaultConfig returns a Config with sensible defaults for local OpenAI-compatible services.
// By default, both embeddings and completions use the same local host.
func DefaultConfig() *Config {
	return &Config{
		EmbeddingHost:     defaultLocalHost,
		EmbeddingModel:    "embeddinggemma",
		EmbeddingToken:    "none",
		CompletionBackend: BackendOpenAI,
		CompletionHost:    defaultLocalHost,
		CompletionModel:   DefaultCompletionModel(BackendOpenAI),
		APIKey:            "none",
		Temperature:       0.1,
	}
}

// NewConfig creates a Config with the default values and applies the provided options.
// This is the recommended way to create a Config with custom settings.
//
// Example:
//
//	cfg := NewConfig(
//	    WithCompletionBackend(BackendGroq),
//	    WithAPIKey(os.Getenv("GROQ_API_KEY")),
//	)
func NewConfig(opts ...ConfigOption) *Config {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// Normalize ensures the configuration is in a canonical form.
// It adds the /v1 suffix to OpenAI-compatible hosts if missing, which is required
// by most OpenAI-compatible APIs (Ollama, LocalAI, vLLM, etc).
func (c *Config) Normalize() {
	c.EmbeddingHost = withV1Suffix(c.EmbeddingHost)
	if c.CompletionBackend == "" {
		c.CompletionBackend = BackendOpenAI
	}
	if c.CompletionBackend == BackendOpenAI {
		c.CompletionHost = withV1Suffix(c.CompletionHost)
	}
	if c.CompletionModel == "" {
		c.CompletionModel = DefaultCompletionModel(c.CompletionBackend)
	}
}

func withV1Suffix(host string) string {
	if host == "" || strings.HasSuffix(host, "/v1") {
		return host
	}
	return strings.TrimSuffix(host, "/") + "/v1"
}

// Validate checks that the configuration is valid and complete.
// It automatically normalizes the configuration before validation.
func (c *Config) Validate() error {
	c.Normalize()

	if c.EmbeddingHost == "" {
		return fmt.Errorf("%w: EmbeddingHost", ErrConfigRequired)
	}
	if c.EmbeddingModel == "" {
		return fmt.Errorf("%w: EmbeddingModel", ErrConfigRequired)
	}
	switch c.CompletionBackend {
	case BackendOpenAI:
		if c.CompletionHost == "" {
			return fmt.Errorf("%w: CompletionHost", ErrConfigRequired)
		}
	case BackendGroq:
		if c.CompletionHost == "" {
			return fmt.Errorf("%w: CompletionHost", ErrConfigRequired)
		}
		if c.APIKey == "" || c.APIKey == "none" {
			return fmt.Errorf("%w: APIKey for groq", ErrConfigRequired)
		}
	case BackendGemini:
		if c.APIKey == "" || c.APIKey == "none" {
			return fmt.Errorf("%w: APIKey for gemini", ErrConfigRequired)
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownBackend, c.CompletionBackend)
	}
	if c.Temperature < 0 || c.Temperature > 2 {
		return ErrInvalidTemperature
	}
	return nil
}
