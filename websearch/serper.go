package websearch

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/go-resty/resty/v2"
	"github.com/poiesic/groundwork/core"
)

// SerperName is the provider name reported for Serper results.
const SerperName = "serper"

const serperBaseURL = "https://google.serper.dev"

// Serper queries Google results through the Serper API. It needs an API key;
// without one every call fails fast so the aggregator moves on.
type Serper struct {
	apiKey string
	cfg    providerConfig
	client *resty.Client
	logger *slog.Logger
}

var _ Provider = (*Serper)(nil)

type serperRequest struct {
	Q   string `json:"q"`
	Num int    `json:"num"`
}

type serperResponse struct {
	Organic []struct {
		Title   string `json:"title"`
		Link    string `json:"link"`
		Snippet string `json:"snippet"`
	} `json:"organic"`
}

// NewSerper creates a Serper provider.
func NewSerper(apiKey string, opts ...ProviderOption) *Serper {
	cfg := newProviderConfig(serperBaseURL, opts)
	return &Serper{
		apiKey: apiKey,
		cfg:    cfg,
		client: cfg.newClient().SetHeader("Content-Type", "application/json"),
		logger: slog.Default().With("component", "websearch", "provider", SerperName),
	}
}

// Name returns "serper".
func (s *Serper) Name() string { return SerperName }

// Search posts the query to /search and maps organic results.
func (s *Serper) Search(ctx context.Context, query string) ([]core.WebResult, error) {
	if s.apiKey == "" {
		return nil, ErrAPIKeyRequired
	}

	resp, err := s.client.R().
		SetContext(ctx).
		SetHeader("X-API-KEY", s.apiKey).
		SetBody(serperRequest{Q: query, Num: s.cfg.maxResults}).
		Post("/search")
	if err != nil {
		return nil, err
	}
	if err := checkStatus(SerperName, resp); err != nil {
		return nil, err
	}

	var body serperResponse
	if err := json.Unmarshal(resp.Body(), &body); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedResponse, err)
	}

	results := make([]core.WebResult, 0, len(body.Organic))
	for _, item := range body.Organic {
		if len(results) == s.cfg.maxResults {
			break
		}
		results = append(results, core.WebResult{
			Title:   item.Title,
			Snippet: item.Snippet,
			URL:     item.Link,
		})
	}
	s.logger.Debug("search complete", "results", len(results))
	return results, nil
}

// Ping fails without an API key; otherwise it checks the endpoint answers.
func (s *Serper) Ping(ctx context.Context) error {
	if s.apiKey == "" {
		return ErrAPIKeyRequired
	}
	return ping(ctx, s.client)
}
