package websearch

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-resty/resty/v2"
	"github.com/poiesic/groundwork/core"
)

// DuckDuckGoName is the provider name reported for DuckDuckGo results.
const DuckDuckGoName = "duckduckgo"

const duckDuckGoBaseURL = "https://api.duckduckgo.com"

// DuckDuckGo queries the Instant Answer API. No key is required, so it is
// the usual last resort.
type DuckDuckGo struct {
	cfg    providerConfig
	client *resty.Client
	logger *slog.Logger
}

var _ Provider = (*DuckDuckGo)(nil)

type ddgTopic struct {
	Text     string     `json:"Text"`
	FirstURL string     `json:"FirstURL"`
	Topics   []ddgTopic `json:"Topics"`
}

type ddgResponse struct {
	Heading       string     `json:"Heading"`
	AbstractText  string     `json:"AbstractText"`
	AbstractURL   string     `json:"AbstractURL"`
	Answer        string     `json:"Answer"`
	Definition    string     `json:"Definition"`
	DefinitionURL string     `json:"DefinitionURL"`
	RelatedTopics []ddgTopic `json:"RelatedTopics"`
}

// NewDuckDuckGo creates a DuckDuckGo provider.
func NewDuckDuckGo(opts ...ProviderOption) *DuckDuckGo {
	cfg := newProviderConfig(duckDuckGoBaseURL, opts)
	return &DuckDuckGo{
		cfg:    cfg,
		client: cfg.newClient(),
		logger: slog.Default().With("component", "websearch", "provider", DuckDuckGoName),
	}
}

// Name returns "duckduckgo".
func (d *DuckDuckGo) Name() string { return DuckDuckGoName }

// Search maps the abstract, definition and related topics to results.
func (d *DuckDuckGo) Search(ctx context.Context, query string) ([]core.WebResult, error) {
	resp, err := d.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"q":             query,
			"format":        "json",
			"no_html":       "1",
			"skip_disambig": "1",
		}).
		Get("/")
	if err != nil {
		return nil, err
	}
	if err := checkStatus(DuckDuckGoName, resp); err != nil {
		return nil, err
	}

	// The API answers with a javascript content type, so decode by hand.
	var body ddgResponse
	if err := json.Unmarshal(resp.Body(), &body); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedResponse, err)
	}

	var results []core.WebResult
	add := func(title, snippet, url string) {
		if len(results) < d.cfg.maxResults && strings.TrimSpace(snippet) != "" {
			results = append(results, core.WebResult{Title: title, Snippet: snippet, URL: url})
		}
	}

	add(body.Heading, body.AbstractText, body.AbstractURL)
	add(body.Heading, body.Answer, "")
	add(body.Heading, body.Definition, body.DefinitionURL)
	for _, topic := range flattenTopics(body.RelatedTopics) {
		add(topicTitle(topic.Text), topic.Text, topic.FirstURL)
	}

	d.logger.Debug("search complete", "results", len(results))
	return results, nil
}

// Ping checks the endpoint answers.
func (d *DuckDuckGo) Ping(ctx context.Context) error {
	return ping(ctx, d.client)
}

// flattenTopics expands grouped topics in order.
func flattenTopics(topics []ddgTopic) []ddgTopic {
	var out []ddgTopic
	for _, t := range topics {
		if len(t.Topics) > 0 {
			out = append(out, flattenTopics(t.Topics)...)
			continue
		}
		out = append(out, t)
	}
	return out
}

// topicTitle uses the text before the first " - " as a title.
func topicTitle(text string) string {
	if i := strings.Index(text, " - "); i > 0 {
		return text[:i]
	}
	return ""
}
