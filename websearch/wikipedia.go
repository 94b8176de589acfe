package websearch

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"unicode"

	"github.com/go-resty/resty/v2"
	"github.com/poiesic/groundwork/core"
)

// WikipediaName is the provider name reported for Wikipedia results.
const WikipediaName = "wikipedia"

const wikipediaBaseURL = "https://en.wikipedia.org"

// Wikipedia looks the query up as an article title through the REST page
// summary endpoint. No key is required.
type Wikipedia struct {
	cfg    providerConfig
	client *resty.Client
	logger *slog.Logger
}

var _ Provider = (*Wikipedia)(nil)

type wikipediaSummary struct {
	Type        string `json:"type"`
	Title       string `json:"title"`
	Extract     string `json:"extract"`
	ContentURLs struct {
		Desktop struct {
			Page string `json:"page"`
		} `json:"desktop"`
	} `json:"content_urls"`
}

// NewWikipedia creates a Wikipedia provider.
func NewWikipedia(opts ...ProviderOption) *Wikipedia {
	cfg := newProviderConfig(wikipediaBaseURL, opts)
	return &Wikipedia{
		cfg:    cfg,
		client: cfg.newClient(),
		logger: slog.Default().With("component", "websearch", "provider", WikipediaName),
	}
}

// Name returns "wikipedia".
func (w *Wikipedia) Name() string { return WikipediaName }

// Search fetches the summary of the article best matching query.
// Missing articles and disambiguation pages yield no results.
func (w *Wikipedia) Search(ctx context.Context, query string) ([]core.WebResult, error) {
	title := ArticleTitle(query)
	if title == "" {
		return nil, nil
	}

	resp, err := w.client.R().
		SetContext(ctx).
		SetPathParam("title", title).
		Get("/api/rest_v1/page/summary/{title}")
	if err != nil {
		return nil, err
	}
	if resp.StatusCode() == http.StatusNotFound {
		w.logger.Debug("no article", "title", title)
		return nil, nil
	}
	if err := checkStatus(WikipediaName, resp); err != nil {
		return nil, err
	}

	var summary wikipediaSummary
	if err := json.Unmarshal(resp.Body(), &summary); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedResponse, err)
	}
	if summary.Type == "disambiguation" || strings.TrimSpace(summary.Extract) == "" {
		return nil, nil
	}

	return []core.WebResult{{
		Title:   summary.Title,
		Snippet: summary.Extract,
		URL:     summary.ContentURLs.Desktop.Page,
	}}, nil
}

// Ping checks the endpoint answers.
func (w *Wikipedia) Ping(ctx context.Context) error {
	return ping(ctx, w.client)
}

var questionPrefixes = []string{
	"what is the", "what is a", "what is an", "what is", "what are",
	"who is", "who was", "who were", "where is", "tell me about",
	"explain", "define", "describe",
}

// ArticleTitle turns a question into a Wikipedia title guess: leading
// question phrases and trailing punctuation are dropped, the first letter
// is capitalized and spaces become underscores.
func ArticleTitle(query string) string {
	q := strings.TrimSpace(query)
	q = strings.TrimRightFunc(q, func(r rune) bool {
		return unicode.IsPunct(r) || unicode.IsSpace(r)
	})

	lower := strings.ToLower(q)
	for _, prefix := range questionPrefixes {
		if strings.HasPrefix(lower, prefix+" ") {
			q = strings.TrimSpace(q[len(prefix):])
			break
		}
	}

	fields := strings.Fields(q)
	if len(fields) == 0 {
		return ""
	}
	title := strings.Join(fields, "_")
	r := []rune(title)
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}
