package websearch

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/poiesic/groundwork/core"
)

// Provider is one web search backend. The aggregator holds an ordered list
// of providers and treats them uniformly.
type Provider interface {
	// Name identifies the provider in responses and confidence tables.
	Name() string

	// Search returns results for query. An empty slice with a nil error
	// means the provider had nothing; both cases cause fail-over.
	Search(ctx context.Context, query string) ([]core.WebResult, error)

	// Ping reports whether the provider is configured and reachable.
	Ping(ctx context.Context) error
}

const (
	defaultMaxResults = 3
	defaultUserAgent  = "groundwork/1.0"
)

type providerConfig struct {
	baseURL    string
	maxResults int
	userAgent  string
	timeout    time.Duration
}

// ProviderOption configures a provider.
type ProviderOption func(*providerConfig)

// WithBaseURL overrides the provider endpoint, mainly for tests.
func WithBaseURL(url string) ProviderOption {
	return func(c *providerConfig) {
		c.baseURL = url
	}
}

// WithMaxResults limits the results a provider returns.
func WithMaxResults(n int) ProviderOption {
	return func(c *providerConfig) {
		if n > 0 {
			c.maxResults = n
		}
	}
}

// WithUserAgent sets the User-Agent header sent to the provider.
func WithUserAgent(ua string) ProviderOption {
	return func(c *providerConfig) {
		c.userAgent = ua
	}
}

// WithHTTPTimeout sets a client-level timeout independent of the aggregator's.
func WithHTTPTimeout(d time.Duration) ProviderOption {
	return func(c *providerConfig) {
		c.timeout = d
	}
}

func newProviderConfig(baseURL string, opts []ProviderOption) providerConfig {
	cfg := providerConfig{
		baseURL:    baseURL,
		maxResults: defaultMaxResults,
		userAgent:  defaultUserAgent,
		timeout:    10 * time.Second,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

func (c providerConfig) newClient() *resty.Client {
	return resty.New().
		SetBaseURL(c.baseURL).
		SetTimeout(c.timeout).
		SetHeader("User-Agent", c.userAgent).
		SetHeader("Accept", "application/json")
}

// checkStatus converts an error status into ErrProviderStatus.
func checkStatus(provider string, resp *resty.Response) error {
	if resp.IsError() {
		return fmt.Errorf("%w: %s returned %d", ErrProviderStatus, provider, resp.StatusCode())
	}
	return nil
}

// ping issues a HEAD request against the base URL. Any HTTP response,
// whatever its status, counts as reachable.
func ping(ctx context.Context, client *resty.Client) error {
	_, err := client.R().SetContext(ctx).Head("/")
	return err
}
