package websearch

import "errors"

var (
	// ErrNoProviders is returned when an Aggregator is created with no providers.
	ErrNoProviders = errors.New("at least one search provider is required")

	// ErrInvalidTimeout is returned for a non-positive per-provider timeout.
	ErrInvalidTimeout = errors.New("timeout must be greater than 0")

	// ErrAPIKeyRequired is returned by providers that need a key and have none.
	ErrAPIKeyRequired = errors.New("api key is required")

	// ErrProviderStatus indicates a non-success HTTP status from a provider.
	ErrProviderStatus = errors.New("unexpected provider status")

	// ErrMalformedResponse indicates a provider body that could not be decoded.
	ErrMalformedResponse = errors.New("malformed provider response")
)
