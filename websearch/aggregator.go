package websearch

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/poiesic/groundwork/core"
)

// DefaultProviderTimeout bounds each provider attempt.
const DefaultProviderTimeout = 5 * time.Second

// Attempt records the outcome of one provider call.
type Attempt struct {
	Provider string
	Results  int
	Err      error
	Elapsed  time.Duration
}

// Result is the outcome of an aggregated search. Provider is the name of the
// provider whose results were used, or core.ProviderNone.
type Result struct {
	Results  []core.WebResult
	Provider string
	Attempts []Attempt
}

// Exhausted reports that no provider produced usable results.
func (r Result) Exhausted() bool {
	return r.Provider == core.ProviderNone
}

// Aggregator tries providers in priority order and returns the results of
// the first one that yields anything usable.
type Aggregator struct {
	providers []Provider
	timeout   time.Duration
	logger    *slog.Logger
}

// Option configures an Aggregator.
type Option func(*Aggregator) error

// WithProviderTimeout sets the per-provider time bound.
func WithProviderTimeout(d time.Duration) Option {
	return func(a *Aggregator) error {
		if d <= 0 {
			return ErrInvalidTimeout
		}
		a.timeout = d
		return nil
	}
}

// WithLogger sets the logger used by the aggregator.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Aggregator) error {
		if logger != nil {
			a.logger = logger
		}
		return nil
	}
}

// NewAggregator creates an aggregator over providers, highest priority first.
func NewAggregator(providers []Provider, opts ...Option) (*Aggregator, error) {
	if len(providers) == 0 {
		return nil, ErrNoProviders
	}
	a := &Aggregator{
		providers: append([]Provider(nil), providers...),
		timeout:   DefaultProviderTimeout,
		logger:    slog.Default().With("component", "websearch"),
	}
	for _, opt := range opts {
		if err := opt(a); err != nil {
			return nil, err
		}
	}
	return a, nil
}

// Providers returns the providers in priority order.
func (a *Aggregator) Providers() []Provider {
	return append([]Provider(nil), a.providers...)
}

// Search runs the fail-over chain. Errors, timeouts and empty result sets
// all move on to the next provider; nothing is retried. When every provider
// fails the result is empty with Provider set to core.ProviderNone.
func (a *Aggregator) Search(ctx context.Context, query string) Result {
	result := Result{Provider: core.ProviderNone}

	for _, p := range a.providers {
		if ctx.Err() != nil {
			break
		}

		start := time.Now()
		items, err := a.try(ctx, p, query)
		usable := a.clean(p.Name(), items)
		attempt := Attempt{Provider: p.Name(), Results: len(usable), Err: err, Elapsed: time.Since(start)}
		result.Attempts = append(result.Attempts, attempt)

		if err != nil {
			a.logger.Warn("provider failed", "provider", p.Name(), "err", err, "elapsed_ms", attempt.Elapsed.Milliseconds())
			continue
		}
		if len(usable) == 0 {
			a.logger.Info("provider returned no results", "provider", p.Name(), "elapsed_ms", attempt.Elapsed.Milliseconds())
			continue
		}

		a.logger.Info("provider succeeded", "provider", p.Name(), "results", len(usable), "elapsed_ms", attempt.Elapsed.Milliseconds())
		result.Results = usable
		result.Provider = p.Name()
		return result
	}

	a.logger.Warn("all providers exhausted", "attempts", len(result.Attempts))
	return result
}

// Ping checks every provider concurrently and returns their errors keyed
// by name.
func (a *Aggregator) Ping(ctx context.Context) map[string]error {
	var (
		mu  sync.Mutex
		wg  sync.WaitGroup
		out = make(map[string]error, len(a.providers))
	)
	for _, p := range a.providers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			pctx, cancel := context.WithTimeout(ctx, a.timeout)
			defer cancel()
			err := p.Ping(pctx)
			mu.Lock()
			out[p.Name()] = err
			mu.Unlock()
		}()
	}
	wg.Wait()
	return out
}

type searchOutcome struct {
	results []core.WebResult
	err     error
}

// try bounds a single provider call by the per-provider timeout. A provider
// that ignores its context is abandoned and its late result discarded.
func (a *Aggregator) try(ctx context.Context, p Provider, query string) (results []core.WebResult, err error) {
	pctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	done := make(chan searchOutcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- searchOutcome{err: fmt.Errorf("provider %s panicked: %v", p.Name(), r)}
			}
		}()
		res, err := p.Search(pctx, query)
		done <- searchOutcome{results: res, err: err}
	}()

	select {
	case out := <-done:
		return out.results, out.err
	case <-pctx.Done():
		return nil, pctx.Err()
	}
}

// clean drops empty snippets, tags results with the provider name and
// removes duplicates by normalized URL, keeping the first occurrence.
func (a *Aggregator) clean(provider string, items []core.WebResult) []core.WebResult {
	seen := make(map[string]struct{}, len(items))
	out := make([]core.WebResult, 0, len(items))
	for _, item := range items {
		if strings.TrimSpace(item.Snippet) == "" {
			continue
		}
		key := dedupKey(item.Title, item.Snippet, item.URL)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		item.Provider = provider
		out = append(out, item)
	}
	return out
}
