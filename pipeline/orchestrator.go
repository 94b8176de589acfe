package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/groundwork/core"
	"github.com/poiesic/groundwork/logging"
	"github.com/poiesic/groundwork/retrieval"
	"github.com/poiesic/groundwork/synthesis"
	"github.com/poiesic/groundwork/websearch"
)

// DefaultTopK is the number of chunks requested from the vector store.
const DefaultTopK = 5

// FailedAnswer is the answer given when a request cannot be completed.
const FailedAnswer = "Sorry, something went wrong while answering your question. Please try again."

// Response reasons.
const (
	ReasonCancelled          = "cancelled"
	ReasonInternalError      = "internal_error"
	ReasonSynthesisFailed    = "synthesis_unavailable"
	ReasonWebSearchExhausted = "web_search_exhausted"
)

// Moderator decides whether input may be processed.
type Moderator interface {
	Check(text string) core.ModerationVerdict
}

// Retriever searches local knowledge.
type Retriever interface {
	Retrieve(ctx context.Context, text string, topK int) retrieval.Result
	Ping(ctx context.Context) error
}

// WebSearcher runs the provider fail-over chain.
type WebSearcher interface {
	Search(ctx context.Context, query string) websearch.Result
	Ping(ctx context.Context) map[string]error
}

// Synthesizer produces grounded answers.
type Synthesizer interface {
	Synthesize(ctx context.Context, question string, c synthesis.Context, history []core.ConversationTurn) synthesis.Result
	Ping(ctx context.Context) error
}

// Memory holds per-session conversation history.
type Memory interface {
	Context(sessionID string) []core.ConversationTurn
	Append(sessionID string, turn core.ConversationTurn)
}

// Orchestrator sequences moderation, retrieval, web search fallback,
// synthesis and memory for each query. It is safe for concurrent use;
// Memory is the only state shared between requests.
type Orchestrator struct {
	moderator     Moderator
	retriever     Retriever
	searcher      WebSearcher
	synthesizer   Synthesizer
	memory        Memory
	topK          int
	healthTimeout time.Duration
	pool          *ants.Pool
	monitor       Monitor
	now           func() time.Time
	logger        *slog.Logger
}

// Option configures an Orchestrator.
type Option func(*Orchestrator) error

// WithTopK sets how many chunks are retrieved per query.
func WithTopK(k int) Option {
	return func(o *Orchestrator) error {
		if err := core.ValidateTopK(k); err != nil {
			return err
		}
		o.topK = k
		return nil
	}
}

// WithPoolSize sets the worker pool size used for batches and health probes.
// Default is 8, with a minimum of 1.
func WithPoolSize(size int) Option {
	return func(o *Orchestrator) error {
		if size < 1 {
			size = 1
		}
		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		if o.pool != nil {
			o.pool.Release()
		}
		o.pool = pool
		return nil
	}
}

// WithHealthTimeout bounds each health probe.
func WithHealthTimeout(d time.Duration) Option {
	return func(o *Orchestrator) error {
		if d > 0 {
			o.healthTimeout = d
		}
		return nil
	}
}

// WithMonitor sets a monitor that observes every request.
func WithMonitor(m Monitor) Option {
	return func(o *Orchestrator) error {
		if m == nil {
			m = &noopMonitor{}
		}
		o.monitor = m
		return nil
	}
}

// WithClock sets the time source for timestamps.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) error {
		if now != nil {
			o.now = now
		}
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) error {
		if logger == nil {
			logger = slog.Default()
		}
		o.logger = logger
		return nil
	}
}

// NewOrchestrator creates an Orchestrator. Call Close to release its
// worker pool.
func NewOrchestrator(
	moderator Moderator,
	retriever Retriever,
	searcher WebSearcher,
	synthesizer Synthesizer,
	memory Memory,
	opts ...Option,
) (*Orchestrator, error) {
	switch {
	case moderator == nil:
		return nil, ErrModeratorRequired
	case retriever == nil:
		return nil, ErrRetrieverRequired
	case searcher == nil:
		return nil, ErrWebSearcherRequired
	case synthesizer == nil:
		return nil, ErrSynthesizerRequired
	case memory == nil:
		return nil, ErrMemoryRequired
	}

	pool, err := ants.NewPool(8)
	if err != nil {
		return nil, err
	}

	o := &Orchestrator{
		moderator:     moderator,
		retriever:     retriever,
		searcher:      searcher,
		synthesizer:   synthesizer,
		memory:        memory,
		topK:          DefaultTopK,
		healthTimeout: 5 * time.Second,
		pool:          pool,
		monitor:       &noopMonitor{},
		now:           time.Now,
		logger:        slog.Default().With("component", "pipeline"),
	}

	for _, opt := range opts {
		if err := opt(o); err != nil {
			o.Close()
			return nil, err
		}
	}
	return o, nil
}

// Close releases the worker pool.
func (o *Orchestrator) Close() {
	if o.pool != nil {
		o.pool.Release()
	}
}

// request tracks one query through the state machine.
type request struct {
	o       *Orchestrator
	query   core.Query
	state   State
	start   time.Time
	stage   time.Time
	source  string
	logger  *slog.Logger
	monitor Monitor
}

func (r *request) transition(to State) {
	if !CanTransition(r.state, to) {
		panic(fmt.Sprintf("illegal transition %s -> %s", r.state, to))
	}
	now := r.o.now()
	r.logger.Debug("stage complete", "from", r.state, "to", to, "elapsed_ms", now.Sub(r.stage).Milliseconds())
	r.monitor.Transition(r.state, to)
	r.state = to
	r.stage = now
}

func (r *request) response(answer string) *core.Response {
	return &core.Response{
		Question:  r.query.Text(),
		Answer:    answer,
		Source:    r.source,
		SessionID: r.query.SessionID(),
		Timestamp: r.o.now().UTC(),
	}
}

func (r *request) finish(resp *core.Response) *core.Response {
	resp.ProcessingTime = r.o.now().Sub(r.start)
	r.monitor.Finish(resp)
	r.logger.Info("query handled",
		"state", r.state,
		"source", resp.Source,
		"provider", resp.Provider,
		"success", resp.Success,
		"confidence", resp.Confidence,
		"elapsed_ms", resp.ProcessingTime.Milliseconds())
	return resp
}

// fail moves the request to Failed.
func (r *request) fail(reason string, err error) *core.Response {
	r.logger.Error("request failed", "state", r.state, "reason", reason, "err", err)
	r.monitor.Transition(r.state, StateFailed)
	r.state = StateFailed
	resp := r.response(FailedAnswer)
	resp.Reason = reason
	return r.finish(resp)
}

// Handle answers q. It always returns a Response; collaborator failures are
// absorbed into fallbacks and degraded answers. A query with no session id
// gets a generated one. If ctx is cancelled the request ends Failed without
// touching memory.
func (o *Orchestrator) Handle(ctx context.Context, q core.Query) (resp *core.Response) {
	if q.SessionID() == "" {
		q = q.WithSessionID(uuid.NewString())
	}

	now := o.now()
	r := &request{
		o:       o,
		query:   q,
		state:   StateReceived,
		start:   now,
		stage:   now,
		source:  core.SourceKnowledgeBase,
		logger:  logging.FromContext(ctx, o.logger).With("session_id", q.SessionID()),
		monitor: o.monitor,
	}
	r.monitor.Start(q)

	defer func() {
		if p := recover(); p != nil {
			resp = r.fail(ReasonInternalError, fmt.Errorf("%w: panic: %v", ErrRequestFailed, p))
		}
	}()

	verdict := o.moderator.Check(q.Text())
	r.monitor.AfterModeration(verdict)
	if err := verdict.Err(); err != nil {
		r.logger.Info("input refused", "err", err)
		r.source = core.SourceBlocked
		r.transition(StateBlocked)
		resp := r.response(verdict.Message)
		resp.Reason = verdict.Reason
		return r.finish(resp)
	}
	r.transition(StateModerated)

	retrieved := o.retriever.Retrieve(ctx, q.Text(), o.topK)
	r.monitor.AfterRetrieval(retrieved)
	if err := ctx.Err(); err != nil {
		return r.fail(ReasonCancelled, err)
	}
	r.transition(StateRetrieved)

	var sc synthesis.Context
	provider := ""
	if retrieved.Sufficient(q.RelevanceThreshold()) {
		sc = synthesis.KnowledgeContext(retrieved.Chunks)
	} else {
		r.source = core.SourceWebSearch
		r.logger.Info("local knowledge insufficient, searching the web",
			"max_score", retrieved.MaxScore, "threshold", q.RelevanceThreshold())
		found := o.searcher.Search(ctx, q.Text())
		r.monitor.AfterWebSearch(found)
		if err := ctx.Err(); err != nil {
			return r.fail(ReasonCancelled, err)
		}
		r.transition(StateWebSearched)
		sc = synthesis.WebContext(found.Results, found.Provider)
		provider = found.Provider
	}

	history := o.memory.Context(q.SessionID())
	answer := o.synthesizer.Synthesize(ctx, q.Text(), sc, history)
	r.monitor.AfterSynthesis(answer)
	if err := ctx.Err(); err != nil {
		return r.fail(ReasonCancelled, err)
	}
	r.transition(StateSynthesized)

	o.memory.Append(q.SessionID(), core.ConversationTurn{
		Question:   q.Text(),
		Answer:     answer.Answer,
		Source:     r.source,
		Confidence: answer.Confidence,
		Timestamp:  o.now().UTC(),
	})
	r.transition(StateMemoryUpdated)
	r.transition(StateCompleted)

	out := r.response(answer.Answer)
	out.Provider = provider
	out.Confidence = answer.Confidence
	out.Success = answer.Success
	out.Citations = answer.Citations
	out.Reason = reasonFor(answer.Err)
	return r.finish(out)
}

func reasonFor(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, core.ErrWebSearchExhausted):
		return ReasonWebSearchExhausted
	case errors.Is(err, core.ErrSynthesisUnavailable):
		return ReasonSynthesisFailed
	}
	return ReasonInternalError
}
