package synthesis

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/poiesic/groundwork/ai"
	"github.com/poiesic/groundwork/core"
)

const (
	// DefaultTimeout bounds a single completion call.
	DefaultTimeout = 15 * time.Second
	// DefaultMaxTokens limits the completion length.
	DefaultMaxTokens = 500
)

// Result is a synthesized answer. Success is false for degraded and
// no-context answers, in which case Confidence is 0 and Err says why.
type Result struct {
	Answer     string
	Confidence float64
	Success    bool
	Citations  []core.Citation
	Err        error
}

// Synthesizer turns a question and its context into a grounded answer.
type Synthesizer struct {
	completer    ai.Completer
	timeout      time.Duration
	maxTokens    int
	historyTurns int
	answerLimit  int
	confidence   ConfidenceTable
	now          func() time.Time
	logger       *slog.Logger
}

// Option configures a Synthesizer.
type Option func(*Synthesizer) error

// WithTimeout sets the completion timeout.
func WithTimeout(d time.Duration) Option {
	return func(s *Synthesizer) error {
		if d <= 0 {
			return ErrInvalidTimeout
		}
		s.timeout = d
		return nil
	}
}

// WithMaxTokens sets the completion token limit.
func WithMaxTokens(n int) Option {
	return func(s *Synthesizer) error {
		if n <= 0 {
			return ErrInvalidMaxTokens
		}
		s.maxTokens = n
		return nil
	}
}

// WithHistoryTurns sets how many prior turns go into the prompt. Zero
// disables history.
func WithHistoryTurns(n int) Option {
	return func(s *Synthesizer) error {
		if n < 0 {
			n = 0
		}
		s.historyTurns = n
		return nil
	}
}

// WithConfidenceTable replaces the provider confidence table.
func WithConfidenceTable(t ConfidenceTable) Option {
	return func(s *Synthesizer) error {
		if err := t.validate(); err != nil {
			return err
		}
		s.confidence = t
		return nil
	}
}

// WithClock sets the time source used for the date in web prompts.
func WithClock(now func() time.Time) Option {
	return func(s *Synthesizer) error {
		if now != nil {
			s.now = now
		}
		return nil
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Synthesizer) error {
		if logger != nil {
			s.logger = logger
		}
		return nil
	}
}

// NewSynthesizer creates a Synthesizer backed by completer.
func NewSynthesizer(completer ai.Completer, opts ...Option) (*Synthesizer, error) {
	if completer == nil {
		return nil, ErrCompleterRequired
	}
	s := &Synthesizer{
		completer:    completer,
		timeout:      DefaultTimeout,
		maxTokens:    DefaultMaxTokens,
		historyTurns: DefaultHistoryTurns,
		answerLimit:  DefaultHistoryAnswerLimit,
		confidence:   DefaultConfidenceTable(),
		now:          time.Now,
		logger:       slog.Default().With("component", "synthesizer"),
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Confidence returns the confidence a successful answer over c receives.
func (s *Synthesizer) Confidence(c Context) float64 {
	if c.Kind == KindKnowledge {
		return c.maxScore()
	}
	return s.confidence.For(c.Provider)
}

// Synthesize answers question from c. It never returns an error: an empty
// context yields NoContextAnswer without calling the model, and a failed or
// empty completion yields the top snippet as a degraded answer.
func (s *Synthesizer) Synthesize(ctx context.Context, question string, c Context, history []core.ConversationTurn) Result {
	if c.Empty() {
		return Result{
			Answer: NoContextAnswer,
			Err:    core.ErrWebSearchExhausted,
		}
	}

	prompt := buildPrompt(question, c, history, s.historyTurns, s.answerLimit, s.now())
	citations := c.citations()

	answer, err := s.complete(ctx, prompt)
	if err == nil && strings.TrimSpace(answer) == "" {
		err = ai.ErrEmptyCompletion
	}
	if err != nil {
		s.logger.Warn("completion failed, returning degraded answer", "kind", c.Kind, "err", err)
		return Result{
			Answer:    truncate(c.topSnippet(), DegradedAnswerLimit),
			Citations: citations,
			Err:       fmt.Errorf("%w: %w", core.ErrSynthesisUnavailable, err),
		}
	}

	return Result{
		Answer:     strings.TrimSpace(answer),
		Confidence: s.Confidence(c),
		Success:    true,
		Citations:  citations,
	}
}

// Ping issues a minimal completion to check the model is reachable.
func (s *Synthesizer) Ping(ctx context.Context) error {
	_, err := s.complete(ctx, "Reply with OK.")
	return err
}

type completion struct {
	text string
	err  error
}

// complete bounds the completion by the synthesis timeout, abandoning
// completers that ignore their context.
func (s *Synthesizer) complete(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	done := make(chan completion, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- completion{err: fmt.Errorf("completer panicked: %v", r)}
			}
		}()
		text, err := s.completer.Complete(ctx, prompt, s.maxTokens)
		done <- completion{text: text, err: err}
	}()

	select {
	case out := <-done:
		return out.text, out.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}
