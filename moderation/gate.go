package moderation

import (
	"encoding/hex"
	"log/slog"
	"sync/atomic"

	"github.com/go-crypt/x/blake2b"
	"github.com/poiesic/groundwork/core"
)

// Gate classifies user input as allowed or blocked before any other work.
// Check is safe for concurrent use; the policy can be swapped at runtime.
type Gate struct {
	policy atomic.Pointer[compiledPolicy]
	logger *slog.Logger
}

// Option configures a Gate.
type Option func(*Gate) error

// WithPolicy replaces the built-in policy.
func WithPolicy(p Policy) Option {
	return func(g *Gate) error {
		return g.SetPolicy(p)
	}
}

// WithLogger sets the audit logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(g *Gate) error {
		if logger == nil {
			logger = slog.Default()
		}
		g.logger = logger.With("component", "moderation")
		return nil
	}
}

// NewGate creates a gate using DefaultPolicy unless WithPolicy is given.
func NewGate(opts ...Option) (*Gate, error) {
	g := &Gate{
		logger: slog.Default().With("component", "moderation"),
	}
	if err := g.SetPolicy(DefaultPolicy()); err != nil {
		return nil, err
	}
	for _, opt := range opts {
		if err := opt(g); err != nil {
			return nil, err
		}
	}
	return g, nil
}

// SetPolicy compiles and installs a new policy. On error the current
// policy stays in effect.
func (g *Gate) SetPolicy(p Policy) error {
	cp, err := compile(p)
	if err != nil {
		return err
	}
	g.policy.Store(cp)
	return nil
}

// Check returns the verdict for text. It never fails; empty, blank or
// invalid UTF-8 input is blocked with reason "empty_query".
// Flagged input is audited by hash and category only.
func (g *Gate) Check(text string) core.ModerationVerdict {
	p := g.policy.Load()

	if err := core.ValidateQueryText(text); err != nil {
		return core.ModerationVerdict{
			Allowed: false,
			Reason:  ReasonEmptyQuery,
			Message: p.emptyQueryMessage,
		}
	}

	var flagged string
	for i := range p.categories {
		c := &p.categories[i]
		if !c.matches(text) {
			continue
		}
		if c.block {
			g.audit(text, c.name, true)
			return core.ModerationVerdict{
				Allowed: false,
				Reason:  c.name,
				Message: c.message,
			}
		}
		if flagged == "" {
			flagged = c.name
		}
	}

	if flagged != "" {
		g.audit(text, flagged, false)
	}
	return core.ModerationVerdict{Allowed: true, Reason: flagged}
}

func (g *Gate) audit(text, category string, blocked bool) {
	g.logger.Warn("moderation flagged input",
		"category", category,
		"blocked", blocked,
		"text_hash", HashText(text),
		"length", len(text))
}

// HashText returns the hex BLAKE2b-128 digest used to identify audited input.
func HashText(text string) string {
	h, _ := blake2b.New(16, nil)
	h.Write([]byte(text))
	return hex.EncodeToString(h.Sum(nil))
}
