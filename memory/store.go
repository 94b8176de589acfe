package memory

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/poiesic/groundwork/core"
)

const (
	// DefaultMaxTurns is the number of turns retained per session.
	DefaultMaxTurns = 5
	// DefaultIdleTTL is how long an untouched session survives.
	DefaultIdleTTL = 24 * time.Hour
)

// session holds one conversation. Its mutex serializes every operation on
// the session; dead marks a session already removed from the table.
type session struct {
	mu        sync.Mutex
	turns     []core.ConversationTurn
	createdAt time.Time
	lastUsed  time.Time
	dead      bool
}

// Store is the per-session conversation memory. Sessions are created on
// first append and destroyed by Clear or idle eviction.
//
// Operations on different sessions never wait on each other beyond the brief
// table lookup. Operations on one session are serialized; concurrent appends
// land in the order they acquire the session lock.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*session
	maxTurns int
	idleTTL  time.Duration
	now      func() time.Time
	logger   *slog.Logger
}

// Option configures a Store.
type Option func(*Store) error

// WithMaxTurns sets the per-session turn bound.
func WithMaxTurns(n int) Option {
	return func(s *Store) error {
		if n <= 0 {
			return ErrInvalidMaxTurns
		}
		s.maxTurns = n
		return nil
	}
}

// WithIdleTTL sets how long an untouched session survives before eviction.
func WithIdleTTL(ttl time.Duration) Option {
	return func(s *Store) error {
		if ttl <= 0 {
			return ErrInvalidIdleTTL
		}
		s.idleTTL = ttl
		return nil
	}
}

// WithClock overrides the time source. A nil clock keeps time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Store) error {
		if now == nil {
			return nil
		}
		s.now = now
		return nil
	}
}

// NewStore creates an empty conversation store.
func NewStore(opts ...Option) (*Store, error) {
	s := &Store{
		sessions: make(map[string]*session),
		maxTurns: DefaultMaxTurns,
		idleTTL:  DefaultIdleTTL,
		now:      time.Now,
		logger:   slog.Default().With("component", "memory"),
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// MaxTurns returns the per-session turn bound.
func (s *Store) MaxTurns() int {
	return s.maxTurns
}

// Context returns a copy of the session's turns, oldest first.
// Unknown sessions yield an empty slice.
func (s *Store) Context(sessionID string) []core.ConversationTurn {
	sess := s.lookup(sessionID)
	if sess == nil {
		return nil
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	if sess.dead {
		return nil
	}
	out := make([]core.ConversationTurn, len(sess.turns))
	copy(out, sess.turns)
	return out
}

// Append records a turn, evicting the oldest when the session is full.
// A zero Timestamp is set to the current time.
func (s *Store) Append(sessionID string, turn core.ConversationTurn) {
	if turn.Timestamp.IsZero() {
		turn.Timestamp = s.now()
	}

	for {
		sess := s.getOrCreate(sessionID)
		sess.mu.Lock()
		if sess.dead {
			// Cleared or evicted between lookup and lock; retry on a fresh session.
			sess.mu.Unlock()
			continue
		}
		sess.turns = append(sess.turns, turn)
		if over := len(sess.turns) - s.maxTurns; over > 0 {
			sess.turns = append(sess.turns[:0:0], sess.turns[over:]...)
		}
		sess.lastUsed = s.now()
		sess.mu.Unlock()
		return
	}
}

// Clear removes a session. Clearing an unknown session is a no-op.
func (s *Store) Clear(sessionID string) {
	s.mu.Lock()
	sess, ok := s.sessions[sessionID]
	delete(s.sessions, sessionID)
	s.mu.Unlock()

	if ok {
		sess.mu.Lock()
		sess.dead = true
		sess.turns = nil
		sess.mu.Unlock()
	}
}

// Sweep evicts sessions idle for longer than the TTL and returns how many were removed.
func (s *Store) Sweep() int {
	cutoff := s.now().Add(-s.idleTTL)

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, sess := range s.sessions {
		sess.mu.Lock()
		if sess.lastUsed.Before(cutoff) {
			sess.dead = true
			sess.turns = nil
			delete(s.sessions, id)
			removed++
		}
		sess.mu.Unlock()
	}
	return removed
}

// Run sweeps idle sessions every interval until ctx is cancelled.
func (s *Store) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.Sweep(); n > 0 {
				s.logger.Info("evicted idle sessions", "count", n)
			}
		}
	}
}

func (s *Store) lookup(sessionID string) *session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sessions[sessionID]
}

func (s *Store) getOrCreate(sessionID string) *session {
	if sess := s.lookup(sessionID); sess != nil {
		return sess
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.sessions[sessionID]; ok {
		return sess
	}
	now := s.now()
	sess := &session{createdAt: now, lastUsed: now}
	s.sessions[sessionID] = sess
	return sess
}
