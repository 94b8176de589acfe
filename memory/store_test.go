package memory

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/poiesic/groundwork/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func turn(q string) core.ConversationTurn {
	return core.ConversationTurn{Question: q, Answer: "answer to " + q}
}

func TestNewStore_Validation(t *testing.T) {
	_, err := NewStore(WithMaxTurns(0))
	assert.ErrorIs(t, err, ErrInvalidMaxTurns)

	_, err = NewStore(WithIdleTTL(0))
	assert.ErrorIs(t, err, ErrInvalidIdleTTL)

	s, err := NewStore()
	require.NoError(t, err)
	assert.Equal(t, DefaultMaxTurns, s.MaxTurns())
}

func TestNewStore_NilClockKeepsDefault(t *testing.T) {
	s, err := NewStore(WithClock(nil))
	require.NoError(t, err)

	require.NotPanics(t, func() {
		s.Append("s1", turn("q1"))
		s.Sweep()
	})
	ctx := s.Context("s1")
	require.Len(t, ctx, 1)
	assert.False(t, ctx[0].Timestamp.IsZero())
}

func TestStore_AppendOrder(t *testing.T) {
	s, err := NewStore()
	require.NoError(t, err)

	s.Append("s1", turn("q1"))
	s.Append("s1", turn("q2"))
	s.Append("s1", turn("q3"))

	ctx := s.Context("s1")
	require.Len(t, ctx, 3)
	assert.Equal(t, "q1", ctx[0].Question)
	assert.Equal(t, "q2", ctx[1].Question)
	assert.Equal(t, "q3", ctx[2].Question)
	assert.False(t, ctx[0].Timestamp.IsZero())
}

func TestStore_EvictsOldest(t *testing.T) {
	s, err := NewStore(WithMaxTurns(3))
	require.NoError(t, err)

	for i := 1; i <= 4; i++ {
		s.Append("s1", turn(fmt.Sprintf("q%d", i)))
	}

	ctx := s.Context("s1")
	require.Len(t, ctx, 3)
	assert.Equal(t, "q2", ctx[0].Question)
	assert.Equal(t, "q4", ctx[2].Question)
}

func TestStore_DefaultBound(t *testing.T) {
	s, err := NewStore()
	require.NoError(t, err)

	for i := 0; i < DefaultMaxTurns+1; i++ {
		s.Append("s1", turn(fmt.Sprintf("q%d", i)))
	}
	ctx := s.Context("s1")
	require.Len(t, ctx, DefaultMaxTurns)
	assert.Equal(t, "q1", ctx[0].Question)
}

func TestStore_ContextIsACopy(t *testing.T) {
	s, err := NewStore()
	require.NoError(t, err)
	s.Append("s1", turn("q1"))

	ctx := s.Context("s1")
	ctx[0].Question = "mutated"

	assert.Equal(t, "q1", s.Context("s1")[0].Question)
}

func TestStore_UnknownSession(t *testing.T) {
	s, err := NewStore()
	require.NoError(t, err)

	assert.Empty(t, s.Context("nope"))
	assert.False(t, s.Stats("nope").Exists)
}

func TestStore_ClearIdempotent(t *testing.T) {
	s, err := NewStore()
	require.NoError(t, err)
	s.Append("s1", turn("q1"))

	s.Clear("s1")
	assert.Empty(t, s.Context("s1"))

	assert.NotPanics(t, func() { s.Clear("s1") })
	assert.NotPanics(t, func() { s.Clear("never-existed") })

	s.Append("s1", turn("q2"))
	ctx := s.Context("s1")
	require.Len(t, ctx, 1)
	assert.Equal(t, "q2", ctx[0].Question)
}

func TestStore_SessionsIsolated(t *testing.T) {
	s, err := NewStore()
	require.NoError(t, err)

	s.Append("a", turn("qa"))
	s.Append("b", turn("qb"))
	s.Clear("a")

	assert.Empty(t, s.Context("a"))
	assert.Len(t, s.Context("b"), 1)
}

func TestStore_Sweep(t *testing.T) {
	clock := &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	s, err := NewStore(WithIdleTTL(time.Hour), WithClock(clock.Now))
	require.NoError(t, err)

	s.Append("old", turn("q"))
	clock.Advance(45 * time.Minute)
	s.Append("fresh", turn("q"))
	clock.Advance(30 * time.Minute)

	assert.Equal(t, 1, s.Sweep())
	assert.Empty(t, s.Context("old"))
	assert.Len(t, s.Context("fresh"), 1)
	assert.Equal(t, 1, s.Summary().ActiveSessions)
}

func TestStore_AppendRefreshesIdle(t *testing.T) {
	clock := &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	s, err := NewStore(WithIdleTTL(time.Hour), WithClock(clock.Now))
	require.NoError(t, err)

	s.Append("s1", turn("q1"))
	clock.Advance(50 * time.Minute)
	s.Append("s1", turn("q2"))
	clock.Advance(50 * time.Minute)

	assert.Equal(t, 0, s.Sweep())
	assert.Len(t, s.Context("s1"), 2)
}

func TestStore_Run(t *testing.T) {
	clock := &fakeClock{now: time.Now()}
	s, err := NewStore(WithIdleTTL(time.Minute), WithClock(clock.Now))
	require.NoError(t, err)
	s.Append("s1", turn("q"))
	clock.Advance(2 * time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx, 5*time.Millisecond)
		close(done)
	}()

	assert.Eventually(t, func() bool { return len(s.Context("s1")) == 0 }, time.Second, 5*time.Millisecond)
	cancel()
	<-done
}

func TestStore_Stats(t *testing.T) {
	clock := &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	s, err := NewStore(WithClock(clock.Now))
	require.NoError(t, err)

	s.Append("s1", core.ConversationTurn{Question: "a", Answer: "x", Source: core.SourceKnowledgeBase, Confidence: 0.9})
	clock.Advance(time.Minute)
	s.Append("s1", core.ConversationTurn{Question: "b", Answer: "y", Source: core.SourceWebSearch, Confidence: 0.7})
	clock.Advance(time.Minute)
	s.Append("s1", core.ConversationTurn{Question: "c", Answer: "z", Source: core.SourceWebSearch, Confidence: 0.8})

	stats := s.Stats("s1")
	assert.True(t, stats.Exists)
	assert.Equal(t, 3, stats.Turns)
	assert.InDelta(t, 0.8, stats.AvgConfidence, 1e-9)
	assert.Equal(t, map[string]int{core.SourceKnowledgeBase: 1, core.SourceWebSearch: 2}, stats.Sources)
	assert.Equal(t, 2*time.Minute, stats.Duration)

	sum := s.Summary()
	assert.Equal(t, 1, sum.ActiveSessions)
	assert.Equal(t, 3, sum.TotalTurns)
}

func TestStore_ConcurrentSessions(t *testing.T) {
	s, err := NewStore(WithMaxTurns(50))
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			sessionID := fmt.Sprintf("s%d", id)
			for j := 0; j < 20; j++ {
				s.Append(sessionID, turn(fmt.Sprintf("q%d", j)))
				s.Context(sessionID)
			}
		}(i)
	}
	wg.Wait()

	for i := 0; i < 10; i++ {
		ctx := s.Context(fmt.Sprintf("s%d", i))
		require.Len(t, ctx, 20)
		for j, turn := range ctx {
			assert.Equal(t, fmt.Sprintf("q%d", j), turn.Question)
		}
	}
}

func TestStore_ConcurrentAppendSameSession(t *testing.T) {
	s, err := NewStore(WithMaxTurns(1000))
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			s.Append("shared", turn(fmt.Sprintf("q%d", n)))
		}(i)
	}
	wg.Wait()

	assert.Len(t, s.Context("shared"), 100)
}

func TestStore_ConcurrentClearAndAppend(t *testing.T) {
	s, err := NewStore()
	require.NoError(t, err)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			s.Append("s1", turn("q"))
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			s.Clear("s1")
		}
	}()
	wg.Wait()

	assert.LessOrEqual(t, len(s.Context("s1")), DefaultMaxTurns)
}
