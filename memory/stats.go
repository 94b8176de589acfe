package memory

import "time"

// SessionStats summarizes one session.
type SessionStats struct {
	SessionID     string         `json:"session_id"`
	Exists        bool           `json:"exists"`
	Turns         int            `json:"turns"`
	AvgConfidence float64        `json:"avg_confidence"`
	Sources       map[string]int `json:"sources,omitempty"`
	Duration      time.Duration  `json:"duration"`
}

// Summary describes the whole store.
type Summary struct {
	ActiveSessions int `json:"active_sessions"`
	TotalTurns     int `json:"total_turns"`
	MaxTurns       int `json:"max_turns"`
}

// Stats reports turn count, average confidence, answer sources and the
// span between the first retained turn and the most recent activity.
func (s *Store) Stats(sessionID string) SessionStats {
	stats := SessionStats{SessionID: sessionID}

	sess := s.lookup(sessionID)
	if sess == nil {
		return stats
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	if sess.dead {
		return stats
	}

	stats.Exists = true
	stats.Turns = len(sess.turns)
	if stats.Turns == 0 {
		return stats
	}

	stats.Sources = make(map[string]int)
	var total float64
	for _, t := range sess.turns {
		total += t.Confidence
		if t.Source != "" {
			stats.Sources[t.Source]++
		}
	}
	stats.AvgConfidence = total / float64(stats.Turns)
	stats.Duration = sess.lastUsed.Sub(sess.turns[0].Timestamp)
	return stats
}

// Summary counts active sessions and retained turns.
func (s *Store) Summary() Summary {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sum := Summary{ActiveSessions: len(s.sessions), MaxTurns: s.maxTurns}
	for _, sess := range s.sessions {
		sess.mu.Lock()
		sum.TotalTurns += len(sess.turns)
		sess.mu.Unlock()
	}
	return sum
}
