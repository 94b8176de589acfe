package core

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// ID is a unique identifier for knowledge chunks.
// It is generated using content-based hashing.
type ID uint64

// IDFromContent generates a deterministic ID from text content using BLAKE2b hashing.
// This ensures that identical content produces identical IDs.
func IDFromContent(text string) ID {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	sum := h.Sum(nil)
	return ID(binary.LittleEndian.Uint64(sum))
}

// Response sources. A Response's Source always names the path that produced its answer.
const (
	// SourceKnowledgeBase marks answers grounded in the local knowledge store.
	SourceKnowledgeBase = "knowledge_base"
	// SourceWebSearch marks answers grounded in web search results, including
	// the exhausted case where no provider produced results.
	SourceWebSearch = "web_search"
	// SourceBlocked marks refusals issued by the moderation gate.
	SourceBlocked = "blocked"
)

// ProviderNone is the provider name reported when every web search provider failed.
const ProviderNone = "none"

// DefaultRelevanceThreshold is the minimum retrieval score at which local
// knowledge is considered sufficient.
const DefaultRelevanceThreshold = 0.7

// KnowledgeChunk is a unit of stored knowledge with its embedding.
type KnowledgeChunk struct {
	Id         ID
	Text       string
	Metadata   map[string]string
	Vector     []float32
	InsertedAt time.Time
}

// RetrievedChunk is a knowledge chunk returned from similarity search.
type RetrievedChunk struct {
	ID       ID
	Text     string
	Score    float64 // similarity in [0,1]
	Metadata map[string]string
}

// WebResult is a single result returned by a web search provider.
type WebResult struct {
	Title    string
	Snippet  string
	URL      string
	Provider string
}

// ConversationTurn is one answered question within a session.
// Turns are never modified after being appended.
type ConversationTurn struct {
	Question   string
	Answer     string
	Source     string
	Confidence float64
	Timestamp  time.Time
}

// ModerationVerdict is the allow/block decision for a piece of user input.
type ModerationVerdict struct {
	Allowed bool
	// Reason names the matched category; empty when nothing matched.
	Reason string
	// Message is the user-facing refusal when Allowed is false.
	Message string
}

// Err is nil for allowed input and otherwise wraps ErrModerationBlocked
// with the matched reason.
func (v ModerationVerdict) Err() error {
	if v.Allowed {
		return nil
	}
	return fmt.Errorf("%w: %s", ErrModerationBlocked, v.Reason)
}

// Citation attributes part of an answer to its context item.
type Citation struct {
	Title    string            `json:"title,omitempty"`
	URL      string            `json:"url,omitempty"`
	Score    float64           `json:"score,omitempty"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// Response is the structured result of handling a query.
type Response struct {
	Question       string        `json:"question"`
	Answer         string        `json:"answer"`
	Source         string        `json:"source"`
	Provider       string        `json:"provider,omitempty"`
	Confidence     float64       `json:"confidence"`
	Success        bool          `json:"success"`
	SessionID      string        `json:"session_id"`
	Reason         string        `json:"reason,omitempty"`
	Citations      []Citation    `json:"citations,omitempty"`
	ProcessingTime time.Duration `json:"-"`
	Timestamp      time.Time     `json:"timestamp"`
}

// responseJSON carries ProcessingTime as float seconds under processing_time.
type responseJSON struct {
	*responseAlias
	ProcessingTime float64 `json:"processing_time"`
}

type responseAlias Response

// MarshalJSON encodes ProcessingTime as seconds.
func (r Response) MarshalJSON() ([]byte, error) {
	return json.Marshal(responseJSON{
		responseAlias:  (*responseAlias)(&r),
		ProcessingTime: r.ProcessingTime.Seconds(),
	})
}

// UnmarshalJSON decodes processing_time from seconds.
func (r *Response) UnmarshalJSON(data []byte) error {
	aux := responseJSON{responseAlias: (*responseAlias)(r)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	r.ProcessingTime = time.Duration(aux.ProcessingTime * float64(time.Second))
	return nil
}

// ClampScore bounds a similarity score to [0,1]. NaN maps to 0.
func ClampScore(score float64) float64 {
	switch {
	case math.IsNaN(score), score < 0:
		return 0
	case score > 1:
		return 1
	}
	return score
}
