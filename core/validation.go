// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package core

import (
	"fmt"
	"math"
	"strings"
	"unicode/utf8"
)

// Query is a single question addressed to the pipeline.
// It is immutable once created.
type Query struct {
	text      string
	sessionID string
	threshold float64
}

// QueryOption configures a Query.
type QueryOption func(*Query) error

// WithRelevanceThreshold overrides the default relevance threshold for one query.
func WithRelevanceThreshold(threshold float64) QueryOption {
	return func(q *Query) error {
		if err := ValidateThreshold(threshold); err != nil {
			return err
		}
		q.threshold = threshold
		return nil
	}
}

// NewQuery creates a Query. Empty text is accepted here; the moderation
// gate turns it into a refusal.
func NewQuery(text, sessionID string, opts ...QueryOption) (Query, error) {
	q := Query{
		text:      text,
		sessionID: sessionID,
		threshold: DefaultRelevanceThreshold,
	}
	for _, opt := range opts {
		if err := opt(&q); err != nil {
			return Query{}, err
		}
	}
	return q, nil
}

// Text returns the question text.
func (q Query) Text() string { return q.text }

// SessionID returns the caller-defined session identifier.
func (q Query) SessionID() string { return q.sessionID }

// RelevanceThreshold returns the inclusive threshold for local sufficiency.
func (q Query) RelevanceThreshold() float64 { return q.threshold }

// WithSessionID returns a copy of q bound to a different session.
func (q Query) WithSessionID(sessionID string) Query {
	q.sessionID = sessionID
	return q
}

// ValidateThreshold checks that a relevance threshold is within [0,1].
func ValidateThreshold(threshold float64) error {
	if math.IsNaN(threshold) || threshold < 0 || threshold > 1 {
		return fmt.Errorf("%w: got %v", ErrInvalidThreshold, threshold)
	}
	return nil
}

// ValidateQueryText checks that text is non-blank, valid UTF-8.
func ValidateQueryText(text string) error {
	if !utf8.ValidString(text) || strings.TrimSpace(text) == "" {
		return ErrEmptyQuery
	}
	return nil
}

// ValidateKnowledge validates text submitted for insertion into the knowledge store.
func ValidateKnowledge(text string) error {
	if strings.TrimSpace(text) == "" {
		return ErrEmptyContent
	}
	return nil
}

// ValidateTopK validates a similarity search result limit.
func ValidateTopK(topK int) error {
	if topK <= 0 {
		return fmt.Errorf("%w: got %d", ErrInvalidTopK, topK)
	}
	return nil
}
