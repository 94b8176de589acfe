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


package moderation

import (
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"
)

// ReasonEmptyQuery is the verdict reason for empty or malformed input.
const ReasonEmptyQuery = "empty_query"

// Category is one moderation rule. Input matching any pattern is flagged;
// it is refused only when Block is set.
type Category struct {
	Name     string   `yaml:"name"`
	Patterns []string `yaml:"patterns"`
	Block    bool     `yaml:"block"`
	Message  string   `yaml:"message"`
}

// Policy is an ordered set of categories. When several categories match,
// the first blocking one in order determines the verdict.
type Policy struct {
	DefaultMessage    string     `yaml:"default_message"`
	EmptyQueryMessage string     `yaml:"empty_query_message"`
	Categories        []Category `yaml:"categories"`
}

// DefaultPolicy returns the built-in policy.
func DefaultPolicy() Policy {
	return Policy{
		DefaultMessage:    "I cannot assist with this request.",
		EmptyQueryMessage: "Please enter a question.",
		Categories: []Category{
			{
				Name: "harmful_instructions",
				Patterns: []string{
					`how to (?:hack|break into|steal|harm|hurt|kill)`,
					`(?:make|build) (?:a )?(?:bomb|weapon|explosive|drug)s?`,
				},
				Block:   true,
				Message: "I cannot assist with harmful activities.",
			},
			{
				Name: "inappropriate",
				Patterns: []string{
					`\b(?:sexual|porn|explicit)\b`,
					`\b(?:gore)\b`,
					`\b(?:racist|racism)\b`,
				},
				Block:   true,
				Message: "Please ask about appropriate topics.",
			},
			{
				Name: "profanity",
				Patterns: []string{
					`\b(?:damn|hell|shit|fuck|bitch|ass)\b`,
					`\b(?:idiot|stupid|dumb)\b`,
				},
				Block:   true,
				Message: "Please use appropriate language.",
			},
		},
	}
}

// LoadPolicy reads a YAML policy file. Unset messages fall back to the
// built-in defaults. The policy is compiled to reject bad patterns early.
func LoadPolicy(path string) (Policy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Policy{}, err
	}
	return ParsePolicy(data)
}

// ParsePolicy decodes and validates a YAML policy document.
func ParsePolicy(data []byte) (Policy, error) {
	var p Policy
	if err := yaml.Unmarshal(data, &p); err != nil {
		return Policy{}, fmt.Errorf("%w: %w", ErrInvalidPolicy, err)
	}
	if len(p.Categories) == 0 {
		return Policy{}, fmt.Errorf("%w: no categories", ErrInvalidPolicy)
	}
	defaults := DefaultPolicy()
	if p.DefaultMessage == "" {
		p.DefaultMessage = defaults.DefaultMessage
	}
	if p.EmptyQueryMessage == "" {
		p.EmptyQueryMessage = defaults.EmptyQueryMessage
	}
	if _, err := compile(p); err != nil {
		return Policy{}, err
	}
	return p, nil
}

type compiledCategory struct {
	name     string
	patterns []*regexp.Regexp
	block    bool
	message  string
}

type compiledPolicy struct {
	categories        []compiledCategory
	emptyQueryMessage string
}

func compile(p Policy) (*compiledPolicy, error) {
	cp := &compiledPolicy{emptyQueryMessage: p.EmptyQueryMessage}
	for _, c := range p.Categories {
		if c.Name == "" {
			return nil, fmt.Errorf("%w: category without a name", ErrInvalidPolicy)
		}
		cc := compiledCategory{
			name:    c.Name,
			block:   c.Block,
			message: c.Message,
		}
		if cc.message == "" {
			cc.message = p.DefaultMessage
		}
		for _, pattern := range c.Patterns {
			re, err := regexp.Compile("(?i)" + pattern)
			if err != nil {
				return nil, fmt.Errorf("%w: category %s: %w", ErrInvalidPolicy, c.Name, err)
			}
			cc.patterns = append(cc.patterns, re)
		}
		cp.categories = append(cp.categories, cc)
	}
	return cp, nil
}

func (c *compiledCategory) matches(text string) bool {
	for _, re := range c.patterns {
		if re.MatchString(text) {
			return true
		}
	}
	return false
}
