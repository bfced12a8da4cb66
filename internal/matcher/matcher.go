// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package matcher is the built-in regex pattern matcher. It emits one
// candidate per match, tagged with the rule's validator verdict.
package matcher

import (
	"fmt"
	"sort"
	"strings"

	regexp "github.com/wasilibs/go-re2"

	"ferret-risk/internal/detector"
	"ferret-risk/internal/validators"
)

type compiledRule struct {
	name  string
	re    *regexp.Regexp
	check validators.Check
}

// Matcher runs a fixed set of compiled rules. It is safe for concurrent use.
type Matcher struct {
	rules   []compiledRule
	context *detector.ContextExtractor
}

var _ detector.Matcher = (*Matcher)(nil)

// New compiles rules. Rule names must be unique and non-empty.
func New(rules []Rule) (*Matcher, error) {
	m := &Matcher{context: detector.NewContextExtractor()}
	seen := make(map[string]bool, len(rules))
	for _, r := range rules {
		name := strings.TrimSpace(r.Name)
		if name == "" {
			return nil, fmt.Errorf("rule with pattern %q has no name", r.Pattern)
		}
		if seen[name] {
			return nil, fmt.Errorf("duplicate rule %q", name)
		}
		seen[name] = true

		re, err := regexp.Compile(r.Pattern)
		if err != nil {
			return nil, fmt.Errorf("failed to compile rule %q: %w", name, err)
		}
		checkName := r.Check
		if checkName == "" {
			checkName = "none"
		}
		check, ok := validators.Lookup(checkName)
		if !ok {
			return nil, fmt.Errorf("rule %q: unknown check %q (known: %s)", name, r.Check, strings.Join(validators.Names(), ", "))
		}
		m.rules = append(m.rules, compiledRule{name: name, re: re, check: check})
	}
	return m, nil
}

// NewDefault compiles DefaultRules.
func NewDefault() *Matcher {
	m, err := New(DefaultRules())
	if err != nil {
		panic(fmt.Sprintf("built-in rules do not compile: %v", err))
	}
	return m
}

// WithContextChars sets the context window on both sides of a match.
func (m *Matcher) WithContextChars(n int) *Matcher {
	m.context = detector.NewContextExtractor().WithContextChars(n)
	return m
}

// Rules returns the rule names in evaluation order.
func (m *Matcher) Rules() []string {
	names := make([]string, len(m.rules))
	for i, r := range m.rules {
		names[i] = r.name
	}
	return names
}

// Enabled returns a matcher restricted to the named rules. An empty list
// keeps every rule. Unknown names are an error.
func (m *Matcher) Enabled(names []string) (*Matcher, error) {
	if len(names) == 0 {
		return m, nil
	}
	want := make(map[string]bool, len(names))
	for _, n := range names {
		want[strings.TrimSpace(n)] = true
	}
	out := &Matcher{context: m.context}
	for _, r := range m.rules {
		if want[r.name] {
			out.rules = append(out.rules, r)
			delete(want, r.name)
		}
	}
	if len(want) > 0 {
		unknown := make([]string, 0, len(want))
		for n := range want {
			unknown = append(unknown, n)
		}
		sort.Strings(unknown)
		return nil, fmt.Errorf("unknown rules: %s", strings.Join(unknown, ", "))
	}
	return out, nil
}

// Match returns every match of every rule, ordered by start offset.
// Offsets are character offsets.
func (m *Matcher) Match(text string) []detector.Candidate {
	if text == "" || len(m.rules) == 0 {
		return []detector.Candidate{}
	}
	offsets := detector.RuneOffsets(text)
	runes := []rune(text)

	var candidates []detector.Candidate
	for _, r := range m.rules {
		for _, loc := range r.re.FindAllStringIndex(text, -1) {
			if loc[1] <= loc[0] {
				continue
			}
			value := text[loc[0]:loc[1]]
			start, end := offsets[loc[0]], offsets[loc[1]]
			candidates = append(candidates, detector.Candidate{
				Rule:    r.name,
				Value:   value,
				Start:   start,
				End:     end,
				Context: m.context.ExtractContext(runes, start, end),
				Valid:   r.check(value),
			})
		}
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Start < candidates[j].Start
	})
	if candidates == nil {
		return []detector.Candidate{}
	}
	return candidates
}
