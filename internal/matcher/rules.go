// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package matcher

// Rule is the configurable form of a pattern rule.
type Rule struct {
	// Name is the rule identifier reported on candidates, e.g. "rrn".
	Name string `yaml:"name" json:"name"`
	// Pattern is an RE2 expression.
	Pattern string `yaml:"pattern" json:"pattern"`
	// Check names the validator that decides a candidate's verdict.
	// See validators.Names. Empty means "none".
	Check string `yaml:"check,omitempty" json:"check,omitempty"`
}

// DefaultRules returns the built-in rule set for Korean personal data.
func DefaultRules() []Rule {
	return []Rule{
		{Name: "rrn", Pattern: `\b\d{6}-?[1-4]\d{6}\b`, Check: "national_id"},
		{Name: "fgn", Pattern: `\b\d{6}-?[5-8]\d{6}\b`, Check: "foreign_id"},
		{Name: "card", Pattern: `\b\d{4}[- ]?\d{4}[- ]?\d{4}[- ]?\d{1,7}\b`, Check: "luhn"},
		{Name: "email", Pattern: `[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`, Check: "email"},
		{Name: "mobile_phone", Pattern: `\b01[016789][- .]?\d{3,4}[- .]?\d{4}\b`, Check: "phone"},
		{Name: "passport", Pattern: `\b[MSRODG](?:\d{8}|\d{3}[A-Z]\d{4})\b`, Check: "none"},
		{Name: "driver_license", Pattern: `\b\d{2}-\d{2}-\d{6}-\d{2}\b`, Check: "none"},
		{Name: "bank_account", Pattern: `\b\d{3,6}-\d{2,6}-\d{2,6}(?:-\d{1,3})?\b`, Check: "none"},
	}
}

// MergeRules returns base with overrides applied by name. Overrides with a
// new name are appended in their given order.
func MergeRules(base, overrides []Rule) []Rule {
	out := append(make([]Rule, 0, len(base)+len(overrides)), base...)
	index := make(map[string]int, len(out))
	for i, r := range out {
		index[r.Name] = i
	}
	for _, r := range overrides {
		if i, ok := index[r.Name]; ok {
			out[i] = r
			continue
		}
		index[r.Name] = len(out)
		out = append(out, r)
	}
	return out
}
