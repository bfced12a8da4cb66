// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package failure

import (
	"fmt"
	"sort"
	"strings"
)

// NoFailures is rendered by Summary when nothing was tallied.
const NoFailures = "—"

// Count is one row of a tally.
type Count struct {
	Reason Reason `json:"reason" yaml:"reason"`
	Count  int    `json:"count" yaml:"count"`
}

// Tally is a frequency table of reasons that remembers first-seen order.
// The zero value is ready to use.
type Tally struct {
	counts map[Reason]int
	order  []Reason
}

// Add records one occurrence of r.
func (t *Tally) Add(r Reason) {
	if t.counts == nil {
		t.counts = make(map[Reason]int)
	}
	if _, seen := t.counts[r]; !seen {
		t.order = append(t.order, r)
	}
	t.counts[r]++
}

// Total returns the number of recorded occurrences.
func (t *Tally) Total() int {
	total := 0
	for _, c := range t.counts {
		total += c
	}
	return total
}

// Top returns up to n reasons by descending count. Ties keep the order in
// which reasons were first added.
func (t *Tally) Top(n int) []Count {
	rows := make([]Count, 0, len(t.order))
	for _, r := range t.order {
		rows = append(rows, Count{Reason: r, Count: t.counts[r]})
	}
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].Count > rows[j].Count
	})
	if n >= 0 && len(rows) > n {
		rows = rows[:n]
	}
	return rows
}

// Summary renders the top n reasons as "reason (count), reason (count)".
func (t *Tally) Summary(n int) string {
	top := t.Top(n)
	if len(top) == 0 {
		return NoFailures
	}
	parts := make([]string, len(top))
	for i, row := range top {
		parts[i] = fmt.Sprintf("%s (%d)", row.Reason, row.Count)
	}
	return strings.Join(parts, ", ")
}
