// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package reconcile

import (
	"sort"

	"ferret-risk/internal/detector"
)

// DefaultMergeRatio is the overlap ratio at or above which two spans are
// treated as the same item.
const DefaultMergeRatio = 0.8

// Options tunes reconciliation.
type Options struct {
	// MergeRatio is the overlap-ratio threshold for merging. Zero selects
	// DefaultMergeRatio.
	MergeRatio float64
}

// DefaultOptions returns the shipped reconciliation policy.
func DefaultOptions() Options {
	return Options{MergeRatio: DefaultMergeRatio}
}

func (o Options) mergeRatio() float64 {
	if o.MergeRatio <= 0 {
		return DefaultMergeRatio
	}
	return o.MergeRatio
}

// Cluster is the union of one or more merged spans.
type Cluster struct {
	Start            int  `json:"start" yaml:"start"`
	End              int  `json:"end" yaml:"end"`
	HasPatternSource bool `json:"has_pattern_source" yaml:"has_pattern_source"`
	HasEntitySource  bool `json:"has_entity_source" yaml:"has_entity_source"`
}

// Overlapped reports whether both detectors contributed to the cluster.
func (c Cluster) Overlapped() bool {
	return c.HasPatternSource && c.HasEntitySource
}

func newCluster(s Span) Cluster {
	return Cluster{
		Start:            s.Start,
		End:              s.End,
		HasPatternSource: s.Source == detector.SourcePattern,
		HasEntitySource:  s.Source == detector.SourceEntity,
	}
}

func (c *Cluster) absorb(s Span) {
	c.Start = min(c.Start, s.Start)
	c.End = max(c.End, s.End)
	switch s.Source {
	case detector.SourcePattern:
		c.HasPatternSource = true
	case detector.SourceEntity:
		c.HasEntitySource = true
	}
}

// OverlapRatio is the intersection length of [aStart,aEnd) and
// [bStart,bEnd) divided by the shorter length. It is 0 when either interval
// is empty or malformed.
func OverlapRatio(aStart, aEnd, bStart, bEnd int) float64 {
	lenA := aEnd - aStart
	lenB := bEnd - bStart
	if lenA <= 0 || lenB <= 0 {
		return 0
	}
	inter := max(0, min(aEnd, bEnd)-max(aStart, bStart))
	return float64(inter) / float64(min(lenA, lenB))
}

// Reconcile merges pattern and entity spans into clusters ordered by start.
// Malformed spans are dropped. A span joins the open cluster when its
// overlap ratio with the cluster reaches the merge threshold or when it
// starts at or before the cluster's end, so touching intervals always merge.
// The inputs are not modified.
func Reconcile(patternSpans, entitySpans []Span, opts Options) []Cluster {
	all := make([]Span, 0, len(patternSpans)+len(entitySpans))
	all = append(all, WellFormed(patternSpans)...)
	all = append(all, WellFormed(entitySpans)...)
	if len(all) == 0 {
		return []Cluster{}
	}

	sort.SliceStable(all, func(i, j int) bool {
		if all[i].Start != all[j].Start {
			return all[i].Start < all[j].Start
		}
		return all[i].End < all[j].End
	})

	threshold := opts.mergeRatio()
	clusters := make([]Cluster, 0, len(all))
	current := newCluster(all[0])

	for _, s := range all[1:] {
		ratio := OverlapRatio(current.Start, current.End, s.Start, s.End)
		if ratio >= threshold || s.Start <= current.End {
			current.absorb(s)
			continue
		}
		clusters = append(clusters, current)
		current = newCluster(s)
	}

	return append(clusters, current)
}
