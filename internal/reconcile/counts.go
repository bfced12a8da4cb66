// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package reconcile

// Counts summarizes one reconciliation run.
type Counts struct {
	TotalRaw      int     `json:"total_raw" yaml:"total_raw"`
	TotalUnique   int     `json:"total_unique" yaml:"total_unique"`
	PatternUnique int     `json:"pattern_unique" yaml:"pattern_unique"`
	EntityUnique  int     `json:"entity_unique" yaml:"entity_unique"`
	OverlapCount  int     `json:"overlap_count" yaml:"overlap_count"`
	OverlapRate   float64 `json:"overlap_rate" yaml:"overlap_rate"`
}

// Summarize derives counts from the clusters of a run. rawCount is the
// number of spans handed to the reconciler before merging.
func Summarize(rawCount int, clusters []Cluster) Counts {
	counts := Counts{
		TotalRaw:    rawCount,
		TotalUnique: len(clusters),
	}
	for _, c := range clusters {
		if c.HasPatternSource {
			counts.PatternUnique++
		}
		if c.HasEntitySource {
			counts.EntityUnique++
		}
		if c.Overlapped() {
			counts.OverlapCount++
		}
	}
	if counts.TotalUnique > 0 {
		counts.OverlapRate = float64(counts.OverlapCount) / float64(counts.TotalUnique)
	}
	return counts
}
