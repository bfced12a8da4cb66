// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package report turns candidates and predictions into a Scan Report: the
// reconciled counts, a weighted 0-100 risk score and the statistics block.
package report

import (
	"math"

	"ferret-risk/internal/detector"
	"ferret-risk/internal/taxonomy"
)

const (
	MinScore = 0
	MaxScore = 100
)

// Score weighs per-kind and per-label counts and saturates the sum into
// [MinScore, MaxScore]. byKind is keyed by kind, byLabel by label code.
// The score is not normalized by document length.
func Score(byKind, byLabel map[string]int, weights taxonomy.Weights) int {
	raw := 0.0
	for kind, n := range byKind {
		raw += float64(weights.KindWeight(taxonomy.Kind(kind)) * n)
	}
	for label, n := range byLabel {
		raw += float64(weights.LabelWeight(detector.Label(label)) * n)
	}
	score := int(math.Round(raw))
	return max(MinScore, min(MaxScore, score))
}
