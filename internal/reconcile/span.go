// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package reconcile merges the spans of the pattern matcher and the entity
// recognizer into non-overlapping clusters with provenance.
package reconcile

import (
	"ferret-risk/internal/detector"
)

// Span is a half-open character interval tagged with its detector.
type Span struct {
	Start  int             `json:"start" yaml:"start"`
	End    int             `json:"end" yaml:"end"`
	Source detector.Source `json:"source" yaml:"source"`
}

// Len returns the span length; it is non-positive for malformed spans.
func (s Span) Len() int {
	return s.End - s.Start
}

// wellFormed reports whether the span has positive length.
func (s Span) wellFormed() bool {
	return s.End > s.Start
}

// PatternSpans builds spans from the candidates the matcher marked valid.
func PatternSpans(candidates []detector.Candidate) []Span {
	spans := make([]Span, 0, len(candidates))
	for _, c := range candidates {
		if !c.Valid {
			continue
		}
		spans = append(spans, Span{Start: c.Start, End: c.End, Source: detector.SourcePattern})
	}
	return spans
}

// EntitySpans builds spans from the predictions whose label is enabled.
func EntitySpans(predictions []detector.Prediction, enabled map[detector.Label]bool) []Span {
	spans := make([]Span, 0, len(predictions))
	for _, p := range predictions {
		if !enabled[p.Label] {
			continue
		}
		spans = append(spans, Span{Start: p.Start, End: p.End, Source: detector.SourceEntity})
	}
	return spans
}

// WellFormed returns the spans with end > start, preserving order.
func WellFormed(spans []Span) []Span {
	out := make([]Span, 0, len(spans))
	for _, s := range spans {
		if s.wellFormed() {
			out = append(out, s)
		}
	}
	return out
}
