// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package shared

import (
	"ferret-risk/internal/formatters"
	"ferret-risk/internal/reconcile"
	"ferret-risk/internal/report"
)

// RedactedText replaces entity text unless ShowMatch is set.
const RedactedText = "[REDACTED]"

// Document is the structure JSON and YAML output serialize. Without
// Verbose only the report is written.
type Document struct {
	report.Report `yaml:",inline"`
	Entities       []report.Entity     `json:"entities,omitempty" yaml:"entities,omitempty"`
	Clusters       []reconcile.Cluster `json:"clusters,omitempty" yaml:"clusters,omitempty"`
}

// ConvertResult builds the serializable view of result for options.
func ConvertResult(result *report.Result, options formatters.FormatterOptions) Document {
	doc := Document{Report: *result.Report}
	if options.Verbose {
		doc.Entities = Entities(result.Entities, options.ShowMatch)
		doc.Clusters = result.Clusters
	}
	return doc
}

// Entities returns a copy of entities with the text masked unless show is set.
func Entities(entities []report.Entity, show bool) []report.Entity {
	if entities == nil {
		return nil
	}
	out := make([]report.Entity, len(entities))
	copy(out, entities)
	if !show {
		for i := range out {
			out[i].Text = RedactedText
		}
	}
	return out
}
