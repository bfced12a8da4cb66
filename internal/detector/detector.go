// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package detector

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Source identifies which detector produced a span.
type Source int

const (
	SourcePattern Source = iota // deterministic pattern matcher
	SourceEntity                // named-entity recognizer
)

var sourceNames = [...]string{
	SourcePattern: "pattern",
	SourceEntity:  "entity",
}

// String returns the wire name of the source.
func (s Source) String() string {
	if int(s) >= 0 && int(s) < len(sourceNames) {
		return sourceNames[s]
	}
	return fmt.Sprintf("Source(%d)", int(s))
}

// MarshalJSON encodes the source as its wire name.
func (s Source) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// UnmarshalJSON decodes "pattern" or "entity".
func (s *Source) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	switch name {
	case "pattern":
		*s = SourcePattern
	case "entity":
		*s = SourceEntity
	default:
		return fmt.Errorf("unknown source %q", name)
	}
	return nil
}

// MarshalYAML encodes the source as its wire name.
func (s Source) MarshalYAML() (interface{}, error) {
	return s.String(), nil
}

// Label is an entity class emitted by the recognizer. The set is open:
// recognizers may emit labels beyond the three below.
type Label string

const (
	LabelPerson       Label = "PS"
	LabelLocation     Label = "LC"
	LabelOrganization Label = "OG"
)

// DefaultLabels returns the labels enabled when the caller does not choose.
func DefaultLabels() []Label {
	return []Label{LabelPerson, LabelLocation, LabelOrganization}
}

// ParseLabels converts a comma-separated label list into a set.
// An empty string or "all" enables the default labels; "none" yields an
// empty set.
func ParseLabels(labels string) map[Label]bool {
	result := make(map[Label]bool)
	labels = strings.TrimSpace(labels)
	if strings.EqualFold(labels, "none") {
		return result
	}
	if labels == "" || strings.EqualFold(labels, "all") {
		for _, l := range DefaultLabels() {
			result[l] = true
		}
		return result
	}
	for _, part := range strings.Split(labels, ",") {
		if p := strings.ToUpper(strings.TrimSpace(part)); p != "" {
			result[Label(p)] = true
		}
	}
	return result
}

// Candidate is a single regex hit produced by the pattern matcher.
// Offsets are character offsets into the extracted text, end exclusive.
type Candidate struct {
	Rule    string `json:"rule" yaml:"rule"`
	Value   string `json:"value" yaml:"value"`
	Start   int    `json:"start" yaml:"start"`
	End     int    `json:"end" yaml:"end"`
	Context string `json:"context" yaml:"context"`
	Valid   bool   `json:"valid" yaml:"valid"`
}

// Prediction is a single span produced by the entity recognizer.
// Score is nil when the recognizer did not report a confidence.
type Prediction struct {
	Label Label    `json:"label" yaml:"label"`
	Text  string   `json:"text" yaml:"text"`
	Score *float64 `json:"score,omitempty" yaml:"score,omitempty"`
	Start int      `json:"start" yaml:"start"`
	End   int      `json:"end" yaml:"end"`
}

// HasScore reports whether the recognizer attached a confidence.
func (p Prediction) HasScore() bool {
	return p.Score != nil
}

// Score returns a pointer suitable for Prediction.Score.
func Score(v float64) *float64 {
	return &v
}

// Matcher produces candidates for a document's text.
type Matcher interface {
	Match(text string) []Candidate
}
