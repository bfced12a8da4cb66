// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package report

import (
	"time"

	"ferret-risk/internal/reconcile"
)

// Version tags the report layout. Field names below are part of the export
// format and must not change.
const Version = "ferret-risk/report-v1"

// Report is the externally consumed result of one scan.
type Report struct {
	Version   string    `json:"version" yaml:"version"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
	Document  Document  `json:"document" yaml:"document"`
	Policy    Policy    `json:"policy" yaml:"policy"`
	Timings   Timings   `json:"timings" yaml:"timings"`
	Stats     Stats     `json:"stats" yaml:"stats"`
}

// Document describes the scanned input.
type Document struct {
	Name       string            `json:"name" yaml:"name"`
	Type       string            `json:"type" yaml:"type"`
	SizeBytes  int64             `json:"size_bytes" yaml:"size_bytes"`
	Pages      int               `json:"pages" yaml:"pages"`
	CharCount  int               `json:"char_count" yaml:"char_count"`
	Properties map[string]string `json:"properties,omitempty" yaml:"properties,omitempty"`
}

// Policy records the enabled rule names and entity labels.
type Policy struct {
	Rules  []string `json:"rules" yaml:"rules"`
	Labels []string `json:"labels" yaml:"labels"`
}

// Timings are stage durations in milliseconds, copied from the caller.
type Timings struct {
	ExtractMS int64 `json:"extract_ms" yaml:"extract_ms"`
	MatchMS   int64 `json:"match_ms" yaml:"match_ms"`
	NERMS     int64 `json:"ner_ms" yaml:"ner_ms"`
	RedactMS  int64 `json:"redact_ms" yaml:"redact_ms"`
	TotalMS   int64 `json:"total_ms" yaml:"total_ms"`
}

// Stats is the statistics block.
type Stats struct {
	RiskScore        int `json:"risk_score" yaml:"risk_score"`
	reconcile.Counts `yaml:",inline"`

	ByKind         map[string]int           `json:"by_kind" yaml:"by_kind"`
	ByLabel        map[string]int           `json:"by_label" yaml:"by_label"`
	NERAvgConf     map[string]AvgConfidence `json:"ner_avg_conf" yaml:"ner_avg_conf"`
	PatternOK      int                      `json:"pattern_ok" yaml:"pattern_ok"`
	PatternFail    int                      `json:"pattern_fail" yaml:"pattern_fail"`
	TopFailReasons string                   `json:"top_fail_reasons" yaml:"top_fail_reasons"`
	RulesFired     []string                 `json:"rules_fired" yaml:"rules_fired"`
	LabelsFired    []string                 `json:"labels_fired" yaml:"labels_fired"`
}
