// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package report

import (
	"encoding/json"
	"testing"
	"time"

	"ferret-risk/internal/detector"
	"ferret-risk/internal/failure"
	"ferret-risk/internal/taxonomy"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

var fixedTime = time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)

func fixedBuilder() *Builder {
	b := NewBuilder()
	b.Clock = func() time.Time { return fixedTime }
	return b
}

func sampleInput() Input {
	return Input{
		Text:     "홍길동 900101-1234567 hong@example.com 서울 4111 1111 1111 1111",
		Document: Document{Name: "memo.txt", Type: "text/plain", SizeBytes: 64},
		Candidates: []detector.Candidate{
			{Rule: "rrn", Value: "900101-1234567", Start: 4, End: 18, Valid: true},
			{Rule: "email", Value: "hong@example.com", Start: 19, End: 35, Valid: true},
			{Rule: "card", Value: "4111 1111 1111 1112", Start: 39, End: 58, Valid: false},
			{Rule: "mobile_phone", Value: "010-12", Start: 60, End: 66, Valid: false},
		},
		Predictions: []detector.Prediction{
			{Label: detector.LabelPerson, Text: "홍길동", Score: detector.Score(0.9), Start: 0, End: 3},
			{Label: detector.LabelPerson, Text: "900101", Score: detector.Score(0.5), Start: 4, End: 10},
			{Label: detector.LabelLocation, Text: "서울", Start: 36, End: 38},
			{Label: detector.LabelOrganization, Text: "bad", Start: 50, End: 40},
		},
		Rules:   []string{"rrn", "email", "card", "mobile_phone"},
		Timings: Timings{ExtractMS: 3, MatchMS: 1, NERMS: 40, TotalMS: 44},
	}
}

func TestScore(t *testing.T) {
	w := taxonomy.DefaultWeights()

	assert.Equal(t, 0, Score(nil, nil, w))
	assert.Equal(t, 30+8, Score(map[string]int{string(taxonomy.KindResidentRegistration): 1, string(taxonomy.KindEmail): 1}, nil, w))
	assert.Equal(t, 2*2+5, Score(nil, map[string]int{"PS": 2, "LC": 1}, w))
	assert.Equal(t, 100, Score(map[string]int{string(taxonomy.KindCardNumber): 5}, nil, w))
	assert.Equal(t, 0, Score(map[string]int{"made-up": 7}, map[string]int{"XX": 3}, w))
}

func TestScoreMonotoneAndBounded(t *testing.T) {
	w := taxonomy.DefaultWeights()
	byKind := map[string]int{}
	prev := 0
	for i := 0; i < 30; i++ {
		kind := taxonomy.Kinds()[i%len(taxonomy.Kinds())]
		byKind[string(kind)]++
		s := Score(byKind, map[string]int{"OG": i}, w)
		require.GreaterOrEqual(t, s, prev)
		require.LessOrEqual(t, s, MaxScore)
		prev = s
	}
	assert.Equal(t, MaxScore, prev)
}

func TestBuild_Stats(t *testing.T) {
	res := fixedBuilder().Build(sampleInput())
	rep := res.Report

	assert.Equal(t, Version, rep.Version)
	assert.Equal(t, fixedTime, rep.CreatedAt)
	assert.Equal(t, []string{"card", "email", "mobile_phone", "rrn"}, rep.Policy.Rules)
	assert.Equal(t, []string{"LC", "OG", "PS"}, rep.Policy.Labels)
	assert.Equal(t, Timings{ExtractMS: 3, MatchMS: 1, NERMS: 40, TotalMS: 44}, rep.Timings)

	s := rep.Stats
	assert.Equal(t, map[string]int{"resident-registration-number": 1, "email": 1}, s.ByKind)
	assert.Equal(t, map[string]int{"PS": 2, "LC": 1, "OG": 1}, s.ByLabel)
	assert.Equal(t, 2, s.PatternOK)
	assert.Equal(t, 2, s.PatternFail)
	assert.Equal(t, "checksum mismatch (1), phone number format/length mismatch (1)", s.TopFailReasons)
	assert.Equal(t, []string{"card", "email", "mobile_phone", "rrn"}, s.RulesFired)
	assert.Equal(t, []string{"LC", "OG", "PS"}, s.LabelsFired)

	require.True(t, s.NERAvgConf["PS"].Valid)
	assert.InDelta(t, 0.7, s.NERAvgConf["PS"].Value, 1e-9)
	assert.False(t, s.NERAvgConf["LC"].Valid)
	assert.False(t, s.NERAvgConf["OG"].Valid)

	// Spans: rrn, email, PS 0-3, PS 4-10, LC. The malformed OG span is dropped.
	assert.Equal(t, 5, s.TotalRaw)
	assert.Equal(t, 4, s.TotalUnique)
	assert.Equal(t, 1, s.OverlapCount)
	assert.InDelta(t, 0.25, s.OverlapRate, 1e-9)

	assert.Equal(t, 30+8+2*2+5+3, s.RiskScore)
	assert.Equal(t, len([]rune(sampleInput().Text)), rep.Document.CharCount)
}

func TestBuild_Entities(t *testing.T) {
	res := fixedBuilder().Build(sampleInput())

	require.Len(t, res.Entities, 5)
	for i := 1; i < len(res.Entities); i++ {
		assert.LessOrEqual(t, res.Entities[i-1].Start, res.Entities[i].Start)
	}
	first := res.Entities[0]
	assert.Equal(t, detector.SourceEntity, first.Source)
	assert.Equal(t, "person-entity", first.Kind)
	require.NotNil(t, first.Score)

	rrn := res.Entities[2]
	assert.Equal(t, detector.SourcePattern, rrn.Source)
	assert.Equal(t, "resident-registration-number", rrn.Kind)
	require.NotNil(t, rrn.Valid)
	assert.True(t, *rrn.Valid)
}

func TestBuild_EmptyInput(t *testing.T) {
	res := fixedBuilder().Build(Input{})
	s := res.Report.Stats

	assert.Equal(t, 0, s.RiskScore)
	assert.Equal(t, 0, s.TotalRaw)
	assert.Equal(t, 0, s.TotalUnique)
	assert.Equal(t, 0.0, s.OverlapRate)
	assert.NotNil(t, s.ByKind)
	assert.Empty(t, s.ByKind)
	assert.NotNil(t, s.ByLabel)
	assert.Empty(t, s.ByLabel)
	assert.Equal(t, failure.NoFailures, s.TopFailReasons)
	assert.Empty(t, res.Entities)
	assert.Empty(t, res.Clusters)

	data, err := json.Marshal(res.Report)
	require.NoError(t, err)
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	stats := decoded["stats"].(map[string]any)
	assert.Equal(t, map[string]any{}, stats["by_kind"])
	assert.Equal(t, map[string]any{}, stats["by_label"])
	assert.Equal(t, []any{}, stats["rules_fired"])
}

func TestBuild_Deterministic(t *testing.T) {
	a, err := json.Marshal(fixedBuilder().Build(sampleInput()))
	require.NoError(t, err)
	b, err := json.Marshal(fixedBuilder().Build(sampleInput()))
	require.NoError(t, err)
	assert.JSONEq(t, string(a), string(b))
}

func TestBuild_LabelToggleRecomputes(t *testing.T) {
	in := sampleInput()
	b := fixedBuilder()
	all := b.Build(in)

	in.Labels = map[detector.Label]bool{detector.LabelLocation: true}
	onlyLC := b.Build(in)

	assert.Equal(t, map[string]int{"LC": 1}, onlyLC.Report.Stats.ByLabel)
	assert.Equal(t, []string{"LC"}, onlyLC.Report.Policy.Labels)
	assert.Less(t, onlyLC.Report.Stats.RiskScore, all.Report.Stats.RiskScore)
	assert.Equal(t, 0, onlyLC.Report.Stats.OverlapCount)

	in.Labels = nil
	again := b.Build(in)
	assert.Equal(t, all.Report.Stats, again.Report.Stats)
	assert.Len(t, in.Predictions, 4, "input must not be modified")
}

func TestBuild_CustomWeightsAndUnknownRules(t *testing.T) {
	b := fixedBuilder()
	b.Weights = taxonomy.DefaultWeights().With(map[string]int{"employee_id": 40})

	res := b.Build(Input{Candidates: []detector.Candidate{
		{Rule: "employee_id", Value: "E-1", Start: 0, End: 3, Valid: true},
		{Rule: " ", Value: "?", Start: 5, End: 6, Valid: false},
	}})
	s := res.Report.Stats
	assert.Equal(t, map[string]int{"employee_id": 1}, s.ByKind)
	assert.Equal(t, 40, s.RiskScore)
	assert.Equal(t, []string{"employee_id", "unknown"}, s.RulesFired)
	assert.Equal(t, "failed validation, cause unclassified (1)", s.TopFailReasons)
}

func TestReportJSONShape(t *testing.T) {
	data, err := json.Marshal(fixedBuilder().Build(sampleInput()).Report)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	for _, key := range []string{"version", "created_at", "document", "policy", "timings", "stats"} {
		assert.Contains(t, decoded, key)
	}
	stats := decoded["stats"].(map[string]any)
	for _, key := range []string{
		"risk_score", "total_raw", "total_unique", "pattern_unique", "entity_unique",
		"overlap_count", "overlap_rate", "by_kind", "by_label", "ner_avg_conf",
		"pattern_ok", "pattern_fail", "top_fail_reasons", "rules_fired", "labels_fired",
	} {
		assert.Contains(t, stats, key)
	}
	conf := stats["ner_avg_conf"].(map[string]any)
	assert.Equal(t, NoConfidence, conf["LC"])
	assert.InDelta(t, 0.7, conf["PS"], 1e-9)

	timings := decoded["timings"].(map[string]any)
	for _, key := range []string{"extract_ms", "match_ms", "ner_ms", "redact_ms", "total_ms"} {
		assert.Contains(t, timings, key)
	}
}

func TestReportYAMLFlattensCounts(t *testing.T) {
	data, err := yaml.Marshal(fixedBuilder().Build(sampleInput()).Report)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, yaml.Unmarshal(data, &decoded))
	stats := decoded["stats"].(map[string]any)
	assert.Equal(t, 4, stats["total_unique"])
	assert.Equal(t, NoConfidence, stats["ner_avg_conf"].(map[string]any)["OG"])
}

func TestAvgConfidenceJSON(t *testing.T) {
	var a AvgConfidence
	require.NoError(t, json.Unmarshal([]byte(`0.25`), &a))
	assert.Equal(t, Confidence(0.25), a)
	require.NoError(t, json.Unmarshal([]byte(`"—"`), &a))
	assert.False(t, a.Valid)
	assert.Error(t, json.Unmarshal([]byte(`"n/a"`), &a))

	assert.Equal(t, "0.25", Confidence(0.25).String())
	assert.Equal(t, NoConfidence, AvgConfidence{}.String())
}
