// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package report

import (
	"sort"
	"strings"
	"time"

	"ferret-risk/internal/detector"
	"ferret-risk/internal/failure"
	"ferret-risk/internal/reconcile"
	"ferret-risk/internal/taxonomy"
)

// topFailures is the number of reasons kept in Stats.TopFailReasons.
const topFailures = 3

// Input is everything one build consumes. Build never modifies it.
type Input struct {
	Text        string
	Document    Document
	Candidates  []detector.Candidate
	Predictions []detector.Prediction
	// Rules are the enabled rule names, echoed into the policy.
	Rules []string
	// Labels is the enabled label set. Nil enables detector.DefaultLabels.
	Labels  map[detector.Label]bool
	Timings Timings
}

// Entity is one row of the flat reconciled list handed back with a report.
type Entity struct {
	Source detector.Source `json:"source" yaml:"source"`
	Rule   string          `json:"rule,omitempty" yaml:"rule,omitempty"`
	Kind   string          `json:"kind,omitempty" yaml:"kind,omitempty"`
	Label  detector.Label  `json:"label,omitempty" yaml:"label,omitempty"`
	Text   string          `json:"text" yaml:"text"`
	Start  int             `json:"start" yaml:"start"`
	End    int             `json:"end" yaml:"end"`
	Score  *float64        `json:"score,omitempty" yaml:"score,omitempty"`
	Valid  *bool           `json:"valid,omitempty" yaml:"valid,omitempty"`
}

// Result bundles a report with the entity list and clusters it was built from.
type Result struct {
	Report   *Report             `json:"report" yaml:"report"`
	Entities []Entity            `json:"entities" yaml:"entities"`
	Clusters []reconcile.Cluster `json:"clusters" yaml:"clusters"`
}

// Builder assembles reports. The zero value uses the default weights,
// the default merge ratio and the wall clock.
type Builder struct {
	Weights   taxonomy.Weights
	Reconcile reconcile.Options
	Clock     func() time.Time
}

// NewBuilder returns a builder with the shipped defaults.
func NewBuilder() *Builder {
	return &Builder{
		Weights:   taxonomy.DefaultWeights(),
		Reconcile: reconcile.DefaultOptions(),
		Clock:     time.Now,
	}
}

func (b *Builder) weights() taxonomy.Weights {
	if b.Weights == nil {
		return taxonomy.DefaultWeights()
	}
	return b.Weights
}

func (b *Builder) now() time.Time {
	if b.Clock == nil {
		return time.Now().UTC()
	}
	return b.Clock().UTC()
}

// Build derives a fresh report from raw detector output. It is safe to call
// repeatedly with the same candidates and a different label set.
func (b *Builder) Build(in Input) *Result {
	labels := in.Labels
	if labels == nil {
		labels = detector.ParseLabels("")
	}

	patternSpans := reconcile.PatternSpans(in.Candidates)
	entitySpans := reconcile.EntitySpans(in.Predictions, labels)
	clusters := reconcile.Reconcile(patternSpans, entitySpans, b.Reconcile)
	rawCount := len(reconcile.WellFormed(patternSpans)) + len(reconcile.WellFormed(entitySpans))

	stats := Stats{
		Counts:     reconcile.Summarize(rawCount, clusters),
		ByKind:     make(map[string]int),
		ByLabel:    make(map[string]int),
		NERAvgConf: make(map[string]AvgConfidence),
	}

	var fails failure.Tally
	rulesFired := make(map[string]bool)
	for _, c := range in.Candidates {
		rulesFired[ruleName(c.Rule)] = true
		if !c.Valid {
			stats.PatternFail++
			fails.Add(failure.Classify(c.Rule, c.Value))
			continue
		}
		stats.PatternOK++
		stats.ByKind[string(taxonomy.RuleToKind(c.Rule))]++
	}
	stats.TopFailReasons = fails.Summary(topFailures)
	stats.RulesFired = sortedKeys(rulesFired)

	scoreSum := make(map[detector.Label]float64)
	scored := make(map[detector.Label]int)
	labelsFired := make(map[string]bool)
	for _, p := range in.Predictions {
		if !labels[p.Label] {
			continue
		}
		stats.ByLabel[string(p.Label)]++
		labelsFired[string(p.Label)] = true
		if p.HasScore() {
			scoreSum[p.Label] += *p.Score
			scored[p.Label]++
		}
	}
	for label := range labels {
		if !labels[label] {
			continue
		}
		if n := scored[label]; n > 0 {
			stats.NERAvgConf[string(label)] = Confidence(scoreSum[label] / float64(n))
		} else {
			stats.NERAvgConf[string(label)] = AvgConfidence{}
		}
	}
	stats.LabelsFired = sortedKeys(labelsFired)
	stats.RiskScore = Score(stats.ByKind, stats.ByLabel, b.weights())

	doc := in.Document
	if doc.CharCount == 0 {
		doc.CharCount = len([]rune(in.Text))
	}

	return &Result{
		Report: &Report{
			Version:   Version,
			CreatedAt: b.now(),
			Document:  doc,
			Policy: Policy{
				Rules:  sortedCopy(in.Rules),
				Labels: enabledLabels(labels),
			},
			Timings: in.Timings,
			Stats:   stats,
		},
		Entities: entities(in.Candidates, in.Predictions, labels),
		Clusters: clusters,
	}
}

func ruleName(rule string) string {
	if r := strings.TrimSpace(rule); r != "" {
		return r
	}
	return string(taxonomy.KindUnknown)
}

func entities(candidates []detector.Candidate, predictions []detector.Prediction, labels map[detector.Label]bool) []Entity {
	out := make([]Entity, 0, len(candidates)+len(predictions))
	for _, c := range candidates {
		if !c.Valid || c.End <= c.Start {
			continue
		}
		valid := true
		out = append(out, Entity{
			Source: detector.SourcePattern,
			Rule:   c.Rule,
			Kind:   string(taxonomy.RuleToKind(c.Rule)),
			Text:   c.Value,
			Start:  c.Start,
			End:    c.End,
			Valid:  &valid,
		})
	}
	for _, p := range predictions {
		if !labels[p.Label] || p.End <= p.Start {
			continue
		}
		e := Entity{
			Source: detector.SourceEntity,
			Label:  p.Label,
			Kind:   taxonomy.LabelName(p.Label),
			Text:   p.Text,
			Start:  p.Start,
			End:    p.End,
		}
		if p.HasScore() {
			e.Score = detector.Score(*p.Score)
		}
		out = append(out, e)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Start != out[j].Start {
			return out[i].Start < out[j].Start
		}
		return out[i].End < out[j].End
	})
	return out
}

func enabledLabels(labels map[detector.Label]bool) []string {
	out := make([]string, 0, len(labels))
	for l, on := range labels {
		if on {
			out = append(out, string(l))
		}
	}
	sort.Strings(out)
	return out
}

func sortedKeys(set map[string]bool) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func sortedCopy(in []string) []string {
	out := append(make([]string, 0, len(in)), in...)
	sort.Strings(out)
	return out
}
