// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package text

import (
	"fmt"
	"sort"
	"strings"

	"ferret-risk/internal/detector"
	"ferret-risk/internal/formatters"
	"ferret-risk/internal/formatters/shared"
	"ferret-risk/internal/report"
	"ferret-risk/internal/taxonomy"

	"github.com/fatih/color"
)

// Score bands used to color the risk score.
const (
	highRisk   = 70
	mediumRisk = 40
)

// maxTextWidth caps the entity text column.
const maxTextWidth = 30

// Formatter implements text-based output formatting
type Formatter struct {
	colors map[string]*color.Color
}

// NewFormatter creates a new text formatter
func NewFormatter() *Formatter {
	return &Formatter{
		colors: map[string]*color.Color{
			"green":   color.New(color.FgGreen),
			"yellow":  color.New(color.FgYellow),
			"red":     color.New(color.FgRed, color.Bold),
			"cyan":    color.New(color.FgCyan),
			"magenta": color.New(color.FgMagenta),
			"white":   color.New(color.FgWhite, color.Bold),
		},
	}
}

func (f *Formatter) Name() string {
	return "text"
}

func (f *Formatter) Description() string {
	return "Human-readable report summary with colors"
}

func (f *Formatter) FileExtension() string {
	return ".txt"
}

func (f *Formatter) Format(result *report.Result, options formatters.FormatterOptions) (string, error) {
	if options.NoColor {
		color.NoColor = true
	}

	var b strings.Builder
	r := result.Report
	stats := r.Stats

	f.appendHeader(&b, r, options)
	f.appendScore(&b, stats.RiskScore, options)

	f.field(&b, options, "Items", "%d raw, %d unique (pattern %d, entity %d, overlap %d, rate %.2f)",
		stats.TotalRaw, stats.TotalUnique, stats.PatternUnique, stats.EntityUnique,
		stats.OverlapCount, stats.OverlapRate)

	patterns := fmt.Sprintf("%d valid, %d failed", stats.PatternOK, stats.PatternFail)
	if stats.TopFailReasons != "" {
		patterns += " [" + stats.TopFailReasons + "]"
	}
	f.field(&b, options, "Patterns", "%s", patterns)

	if len(stats.ByKind) > 0 {
		f.section(&b, options, "By kind")
		for _, kind := range sortedKeys(stats.ByKind) {
			fmt.Fprintf(&b, "  %-22s %d\n", kind, stats.ByKind[kind])
		}
	}

	if len(stats.NERAvgConf) > 0 || len(stats.ByLabel) > 0 {
		f.section(&b, options, "By label")
		labels := make(map[string]int, len(stats.NERAvgConf))
		for l := range stats.NERAvgConf {
			labels[l] = stats.ByLabel[l]
		}
		for l, n := range stats.ByLabel {
			labels[l] = n
		}
		for _, l := range sortedKeys(labels) {
			name := fmt.Sprintf("%s (%s)", l, taxonomy.LabelName(detector.Label(l)))
			fmt.Fprintf(&b, "  %-22s %-4d avg conf %s\n", name, labels[l], stats.NERAvgConf[l])
		}
	}

	f.field(&b, options, "Rules fired", "%s", listOrNone(stats.RulesFired))
	f.field(&b, options, "Labels fired", "%s", listOrNone(stats.LabelsFired))
	f.field(&b, options, "Timings", "extract %dms, match %dms, ner %dms, total %dms",
		r.Timings.ExtractMS, r.Timings.MatchMS, r.Timings.NERMS, r.Timings.TotalMS)

	if options.Verbose {
		f.appendEntities(&b, shared.Entities(result.Entities, options.ShowMatch), options)
	}

	return b.String(), nil
}

func (f *Formatter) appendHeader(b *strings.Builder, r *report.Report, options formatters.FormatterOptions) {
	doc := r.Document
	title := fmt.Sprintf("%s (%s, %d pages, %d chars)", doc.Name, doc.Type, doc.Pages, doc.CharCount)
	if options.NoColor {
		fmt.Fprintf(b, "=== %s ===\n", title)
		return
	}
	f.colors["white"].Fprintf(b, "=== %s ===\n", title)
}

func (f *Formatter) appendScore(b *strings.Builder, score int, options formatters.FormatterOptions) {
	level := "LOW"
	c := f.colors["green"]
	switch {
	case score >= highRisk:
		level, c = "HIGH", f.colors["red"]
	case score >= mediumRisk:
		level, c = "MEDIUM", f.colors["yellow"]
	}
	value := fmt.Sprintf("%d/%d (%s)", score, report.MaxScore, level)
	if !options.NoColor {
		value = c.Sprint(value)
	}
	f.field(b, options, "Risk score", "%s", value)
}

// appendEntities writes the reconciled entity table.
func (f *Formatter) appendEntities(b *strings.Builder, entities []report.Entity, options formatters.FormatterOptions) {
	f.section(b, options, "Entities")
	if len(entities) == 0 {
		b.WriteString("  none\n")
		return
	}
	header := fmt.Sprintf("  %-8s %-16s %-22s %7s %7s %-6s %s\n", "SOURCE", "RULE/LABEL", "KIND", "START", "END", "OK", "TEXT")
	if options.NoColor {
		b.WriteString(header)
	} else {
		f.colors["white"].Fprint(b, header)
	}
	for _, e := range entities {
		name, kind, ok := e.Rule, e.Kind, "-"
		if e.Source == detector.SourceEntity {
			name, kind = string(e.Label), taxonomy.LabelName(e.Label)
			if e.Score != nil {
				ok = fmt.Sprintf("%.2f", *e.Score)
			}
		} else if e.Valid != nil {
			ok = "no"
			if *e.Valid {
				ok = "yes"
			}
		}
		source := fmt.Sprintf("%-8s", e.Source)
		if !options.NoColor {
			source = f.colors["cyan"].Sprintf("%-8s", e.Source)
		}
		fmt.Fprintf(b, "  %s %-16s %-22s %7d %7d %-6s %s\n", source, name, kind, e.Start, e.End, ok, truncate(e.Text))
	}
}

func (f *Formatter) section(b *strings.Builder, options formatters.FormatterOptions, title string) {
	if options.NoColor {
		fmt.Fprintf(b, "%s:\n", title)
		return
	}
	f.colors["cyan"].Fprintf(b, "%s:\n", title)
}

func (f *Formatter) field(b *strings.Builder, options formatters.FormatterOptions, name, format string, args ...interface{}) {
	label := fmt.Sprintf("%-13s", name+":")
	if !options.NoColor {
		label = f.colors["cyan"].Sprint(label)
	}
	fmt.Fprintf(b, "%s %s\n", label, fmt.Sprintf(format, args...))
}

func truncate(s string) string {
	s = strings.NewReplacer("\n", " ", "\t", " ").Replace(s)
	runes := []rune(s)
	if len(runes) > maxTextWidth {
		return string(runes[:maxTextWidth-3]) + "..."
	}
	return s
}

func listOrNone(items []string) string {
	if len(items) == 0 {
		return "none"
	}
	return strings.Join(items, ", ")
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Register the formatter during package initialization
func init() {
	formatters.Register(NewFormatter())
}
