// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package help

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"

	"ferret-risk/internal/detector"
	"ferret-risk/internal/extract"
	"ferret-risk/internal/matcher"
	"ferret-risk/internal/taxonomy"
)

// System renders help screens
type System struct {
	out    io.Writer
	colors map[string]*color.Color
}

// NewSystem creates a new help system writing to out
func NewSystem(out io.Writer, noColor bool) *System {
	if noColor {
		color.NoColor = true
	}

	return &System{
		out: out,
		colors: map[string]*color.Color{
			"title":    color.New(color.FgWhite, color.Bold),
			"header":   color.New(color.FgBlue, color.Bold),
			"emphasis": color.New(color.FgWhite, color.Bold),
			"example":  color.New(color.FgMagenta),
		},
	}
}

// ShowGeneralHelp displays general help information
func (h *System) ShowGeneralHelp() {
	h.colors["title"].Fprintln(h.out, "Ferret Risk - Detection Reconciliation & Risk Scoring")
	fmt.Fprintln(h.out, "=====================================================")
	fmt.Fprintln(h.out)
	h.colors["header"].Fprintln(h.out, "USAGE:")
	fmt.Fprintln(h.out, "  ferret-risk --file <path-to-file> [options]")
	fmt.Fprintln(h.out, "  ferret-risk --input <raw.json> [options]")
	fmt.Fprintln(h.out, "  ferret-risk --web [--port <port>]  # HTTP API mode")
	fmt.Fprintln(h.out)

	h.colors["header"].Fprintln(h.out, "OPTIONS:")
	w := tabwriter.NewWriter(h.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "  --file\t<path>\tDocument to scan ("+strings.Join(extract.Extensions(), " ")+")")
	fmt.Fprintln(w, "  --input\t<path>\tJSON file of raw detector output; skips extraction and detection")
	fmt.Fprintln(w, "  --format\t<format>\tOutput format: text, json, yaml, csv (default: text)")
	fmt.Fprintln(w, "  --rules\t<rules>\tPattern rules to run, comma separated (default: all)")
	fmt.Fprintln(w, "  --labels\t<labels>\tEntity labels to count, comma separated, or none (default: PS,LC,OG)")
	fmt.Fprintln(w, "  --config\t<path>\tPath to configuration file (YAML)")
	fmt.Fprintln(w, "  --profile\t<name>\tProfile name to use from config file")
	fmt.Fprintln(w, "  --list-profiles\t\tList available profiles in config file")
	fmt.Fprintln(w, "  --ner-url\t<url>\tEntity recognizer base URL (env FERRET_NER_URL)")
	fmt.Fprintln(w, "  --output\t<path>\tPath to output file (if not specified, output to stdout)")
	fmt.Fprintln(w, "  --verbose\t\tInclude the reconciled entity list")
	fmt.Fprintln(w, "  --show-match\t\tDisplay entity text (otherwise shows [REDACTED])")
	fmt.Fprintln(w, "  --debug\t\tLog pipeline stage timings as JSON to stderr")
	fmt.Fprintln(w, "  --no-color\t\tDisable colored output")
	fmt.Fprintln(w, "  --web\t\tStart the HTTP API instead of scanning")
	fmt.Fprintln(w, "  --port\t<port>\tPort for the HTTP API (default: 8080)")
	fmt.Fprintln(w, "  --version\t\tShow version information")
	fmt.Fprintln(w, "  --help\t\tShow this help message")
	fmt.Fprintln(w, "  --help rules\t\tList pattern rules, labels and risk weights")
	w.Flush()

	fmt.Fprintln(h.out)
	h.colors["header"].Fprintln(h.out, "EXAMPLES:")
	h.colors["example"].Fprintln(h.out, "  ferret-risk --file contract.pdf")
	h.colors["example"].Fprintln(h.out, "  ferret-risk --file roster.xlsx --labels PS --format json --ner-url http://localhost:8001")
	h.colors["example"].Fprintln(h.out, "  ferret-risk --input raw.json --labels LC,OG --format yaml")
	h.colors["example"].Fprintln(h.out, "  ferret-risk --file memo.docx --profile identifiers --config ferret.yaml")
	h.colors["example"].Fprintln(h.out, "  ferret-risk --web --port 9000")

	fmt.Fprintln(h.out)
	h.colors["header"].Fprintln(h.out, "CONFIGURATION:")
	fmt.Fprintln(h.out, "  Project config: ferret-risk.yaml or .ferret-risk.yaml (in current directory)")
	fmt.Fprintln(h.out, "  User config:    <user config dir>/ferret-risk/config.yaml")
	fmt.Fprintln(h.out, "  Environment:    FERRET_CONFIG, FERRET_NER_URL (a .env file is loaded first)")
}

// ShowRulesHelp lists the pattern rules with their kind and weight, then
// the entity labels.
func (h *System) ShowRulesHelp(rules []matcher.Rule, weights taxonomy.Weights) {
	h.colors["title"].Fprintln(h.out, "Pattern Rules")
	fmt.Fprintln(h.out, "=============")
	fmt.Fprintln(h.out)

	w := tabwriter.NewWriter(h.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "  RULE\tKIND\tWEIGHT\tCHECK\tPATTERN")
	for _, r := range rules {
		kind := taxonomy.RuleToKind(r.Name)
		check := r.Check
		if check == "" {
			check = "none"
		}
		fmt.Fprintf(w, "  %s\t%s\t%d\t%s\t%s\n", r.Name, kind, weights.KindWeight(kind), check, r.Pattern)
	}
	w.Flush()

	fmt.Fprintln(h.out)
	h.colors["title"].Fprintln(h.out, "Entity Labels")
	fmt.Fprintln(h.out, "=============")
	fmt.Fprintln(h.out)

	w = tabwriter.NewWriter(h.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "  LABEL\tNAME\tWEIGHT")
	for _, l := range detector.DefaultLabels() {
		fmt.Fprintf(w, "  %s\t%s\t%d\n", l, taxonomy.LabelName(l), weights.LabelWeight(l))
	}
	w.Flush()
}
