// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package core runs the scan pipeline shared by the CLI and the web server:
// extract, then pattern matching alongside entity recognition, then the
// report builder.
package core

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"ferret-risk/internal/detector"
	"ferret-risk/internal/extract"
	"ferret-risk/internal/matcher"
	"ferret-risk/internal/observability"
	"ferret-risk/internal/report"
)

const tracerName = "ferret-risk/core"

// Recognizer finds named entities in text.
type Recognizer interface {
	Recognize(ctx context.Context, text string) ([]detector.Prediction, error)
}

// ScanConfig holds configuration for scanning operations.
type ScanConfig struct {
	FilePath string
	// Name is the document name reported; defaults to the file's base name.
	Name string
	// Rules restricts the matcher. Empty enables every rule.
	Rules []string
	// Labels is the enabled label set. Nil enables the default labels.
	Labels map[detector.Label]bool
}

// Raw is the detector output a report is derived from. It is kept with every
// result so the report can be rebuilt for another label set without
// re-running detection, and it is the format accepted by --input and
// POST /report.
type Raw struct {
	Text        string                `json:"text" yaml:"text"`
	Document    report.Document       `json:"document" yaml:"document"`
	Candidates  []detector.Candidate  `json:"candidates" yaml:"candidates"`
	Predictions []detector.Prediction `json:"predictions" yaml:"predictions"`
	Rules       []string              `json:"rules,omitempty" yaml:"rules,omitempty"`
	Labels      []detector.Label      `json:"labels" yaml:"labels"`
	Timings     report.Timings        `json:"timings" yaml:"timings"`
}

// LabelSet returns the labels recorded in raw as a set. It returns nil when
// no label list was recorded and an empty set when every label was disabled.
func (r Raw) LabelSet() map[detector.Label]bool {
	if r.Labels == nil {
		return nil
	}
	set := make(map[detector.Label]bool, len(r.Labels))
	for _, l := range r.Labels {
		set[l] = true
	}
	return set
}

// ScanResult holds the results of a scanning operation.
type ScanResult struct {
	*report.Result
	Raw       Raw    `json:"-" yaml:"-"`
	RequestID string `json:"-" yaml:"-"`
}

// Scanner wires the collaborators together. Recognizer may be nil, in which
// case no predictions are produced.
type Scanner struct {
	Extractor  *extract.Extractor
	Matcher    *matcher.Matcher
	Recognizer Recognizer
	Builder    *report.Builder
	Observer   *observability.StandardObserver
	Tracer     trace.Tracer
	Logger     *slog.Logger
}

// NewScanner returns a scanner with the built-in rules, default limits and
// no recognizer.
func NewScanner() *Scanner {
	return &Scanner{
		Extractor: extract.New(),
		Matcher:   matcher.NewDefault(),
		Builder:   report.NewBuilder(),
	}
}

// ScanFile extracts the file named by cfg and scans its text.
func (s *Scanner) ScanFile(ctx context.Context, cfg ScanConfig) (*ScanResult, error) {
	started := time.Now()
	obs := s.observer().ForRequest()

	ctx, span := s.tracer().Start(ctx, "scan.file", trace.WithAttributes(
		attribute.String("file.path", cfg.FilePath),
		attribute.String("request.id", obs.RequestID()),
	))
	defer span.End()

	finish := obs.StartTiming("core", "extract", cfg.FilePath)
	var (
		doc *extract.Document
		err error
	)
	if cfg.Name != "" {
		doc, err = s.extractor().ExtractNamed(cfg.FilePath, cfg.Name)
	} else {
		doc, err = s.extractor().Extract(cfg.FilePath)
	}
	extractTime := finish(err == nil, nil)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "extract failed")
		return nil, err
	}
	span.AddEvent("extracted", trace.WithAttributes(
		attribute.Int("document.pages", doc.Pages),
		attribute.Int("document.chars", doc.CharCount()),
	))

	raw := Raw{
		Text: doc.Text,
		Document: report.Document{
			Name:       doc.Name,
			Type:       doc.Type,
			SizeBytes:  doc.SizeBytes,
			Pages:      doc.Pages,
			CharCount:  doc.CharCount(),
			Properties: doc.Properties,
		},
		Timings: report.Timings{ExtractMS: extractTime.Milliseconds()},
	}
	return s.scan(ctx, obs, span, raw, cfg, started)
}

// ScanText scans text that is already extracted. cfg.FilePath is ignored.
func (s *Scanner) ScanText(ctx context.Context, text string, cfg ScanConfig) (*ScanResult, error) {
	started := time.Now()
	obs := s.observer().ForRequest()

	ctx, span := s.tracer().Start(ctx, "scan.text", trace.WithAttributes(
		attribute.String("request.id", obs.RequestID()),
	))
	defer span.End()

	name := cfg.Name
	if name == "" {
		name = "text"
	}
	raw := Raw{
		Text: text,
		Document: report.Document{
			Name:      name,
			Type:      "text/plain",
			SizeBytes: int64(len(text)),
			Pages:     1,
		},
	}
	return s.scan(ctx, obs, span, raw, cfg, started)
}

// scan runs both detectors over raw.Text and builds the report.
func (s *Scanner) scan(ctx context.Context, obs *observability.StandardObserver, span trace.Span, raw Raw, cfg ScanConfig, started time.Time) (*ScanResult, error) {
	m := s.matcher()
	if len(cfg.Rules) > 0 {
		enabled, err := m.Enabled(cfg.Rules)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "invalid rules")
			return nil, err
		}
		m = enabled
	}

	var (
		candidates  []detector.Candidate
		predictions []detector.Prediction
	)
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		finish := obs.StartTiming("matcher", "match", raw.Document.Name)
		candidates = m.Match(raw.Text)
		raw.Timings.MatchMS = finish(true, map[string]interface{}{"candidates": len(candidates)}).Milliseconds()
		return nil
	})

	g.Go(func() error {
		if s.Recognizer == nil {
			return nil
		}
		finish := obs.StartTiming("ner", "recognize", raw.Document.Name)
		preds, err := s.Recognizer.Recognize(gctx, raw.Text)
		raw.Timings.NERMS = finish(err == nil, map[string]interface{}{"predictions": len(preds)}).Milliseconds()
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			s.logger().Warn("entity recognition failed, continuing without predictions",
				"document", raw.Document.Name,
				"request_id", obs.RequestID(),
				"error", err)
			span.AddEvent("ner.degraded", trace.WithAttributes(attribute.String("error", err.Error())))
			return nil
		}
		predictions = preds
		return nil
	})

	if err := g.Wait(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "scan canceled")
		return nil, fmt.Errorf("scan %s: %w", raw.Document.Name, err)
	}

	raw.Candidates = candidates
	if raw.Candidates == nil {
		raw.Candidates = []detector.Candidate{}
	}
	raw.Predictions = predictions
	if raw.Predictions == nil {
		raw.Predictions = []detector.Prediction{}
	}
	raw.Rules = m.Rules()
	raw.Labels = labelList(cfg.Labels)
	raw.Timings.TotalMS = time.Since(started).Milliseconds()

	span.SetAttributes(
		attribute.Int("scan.candidates", len(raw.Candidates)),
		attribute.Int("scan.predictions", len(raw.Predictions)),
	)

	result := s.Rebuild(raw, cfg.Labels)
	result.RequestID = obs.RequestID()
	span.SetAttributes(attribute.Int("report.risk_score", result.Report.Stats.RiskScore))
	return result, nil
}

// Rebuild derives a result from retained raw inputs for the given label set.
// A nil set falls back to the labels recorded in raw, then to the defaults.
func (s *Scanner) Rebuild(raw Raw, labels map[detector.Label]bool) *ScanResult {
	if labels == nil {
		labels = raw.LabelSet()
	}
	if labels == nil {
		labels = detector.ParseLabels("")
	}
	raw.Labels = labelList(labels)

	result := s.builder().Build(report.Input{
		Text:        raw.Text,
		Document:    raw.Document,
		Candidates:  raw.Candidates,
		Predictions: raw.Predictions,
		Rules:       raw.Rules,
		Labels:      labels,
		Timings:     raw.Timings,
	})
	return &ScanResult{Result: result, Raw: raw}
}

func labelList(labels map[detector.Label]bool) []detector.Label {
	if labels == nil {
		return nil
	}
	out := make([]detector.Label, 0, len(labels))
	for l, on := range labels {
		if on {
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (s *Scanner) extractor() *extract.Extractor {
	if s.Extractor == nil {
		return extract.New()
	}
	return s.Extractor
}

func (s *Scanner) matcher() *matcher.Matcher {
	if s.Matcher == nil {
		return matcher.NewDefault()
	}
	return s.Matcher
}

func (s *Scanner) builder() *report.Builder {
	if s.Builder == nil {
		return report.NewBuilder()
	}
	return s.Builder
}

func (s *Scanner) observer() *observability.StandardObserver {
	if s.Observer == nil {
		return observability.NewStandardObserver(observability.ObservabilityOff, nil)
	}
	return s.Observer
}

func (s *Scanner) tracer() trace.Tracer {
	if s.Tracer == nil {
		return otel.Tracer(tracerName)
	}
	return s.Tracer
}

func (s *Scanner) logger() *slog.Logger {
	if s.Logger == nil {
		return slog.Default()
	}
	return s.Logger
}
