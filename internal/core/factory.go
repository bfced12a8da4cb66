// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package core

import (
	"fmt"
	"log/slog"

	"ferret-risk/internal/config"
	"ferret-risk/internal/extract"
	"ferret-risk/internal/matcher"
	"ferret-risk/internal/ner"
	"ferret-risk/internal/observability"
	"ferret-risk/internal/report"
)

// BuildScanner constructs a Scanner from configuration. Pass nil for cfg to
// use the defaults. The recognizer is only created when an NER URL is set.
func BuildScanner(cfg *config.Config, observer *observability.StandardObserver, logger *slog.Logger) (*Scanner, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if logger == nil {
		logger = slog.Default()
	}

	m, err := matcher.New(matcher.MergeRules(matcher.DefaultRules(), cfg.Matcher.Rules))
	if err != nil {
		return nil, fmt.Errorf("failed to build matcher: %w", err)
	}
	if cfg.Matcher.ContextChars > 0 {
		m = m.WithContextChars(cfg.Matcher.ContextChars)
	}

	extractor := extract.New()
	extractor.Logger = logger
	if cfg.Extract.MaxFileSizeMB > 0 {
		extractor.MaxFileSize = cfg.Extract.MaxFileSizeMB * 1024 * 1024
	}
	if cfg.Extract.MaxPages > 0 {
		extractor.MaxPages = cfg.Extract.MaxPages
	}

	builder := report.NewBuilder()
	builder.Weights = cfg.RiskWeights()
	if cfg.Reconcile.MergeRatio > 0 {
		builder.Reconcile.MergeRatio = cfg.Reconcile.MergeRatio
	}

	scanner := &Scanner{
		Extractor: extractor,
		Matcher:   m,
		Builder:   builder,
		Observer:  observer,
		Logger:    logger,
	}

	if cfg.NER.URL != "" {
		nerCfg := ner.DefaultConfig(cfg.NER.URL)
		if cfg.NER.Timeout > 0 {
			nerCfg.Timeout = cfg.NER.Timeout
		}
		nerCfg.RatePerSecond = cfg.NER.RatePerSecond
		if cfg.NER.Burst > 0 {
			nerCfg.Burst = cfg.NER.Burst
		}
		nerCfg.Retry.MaxRetries = cfg.NER.MaxRetries
		nerCfg.Logger = logger
		scanner.Recognizer = ner.New(nerCfg)
		logger.Debug("entity recognizer enabled", "url", cfg.NER.URL)
	}

	return scanner, nil
}
