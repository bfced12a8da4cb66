// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package ner calls the named-entity recognizer sidecar over HTTP.
package ner

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"ferret-risk/internal/detector"
	"ferret-risk/internal/resilience"
)

// maxErrorBody bounds how much of an error response is kept in messages.
const maxErrorBody = 512

// Config configures a Client.
type Config struct {
	// URL is the sidecar base URL, e.g. "http://ner:8001".
	URL     string
	Timeout time.Duration
	// RatePerSecond limits outgoing requests. Zero disables limiting.
	RatePerSecond float64
	Burst         int
	Retry         resilience.RetryConfig
	Logger        *slog.Logger
}

// DefaultConfig returns the client defaults for url.
func DefaultConfig(url string) Config {
	return Config{
		URL:           url,
		Timeout:       10 * time.Second,
		RatePerSecond: 5,
		Burst:         5,
		Retry:         resilience.DefaultRetryConfig(),
	}
}

// Client calls the sidecar's /predict endpoint. It is safe for concurrent use.
type Client struct {
	url     string
	http    *http.Client
	limiter *rate.Limiter
	retry   resilience.RetryConfig
	breaker *resilience.CircuitBreaker
	logger  *slog.Logger
}

// New creates a Client.
func New(cfg Config) *Client {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	c := &Client{
		url:    strings.TrimRight(cfg.URL, "/") + "/predict",
		http:   &http.Client{Timeout: timeout},
		retry:  cfg.Retry,
		logger: logger,
	}
	if cfg.RatePerSecond > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSecond), max(1, cfg.Burst))
	}

	breaker := resilience.DefaultBreakerConfig("ner")
	breaker.OnStateChange = func(name string, from, to resilience.BreakerState) {
		logger.Warn("ner: circuit state changed", "name", name, "from", from.String(), "to", to.String())
	}
	c.breaker = resilience.NewCircuitBreaker(breaker)

	retryHook := c.retry.OnRetry
	c.retry.OnRetry = func(attempt int, err error) {
		logger.Debug("ner: retrying", "attempt", attempt, "err", err)
		if retryHook != nil {
			retryHook(attempt, err)
		}
	}
	return c
}

type predictRequest struct {
	Text string `json:"text"`
}

type predictResponse struct {
	Entities []detector.Prediction `json:"entities"`
}

// Recognize returns the entity predictions for text. Offsets are character
// offsets into text.
func (c *Client) Recognize(ctx context.Context, text string) ([]detector.Prediction, error) {
	if strings.TrimSpace(text) == "" {
		return []detector.Prediction{}, nil
	}

	body, err := json.Marshal(predictRequest{Text: text})
	if err != nil {
		return nil, fmt.Errorf("ner: marshal: %w", err)
	}

	preds, err := resilience.RetryWithResult(ctx, c.retry, func(ctx context.Context) ([]detector.Prediction, error) {
		var out []detector.Prediction
		err := c.breaker.Execute(ctx, func(ctx context.Context) error {
			var err error
			out, err = c.predict(ctx, body)
			return err
		})
		return out, err
	})
	if err != nil {
		return nil, fmt.Errorf("ner: predict: %w", err)
	}
	return preds, nil
}

func (c *Client) predict(ctx context.Context, body []byte) ([]detector.Prediction, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, resilience.NewPermanentError("ner: request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, resilience.ClassifyStatus(resp.StatusCode, string(msg))
	}

	var result predictResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, resilience.NewPermanentError(fmt.Sprintf("ner: decode: %v", err), err)
	}
	if result.Entities == nil {
		return []detector.Prediction{}, nil
	}
	return result.Entities, nil
}
