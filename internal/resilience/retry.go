// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package resilience

import (
	"context"
	"math/rand"
	"time"
)

// RetryConfig holds retry configuration.
type RetryConfig struct {
	MaxRetries      int                          // retries after the first attempt
	InitialInterval time.Duration                // delay before the first retry
	MaxInterval     time.Duration                // cap on any single delay
	Multiplier      float64                      // growth factor per retry
	Jitter          bool                         // add up to 25% random delay
	OnRetry         func(attempt int, err error) // called before each retry
}

// DefaultRetryConfig returns the policy used for the recognizer sidecar.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:      2,
		InitialInterval: 250 * time.Millisecond,
		MaxInterval:     4 * time.Second,
		Multiplier:      2.0,
		Jitter:          true,
	}
}

// RetryableOperation represents an operation that can be retried.
type RetryableOperation func(ctx context.Context) error

// RetryWithBackoff runs operation until it succeeds, fails with a
// non-retryable error, or MaxRetries is exhausted. The delay before retry n
// is InitialInterval * Multiplier^(n-1), capped at MaxInterval.
func RetryWithBackoff(ctx context.Context, config RetryConfig, operation RetryableOperation) error {
	var lastErr error

	for attempt := 0; attempt <= config.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(config.delay(attempt)):
			}

			if config.OnRetry != nil {
				config.OnRetry(attempt, lastErr)
			}
		}

		err := operation(ctx)
		if err == nil {
			return nil
		}
		lastErr = err

		if !ClassifyError(err).IsRetryable() {
			return err
		}
	}

	return lastErr
}

func (c RetryConfig) delay(attempt int) time.Duration {
	d := float64(c.InitialInterval)
	for i := 1; i < attempt; i++ {
		d *= c.Multiplier
	}
	if c.Jitter {
		d += d * 0.25 * rand.Float64()
	}
	if c.MaxInterval > 0 {
		return min(time.Duration(d), c.MaxInterval)
	}
	return time.Duration(d)
}

// RetryableFunc is a retryable function that returns a value.
type RetryableFunc[T any] func(ctx context.Context) (T, error)

// RetryWithResult executes fn with retry logic and returns its last result.
func RetryWithResult[T any](ctx context.Context, config RetryConfig, fn RetryableFunc[T]) (T, error) {
	var result T
	err := RetryWithBackoff(ctx, config, func(ctx context.Context) error {
		var e error
		result, e = fn(ctx)
		return e
	})
	return result, err
}

// IsRetryable reports whether an error should be retried.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	return ClassifyError(err).IsRetryable()
}
