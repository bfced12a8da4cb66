// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package resilience

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// BreakerState is the state of a CircuitBreaker.
type BreakerState int

const (
	StateClosed   BreakerState = iota // calls pass through
	StateOpen                         // calls fail fast
	StateHalfOpen                     // one probe call allowed
)

func (s BreakerState) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// BreakerConfig configures a CircuitBreaker.
type BreakerConfig struct {
	Name             string
	FailureThreshold int           // consecutive failures before opening
	Cooldown         time.Duration // time spent open before a probe
	OnStateChange    func(name string, from, to BreakerState)
}

// DefaultBreakerConfig returns the policy used for the recognizer sidecar.
func DefaultBreakerConfig(name string) BreakerConfig {
	return BreakerConfig{
		Name:             name,
		FailureThreshold: 5,
		Cooldown:         30 * time.Second,
	}
}

// ErrOpen is returned while the breaker rejects calls.
type ErrOpen struct {
	Name  string
	Until time.Time
}

func (e *ErrOpen) Error() string {
	return fmt.Sprintf("circuit %q is open until %s", e.Name, e.Until.Format(time.RFC3339))
}

// CircuitBreaker stops calling a peer after repeated retryable failures so
// a dead sidecar costs one fast error per scan instead of a full retry cycle.
type CircuitBreaker struct {
	config BreakerConfig
	now    func() time.Time

	mu       sync.Mutex
	state    BreakerState
	failures int
	openedAt time.Time
}

// NewCircuitBreaker creates a closed breaker.
func NewCircuitBreaker(config BreakerConfig) *CircuitBreaker {
	if config.FailureThreshold <= 0 {
		config.FailureThreshold = 1
	}
	return &CircuitBreaker{config: config, now: time.Now}
}

// Execute runs fn unless the breaker is open. Only retryable errors count
// as failures; a rejected request says nothing about the peer's health.
func (cb *CircuitBreaker) Execute(ctx context.Context, fn RetryableOperation) error {
	if err := cb.before(); err != nil {
		return err
	}
	err := fn(ctx)
	cb.after(err)
	return err
}

// State returns the current state.
func (cb *CircuitBreaker) State() BreakerState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

func (cb *CircuitBreaker) before() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateOpen:
		until := cb.openedAt.Add(cb.config.Cooldown)
		if cb.now().Before(until) {
			return &ErrOpen{Name: cb.config.Name, Until: until}
		}
		cb.setState(StateHalfOpen)
	case StateHalfOpen:
		return &ErrOpen{Name: cb.config.Name, Until: cb.now()}
	}
	return nil
}

func (cb *CircuitBreaker) after(err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if err == nil || !IsRetryable(err) {
		cb.failures = 0
		cb.setState(StateClosed)
		return
	}

	cb.failures++
	if cb.state == StateHalfOpen || cb.failures >= cb.config.FailureThreshold {
		cb.openedAt = cb.now()
		cb.setState(StateOpen)
	}
}

func (cb *CircuitBreaker) setState(to BreakerState) {
	if cb.state == to {
		return
	}
	from := cb.state
	cb.state = to
	if cb.config.OnStateChange != nil {
		cb.config.OnStateChange(cb.config.Name, from, to)
	}
}
