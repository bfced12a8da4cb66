// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package resilience classifies remote-call failures and retries the
// transient ones.
package resilience

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"syscall"
)

// ErrorType represents different types of errors for handling strategies
type ErrorType int

const (
	ErrorTypeUnknown            ErrorType = iota
	ErrorTypeTransient                    // connection resets, refused dials
	ErrorTypePermanent                    // rejected by the peer, do not retry
	ErrorTypeTimeout                      // request deadline hit
	ErrorTypeRateLimit                    // HTTP 429
	ErrorTypeServiceUnavailable           // HTTP 5xx
	ErrorTypeInvalidInput                 // HTTP 4xx other than 429
	ErrorTypeCanceled                     // caller gave up
)

var errorTypeNames = map[ErrorType]string{
	ErrorTypeUnknown:            "Unknown",
	ErrorTypeTransient:          "Transient",
	ErrorTypePermanent:          "Permanent",
	ErrorTypeTimeout:            "Timeout",
	ErrorTypeRateLimit:          "RateLimit",
	ErrorTypeServiceUnavailable: "ServiceUnavailable",
	ErrorTypeInvalidInput:       "InvalidInput",
	ErrorTypeCanceled:           "Canceled",
}

func (et ErrorType) String() string {
	if name, ok := errorTypeNames[et]; ok {
		return name
	}
	return fmt.Sprintf("ErrorType(%d)", int(et))
}

// ClassifiedError wraps an error with type information
type ClassifiedError struct {
	Original  error
	Type      ErrorType
	Message   string
	Retryable bool
	// StatusCode is set when the error came from an HTTP response.
	StatusCode int
}

func (e *ClassifiedError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Original != nil {
		return e.Original.Error()
	}
	return e.Type.String()
}

func (e *ClassifiedError) Unwrap() error {
	return e.Original
}

// IsRetryable returns whether this error should be retried
func (e *ClassifiedError) IsRetryable() bool {
	return e.Retryable
}

// ClassifyError categorizes an error for appropriate handling
func ClassifyError(err error) *ClassifiedError {
	if err == nil {
		return nil
	}

	var classified *ClassifiedError
	if errors.As(err, &classified) {
		return classified
	}

	switch {
	case errors.Is(err, context.Canceled):
		return &ClassifiedError{Original: err, Type: ErrorTypeCanceled, Message: err.Error()}
	case isTimeoutError(err):
		return &ClassifiedError{
			Original:  err,
			Type:      ErrorTypeTimeout,
			Message:   fmt.Sprintf("timeout: %v", err),
			Retryable: true,
		}
	case isNetworkError(err):
		return &ClassifiedError{
			Original:  err,
			Type:      ErrorTypeTransient,
			Message:   fmt.Sprintf("network error: %v", err),
			Retryable: true,
		}
	}

	return &ClassifiedError{
		Original: err,
		Type:     ErrorTypeUnknown,
		Message:  err.Error(),
	}
}

// ClassifyStatus turns a non-2xx HTTP status into a classified error.
// 429 and 5xx are retryable; other statuses are not.
func ClassifyStatus(code int, body string) *ClassifiedError {
	msg := fmt.Sprintf("unexpected status %d", code)
	if body = strings.TrimSpace(body); body != "" {
		msg = fmt.Sprintf("%s: %s", msg, body)
	}
	e := &ClassifiedError{Message: msg, StatusCode: code}
	switch {
	case code == http.StatusTooManyRequests:
		e.Type, e.Retryable = ErrorTypeRateLimit, true
	case code >= 500:
		e.Type, e.Retryable = ErrorTypeServiceUnavailable, true
	case code >= 400:
		e.Type = ErrorTypeInvalidInput
	default:
		e.Type = ErrorTypeUnknown
	}
	return e
}

func isNetworkError(err error) bool {
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}
	return errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.EHOSTUNREACH) ||
		errors.Is(err, syscall.ENETUNREACH)
}

func isTimeoutError(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "timeout")
}

// NewTransientError creates a new transient error
func NewTransientError(message string, cause error) *ClassifiedError {
	return &ClassifiedError{
		Original:  cause,
		Type:      ErrorTypeTransient,
		Message:   message,
		Retryable: true,
	}
}

// NewPermanentError creates a new permanent error
func NewPermanentError(message string, cause error) *ClassifiedError {
	return &ClassifiedError{
		Original:  cause,
		Type:      ErrorTypePermanent,
		Message:   message,
		Retryable: false,
	}
}
