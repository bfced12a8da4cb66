// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package observability

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// StandardObserver times pipeline stages and, in debug mode, emits one
// JSON record per stage tagged with the scan's request id.
type StandardObserver struct {
	level     ObservabilityLevel
	logger    *slog.Logger
	requestID string
}

type ObservabilityLevel int

const (
	ObservabilityOff     ObservabilityLevel = 0
	ObservabilityMetrics ObservabilityLevel = 1
	ObservabilityDebug   ObservabilityLevel = 2
)

// NewStandardObserver creates an observer writing JSON records to writer.
func NewStandardObserver(level ObservabilityLevel, writer io.Writer) *StandardObserver {
	if writer == nil {
		writer = io.Discard
	}
	return &StandardObserver{
		level:     level,
		logger:    slog.New(slog.NewJSONHandler(writer, &slog.HandlerOptions{Level: slog.LevelDebug})),
		requestID: uuid.NewString(),
	}
}

// ForRequest returns a copy of the observer with a fresh request id.
func (o *StandardObserver) ForRequest() *StandardObserver {
	cp := *o
	cp.requestID = uuid.NewString()
	return &cp
}

// RequestID identifies the scan this observer reports on.
func (o *StandardObserver) RequestID() string {
	return o.requestID
}

// StartTiming returns a function that completes the timing, logs it, and
// returns the measured duration.
func (o *StandardObserver) StartTiming(component, operation, filePath string) func(success bool, metadata map[string]interface{}) time.Duration {
	start := time.Now()

	return func(success bool, metadata map[string]interface{}) time.Duration {
		duration := time.Since(start)

		o.LogOperation(StandardObservabilityData{
			Component:  component,
			Operation:  operation,
			FilePath:   filePath,
			DurationMs: duration.Milliseconds(),
			Success:    success,
			Metadata:   metadata,
		})
		return duration
	}
}

// LogOperation logs operation data. Records are written only in debug mode.
func (o *StandardObserver) LogOperation(data StandardObservabilityData) {
	if o.level != ObservabilityDebug {
		return
	}
	data.RequestID = o.requestID

	attrs := []slog.Attr{
		slog.String("component", data.Component),
		slog.String("operation", data.Operation),
		slog.String("request_id", data.RequestID),
		slog.Bool("success", data.Success),
		slog.Int64("duration_ms", data.DurationMs),
	}
	if data.FilePath != "" {
		attrs = append(attrs, slog.String("file_path", data.FilePath))
	}
	if data.Error != "" {
		attrs = append(attrs, slog.String("error", data.Error))
	}
	if len(data.Metadata) > 0 {
		attrs = append(attrs, slog.Any("metadata", data.Metadata))
	}
	level := slog.LevelDebug
	if !data.Success {
		level = slog.LevelWarn
	}
	o.logger.LogAttrs(context.Background(), level, "operation", attrs...)
}

// StandardObservabilityData for all components
type StandardObservabilityData struct {
	Component  string                 `json:"component"`
	Operation  string                 `json:"operation"`
	RequestID  string                 `json:"request_id"`
	FilePath   string                 `json:"file_path,omitempty"`
	DurationMs int64                  `json:"duration_ms,omitempty"`
	Success    bool                   `json:"success"`
	Error      string                 `json:"error,omitempty"`
	Metadata   map[string]interface{} `json:"metadata,omitempty"`
}
