// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package telemetry exports metric-accumulator activity to observability
// backends.
//
// The Sink interface receives update, compute, and error events from
// instrumented accumulators; the OTelSink and PrometheusSink implementations
// handle the export format. CompositeSink fans events out to several
// backends at once.
package telemetry

import (
	"context"
	"errors"
	"sync"
	"time"
)

// -----------------------------------------------------------------------------
// Errors
// -----------------------------------------------------------------------------

var (
	// ErrNilContext is returned when a nil context is provided.
	ErrNilContext = errors.New("context must not be nil")

	// ErrNilData is returned when nil data is provided to a recording method.
	ErrNilData = errors.New("data must not be nil")

	// ErrSinkClosed is returned when attempting to use a closed sink.
	ErrSinkClosed = errors.New("sink has been closed")

	// ErrNoSinks is returned when creating a composite sink with no children.
	ErrNoSinks = errors.New("at least one sink is required")
)

// -----------------------------------------------------------------------------
// Interface
// -----------------------------------------------------------------------------

// Sink defines the interface for accumulator telemetry collection.
//
// Description:
//
//	Sink is the primary abstraction for recording metric-accumulator
//	activity. Implementations handle the specific export format
//	(Prometheus, OTel, etc.).
//
// Thread Safety: All implementations must be safe for concurrent use.
//
// Example:
//
//	sink, err := telemetry.NewPrometheusSink(config)
//	...
//	defer sink.Close()
//
//	if err := sink.RecordUpdate(ctx, data); err != nil {
//	    log.Printf("telemetry error: %v", err)
//	}
type Sink interface {
	// RecordUpdate records one accumulator update (one buffered batch).
	//
	// Inputs:
	//   - ctx: Context for cancellation. Must not be nil.
	//   - data: Update data to record. Must not be nil.
	//
	// Outputs:
	//   - error: Non-nil if recording fails or sink is closed.
	//
	// Thread Safety: Safe for concurrent use.
	RecordUpdate(ctx context.Context, data *UpdateData) error

	// RecordCompute records one reduction of buffered state to a scalar.
	//
	// Inputs:
	//   - ctx: Context for cancellation. Must not be nil.
	//   - data: Compute data to record. Must not be nil.
	//
	// Outputs:
	//   - error: Non-nil if recording fails or sink is closed.
	//
	// Thread Safety: Safe for concurrent use.
	RecordCompute(ctx context.Context, data *ComputeData) error

	// RecordError records an error event.
	//
	// Inputs:
	//   - ctx: Context for cancellation. Must not be nil.
	//   - data: Error data to record. Must not be nil.
	//
	// Outputs:
	//   - error: Non-nil if recording fails or sink is closed.
	//
	// Thread Safety: Safe for concurrent use.
	RecordError(ctx context.Context, data *ErrorData) error

	// Flush ensures all buffered data is exported.
	//
	// Thread Safety: Safe for concurrent use.
	Flush(ctx context.Context) error

	// Close releases resources and flushes pending data.
	// After Close(), all recording methods return ErrSinkClosed.
	//
	// Thread Safety: Safe for concurrent use. Idempotent.
	Close() error
}

// -----------------------------------------------------------------------------
// Data Types
// -----------------------------------------------------------------------------

// UpdateData contains data for an accumulator update recording.
//
// Thread Safety: Immutable after creation; safe for concurrent read access.
type UpdateData struct {
	// RunID identifies the evaluation run.
	RunID string

	// Metric is the metric name (e.g., "auc").
	Metric string

	// Timestamp is when the update was recorded.
	Timestamp time.Time

	// BatchSize is the number of curve points in this batch.
	BatchSize int

	// BufferedBatches is the total batches held after this update.
	BufferedBatches int

	// BufferedPoints is the total curve points held after this update.
	BufferedPoints int

	// Labels are additional key-value pairs for filtering.
	Labels map[string]string
}

// ComputeData contains data for a compute recording.
//
// Thread Safety: Immutable after creation; safe for concurrent read access.
type ComputeData struct {
	// RunID identifies the evaluation run.
	RunID string

	// Metric is the metric name (e.g., "auc").
	Metric string

	// Timestamp is when the compute finished.
	Timestamp time.Time

	// Value is the computed scalar.
	Value float64

	// Points is the number of curve points reduced.
	Points int

	// Duration is the wall time the reduction took.
	Duration time.Duration

	// Labels are additional key-value pairs for filtering.
	Labels map[string]string
}

// ErrorData contains data for an error recording.
//
// Thread Safety: Immutable after creation; safe for concurrent read access.
type ErrorData struct {
	// RunID identifies the evaluation run.
	RunID string

	// Metric is the metric that produced the error.
	Metric string

	// Operation is the operation that failed ("update", "compute", "merge").
	Operation string

	// ErrorType categorizes the error (e.g., "length_mismatch", "not_monotonic").
	ErrorType string

	// Message is the error message (should not contain PII).
	Message string

	// Timestamp is when the error occurred.
	Timestamp time.Time

	// Labels are additional key-value pairs for filtering.
	Labels map[string]string
}

// -----------------------------------------------------------------------------
// Composite Sink
// -----------------------------------------------------------------------------

// CompositeSink multiplexes telemetry to multiple sinks.
//
// Description:
//
//	CompositeSink allows sending telemetry to multiple backends
//	simultaneously (e.g., Prometheus and OpenTelemetry). Errors from
//	individual sinks are collected and returned as a combined error; one
//	sink's failure does not prevent others from receiving the data.
//
// Thread Safety: Safe for concurrent use.
type CompositeSink struct {
	sinks  []Sink
	mu     sync.RWMutex
	closed bool
}

// NewCompositeSink creates a new composite sink.
//
// Inputs:
//   - sinks: Child sinks to forward to. At least one non-nil sink required.
//
// Outputs:
//   - *CompositeSink: The created composite sink. Never nil on success.
//   - error: ErrNoSinks if no usable sinks are provided.
//
// Thread Safety: The returned sink is safe for concurrent use.
func NewCompositeSink(sinks ...Sink) (*CompositeSink, error) {
	valid := make([]Sink, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			valid = append(valid, s)
		}
	}
	if len(valid) == 0 {
		return nil, ErrNoSinks
	}
	return &CompositeSink{sinks: valid}, nil
}

// RecordUpdate records an update to all child sinks.
//
// Thread Safety: Safe for concurrent use.
func (c *CompositeSink) RecordUpdate(ctx context.Context, data *UpdateData) error {
	sinks, err := c.children(ctx, data == nil)
	if err != nil {
		return err
	}

	var errs []error
	for _, sink := range sinks {
		if err := sink.RecordUpdate(ctx, data); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// RecordCompute records a compute to all child sinks.
//
// Thread Safety: Safe for concurrent use.
func (c *CompositeSink) RecordCompute(ctx context.Context, data *ComputeData) error {
	sinks, err := c.children(ctx, data == nil)
	if err != nil {
		return err
	}

	var errs []error
	for _, sink := range sinks {
		if err := sink.RecordCompute(ctx, data); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// RecordError records an error to all child sinks.
//
// Thread Safety: Safe for concurrent use.
func (c *CompositeSink) RecordError(ctx context.Context, data *ErrorData) error {
	sinks, err := c.children(ctx, data == nil)
	if err != nil {
		return err
	}

	var errs []error
	for _, sink := range sinks {
		if err := sink.RecordError(ctx, data); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// children validates common preconditions and snapshots the sink list.
func (c *CompositeSink) children(ctx context.Context, nilData bool) ([]Sink, error) {
	if ctx == nil {
		return nil, ErrNilContext
	}
	if nilData {
		return nil, ErrNilData
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return nil, ErrSinkClosed
	}
	return c.sinks, nil
}

// Flush flushes all child sinks concurrently.
//
// Thread Safety: Safe for concurrent use.
func (c *CompositeSink) Flush(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}

	c.mu.RLock()
	if c.closed {
		c.mu.RUnlock()
		return ErrSinkClosed
	}
	sinks := c.sinks
	c.mu.RUnlock()

	var wg sync.WaitGroup
	errChan := make(chan error, len(sinks))

	for _, sink := range sinks {
		wg.Add(1)
		go func(s Sink) {
			defer wg.Done()
			if err := s.Flush(ctx); err != nil {
				errChan <- err
			}
		}(sink)
	}

	wg.Wait()
	close(errChan)

	var errs []error
	for err := range errChan {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Close closes all child sinks.
//
// Thread Safety: Safe for concurrent use. Idempotent.
func (c *CompositeSink) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	sinks := c.sinks
	c.mu.Unlock()

	var errs []error
	for _, sink := range sinks {
		if err := sink.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// -----------------------------------------------------------------------------
// No-Op Sink
// -----------------------------------------------------------------------------

// NoOpSink is a sink that discards all data.
//
// Description:
//
//	NoOpSink is useful for testing and as a default when no telemetry is
//	configured.
//
// Thread Safety: Safe for concurrent use.
type NoOpSink struct{}

// NewNoOpSink creates a new no-op sink.
func NewNoOpSink() *NoOpSink {
	return &NoOpSink{}
}

// RecordUpdate discards the update data.
func (n *NoOpSink) RecordUpdate(ctx context.Context, data *UpdateData) error {
	if ctx == nil {
		return ErrNilContext
	}
	if data == nil {
		return ErrNilData
	}
	return nil
}

// RecordCompute discards the compute data.
func (n *NoOpSink) RecordCompute(ctx context.Context, data *ComputeData) error {
	if ctx == nil {
		return ErrNilContext
	}
	if data == nil {
		return ErrNilData
	}
	return nil
}

// RecordError discards the error data.
func (n *NoOpSink) RecordError(ctx context.Context, data *ErrorData) error {
	if ctx == nil {
		return ErrNilContext
	}
	if data == nil {
		return ErrNilData
	}
	return nil
}

// Flush does nothing.
func (n *NoOpSink) Flush(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

// Close does nothing.
func (n *NoOpSink) Close() error {
	return nil
}

// Verify interface compliance at compile time.
var (
	_ Sink = (*CompositeSink)(nil)
	_ Sink = (*NoOpSink)(nil)
)
