// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package telemetry

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/AleutianAI/curvemetrics/metric"
)

// ErrNilAccumulator is returned when wrapping a nil accumulator.
var ErrNilAccumulator = errors.New("accumulator must not be nil")

// InstrumentedAUC wraps an AUC accumulator with telemetry.
//
// Description:
//
//	InstrumentedAUC forwards updates and computes to the underlying
//	accumulator and records each operation to a Sink. Every wrapper gets
//	a unique run ID so that telemetry from concurrent evaluation runs can
//	be told apart. Sink failures are reported through the returned error
//	but never prevent the underlying operation from completing.
//
// Thread Safety: Safe for concurrent use.
//
// Example:
//
//	sink, _ := telemetry.NewPrometheusSink(telemetry.DefaultPrometheusConfig())
//	acc, err := telemetry.NewInstrumentedAUC(metric.NewAUC(), sink)
//	if err != nil {
//	    return err
//	}
//
//	if err := acc.Update(ctx, x, y); err != nil {
//	    return fmt.Errorf("update: %w", err)
//	}
//	value, err := acc.Compute(ctx)
type InstrumentedAUC struct {
	auc    *metric.AUC
	sink   Sink
	runID  string
	labels map[string]string
}

// InstrumentedOption configures an InstrumentedAUC.
type InstrumentedOption func(*InstrumentedAUC)

// WithRunID overrides the generated run ID.
//
// Inputs:
//   - runID: Run identifier to use. Empty string keeps the generated one.
func WithRunID(runID string) InstrumentedOption {
	return func(i *InstrumentedAUC) {
		if runID != "" {
			i.runID = runID
		}
	}
}

// WithLabels attaches labels to every telemetry recording.
//
// Inputs:
//   - labels: Key-value pairs to attach. Copied on creation.
func WithLabels(labels map[string]string) InstrumentedOption {
	return func(i *InstrumentedAUC) {
		if len(labels) == 0 {
			return
		}
		i.labels = make(map[string]string, len(labels))
		for k, v := range labels {
			i.labels[k] = v
		}
	}
}

// NewInstrumentedAUC wraps an accumulator with telemetry.
//
// Inputs:
//   - auc: Accumulator to wrap. Must not be nil.
//   - sink: Telemetry sink. If nil, a NoOpSink is used.
//   - opts: Optional configuration.
//
// Outputs:
//   - *InstrumentedAUC: The wrapped accumulator. Never nil on success.
//   - error: ErrNilAccumulator if auc is nil.
//
// Thread Safety: The returned wrapper is safe for concurrent use.
func NewInstrumentedAUC(auc *metric.AUC, sink Sink, opts ...InstrumentedOption) (*InstrumentedAUC, error) {
	if auc == nil {
		return nil, ErrNilAccumulator
	}
	if sink == nil {
		sink = NewNoOpSink()
	}

	i := &InstrumentedAUC{
		auc:   auc,
		sink:  sink,
		runID: uuid.NewString(),
	}
	for _, opt := range opts {
		opt(i)
	}
	return i, nil
}

// RunID returns the run identifier attached to all recordings.
func (i *InstrumentedAUC) RunID() string {
	return i.runID
}

// Update buffers a batch and records update telemetry.
//
// Description:
//
//	Forwards to the underlying accumulator's Update. On success the
//	update is recorded to the sink; on failure an error event is
//	recorded and the accumulator error is returned.
//
// Inputs:
//   - ctx: Context for telemetry. Must not be nil.
//   - x: Batch of x coordinates.
//   - y: Batch of y coordinates. Must match len(x).
//
// Outputs:
//   - error: The accumulator error, or a sink error if recording failed.
//
// Thread Safety: Safe for concurrent use.
func (i *InstrumentedAUC) Update(ctx context.Context, x, y []float64) error {
	if ctx == nil {
		return ErrNilContext
	}

	if err := i.auc.Update(x, y); err != nil {
		i.recordError(ctx, "update", err)
		return err
	}

	return i.sink.RecordUpdate(ctx, &UpdateData{
		RunID:           i.runID,
		Metric:          i.auc.Name(),
		Timestamp:       time.Now(),
		BatchSize:       len(x),
		BufferedBatches: i.auc.Len(),
		BufferedPoints:  i.auc.Points(),
		Labels:          i.labels,
	})
}

// Compute reduces the buffered state and records compute telemetry.
//
// Inputs:
//   - ctx: Context for telemetry. Must not be nil.
//
// Outputs:
//   - float64: The computed area.
//   - error: The accumulator error, or a sink error if recording failed.
//
// Thread Safety: Safe for concurrent use.
func (i *InstrumentedAUC) Compute(ctx context.Context) (float64, error) {
	if ctx == nil {
		return 0, ErrNilContext
	}

	points := i.auc.Points()
	start := time.Now()
	value, err := i.auc.Compute()
	elapsed := time.Since(start)

	if err != nil {
		i.recordError(ctx, "compute", err)
		return 0, err
	}

	return value, i.sink.RecordCompute(ctx, &ComputeData{
		RunID:     i.runID,
		Metric:    i.auc.Name(),
		Timestamp: time.Now(),
		Value:     value,
		Points:    points,
		Duration:  elapsed,
		Labels:    i.labels,
	})
}

// Forward buffers a batch and immediately computes over all state.
//
// Inputs:
//   - ctx: Context for telemetry. Must not be nil.
//   - x: Batch of x coordinates.
//   - y: Batch of y coordinates. Must match len(x).
//
// Outputs:
//   - float64: The area over all buffered state including this batch.
//   - error: Non-nil if the update or reduction fails.
//
// Thread Safety: Safe for concurrent use.
func (i *InstrumentedAUC) Forward(ctx context.Context, x, y []float64) (float64, error) {
	if err := i.Update(ctx, x, y); err != nil {
		return 0, err
	}
	return i.Compute(ctx)
}

// Reset clears the underlying accumulator state.
//
// Thread Safety: Safe for concurrent use.
func (i *InstrumentedAUC) Reset() {
	i.auc.Reset()
}

// Unwrap returns the underlying accumulator.
func (i *InstrumentedAUC) Unwrap() *metric.AUC {
	return i.auc
}

// recordError classifies an accumulator error and records it.
// Sink failures here are deliberately dropped: the accumulator error
// is the one the caller needs.
func (i *InstrumentedAUC) recordError(ctx context.Context, operation string, err error) {
	_ = i.sink.RecordError(ctx, &ErrorData{
		RunID:     i.runID,
		Metric:    i.auc.Name(),
		Operation: operation,
		ErrorType: classifyError(err),
		Message:   err.Error(),
		Timestamp: time.Now(),
		Labels:    i.labels,
	})
}

// classifyError maps accumulator sentinel errors to stable label values.
func classifyError(err error) string {
	switch {
	case errors.Is(err, metric.ErrLengthMismatch):
		return "length_mismatch"
	case errors.Is(err, metric.ErrNotMonotonic):
		return "not_monotonic"
	case errors.Is(err, metric.ErrEmptyInput):
		return "empty_input"
	case errors.Is(err, metric.ErrIncompatibleMerge):
		return "incompatible_merge"
	default:
		return "unknown"
	}
}
