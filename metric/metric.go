// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package metric

import (
	"errors"
)

// -----------------------------------------------------------------------------
// Errors
// -----------------------------------------------------------------------------

var (
	// ErrLengthMismatch is returned when paired sequences differ in length.
	ErrLengthMismatch = errors.New("sequences must have the same length")

	// ErrEmptyInput is returned when an operation requires a non-empty sequence.
	ErrEmptyInput = errors.New("input must not be empty")

	// ErrNotMonotonic is returned by Compute when the x sequence is neither
	// non-decreasing nor non-increasing and reordering was not requested.
	ErrNotMonotonic = errors.New("x is neither increasing nor decreasing; use reorder")

	// ErrSingleClass is returned when ROC extraction receives labels from a
	// single class only.
	ErrSingleClass = errors.New("labels contain a single class")

	// ErrNonBinaryLabel is returned when a label is neither 0 nor 1.
	ErrNonBinaryLabel = errors.New("labels must be binary (0 or 1)")

	// ErrNotFound is returned when a metric is not found in the registry.
	ErrNotFound = errors.New("metric not found")

	// ErrAlreadyRegistered is returned when registering a duplicate name.
	ErrAlreadyRegistered = errors.New("metric already registered")

	// ErrNilMetric is returned when attempting to register nil.
	ErrNilMetric = errors.New("metric must not be nil")

	// ErrIncompatibleMerge is returned when merging incompatible metric states.
	ErrIncompatibleMerge = errors.New("incompatible metric states")

	// ErrUnknownReduction is returned for an unrecognized reduction strategy.
	ErrUnknownReduction = errors.New("unknown reduction strategy")

	// ErrShapeMismatch is returned when state buffers cannot be combined
	// element-wise because their shapes differ.
	ErrShapeMismatch = errors.New("state buffers have mismatched shapes")
)

// -----------------------------------------------------------------------------
// Core Interfaces
// -----------------------------------------------------------------------------

// Metric is the interface implemented by all accumulate-then-reduce metrics.
//
// Description:
//
//	A Metric buffers per-batch inputs via a metric-specific Update method and
//	reduces the buffered state to a scalar on Compute. Compute is idempotent:
//	calling it repeatedly without intervening updates yields the same value.
//
// Thread Safety: Implementations must be safe for concurrent use.
type Metric interface {
	// Name returns a stable identifier suitable for metric labels
	// (lowercase, underscore-separated). Example: "auc".
	Name() string

	// Compute reduces all buffered state to a single scalar.
	//
	// Outputs:
	//   - float64: The computed value. Zero for degenerate (empty) state.
	//   - error: Non-nil if the buffered state violates the metric's contract.
	Compute() (float64, error)

	// Reset discards all buffered state, returning the metric to its
	// freshly constructed condition. Called between evaluation epochs.
	Reset()
}

// Mergeable is implemented by metrics whose state can absorb a shard
// accumulated by another worker.
//
// Description:
//
//	Merge is the process-local rendering of cross-process state
//	synchronization: each worker accumulates independently, then shards are
//	merged in arrival order before the final Compute. Metrics with
//	concatenating state are order-insensitive in value only when the
//	downstream reduction is (AUC with reorder, sums, means).
type Mergeable interface {
	Metric

	// Merge absorbs the buffered state of other into this metric.
	//
	// Inputs:
	//   - other: A metric of the same concrete type. Must not be nil.
	//
	// Outputs:
	//   - error: ErrIncompatibleMerge if other is a different metric type.
	Merge(other Metric) error
}
