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
	"fmt"
	"sync"
	"unsafe"

	"github.com/AleutianAI/curvemetrics/pkg/logging"
)

// -----------------------------------------------------------------------------
// Options
// -----------------------------------------------------------------------------

type aucOptions struct {
	reorder       bool
	logger        *logging.Logger
	computeOnStep bool
	computeOnSet  bool
}

// AUCOption configures an AUC accumulator.
type AUCOption func(*aucOptions)

// WithReorder controls curve reordering at compute time.
//
// Description:
//
//	AUC expects its x input to be sorted. When the caller cannot guarantee
//	that, enabling reorder makes Compute stable-sort the concatenated curve
//	by x before integrating. Without reorder, Compute fails with
//	ErrNotMonotonic on unsorted input.
func WithReorder(reorder bool) AUCOption {
	return func(o *aucOptions) {
		o.reorder = reorder
	}
}

// WithLogger sets the logger used for construction-time warnings.
// Defaults to logging.Default().
func WithLogger(logger *logging.Logger) AUCOption {
	return func(o *aucOptions) {
		o.logger = logger
	}
}

// WithComputeOnStep is accepted for compatibility with older callers.
//
// Deprecated: The option has no effect; Forward always returns the running
// value. Constructing an AUC with this option logs a deprecation warning.
func WithComputeOnStep(computeOnStep bool) AUCOption {
	return func(o *aucOptions) {
		o.computeOnStep = computeOnStep
		o.computeOnSet = true
	}
}

// -----------------------------------------------------------------------------
// AUC Accumulator
// -----------------------------------------------------------------------------

// AUC computes Area Under the Curve using the trapezoidal rule.
//
// Description:
//
//	AUC accumulates paired 1-D sequences across batches: each Update appends
//	one vector to the x buffer and one to the y buffer, so the buffers grow
//	in lockstep. Compute concatenates the buffers in append order and
//	integrates the resulting curve. Batch splitting does not change the
//	result: N updates compute the same value as one update with the
//	concatenated inputs.
//
//	AUC buffers every input until Reset. For large evaluation sets this may
//	lead to a large memory footprint; a warning is logged once at
//	construction.
//
// Thread Safety: Safe for concurrent use.
//
// Example:
//
//	auc := metric.NewAUC(metric.WithReorder(true))
//	for _, b := range batches {
//	    if err := auc.Update(b.Preds, b.Targets); err != nil {
//	        return err
//	    }
//	}
//	score, err := auc.Compute()
type AUC struct {
	mu      sync.Mutex
	reorder bool
	x       *ListState
	y       *ListState
}

// NewAUC creates an AUC accumulator with empty state.
//
// Inputs:
//   - opts: Optional configuration (reorder, logger).
//
// Outputs:
//   - *AUC: The new accumulator. Never nil.
func NewAUC(opts ...AUCOption) *AUC {
	o := &aucOptions{}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = logging.Default()
	}

	o.logger.WarnOnce("auc_memory_footprint",
		"metric AUC buffers all predictions and targets; "+
			"for large datasets this may lead to a large memory footprint")
	if o.computeOnSet {
		o.logger.WarnOnce("auc_compute_on_step",
			"WithComputeOnStep is deprecated and has no effect",
			"compute_on_step", o.computeOnStep)
	}

	return &AUC{
		reorder: o.reorder,
		x:       NewListState("x", ReduceCat),
		y:       NewListState("y", ReduceCat),
	}
}

// Name returns "auc".
func (a *AUC) Name() string {
	return "auc"
}

// Reorder reports whether compute-time reordering is enabled.
func (a *AUC) Reorder() bool {
	return a.reorder
}

// Update appends one batch of curve coordinates.
//
// Description:
//
//	Validates that preds and target are paired 1-D sequences of equal
//	length, then appends a copy of preds to the x buffer and a copy of
//	target to the y buffer. Exactly one vector is appended to each buffer
//	per call, keeping the buffers the same length.
//
// Inputs:
//   - preds: Model predictions (probabilities or scores) for one batch.
//   - target: Ground-truth values for the same batch. Must have the same
//     length as preds.
//
// Outputs:
//   - error: ErrLengthMismatch if the sequences are unpaired.
//
// Thread Safety: Safe for concurrent use.
func (a *AUC) Update(preds, target []float64) error {
	if len(preds) != len(target) {
		return fmt.Errorf("%w: preds has %d elements, target has %d",
			ErrLengthMismatch, len(preds), len(target))
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	a.x.Append(preds)
	a.y.Append(target)
	return nil
}

// Compute reduces the buffered curve to a scalar area.
//
// Description:
//
//	Concatenates all buffered x vectors into one sequence and all y vectors
//	into another, preserving append order. With reorder enabled, the curve
//	is stable-sorted by x first. The trapezoidal rule is then applied.
//	Compute does not consume state: calling it twice without intervening
//	updates yields identical results.
//
// Outputs:
//   - float64: The area. Zero when fewer than two points are buffered.
//   - error: ErrNotMonotonic when reorder is off and x is unsorted.
//
// Thread Safety: Safe for concurrent use.
func (a *AUC) Compute() (float64, error) {
	a.mu.Lock()
	x := a.x.Cat()
	y := a.y.Cat()
	a.mu.Unlock()

	return AreaUnderCurve(x, y, a.reorder)
}

// Forward applies Update then returns the running Compute value.
//
// Inputs:
//   - preds: Model predictions for one batch.
//   - target: Ground-truth values for the same batch.
//
// Outputs:
//   - float64: The area over everything buffered so far, this batch included.
//   - error: Update or Compute failure.
//
// Thread Safety: Safe for concurrent use.
func (a *AUC) Forward(preds, target []float64) (float64, error) {
	if err := a.Update(preds, target); err != nil {
		return 0, err
	}
	return a.Compute()
}

// Reset discards all buffered batches.
//
// Thread Safety: Safe for concurrent use.
func (a *AUC) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.x.Reset()
	a.y.Reset()
}

// Len returns the number of buffered batches.
//
// Thread Safety: Safe for concurrent use.
func (a *AUC) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.x.Len()
}

// Points returns the number of buffered curve points.
//
// Thread Safety: Safe for concurrent use.
func (a *AUC) Points() int {
	a.mu.Lock()
	defer a.mu.Unlock()

	n := 0
	for _, v := range a.x.vectors {
		n += len(v)
	}
	return n
}

// Merge absorbs the buffered state of another AUC shard.
//
// Description:
//
//	Appends the shard's x and y buffers after this accumulator's buffers,
//	in whatever order shards arrive. With reorder enabled the merged value
//	is independent of arrival order; without it, callers must merge shards
//	in curve order.
//
// Inputs:
//   - other: The shard to absorb. Must be an *AUC with the same reorder
//     setting.
//
// Outputs:
//   - error: ErrIncompatibleMerge if other is not an *AUC or its reorder
//     setting differs.
//
// Thread Safety: Safe for concurrent use. The shard must not receive
// updates during the merge.
func (a *AUC) Merge(other Metric) error {
	shard, ok := other.(*AUC)
	if !ok {
		return fmt.Errorf("%w: cannot merge %T into *metric.AUC", ErrIncompatibleMerge, other)
	}
	if shard == a {
		return fmt.Errorf("%w: cannot merge a metric into itself", ErrIncompatibleMerge)
	}
	if shard.reorder != a.reorder {
		return fmt.Errorf("%w: reorder is %v on the target and %v on the shard",
			ErrIncompatibleMerge, a.reorder, shard.reorder)
	}

	// Lock in address order so concurrent cross-merges cannot deadlock.
	first, second := a, shard
	if uintptr(unsafe.Pointer(shard)) < uintptr(unsafe.Pointer(a)) {
		first, second = shard, a
	}
	first.mu.Lock()
	defer first.mu.Unlock()
	second.mu.Lock()
	defer second.mu.Unlock()

	if err := a.x.Merge(shard.x); err != nil {
		return err
	}
	return a.y.Merge(shard.y)
}

// Verify interface compliance at compile time.
var _ Mergeable = (*AUC)(nil)
