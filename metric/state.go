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
)

// -----------------------------------------------------------------------------
// Reduction Strategies
// -----------------------------------------------------------------------------

// Reduction identifies how a state buffer combines with a shard of the same
// buffer accumulated by another worker.
type Reduction int

const (
	// ReduceCat appends the shard's vectors, preserving arrival order.
	ReduceCat Reduction = iota
	// ReduceSum combines element-wise by addition.
	ReduceSum
	// ReduceMean combines element-wise by arithmetic mean.
	ReduceMean
	// ReduceMax combines element-wise by maximum.
	ReduceMax
	// ReduceMin combines element-wise by minimum.
	ReduceMin
)

// String returns the string representation of a Reduction.
func (r Reduction) String() string {
	switch r {
	case ReduceCat:
		return "cat"
	case ReduceSum:
		return "sum"
	case ReduceMean:
		return "mean"
	case ReduceMax:
		return "max"
	case ReduceMin:
		return "min"
	default:
		return fmt.Sprintf("reduction(%d)", r)
	}
}

// -----------------------------------------------------------------------------
// List State
// -----------------------------------------------------------------------------

// ListState is a named, append-only buffer of numeric vectors with a declared
// shard-merge reduction.
//
// Description:
//
//	ListState is the building block for accumulating metrics: each Update
//	call appends exactly one vector, and Compute reads the concatenation of
//	all appended vectors in order. The reduction strategy only matters when
//	merging shards from parallel workers.
//
// Thread Safety: NOT safe for concurrent use on its own. Owning metrics
// guard access with their own lock.
type ListState struct {
	name      string
	reduction Reduction
	vectors   [][]float64
}

// NewListState creates an empty state buffer.
//
// Inputs:
//   - name: Identifier used in error messages. Should be short ("x", "y").
//   - reduction: Strategy for merging shards of this buffer.
//
// Outputs:
//   - *ListState: The new buffer. Never nil.
func NewListState(name string, reduction Reduction) *ListState {
	return &ListState{
		name:      name,
		reduction: reduction,
	}
}

// Name returns the buffer's identifier.
func (s *ListState) Name() string {
	return s.name
}

// Reduction returns the buffer's shard-merge strategy.
func (s *ListState) Reduction() Reduction {
	return s.reduction
}

// Append adds one vector to the buffer. The vector is copied, so the caller
// may reuse the backing slice.
func (s *ListState) Append(v []float64) {
	cp := make([]float64, len(v))
	copy(cp, v)
	s.vectors = append(s.vectors, cp)
}

// Len returns the number of buffered vectors.
func (s *ListState) Len() int {
	return len(s.vectors)
}

// Cat returns the concatenation of all buffered vectors in append order.
//
// Description:
//
//	Cat is the read-time view of the accumulated state: N appended vectors
//	become one sequence, exactly as if all batches had arrived as one.
//	The returned slice is freshly allocated.
//
// Outputs:
//   - []float64: Concatenated values. Empty (non-nil) for an empty buffer.
func (s *ListState) Cat() []float64 {
	total := 0
	for _, v := range s.vectors {
		total += len(v)
	}
	out := make([]float64, 0, total)
	for _, v := range s.vectors {
		out = append(out, v...)
	}
	return out
}

// Reset discards all buffered vectors.
func (s *ListState) Reset() {
	s.vectors = nil
}

// Merge absorbs a shard of the same buffer according to the reduction.
//
// Description:
//
//	ReduceCat appends the shard's vectors after this buffer's vectors.
//	Element-wise reductions (sum, mean, max, min) require both buffers to
//	hold the same number of vectors with matching lengths.
//
// Inputs:
//   - other: Shard to absorb. Must not be nil and must use the same reduction.
//
// Outputs:
//   - error: ErrShapeMismatch for incompatible element-wise merges,
//     ErrUnknownReduction for an unrecognized strategy.
func (s *ListState) Merge(other *ListState) error {
	if other == nil {
		return fmt.Errorf("%w: nil shard for state %q", ErrIncompatibleMerge, s.name)
	}
	if other.reduction != s.reduction {
		return fmt.Errorf("%w: state %q has reduction %s, shard has %s",
			ErrIncompatibleMerge, s.name, s.reduction, other.reduction)
	}

	switch s.reduction {
	case ReduceCat:
		for _, v := range other.vectors {
			s.Append(v)
		}
		return nil
	case ReduceSum, ReduceMean, ReduceMax, ReduceMin:
		return s.mergeElementwise(other)
	default:
		return fmt.Errorf("%w: %s", ErrUnknownReduction, s.reduction)
	}
}

// mergeElementwise combines paired vectors element-by-element.
func (s *ListState) mergeElementwise(other *ListState) error {
	if len(s.vectors) != len(other.vectors) {
		return fmt.Errorf("%w: state %q has %d vectors, shard has %d",
			ErrShapeMismatch, s.name, len(s.vectors), len(other.vectors))
	}
	for i, v := range s.vectors {
		o := other.vectors[i]
		if len(v) != len(o) {
			return fmt.Errorf("%w: state %q vector %d has length %d, shard has %d",
				ErrShapeMismatch, s.name, i, len(v), len(o))
		}
		for j := range v {
			switch s.reduction {
			case ReduceSum:
				v[j] += o[j]
			case ReduceMean:
				v[j] = (v[j] + o[j]) / 2
			case ReduceMax:
				if o[j] > v[j] {
					v[j] = o[j]
				}
			case ReduceMin:
				if o[j] < v[j] {
					v[j] = o[j]
				}
			}
		}
	}
	return nil
}
