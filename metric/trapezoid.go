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
	"sort"
)

// -----------------------------------------------------------------------------
// Trapezoidal Rule
// -----------------------------------------------------------------------------

// Trapezoid integrates the piecewise-linear curve through (x, y) points.
//
// Description:
//
//	Applies the trapezoidal rule over the curve in the given point order.
//	The x sequence must be monotonic: non-decreasing yields the area
//	directly, non-increasing yields the area with a direction factor of -1
//	applied, so a curve traversed right-to-left still produces a positive
//	area for a non-negative y.
//
// Inputs:
//   - x: Curve x coordinates. Must be monotonic.
//   - y: Curve y coordinates. Must have the same length as x.
//
// Outputs:
//   - float64: The signed area. Zero for fewer than two points.
//   - error: ErrLengthMismatch for unpaired inputs, ErrNotMonotonic when x
//     mixes ascending and descending steps.
//
// Thread Safety: Stateless function; safe for concurrent use.
func Trapezoid(x, y []float64) (float64, error) {
	if len(x) != len(y) {
		return 0, ErrLengthMismatch
	}
	// A single point or an empty curve has zero width.
	if len(x) < 2 {
		return 0, nil
	}

	direction := 1.0
	ascending, descending := false, false
	for i := 1; i < len(x); i++ {
		switch dx := x[i] - x[i-1]; {
		case dx > 0:
			ascending = true
		case dx < 0:
			descending = true
		}
	}
	if descending {
		if ascending {
			return 0, ErrNotMonotonic
		}
		direction = -1.0
	}

	var area float64
	for i := 1; i < len(x); i++ {
		area += (x[i] - x[i-1]) * (y[i] + y[i-1]) / 2
	}
	return direction * area, nil
}

// SortByX returns copies of x and y reordered by ascending x.
//
// Description:
//
//	Performs a stable sort keyed on x, carrying y along so pairs stay
//	matched. A stable ascending sort is area-equivalent to the descending
//	sort some callers expect: Trapezoid's direction factor makes the two
//	orderings integrate to the same value.
//
// Inputs:
//   - x: Sort key. Not modified.
//   - y: Carried values. Must have the same length as x. Not modified.
//
// Outputs:
//   - []float64: Sorted copy of x.
//   - []float64: Correspondingly reordered copy of y.
//   - error: ErrLengthMismatch for unpaired inputs.
//
// Thread Safety: Stateless function; safe for concurrent use.
func SortByX(x, y []float64) ([]float64, []float64, error) {
	if len(x) != len(y) {
		return nil, nil, ErrLengthMismatch
	}

	idx := make([]int, len(x))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(i, j int) bool {
		return x[idx[i]] < x[idx[j]]
	})

	sx := make([]float64, len(x))
	sy := make([]float64, len(y))
	for i, j := range idx {
		sx[i] = x[j]
		sy[i] = y[j]
	}
	return sx, sy, nil
}

// AreaUnderCurve computes trapezoidal AUC with optional reordering.
//
// Description:
//
//	One-shot form of the AUC accumulator's Compute: optionally stable-sorts
//	the curve by x, then applies the trapezoidal rule.
//
// Inputs:
//   - x: Curve x coordinates.
//   - y: Curve y coordinates. Must have the same length as x.
//   - reorder: When true, stable-sorts the curve by x before integrating.
//     When false, x must already be monotonic.
//
// Outputs:
//   - float64: The area. Zero for fewer than two points.
//   - error: ErrLengthMismatch or ErrNotMonotonic.
//
// Thread Safety: Stateless function; safe for concurrent use.
func AreaUnderCurve(x, y []float64, reorder bool) (float64, error) {
	if reorder {
		var err error
		x, y, err = SortByX(x, y)
		if err != nil {
			return 0, err
		}
	}
	return Trapezoid(x, y)
}
