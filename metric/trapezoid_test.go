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
	"math"
	"testing"
)

const epsilon = 1e-9

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < epsilon
}

// -----------------------------------------------------------------------------
// Trapezoid Tests
// -----------------------------------------------------------------------------

func TestTrapezoid(t *testing.T) {
	t.Run("ascending curve", func(t *testing.T) {
		// Straight line y = x over [0, 2]: area = 2.
		area, err := Trapezoid([]float64{0, 1, 2}, []float64{0, 1, 2})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !almostEqual(area, 2.0) {
			t.Errorf("expected area 2.0, got %v", area)
		}
	})

	t.Run("descending curve uses direction factor", func(t *testing.T) {
		// Same curve as x=[0,1,2], y=[1,1,0], traversed right to left.
		area, err := Trapezoid([]float64{2, 1, 0}, []float64{0, 1, 1})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !almostEqual(area, 1.5) {
			t.Errorf("expected area 1.5, got %v", area)
		}
	})

	t.Run("uneven spacing", func(t *testing.T) {
		area, err := Trapezoid([]float64{0, 0.5, 2}, []float64{1, 2, 2})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		// [0,0.5]: 0.5*1.5=0.75; [0.5,2]: 1.5*2=3.0
		if !almostEqual(area, 3.75) {
			t.Errorf("expected area 3.75, got %v", area)
		}
	})

	t.Run("repeated x contributes zero width", func(t *testing.T) {
		area, err := Trapezoid([]float64{0, 1, 1, 2}, []float64{0, 1, 3, 3})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		// [0,1]: 0.5; [1,1]: 0; [1,2]: 3.0
		if !almostEqual(area, 3.5) {
			t.Errorf("expected area 3.5, got %v", area)
		}
	})

	t.Run("empty curve yields zero", func(t *testing.T) {
		area, err := Trapezoid(nil, nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if area != 0 {
			t.Errorf("expected 0 for empty curve, got %v", area)
		}
	})

	t.Run("single point yields zero", func(t *testing.T) {
		area, err := Trapezoid([]float64{1}, []float64{5})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if area != 0 {
			t.Errorf("expected 0 for single point, got %v", area)
		}
	})

	t.Run("non-monotonic x is rejected", func(t *testing.T) {
		_, err := Trapezoid([]float64{0, 2, 1}, []float64{1, 0, 1})
		if !errors.Is(err, ErrNotMonotonic) {
			t.Errorf("expected ErrNotMonotonic, got %v", err)
		}
	})

	t.Run("unpaired inputs are rejected", func(t *testing.T) {
		_, err := Trapezoid([]float64{0, 1}, []float64{0})
		if !errors.Is(err, ErrLengthMismatch) {
			t.Errorf("expected ErrLengthMismatch, got %v", err)
		}
	})
}

// -----------------------------------------------------------------------------
// SortByX Tests
// -----------------------------------------------------------------------------

func TestSortByX(t *testing.T) {
	t.Run("pairs stay matched", func(t *testing.T) {
		x, y, err := SortByX([]float64{3, 1, 2}, []float64{30, 10, 20})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		wantX := []float64{1, 2, 3}
		wantY := []float64{10, 20, 30}
		for i := range wantX {
			if x[i] != wantX[i] || y[i] != wantY[i] {
				t.Errorf("index %d: got (%v, %v), want (%v, %v)", i, x[i], y[i], wantX[i], wantY[i])
			}
		}
	})

	t.Run("stable for equal keys", func(t *testing.T) {
		_, y, err := SortByX([]float64{1, 0, 1}, []float64{7, 5, 9})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		// The two x=1 entries keep their original relative order.
		if y[1] != 7 || y[2] != 9 {
			t.Errorf("expected stable order [5 7 9], got %v", y)
		}
	})

	t.Run("inputs are not modified", func(t *testing.T) {
		x := []float64{2, 1}
		y := []float64{20, 10}
		_, _, err := SortByX(x, y)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if x[0] != 2 || y[0] != 20 {
			t.Errorf("inputs were modified: x=%v y=%v", x, y)
		}
	})

	t.Run("unpaired inputs are rejected", func(t *testing.T) {
		_, _, err := SortByX([]float64{0}, []float64{0, 1})
		if !errors.Is(err, ErrLengthMismatch) {
			t.Errorf("expected ErrLengthMismatch, got %v", err)
		}
	})
}

// -----------------------------------------------------------------------------
// AreaUnderCurve Tests
// -----------------------------------------------------------------------------

func TestAreaUnderCurve(t *testing.T) {
	t.Run("reorder matches pre-sorted input", func(t *testing.T) {
		unsorted, err := AreaUnderCurve([]float64{0, 2, 1}, []float64{1, 0, 1}, true)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		sorted, err := AreaUnderCurve([]float64{2, 1, 0}, []float64{0, 1, 1}, false)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !almostEqual(unsorted, sorted) {
			t.Errorf("reordered area %v does not match pre-sorted area %v", unsorted, sorted)
		}
	})

	t.Run("no reorder requires monotonic x", func(t *testing.T) {
		_, err := AreaUnderCurve([]float64{0, 2, 1}, []float64{1, 0, 1}, false)
		if !errors.Is(err, ErrNotMonotonic) {
			t.Errorf("expected ErrNotMonotonic, got %v", err)
		}
	})
}
