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
	"testing"
)

func TestROCPoints(t *testing.T) {
	t.Run("curve spans (0,0) to (1,1) with ascending x", func(t *testing.T) {
		fpr, tpr, err := ROCPoints(
			[]float64{0.1, 0.4, 0.35, 0.8},
			[]float64{0, 0, 1, 1},
		)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if fpr[0] != 0 || tpr[0] != 0 {
			t.Errorf("expected curve to start at (0,0), got (%v,%v)", fpr[0], tpr[0])
		}
		last := len(fpr) - 1
		if fpr[last] != 1 || tpr[last] != 1 {
			t.Errorf("expected curve to end at (1,1), got (%v,%v)", fpr[last], tpr[last])
		}
		for i := 1; i < len(fpr); i++ {
			if fpr[i] < fpr[i-1] {
				t.Errorf("fpr not ascending at %d: %v", i, fpr)
			}
		}
	})

	t.Run("tied scores collapse to one threshold", func(t *testing.T) {
		fpr, _, err := ROCPoints(
			[]float64{0.5, 0.5, 0.2},
			[]float64{1, 0, 0},
		)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		// (0,0) plus one point per distinct score.
		if len(fpr) != 3 {
			t.Errorf("expected 3 points for 2 distinct scores, got %d", len(fpr))
		}
	})

	t.Run("single class is rejected", func(t *testing.T) {
		_, _, err := ROCPoints([]float64{0.2, 0.8}, []float64{1, 1})
		if !errors.Is(err, ErrSingleClass) {
			t.Errorf("expected ErrSingleClass, got %v", err)
		}
	})

	t.Run("non-binary label is rejected", func(t *testing.T) {
		_, _, err := ROCPoints([]float64{0.2, 0.8}, []float64{0, 0.5})
		if !errors.Is(err, ErrNonBinaryLabel) {
			t.Errorf("expected ErrNonBinaryLabel, got %v", err)
		}
	})

	t.Run("empty input is rejected", func(t *testing.T) {
		_, _, err := ROCPoints(nil, nil)
		if !errors.Is(err, ErrEmptyInput) {
			t.Errorf("expected ErrEmptyInput, got %v", err)
		}
	})
}

func TestROCAUC(t *testing.T) {
	t.Run("known score", func(t *testing.T) {
		// Classic example: one inversion among four samples.
		auc, err := ROCAUC(
			[]float64{0.1, 0.4, 0.35, 0.8},
			[]float64{0, 0, 1, 1},
		)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !almostEqual(auc, 0.75) {
			t.Errorf("expected AUC 0.75, got %v", auc)
		}
	})

	t.Run("perfect classifier", func(t *testing.T) {
		auc, err := ROCAUC(
			[]float64{0.9, 0.8, 0.2, 0.1},
			[]float64{1, 1, 0, 0},
		)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !almostEqual(auc, 1.0) {
			t.Errorf("expected AUC 1.0, got %v", auc)
		}
	})

	t.Run("inverted classifier", func(t *testing.T) {
		auc, err := ROCAUC(
			[]float64{0.1, 0.2, 0.8, 0.9},
			[]float64{1, 1, 0, 0},
		)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !almostEqual(auc, 0.0) {
			t.Errorf("expected AUC 0.0, got %v", auc)
		}
	})

	t.Run("single class defaults to random", func(t *testing.T) {
		auc, err := ROCAUC([]float64{0.2, 0.8}, []float64{0, 0})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if auc != 0.5 {
			t.Errorf("expected 0.5 for single-class labels, got %v", auc)
		}
	})

	t.Run("feeds the accumulator", func(t *testing.T) {
		fpr, tpr, err := ROCPoints(
			[]float64{0.1, 0.4, 0.35, 0.8},
			[]float64{0, 0, 1, 1},
		)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		auc := NewAUC()
		if err := auc.Update(fpr, tpr); err != nil {
			t.Fatalf("update failed: %v", err)
		}
		area, err := auc.Compute()
		if err != nil {
			t.Fatalf("compute failed: %v", err)
		}
		if !almostEqual(area, 0.75) {
			t.Errorf("expected AUC 0.75 via accumulator, got %v", area)
		}
	})
}
