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

func TestListState_AppendCat(t *testing.T) {
	t.Run("cat preserves append order", func(t *testing.T) {
		s := NewListState("x", ReduceCat)
		s.Append([]float64{1, 2})
		s.Append([]float64{3})
		s.Append([]float64{4, 5})

		got := s.Cat()
		want := []float64{1, 2, 3, 4, 5}
		if len(got) != len(want) {
			t.Fatalf("expected %d values, got %d", len(want), len(got))
		}
		for i := range want {
			if got[i] != want[i] {
				t.Errorf("index %d: got %v, want %v", i, got[i], want[i])
			}
		}
	})

	t.Run("append copies the input", func(t *testing.T) {
		s := NewListState("x", ReduceCat)
		v := []float64{1}
		s.Append(v)
		v[0] = 99

		if s.Cat()[0] != 1 {
			t.Error("expected appended vector to be a copy")
		}
	})

	t.Run("empty state cats to empty", func(t *testing.T) {
		s := NewListState("x", ReduceCat)
		if got := s.Cat(); len(got) != 0 {
			t.Errorf("expected empty concatenation, got %v", got)
		}
	})

	t.Run("reset clears buffers", func(t *testing.T) {
		s := NewListState("x", ReduceCat)
		s.Append([]float64{1})
		s.Reset()

		if s.Len() != 0 {
			t.Errorf("expected 0 vectors after reset, got %d", s.Len())
		}
	})
}

func TestListState_Merge(t *testing.T) {
	t.Run("cat appends shard vectors", func(t *testing.T) {
		a := NewListState("x", ReduceCat)
		a.Append([]float64{1})
		b := NewListState("x", ReduceCat)
		b.Append([]float64{2})
		b.Append([]float64{3})

		if err := a.Merge(b); err != nil {
			t.Fatalf("merge failed: %v", err)
		}
		if a.Len() != 3 {
			t.Errorf("expected 3 vectors, got %d", a.Len())
		}
		if got := a.Cat(); got[0] != 1 || got[2] != 3 {
			t.Errorf("unexpected merged order: %v", got)
		}
	})

	t.Run("sum combines element-wise", func(t *testing.T) {
		a := NewListState("hits", ReduceSum)
		a.Append([]float64{1, 2})
		b := NewListState("hits", ReduceSum)
		b.Append([]float64{10, 20})

		if err := a.Merge(b); err != nil {
			t.Fatalf("merge failed: %v", err)
		}
		got := a.Cat()
		if got[0] != 11 || got[1] != 22 {
			t.Errorf("expected [11 22], got %v", got)
		}
	})

	t.Run("max and min", func(t *testing.T) {
		a := NewListState("peak", ReduceMax)
		a.Append([]float64{1, 9})
		b := NewListState("peak", ReduceMax)
		b.Append([]float64{5, 3})
		if err := a.Merge(b); err != nil {
			t.Fatalf("merge failed: %v", err)
		}
		if got := a.Cat(); got[0] != 5 || got[1] != 9 {
			t.Errorf("expected [5 9], got %v", got)
		}

		c := NewListState("floor", ReduceMin)
		c.Append([]float64{1, 9})
		d := NewListState("floor", ReduceMin)
		d.Append([]float64{5, 3})
		if err := c.Merge(d); err != nil {
			t.Fatalf("merge failed: %v", err)
		}
		if got := c.Cat(); got[0] != 1 || got[1] != 3 {
			t.Errorf("expected [1 3], got %v", got)
		}
	})

	t.Run("mean averages", func(t *testing.T) {
		a := NewListState("avg", ReduceMean)
		a.Append([]float64{2})
		b := NewListState("avg", ReduceMean)
		b.Append([]float64{4})
		if err := a.Merge(b); err != nil {
			t.Fatalf("merge failed: %v", err)
		}
		if got := a.Cat(); got[0] != 3 {
			t.Errorf("expected [3], got %v", got)
		}
	})

	t.Run("shape mismatch is rejected", func(t *testing.T) {
		a := NewListState("hits", ReduceSum)
		a.Append([]float64{1})
		b := NewListState("hits", ReduceSum)
		b.Append([]float64{1, 2})

		if err := a.Merge(b); !errors.Is(err, ErrShapeMismatch) {
			t.Errorf("expected ErrShapeMismatch, got %v", err)
		}
	})

	t.Run("reduction mismatch is rejected", func(t *testing.T) {
		a := NewListState("x", ReduceCat)
		b := NewListState("x", ReduceSum)

		if err := a.Merge(b); !errors.Is(err, ErrIncompatibleMerge) {
			t.Errorf("expected ErrIncompatibleMerge, got %v", err)
		}
	})

	t.Run("nil shard is rejected", func(t *testing.T) {
		a := NewListState("x", ReduceCat)
		if err := a.Merge(nil); !errors.Is(err, ErrIncompatibleMerge) {
			t.Errorf("expected ErrIncompatibleMerge, got %v", err)
		}
	})
}
