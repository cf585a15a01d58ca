// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package stats

import (
	"errors"
	"math"
	"sync"
	"testing"
)

// -----------------------------------------------------------------------------
// ScoreCollector Tests
// -----------------------------------------------------------------------------

func TestScoreCollector(t *testing.T) {
	t.Run("collects scores in order", func(t *testing.T) {
		c := NewScoreCollector(0)
		for _, s := range []float64{0.7, 0.8, 0.9} {
			c.Add(s)
		}

		if c.Count() != 3 {
			t.Errorf("Count = %d, want 3", c.Count())
		}
		scores := c.Scores()
		if scores[0] != 0.7 || scores[2] != 0.9 {
			t.Errorf("Unexpected order: %v", scores)
		}
		if got := c.Mean(); math.Abs(got-0.8) > 1e-12 {
			t.Errorf("Mean = %v, want 0.8", got)
		}
	})

	t.Run("bounded collector evicts oldest", func(t *testing.T) {
		c := NewScoreCollector(2)
		c.Add(0.1)
		c.Add(0.2)
		c.Add(0.3)

		scores := c.Scores()
		if len(scores) != 2 || scores[0] != 0.2 || scores[1] != 0.3 {
			t.Errorf("Expected [0.2 0.3], got %v", scores)
		}
	})

	t.Run("scores returns a copy", func(t *testing.T) {
		c := NewScoreCollector(0)
		c.Add(0.5)

		scores := c.Scores()
		scores[0] = 99
		if c.Scores()[0] != 0.5 {
			t.Error("Expected Scores() to return a copy")
		}
	})

	t.Run("reset clears scores", func(t *testing.T) {
		c := NewScoreCollector(0)
		c.Add(0.5)
		c.Reset()
		if c.Count() != 0 {
			t.Errorf("Count after reset = %d, want 0", c.Count())
		}
	})

	t.Run("concurrent adds", func(t *testing.T) {
		c := NewScoreCollector(0)
		var wg sync.WaitGroup
		for i := 0; i < 50; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				c.Add(float64(i))
			}(i)
		}
		wg.Wait()
		if c.Count() != 50 {
			t.Errorf("Count = %d, want 50", c.Count())
		}
	})
}

// -----------------------------------------------------------------------------
// Welch T-Test Tests
// -----------------------------------------------------------------------------

func TestWelchTTest(t *testing.T) {
	t.Run("clearly different groups are significant", func(t *testing.T) {
		a := []float64{0.90, 0.91, 0.92, 0.90, 0.91, 0.92, 0.90, 0.91}
		b := []float64{0.70, 0.71, 0.72, 0.70, 0.71, 0.72, 0.70, 0.71}

		result, err := WelchTTest(a, b, 0.05)
		if err != nil {
			t.Fatalf("WelchTTest failed: %v", err)
		}
		if !result.Significant {
			t.Errorf("Expected significance, got p=%v", result.PValue)
		}
		if result.TStatistic <= 0 {
			t.Errorf("Expected positive t for a > b, got %v", result.TStatistic)
		}
	})

	t.Run("identical distributions are not significant", func(t *testing.T) {
		a := []float64{0.80, 0.82, 0.81, 0.79, 0.80, 0.81}
		b := []float64{0.81, 0.80, 0.79, 0.82, 0.80, 0.81}

		result, err := WelchTTest(a, b, 0.05)
		if err != nil {
			t.Fatalf("WelchTTest failed: %v", err)
		}
		if result.Significant {
			t.Errorf("Expected no significance, got p=%v", result.PValue)
		}
	})

	t.Run("insufficient samples", func(t *testing.T) {
		_, err := WelchTTest([]float64{0.9}, []float64{0.8, 0.7}, 0.05)
		if !errors.Is(err, ErrInsufficientSamples) {
			t.Errorf("Expected ErrInsufficientSamples, got %v", err)
		}
	})

	t.Run("zero variance", func(t *testing.T) {
		_, err := WelchTTest([]float64{0.9, 0.9}, []float64{0.8, 0.8}, 0.05)
		if !errors.Is(err, ErrZeroVariance) {
			t.Errorf("Expected ErrZeroVariance, got %v", err)
		}
	})
}

// -----------------------------------------------------------------------------
// Confidence Interval Tests
// -----------------------------------------------------------------------------

func TestCalculateCI(t *testing.T) {
	t.Run("interval brackets the mean difference", func(t *testing.T) {
		a := []float64{0.90, 0.92, 0.91, 0.89, 0.90}
		b := []float64{0.80, 0.82, 0.81, 0.79, 0.80}

		ci, err := CalculateCI(a, b, 0.95)
		if err != nil {
			t.Fatalf("CalculateCI failed: %v", err)
		}
		if !ci.Contains(ci.Center) {
			t.Errorf("Interval [%v, %v] does not contain center %v", ci.Lower, ci.Upper, ci.Center)
		}
		if math.Abs(ci.Center-0.10) > 1e-9 {
			t.Errorf("Center = %v, want 0.10", ci.Center)
		}
		if ci.Width() <= 0 {
			t.Errorf("Expected positive width, got %v", ci.Width())
		}
	})

	t.Run("zero variance collapses to point estimate", func(t *testing.T) {
		ci, err := CalculateCI([]float64{0.9, 0.9}, []float64{0.8, 0.8}, 0.95)
		if err != nil {
			t.Fatalf("CalculateCI failed: %v", err)
		}
		if ci.Width() != 0 {
			t.Errorf("Expected zero width, got %v", ci.Width())
		}
		if math.Abs(ci.Center-0.1) > 1e-12 {
			t.Errorf("Center = %v, want 0.1", ci.Center)
		}
	})

	t.Run("insufficient samples", func(t *testing.T) {
		_, err := CalculateCI([]float64{0.9}, []float64{0.8, 0.7}, 0.95)
		if !errors.Is(err, ErrInsufficientSamples) {
			t.Errorf("Expected ErrInsufficientSamples, got %v", err)
		}
	})
}

// -----------------------------------------------------------------------------
// Effect Size Tests
// -----------------------------------------------------------------------------

func TestEffectSize(t *testing.T) {
	t.Run("large separation gives large effect", func(t *testing.T) {
		a := []float64{0.90, 0.91, 0.92, 0.90}
		b := []float64{0.70, 0.71, 0.72, 0.70}

		d, err := EffectSize(a, b)
		if err != nil {
			t.Fatalf("EffectSize failed: %v", err)
		}
		if d <= 0 {
			t.Errorf("Expected positive d for a > b, got %v", d)
		}
		if CategorizeEffect(d) != EffectLarge {
			t.Errorf("Expected large effect, got %v (d=%v)", CategorizeEffect(d), d)
		}
	})

	t.Run("zero pooled variance", func(t *testing.T) {
		_, err := EffectSize([]float64{0.9, 0.9}, []float64{0.8, 0.8})
		if !errors.Is(err, ErrZeroVariance) {
			t.Errorf("Expected ErrZeroVariance, got %v", err)
		}
	})

	t.Run("empty samples", func(t *testing.T) {
		_, err := EffectSize(nil, []float64{0.8})
		if !errors.Is(err, ErrInsufficientSamples) {
			t.Errorf("Expected ErrInsufficientSamples, got %v", err)
		}
	})
}

func TestCategorizeEffect(t *testing.T) {
	cases := []struct {
		d    float64
		want EffectCategory
	}{
		{0.1, EffectNegligible},
		{-0.1, EffectNegligible},
		{0.3, EffectSmall},
		{0.6, EffectMedium},
		{1.2, EffectLarge},
		{-1.2, EffectLarge},
	}
	for _, c := range cases {
		if got := CategorizeEffect(c.d); got != c.want {
			t.Errorf("CategorizeEffect(%v) = %v, want %v", c.d, got, c.want)
		}
	}

	names := map[EffectCategory]string{
		EffectNegligible: "negligible",
		EffectSmall:      "small",
		EffectMedium:     "medium",
		EffectLarge:      "large",
	}
	for cat, want := range names {
		if cat.String() != want {
			t.Errorf("String() = %s, want %s", cat.String(), want)
		}
	}
}

// -----------------------------------------------------------------------------
// Power Analysis Tests
// -----------------------------------------------------------------------------

func TestCalculatePower(t *testing.T) {
	t.Run("more samples give more power", func(t *testing.T) {
		small := CalculatePower(5, 5, 0.5, 0.05)
		large := CalculatePower(100, 100, 0.5, 0.05)
		if large <= small {
			t.Errorf("Expected power to grow with n: %v vs %v", small, large)
		}
	})

	t.Run("tiny samples have no power", func(t *testing.T) {
		if got := CalculatePower(1, 1, 0.5, 0.05); got != 0 {
			t.Errorf("Expected 0 power for n<2, got %v", got)
		}
	})

	t.Run("power is in range", func(t *testing.T) {
		got := CalculatePower(20, 20, 2.0, 0.05)
		if got < 0 || got > 1 {
			t.Errorf("Power out of range: %v", got)
		}
	})
}

func TestRequiredSampleSize(t *testing.T) {
	t.Run("larger effect needs fewer samples", func(t *testing.T) {
		small := RequiredSampleSize(0.2, 0.05, 0.8)
		large := RequiredSampleSize(0.8, 0.05, 0.8)
		if large >= small {
			t.Errorf("Expected fewer samples for larger effect: %d vs %d", small, large)
		}
	})

	t.Run("standard case is near published value", func(t *testing.T) {
		// Cohen's tables: d=0.5, alpha=0.05, power=0.8 needs ~64 per group.
		n := RequiredSampleSize(0.5, 0.05, 0.8)
		if n < 55 || n < 1 || n > 75 {
			t.Errorf("RequiredSampleSize = %d, want ~64", n)
		}
	})

	t.Run("zero effect needs unbounded samples", func(t *testing.T) {
		if n := RequiredSampleSize(0, 0.05, 0.8); n != math.MaxInt32 {
			t.Errorf("Expected MaxInt32 for zero effect, got %d", n)
		}
	})
}

// -----------------------------------------------------------------------------
// Bootstrap Tests
// -----------------------------------------------------------------------------

func TestBootstrapCI(t *testing.T) {
	t.Run("interval brackets the true difference", func(t *testing.T) {
		a := []float64{0.90, 0.92, 0.91, 0.89, 0.90, 0.93, 0.88, 0.91}
		b := []float64{0.80, 0.82, 0.81, 0.79, 0.80, 0.83, 0.78, 0.81}

		ci, err := BootstrapCI(a, b, 0.95, 1000)
		if err != nil {
			t.Fatalf("BootstrapCI failed: %v", err)
		}
		if !ci.Contains(0.10) {
			t.Errorf("Interval [%v, %v] does not contain 0.10", ci.Lower, ci.Upper)
		}
	})

	t.Run("deterministic across calls", func(t *testing.T) {
		a := []float64{0.9, 0.8, 0.85, 0.87}
		b := []float64{0.7, 0.75, 0.72, 0.74}

		first, err := BootstrapCI(a, b, 0.95, 500)
		if err != nil {
			t.Fatalf("BootstrapCI failed: %v", err)
		}
		second, err := BootstrapCI(a, b, 0.95, 500)
		if err != nil {
			t.Fatalf("BootstrapCI failed: %v", err)
		}
		if first.Lower != second.Lower || first.Upper != second.Upper {
			t.Errorf("Expected deterministic bootstrap: %+v vs %+v", first, second)
		}
	})

	t.Run("insufficient samples", func(t *testing.T) {
		_, err := BootstrapCI([]float64{0.9}, []float64{0.8, 0.7}, 0.95, 100)
		if !errors.Is(err, ErrInsufficientSamples) {
			t.Errorf("Expected ErrInsufficientSamples, got %v", err)
		}
	})
}
