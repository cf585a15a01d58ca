// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package regression

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
)

// quietLogger discards gate output in tests.
func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func seededStore(t *testing.T, value float64) Baseline {
	t.Helper()
	store := NewMemoryBaseline()
	err := store.Set(context.Background(), "auc", &BaselineData{
		Metric: "auc",
		Value:  value,
		Points: 100,
	})
	if err != nil {
		t.Fatalf("seeding baseline failed: %v", err)
	}
	return store
}

func TestGate_MissingBaseline(t *testing.T) {
	ctx := context.Background()

	t.Run("first run stores the score and passes", func(t *testing.T) {
		store := NewMemoryBaseline()
		gate := NewGate(store, WithGateLogger(quietLogger()))

		decision, err := gate.Check(ctx, "auc", 0.9, 50)
		if err != nil {
			t.Fatalf("Check failed: %v", err)
		}
		if !decision.Pass || !decision.BaselineMissing || !decision.BaselineUpdated {
			t.Errorf("Unexpected decision: %+v", decision)
		}

		stored, err := store.Get(ctx, "auc")
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if stored.Value != 0.9 || stored.Points != 50 {
			t.Errorf("Stored baseline mismatch: %+v", stored)
		}
	})

	t.Run("required baseline fails when missing", func(t *testing.T) {
		gate := NewGate(NewMemoryBaseline(),
			WithRequireBaseline(true),
			WithGateLogger(quietLogger()),
		)

		decision, err := gate.Check(ctx, "auc", 0.9, 50)
		if !errors.Is(err, ErrGateFailed) {
			t.Fatalf("Expected ErrGateFailed, got %v", err)
		}
		if decision.Pass {
			t.Error("Expected Pass=false")
		}
	})
}

func TestGate_Check(t *testing.T) {
	ctx := context.Background()

	t.Run("score within tolerance passes", func(t *testing.T) {
		gate := NewGate(seededStore(t, 0.90),
			WithRelativeTolerance(0.02),
			WithGateLogger(quietLogger()),
		)

		decision, err := gate.Check(ctx, "auc", 0.89, 100)
		if err != nil {
			t.Fatalf("Check failed: %v", err)
		}
		if !decision.Pass {
			t.Errorf("Expected pass, got %+v", decision)
		}
		if decision.Delta >= 0 {
			t.Errorf("Expected negative delta, got %v", decision.Delta)
		}
	})

	t.Run("regression beyond tolerance fails", func(t *testing.T) {
		gate := NewGate(seededStore(t, 0.90),
			WithRelativeTolerance(0.02),
			WithGateLogger(quietLogger()),
		)

		decision, err := gate.Check(ctx, "auc", 0.80, 100)
		if !errors.Is(err, ErrGateFailed) {
			t.Fatalf("Expected ErrGateFailed, got %v", err)
		}
		if decision.Pass {
			t.Error("Expected Pass=false")
		}
		if decision.BaselineValue != 0.90 {
			t.Errorf("BaselineValue = %v, want 0.90", decision.BaselineValue)
		}
	})

	t.Run("improvement always passes", func(t *testing.T) {
		gate := NewGate(seededStore(t, 0.90), WithGateLogger(quietLogger()))

		decision, err := gate.Check(ctx, "auc", 0.95, 100)
		if err != nil {
			t.Fatalf("Check failed: %v", err)
		}
		if !decision.Pass {
			t.Errorf("Expected pass for improvement, got %+v", decision)
		}
	})

	t.Run("lower is better inverts the direction", func(t *testing.T) {
		gate := NewGate(seededStore(t, 0.10),
			WithHigherIsBetter(false),
			WithRelativeTolerance(0.05),
			WithGateLogger(quietLogger()),
		)

		// Loss went up: regression.
		_, err := gate.Check(ctx, "auc", 0.20, 100)
		if !errors.Is(err, ErrGateFailed) {
			t.Errorf("Expected ErrGateFailed, got %v", err)
		}

		// Loss went down: pass.
		decision, err := gate.Check(ctx, "auc", 0.05, 100)
		if err != nil {
			t.Fatalf("Check failed: %v", err)
		}
		if !decision.Pass {
			t.Errorf("Expected pass, got %+v", decision)
		}
	})

	t.Run("zero baseline uses absolute tolerance", func(t *testing.T) {
		gate := NewGate(seededStore(t, 0.0),
			WithAbsoluteTolerance(0.1),
			WithGateLogger(quietLogger()),
		)

		decision, err := gate.Check(ctx, "auc", -0.05, 100)
		if err != nil {
			t.Fatalf("Check failed: %v", err)
		}
		if !decision.Pass {
			t.Errorf("Expected pass within absolute tolerance, got %+v", decision)
		}

		_, err = gate.Check(ctx, "auc", -0.5, 100)
		if !errors.Is(err, ErrGateFailed) {
			t.Errorf("Expected ErrGateFailed, got %v", err)
		}
	})
}

func TestGate_UpdateBaselineOnPass(t *testing.T) {
	ctx := context.Background()
	store := seededStore(t, 0.90)

	gate := NewGate(store,
		WithUpdateBaseline(true),
		WithGateLogger(quietLogger()),
	)

	decision, err := gate.Check(ctx, "auc", 0.95, 200)
	if err != nil {
		t.Fatalf("Check failed: %v", err)
	}
	if !decision.BaselineUpdated {
		t.Error("Expected BaselineUpdated=true")
	}

	stored, err := store.Get(ctx, "auc")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if stored.Value != 0.95 || stored.Points != 200 {
		t.Errorf("Baseline not updated: %+v", stored)
	}
}

func TestGate_NilStore(t *testing.T) {
	gate := NewGate(nil, WithGateLogger(quietLogger()))
	_, err := gate.Check(context.Background(), "auc", 0.9, 10)
	if !errors.Is(err, ErrNilStore) {
		t.Errorf("Expected ErrNilStore, got %v", err)
	}
}
