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
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// namedMetric is a configurable Metric for registry tests.
type namedMetric struct {
	name  string
	value float64
	err   error
}

func (m *namedMetric) Name() string              { return m.name }
func (m *namedMetric) Compute() (float64, error) { return m.value, m.err }
func (m *namedMetric) Reset()                    { m.value = 0 }

func TestRegistry_Register(t *testing.T) {
	r := NewRegistry()

	err := r.Register(&namedMetric{name: "auc"})
	require.NoError(t, err)
	assert.Equal(t, 1, r.Count())

	err = r.Register(&namedMetric{name: "auc"})
	assert.ErrorIs(t, err, ErrAlreadyRegistered)

	err = r.Register(nil)
	assert.ErrorIs(t, err, ErrNilMetric)
}

func TestRegistry_GetUnregister(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(&namedMetric{name: "auc", value: 0.9}))

	m, ok := r.Get("auc")
	require.True(t, ok)
	assert.Equal(t, "auc", m.Name())

	_, ok = r.Get("missing")
	assert.False(t, ok)

	require.NoError(t, r.Unregister("auc"))
	assert.ErrorIs(t, r.Unregister("auc"), ErrNotFound)
	assert.Equal(t, 0, r.Count())
}

func TestRegistry_List(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(&namedMetric{name: "roc_auc"}))
	require.NoError(t, r.Register(&namedMetric{name: "auc"}))

	assert.Equal(t, []string{"auc", "roc_auc"}, r.List())
}

func TestRegistry_Hooks(t *testing.T) {
	r := NewRegistry()

	var events []string
	r.AddHook(func(name string, _ Metric, registered bool) {
		if registered {
			events = append(events, "add:"+name)
		} else {
			events = append(events, "del:"+name)
		}
	})

	require.NoError(t, r.Register(&namedMetric{name: "auc"}))
	require.NoError(t, r.Unregister("auc"))

	assert.Equal(t, []string{"add:auc", "del:auc"}, events)
}

func TestRegistry_ResetAll(t *testing.T) {
	r := NewRegistry()
	m := &namedMetric{name: "auc", value: 0.7}
	require.NoError(t, r.Register(m))

	r.ResetAll()
	assert.Zero(t, m.value)
}

func TestRegistry_ComputeAll(t *testing.T) {
	t.Run("collects values and per-metric errors", func(t *testing.T) {
		r := NewRegistry()
		require.NoError(t, r.Register(&namedMetric{name: "b_metric", value: 0.5}))
		require.NoError(t, r.Register(&namedMetric{name: "a_metric", err: ErrNotMonotonic}))

		results, err := r.ComputeAll(context.Background(), 2)
		require.NoError(t, err)
		require.Len(t, results, 2)

		// Sorted by name.
		assert.Equal(t, "a_metric", results[0].Name)
		assert.ErrorIs(t, results[0].Err, ErrNotMonotonic)
		assert.Equal(t, "b_metric", results[1].Name)
		assert.InDelta(t, 0.5, results[1].Value, 1e-9)
		assert.NoError(t, results[1].Err)
	})

	t.Run("cancelled context aborts", func(t *testing.T) {
		r := NewRegistry()
		require.NoError(t, r.Register(&namedMetric{name: "auc"}))

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := r.ComputeAll(ctx, 1)
		assert.ErrorIs(t, err, context.Canceled)
	})

	t.Run("real accumulator end to end", func(t *testing.T) {
		r := NewRegistry()
		auc := NewAUC(WithReorder(true))
		require.NoError(t, auc.Update([]float64{0, 2, 1}, []float64{1, 0, 1}))
		require.NoError(t, r.Register(auc))

		results, err := r.ComputeAll(context.Background(), 0)
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, "auc", results[0].Name)
		require.NoError(t, results[0].Err)
		assert.InDelta(t, 1.5, results[0].Value, 1e-9)
	})
}
