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
	"fmt"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"
)

// -----------------------------------------------------------------------------
// Registry
// -----------------------------------------------------------------------------

// Registry manages a collection of named metrics.
//
// Description:
//
//	The Registry provides a central location for registering and looking up
//	the metrics of an evaluation run, plus batch operations: computing every
//	metric, or resetting all of them between epochs.
//
// Thread Safety: Safe for concurrent use via read-write mutex.
type Registry struct {
	mu      sync.RWMutex
	metrics map[string]Metric
	hooks   []RegistrationHook
}

// RegistrationHook is called when a metric is registered or unregistered.
type RegistrationHook func(name string, m Metric, registered bool)

// NewRegistry creates a new empty registry.
//
// Outputs:
//   - *Registry: The new registry. Never nil.
//
// Example:
//
//	registry := metric.NewRegistry()
//	registry.Register(metric.NewAUC())
func NewRegistry() *Registry {
	return &Registry{
		metrics: make(map[string]Metric),
		hooks:   make([]RegistrationHook, 0),
	}
}

// Register adds a metric to the registry.
//
// Description:
//
//	Registers the metric under its Name(). The name must be unique within
//	the registry.
//
// Inputs:
//   - m: The metric to register. Must not be nil.
//
// Outputs:
//   - error: nil on success, ErrNilMetric if m is nil, ErrAlreadyRegistered
//     if the name is taken.
//
// Thread Safety: Safe for concurrent use.
func (r *Registry) Register(m Metric) error {
	if m == nil {
		return ErrNilMetric
	}

	name := m.Name()

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.metrics[name]; exists {
		return fmt.Errorf("%w: %s", ErrAlreadyRegistered, name)
	}

	r.metrics[name] = m

	for _, hook := range r.hooks {
		hook(name, m, true)
	}

	return nil
}

// MustRegister registers a metric and panics on error.
//
// Description:
//
//	Convenience method for registration during initialization. Should only
//	be used during startup, not at runtime.
//
// Thread Safety: Safe for concurrent use.
func (r *Registry) MustRegister(m Metric) {
	if err := r.Register(m); err != nil {
		panic(fmt.Sprintf("metric: failed to register %v: %v", m.Name(), err))
	}
}

// Unregister removes a metric from the registry.
//
// Inputs:
//   - name: The name of the metric to remove.
//
// Outputs:
//   - error: nil on success, ErrNotFound if not registered.
//
// Thread Safety: Safe for concurrent use.
func (r *Registry) Unregister(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, exists := r.metrics[name]
	if !exists {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}

	delete(r.metrics, name)

	for _, hook := range r.hooks {
		hook(name, m, false)
	}

	return nil
}

// Get retrieves a metric by name.
//
// Outputs:
//   - Metric: The metric, or nil if not found.
//   - bool: true if found.
//
// Thread Safety: Safe for concurrent use.
func (r *Registry) Get(name string) (Metric, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	m, exists := r.metrics[name]
	return m, exists
}

// MustGet retrieves a metric by name, panicking if not found.
//
// Thread Safety: Safe for concurrent use.
func (r *Registry) MustGet(name string) Metric {
	m, ok := r.Get(name)
	if !ok {
		panic(fmt.Sprintf("metric: not found: %s", name))
	}
	return m
}

// List returns all registered metric names, sorted.
//
// Thread Safety: Safe for concurrent use.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.metrics))
	for name := range r.metrics {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Count returns the number of registered metrics.
//
// Thread Safety: Safe for concurrent use.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.metrics)
}

// AddHook adds a registration hook.
//
// Description:
//
//	Hooks are called when metrics are registered or unregistered. They
//	receive the metric name, the metric, and whether it was registered
//	(true) or unregistered (false).
//
// Thread Safety: Safe for concurrent use.
func (r *Registry) AddHook(hook RegistrationHook) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.hooks = append(r.hooks, hook)
}

// ResetAll resets every registered metric.
//
// Thread Safety: Safe for concurrent use.
func (r *Registry) ResetAll() {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, m := range r.metrics {
		m.Reset()
	}
}

// ComputeResult holds the outcome of computing one registered metric.
type ComputeResult struct {
	// Name is the metric name.
	Name string

	// Value is the computed scalar. Zero when Err is non-nil.
	Value float64

	// Err is the compute error, if any.
	Err error
}

// ComputeAll computes every registered metric.
//
// Description:
//
//	Runs Compute on all registered metrics with bounded concurrency.
//	Per-metric failures are reported in the results rather than aborting the
//	batch; only context cancellation stops the run early.
//
// Inputs:
//   - ctx: Context for cancellation. Must not be nil.
//   - concurrency: Maximum concurrent computations. If <= 0, defaults to 4.
//
// Outputs:
//   - []ComputeResult: One entry per metric, sorted by name.
//   - error: Non-nil only when the context is cancelled.
//
// Thread Safety: Safe for concurrent use.
func (r *Registry) ComputeAll(ctx context.Context, concurrency int) ([]ComputeResult, error) {
	if concurrency <= 0 {
		concurrency = 4
	}

	r.mu.RLock()
	metrics := make(map[string]Metric, len(r.metrics))
	for name, m := range r.metrics {
		metrics[name] = m
	}
	r.mu.RUnlock()

	var (
		resMu   sync.Mutex
		results = make([]ComputeResult, 0, len(metrics))
	)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for name, m := range metrics {
		name, m := name, m
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			value, err := m.Compute()
			if err != nil {
				value = 0
			}

			resMu.Lock()
			results = append(results, ComputeResult{Name: name, Value: value, Err: err})
			resMu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].Name < results[j].Name
	})
	return results, nil
}

// -----------------------------------------------------------------------------
// Default Registry
// -----------------------------------------------------------------------------

// DefaultRegistry is the global registry instance.
// Metrics can register themselves during init() using MustRegister.
var DefaultRegistry = NewRegistry()

// Register registers a metric with the default registry.
func Register(m Metric) error {
	return DefaultRegistry.Register(m)
}

// MustRegister registers a metric with the default registry, panicking on error.
func MustRegister(m Metric) {
	DefaultRegistry.MustRegister(m)
}

// Get retrieves a metric from the default registry.
func Get(name string) (Metric, bool) {
	return DefaultRegistry.Get(name)
}

// List returns all metric names from the default registry.
func List() []string {
	return DefaultRegistry.List()
}
