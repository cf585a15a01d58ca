// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package regression gates metric scores against stored baselines.
//
// A baseline records the score a metric achieved on a reference run. The
// Gate compares a fresh score against the baseline and fails when the
// drop exceeds the configured tolerance, which makes it suitable for
// blocking CI/CD pipelines on model-quality regressions.
package regression

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/AleutianAI/curvemetrics/pkg/validation"
)

// -----------------------------------------------------------------------------
// Errors
// -----------------------------------------------------------------------------

var (
	// ErrBaselineNotFound indicates no baseline exists for the metric.
	ErrBaselineNotFound = errors.New("baseline not found")

	// ErrInvalidBaseline indicates the baseline data is corrupted.
	ErrInvalidBaseline = errors.New("invalid baseline data")

	// ErrNilBaseline indicates nil baseline data was provided.
	ErrNilBaseline = errors.New("baseline data must not be nil")

	// ErrInvalidName indicates the metric name is not safe to use as a
	// baseline file name.
	ErrInvalidName = errors.New("invalid metric name")
)

// -----------------------------------------------------------------------------
// Baseline Interface
// -----------------------------------------------------------------------------

// Baseline stores and retrieves metric-score baselines.
//
// Thread Safety: Implementations must be safe for concurrent use.
type Baseline interface {
	// Get retrieves the baseline for a metric.
	// Returns ErrBaselineNotFound if no baseline exists.
	Get(ctx context.Context, name string) (*BaselineData, error)

	// Set stores a new baseline for a metric.
	Set(ctx context.Context, name string, data *BaselineData) error

	// List returns all available baseline names, sorted.
	List(ctx context.Context) ([]string, error)

	// Delete removes a baseline.
	Delete(ctx context.Context, name string) error
}

// BaselineData holds the reference score for a metric.
type BaselineData struct {
	// Metric is the metric name (e.g., "auc").
	Metric string `json:"metric"`

	// Version identifies this baseline version.
	Version string `json:"version"`

	// RunID is the evaluation run that produced this baseline.
	RunID string `json:"run_id,omitempty"`

	// CreatedAt is when the baseline was created.
	CreatedAt time.Time `json:"created_at"`

	// UpdatedAt is when the baseline was last updated.
	UpdatedAt time.Time `json:"updated_at"`

	// Value is the reference score.
	Value float64 `json:"value"`

	// Points is the number of curve points behind the score.
	Points int `json:"points"`

	// Metadata holds arbitrary additional data.
	Metadata map[string]string `json:"metadata,omitempty"`
}

// -----------------------------------------------------------------------------
// Memory Baseline (for testing)
// -----------------------------------------------------------------------------

// MemoryBaselineStore stores baselines in memory.
//
// Description:
//
//	MemoryBaselineStore is useful for testing and short-lived processes.
//	Data is lost when the process exits.
//
// Thread Safety: Safe for concurrent use.
type MemoryBaselineStore struct {
	mu   sync.RWMutex
	data map[string]*BaselineData
}

// NewMemoryBaseline creates a new memory-backed baseline store.
//
// Outputs:
//   - *MemoryBaselineStore: The new store. Never nil.
func NewMemoryBaseline() *MemoryBaselineStore {
	return &MemoryBaselineStore{
		data: make(map[string]*BaselineData),
	}
}

// Get implements Baseline.
func (m *MemoryBaselineStore) Get(_ context.Context, name string) (*BaselineData, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	data, ok := m.data[name]
	if !ok {
		return nil, ErrBaselineNotFound
	}

	// Return a copy to prevent mutation
	dataCopy := *data
	return &dataCopy, nil
}

// Set implements Baseline.
func (m *MemoryBaselineStore) Set(_ context.Context, name string, data *BaselineData) error {
	if data == nil {
		return ErrNilBaseline
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	// Store a copy
	dataCopy := *data
	dataCopy.UpdatedAt = time.Now()
	if dataCopy.CreatedAt.IsZero() {
		dataCopy.CreatedAt = dataCopy.UpdatedAt
	}
	m.data[name] = &dataCopy
	return nil
}

// List implements Baseline.
func (m *MemoryBaselineStore) List(_ context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	names := make([]string, 0, len(m.data))
	for name := range m.data {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// Delete implements Baseline.
func (m *MemoryBaselineStore) Delete(_ context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.data[name]; !ok {
		return ErrBaselineNotFound
	}
	delete(m.data, name)
	return nil
}

// -----------------------------------------------------------------------------
// File Baseline
// -----------------------------------------------------------------------------

// FileBaselineStore stores baselines in JSON files.
//
// Description:
//
//	FileBaselineStore persists baselines to disk as JSON files.
//	Each metric gets its own file: {dir}/{name}.json
//
// Thread Safety: Safe for concurrent use.
type FileBaselineStore struct {
	dir string
	mu  sync.RWMutex
}

// NewFileBaseline creates a file-backed baseline store.
//
// Inputs:
//   - dir: Directory to store baseline files. Created if not exists.
//
// Outputs:
//   - *FileBaselineStore: The new store. Never nil on success.
//   - error: Non-nil if directory cannot be created.
func NewFileBaseline(dir string) (*FileBaselineStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	return &FileBaselineStore{dir: dir}, nil
}

// Get implements Baseline.
func (f *FileBaselineStore) Get(_ context.Context, name string) (*BaselineData, error) {
	if err := validation.ValidateMetricName(name); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidName, err)
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	path := f.filePath(name)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrBaselineNotFound
		}
		return nil, err
	}

	var baseline BaselineData
	if err := json.Unmarshal(data, &baseline); err != nil {
		return nil, ErrInvalidBaseline
	}

	return &baseline, nil
}

// Set implements Baseline.
func (f *FileBaselineStore) Set(_ context.Context, name string, data *BaselineData) error {
	if data == nil {
		return ErrNilBaseline
	}
	if err := validation.ValidateMetricName(name); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidName, err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	// Stamp a copy so the caller's data is not mutated
	dataCopy := *data
	dataCopy.UpdatedAt = time.Now()
	if dataCopy.CreatedAt.IsZero() {
		dataCopy.CreatedAt = dataCopy.UpdatedAt
	}

	jsonData, err := json.MarshalIndent(&dataCopy, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(f.filePath(name), jsonData, 0644)
}

// List implements Baseline.
func (f *FileBaselineStore) List(_ context.Context) ([]string, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	entries, err := os.ReadDir(f.dir)
	if err != nil {
		return nil, err
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if filepath.Ext(name) == ".json" {
			names = append(names, name[:len(name)-5])
		}
	}
	sort.Strings(names)
	return names, nil
}

// Delete implements Baseline.
func (f *FileBaselineStore) Delete(_ context.Context, name string) error {
	if err := validation.ValidateMetricName(name); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidName, err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	path := f.filePath(name)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return ErrBaselineNotFound
	}
	return os.Remove(path)
}

// filePath returns the file path for a metric baseline.
func (f *FileBaselineStore) filePath(name string) string {
	return filepath.Join(f.dir, name+".json")
}

// Verify interface compliance at compile time.
var (
	_ Baseline = (*MemoryBaselineStore)(nil)
	_ Baseline = (*FileBaselineStore)(nil)
)
