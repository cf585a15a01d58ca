// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package telemetry

import (
	"context"
	"errors"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// -----------------------------------------------------------------------------
// Errors
// -----------------------------------------------------------------------------

var (
	// ErrInvalidConfig is returned when the Prometheus configuration is invalid.
	ErrInvalidConfig = errors.New("invalid prometheus configuration")

	// ErrRegistrationFailed is returned when metric registration fails.
	ErrRegistrationFailed = errors.New("metric registration failed")
)

// -----------------------------------------------------------------------------
// Configuration
// -----------------------------------------------------------------------------

// PrometheusConfig configures the Prometheus sink.
//
// Description:
//
//	PrometheusConfig specifies namespace, subsystem, and bucket
//	configuration for Prometheus metrics.
//
// Thread Safety: Immutable after creation; safe for concurrent read access.
type PrometheusConfig struct {
	// Namespace is the metrics namespace (e.g., "curvemetrics").
	// Required.
	Namespace string

	// Subsystem is the metrics subsystem (e.g., "accumulator").
	// Required.
	Subsystem string

	// Registry is the Prometheus registry to use.
	// If nil, uses prometheus.DefaultRegisterer.
	Registry prometheus.Registerer

	// BatchSizeBuckets defines histogram buckets for batch sizes (points).
	// If nil, uses default buckets.
	BatchSizeBuckets []float64

	// DurationBuckets defines histogram buckets for compute durations (seconds).
	// If nil, uses default buckets.
	DurationBuckets []float64

	// MaxLabelCardinality is the maximum number of unique label values to track.
	// When exceeded, new label values are mapped to "_other".
	// Default: 1000
	MaxLabelCardinality int
}

// DefaultPrometheusConfig returns a configuration with sensible defaults.
//
// Outputs:
//   - *PrometheusConfig: Configuration with defaults applied.
//
// Thread Safety: Stateless function; safe for concurrent use.
//
// Example:
//
//	config := telemetry.DefaultPrometheusConfig()
//	config.Namespace = "my_service"
//	sink, err := telemetry.NewPrometheusSink(config)
func DefaultPrometheusConfig() *PrometheusConfig {
	return &PrometheusConfig{
		Namespace: "curvemetrics",
		Subsystem: "accumulator",
		BatchSizeBuckets: []float64{
			1, 8, 32, 128, 512, 2048, 8192, 32768, 131072,
		},
		DurationBuckets: []float64{
			0.00001, 0.0001, 0.001, 0.01, 0.1, 1.0, 10.0,
		},
		MaxLabelCardinality: 1000,
	}
}

// Validate checks that the configuration is valid.
//
// Outputs:
//   - error: Non-nil if configuration is invalid.
//
// Thread Safety: Safe for concurrent use.
func (c *PrometheusConfig) Validate() error {
	if c.Namespace == "" {
		return errors.New("namespace is required")
	}
	if c.Subsystem == "" {
		return errors.New("subsystem is required")
	}
	return nil
}

// -----------------------------------------------------------------------------
// Prometheus Sink
// -----------------------------------------------------------------------------

// PrometheusSink exports telemetry as Prometheus metrics.
//
// Description:
//
//	PrometheusSink collects update, compute, and error telemetry and
//	exposes them as Prometheus metrics. Metrics are registered on
//	creation and deregistered on Close().
//
// Thread Safety: Safe for concurrent use.
//
// Example:
//
//	sink, err := telemetry.NewPrometheusSink(telemetry.DefaultPrometheusConfig())
//	if err != nil {
//	    return fmt.Errorf("create prometheus sink: %w", err)
//	}
//	defer sink.Close()
//
//	sink.RecordCompute(ctx, data)
type PrometheusSink struct {
	config   *PrometheusConfig
	registry prometheus.Registerer

	// Update metrics
	updatesTotal    *prometheus.CounterVec
	updateBatchSize *prometheus.HistogramVec
	bufferedPoints  *prometheus.GaugeVec

	// Compute metrics
	computesTotal   *prometheus.CounterVec
	computeDuration *prometheus.HistogramVec
	computeValue    *prometheus.GaugeVec
	computePoints   *prometheus.HistogramVec

	// Error metrics
	errorsTotal *prometheus.CounterVec

	mu     sync.RWMutex
	closed bool

	// Track registered collectors for cleanup
	collectors []prometheus.Collector

	// Label cardinality protection
	labelMu        sync.RWMutex
	seenLabels     map[string]map[string]struct{} // labelName -> set of seen values
	maxCardinality int
}

// NewPrometheusSink creates a new Prometheus telemetry sink.
//
// Description:
//
//	Creates a sink that exports telemetry as Prometheus metrics.
//	Registers all metrics collectors on creation.
//
// Inputs:
//   - config: Prometheus configuration. Must not be nil.
//
// Outputs:
//   - *PrometheusSink: The created sink. Never nil on success.
//   - error: Non-nil if configuration is invalid or registration fails.
//
// Thread Safety: The returned sink is safe for concurrent use.
//
// Limitations:
//   - Metric names cannot be changed after creation.
//   - Uses global default registry if none specified.
//
// Assumptions:
//   - Registry allows duplicate registration (or collector not previously registered).
//   - Labels do not contain high-cardinality values.
func NewPrometheusSink(config *PrometheusConfig) (*PrometheusSink, error) {
	if config == nil {
		return nil, ErrInvalidConfig
	}
	if err := config.Validate(); err != nil {
		return nil, errors.Join(ErrInvalidConfig, err)
	}

	// Apply defaults for nil slices
	cfg := *config // Copy to avoid mutating input
	if cfg.BatchSizeBuckets == nil {
		cfg.BatchSizeBuckets = DefaultPrometheusConfig().BatchSizeBuckets
	}
	if cfg.DurationBuckets == nil {
		cfg.DurationBuckets = DefaultPrometheusConfig().DurationBuckets
	}

	registry := cfg.Registry
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}

	maxCard := cfg.MaxLabelCardinality
	if maxCard <= 0 {
		maxCard = 1000
	}

	sink := &PrometheusSink{
		config:         &cfg,
		registry:       registry,
		seenLabels:     make(map[string]map[string]struct{}),
		maxCardinality: maxCard,
	}

	// Initialize update metrics
	sink.updatesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "updates_total",
			Help:      "Total accumulator update calls",
		},
		[]string{"metric"},
	)

	sink.updateBatchSize = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "update_batch_size_points",
			Help:      "Curve points per update batch",
			Buckets:   cfg.BatchSizeBuckets,
		},
		[]string{"metric"},
	)

	sink.bufferedPoints = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "buffered_points",
			Help:      "Curve points currently buffered",
		},
		[]string{"metric"},
	)

	// Initialize compute metrics
	sink.computesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "computes_total",
			Help:      "Total reductions of buffered state",
		},
		[]string{"metric"},
	)

	sink.computeDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "compute_duration_seconds",
			Help:      "Reduction duration in seconds",
			Buckets:   cfg.DurationBuckets,
		},
		[]string{"metric"},
	)

	sink.computeValue = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "compute_value",
			Help:      "Most recent computed metric value",
		},
		[]string{"metric"},
	)

	sink.computePoints = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "compute_points",
			Help:      "Curve points reduced per compute",
			Buckets:   cfg.BatchSizeBuckets,
		},
		[]string{"metric"},
	)

	// Initialize error metrics
	sink.errorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "errors_total",
			Help:      "Total errors by metric, operation, and type",
		},
		[]string{"metric", "operation", "error_type"},
	)

	// Register all collectors
	sink.collectors = []prometheus.Collector{
		sink.updatesTotal,
		sink.updateBatchSize,
		sink.bufferedPoints,
		sink.computesTotal,
		sink.computeDuration,
		sink.computeValue,
		sink.computePoints,
		sink.errorsTotal,
	}

	for _, c := range sink.collectors {
		if err := registry.Register(c); err != nil {
			// If already registered, try to continue
			var alreadyErr prometheus.AlreadyRegisteredError
			if !errors.As(err, &alreadyErr) {
				return nil, errors.Join(ErrRegistrationFailed, err)
			}
		}
	}

	return sink, nil
}

// RecordUpdate records update metrics.
//
// Description:
//
//	Records the update counter, batch size histogram, and buffered
//	points gauge for one accumulator update.
//
// Inputs:
//   - ctx: Context for cancellation. Must not be nil.
//   - data: Update data to record. Must not be nil.
//
// Outputs:
//   - error: Non-nil if sink is closed or inputs are invalid.
//
// Thread Safety: Safe for concurrent use.
func (s *PrometheusSink) RecordUpdate(ctx context.Context, data *UpdateData) error {
	if ctx == nil {
		return ErrNilContext
	}
	if data == nil {
		return ErrNilData
	}

	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		return ErrSinkClosed
	}
	s.mu.RUnlock()

	name := data.Metric
	if name == "" {
		name = "unknown"
	}
	name = s.sanitizeLabel("metric", name)

	s.updatesTotal.WithLabelValues(name).Inc()
	s.updateBatchSize.WithLabelValues(name).Observe(float64(data.BatchSize))
	s.bufferedPoints.WithLabelValues(name).Set(float64(data.BufferedPoints))

	return nil
}

// RecordCompute records compute metrics.
//
// Description:
//
//	Records the compute counter, duration histogram, value gauge, and
//	point-count histogram for one reduction.
//
// Inputs:
//   - ctx: Context for cancellation. Must not be nil.
//   - data: Compute data to record. Must not be nil.
//
// Outputs:
//   - error: Non-nil if sink is closed or inputs are invalid.
//
// Thread Safety: Safe for concurrent use.
func (s *PrometheusSink) RecordCompute(ctx context.Context, data *ComputeData) error {
	if ctx == nil {
		return ErrNilContext
	}
	if data == nil {
		return ErrNilData
	}

	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		return ErrSinkClosed
	}
	s.mu.RUnlock()

	name := data.Metric
	if name == "" {
		name = "unknown"
	}
	name = s.sanitizeLabel("metric", name)

	s.computesTotal.WithLabelValues(name).Inc()
	s.computeDuration.WithLabelValues(name).Observe(data.Duration.Seconds())
	s.computeValue.WithLabelValues(name).Set(data.Value)
	s.computePoints.WithLabelValues(name).Observe(float64(data.Points))

	return nil
}

// RecordError records error metrics.
//
// Description:
//
//	Increments the error counter with metric, operation, and error type
//	labels.
//
// Inputs:
//   - ctx: Context for cancellation. Must not be nil.
//   - data: Error data to record. Must not be nil.
//
// Outputs:
//   - error: Non-nil if sink is closed or inputs are invalid.
//
// Thread Safety: Safe for concurrent use.
func (s *PrometheusSink) RecordError(ctx context.Context, data *ErrorData) error {
	if ctx == nil {
		return ErrNilContext
	}
	if data == nil {
		return ErrNilData
	}

	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		return ErrSinkClosed
	}
	s.mu.RUnlock()

	name := data.Metric
	if name == "" {
		name = "unknown"
	}
	name = s.sanitizeLabel("metric", name)

	operation := data.Operation
	if operation == "" {
		operation = "unknown"
	}
	operation = s.sanitizeLabel("operation", operation)

	errorType := data.ErrorType
	if errorType == "" {
		errorType = "unknown"
	}
	errorType = s.sanitizeLabel("error_type", errorType)

	s.errorsTotal.WithLabelValues(name, operation, errorType).Inc()

	return nil
}

// Flush is a no-op for Prometheus sink.
//
// Description:
//
//	Prometheus metrics are available immediately via scraping.
//	This method exists for interface compliance.
//
// Inputs:
//   - ctx: Context for cancellation. Must not be nil.
//
// Outputs:
//   - error: Non-nil if sink is closed or context is nil.
//
// Thread Safety: Safe for concurrent use.
func (s *PrometheusSink) Flush(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return ErrSinkClosed
	}

	// Prometheus metrics are pull-based, no explicit flush needed
	return nil
}

// Close unregisters all metrics and releases resources.
//
// Description:
//
//	Unregisters all Prometheus collectors from the registry.
//	After Close(), all recording methods return ErrSinkClosed.
//
// Outputs:
//   - error: Non-nil if unregistration fails.
//
// Thread Safety: Safe for concurrent use. Idempotent.
func (s *PrometheusSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	// Note: DefaultRegisterer doesn't support Unregister, so we check
	// if it's a custom registry that might support unregistration
	if gatherer, ok := s.registry.(*prometheus.Registry); ok {
		for _, c := range s.collectors {
			gatherer.Unregister(c)
		}
	}

	return nil
}

// sanitizeLabel protects against label cardinality explosion.
//
// Description:
//
//	Tracks unique label values per label name and replaces values
//	beyond MaxLabelCardinality with "_other".
//
// Thread Safety: Safe for concurrent use.
func (s *PrometheusSink) sanitizeLabel(labelName, labelValue string) string {
	s.labelMu.RLock()
	seen := s.seenLabels[labelName]
	if seen != nil {
		if _, exists := seen[labelValue]; exists {
			s.labelMu.RUnlock()
			return labelValue
		}
		if len(seen) >= s.maxCardinality {
			s.labelMu.RUnlock()
			return "_other"
		}
	}
	s.labelMu.RUnlock()

	// Need to add new value
	s.labelMu.Lock()
	defer s.labelMu.Unlock()

	// Double-check after acquiring write lock
	if s.seenLabels[labelName] == nil {
		s.seenLabels[labelName] = make(map[string]struct{})
	}
	if _, exists := s.seenLabels[labelName][labelValue]; exists {
		return labelValue
	}
	if len(s.seenLabels[labelName]) >= s.maxCardinality {
		return "_other"
	}

	s.seenLabels[labelName][labelValue] = struct{}{}
	return labelValue
}

// Verify interface compliance at compile time.
var _ Sink = (*PrometheusSink)(nil)
