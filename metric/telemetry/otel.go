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

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// -----------------------------------------------------------------------------
// Errors
// -----------------------------------------------------------------------------

var (
	// ErrOTelInitFailed is returned when OpenTelemetry initialization fails.
	ErrOTelInitFailed = errors.New("opentelemetry initialization failed")

	// ErrInvalidOTelConfig is returned when the OTel configuration is invalid.
	ErrInvalidOTelConfig = errors.New("invalid opentelemetry configuration")
)

// -----------------------------------------------------------------------------
// Configuration
// -----------------------------------------------------------------------------

// OTelConfig configures the OpenTelemetry sink.
//
// Description:
//
//	OTelConfig specifies service name, instrumentation scope, and optional
//	providers for tracing and metrics.
//
// Thread Safety: Immutable after creation; safe for concurrent read access.
type OTelConfig struct {
	// ServiceName is the service name for telemetry.
	// Required.
	ServiceName string

	// ServiceVersion is the service version for telemetry.
	// Optional.
	ServiceVersion string

	// TracerProvider is the tracer provider to use.
	// If nil, uses the global tracer provider.
	TracerProvider trace.TracerProvider

	// MeterProvider is the meter provider to use.
	// If nil, uses the global meter provider.
	MeterProvider metric.MeterProvider

	// TraceEnabled enables trace span creation.
	// Default: true.
	TraceEnabled bool

	// MetricsEnabled enables metric recording.
	// Default: true.
	MetricsEnabled bool
}

// DefaultOTelConfig returns a configuration with sensible defaults.
//
// Outputs:
//   - *OTelConfig: Configuration with defaults applied.
//
// Thread Safety: Stateless function; safe for concurrent use.
//
// Example:
//
//	config := telemetry.DefaultOTelConfig()
//	config.ServiceName = "my-service"
//	sink, err := telemetry.NewOTelSink(config)
func DefaultOTelConfig() *OTelConfig {
	return &OTelConfig{
		ServiceName:    "curvemetrics",
		ServiceVersion: "1.0.0",
		TraceEnabled:   true,
		MetricsEnabled: true,
	}
}

// Validate checks that the configuration is valid.
//
// Outputs:
//   - error: Non-nil if configuration is invalid.
//
// Thread Safety: Safe for concurrent use.
func (c *OTelConfig) Validate() error {
	if c.ServiceName == "" {
		return errors.New("service name is required")
	}
	return nil
}

// -----------------------------------------------------------------------------
// OpenTelemetry Sink
// -----------------------------------------------------------------------------

// OTelSink exports telemetry via OpenTelemetry.
//
// Description:
//
//	OTelSink creates trace spans for compute operations and records
//	metrics for accumulator activity using the OpenTelemetry SDK. It
//	integrates with the standard OTel providers for flexible backend
//	configuration.
//
// Thread Safety: Safe for concurrent use.
//
// Example:
//
//	config := telemetry.DefaultOTelConfig()
//	config.ServiceName = "eval-worker"
//
//	sink, err := telemetry.NewOTelSink(config)
//	if err != nil {
//	    return fmt.Errorf("create otel sink: %w", err)
//	}
//	defer sink.Close()
//
//	sink.RecordCompute(ctx, data)
type OTelSink struct {
	config *OTelConfig
	tracer trace.Tracer
	meter  metric.Meter

	// Metrics instruments
	updatesTotal    metric.Int64Counter
	updateBatchSize metric.Int64Histogram
	bufferedPoints  metric.Int64Gauge
	computesTotal   metric.Int64Counter
	computeDuration metric.Float64Histogram
	computeValue    metric.Float64Gauge
	computePoints   metric.Int64Histogram
	errorsTotal     metric.Int64Counter

	mu     sync.RWMutex
	closed bool
}

// NewOTelSink creates a new OpenTelemetry telemetry sink.
//
// Description:
//
//	Creates a sink that exports telemetry via OpenTelemetry traces and
//	metrics. Uses global providers if not specified in config.
//
// Inputs:
//   - config: OpenTelemetry configuration. Must not be nil.
//
// Outputs:
//   - *OTelSink: The created sink. Never nil on success.
//   - error: Non-nil if configuration is invalid or initialization fails.
//
// Thread Safety: The returned sink is safe for concurrent use.
//
// Limitations:
//   - Requires OpenTelemetry providers to be configured for actual export.
//   - Without providers, telemetry is discarded (no-op).
//
// Assumptions:
//   - TracerProvider and MeterProvider are properly initialized.
//   - Caller is responsible for shutting down providers.
func NewOTelSink(config *OTelConfig) (*OTelSink, error) {
	if config == nil {
		return nil, ErrInvalidOTelConfig
	}
	if err := config.Validate(); err != nil {
		return nil, errors.Join(ErrInvalidOTelConfig, err)
	}

	// Copy config to avoid mutation
	cfg := *config

	tp := cfg.TracerProvider
	if tp == nil {
		tp = otel.GetTracerProvider()
	}

	mp := cfg.MeterProvider
	if mp == nil {
		mp = otel.GetMeterProvider()
	}

	tracer := tp.Tracer(
		"github.com/AleutianAI/curvemetrics/metric/telemetry",
		trace.WithInstrumentationVersion(cfg.ServiceVersion),
	)

	meter := mp.Meter(
		"github.com/AleutianAI/curvemetrics/metric/telemetry",
		metric.WithInstrumentationVersion(cfg.ServiceVersion),
	)

	sink := &OTelSink{
		config: &cfg,
		tracer: tracer,
		meter:  meter,
	}

	if cfg.MetricsEnabled {
		if err := sink.initializeMetrics(); err != nil {
			return nil, errors.Join(ErrOTelInitFailed, err)
		}
	}

	return sink, nil
}

// initializeMetrics creates all metric instruments.
func (s *OTelSink) initializeMetrics() error {
	var err error

	// Update metrics
	s.updatesTotal, err = s.meter.Int64Counter(
		"accumulator.updates",
		metric.WithDescription("Total accumulator update calls"),
		metric.WithUnit("{update}"),
	)
	if err != nil {
		return err
	}

	s.updateBatchSize, err = s.meter.Int64Histogram(
		"accumulator.update.batch_size",
		metric.WithDescription("Curve points per update batch"),
		metric.WithUnit("{point}"),
	)
	if err != nil {
		return err
	}

	s.bufferedPoints, err = s.meter.Int64Gauge(
		"accumulator.buffered_points",
		metric.WithDescription("Curve points currently buffered"),
		metric.WithUnit("{point}"),
	)
	if err != nil {
		return err
	}

	// Compute metrics
	s.computesTotal, err = s.meter.Int64Counter(
		"accumulator.computes",
		metric.WithDescription("Total reductions of buffered state"),
		metric.WithUnit("{compute}"),
	)
	if err != nil {
		return err
	}

	s.computeDuration, err = s.meter.Float64Histogram(
		"accumulator.compute.duration",
		metric.WithDescription("Reduction duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return err
	}

	s.computeValue, err = s.meter.Float64Gauge(
		"accumulator.compute.value",
		metric.WithDescription("Most recent computed metric value"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return err
	}

	s.computePoints, err = s.meter.Int64Histogram(
		"accumulator.compute.points",
		metric.WithDescription("Curve points reduced per compute"),
		metric.WithUnit("{point}"),
	)
	if err != nil {
		return err
	}

	// Error metrics
	s.errorsTotal, err = s.meter.Int64Counter(
		"errors.total",
		metric.WithDescription("Total errors"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return err
	}

	return nil
}

// RecordUpdate records update telemetry.
//
// Description:
//
//	Records counters and histograms for one accumulator update. Updates
//	are high-frequency, so no span is created for them.
//
// Inputs:
//   - ctx: Context for tracing. Must not be nil.
//   - data: Update data to record. Must not be nil.
//
// Outputs:
//   - error: Non-nil if sink is closed or inputs are invalid.
//
// Thread Safety: Safe for concurrent use.
func (s *OTelSink) RecordUpdate(ctx context.Context, data *UpdateData) error {
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

	if !s.config.MetricsEnabled {
		return nil
	}

	attrSet := metric.WithAttributes(s.commonAttrs(data.RunID, data.Metric, data.Labels)...)

	s.updatesTotal.Add(ctx, 1, attrSet)
	s.updateBatchSize.Record(ctx, int64(data.BatchSize), attrSet)
	s.bufferedPoints.Record(ctx, int64(data.BufferedPoints), attrSet)

	return nil
}

// RecordCompute records compute telemetry.
//
// Description:
//
//	Creates a trace span for the reduction and records the computed
//	value, duration, and point count.
//
// Inputs:
//   - ctx: Context for tracing. Must not be nil.
//   - data: Compute data to record. Must not be nil.
//
// Outputs:
//   - error: Non-nil if sink is closed or inputs are invalid.
//
// Thread Safety: Safe for concurrent use.
func (s *OTelSink) RecordCompute(ctx context.Context, data *ComputeData) error {
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

	attrs := s.commonAttrs(data.RunID, data.Metric, data.Labels)

	if s.config.TraceEnabled {
		_, span := s.tracer.Start(ctx, "accumulator.compute",
			trace.WithAttributes(attrs...),
			trace.WithTimestamp(data.Timestamp),
		)
		span.SetAttributes(
			attribute.Float64("compute.value", data.Value),
			attribute.Int("compute.points", data.Points),
			attribute.Float64("compute.duration_seconds", data.Duration.Seconds()),
		)
		span.End()
	}

	if s.config.MetricsEnabled {
		attrSet := metric.WithAttributes(attrs...)

		s.computesTotal.Add(ctx, 1, attrSet)
		s.computeDuration.Record(ctx, data.Duration.Seconds(), attrSet)
		s.computeValue.Record(ctx, data.Value, attrSet)
		s.computePoints.Record(ctx, int64(data.Points), attrSet)
	}

	return nil
}

// RecordError records error telemetry.
//
// Description:
//
//	Creates a trace span for the error event and increments the error
//	counter metric.
//
// Inputs:
//   - ctx: Context for tracing. Must not be nil.
//   - data: Error data to record. Must not be nil.
//
// Outputs:
//   - error: Non-nil if sink is closed or inputs are invalid.
//
// Thread Safety: Safe for concurrent use.
func (s *OTelSink) RecordError(ctx context.Context, data *ErrorData) error {
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

	operation := data.Operation
	if operation == "" {
		operation = "unknown"
	}
	errorType := data.ErrorType
	if errorType == "" {
		errorType = "unknown"
	}

	attrs := append(s.commonAttrs(data.RunID, data.Metric, data.Labels),
		attribute.String("error.operation", operation),
		attribute.String("error.type", errorType),
		attribute.String("error.message", data.Message),
	)

	if s.config.TraceEnabled {
		_, span := s.tracer.Start(ctx, "error.record",
			trace.WithAttributes(attrs...),
			trace.WithTimestamp(data.Timestamp),
		)
		span.SetStatus(codes.Error, data.Message)
		span.End()
	}

	if s.config.MetricsEnabled {
		attrSet := metric.WithAttributes(
			attribute.String("metric", data.Metric),
			attribute.String("operation", operation),
			attribute.String("error_type", errorType),
		)
		s.errorsTotal.Add(ctx, 1, attrSet)
	}

	return nil
}

// commonAttrs builds the attribute set shared by all recordings.
func (s *OTelSink) commonAttrs(runID, metricName string, labels map[string]string) []attribute.KeyValue {
	if metricName == "" {
		metricName = "unknown"
	}

	attrs := []attribute.KeyValue{
		attribute.String("metric", metricName),
	}
	if runID != "" {
		attrs = append(attrs, attribute.String("run.id", runID))
	}
	for k, v := range labels {
		attrs = append(attrs, attribute.String("label."+k, v))
	}
	return attrs
}

// Flush forces export of any buffered telemetry.
//
// Description:
//
//	For OTel sink, this is a no-op as the SDK handles batching and export.
//	The actual flush happens via the providers' ForceFlush methods.
//
// Inputs:
//   - ctx: Context for cancellation. Must not be nil.
//
// Outputs:
//   - error: Non-nil if sink is closed or context is nil.
//
// Thread Safety: Safe for concurrent use.
func (s *OTelSink) Flush(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return ErrSinkClosed
	}

	// Note: Actual flushing is done via the provider's ForceFlush method
	// which should be called on the TracerProvider and MeterProvider directly.
	// This sink doesn't own the providers, so we don't flush them here.
	return nil
}

// Close releases resources.
//
// Description:
//
//	Marks the sink as closed. Does not shut down the providers as they
//	may be shared and should be managed by the caller.
//
// Outputs:
//   - error: Always nil.
//
// Thread Safety: Safe for concurrent use. Idempotent.
func (s *OTelSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	// Note: We don't shut down the providers here as they may be shared.
	// The caller is responsible for shutting down the providers.
	return nil
}

// -----------------------------------------------------------------------------
// Trace Context Helpers
// -----------------------------------------------------------------------------

// StartComputeSpan creates a trace span for a reduction.
//
// Description:
//
//	Creates a new span with accumulator attributes. The returned span
//	must be ended by the caller.
//
// Inputs:
//   - ctx: Context for tracing. Must not be nil.
//   - metricName: Metric being reduced.
//
// Outputs:
//   - context.Context: Context with the span.
//   - trace.Span: The created span. Must be ended by caller.
//
// Thread Safety: Safe for concurrent use.
//
// Example:
//
//	ctx, span := sink.StartComputeSpan(ctx, "auc")
//	defer span.End()
//	// ... reduce ...
//	span.SetAttributes(attribute.Float64("compute.value", value))
func (s *OTelSink) StartComputeSpan(ctx context.Context, metricName string) (context.Context, trace.Span) {
	if ctx == nil {
		ctx = context.Background()
	}
	if metricName == "" {
		metricName = "unknown"
	}

	return s.tracer.Start(ctx, "compute."+metricName,
		trace.WithAttributes(
			attribute.String("metric", metricName),
		),
	)
}

// AddComputeEvent adds an event to the current span.
//
// Inputs:
//   - ctx: Context containing the span.
//   - eventName: Name of the event.
//   - attrs: Event attributes.
//
// Thread Safety: Safe for concurrent use.
func (s *OTelSink) AddComputeEvent(ctx context.Context, eventName string, attrs ...attribute.KeyValue) {
	span := trace.SpanFromContext(ctx)
	if span != nil {
		span.AddEvent(eventName, trace.WithAttributes(attrs...))
	}
}

// Verify interface compliance at compile time.
var _ Sink = (*OTelSink)(nil)
