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
	"fmt"
	"log/slog"
	"math"
	"time"
)

// -----------------------------------------------------------------------------
// Errors
// -----------------------------------------------------------------------------

var (
	// ErrGateFailed indicates the regression gate did not pass.
	ErrGateFailed = errors.New("regression gate failed")

	// ErrNilStore indicates a nil baseline store was provided.
	ErrNilStore = errors.New("baseline store must not be nil")
)

// -----------------------------------------------------------------------------
// Gate Configuration
// -----------------------------------------------------------------------------

// GateConfig configures the regression gate.
type GateConfig struct {
	// RelativeTolerance is the allowed relative score drop (0 to 1).
	// A value of 0.02 fails the gate when the score drops more than 2%
	// below the baseline.
	// Default: 0.01
	RelativeTolerance float64

	// AbsoluteTolerance is the allowed absolute score drop.
	// Used when the baseline value is zero, and as a floor otherwise.
	// Default: 1e-9
	AbsoluteTolerance float64

	// HigherIsBetter indicates whether larger scores are better.
	// For AUC-style metrics this is true; for loss-style curves set false.
	// Default: true
	HigherIsBetter bool

	// UpdateBaselineOnPass updates the stored baseline when the check passes.
	// Default: false
	UpdateBaselineOnPass bool

	// RequireBaseline fails if no baseline exists.
	// Default: false (missing baseline = pass, score becomes the baseline)
	RequireBaseline bool

	// Logger for output.
	Logger *slog.Logger
}

// DefaultGateConfig returns sensible defaults.
func DefaultGateConfig() *GateConfig {
	return &GateConfig{
		RelativeTolerance:    0.01,
		AbsoluteTolerance:    1e-9,
		HigherIsBetter:       true,
		UpdateBaselineOnPass: false,
		RequireBaseline:      false,
		Logger:               slog.Default(),
	}
}

// -----------------------------------------------------------------------------
// Gate Options
// -----------------------------------------------------------------------------

// GateOption configures the gate.
type GateOption func(*GateConfig)

// WithRelativeTolerance sets the allowed relative score drop.
func WithRelativeTolerance(tolerance float64) GateOption {
	return func(c *GateConfig) {
		if tolerance >= 0 {
			c.RelativeTolerance = tolerance
		}
	}
}

// WithAbsoluteTolerance sets the allowed absolute score drop.
func WithAbsoluteTolerance(tolerance float64) GateOption {
	return func(c *GateConfig) {
		if tolerance >= 0 {
			c.AbsoluteTolerance = tolerance
		}
	}
}

// WithHigherIsBetter sets the score direction.
func WithHigherIsBetter(higher bool) GateOption {
	return func(c *GateConfig) {
		c.HigherIsBetter = higher
	}
}

// WithUpdateBaseline enables baseline update on pass.
func WithUpdateBaseline(enabled bool) GateOption {
	return func(c *GateConfig) {
		c.UpdateBaselineOnPass = enabled
	}
}

// WithRequireBaseline requires a baseline to exist.
func WithRequireBaseline(required bool) GateOption {
	return func(c *GateConfig) {
		c.RequireBaseline = required
	}
}

// WithGateLogger sets the logger.
func WithGateLogger(logger *slog.Logger) GateOption {
	return func(c *GateConfig) {
		if logger != nil {
			c.Logger = logger
		}
	}
}

// -----------------------------------------------------------------------------
// Gate
// -----------------------------------------------------------------------------

// Gate checks metric scores for regressions against baselines.
//
// Description:
//
//	Gate compares a freshly computed metric score against the stored
//	baseline and determines whether to pass or fail a CI/CD pipeline.
//	A missing baseline passes by default; the new score is then stored
//	as the first baseline.
//
// Thread Safety: Safe for concurrent use.
//
// Example:
//
//	gate := regression.NewGate(store, regression.WithRelativeTolerance(0.02))
//	decision, err := gate.Check(ctx, "auc", value, points)
//	if errors.Is(err, regression.ErrGateFailed) {
//	    os.Exit(1)
//	}
type Gate struct {
	store  Baseline
	config *GateConfig
	logger *slog.Logger
}

// NewGate creates a new regression gate.
//
// Inputs:
//   - store: Baseline store. Must not be nil.
//   - opts: Configuration options.
//
// Outputs:
//   - *Gate: The new gate. Never nil.
func NewGate(store Baseline, opts ...GateOption) *Gate {
	config := DefaultGateConfig()
	for _, opt := range opts {
		opt(config)
	}

	return &Gate{
		store:  store,
		config: config,
		logger: config.Logger,
	}
}

// GateDecision contains the gate check result.
type GateDecision struct {
	// Pass is true if the gate allows the score through.
	Pass bool

	// Metric is the checked metric.
	Metric string

	// Value is the score under test.
	Value float64

	// BaselineValue is the stored reference score.
	// Zero when no baseline existed.
	BaselineValue float64

	// Delta is Value - BaselineValue.
	Delta float64

	// RelativeDelta is Delta / |BaselineValue|.
	// Zero when the baseline value is zero.
	RelativeDelta float64

	// BaselineMissing is true when no baseline existed.
	BaselineMissing bool

	// BaselineUpdated is true when the baseline was written.
	BaselineUpdated bool

	// Reason explains the decision.
	Reason string

	// CheckedAt is when the check ran.
	CheckedAt time.Time
}

// Check compares a metric score against its baseline.
//
// Description:
//
//	Retrieves the baseline, compares the score against it using the
//	configured tolerances, and optionally updates the baseline. A
//	regression is a drop in the "worse" direction beyond both the
//	relative and absolute tolerance.
//
// Inputs:
//   - ctx: Context for the baseline store. Must not be nil.
//   - metricName: Metric to check (e.g., "auc").
//   - value: The freshly computed score.
//   - points: Curve points behind the score, recorded in the baseline.
//
// Outputs:
//   - *GateDecision: The decision. Never nil when error is nil or ErrGateFailed.
//   - error: ErrGateFailed when the gate blocks; other errors on store failure.
//
// Thread Safety: Safe for concurrent use.
func (g *Gate) Check(ctx context.Context, metricName string, value float64, points int) (*GateDecision, error) {
	if g.store == nil {
		return nil, ErrNilStore
	}
	if ctx == nil {
		ctx = context.Background()
	}

	decision := &GateDecision{
		Metric:    metricName,
		Value:     value,
		CheckedAt: time.Now(),
	}

	baseline, err := g.store.Get(ctx, metricName)
	switch {
	case errors.Is(err, ErrBaselineNotFound):
		decision.BaselineMissing = true
		if g.config.RequireBaseline {
			decision.Pass = false
			decision.Reason = "baseline required but not found"
			g.logger.Warn("regression gate failed",
				"metric", metricName,
				"reason", decision.Reason,
			)
			return decision, fmt.Errorf("%w: %s", ErrGateFailed, decision.Reason)
		}

		// First run: the score becomes the baseline.
		decision.Pass = true
		decision.Reason = "no baseline, storing initial score"
		if err := g.writeBaseline(ctx, metricName, value, points); err != nil {
			return nil, err
		}
		decision.BaselineUpdated = true
		g.logger.Info("baseline created",
			"metric", metricName,
			"value", value,
			"points", points,
		)
		return decision, nil

	case err != nil:
		return nil, err
	}

	decision.BaselineValue = baseline.Value
	decision.Delta = value - baseline.Value
	if baseline.Value != 0 {
		decision.RelativeDelta = decision.Delta / math.Abs(baseline.Value)
	}

	// Drop in the "worse" direction.
	drop := baseline.Value - value
	if !g.config.HigherIsBetter {
		drop = value - baseline.Value
	}

	allowed := math.Abs(baseline.Value) * g.config.RelativeTolerance
	if allowed < g.config.AbsoluteTolerance {
		allowed = g.config.AbsoluteTolerance
	}

	if drop > allowed {
		decision.Pass = false
		decision.Reason = fmt.Sprintf(
			"score %.6g regressed from baseline %.6g (drop %.6g exceeds tolerance %.6g)",
			value, baseline.Value, drop, allowed,
		)
		g.logger.Warn("regression gate failed",
			"metric", metricName,
			"value", value,
			"baseline", baseline.Value,
			"drop", drop,
			"tolerance", allowed,
		)
		return decision, fmt.Errorf("%w: %s", ErrGateFailed, decision.Reason)
	}

	decision.Pass = true
	decision.Reason = "within tolerance"

	if g.config.UpdateBaselineOnPass {
		if err := g.writeBaseline(ctx, metricName, value, points); err != nil {
			return nil, err
		}
		decision.BaselineUpdated = true
	}

	g.logger.Info("regression gate passed",
		"metric", metricName,
		"value", value,
		"baseline", baseline.Value,
		"delta", decision.Delta,
	)
	return decision, nil
}

// writeBaseline stores the score as the new baseline.
func (g *Gate) writeBaseline(ctx context.Context, metricName string, value float64, points int) error {
	return g.store.Set(ctx, metricName, &BaselineData{
		Metric: metricName,
		Value:  value,
		Points: points,
	})
}
