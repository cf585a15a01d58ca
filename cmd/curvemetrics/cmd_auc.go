// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/AleutianAI/curvemetrics/metric"
	"github.com/AleutianAI/curvemetrics/metric/regression"
)

var (
	aucScenarioPath string
	aucDataPath     string
)

var aucCmd = &cobra.Command{
	Use:   "auc",
	Short: "Compute the area under a curve from CSV points",
	Long: `Reads (x, y) curve points from a CSV file, accumulates them in
batches, and reduces them to an area with the trapezoidal rule.

When the scenario enables the gate, the score is compared against the
stored baseline and the command exits non-zero on a regression.`,
	RunE: runAUC,
}

func init() {
	aucCmd.Flags().StringVar(&aucScenarioPath, "scenario", "", "Path to the scenario YAML file (required)")
	aucCmd.Flags().StringVar(&aucDataPath, "data", "", "Override the scenario's data path")
	_ = aucCmd.MarkFlagRequired("scenario")

	rootCmd.AddCommand(aucCmd)
}

func runAUC(cmd *cobra.Command, _ []string) error {
	scenario, err := LoadScenario(aucScenarioPath)
	if err != nil {
		slog.Error("Failed to load scenario", "path", aucScenarioPath, "error", err)
		return err
	}

	dataPath := scenario.Data.Path
	if aucDataPath != "" {
		dataPath = aucDataPath
	}

	// Unique run ID: {scenario}_v{version}_{uuid}
	runID := fmt.Sprintf("%s_v%s_%s", scenario.Metadata.ID, scenario.Metadata.Version, uuid.NewString())

	slog.Info("Starting evaluation run",
		"run_id", runID,
		"scenario", scenario.Metadata.ID,
		"metric", scenario.Metric.Name,
		"data", dataPath,
	)

	x, y, err := ReadCurvePoints(dataPath)
	if err != nil {
		slog.Error("Failed to read curve points", "path", dataPath, "error", err)
		return err
	}
	if len(x) == 0 {
		slog.Error("Data file holds no curve points", "path", dataPath)
		return fmt.Errorf("no curve points in %s", dataPath)
	}

	if scenario.Data.Format == "roc" {
		// Rows are (score, label); derive (FPR, TPR) first.
		x, y, err = metric.ROCPoints(x, y)
		if err != nil {
			slog.Error("Failed to derive ROC points", "path", dataPath, "error", err)
			return err
		}
	}

	var opts []metric.AUCOption
	if scenario.Metric.Reorder {
		opts = append(opts, metric.WithReorder(true))
	}
	auc := metric.NewAUC(opts...)

	// Feed in batches to exercise the streaming path.
	batchSize := scenario.Data.BatchSize
	if batchSize <= 0 {
		batchSize = len(x)
	}
	for start := 0; start < len(x); start += batchSize {
		end := start + batchSize
		if end > len(x) {
			end = len(x)
		}
		if err := auc.Update(x[start:end], y[start:end]); err != nil {
			slog.Error("Update failed", "run_id", runID, "batch_start", start, "error", err)
			return err
		}
	}

	start := time.Now()
	value, err := auc.Compute()
	if err != nil {
		slog.Error("Compute failed", "run_id", runID, "error", err)
		return err
	}

	slog.Info("Evaluation complete",
		"run_id", runID,
		"metric", scenario.Metric.Name,
		"value", value,
		"points", auc.Points(),
		"duration", time.Since(start),
	)
	fmt.Printf("%s = %.6f (%d points)\n", scenario.Metric.Name, value, auc.Points())

	if !scenario.Gate.Enabled {
		return nil
	}
	return runGate(cmd.Context(), scenario, value, auc.Points())
}

// runGate checks the score against the stored baseline.
func runGate(ctx context.Context, scenario *Scenario, value float64, points int) error {
	if ctx == nil {
		ctx = context.Background()
	}

	store, err := regression.NewFileBaseline(scenario.Gate.BaselineDir)
	if err != nil {
		slog.Error("Failed to open baseline store", "dir", scenario.Gate.BaselineDir, "error", err)
		return err
	}

	gateOpts := []regression.GateOption{
		regression.WithUpdateBaseline(scenario.Gate.UpdateOnPass),
		regression.WithRequireBaseline(scenario.Gate.RequireBaseline),
	}
	if scenario.Gate.RelativeTolerance > 0 {
		gateOpts = append(gateOpts, regression.WithRelativeTolerance(scenario.Gate.RelativeTolerance))
	}

	gate := regression.NewGate(store, gateOpts...)
	decision, err := gate.Check(ctx, scenario.Metric.Name, value, points)
	if err != nil {
		if errors.Is(err, regression.ErrGateFailed) {
			fmt.Printf("GATE FAILED: %s\n", decision.Reason)
		}
		return err
	}

	fmt.Printf("gate passed: %s\n", decision.Reason)
	return nil
}
