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
	"bufio"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/curvemetrics/metric/stats"
)

var (
	compareAlpha     float64
	compareBootstrap int
)

var compareCmd = &cobra.Command{
	Use:   "compare <scores-a> <scores-b>",
	Short: "Compare two sets of metric scores statistically",
	Long: `Reads two files of metric scores (one score per line) and reports
whether the difference between them is statistically significant.

Runs Welch's t-test, reports the effect size (Cohen's d), and a
bootstrap confidence interval for each group's mean. Use this to
decide whether a model variant actually moved the metric or the
difference is noise.`,
	Args: cobra.ExactArgs(2),
	RunE: runCompare,
}

func init() {
	compareCmd.Flags().Float64Var(&compareAlpha, "alpha", 0.05, "Significance level for the t-test")
	compareCmd.Flags().IntVar(&compareBootstrap, "bootstrap", 1000, "Bootstrap iterations for confidence intervals")

	rootCmd.AddCommand(compareCmd)
}

func runCompare(_ *cobra.Command, args []string) error {
	groupA, err := readScores(args[0])
	if err != nil {
		slog.Error("Failed to read scores", "path", args[0], "error", err)
		return err
	}
	groupB, err := readScores(args[1])
	if err != nil {
		slog.Error("Failed to read scores", "path", args[1], "error", err)
		return err
	}

	result, err := stats.WelchTTest(groupA, groupB, compareAlpha)
	if err != nil {
		slog.Error("Statistical test failed", "error", err)
		return err
	}

	collectorA := stats.NewScoreCollector(len(groupA))
	collectorB := stats.NewScoreCollector(len(groupB))
	for _, s := range groupA {
		collectorA.Add(s)
	}
	for _, s := range groupB {
		collectorB.Add(s)
	}

	fmt.Printf("group A: n=%d mean=%.6f\n", collectorA.Count(), collectorA.Mean())
	fmt.Printf("group B: n=%d mean=%.6f\n", collectorB.Count(), collectorB.Mean())
	fmt.Printf("t=%.4f df=%.1f p=%.4f (alpha=%.2f)\n",
		result.TStatistic, result.DegreesOfFreedom, result.PValue, compareAlpha)

	if effect, err := stats.EffectSize(groupA, groupB); err == nil {
		fmt.Printf("effect size: d=%.3f (%s)\n", effect, stats.CategorizeEffect(effect))
	}

	if ci, err := stats.BootstrapCI(groupA, groupB, 0.95, compareBootstrap); err == nil {
		fmt.Printf("mean difference 95%% CI: [%.6f, %.6f]\n", ci.Lower, ci.Upper)
	}

	if result.Significant {
		fmt.Println("verdict: significant difference")
	} else {
		fmt.Println("verdict: no significant difference")
	}

	slog.Info("Comparison complete",
		"n_a", len(groupA),
		"n_b", len(groupB),
		"p_value", result.PValue,
		"significant", result.Significant,
	)
	return nil
}

// readScores reads one float64 score per line. Blank lines and lines
// starting with '#' are skipped.
func readScores(path string) ([]float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open scores file: %w", err)
	}
	defer f.Close()

	var scores []float64
	scanner := bufio.NewScanner(f)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		v, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: cannot parse %q as a number", line, text)
		}
		scores = append(scores, v)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read scores file: %w", err)
	}
	return scores, nil
}
