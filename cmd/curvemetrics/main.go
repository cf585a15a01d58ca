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
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/curvemetrics/pkg/logging"
)

var rootCmd = &cobra.Command{
	Use:   "curvemetrics",
	Short: "Streaming curve-metric evaluation",
	Long: `curvemetrics accumulates (x, y) curve points across evaluation batches
and reduces them to scalar scores with the trapezoidal rule.

Scores can be gated against stored baselines to block regressions in
CI/CD pipelines.`,
	SilenceUsage: true,
}

func main() {
	logger := logging.New(logging.Config{
		Level:   logging.LevelInfo,
		Service: "curvemetrics",
	})
	defer logger.Close()
	slog.SetDefault(logger.Slog())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
