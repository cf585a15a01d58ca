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
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/curvemetrics/metric/regression"
)

var baselineDir string

var baselineCmd = &cobra.Command{
	Use:   "baseline",
	Short: "Inspect stored metric baselines",
}

var baselineListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored baselines",
	RunE: func(cmd *cobra.Command, _ []string) error {
		store, err := openBaselineStore()
		if err != nil {
			return err
		}

		names, err := store.List(cmd.Context())
		if err != nil {
			slog.Error("Failed to list baselines", "dir", baselineDir, "error", err)
			return err
		}
		for _, name := range names {
			fmt.Println(name)
		}
		return nil
	},
}

var baselineShowCmd = &cobra.Command{
	Use:   "show <metric>",
	Short: "Show a stored baseline",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openBaselineStore()
		if err != nil {
			return err
		}

		data, err := store.Get(contextOrBackground(cmd), args[0])
		if err != nil {
			slog.Error("Failed to read baseline", "metric", args[0], "error", err)
			return err
		}

		fmt.Printf("metric:   %s\n", data.Metric)
		fmt.Printf("value:    %.6f\n", data.Value)
		fmt.Printf("points:   %d\n", data.Points)
		fmt.Printf("updated:  %s\n", data.UpdatedAt.Format("2006-01-02 15:04:05"))
		return nil
	},
}

var baselineDeleteCmd = &cobra.Command{
	Use:   "delete <metric>",
	Short: "Delete a stored baseline",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openBaselineStore()
		if err != nil {
			return err
		}

		if err := store.Delete(contextOrBackground(cmd), args[0]); err != nil {
			slog.Error("Failed to delete baseline", "metric", args[0], "error", err)
			return err
		}
		slog.Info("Baseline deleted", "metric", args[0])
		return nil
	},
}

func init() {
	baselineCmd.PersistentFlags().StringVar(&baselineDir, "dir", "baselines", "Baseline directory")
	baselineCmd.AddCommand(baselineListCmd, baselineShowCmd, baselineDeleteCmd)
	rootCmd.AddCommand(baselineCmd)
}

func openBaselineStore() (*regression.FileBaselineStore, error) {
	store, err := regression.NewFileBaseline(baselineDir)
	if err != nil {
		slog.Error("Failed to open baseline store", "dir", baselineDir, "error", err)
		return nil, err
	}
	return store, nil
}

func contextOrBackground(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
