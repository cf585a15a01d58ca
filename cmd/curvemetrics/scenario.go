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
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// scenarioValidate validates scenario files after YAML parsing.
var scenarioValidate = validator.New()

// Scenario describes one evaluation run.
//
// Example:
//
//	metadata:
//	  id: roc-validation
//	  version: "1"
//	metric:
//	  name: auc
//	  reorder: true
//	data:
//	  path: points.csv
//	  batch_size: 256
//	gate:
//	  enabled: true
//	  baseline_dir: baselines
//	  relative_tolerance: 0.02
type Scenario struct {
	Metadata MetadataConfig `yaml:"metadata" validate:"required"`
	Metric   MetricConfig   `yaml:"metric" validate:"required"`
	Data     DataConfig     `yaml:"data" validate:"required"`
	Gate     GateConfig     `yaml:"gate"`
}

// MetadataConfig identifies the scenario.
type MetadataConfig struct {
	// ID names the scenario. Used in run IDs and log output.
	ID string `yaml:"id" validate:"required,min=1,max=64"`

	// Version is the scenario version string.
	Version string `yaml:"version" validate:"required"`
}

// MetricConfig selects and configures the metric.
type MetricConfig struct {
	// Name is the metric to compute. Only "auc" is supported.
	Name string `yaml:"name" validate:"required,oneof=auc"`

	// Reorder sorts curve points by x before reduction.
	Reorder bool `yaml:"reorder"`
}

// DataConfig locates the curve points.
type DataConfig struct {
	// Path is the CSV file holding two-column rows. A header row is
	// skipped when the first field does not parse as a number.
	Path string `yaml:"path" validate:"required"`

	// Format selects how the rows are interpreted:
	//   - "points" (default): rows are (x, y) curve points fed directly.
	//   - "roc": rows are (score, label) pairs; ROC (FPR, TPR) points are
	//     derived before accumulation.
	Format string `yaml:"format" validate:"omitempty,oneof=points roc"`

	// BatchSize is the number of points fed per update.
	// Zero feeds the whole file as one batch.
	BatchSize int `yaml:"batch_size" validate:"gte=0"`
}

// GateConfig configures the optional regression gate.
type GateConfig struct {
	// Enabled turns the gate on.
	Enabled bool `yaml:"enabled"`

	// BaselineDir is where baseline JSON files live.
	// Required when the gate is enabled.
	BaselineDir string `yaml:"baseline_dir" validate:"required_if=Enabled true"`

	// RelativeTolerance is the allowed relative score drop (0 to 1).
	RelativeTolerance float64 `yaml:"relative_tolerance" validate:"gte=0,lte=1"`

	// UpdateOnPass stores the new score as the baseline when the gate passes.
	UpdateOnPass bool `yaml:"update_on_pass"`

	// RequireBaseline fails the gate when no baseline exists.
	RequireBaseline bool `yaml:"require_baseline"`
}

// LoadScenario reads and validates a scenario YAML file.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario: %w", err)
	}

	var scenario Scenario
	if err := yaml.Unmarshal(data, &scenario); err != nil {
		return nil, fmt.Errorf("parse scenario: %w", err)
	}

	if err := scenarioValidate.Struct(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// ReadCurvePoints reads "x,y" rows from a CSV file.
//
// A header row is tolerated: the first row is skipped when its first
// field does not parse as a float.
func ReadCurvePoints(path string) (x, y []float64, err error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open data file: %w", err)
	}
	defer f.Close()

	return parseCurvePoints(f)
}

func parseCurvePoints(r io.Reader) (x, y []float64, err error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = 2

	row := 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("read csv row %d: %w", row+1, err)
		}
		row++

		xv, xErr := strconv.ParseFloat(record[0], 64)
		yv, yErr := strconv.ParseFloat(record[1], 64)
		if xErr != nil || yErr != nil {
			if row == 1 {
				// Header row.
				continue
			}
			return nil, nil, fmt.Errorf("row %d: cannot parse %q,%q as numbers", row, record[0], record[1])
		}

		x = append(x, xv)
		y = append(y, yv)
	}

	return x, y, nil
}
