// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package validation provides input validation utilities for security-critical operations.
//
// This package contains validators for user-provided inputs that are used in
// file paths or label values. Using these validators prevents injection
// attacks (path traversal, label-value injection).
package validation

import (
	"fmt"
	"regexp"
	"strings"
)

// metricNamePattern matches valid metric names.
// Allows: lowercase letters, digits, underscores, dots, hyphens
// Must start with a letter. Max length: 64 characters.
var metricNamePattern = regexp.MustCompile(`^[a-z][a-z0-9._\-]{0,63}$`)

// ValidateMetricName validates a metric name to prevent path traversal.
//
// Metric names become baseline file names ({dir}/{name}.json) and telemetry
// label values, so they must not contain path separators or escape
// sequences.
//
// Valid names:
//   - 1-64 characters
//   - Lowercase letters a-z (first character must be a letter)
//   - Digits 0-9
//   - Underscores (_), dots (.), hyphens (-)
//
// Returns an error if the name is invalid.
//
// Example:
//
//	if err := validation.ValidateMetricName(name); err != nil {
//	    return fmt.Errorf("invalid metric name: %w", err)
//	}
//	// Safe to use as a file name
func ValidateMetricName(name string) error {
	if name == "" {
		return fmt.Errorf("metric name cannot be empty")
	}

	if !metricNamePattern.MatchString(name) {
		return fmt.Errorf("invalid metric name: %q (must be 1-64 lowercase alphanumeric chars, underscores, dots, or hyphens, starting with a letter)", name)
	}

	// The pattern already excludes "/", but ".." alone would still walk up.
	if strings.Contains(name, "..") {
		return fmt.Errorf("invalid metric name: %q (must not contain %q)", name, "..")
	}

	return nil
}

// ValidateMetricNames validates multiple metric names.
// Returns an error listing all invalid names if any fail validation.
func ValidateMetricNames(names []string) error {
	var invalid []string
	for _, n := range names {
		if err := ValidateMetricName(n); err != nil {
			invalid = append(invalid, n)
		}
	}

	if len(invalid) > 0 {
		return fmt.Errorf("invalid metric names: %v", invalid)
	}
	return nil
}

// SanitizeMetricName normalizes and validates a metric name.
// Returns the lowercase name if valid, or an error if invalid.
//
// Use this when accepting names from scenario files or CLI flags:
//
//	safeName, err := validation.SanitizeMetricName(userInput)
//	if err != nil {
//	    return err
//	}
//	// safeName is lowercase and validated
func SanitizeMetricName(name string) (string, error) {
	normalized := strings.ToLower(strings.TrimSpace(name))
	if err := ValidateMetricName(normalized); err != nil {
		return "", err
	}
	return normalized, nil
}
