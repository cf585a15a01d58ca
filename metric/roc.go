// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package metric

import (
	"errors"
	"fmt"
	"sort"
)

// -----------------------------------------------------------------------------
// ROC Curve Extraction
// -----------------------------------------------------------------------------

// ROCPoints derives ROC curve coordinates from scores and binary labels.
//
// Description:
//
//	Sorts (score, label) pairs by descending score and sweeps the decision
//	threshold across distinct score values, emitting one (FPR, TPR) point
//	per threshold. The curve starts at (0, 0) and ends at (1, 1), with x
//	ascending, so it feeds the AUC accumulator directly:
//
//	    fpr, tpr, err := metric.ROCPoints(scores, labels)
//	    ...
//	    err = auc.Update(fpr, tpr)
//
// Inputs:
//   - scores: Classifier scores or probabilities. Must not be empty.
//   - labels: Ground-truth labels, strictly 0 or 1. Same length as scores.
//
// Outputs:
//   - []float64: False positive rates, ascending.
//   - []float64: True positive rates, paired with the FPRs.
//   - error: ErrEmptyInput, ErrLengthMismatch, ErrNonBinaryLabel, or
//     ErrSingleClass when every label is the same.
//
// Thread Safety: Stateless function; safe for concurrent use.
func ROCPoints(scores, labels []float64) ([]float64, []float64, error) {
	if len(scores) == 0 {
		return nil, nil, ErrEmptyInput
	}
	if len(scores) != len(labels) {
		return nil, nil, fmt.Errorf("%w: scores has %d elements, labels has %d",
			ErrLengthMismatch, len(scores), len(labels))
	}

	totalPos, totalNeg := 0.0, 0.0
	for i, l := range labels {
		if l != 0 && l != 1 {
			return nil, nil, fmt.Errorf("%w: found %v at index %d", ErrNonBinaryLabel, l, i)
		}
		if l == 1 {
			totalPos++
		} else {
			totalNeg++
		}
	}
	if totalPos == 0 || totalNeg == 0 {
		return nil, nil, ErrSingleClass
	}

	type pair struct {
		score float64
		label float64
	}
	pairs := make([]pair, len(scores))
	for i := range scores {
		pairs[i] = pair{score: scores[i], label: labels[i]}
	}
	sort.SliceStable(pairs, func(i, j int) bool {
		return pairs[i].score > pairs[j].score
	})

	fpr := []float64{0}
	tpr := []float64{0}

	tp, fp := 0.0, 0.0
	for i, p := range pairs {
		if p.label == 1 {
			tp++
		} else {
			fp++
		}
		// Emit a point only once all pairs tied at this score are consumed.
		if i+1 < len(pairs) && pairs[i+1].score == p.score {
			continue
		}
		fpr = append(fpr, fp/totalNeg)
		tpr = append(tpr, tp/totalPos)
	}

	return fpr, tpr, nil
}

// ROCAUC computes the area under the ROC curve in one shot.
//
// Description:
//
//	Convenience wrapper: extracts ROC points and integrates them with the
//	trapezoidal rule. When all labels belong to one class the AUC is
//	undefined; 0.5 (a random classifier) is returned instead of an error.
//
// Inputs:
//   - scores: Classifier scores or probabilities. Must not be empty.
//   - labels: Ground-truth labels, strictly 0 or 1. Same length as scores.
//
// Outputs:
//   - float64: The ROC AUC in [0, 1].
//   - error: ErrEmptyInput, ErrLengthMismatch, or ErrNonBinaryLabel.
//
// Thread Safety: Stateless function; safe for concurrent use.
func ROCAUC(scores, labels []float64) (float64, error) {
	fpr, tpr, err := ROCPoints(scores, labels)
	if err != nil {
		if errors.Is(err, ErrSingleClass) {
			return 0.5, nil
		}
		return 0, err
	}
	return Trapezoid(fpr, tpr)
}
