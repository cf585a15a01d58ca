// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

/*
Package metric provides streaming metric accumulators for model evaluation.

# Overview

The metric package implements accumulate-then-reduce evaluation metrics:
per-batch model outputs are fed to Update, buffered, and reduced to a single
scalar by Compute. The flagship metric is AUC (Area Under the Curve), computed
with the trapezoidal rule over buffered curve coordinates.

	auc := metric.NewAUC(metric.WithReorder(true))

	for _, batch := range batches {
	    if err := auc.Update(batch.Preds, batch.Targets); err != nil {
	        return err
	    }
	}

	score, err := auc.Compute()

# Architecture

	┌──────────────────────────────────────────────────────────────┐
	│                          Metric                              │
	│                                                              │
	│   Update(preds, target) ──► ListState x   ListState y        │
	│                                 │             │              │
	│                                 ▼             ▼              │
	│   Compute() ────────────►  Cat() ──► reorder? ──► Trapezoid  │
	│                                                              │
	│   Merge(shard) ─────────►  shard-wise concatenation          │
	└──────────────────────────────────────────────────────────────┘

State lives in ListState buffers: append-only sequences of vectors with a
declared Reduction strategy used when shards from parallel evaluation workers
are merged. Concatenation preserves append order, so Compute after N updates
equals Compute over the single concatenation of all N batches.

# Memory

Accumulating metrics buffer every update until Reset. For large evaluation
sets this grows without bound; constructors emit a one-time warning through
the configured logger.

# Thread Safety

All metric types are safe for concurrent use. The numeric helpers
(Trapezoid, ROCPoints) are stateless.
*/
package metric
