// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package stats provides statistical comparison of metric scores.
//
// Two evaluation runs rarely produce identical scores. This package
// answers whether an observed difference between two sets of scores is
// statistically meaningful: Welch's t-test for significance, Cohen's d
// for effect size, confidence intervals (parametric and bootstrap), and
// power analysis for sizing experiments.
package stats

import (
	"errors"
	"math"
	"sort"
	"sync"
)

// -----------------------------------------------------------------------------
// Errors
// -----------------------------------------------------------------------------

var (
	// ErrInsufficientSamples indicates not enough scores for analysis.
	ErrInsufficientSamples = errors.New("insufficient samples for statistical analysis")

	// ErrZeroVariance indicates a score set has zero variance.
	ErrZeroVariance = errors.New("sample set has zero variance")
)

// -----------------------------------------------------------------------------
// Score Collection
// -----------------------------------------------------------------------------

// ScoreCollector accumulates metric scores for statistical analysis.
//
// Description:
//
//	ScoreCollector provides thread-safe collection of per-run metric
//	scores with an optional bound on retained samples. Feed it one score
//	per evaluation run (e.g., one AUC per fold) and compare two
//	collectors with WelchTTest.
//
// Thread Safety: Safe for concurrent use.
type ScoreCollector struct {
	mu        sync.RWMutex
	scores    []float64
	maxScores int
}

// NewScoreCollector creates a new score collector.
//
// Inputs:
//   - maxScores: Maximum scores to retain. Zero means unlimited.
//
// Outputs:
//   - *ScoreCollector: The new collector. Never nil.
func NewScoreCollector(maxScores int) *ScoreCollector {
	return &ScoreCollector{
		scores:    make([]float64, 0, 64),
		maxScores: maxScores,
	}
}

// Add records a new score.
//
// Thread Safety: Safe for concurrent use.
func (c *ScoreCollector) Add(score float64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	// Evict oldest if at capacity
	if c.maxScores > 0 && len(c.scores) >= c.maxScores {
		c.scores = c.scores[1:]
	}

	c.scores = append(c.scores, score)
}

// Scores returns a copy of collected scores.
//
// Thread Safety: Safe for concurrent use.
func (c *ScoreCollector) Scores() []float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()

	result := make([]float64, len(c.scores))
	copy(result, c.scores)
	return result
}

// Count returns the number of scores.
//
// Thread Safety: Safe for concurrent use.
func (c *ScoreCollector) Count() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.scores)
}

// Mean returns the arithmetic mean of collected scores.
//
// Thread Safety: Safe for concurrent use.
func (c *ScoreCollector) Mean() float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return mean(c.scores)
}

// Reset clears all scores.
//
// Thread Safety: Safe for concurrent use.
func (c *ScoreCollector) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.scores = c.scores[:0]
}

// -----------------------------------------------------------------------------
// Statistical Analysis
// -----------------------------------------------------------------------------

// TTestResult holds the results of a t-test.
type TTestResult struct {
	// TStatistic is the computed t-statistic.
	TStatistic float64

	// PValue is the two-tailed p-value.
	PValue float64

	// DegreesOfFreedom is the Welch-Satterthwaite df.
	DegreesOfFreedom float64

	// Significant is true if PValue < significance level.
	Significant bool

	// SignificanceLevel is the alpha used (e.g., 0.05).
	SignificanceLevel float64
}

// WelchTTest performs Welch's t-test for two score sets.
//
// Description:
//
//	Welch's t-test is used when the two samples may have unequal
//	variances. It does not assume equal population variances, making it
//	more robust than Student's t-test.
//
// Inputs:
//   - scores1: First score set. Must have at least 2 scores.
//   - scores2: Second score set. Must have at least 2 scores.
//   - alpha: Significance level (e.g., 0.05 for 95% confidence).
//
// Outputs:
//   - *TTestResult: Test results with t-statistic, p-value, and significance.
//   - error: Non-nil if samples are insufficient.
//
// Thread Safety: This function is stateless and safe for concurrent use.
func WelchTTest(scores1, scores2 []float64, alpha float64) (*TTestResult, error) {
	if len(scores1) < 2 || len(scores2) < 2 {
		return nil, ErrInsufficientSamples
	}

	mean1 := mean(scores1)
	mean2 := mean(scores2)

	var1 := variance(scores1, mean1)
	var2 := variance(scores2, mean2)

	n1 := float64(len(scores1))
	n2 := float64(len(scores2))

	// Standard error
	se := math.Sqrt(var1/n1 + var2/n2)
	if se == 0 {
		return nil, ErrZeroVariance
	}

	// t-statistic
	tStat := (mean1 - mean2) / se

	// Degrees of freedom (Welch-Satterthwaite equation)
	num := math.Pow(var1/n1+var2/n2, 2)
	denom := math.Pow(var1/n1, 2)/(n1-1) + math.Pow(var2/n2, 2)/(n2-1)
	if denom == 0 {
		return nil, ErrZeroVariance
	}
	df := num / denom

	// Calculate p-value
	pValue := tDistributionPValue(math.Abs(tStat), df)

	return &TTestResult{
		TStatistic:        tStat,
		PValue:            pValue,
		DegreesOfFreedom:  df,
		Significant:       pValue < alpha,
		SignificanceLevel: alpha,
	}, nil
}

// ConfidenceInterval represents a statistical confidence interval.
type ConfidenceInterval struct {
	// Lower is the lower bound.
	Lower float64

	// Upper is the upper bound.
	Upper float64

	// Level is the confidence level (e.g., 0.95).
	Level float64

	// Center is the point estimate (mean).
	Center float64
}

// Contains returns true if the interval contains the value.
func (ci *ConfidenceInterval) Contains(v float64) bool {
	return v >= ci.Lower && v <= ci.Upper
}

// Width returns the interval width.
func (ci *ConfidenceInterval) Width() float64 {
	return ci.Upper - ci.Lower
}

// CalculateCI calculates a confidence interval for the mean difference.
//
// Description:
//
//	Calculates a confidence interval for the difference between two
//	mean scores using Welch's method (for unequal variances).
//
// Inputs:
//   - scores1: First score set. Must have at least 2 scores.
//   - scores2: Second score set. Must have at least 2 scores.
//   - level: Confidence level (e.g., 0.95 for 95% CI).
//
// Outputs:
//   - *ConfidenceInterval: The confidence interval for mean1 - mean2.
//   - error: Non-nil if samples are insufficient.
//
// Thread Safety: This function is stateless and safe for concurrent use.
func CalculateCI(scores1, scores2 []float64, level float64) (*ConfidenceInterval, error) {
	if len(scores1) < 2 || len(scores2) < 2 {
		return nil, ErrInsufficientSamples
	}

	mean1 := mean(scores1)
	mean2 := mean(scores2)
	meanDiff := mean1 - mean2

	var1 := variance(scores1, mean1)
	var2 := variance(scores2, mean2)

	n1 := float64(len(scores1))
	n2 := float64(len(scores2))

	// Standard error of the difference
	se := math.Sqrt(var1/n1 + var2/n2)
	if se == 0 {
		// No variance, return point estimate
		return &ConfidenceInterval{
			Lower:  meanDiff,
			Upper:  meanDiff,
			Level:  level,
			Center: meanDiff,
		}, nil
	}

	// Degrees of freedom (Welch-Satterthwaite)
	num := math.Pow(var1/n1+var2/n2, 2)
	denom := math.Pow(var1/n1, 2)/(n1-1) + math.Pow(var2/n2, 2)/(n2-1)
	df := num / denom

	// Get t critical value
	tCrit := tCriticalValue(int(math.Round(df)), level)

	margin := tCrit * se
	return &ConfidenceInterval{
		Lower:  meanDiff - margin,
		Upper:  meanDiff + margin,
		Level:  level,
		Center: meanDiff,
	}, nil
}

// EffectSize calculates Cohen's d effect size.
//
// Description:
//
//	Cohen's d measures the standardized difference between two means.
//	Uses the pooled standard deviation for the denominator.
//
// Inputs:
//   - scores1: First score set. Must not be empty.
//   - scores2: Second score set. Must not be empty.
//
// Outputs:
//   - float64: Cohen's d value. Positive means scores1 > scores2.
//   - error: Non-nil if samples are empty or have zero pooled variance.
//
// Thread Safety: This function is stateless and safe for concurrent use.
func EffectSize(scores1, scores2 []float64) (float64, error) {
	if len(scores1) == 0 || len(scores2) == 0 {
		return 0, ErrInsufficientSamples
	}

	mean1 := mean(scores1)
	mean2 := mean(scores2)

	var1 := variance(scores1, mean1)
	var2 := variance(scores2, mean2)

	n1 := float64(len(scores1))
	n2 := float64(len(scores2))

	// Pooled standard deviation
	pooledVar := ((n1-1)*var1 + (n2-1)*var2) / (n1 + n2 - 2)
	pooledStdDev := math.Sqrt(pooledVar)

	if pooledStdDev == 0 {
		return 0, ErrZeroVariance
	}

	return (mean1 - mean2) / pooledStdDev, nil
}

// EffectCategory categorizes effect sizes using Cohen's conventions.
type EffectCategory int

const (
	// EffectNegligible indicates |d| < 0.2
	EffectNegligible EffectCategory = iota
	// EffectSmall indicates 0.2 <= |d| < 0.5
	EffectSmall
	// EffectMedium indicates 0.5 <= |d| < 0.8
	EffectMedium
	// EffectLarge indicates |d| >= 0.8
	EffectLarge
)

// String returns the string representation.
func (e EffectCategory) String() string {
	switch e {
	case EffectNegligible:
		return "negligible"
	case EffectSmall:
		return "small"
	case EffectMedium:
		return "medium"
	case EffectLarge:
		return "large"
	default:
		return "unknown"
	}
}

// CategorizeEffect returns the category for a Cohen's d value.
func CategorizeEffect(d float64) EffectCategory {
	absD := math.Abs(d)
	switch {
	case absD < 0.2:
		return EffectNegligible
	case absD < 0.5:
		return EffectSmall
	case absD < 0.8:
		return EffectMedium
	default:
		return EffectLarge
	}
}

// -----------------------------------------------------------------------------
// Power Analysis
// -----------------------------------------------------------------------------

// CalculatePower estimates statistical power for the current sample sizes.
//
// Description:
//
//	Power is the probability of correctly rejecting the null hypothesis
//	when there is a true effect. Higher power (e.g., 0.8 or 0.9) means
//	the experiment is more likely to detect real score differences.
//
// Inputs:
//   - n1: Sample size for group 1.
//   - n2: Sample size for group 2.
//   - effectSize: Expected Cohen's d effect size.
//   - alpha: Significance level (e.g., 0.05).
//
// Outputs:
//   - float64: Statistical power (0 to 1).
//
// Thread Safety: This function is stateless and safe for concurrent use.
func CalculatePower(n1, n2 int, effectSize, alpha float64) float64 {
	if n1 < 2 || n2 < 2 {
		return 0
	}

	// Harmonic mean of sample sizes for unequal groups
	nHarmonic := 2 * float64(n1) * float64(n2) / float64(n1+n2)

	// Non-centrality parameter
	ncp := effectSize * math.Sqrt(nHarmonic/2)

	// Degrees of freedom
	df := float64(n1 + n2 - 2)

	// Critical value for alpha
	tCrit := tCriticalValue(int(df), 1-alpha)

	// Power approximation using non-central t-distribution
	// Using normal approximation for simplicity
	power := 1 - normalCDF(tCrit-ncp)

	// Clamp to valid range
	if power < 0 {
		power = 0
	}
	if power > 1 {
		power = 1
	}

	return power
}

// RequiredSampleSize calculates samples needed for desired power.
//
// Description:
//
//	Determines the minimum number of evaluation runs per group needed to
//	achieve a specified power level for detecting a given effect size.
//
// Inputs:
//   - effectSize: Expected Cohen's d effect size.
//   - alpha: Significance level (e.g., 0.05).
//   - power: Desired power (e.g., 0.8 for 80% power).
//
// Outputs:
//   - int: Required sample size per group.
//
// Thread Safety: This function is stateless and safe for concurrent use.
func RequiredSampleSize(effectSize, alpha, power float64) int {
	if effectSize == 0 {
		return math.MaxInt32 // Infinite samples needed for zero effect
	}

	// Using Cohen's formula for two-sample t-test
	// n = 2 * ((z_alpha + z_power) / d)^2

	zAlpha := zScore(1 - alpha/2) // Two-tailed
	zPower := zScore(power)

	n := 2 * math.Pow((zAlpha+zPower)/effectSize, 2)

	// Add 1 and ceiling for conservative estimate
	return int(math.Ceil(n)) + 1
}

// -----------------------------------------------------------------------------
// Bootstrap Methods
// -----------------------------------------------------------------------------

// BootstrapCI calculates a bootstrap confidence interval.
//
// Description:
//
//	Uses bootstrap resampling to construct a confidence interval
//	for the mean score difference. More robust than parametric methods
//	when score distributions are non-normal.
//
// Inputs:
//   - scores1: First score set. Must have at least 2 scores.
//   - scores2: Second score set. Must have at least 2 scores.
//   - level: Confidence level (e.g., 0.95).
//   - nBootstrap: Number of bootstrap iterations (recommend 10000+).
//
// Outputs:
//   - *ConfidenceInterval: Bootstrap percentile interval.
//   - error: Non-nil if samples are insufficient.
//
// Thread Safety: This function is stateless and safe for concurrent use.
func BootstrapCI(scores1, scores2 []float64, level float64, nBootstrap int) (*ConfidenceInterval, error) {
	if len(scores1) < 2 || len(scores2) < 2 {
		return nil, ErrInsufficientSamples
	}
	if nBootstrap < 100 {
		nBootstrap = 100
	}

	// Use linear congruential generator for deterministic results
	seed := uint64(12345)
	lcg := func() uint64 {
		seed = seed*6364136223846793005 + 1442695040888963407
		return seed
	}

	diffs := make([]float64, nBootstrap)

	for i := 0; i < nBootstrap; i++ {
		// Resample with replacement
		boot1 := resample(scores1, lcg)
		boot2 := resample(scores2, lcg)

		diffs[i] = mean(boot1) - mean(boot2)
	}

	// Sort differences
	sort.Float64s(diffs)

	// Percentile method
	alphaLower := (1 - level) / 2
	alphaUpper := 1 - alphaLower

	lowerIdx := int(alphaLower * float64(nBootstrap))
	upperIdx := int(alphaUpper * float64(nBootstrap))

	if lowerIdx < 0 {
		lowerIdx = 0
	}
	if upperIdx >= nBootstrap {
		upperIdx = nBootstrap - 1
	}

	return &ConfidenceInterval{
		Lower:  diffs[lowerIdx],
		Upper:  diffs[upperIdx],
		Level:  level,
		Center: mean(scores1) - mean(scores2),
	}, nil
}

// resample creates a bootstrap sample using the provided RNG.
func resample(scores []float64, rng func() uint64) []float64 {
	n := len(scores)
	result := make([]float64, n)
	for i := 0; i < n; i++ {
		idx := int(rng() % uint64(n))
		result[i] = scores[idx]
	}
	return result
}

// -----------------------------------------------------------------------------
// Helper Functions
// -----------------------------------------------------------------------------

// mean calculates the arithmetic mean.
func mean(scores []float64) float64 {
	if len(scores) == 0 {
		return 0
	}
	var sum float64
	for _, s := range scores {
		sum += s
	}
	return sum / float64(len(scores))
}

// variance calculates population variance.
func variance(scores []float64, mean float64) float64 {
	if len(scores) == 0 {
		return 0
	}
	var sumSq float64
	for _, s := range scores {
		diff := s - mean
		sumSq += diff * diff
	}
	return sumSq / float64(len(scores))
}

// normalCDF approximates the standard normal CDF.
func normalCDF(x float64) float64 {
	return 0.5 * (1 + math.Erf(x/math.Sqrt(2)))
}

// zScore returns the z-score for a given percentile.
func zScore(p float64) float64 {
	if p <= 0 {
		return math.Inf(-1)
	}
	if p >= 1 {
		return math.Inf(1)
	}

	// For p in (0,1): z = sqrt(2) * erfinv(2p - 1)
	return math.Sqrt(2) * math.Erfinv(2*p-1)
}

// tDistributionPValue approximates the two-tailed p-value.
func tDistributionPValue(t, df float64) float64 {
	if df <= 0 {
		return 1
	}

	// For large df, use normal approximation
	if df >= 30 {
		return 2 * (1 - normalCDF(t))
	}

	// For smaller df, adjust t-statistic to approximate t-distribution
	adjustedT := t * math.Sqrt(df/(df-2+0.001))
	pValue := 2 * (1 - normalCDF(adjustedT))

	// Clamp to valid range
	if pValue < 0 {
		pValue = 0
	}
	if pValue > 1 {
		pValue = 1
	}

	return pValue
}

// tCriticalValue returns approximate t critical value for two-tailed test.
func tCriticalValue(df int, level float64) float64 {
	// Pre-computed values for common cases
	if df >= 30 {
		switch {
		case level >= 0.99:
			return 2.576
		case level >= 0.95:
			return 1.96
		case level >= 0.90:
			return 1.645
		default:
			return 1.96
		}
	}

	// Table lookup for small df
	t95 := []float64{12.706, 4.303, 3.182, 2.776, 2.571, 2.447, 2.365, 2.306, 2.262, 2.228,
		2.201, 2.179, 2.160, 2.145, 2.131, 2.120, 2.110, 2.101, 2.093, 2.086,
		2.080, 2.074, 2.069, 2.064, 2.060, 2.056, 2.052, 2.048, 2.045, 2.042}
	t99 := []float64{63.657, 9.925, 5.841, 4.604, 4.032, 3.707, 3.499, 3.355, 3.250, 3.169,
		3.106, 3.055, 3.012, 2.977, 2.947, 2.921, 2.898, 2.878, 2.861, 2.845,
		2.831, 2.819, 2.807, 2.797, 2.787, 2.779, 2.771, 2.763, 2.756, 2.750}

	if df < 1 {
		df = 1
	}

	switch {
	case level >= 0.99:
		return t99[df-1]
	case level >= 0.95:
		return t95[df-1]
	default:
		return t95[df-1] * 0.85 // Approximate for 90%
	}
}
