// Package stats provides the small descriptive statistics used by price
// outlier detection.
package stats

import "math"

// Mean returns the arithmetic mean of values, or 0 for an empty slice.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// PopulationStdDev returns the population (not sample) standard deviation.
func PopulationStdDev(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	mean := Mean(values)
	var sq float64
	for _, v := range values {
		d := v - mean
		sq += d * d
	}
	return math.Sqrt(sq / float64(len(values)))
}

// ZScore returns (value-mean)/stddev. ok is false when stddev is zero, in
// which case no meaningful deviation exists.
func ZScore(value, mean, stddev float64) (z float64, ok bool) {
	if stddev == 0 || math.IsNaN(stddev) {
		return 0, false
	}
	return (value - mean) / stddev, true
}

// LeaveOneOutZScores scores each value against the mean and population
// standard deviation of the remaining values. Entries whose siblings have
// zero variance are reported with ok[i] = false.
//
// Complexity: O(n) using running sums.
func LeaveOneOutZScores(values []float64) (scores []float64, ok []bool) {
	n := len(values)
	scores = make([]float64, n)
	ok = make([]bool, n)
	if n < 2 {
		return scores, ok
	}

	var sum, sumSq float64
	for _, v := range values {
		sum += v
		sumSq += v * v
	}

	m := float64(n - 1)
	for i, v := range values {
		restMean := (sum - v) / m
		restVar := (sumSq-v*v)/m - restMean*restMean
		if restVar < 1e-9*math.Max(1, restMean*restMean) {
			// Floating-point noise around zero variance.
			restVar = 0
		}
		scores[i], ok[i] = ZScore(v, restMean, math.Sqrt(restVar))
	}
	return scores, ok
}
