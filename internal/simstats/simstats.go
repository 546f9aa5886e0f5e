// Package simstats aggregates per-episode simulator output into summary
// statistics (avg/min/max/std moves, avg combo, avg tiles cleared),
// using gonum's numerically-stable Mean/Variance implementations in
// place of hand-rolled sums.
package simstats

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// Summary is a gonum-backed descriptive summary of one numeric series.
type Summary struct {
	Mean   float64
	Min    float64
	Max    float64
	StdDev float64
	N      int
}

// Summarize computes Summary over values. An empty input returns the
// zero Summary; a single-element series reports a zero StdDev (the
// sample variance's n-1 divisor is undefined there).
func Summarize(values []float64) Summary {
	if len(values) == 0 {
		return Summary{}
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	mean, variance := stat.MeanVariance(values, nil)
	stdDev := 0.0
	if len(values) > 1 {
		stdDev = math.Sqrt(variance)
	}
	return Summary{
		Mean:   mean,
		Min:    sorted[0],
		Max:    sorted[len(sorted)-1],
		StdDev: stdDev,
		N:      len(values),
	}
}

// Quantile returns the p-th quantile (p in [0,1]) of values using gonum's
// empirical CDF: the smallest value whose cumulative fraction reaches p,
// with no interpolation between values. values need not be pre-sorted.
func Quantile(values []float64, p float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	return stat.Quantile(p, stat.Empirical, sorted, nil)
}

// Rate returns the fraction of trues among n booleans-as-count, i.e.
// count/total, guarding the zero-total case.
func Rate(count, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(count) / float64(total)
}
