package stats

import (
	"math"
	"sort"
)

// Mean calculates the arithmetic mean of a slice of float64 values
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

// Variance calculates the sample variance
func Variance(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}

	mean := Mean(values)
	var sumSquaredDiff float64
	for _, v := range values {
		diff := v - mean
		sumSquaredDiff += diff * diff
	}

	return sumSquaredDiff / float64(len(values)-1)
}

// StdDev calculates the sample standard deviation
func StdDev(values []float64) float64 {
	return math.Sqrt(Variance(values))
}

// RollingMean calculates a centered rolling mean. Positions where the full
// window does not fit are 0. For even windows the extra element falls on the
// trailing side.
func RollingMean(values []float64, window int) []float64 {
	out := make([]float64, len(values))
	if window < 1 || len(values) < window {
		return out
	}

	for i := range values {
		lo := i - window/2
		hi := lo + window
		if lo < 0 || hi > len(values) {
			continue
		}
		out[i] = Mean(values[lo:hi])
	}
	return out
}

// RollingStd calculates a centered rolling sample standard deviation.
// Positions where the full window does not fit are 0.
func RollingStd(values []float64, window int) []float64 {
	out := make([]float64, len(values))
	if window < 2 || len(values) < window {
		return out
	}

	for i := range values {
		lo := i - window/2
		hi := lo + window
		if lo < 0 || hi > len(values) {
			continue
		}
		out[i] = StdDev(values[lo:hi])
	}
	return out
}

// Percentile calculates the p-th percentile of the data (p in [0, 100])
func Percentile(values []float64, p float64) float64 {
	if len(values) == 0 {
		return 0
	}

	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	idx := int(float64(len(sorted)-1) * p / 100)
	if idx < 0 {
		idx = 0
	}
	if idx > len(sorted)-1 {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}
