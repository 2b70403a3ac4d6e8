package common

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Basic statistical helpers shared by the estimators and classifiers, using
// gonum where it covers the computation

// Mean calculates the arithmetic mean of a slice using gonum
func Mean(data []float64) float64 {
	if len(data) == 0 {
		return 0.0
	}
	return stat.Mean(data, nil)
}

// Variance calculates the sample variance of a slice using gonum
func Variance(data []float64) float64 {
	if len(data) < 2 {
		return 0.0
	}
	return stat.Variance(data, nil)
}

// StandardDeviation calculates the sample standard deviation
func StandardDeviation(data []float64) float64 {
	if len(data) < 2 {
		return 0.0
	}
	return math.Sqrt(Variance(data))
}

// Median returns the middle value, averaging the two central values for even
// lengths. An empty slice yields 0.
func Median(data []float64) float64 {
	n := len(data)
	if n == 0 {
		return 0.0
	}

	sorted := make([]float64, n)
	copy(sorted, data)
	sort.Float64s(sorted)

	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

// Percentile calculates the p-th percentile (p between 0 and 1) with linear
// interpolation between closest ranks
func Percentile(data []float64, p float64) float64 {
	if len(data) == 0 || p < 0 || p > 1 {
		return 0.0
	}

	sorted := make([]float64, len(data))
	copy(sorted, data)
	sort.Float64s(sorted)

	return stat.Quantile(p, stat.LinInterp, sorted, nil)
}

// Sum adds all values using gonum
func Sum(data []float64) float64 {
	if len(data) == 0 {
		return 0.0
	}
	return floats.Sum(data)
}

// MinMax returns the extremes of data, (0, 0) when empty
func MinMax(data []float64) (lo, hi float64) {
	if len(data) == 0 {
		return 0, 0
	}
	return floats.Min(data), floats.Max(data)
}

// Detrend removes the least-squares line through data indexed 0..n-1
func Detrend(data []float64) []float64 {
	out := make([]float64, len(data))
	if len(data) < 2 {
		copy(out, data)
		return out
	}

	x := make([]float64, len(data))
	for i := range x {
		x[i] = float64(i)
	}
	alpha, beta := stat.LinearRegression(x, data, nil, false)

	for i, v := range data {
		out[i] = v - (alpha + beta*x[i])
	}
	return out
}

// NormalizedAutocorrelation returns the autocorrelation of a zero-mean
// series at lag, in [-1, 1]. Zero-energy input yields 0.
func NormalizedAutocorrelation(data []float64, lag int) float64 {
	if lag <= 0 || lag >= len(data) {
		return 0.0
	}

	energy := floats.Dot(data, data)
	if energy == 0 {
		return 0.0
	}
	return floats.Dot(data[:len(data)-lag], data[lag:]) / energy
}

// Clamp limits value to [min, max]
func Clamp(value, min, max float64) float64 {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}

// Clamp01 limits a confidence value to [0, 1]
func Clamp01(value float64) float64 {
	if math.IsNaN(value) {
		return 0
	}
	return Clamp(value, 0, 1)
}
