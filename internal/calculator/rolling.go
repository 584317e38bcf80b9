package calculator

import (
	"math"
	"sort"
)

// Rolling routines work on trailing, right-aligned windows. A window that is
// incomplete or contains a NaN yields NaN at that position (no partial
// averages). NaN is the in-column marker for "undefined"; callers that
// surface scalars convert it to a fallback.

// PctChange returns v[i]/v[i-1]-1. Index 0, and any step from a zero
// previous value, is NaN.
func PctChange(values []float64) []float64 {
	out := make([]float64, len(values))
	for i := range values {
		if i == 0 || values[i-1] == 0 || math.IsNaN(values[i-1]) {
			out[i] = math.NaN()
			continue
		}
		out[i] = values[i]/values[i-1] - 1
	}
	return out
}

// RollingMean returns the trailing mean over window.
func RollingMean(values []float64, window int) []float64 {
	return rolling(values, window, 1, func(w []float64) float64 {
		return Mean(w)
	})
}

// RollingStd returns the trailing sample standard deviation over window.
func RollingStd(values []float64, window int) []float64 {
	return rolling(values, window, 2, SampleStd)
}

func rolling(values []float64, window, minWindow int, fn func([]float64) float64) []float64 {
	out := make([]float64, len(values))
	for i := range out {
		out[i] = math.NaN()
	}
	if window < minWindow {
		return out
	}
	nanCount := 0
	for i, v := range values {
		if math.IsNaN(v) {
			nanCount++
		}
		if i >= window && math.IsNaN(values[i-window]) {
			nanCount--
		}
		if i+1 < window || nanCount > 0 {
			continue
		}
		out[i] = fn(values[i+1-window : i+1])
	}
	return out
}

// EWMA returns the adjusted exponentially weighted mean with
// alpha = 2/(span+1). Each point is the weighted average of all points so
// far with weights (1-alpha)^age. NaN inputs are skipped.
func EWMA(values []float64, span int) []float64 {
	out := make([]float64, len(values))
	if span < 1 {
		for i := range out {
			out[i] = math.NaN()
		}
		return out
	}
	decay := 1 - 2/(float64(span)+1)
	num, den := 0.0, 0.0
	for i, v := range values {
		if !math.IsNaN(v) {
			num = v + decay*num
			den = 1 + decay*den
		} else {
			num *= decay
			den *= decay
		}
		if den == 0 {
			out[i] = math.NaN()
			continue
		}
		out[i] = num / den
	}
	return out
}

// CumulativeReturn returns prod(1+r)-1 along returns, skipping NaN steps.
// Positions before the first finite return are NaN.
func CumulativeReturn(returns []float64) []float64 {
	out := make([]float64, len(returns))
	acc := 1.0
	started := false
	for i, r := range returns {
		if math.IsNaN(r) {
			if started {
				out[i] = acc - 1
			} else {
				out[i] = math.NaN()
			}
			continue
		}
		started = true
		acc *= 1 + r
		out[i] = acc - 1
	}
	return out
}

// Mean is the arithmetic mean; NaN for empty input.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// Median of values; NaN for empty input.
func Median(values []float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	s := append([]float64(nil), values...)
	sort.Float64s(s)
	mid := len(s) / 2
	if len(s)%2 == 1 {
		return s[mid]
	}
	return (s[mid-1] + s[mid]) / 2
}

// SampleStd is the n-1 standard deviation; NaN below two values.
func SampleStd(values []float64) float64 {
	if len(values) < 2 {
		return math.NaN()
	}
	return math.Sqrt(sumSquares(values) / float64(len(values)-1))
}

// PopulationStd is the n standard deviation; NaN for empty input.
func PopulationStd(values []float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	return math.Sqrt(sumSquares(values) / float64(len(values)))
}

func sumSquares(values []float64) float64 {
	m := Mean(values)
	s := 0.0
	for _, v := range values {
		d := v - m
		s += d * d
	}
	return s
}

// Finite drops NaN and infinite values.
func Finite(values []float64) []float64 {
	out := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			out = append(out, v)
		}
	}
	return out
}

// OrZero maps NaN and ±Inf to 0.
func OrZero(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

func last(values []float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	return values[len(values)-1]
}
