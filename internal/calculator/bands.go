package calculator

import "math"

// CalculateBollingerBands returns SMA(period) ± k·stddev(period) of the last
// window, using the sample standard deviation. (0, 0) when not computable.
func CalculateBollingerBands(closes []float64, period int, k float64) (upper, lower float64) {
	if period < 2 || len(closes) < period {
		return 0, 0
	}
	window := closes[len(closes)-period:]
	mid := Mean(window)
	sd := SampleStd(window)
	upper, lower = mid+k*sd, mid-k*sd
	if math.IsNaN(upper) || math.IsNaN(lower) || math.IsInf(upper, 0) || math.IsInf(lower, 0) {
		return 0, 0
	}
	return upper, lower
}

// CalculateMACD returns the last MACD line and signal values. The line is
// EWMA(fast) - EWMA(slow); the signal is EWMA(line, signal). Series shorter
// than the slow span report (0, 0).
func CalculateMACD(closes []float64, fast, slow, signal int) (line, sig float64) {
	if fast <= 0 || slow <= 0 || signal <= 0 || len(closes) < slow {
		return 0, 0
	}
	emaFast := EWMA(closes, fast)
	emaSlow := EWMA(closes, slow)
	macd := make([]float64, len(closes))
	for i := range closes {
		macd[i] = emaFast[i] - emaSlow[i]
	}
	line = last(macd)
	sig = last(EWMA(macd, signal))
	if math.IsNaN(line) || math.IsNaN(sig) {
		return 0, 0
	}
	return line, sig
}
