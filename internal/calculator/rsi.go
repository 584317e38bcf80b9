package calculator

// NeutralRSI is reported whenever RSI cannot be computed.
const NeutralRSI = 50.0

// CalculateRSI computes RSI from simple rolling means of gains and losses
// over the last `period` close-to-close deltas. The first bar has no
// predecessor and counts as a zero delta, so `period` closes suffice.
// Returns NeutralRSI when the series is too short or the loss average is 0.
func CalculateRSI(closes []float64, period int) float64 {
	if period <= 0 || len(closes) < period {
		return NeutralRSI
	}

	var avgGain, avgLoss float64
	for i := len(closes) - period; i < len(closes); i++ {
		if i == 0 {
			continue
		}
		change := closes[i] - closes[i-1]
		if change > 0 {
			avgGain += change
		} else {
			avgLoss -= change
		}
	}
	avgGain /= float64(period)
	avgLoss /= float64(period)

	if avgLoss == 0 {
		return NeutralRSI
	}
	rs := avgGain / avgLoss
	return 100.0 - 100.0/(1.0+rs)
}
