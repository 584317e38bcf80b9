package calculator

import "math"

const (
	// TradingDaysPerYear annualises equity returns.
	TradingDaysPerYear = 252
	// CalendarDaysPerYear annualises crypto returns, which trade every day.
	CalendarDaysPerYear = 365
)

// AnnualizedVolatility is stddev(daily pct change)·√periodsPerYear·100.
// Returns 0 when fewer than two daily changes exist.
func AnnualizedVolatility(closes []float64, periodsPerYear int) float64 {
	returns := Finite(PctChange(closes))
	if len(returns) < 2 {
		return 0
	}
	return OrZero(SampleStd(returns) * math.Sqrt(float64(periodsPerYear)) * 100)
}
