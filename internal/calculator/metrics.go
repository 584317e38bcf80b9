package calculator

import (
	"fmt"

	"github.com/guregu/null/v6"

	"MarketLens/internal/model"
)

// Default indicator parameters.
const (
	RSIPeriod       = 14
	BollingerPeriod = 20
	BollingerK      = 2.0
	MACDFast        = 12
	MACDSlow        = 26
	MACDSignal      = 9
)

// PriceChange returns the last close-to-close change and percent change.
// A single bar compares against itself. ok is false for an empty series.
func PriceChange(closes []float64) (change, pct float64, ok bool) {
	if len(closes) == 0 {
		return 0, 0, false
	}
	current := closes[len(closes)-1]
	previous := current
	if len(closes) > 1 {
		previous = closes[len(closes)-2]
	}
	change = current - previous
	if previous != 0 {
		pct = change / previous * 100
	}
	return change, pct, true
}

// CalculateMetrics builds the headline MetricSet. ok is false when the
// series is empty; the returned set is then zero.
func CalculateMetrics(series *model.Series, meta model.IssuerMetadata) (model.MetricSet, bool) {
	if series.Empty() {
		return model.MetricSet{}, false
	}
	closes := extractCloses(series.Bars)
	change, pct, _ := PriceChange(closes)
	high, low, _ := Calculate52WeekRange(series.Bars)
	lastBar, _ := series.Last()

	return model.MetricSet{
		CurrentPrice:  lastBar.Close,
		PriceChange:   change,
		PercentChange: pct,
		Volume:        lastBar.Volume,
		AvgVolume:     int64(OrZero(Mean(series.Volumes()))),
		MarketCap:     FormatMarketCap(meta.MarketCap),
		PERatio:       meta.TrailingPE,
		High52w:       high,
		Low52w:        low,
		Beta:          meta.Beta,
		DividendYield: FormatPercentage(meta.DividendYield),
	}, true
}

// CalculateTechnicalIndicators computes the tail-window indicator snapshot.
// Individual indicators fall back to their neutral values on short series.
func CalculateTechnicalIndicators(series *model.Series) (model.TechnicalIndicators, bool) {
	if series.Empty() {
		return model.TechnicalIndicators{}, false
	}
	closes := extractCloses(series.Bars)
	upper, lower := CalculateBollingerBands(closes, BollingerPeriod, BollingerK)
	line, signal := CalculateMACD(closes, MACDFast, MACDSlow, MACDSignal)
	return model.TechnicalIndicators{
		SMA20:      SMAOrZero(closes, 20),
		SMA50:      SMAOrZero(closes, 50),
		RSI:        CalculateRSI(closes, RSIPeriod),
		BBUpper:    upper,
		BBLower:    lower,
		MACDLine:   line,
		MACDSignal: signal,
	}, true
}

// CalculatePriceStatistics summarises price and volume over the series.
func CalculatePriceStatistics(series *model.Series) (model.PriceStatistics, bool) {
	if series.Empty() {
		return model.PriceStatistics{}, false
	}
	closes := extractCloses(series.Bars)
	high, low, _ := Calculate52WeekRange(series.Bars)
	lastBar, _ := series.Last()
	return model.PriceStatistics{
		CurrentPrice:  lastBar.Close,
		High52w:       high,
		Low52w:        low,
		AvgVolume:     OrZero(Mean(series.Volumes())),
		VolatilityPct: AnnualizedVolatility(closes, TradingDaysPerYear),
		AvgPrice:      OrZero(Mean(closes)),
		MedianPrice:   OrZero(Median(closes)),
	}, true
}

// FormatMarketCap renders a capitalisation with a T/B/M suffix.
func FormatMarketCap(v null.Float) string {
	if !v.Valid || v.Float64 == 0 {
		return "N/A"
	}
	c := v.Float64
	switch {
	case c >= 1e12:
		return fmt.Sprintf("$%.2fT", c/1e12)
	case c >= 1e9:
		return fmt.Sprintf("$%.2fB", c/1e9)
	case c >= 1e6:
		return fmt.Sprintf("$%.2fM", c/1e6)
	default:
		return fmt.Sprintf("$%.0f", c)
	}
}

// FormatPercentage renders a fraction as a percentage with two decimals.
func FormatPercentage(v null.Float) string {
	if !v.Valid || v.Float64 == 0 {
		return "N/A"
	}
	return fmt.Sprintf("%.2f%%", v.Float64*100)
}
