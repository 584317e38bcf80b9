package model

import (
	"errors"
	"strings"
	"time"
)

// OHLCV represents a single daily bar.
type OHLCV struct {
	Date        time.Time `json:"date"`
	Open        float64   `json:"open"`
	High        float64   `json:"high"`
	Low         float64   `json:"low"`
	Close       float64   `json:"close"`
	Volume      int64     `json:"volume"`
	Dividends   float64   `json:"dividends"`
	StockSplits float64   `json:"stock_splits"`
}

// Series is an ordered run of daily bars for one symbol and period.
// Dates are strictly increasing. A Series returned by the repository is
// shared and must not be mutated; derive new slices instead.
type Series struct {
	Symbol    string    `json:"symbol"`
	Period    Period    `json:"period"`
	Bars      []OHLCV   `json:"bars"`
	FetchedAt time.Time `json:"fetched_at"`
}

// Len returns the number of bars, tolerating a nil series.
func (s *Series) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Bars)
}

// Empty reports whether the series has no bars.
func (s *Series) Empty() bool { return s.Len() == 0 }

// Closes extracts the close column.
func (s *Series) Closes() []float64 {
	out := make([]float64, s.Len())
	for i, b := range s.Bars {
		out[i] = b.Close
	}
	return out
}

// Volumes extracts the volume column as floats.
func (s *Series) Volumes() []float64 {
	out := make([]float64, s.Len())
	for i, b := range s.Bars {
		out[i] = float64(b.Volume)
	}
	return out
}

// Last returns the most recent bar.
func (s *Series) Last() (OHLCV, bool) {
	if s.Empty() {
		return OHLCV{}, false
	}
	return s.Bars[len(s.Bars)-1], true
}

// Period is a provider history range.
type Period string

const (
	Period1D  Period = "1d"
	Period5D  Period = "5d"
	Period1M  Period = "1mo"
	Period3M  Period = "3mo"
	Period6M  Period = "6mo"
	Period1Y  Period = "1y"
	Period2Y  Period = "2y"
	Period5Y  Period = "5y"
	Period10Y Period = "10y"
	PeriodYTD Period = "ytd"
	PeriodMax Period = "max"
)

// DefaultPeriod is used when a caller leaves the period empty.
const DefaultPeriod = Period1Y

// ErrInvalidPeriod is returned for periods outside the supported set.
var ErrInvalidPeriod = errors.New("invalid period")

var periods = map[Period]bool{
	Period1D: true, Period5D: true, Period1M: true, Period3M: true, Period6M: true,
	Period1Y: true, Period2Y: true, Period5Y: true, Period10Y: true, PeriodYTD: true, PeriodMax: true,
}

// ParsePeriod validates a period string. Empty input yields DefaultPeriod.
func ParsePeriod(s string) (Period, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return DefaultPeriod, nil
	}
	p := Period(s)
	if !periods[p] {
		return "", ErrInvalidPeriod
	}
	return p, nil
}

// CryptoSuffix marks crypto pairs quoted in USD.
const CryptoSuffix = "-USD"

// NormalizeSymbol upper-cases and trims a ticker.
func NormalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

// NormalizeCryptoSymbol appends the -USD suffix when absent.
func NormalizeCryptoSymbol(symbol string) string {
	s := NormalizeSymbol(symbol)
	if s == "" || strings.HasSuffix(s, CryptoSuffix) {
		return s
	}
	return s + CryptoSuffix
}
