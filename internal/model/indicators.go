package model

import "github.com/guregu/null/v6"

// MetricSet is the headline metrics block for one symbol.
type MetricSet struct {
	CurrentPrice  float64    `json:"current_price"`
	PriceChange   float64    `json:"price_change"`
	PercentChange float64    `json:"percent_change"`
	Volume        int64      `json:"volume"`
	AvgVolume     int64      `json:"avg_volume"`
	MarketCap     string     `json:"market_cap"`
	PERatio       null.Float `json:"pe_ratio"`
	High52w       float64    `json:"high_52w"`
	Low52w        float64    `json:"low_52w"`
	Beta          null.Float `json:"beta"`
	DividendYield string     `json:"dividend_yield"`
}

// TechnicalIndicators is the tail-window indicator snapshot.
type TechnicalIndicators struct {
	SMA20      float64 `json:"sma_20"`
	SMA50      float64 `json:"sma_50"`
	RSI        float64 `json:"rsi"`
	BBUpper    float64 `json:"bb_upper"`
	BBLower    float64 `json:"bb_lower"`
	MACDLine   float64 `json:"macd_line"`
	MACDSignal float64 `json:"macd_signal"`
}

// PriceStatistics summarises the price distribution of a series.
type PriceStatistics struct {
	CurrentPrice  float64 `json:"current_price"`
	High52w       float64 `json:"high_52w"`
	Low52w        float64 `json:"low_52w"`
	AvgVolume     float64 `json:"avg_volume"`
	VolatilityPct float64 `json:"price_volatility"`
	AvgPrice      float64 `json:"avg_price"`
	MedianPrice   float64 `json:"median_price"`
}

// Quote is a last-vs-previous close snapshot used by trending views.
type Quote struct {
	Symbol        string  `json:"symbol"`
	Name          string  `json:"name,omitempty"`
	Price         float64 `json:"price"`
	Change        float64 `json:"change"`
	ChangePercent float64 `json:"change_percent"`
}
