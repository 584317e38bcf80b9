package model

import "time"

// Holding is one position in a portfolio.
type Holding struct {
	Shares        float64 `json:"shares" validate:"gt=0"`
	PurchasePrice float64 `json:"purchase_price" validate:"gt=0"`
}

// PortfolioMetrics is the aggregate performance of a set of holdings.
type PortfolioMetrics struct {
	TotalInvestment   float64 `json:"total_investment"`
	CurrentValue      float64 `json:"current_value"`
	TotalReturn       float64 `json:"total_return"`
	TotalReturnPct    float64 `json:"total_return_pct"`
	WeightedReturnPct float64 `json:"weighted_return_pct"`
	VolatilityPct     float64 `json:"volatility_pct"`
	SharpeRatio       float64 `json:"sharpe_ratio"`
	MaxDrawdownPct    float64 `json:"max_drawdown_pct"`
	HoldingCount      int     `json:"holding_count"`
}

// AllocationSlice is one wedge of the allocation view.
type AllocationSlice struct {
	Symbol  string  `json:"symbol"`
	Value   float64 `json:"value"`
	Percent float64 `json:"percent"`
}

// TimelinePoint is the portfolio return on one date.
type TimelinePoint struct {
	Date      time.Time `json:"date"`
	Value     float64   `json:"value"`
	ReturnPct float64   `json:"return_pct"`
}

// Portfolio is a named, persisted set of holdings keyed by symbol.
type Portfolio struct {
	Name      string             `json:"name"`
	Holdings  map[string]Holding `json:"holdings"`
	CreatedAt time.Time          `json:"created_at"`
	UpdatedAt time.Time          `json:"updated_at"`
}
