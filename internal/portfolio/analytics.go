// Package portfolio aggregates per-holding series into portfolio metrics and
// keeps a small book of named portfolios.
package portfolio

import (
	"math"
	"sort"

	"github.com/shopspring/decimal"

	"MarketLens/internal/calculator"
	"MarketLens/internal/model"
)

const (
	// RiskFreeRate is the annual rate used by the Sharpe ratio.
	RiskFreeRate = 0.02
	// VolatilityDays is the trailing window for portfolio volatility.
	VolatilityDays = 30
)

// position is a holding with its price series.
type position struct {
	symbol  string
	holding model.Holding
	series  *model.Series
}

func (p position) investment() decimal.Decimal {
	return decimal.NewFromFloat(p.holding.Shares).Mul(decimal.NewFromFloat(p.holding.PurchasePrice))
}

// positions pairs holdings with non-empty series, sorted by symbol.
// Holdings without data are left out.
func positions(holdings map[string]model.Holding, data map[string]*model.Series) []position {
	out := make([]position, 0, len(holdings))
	for sym, h := range holdings {
		s, ok := data[sym]
		if !ok || s.Empty() {
			continue
		}
		out = append(out, position{symbol: sym, holding: h, series: s})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].symbol < out[j].symbol })
	return out
}

// Analyze computes PortfolioMetrics. ok is false when no holding has data or
// the total investment is zero.
func Analyze(holdings map[string]model.Holding, data map[string]*model.Series) (model.PortfolioMetrics, bool) {
	pos := positions(holdings, data)
	if len(pos) == 0 {
		return model.PortfolioMetrics{}, false
	}

	totalInvestment := decimal.Zero
	currentValue := decimal.Zero
	for _, p := range pos {
		last, _ := p.series.Last()
		totalInvestment = totalInvestment.Add(p.investment())
		currentValue = currentValue.Add(decimal.NewFromFloat(p.holding.Shares).Mul(decimal.NewFromFloat(last.Close)))
	}
	if !totalInvestment.IsPositive() {
		return model.PortfolioMetrics{}, false
	}

	totalReturn := currentValue.Sub(totalInvestment)
	weights := investmentWeights(pos, totalInvestment)
	weighted := weightedReturn(pos, weights)
	vol := volatility(pos, weights, VolatilityDays)

	sharpe := 0.0
	if vol > 0 {
		sharpe = (weighted - RiskFreeRate) / vol
	}

	return model.PortfolioMetrics{
		TotalInvestment:   totalInvestment.InexactFloat64(),
		CurrentValue:      currentValue.InexactFloat64(),
		TotalReturn:       totalReturn.InexactFloat64(),
		TotalReturnPct:    totalReturn.Div(totalInvestment).Mul(decimal.NewFromInt(100)).InexactFloat64(),
		WeightedReturnPct: weighted * 100,
		VolatilityPct:     vol * 100,
		SharpeRatio:       calculator.OrZero(sharpe),
		MaxDrawdownPct:    MaxDrawdown(valueSeries(pos)) * 100,
		HoldingCount:      len(holdings),
	}, true
}

// investmentWeights returns each position's share of the total investment.
func investmentWeights(pos []position, total decimal.Decimal) []float64 {
	w := make([]float64, len(pos))
	for i, p := range pos {
		w[i] = p.investment().Div(total).InexactFloat64()
	}
	return w
}

func weightedReturn(pos []position, weights []float64) float64 {
	sum := 0.0
	for i, p := range pos {
		last, _ := p.series.Last()
		pp := p.holding.PurchasePrice
		if pp == 0 {
			continue
		}
		sum += (last.Close - pp) / pp * weights[i]
	}
	return sum
}

// volatility is the annualised population std of the weighted daily
// portfolio return over the last min(days, shortest-1) days, as a fraction.
func volatility(pos []position, weights []float64, days int) float64 {
	n := shortest(pos) - 1
	if days < n {
		n = days
	}
	if n < 2 {
		return 0
	}
	returns := make([]float64, n)
	for offset := 0; offset < n; offset++ {
		daily := 0.0
		for i, p := range pos {
			bars := p.series.Bars
			today := bars[len(bars)-1-offset].Close
			prev := bars[len(bars)-2-offset].Close
			if prev == 0 {
				continue
			}
			daily += weights[i] * (today/prev - 1)
		}
		returns[offset] = daily
	}
	return calculator.OrZero(calculator.PopulationStd(returns) * math.Sqrt(calculator.TradingDaysPerYear))
}

func shortest(pos []position) int {
	n := math.MaxInt
	for _, p := range pos {
		if l := p.series.Len(); l < n {
			n = l
		}
	}
	if n == math.MaxInt {
		return 0
	}
	return n
}

// valueSeries is the per-bar sum of shares*close, aligned on the most
// recent bars and truncated to the shortest series.
func valueSeries(pos []position) []float64 {
	n := shortest(pos)
	values := make([]float64, n)
	for _, p := range pos {
		bars := p.series.Bars[len(p.series.Bars)-n:]
		for i, b := range bars {
			values[i] += p.holding.Shares * b.Close
		}
	}
	return values
}

// MaxDrawdown is the largest peak-to-trough decline of values as a fraction
// in [0, 1]. Empty or non-positive input yields 0.
func MaxDrawdown(values []float64) float64 {
	peak := math.Inf(-1)
	worst := 0.0
	for _, v := range values {
		if math.IsNaN(v) {
			continue
		}
		if v > peak {
			peak = v
		}
		if peak <= 0 {
			continue
		}
		if dd := (peak - v) / peak; dd > worst {
			worst = dd
		}
	}
	return math.Min(worst, 1)
}

// Allocation returns each holding's share of current value, sorted by symbol.
func Allocation(holdings map[string]model.Holding, data map[string]*model.Series) []model.AllocationSlice {
	pos := positions(holdings, data)
	slices := make([]model.AllocationSlice, len(pos))
	total := 0.0
	for i, p := range pos {
		last, _ := p.series.Last()
		v := p.holding.Shares * last.Close
		slices[i] = model.AllocationSlice{Symbol: p.symbol, Value: v}
		total += v
	}
	if total > 0 {
		for i := range slices {
			slices[i].Percent = slices[i].Value / total * 100
		}
	}
	return slices
}

// Timeline returns the portfolio value and return versus the initial
// investment for each aligned bar.
func Timeline(holdings map[string]model.Holding, data map[string]*model.Series) []model.TimelinePoint {
	pos := positions(holdings, data)
	if len(pos) == 0 {
		return nil
	}
	initial := decimal.Zero
	for _, p := range pos {
		initial = initial.Add(p.investment())
	}
	if !initial.IsPositive() {
		return nil
	}
	base := initial.InexactFloat64()

	values := valueSeries(pos)
	ref := pos[0].series.Bars[pos[0].series.Len()-len(values):]
	points := make([]model.TimelinePoint, len(values))
	for i, v := range values {
		points[i] = model.TimelinePoint{
			Date:      ref[i].Date,
			Value:     v,
			ReturnPct: (v/base - 1) * 100,
		}
	}
	return points
}
