package portfolio

import (
	"math"
	"testing"
	"time"

	"MarketLens/internal/model"
)

func series(closes ...float64) *model.Series {
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	bars := make([]model.OHLCV, len(closes))
	for i, c := range closes {
		bars[i] = model.OHLCV{Date: start.AddDate(0, 0, i), Open: c, High: c, Low: c, Close: c, Volume: 10}
	}
	return &model.Series{Bars: bars}
}

func TestAnalyze_SingleHolding(t *testing.T) {
	holdings := map[string]model.Holding{"AAPL": {Shares: 10, PurchasePrice: 150}}
	data := map[string]*model.Series{"AAPL": series(150, 158, 165)}

	m, ok := Analyze(holdings, data)
	if !ok {
		t.Fatal("expected metrics")
	}
	if m.TotalInvestment != 1500 || m.CurrentValue != 1650 || m.TotalReturn != 150 {
		t.Errorf("unexpected valuation %+v", m)
	}
	if m.TotalReturnPct != 10.0 {
		t.Errorf("expected total return 10%%, got %f", m.TotalReturnPct)
	}
	if math.Abs(m.WeightedReturnPct-10.0) > 1e-9 {
		t.Errorf("expected weighted return 10%%, got %f", m.WeightedReturnPct)
	}
	if m.HoldingCount != 1 {
		t.Errorf("expected 1 holding, got %d", m.HoldingCount)
	}
	if m.MaxDrawdownPct != 0 {
		t.Errorf("rising values must have zero drawdown, got %f", m.MaxDrawdownPct)
	}
}

func TestAnalyze_SharpeZeroWithoutVolatility(t *testing.T) {
	holdings := map[string]model.Holding{"MSFT": {Shares: 1, PurchasePrice: 100}}
	data := map[string]*model.Series{"MSFT": series(300)}

	m, ok := Analyze(holdings, data)
	if !ok {
		t.Fatal("expected metrics")
	}
	if m.VolatilityPct != 0 || m.SharpeRatio != 0 {
		t.Errorf("expected zero volatility and Sharpe, got %f / %f", m.VolatilityPct, m.SharpeRatio)
	}
	if m.WeightedReturnPct != 200 {
		t.Errorf("expected 200%% weighted return, got %f", m.WeightedReturnPct)
	}
}

func TestAnalyze_NoData(t *testing.T) {
	holdings := map[string]model.Holding{"ZZZZINVALID": {Shares: 1, PurchasePrice: 1}}
	if _, ok := Analyze(holdings, map[string]*model.Series{}); ok {
		t.Error("expected not ok without data")
	}
	if _, ok := Analyze(nil, nil); ok {
		t.Error("expected not ok for empty input")
	}
}

func TestAnalyze_WeightsOverPresentHoldings(t *testing.T) {
	holdings := map[string]model.Holding{
		"AAA": {Shares: 10, PurchasePrice: 10}, // 100 invested, +20%
		"BBB": {Shares: 30, PurchasePrice: 10}, // 300 invested, -10%
		"CCC": {Shares: 99, PurchasePrice: 99}, // no data
	}
	data := map[string]*model.Series{
		"AAA": series(10, 12),
		"BBB": series(10, 9),
	}
	m, ok := Analyze(holdings, data)
	if !ok {
		t.Fatal("expected metrics")
	}
	want := 0.25*20 + 0.75*-10
	if math.Abs(m.WeightedReturnPct-want) > 1e-9 {
		t.Errorf("expected weighted return %f, got %f", want, m.WeightedReturnPct)
	}
	if m.TotalInvestment != 400 || m.CurrentValue != 390 {
		t.Errorf("unexpected valuation %+v", m)
	}
}

func TestVolatility(t *testing.T) {
	holdings := map[string]model.Holding{"X": {Shares: 1, PurchasePrice: 100}}
	data := map[string]*model.Series{"X": series(100, 110, 99, 99)}

	m, _ := Analyze(holdings, data)
	want := math.Sqrt(0.02/3) * math.Sqrt(252) * 100
	if math.Abs(m.VolatilityPct-want) > 1e-6 {
		t.Errorf("expected volatility %f, got %f", want, m.VolatilityPct)
	}
	if m.SharpeRatio == 0 {
		t.Error("expected non-zero Sharpe with volatility")
	}
}

func TestMaxDrawdown(t *testing.T) {
	tests := []struct {
		values []float64
		want   float64
	}{
		{nil, 0},
		{[]float64{100}, 0},
		{[]float64{100, 101, 102, 103}, 0},
		{[]float64{100, 120, 90, 130}, 0.25},
		{[]float64{100, 50, 0}, 1},
	}
	for _, tt := range tests {
		got := MaxDrawdown(tt.values)
		if math.Abs(got-tt.want) > 1e-12 {
			t.Errorf("MaxDrawdown(%v) = %f, want %f", tt.values, got, tt.want)
		}
		if got < 0 || got > 1 {
			t.Errorf("MaxDrawdown(%v) = %f out of [0,1]", tt.values, got)
		}
	}
}

func TestAllocationAndTimeline(t *testing.T) {
	holdings := map[string]model.Holding{
		"AAA": {Shares: 1, PurchasePrice: 100},
		"BBB": {Shares: 3, PurchasePrice: 100},
	}
	data := map[string]*model.Series{
		"AAA": series(90, 100, 100),
		"BBB": series(100, 100),
	}

	alloc := Allocation(holdings, data)
	if len(alloc) != 2 || alloc[0].Symbol != "AAA" || alloc[0].Percent != 25 || alloc[1].Percent != 75 {
		t.Errorf("unexpected allocation %+v", alloc)
	}

	tl := Timeline(holdings, data)
	if len(tl) != 2 {
		t.Fatalf("expected timeline truncated to 2 points, got %d", len(tl))
	}
	if tl[1].Value != 400 || tl[1].ReturnPct != 0 {
		t.Errorf("unexpected last point %+v", tl[1])
	}
	if !tl[0].Date.Equal(data["AAA"].Bars[1].Date) {
		t.Errorf("timeline must align on the most recent bars, got %v", tl[0].Date)
	}
}
