package chart

import (
	"math"
	"testing"
	"time"

	"MarketLens/internal/model"
)

func testSeries(bars ...[2]float64) *model.Series {
	start := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	s := &model.Series{Symbol: "TEST"}
	for i, oc := range bars {
		s.Bars = append(s.Bars, model.OHLCV{
			Date: start.AddDate(0, 0, i), Open: oc[0], High: oc[1] + 1, Low: oc[0] - 1, Close: oc[1], Volume: int64(100 * (i + 1)),
		})
	}
	return s
}

func TestCandlestick(t *testing.T) {
	spec := Candlestick(testSeries([2]float64{10, 12}, [2]float64{12, 11}), "AAPL")
	if len(spec.Traces) != 2 {
		t.Fatalf("expected price and volume traces, got %d", len(spec.Traces))
	}
	price, vol := spec.Traces[0], spec.Traces[1]
	if price.Type != "candlestick" || len(price.Close) != 2 || price.Close[1] != 11 {
		t.Errorf("unexpected price trace %+v", price)
	}
	if vol.Panel != 1 || vol.Colors[0] != ColorPositive || vol.Colors[1] != ColorNegative {
		t.Errorf("unexpected volume trace %+v", vol)
	}
	if spec.Title != "AAPL - Stock Price and Volume Analysis" {
		t.Errorf("unexpected title %q", spec.Title)
	}
}

func TestBuild(t *testing.T) {
	s := testSeries([2]float64{1, 2})
	if Build(KindLine, s, "X").Kind != KindLine || Build(KindVolume, s, "X").Kind != KindVolume {
		t.Error("Build did not dispatch on kind")
	}
	if k, err := ParseKind(""); err != nil || k != KindCandlestick {
		t.Errorf("expected candlestick default, got %v %v", k, err)
	}
	if _, err := ParseKind("radar"); err == nil {
		t.Error("expected error for unknown kind")
	}
}

func TestComparison_Normalized(t *testing.T) {
	spec := Comparison(map[string]*model.Series{
		"MSFT": testSeries([2]float64{0, 200}, [2]float64{0, 250}),
		"AAPL": testSeries([2]float64{0, 100}, [2]float64{0, 90}),
		"ZERO": testSeries([2]float64{0, 0}, [2]float64{0, 5}),
	})
	if len(spec.Traces) != 2 {
		t.Fatalf("zero first close must be skipped, got %d traces", len(spec.Traces))
	}
	if spec.Traces[0].Name != "AAPL" || spec.Traces[0].Y[0] != 0 || math.Abs(spec.Traces[0].Y[1]+10) > 1e-9 {
		t.Errorf("unexpected AAPL trace %+v", spec.Traces[0])
	}
	if math.Abs(spec.Traces[1].Y[1]-25) > 1e-9 {
		t.Errorf("unexpected MSFT trace %+v", spec.Traces[1])
	}
	if spec.Baseline == nil || *spec.Baseline != 0 {
		t.Error("expected zero baseline")
	}
}

func TestPortfolioCharts(t *testing.T) {
	holdings := map[string]model.Holding{"AAA": {Shares: 2, PurchasePrice: 5}}
	data := map[string]*model.Series{"AAA": testSeries([2]float64{5, 5}, [2]float64{5, 10})}

	alloc, timeline := Portfolio(holdings, data)
	if len(alloc.Traces[0].Labels) != 1 || alloc.Traces[0].Y[0] != 20 {
		t.Errorf("unexpected allocation %+v", alloc.Traces[0])
	}
	line := timeline.Traces[0]
	if len(line.Y) != 2 || line.Y[0] != 0 || line.Y[1] != 100 {
		t.Errorf("unexpected timeline %+v", line.Y)
	}
}
