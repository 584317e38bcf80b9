// Package chart turns series and portfolio results into renderer-agnostic
// chart specs. Specs carry plain numbers; styling is limited to colours.
package chart

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"MarketLens/internal/model"
	"MarketLens/internal/portfolio"
)

// Kind names a chart layout.
type Kind string

const (
	KindCandlestick Kind = "candlestick"
	KindLine        Kind = "line"
	KindVolume      Kind = "volume"
	KindComparison  Kind = "comparison"
	KindAllocation  Kind = "allocation"
	KindTimeline    Kind = "timeline"
)

// ParseKind validates a single-series chart kind; empty means candlestick.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(s))); k {
	case "":
		return KindCandlestick, nil
	case KindCandlestick, KindLine, KindVolume:
		return k, nil
	}
	return "", fmt.Errorf("unknown chart kind %q", s)
}

const (
	ColorPrimary  = "#0052CC"
	ColorPositive = "#00875A"
	ColorNegative = "#DE350B"
)

// Palette cycles through multi-series charts.
var Palette = []string{
	"#0052CC", "#00875A", "#DE350B", "#8777D9", "#FFC400",
	"#6554C0", "#00B8D9", "#36B37E", "#FF8B00", "#FF5630",
}

// Trace is one plotted series. Which slices are set depends on Type.
type Trace struct {
	Name   string      `json:"name"`
	Type   string      `json:"type"` // candlestick, line, bar, pie
	X      []time.Time `json:"x,omitempty"`
	Y      []float64   `json:"y,omitempty"`
	Open   []float64   `json:"open,omitempty"`
	High   []float64   `json:"high,omitempty"`
	Low    []float64   `json:"low,omitempty"`
	Close  []float64   `json:"close,omitempty"`
	Labels []string    `json:"labels,omitempty"`
	Colors []string    `json:"colors,omitempty"`
	Color  string      `json:"color,omitempty"`
	Panel  int         `json:"panel"` // 0 = main, 1 = lower
}

// Spec is a complete chart description.
type Spec struct {
	Kind   Kind    `json:"kind"`
	Title  string  `json:"title"`
	XTitle string  `json:"x_title,omitempty"`
	YTitle string  `json:"y_title,omitempty"`
	Traces []Trace `json:"traces"`
	// Baseline draws a horizontal reference line when set.
	Baseline *float64 `json:"baseline,omitempty"`
}

func zero() *float64 {
	z := 0.0
	return &z
}

func dates(bars []model.OHLCV) []time.Time {
	out := make([]time.Time, len(bars))
	for i, b := range bars {
		out[i] = b.Date
	}
	return out
}

// volumeTrace colours each bar green when close >= open, red otherwise.
func volumeTrace(bars []model.OHLCV, panel int) Trace {
	y := make([]float64, len(bars))
	colors := make([]string, len(bars))
	for i, b := range bars {
		y[i] = float64(b.Volume)
		if b.Close >= b.Open {
			colors[i] = ColorPositive
		} else {
			colors[i] = ColorNegative
		}
	}
	return Trace{Name: "Volume", Type: "bar", X: dates(bars), Y: y, Colors: colors, Panel: panel}
}

// Candlestick is a price panel over a volume panel.
func Candlestick(series *model.Series, label string) Spec {
	bars := series.Bars
	n := len(bars)
	price := Trace{
		Name:  "Price",
		Type:  "candlestick",
		X:     dates(bars),
		Open:  make([]float64, n),
		High:  make([]float64, n),
		Low:   make([]float64, n),
		Close: make([]float64, n),
	}
	for i, b := range bars {
		price.Open[i], price.High[i], price.Low[i], price.Close[i] = b.Open, b.High, b.Low, b.Close
	}
	return Spec{
		Kind:   KindCandlestick,
		Title:  label + " - Stock Price and Volume Analysis",
		XTitle: "Date",
		YTitle: "Price ($)",
		Traces: []Trace{price, volumeTrace(bars, 1)},
	}
}

// Line plots closing prices.
func Line(series *model.Series, label string) Spec {
	return Spec{
		Kind:   KindLine,
		Title:  label + " - Stock Price Trend",
		XTitle: "Date",
		YTitle: "Price ($)",
		Traces: []Trace{{
			Name:  label + " Close Price",
			Type:  "line",
			X:     dates(series.Bars),
			Y:     series.Closes(),
			Color: ColorPrimary,
		}},
	}
}

// Volume plots volume alone.
func Volume(series *model.Series, label string) Spec {
	return Spec{
		Kind:   KindVolume,
		Title:  label + " - Trading Volume",
		XTitle: "Date",
		YTitle: "Volume",
		Traces: []Trace{volumeTrace(series.Bars, 0)},
	}
}

// Build dispatches on a single-series kind.
func Build(kind Kind, series *model.Series, label string) Spec {
	switch kind {
	case KindLine:
		return Line(series, label)
	case KindVolume:
		return Volume(series, label)
	default:
		return Candlestick(series, label)
	}
}

// Normalize rescales closes to percent change from the first close. A zero
// first close yields nil.
func Normalize(closes []float64) []float64 {
	if len(closes) == 0 || closes[0] == 0 {
		return nil
	}
	out := make([]float64, len(closes))
	for i, c := range closes {
		out[i] = (c/closes[0] - 1) * 100
	}
	return out
}

// Comparison overlays several series as percent change from their first
// close, ordered by symbol.
func Comparison(all map[string]*model.Series) Spec {
	symbols := make([]string, 0, len(all))
	for s := range all {
		symbols = append(symbols, s)
	}
	sort.Strings(symbols)

	spec := Spec{
		Kind:     KindComparison,
		Title:    "Stock Price Comparison (Normalized %)",
		XTitle:   "Date",
		YTitle:   "Price Change (%)",
		Baseline: zero(),
	}
	for i, sym := range symbols {
		s := all[sym]
		y := Normalize(s.Closes())
		if y == nil {
			continue
		}
		spec.Traces = append(spec.Traces, Trace{
			Name:  sym,
			Type:  "line",
			X:     dates(s.Bars),
			Y:     y,
			Color: Palette[i%len(Palette)],
		})
	}
	return spec
}

// Allocation is a pie of current value per holding.
func Allocation(slices []model.AllocationSlice) Spec {
	pie := Trace{Name: "Allocation", Type: "pie"}
	for i, s := range slices {
		pie.Labels = append(pie.Labels, s.Symbol)
		pie.Y = append(pie.Y, s.Value)
		pie.Colors = append(pie.Colors, Palette[i%len(Palette)])
	}
	return Spec{Kind: KindAllocation, Title: "Portfolio Allocation", Traces: []Trace{pie}}
}

// Timeline plots portfolio return against a break-even line.
func Timeline(points []model.TimelinePoint) Spec {
	line := Trace{Name: "Portfolio Performance", Type: "line", Color: ColorPrimary}
	for _, p := range points {
		if math.IsNaN(p.ReturnPct) {
			continue
		}
		line.X = append(line.X, p.Date)
		line.Y = append(line.Y, p.ReturnPct)
	}
	return Spec{
		Kind:     KindTimeline,
		Title:    "Portfolio Performance Over Time",
		XTitle:   "Date",
		YTitle:   "Return (%)",
		Traces:   []Trace{line},
		Baseline: zero(),
	}
}

// Portfolio builds the allocation and timeline specs for holdings.
func Portfolio(holdings map[string]model.Holding, data map[string]*model.Series) (allocation, timeline Spec) {
	return Allocation(portfolio.Allocation(holdings, data)), Timeline(portfolio.Timeline(holdings, data))
}
