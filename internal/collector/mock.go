package collector

import (
	"context"
	"fmt"
	"sync"
	"time"

	"MarketLens/internal/model"
)

// MockFetcher returns controllable fixed data for development and testing.
// Symbols without fixed data get generated bars around Price; symbols listed
// in Missing fail.
type MockFetcher struct {
	Price    float64
	Bars     map[string][]model.OHLCV
	Metadata map[string]model.IssuerMetadata
	Missing  map[string]bool
	// End is the date of the last generated bar; zero means today.
	End time.Time

	mu          sync.Mutex
	seriesCalls map[string]int
}

func (m *MockFetcher) Name() string { return "mock" }

func (m *MockFetcher) FetchSeries(_ context.Context, symbol string, period model.Period) ([]model.OHLCV, error) {
	m.mu.Lock()
	if m.seriesCalls == nil {
		m.seriesCalls = make(map[string]int)
	}
	m.seriesCalls[symbol]++
	m.mu.Unlock()

	if m.Missing[symbol] {
		return nil, fmt.Errorf("mock: unknown symbol %s", symbol)
	}
	if bars, ok := m.Bars[symbol]; ok {
		return append([]model.OHLCV(nil), bars...), nil
	}
	end := m.End
	if end.IsZero() {
		end = time.Now()
	}
	return GenerateBars(m.Price, periodDays(period), end), nil
}

func (m *MockFetcher) FetchMetadata(_ context.Context, symbol string) (model.IssuerMetadata, error) {
	if m.Missing[symbol] {
		return model.IssuerMetadata{Symbol: symbol}, fmt.Errorf("mock: unknown symbol %s", symbol)
	}
	meta := m.Metadata[symbol]
	meta.Symbol = symbol
	return meta, nil
}

// SeriesCalls reports how many times FetchSeries was called for symbol.
func (m *MockFetcher) SeriesCalls(symbol string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.seriesCalls[symbol]
}

// GenerateBars builds count daily bars ending at end with a gentle upward drift.
func GenerateBars(basePrice float64, count int, end time.Time) []model.OHLCV {
	bars := make([]model.OHLCV, count)
	last := dayOf(end)
	for i := 0; i < count; i++ {
		p := basePrice * (1 + float64(i-count/2)*0.001)
		bars[i] = model.OHLCV{
			Date:   last.AddDate(0, 0, -(count - 1 - i)),
			Open:   p * 0.999,
			High:   p * 1.005,
			Low:    p * 0.995,
			Close:  p,
			Volume: 1000000,
		}
	}
	return bars
}

// periodDays approximates the number of daily bars a period yields.
func periodDays(p model.Period) int {
	switch p {
	case model.Period1D:
		return 1
	case model.Period5D:
		return 5
	case model.Period1M:
		return 21
	case model.Period3M:
		return 63
	case model.Period6M:
		return 126
	case model.Period2Y:
		return 504
	case model.Period5Y:
		return 1260
	case model.Period10Y, model.PeriodMax:
		return 2520
	case model.PeriodYTD:
		return 150
	default:
		return 252
	}
}
