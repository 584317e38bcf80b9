package collector

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"MarketLens/internal/cache"
	"MarketLens/internal/calculator"
	"MarketLens/internal/logger"
	"MarketLens/internal/model"
)

// ErrDataUnavailable is returned when a symbol has no data for the period,
// the provider failed, or the provider timed out.
var ErrDataUnavailable = errors.New("data unavailable")

// Default cache horizons.
const (
	DefaultSeriesTTL   = 5 * time.Minute
	DefaultMetadataTTL = time.Hour
)

// Listing pairs a ticker with a display name.
type Listing struct {
	Symbol string `json:"symbol"`
	Name   string `json:"name"`
}

var (
	TrendingStocks  = []string{"AAPL", "TSLA", "NVDA", "MSFT", "GOOGL"}
	TrendingCryptos = []string{"BTC-USD", "ETH-USD", "SOL-USD"}

	MarketIndices = []Listing{
		{Symbol: "^GSPC", Name: "S&P 500"},
		{Symbol: "^DJI", Name: "Dow Jones"},
		{Symbol: "^IXIC", Name: "NASDAQ"},
		{Symbol: "^RUT", Name: "Russell 2000"},
	}

	PopularCryptos = []Listing{
		{Symbol: "BTC-USD", Name: "Bitcoin"},
		{Symbol: "ETH-USD", Name: "Ethereum"},
		{Symbol: "BNB-USD", Name: "Binance Coin"},
		{Symbol: "XRP-USD", Name: "Ripple"},
		{Symbol: "ADA-USD", Name: "Cardano"},
		{Symbol: "SOL-USD", Name: "Solana"},
		{Symbol: "DOGE-USD", Name: "Dogecoin"},
		{Symbol: "DOT-USD", Name: "Polkadot"},
		{Symbol: "MATIC-USD", Name: "Polygon"},
		{Symbol: "SHIB-USD", Name: "Shiba Inu"},
	}
)

// Repository fetches normalized series and metadata through a TTL cache.
// Cached values are immutable; every reader decodes its own copy.
type Repository struct {
	Fetcher     Fetcher
	Cache       cache.Store
	SeriesTTL   time.Duration
	MetadataTTL time.Duration

	now func() time.Time
}

// NewRepository creates a Repository. A nil store gets an in-memory cache.
func NewRepository(fetcher Fetcher, store cache.Store, seriesTTL, metadataTTL time.Duration) *Repository {
	if store == nil {
		store = cache.NewMemoryStore()
	}
	if seriesTTL <= 0 {
		seriesTTL = DefaultSeriesTTL
	}
	if metadataTTL <= 0 {
		metadataTTL = DefaultMetadataTTL
	}
	return &Repository{
		Fetcher:     fetcher,
		Cache:       store,
		SeriesTTL:   seriesTTL,
		MetadataTTL: metadataTTL,
		now:         time.Now,
	}
}

// Series returns the daily series for symbol over period.
func (r *Repository) Series(ctx context.Context, symbol string, period model.Period) (*model.Series, error) {
	sym := model.NormalizeSymbol(symbol)
	if sym == "" {
		return nil, fmt.Errorf("%w: empty symbol", ErrDataUnavailable)
	}
	if period == "" {
		period = model.DefaultPeriod
	}
	key := cache.SeriesKey(sym, string(period))

	var cached model.Series
	if found, err := r.Cache.Get(ctx, key, &cached); err != nil {
		logger.Warn(ctx, "cache read failed", "key", key, "error", err)
	} else if found {
		logger.Fetch(ctx, r.Fetcher.Name(), sym, string(period), cached.Len(), true)
		return &cached, nil
	}

	bars, err := r.Fetcher.FetchSeries(ctx, sym, period)
	if err != nil {
		logger.Warn(ctx, "series fetch failed", "provider", r.Fetcher.Name(), "symbol", sym, "period", period, "error", err)
		return nil, fmt.Errorf("%w: %s (%s): %v", ErrDataUnavailable, sym, period, err)
	}
	if len(bars) == 0 {
		return nil, fmt.Errorf("%w: no data for %s (%s)", ErrDataUnavailable, sym, period)
	}

	series := &model.Series{Symbol: sym, Period: period, Bars: bars, FetchedAt: r.now().UTC()}
	if err := r.Cache.Set(ctx, key, series, r.SeriesTTL); err != nil {
		logger.Warn(ctx, "cache write failed", "key", key, "error", err)
	}
	logger.Fetch(ctx, r.Fetcher.Name(), sym, string(period), series.Len(), false)
	return series, nil
}

// CryptoSeries is Series with the -USD suffix applied.
func (r *Repository) CryptoSeries(ctx context.Context, symbol string, period model.Period) (*model.Series, error) {
	return r.Series(ctx, model.NormalizeCryptoSymbol(symbol), period)
}

// Metadata returns issuer metadata for symbol. On failure the returned value
// carries only the symbol, so callers can render N/A fields.
func (r *Repository) Metadata(ctx context.Context, symbol string) (model.IssuerMetadata, error) {
	sym := model.NormalizeSymbol(symbol)
	empty := model.IssuerMetadata{Symbol: sym}
	if sym == "" {
		return empty, fmt.Errorf("%w: empty symbol", ErrDataUnavailable)
	}
	key := cache.MetadataKey(sym)

	var cached model.IssuerMetadata
	if found, err := r.Cache.Get(ctx, key, &cached); err == nil && found {
		return cached, nil
	}

	meta, err := r.Fetcher.FetchMetadata(ctx, sym)
	if err != nil {
		logger.Warn(ctx, "metadata fetch failed", "provider", r.Fetcher.Name(), "symbol", sym, "error", err)
		return empty, fmt.Errorf("%w: metadata for %s: %v", ErrDataUnavailable, sym, err)
	}
	meta.Symbol = sym
	if err := r.Cache.Set(ctx, key, meta, r.MetadataTTL); err != nil {
		logger.Warn(ctx, "cache write failed", "key", key, "error", err)
	}
	return meta, nil
}

// Multiple fetches several series concurrently. Unavailable symbols are
// left out of the result.
func (r *Repository) Multiple(ctx context.Context, symbols []string, period model.Period) map[string]*model.Series {
	out := make(map[string]*model.Series, len(symbols))
	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)
	for _, s := range symbols {
		sym := model.NormalizeSymbol(s)
		if sym == "" {
			continue
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			series, err := r.Series(ctx, sym, period)
			if err != nil {
				return
			}
			mu.Lock()
			out[sym] = series
			mu.Unlock()
		}()
	}
	wg.Wait()
	return out
}

// Trending returns last-vs-previous close quotes over five days for symbols
// with at least two bars, in input order. Crypto pairs are reported without
// the -USD suffix.
func (r *Repository) Trending(ctx context.Context, symbols []string) []model.Quote {
	all := r.Multiple(ctx, symbols, model.Period5D)
	quotes := make([]model.Quote, 0, len(all))
	for _, s := range symbols {
		sym := model.NormalizeSymbol(s)
		series, ok := all[sym]
		if !ok || series.Len() < 2 {
			continue
		}
		change, pct, _ := calculator.PriceChange(series.Closes())
		last, _ := series.Last()
		quotes = append(quotes, model.Quote{
			Symbol:        strings.TrimSuffix(sym, model.CryptoSuffix),
			Price:         last.Close,
			Change:        change,
			ChangePercent: pct,
		})
	}
	return quotes
}

// Indices returns the market index overview. A single-bar index reports a
// zero change.
func (r *Repository) Indices(ctx context.Context) []model.Quote {
	symbols := make([]string, len(MarketIndices))
	for i, idx := range MarketIndices {
		symbols[i] = idx.Symbol
	}
	all := r.Multiple(ctx, symbols, model.Period5D)

	quotes := make([]model.Quote, 0, len(all))
	for _, idx := range MarketIndices {
		series, ok := all[idx.Symbol]
		if !ok {
			continue
		}
		change, pct, _ := calculator.PriceChange(series.Closes())
		last, _ := series.Last()
		quotes = append(quotes, model.Quote{
			Symbol:        idx.Symbol,
			Name:          idx.Name,
			Price:         last.Close,
			Change:        change,
			ChangePercent: pct,
		})
	}
	return quotes
}

// SortedSymbols returns the keys of a Multiple result in ascending order.
func SortedSymbols(all map[string]*model.Series) []string {
	out := make([]string, 0, len(all))
	for s := range all {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}
