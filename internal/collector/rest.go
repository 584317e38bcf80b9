package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/guregu/null/v6"

	"MarketLens/internal/model"
)

// RESTFetcher implements Fetcher against a self-hosted JSON market data API:
//
//	GET {base}/api/v1/bars/daily?symbol=AAPL&period=1y -> [{timestamp, open, ...}]
//	GET {base}/api/v1/profile?symbol=AAPL              -> {long_name, sector, ...}
type RESTFetcher struct {
	BaseURL string
	APIKey  string
	Client  *http.Client
}

// NewRESTFetcher creates a new fetcher with optional proxy support.
func NewRESTFetcher(baseURL, apiKey, proxyURL string, timeout time.Duration) *RESTFetcher {
	return &RESTFetcher{
		BaseURL: strings.TrimRight(baseURL, "/"),
		APIKey:  apiKey,
		Client:  newHTTPClient(proxyURL, timeout),
	}
}

func (f *RESTFetcher) Name() string { return "rest" }

// restBar is the expected JSON shape of a daily bar.
type restBar struct {
	Timestamp   int64   `json:"timestamp"`
	Open        float64 `json:"open"`
	High        float64 `json:"high"`
	Low         float64 `json:"low"`
	Close       float64 `json:"close"`
	Volume      float64 `json:"volume"`
	Dividends   float64 `json:"dividends"`
	StockSplits float64 `json:"stock_splits"`
}

type restProfile struct {
	LongName      null.String `json:"long_name"`
	Sector        null.String `json:"sector"`
	Industry      null.String `json:"industry"`
	MarketCap     null.Float  `json:"market_cap"`
	TrailingPE    null.Float  `json:"trailing_pe"`
	Beta          null.Float  `json:"beta"`
	DividendYield null.Float  `json:"dividend_yield"`
}

func (f *RESTFetcher) FetchSeries(ctx context.Context, symbol string, period model.Period) ([]model.OHLCV, error) {
	endpoint := fmt.Sprintf("%s/api/v1/bars/daily?symbol=%s&period=%s",
		f.BaseURL, url.QueryEscape(symbol), url.QueryEscape(string(period)))

	var raw []restBar
	if err := f.getJSON(ctx, endpoint, &raw); err != nil {
		return nil, fmt.Errorf("fetch bars: %w", err)
	}
	bars := make([]model.OHLCV, len(raw))
	for i, rb := range raw {
		bars[i] = model.OHLCV{
			Date:        dayOf(time.Unix(rb.Timestamp, 0).UTC()),
			Open:        rb.Open,
			High:        rb.High,
			Low:         rb.Low,
			Close:       rb.Close,
			Volume:      int64(rb.Volume),
			Dividends:   rb.Dividends,
			StockSplits: rb.StockSplits,
		}
	}
	// Ensure chronological order
	sort.Slice(bars, func(i, j int) bool { return bars[i].Date.Before(bars[j].Date) })
	return bars, nil
}

func (f *RESTFetcher) FetchMetadata(ctx context.Context, symbol string) (model.IssuerMetadata, error) {
	endpoint := fmt.Sprintf("%s/api/v1/profile?symbol=%s", f.BaseURL, url.QueryEscape(symbol))

	var p restProfile
	if err := f.getJSON(ctx, endpoint, &p); err != nil {
		return model.IssuerMetadata{Symbol: symbol}, fmt.Errorf("fetch profile: %w", err)
	}
	return model.IssuerMetadata{
		Symbol:        symbol,
		LongName:      p.LongName,
		Sector:        p.Sector,
		Industry:      p.Industry,
		MarketCap:     p.MarketCap,
		TrailingPE:    p.TrailingPE,
		Beta:          p.Beta,
		DividendYield: p.DividendYield,
	}, nil
}

func (f *RESTFetcher) getJSON(ctx context.Context, endpoint string, dest interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	if f.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+f.APIKey)
	}
	resp, err := f.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("status %d, body: %s", resp.StatusCode, truncate(string(body), 200))
	}
	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return fmt.Errorf("decode: %w", err)
	}
	return nil
}
