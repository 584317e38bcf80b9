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

const (
	yahooChartURL   = "https://query1.finance.yahoo.com/v8/finance/chart"
	yahooSummaryURL = "https://query2.finance.yahoo.com/v10/finance/quoteSummary"
)

// YahooFetcher implements Fetcher using the Yahoo Finance public API.
type YahooFetcher struct {
	Client     *http.Client
	ChartURL   string
	SummaryURL string
	SymbolMap  map[string]string // maps user-facing aliases to Yahoo tickers
}

// NewYahooFetcher creates a new Yahoo Finance fetcher.
func NewYahooFetcher(proxyURL string, timeout time.Duration) *YahooFetcher {
	return &YahooFetcher{
		Client:     newHTTPClient(proxyURL, timeout),
		ChartURL:   yahooChartURL,
		SummaryURL: yahooSummaryURL,
		SymbolMap: map[string]string{
			"SPX500": "^GSPC",
			"SPX":    "^GSPC",
			"SP500":  "^GSPC",
		},
	}
}

func (f *YahooFetcher) Name() string { return "yahoo" }

func (f *YahooFetcher) yahooSymbol(symbol string) string {
	if mapped, ok := f.SymbolMap[strings.ToUpper(symbol)]; ok {
		return mapped
	}
	return symbol
}

// yahooChart is the response structure from the chart API. Missing
// observations come back as JSON null, hence the pointers.
type yahooChart struct {
	Chart struct {
		Result []struct {
			Meta struct {
				GMTOffset int64 `json:"gmtoffset"`
			} `json:"meta"`
			Timestamp []int64 `json:"timestamp"`
			Events    struct {
				Dividends map[string]struct {
					Amount float64 `json:"amount"`
					Date   int64   `json:"date"`
				} `json:"dividends"`
				Splits map[string]struct {
					Date        int64   `json:"date"`
					Numerator   float64 `json:"numerator"`
					Denominator float64 `json:"denominator"`
				} `json:"splits"`
			} `json:"events"`
			Indicators struct {
				Quote []struct {
					Open   []*float64 `json:"open"`
					High   []*float64 `json:"high"`
					Low    []*float64 `json:"low"`
					Close  []*float64 `json:"close"`
					Volume []*float64 `json:"volume"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *yahooError `json:"error"`
	} `json:"chart"`
}

type yahooError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

type rawValue struct {
	Raw *float64 `json:"raw"`
}

func (v *rawValue) float() null.Float {
	if v == nil || v.Raw == nil {
		return null.Float{}
	}
	return null.FloatFrom(*v.Raw)
}

type yahooSummary struct {
	QuoteSummary struct {
		Result []struct {
			Price *struct {
				LongName  string    `json:"longName"`
				ShortName string    `json:"shortName"`
				MarketCap *rawValue `json:"marketCap"`
			} `json:"price"`
			SummaryProfile *struct {
				Sector   string `json:"sector"`
				Industry string `json:"industry"`
			} `json:"summaryProfile"`
			SummaryDetail *struct {
				MarketCap     *rawValue `json:"marketCap"`
				TrailingPE    *rawValue `json:"trailingPE"`
				Beta          *rawValue `json:"beta"`
				DividendYield *rawValue `json:"dividendYield"`
			} `json:"summaryDetail"`
			DefaultKeyStatistics *struct {
				Beta *rawValue `json:"beta"`
			} `json:"defaultKeyStatistics"`
		} `json:"result"`
		Error *yahooError `json:"error"`
	} `json:"quoteSummary"`
}

func at(values []*float64, i int) (float64, bool) {
	if i >= len(values) || values[i] == nil {
		return 0, false
	}
	return *values[i], true
}

func (f *YahooFetcher) get(ctx context.Context, u string, dest interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := f.Client.Do(req)
	if err != nil {
		return fmt.Errorf("yahoo fetch: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("yahoo read body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("yahoo: status %d, body: %s", resp.StatusCode, truncate(string(body), 200))
	}
	if err := json.Unmarshal(body, dest); err != nil {
		return fmt.Errorf("yahoo decode: %w", err)
	}
	return nil
}

// FetchSeries loads daily bars for the period, with dividend and split events.
func (f *YahooFetcher) FetchSeries(ctx context.Context, symbol string, period model.Period) ([]model.OHLCV, error) {
	u := fmt.Sprintf("%s/%s?range=%s&interval=1d&events=%s",
		f.ChartURL, url.PathEscape(f.yahooSymbol(symbol)), url.QueryEscape(string(period)), url.QueryEscape("div|split"))

	var chart yahooChart
	if err := f.get(ctx, u, &chart); err != nil {
		return nil, err
	}
	if chart.Chart.Error != nil {
		return nil, fmt.Errorf("yahoo api error: %s", chart.Chart.Error.Description)
	}
	if len(chart.Chart.Result) == 0 || len(chart.Chart.Result[0].Timestamp) == 0 ||
		len(chart.Chart.Result[0].Indicators.Quote) == 0 {
		return nil, nil
	}

	result := chart.Chart.Result[0]
	offset := result.Meta.GMTOffset
	localDay := func(ts int64) time.Time { return dayOf(time.Unix(ts+offset, 0).UTC()) }

	dividends := make(map[time.Time]float64, len(result.Events.Dividends))
	for _, d := range result.Events.Dividends {
		dividends[localDay(d.Date)] += d.Amount
	}
	splits := make(map[time.Time]float64, len(result.Events.Splits))
	for _, s := range result.Events.Splits {
		if s.Denominator != 0 {
			splits[localDay(s.Date)] = s.Numerator / s.Denominator
		}
	}

	quote := result.Indicators.Quote[0]
	byDay := make(map[time.Time]model.OHLCV, len(result.Timestamp))
	for i, ts := range result.Timestamp {
		c, ok := at(quote.Close, i)
		if !ok {
			continue // no trade that day
		}
		o, _ := at(quote.Open, i)
		h, _ := at(quote.High, i)
		l, _ := at(quote.Low, i)
		v, _ := at(quote.Volume, i)
		day := localDay(ts)
		byDay[day] = model.OHLCV{
			Date:        day,
			Open:        o,
			High:        h,
			Low:         l,
			Close:       c,
			Volume:      int64(v),
			Dividends:   dividends[day],
			StockSplits: splits[day],
		}
	}

	bars := make([]model.OHLCV, 0, len(byDay))
	for _, b := range byDay {
		bars = append(bars, b)
	}
	sort.Slice(bars, func(i, j int) bool { return bars[i].Date.Before(bars[j].Date) })
	return bars, nil
}

// FetchMetadata loads the descriptive fields for symbol. Fields the provider
// omits stay absent.
func (f *YahooFetcher) FetchMetadata(ctx context.Context, symbol string) (model.IssuerMetadata, error) {
	meta := model.IssuerMetadata{Symbol: symbol}
	u := fmt.Sprintf("%s/%s?modules=%s", f.SummaryURL, url.PathEscape(f.yahooSymbol(symbol)),
		url.QueryEscape("price,summaryProfile,summaryDetail,defaultKeyStatistics"))

	var summary yahooSummary
	if err := f.get(ctx, u, &summary); err != nil {
		return meta, err
	}
	if summary.QuoteSummary.Error != nil {
		return meta, fmt.Errorf("yahoo api error: %s", summary.QuoteSummary.Error.Description)
	}
	if len(summary.QuoteSummary.Result) == 0 {
		return meta, fmt.Errorf("yahoo: no summary for %s", symbol)
	}

	r := summary.QuoteSummary.Result[0]
	if p := r.Price; p != nil {
		name := p.LongName
		if name == "" {
			name = p.ShortName
		}
		meta.LongName = nonEmpty(name)
		meta.MarketCap = p.MarketCap.float()
	}
	if sp := r.SummaryProfile; sp != nil {
		meta.Sector = nonEmpty(sp.Sector)
		meta.Industry = nonEmpty(sp.Industry)
	}
	if sd := r.SummaryDetail; sd != nil {
		if !meta.MarketCap.Valid {
			meta.MarketCap = sd.MarketCap.float()
		}
		meta.TrailingPE = sd.TrailingPE.float()
		meta.Beta = sd.Beta.float()
		meta.DividendYield = sd.DividendYield.float()
	}
	if ks := r.DefaultKeyStatistics; ks != nil && !meta.Beta.Valid {
		meta.Beta = ks.Beta.float()
	}
	return meta, nil
}

func nonEmpty(s string) null.String {
	if s == "" {
		return null.String{}
	}
	return null.StringFrom(s)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
