package collector

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"MarketLens/internal/model"
)

// DefaultTimeout bounds every provider request.
const DefaultTimeout = 30 * time.Second

// Fetcher defines the interface for fetching market data from a provider.
// Bars are returned in ascending date order.
type Fetcher interface {
	FetchSeries(ctx context.Context, symbol string, period model.Period) ([]model.OHLCV, error)
	FetchMetadata(ctx context.Context, symbol string) (model.IssuerMetadata, error)
	Name() string
}

// newHTTPClient builds a client with the provider timeout and an optional proxy.
func newHTTPClient(proxyURL string, timeout time.Duration) *http.Client {
	transport := &http.Transport{Proxy: http.ProxyFromEnvironment}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &http.Client{
		Timeout:   timeout,
		Transport: transport,
	}
}

// dayOf truncates t to a UTC calendar date.
func dayOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
