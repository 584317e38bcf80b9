package notifier

import (
	"fmt"
	"html"
	"strings"
	"time"

	"MarketLens/internal/model"
	"MarketLens/internal/store"
)

// DigestEntry is one watchlist line of the daily digest.
type DigestEntry struct {
	Symbol     string
	Metrics    model.MetricSet
	Indicators model.TechnicalIndicators
}

// FormatDigest formats the watchlist digest into a Telegram message.
func FormatDigest(day time.Time, entries []DigestEntry, failed []string) string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("📊 <b>MarketLens digest</b> | %s\n\n", day.Format("2006-01-02")))

	for _, e := range entries {
		arrow := "▲"
		if e.Metrics.PriceChange < 0 {
			arrow = "▼"
		}
		b.WriteString(fmt.Sprintf("<b>%s</b> %.2f %s %+.2f (%+.2f%%)\n",
			html.EscapeString(e.Symbol), e.Metrics.CurrentPrice, arrow, e.Metrics.PriceChange, e.Metrics.PercentChange))
		b.WriteString(fmt.Sprintf("  RSI %.0f%s | SMA20 %.2f | SMA50 %.2f\n",
			e.Indicators.RSI, rsiNote(e.Indicators.RSI), e.Indicators.SMA20, e.Indicators.SMA50))
		b.WriteString(fmt.Sprintf("  52w %.2f - %.2f | Cap %s\n", e.Metrics.Low52w, e.Metrics.High52w, e.Metrics.MarketCap))
	}

	if len(entries) == 0 {
		b.WriteString("No watchlist data available.\n")
	}
	if len(failed) > 0 {
		b.WriteString(fmt.Sprintf("\n⚠️ unavailable: %s\n", html.EscapeString(strings.Join(failed, ", "))))
	}
	return b.String()
}

func rsiNote(rsi float64) string {
	switch {
	case rsi >= 70:
		return " overbought"
	case rsi <= 30:
		return " oversold"
	}
	return ""
}

// FormatExportSummary lists the files written by a scheduled export run.
func FormatExportSummary(records []store.ExportRecord) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("📁 <b>Scheduled export</b> | %d file(s)\n\n", len(records)))
	for _, r := range records {
		b.WriteString(fmt.Sprintf("%s %s: %d rows, %d bytes\n", r.Symbol, r.Period, r.RowCount, r.ByteSize))
	}
	return b.String()
}
