// Package exporter flattens a price series plus derived analytics into CSV.
package exporter

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gocarina/gocsv"

	"MarketLens/internal/calculator"
	"MarketLens/internal/collector"
	"MarketLens/internal/logger"
	"MarketLens/internal/model"
)

// Precision per export kind.
const (
	StockPrecision  = 6
	CryptoPrecision = 8
)

// Banner markers.
const (
	MetadataMarker = "METADATA"
	StartOfData    = "START_OF_DATA"
)

const (
	dateLayout   = "2006-01-02"
	bannerLayout = "2006-01-02 15:04:05"
	fileLayout   = "20060102_150405"

	cryptoVolatilityWindow = 30
)

// ErrExportFailed wraps serialization failures.
var ErrExportFailed = errors.New("export failed")

// Kind selects the export layout.
type Kind string

const (
	KindStock      Kind = "stock"
	KindCrypto     Kind = "crypto"
	KindComparison Kind = "compare"
)

// ParseKind validates an export kind; empty means stock.
func ParseKind(s string) (Kind, error) {
	switch Kind(strings.ToLower(strings.TrimSpace(s))) {
	case "", KindStock:
		return KindStock, nil
	case KindCrypto:
		return KindCrypto, nil
	case KindComparison:
		return KindComparison, nil
	}
	return "", fmt.Errorf("unknown export kind %q", s)
}

// Source is the data the exporter reads.
type Source interface {
	Series(ctx context.Context, symbol string, period model.Period) (*model.Series, error)
	CryptoSeries(ctx context.Context, symbol string, period model.Period) (*model.Series, error)
	Metadata(ctx context.Context, symbol string) (model.IssuerMetadata, error)
	Multiple(ctx context.Context, symbols []string, period model.Period) map[string]*model.Series
}

// Exporter builds CSV datasets from a Source.
type Exporter struct {
	source Source
	now    func() time.Time
}

// New creates an Exporter.
func New(source Source) *Exporter {
	return &Exporter{source: source, now: time.Now}
}

// Stock exports the enriched equity dataset with a metadata banner. Missing
// metadata degrades to N/A fields; a missing series returns "" and
// collector.ErrDataUnavailable.
func (e *Exporter) Stock(ctx context.Context, symbol string, period model.Period) (string, error) {
	op := logger.StartOperation(ctx, "export.stock", "symbol", symbol, "period", string(period))
	series, err := e.source.Series(op.Context(), symbol, period)
	if err != nil {
		op.EndWithError(err)
		return "", err
	}
	meta, _ := e.source.Metadata(op.Context(), symbol)
	out, err := StockCSV(series, meta, e.now())
	if err != nil {
		op.EndWithError(err)
		return "", err
	}
	op.End("rows", series.Len()+1)
	return out, nil
}

// Crypto exports the crypto dataset. Bare symbols get the -USD suffix.
func (e *Exporter) Crypto(ctx context.Context, symbol string, period model.Period) (string, error) {
	op := logger.StartOperation(ctx, "export.crypto", "symbol", symbol, "period", string(period))
	series, err := e.source.CryptoSeries(op.Context(), symbol, period)
	if err != nil {
		op.EndWithError(err)
		return "", err
	}
	out, err := CryptoCSV(series)
	if err != nil {
		op.EndWithError(err)
		return "", err
	}
	op.End("rows", series.Len())
	return out, nil
}

// Comparison exports several symbols stacked and sorted by (date, symbol).
// Unavailable symbols are skipped; if none remain the result is "".
func (e *Exporter) Comparison(ctx context.Context, symbols []string, period model.Period) (string, error) {
	op := logger.StartOperation(ctx, "export.compare", "symbols", strings.Join(symbols, ","), "period", string(period))
	all := e.source.Multiple(op.Context(), symbols, period)
	out, err := ComparisonCSV(all)
	if err != nil {
		op.EndWithError(err)
		return "", err
	}
	op.End("symbols", len(all))
	return out, nil
}

// Filename is the download name for an export generated at t.
func Filename(kind Kind, symbol string, period model.Period, t time.Time) string {
	stamp := t.Format(fileLayout)
	switch kind {
	case KindCrypto:
		return fmt.Sprintf("%s_crypto_data_%s_%s.csv", strings.TrimSuffix(symbol, model.CryptoSuffix), period, stamp)
	case KindComparison:
		return fmt.Sprintf("comparison_%s_%s.csv", period, stamp)
	default:
		return fmt.Sprintf("%s_complete_data_%s_%s.csv", symbol, period, stamp)
	}
}

// StockCSV renders the equity dataset: a banner row followed by one row per
// bar. Non-finite derived values are written as empty cells.
func StockCSV(series *model.Series, meta model.IssuerMetadata, exportedAt time.Time) (string, error) {
	if series.Empty() {
		return "", fmt.Errorf("%w: empty series", collector.ErrDataUnavailable)
	}
	bars := series.Bars
	closes := series.Closes()
	volumes := series.Volumes()
	returns := calculator.PctChange(closes)

	ma7 := calculator.RollingMean(closes, 7)
	ma20 := calculator.RollingMean(closes, 20)
	ma50 := calculator.RollingMean(closes, 50)
	vol7 := calculator.RollingStd(returns, 7)
	vol20 := calculator.RollingStd(returns, 20)
	volMA20 := calculator.RollingMean(volumes, 20)

	marketCap := "N/A"
	if meta.MarketCap.Valid {
		marketCap = strconv.FormatFloat(meta.MarketCap.Float64, 'f', -1, 64)
	}

	rows := make([]stockRow, 0, len(bars)+1)
	rows = append(rows, stockRow{
		Date:        MetadataMarker,
		Open:        "Company: " + model.StringOr(meta.LongName, "N/A"),
		High:        "Sector: " + model.StringOr(meta.Sector, "N/A"),
		Low:         "Industry: " + model.StringOr(meta.Industry, "N/A"),
		Close:       "Market Cap: " + marketCap,
		Volume:      "Export Date: " + exportedAt.Format(bannerLayout),
		Dividends:   "Symbol: " + series.Symbol,
		StockSplits: "Period: " + string(series.Period),
		DailyChange: StartOfData,
	})

	f := func(v float64) string { return formatFloat(v, StockPrecision) }
	for i, b := range bars {
		change := b.Close - b.Open
		rng := b.High - b.Low
		rows = append(rows, stockRow{
			Date:           b.Date.Format(dateLayout),
			Open:           f(b.Open),
			High:           f(b.High),
			Low:            f(b.Low),
			Close:          f(b.Close),
			Volume:         strconv.FormatInt(b.Volume, 10),
			Dividends:      f(b.Dividends),
			StockSplits:    f(b.StockSplits),
			DailyChange:    f(change),
			DailyChangePct: f(ratio(change, b.Open) * 100),
			PriceRange:     f(rng),
			PriceRangePct:  f(ratio(rng, b.Low) * 100),
			MA7:            f(ma7[i]),
			MA20:           f(ma20[i]),
			MA50:           f(ma50[i]),
			Volatility7d:   f(vol7[i]),
			Volatility20d:  f(vol20[i]),
			VolumeMA20:     f(volMA20[i]),
			VolumeRatio:    f(ratio(volumes[i], volMA20[i])),
		})
	}
	return marshal(rows)
}

// CryptoCSV renders the crypto dataset at eight decimals, without a banner.
func CryptoCSV(series *model.Series) (string, error) {
	if series.Empty() {
		return "", fmt.Errorf("%w: empty series", collector.ErrDataUnavailable)
	}
	returns := calculator.PctChange(series.Closes())
	cumulative := calculator.CumulativeReturn(returns)
	rolling := calculator.RollingStd(returns, cryptoVolatilityWindow)
	annualise := math.Sqrt(calculator.CalendarDaysPerYear) * 100

	f := func(v float64) string { return formatFloat(v, CryptoPrecision) }
	rows := make([]cryptoRow, len(series.Bars))
	for i, b := range series.Bars {
		rows[i] = cryptoRow{
			Date:              b.Date.Format(dateLayout),
			Open:              f(b.Open),
			High:              f(b.High),
			Low:               f(b.Low),
			Close:             f(b.Close),
			Volume:            strconv.FormatInt(b.Volume, 10),
			Dividends:         f(b.Dividends),
			StockSplits:       f(b.StockSplits),
			DailyReturn:       f(returns[i] * 100),
			CumulativeReturn:  f(cumulative[i]),
			RollingVolatility: f(rolling[i] * annualise),
		}
	}
	return marshal(rows)
}

// ComparisonCSV stacks several series with a Symbol column and each series'
// own daily return, sorted by (date, symbol).
func ComparisonCSV(all map[string]*model.Series) (string, error) {
	type keyed struct {
		date time.Time
		row  comparisonRow
	}
	var stacked []keyed
	f := func(v float64) string { return formatFloat(v, StockPrecision) }
	for sym, s := range all {
		if s.Empty() {
			continue
		}
		returns := calculator.PctChange(s.Closes())
		for i, b := range s.Bars {
			stacked = append(stacked, keyed{date: b.Date, row: comparisonRow{
				Date:        b.Date.Format(dateLayout),
				Open:        f(b.Open),
				High:        f(b.High),
				Low:         f(b.Low),
				Close:       f(b.Close),
				Volume:      strconv.FormatInt(b.Volume, 10),
				Dividends:   f(b.Dividends),
				StockSplits: f(b.StockSplits),
				Symbol:      sym,
				DailyReturn: f(returns[i] * 100),
			}})
		}
	}
	if len(stacked) == 0 {
		return "", fmt.Errorf("%w: no series to compare", collector.ErrDataUnavailable)
	}
	sort.SliceStable(stacked, func(i, j int) bool {
		if !stacked[i].date.Equal(stacked[j].date) {
			return stacked[i].date.Before(stacked[j].date)
		}
		return stacked[i].row.Symbol < stacked[j].row.Symbol
	})
	rows := make([]comparisonRow, len(stacked))
	for i, k := range stacked {
		rows[i] = k.row
	}
	return marshal(rows)
}

func marshal(rows interface{}) (string, error) {
	out, err := gocsv.MarshalString(rows)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrExportFailed, err)
	}
	return out, nil
}

func ratio(num, den float64) float64 {
	if den == 0 {
		return math.NaN()
	}
	return num / den
}

// formatFloat renders v with fixed precision; non-finite values are empty.
func formatFloat(v float64, prec int) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return ""
	}
	return strconv.FormatFloat(v, 'f', prec, 64)
}

// CountRows returns the number of data rows in a rendered export, excluding
// the header and the metadata banner.
func CountRows(out string) int {
	n := 0
	for i, line := range strings.Split(strings.TrimRight(out, "\n"), "\n") {
		if i == 0 || line == "" || strings.HasPrefix(line, MetadataMarker+",") {
			continue
		}
		n++
	}
	return n
}
