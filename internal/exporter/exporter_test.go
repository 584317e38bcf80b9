package exporter

import (
	"context"
	"encoding/csv"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/guregu/null/v6"

	"MarketLens/internal/collector"
	"MarketLens/internal/model"
)

var exportTime = time.Date(2024, 5, 6, 14, 30, 0, 0, time.UTC)

func scenarioSeries() *model.Series {
	return &model.Series{
		Symbol: "AAPL",
		Period: model.Period1Y,
		Bars: []model.OHLCV{
			{Date: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), Open: 100, High: 105, Low: 99, Close: 102, Volume: 1000},
			{Date: time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC), Open: 102, High: 103, Low: 100, Close: 101, Volume: 1200},
		},
	}
}

func longSeries(symbol string, n int, start time.Time) *model.Series {
	bars := collector.GenerateBars(100, n, start.AddDate(0, 0, n-1))
	return &model.Series{Symbol: symbol, Period: model.Period6M, Bars: bars}
}

func readCSV(t *testing.T, s string) [][]string {
	t.Helper()
	records, err := csv.NewReader(strings.NewReader(s)).ReadAll()
	if err != nil {
		t.Fatalf("output is not valid CSV: %v", err)
	}
	return records
}

func TestStockCSV_LayoutAndBanner(t *testing.T) {
	meta := model.IssuerMetadata{
		LongName:  null.StringFrom("Apple Inc."),
		Sector:    null.StringFrom("Technology"),
		MarketCap: null.FloatFrom(2500000000000),
	}
	out, err := StockCSV(scenarioSeries(), meta, exportTime)
	if err != nil {
		t.Fatalf("StockCSV failed: %v", err)
	}
	records := readCSV(t, out)

	if got := strings.Join(records[0], ","); got != strings.Join(StockColumns, ",") {
		t.Errorf("unexpected header\n got: %s\nwant: %s", got, strings.Join(StockColumns, ","))
	}
	// header + banner + one row per bar
	if len(records) != 1+1+2 {
		t.Fatalf("expected 4 records, got %d", len(records))
	}

	banner := records[1]
	want := []string{
		"METADATA", "Company: Apple Inc.", "Sector: Technology", "Industry: N/A",
		"Market Cap: 2500000000000", "Export Date: 2024-05-06 14:30:00",
		"Symbol: AAPL", "Period: 1y", "START_OF_DATA",
	}
	for i, w := range want {
		if banner[i] != w {
			t.Errorf("banner[%d] = %q, want %q", i, banner[i], w)
		}
	}
	for i := len(want); i < len(banner); i++ {
		if banner[i] != "" {
			t.Errorf("banner[%d] should be empty, got %q", i, banner[i])
		}
	}

	row := records[3]
	checks := map[string]string{
		"Date":             "2024-01-03",
		"Open":             "102.000000",
		"Volume":           "1200",
		"Daily_Change":     "-1.000000",
		"Daily_Change_Pct": "-0.980392",
		"Price_Range":      "3.000000",
		"Price_Range_Pct":  "3.000000",
		"MA_7":             "",
		"Volume_Ratio":     "",
	}
	for i, col := range StockColumns {
		if w, ok := checks[col]; ok && row[i] != w {
			t.Errorf("%s = %q, want %q", col, row[i], w)
		}
	}
}

func TestStockCSV_RollingColumns(t *testing.T) {
	s := longSeries("MSFT", 60, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	out, err := StockCSV(s, model.IssuerMetadata{}, exportTime)
	if err != nil {
		t.Fatalf("StockCSV failed: %v", err)
	}
	records := readCSV(t, out)
	if len(records) != 62 {
		t.Fatalf("expected 62 records, got %d", len(records))
	}

	col := func(name string) int {
		for i, c := range StockColumns {
			if c == name {
				return i
			}
		}
		t.Fatalf("no column %s", name)
		return -1
	}
	// records[2] is bar 0; bar i is records[i+2].
	if records[2+5][col("MA_7")] != "" || records[2+6][col("MA_7")] == "" {
		t.Error("MA_7 must start at the seventh bar")
	}
	if records[2+48][col("MA_50")] != "" || records[2+49][col("MA_50")] == "" {
		t.Error("MA_50 must start at the fiftieth bar")
	}
	// pct change is undefined on bar 0, so a 7-day window first fits at bar 7.
	if records[2+6][col("Volatility_7d")] != "" || records[2+7][col("Volatility_7d")] == "" {
		t.Error("Volatility_7d must start at the eighth bar")
	}
	if got := records[2+30][col("Volume_Ratio")]; got != "1.000000" {
		t.Errorf("constant volume must give ratio 1, got %q", got)
	}
}

func TestCryptoCSV(t *testing.T) {
	s := longSeries("BTC-USD", 40, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	out, err := CryptoCSV(s)
	if err != nil {
		t.Fatalf("CryptoCSV failed: %v", err)
	}
	records := readCSV(t, out)
	if strings.Join(records[0], ",") != strings.Join(CryptoColumns, ",") {
		t.Errorf("unexpected header %v", records[0])
	}
	if len(records) != 41 {
		t.Fatalf("expected header + 40 rows, got %d", len(records))
	}
	first := records[1]
	if first[8] != "" || first[9] != "" {
		t.Errorf("first daily and cumulative return must be empty, got %q %q", first[8], first[9])
	}
	if !strings.Contains(records[2][4], ".") || len(strings.Split(records[2][4], ".")[1]) != 8 {
		t.Errorf("expected 8 decimals, got %q", records[2][4])
	}
	if records[30][10] != "" || records[31][10] == "" {
		t.Error("rolling volatility must start once 30 returns exist")
	}
}

func TestComparisonCSV_SortedByDateThenSymbol(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	out, err := ComparisonCSV(map[string]*model.Series{
		"MSFT": longSeries("MSFT", 3, start),
		"AAPL": longSeries("AAPL", 3, start),
	})
	if err != nil {
		t.Fatalf("ComparisonCSV failed: %v", err)
	}
	records := readCSV(t, out)
	if len(records) != 7 {
		t.Fatalf("expected 7 records, got %d", len(records))
	}
	wantSymbols := []string{"AAPL", "MSFT", "AAPL", "MSFT", "AAPL", "MSFT"}
	for i, w := range wantSymbols {
		if records[i+1][8] != w {
			t.Errorf("row %d symbol = %s, want %s", i, records[i+1][8], w)
		}
	}
	if records[1][9] != "" || records[3][9] == "" {
		t.Error("each symbol's first daily return must be empty")
	}
}

func TestExporter_ScenarioEmptySeries(t *testing.T) {
	mock := &collector.MockFetcher{Missing: map[string]bool{"ZZZZINVALID": true}}
	e := New(collector.NewRepository(mock, nil, 0, 0))

	out, err := e.Stock(context.Background(), "ZZZZINVALID", model.Period1Y)
	if out != "" {
		t.Errorf("expected empty output, got %q", out)
	}
	if !errors.Is(err, collector.ErrDataUnavailable) {
		t.Errorf("expected ErrDataUnavailable, got %v", err)
	}

	out, err = e.Comparison(context.Background(), []string{"ZZZZINVALID"}, model.Period1Y)
	if out != "" || !errors.Is(err, collector.ErrDataUnavailable) {
		t.Errorf("expected empty comparison, got %q %v", out, err)
	}

	if _, err := StockCSV(&model.Series{}, model.IssuerMetadata{}, exportTime); !errors.Is(err, collector.ErrDataUnavailable) {
		t.Errorf("expected ErrDataUnavailable for empty series, got %v", err)
	}
}

func TestExporter_StockRowCount(t *testing.T) {
	mock := &collector.MockFetcher{Price: 50, End: time.Date(2024, 6, 28, 0, 0, 0, 0, time.UTC)}
	e := New(collector.NewRepository(mock, nil, 0, 0))
	e.now = func() time.Time { return exportTime }

	out, err := e.Stock(context.Background(), "aapl", model.Period1M)
	if err != nil {
		t.Fatalf("Stock failed: %v", err)
	}
	records := readCSV(t, out)
	if len(records)-1 != 21+1 {
		t.Errorf("expected bars+1 data records, got %d", len(records)-1)
	}
	if records[1][6] != "Symbol: AAPL" {
		t.Errorf("unexpected banner symbol %q", records[1][6])
	}

	crypto, err := e.Crypto(context.Background(), "eth", model.Period5D)
	if err != nil || !strings.HasPrefix(crypto, "Date,") {
		t.Errorf("unexpected crypto export %q %v", crypto, err)
	}
}

func TestFilename(t *testing.T) {
	got := Filename(KindStock, "AAPL", model.Period1Y, exportTime)
	if got != "AAPL_complete_data_1y_20240506_143000.csv" {
		t.Errorf("unexpected filename %q", got)
	}
	if got := Filename(KindCrypto, "BTC-USD", model.Period1M, exportTime); got != "BTC_crypto_data_1mo_20240506_143000.csv" {
		t.Errorf("unexpected crypto filename %q", got)
	}
}

func TestParseKind(t *testing.T) {
	if k, err := ParseKind(""); err != nil || k != KindStock {
		t.Errorf("expected stock default, got %v %v", k, err)
	}
	if _, err := ParseKind("bonds"); err == nil {
		t.Error("expected error for unknown kind")
	}
}

func TestCountRows(t *testing.T) {
	stock, err := StockCSV(scenarioSeries(), model.IssuerMetadata{}, exportTime)
	if err != nil {
		t.Fatal(err)
	}
	if n := CountRows(stock); n != 2 {
		t.Errorf("stock: expected 2 data rows, got %d", n)
	}
	crypto, err := CryptoCSV(scenarioSeries())
	if err != nil {
		t.Fatal(err)
	}
	if n := CountRows(crypto); n != 2 {
		t.Errorf("crypto: expected 2 data rows, got %d", n)
	}
	if n := CountRows(""); n != 0 {
		t.Errorf("empty: expected 0, got %d", n)
	}
}
