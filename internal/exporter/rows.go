package exporter

// Row layouts are the exported contract: gocsv writes the header from the
// csv tags in field order.

// stockRow is one line of the equity export.
type stockRow struct {
	Date           string `csv:"Date"`
	Open           string `csv:"Open"`
	High           string `csv:"High"`
	Low            string `csv:"Low"`
	Close          string `csv:"Close"`
	Volume         string `csv:"Volume"`
	Dividends      string `csv:"Dividends"`
	StockSplits    string `csv:"Stock Splits"`
	DailyChange    string `csv:"Daily_Change"`
	DailyChangePct string `csv:"Daily_Change_Pct"`
	PriceRange     string `csv:"Price_Range"`
	PriceRangePct  string `csv:"Price_Range_Pct"`
	MA7            string `csv:"MA_7"`
	MA20           string `csv:"MA_20"`
	MA50           string `csv:"MA_50"`
	Volatility7d   string `csv:"Volatility_7d"`
	Volatility20d  string `csv:"Volatility_20d"`
	VolumeMA20     string `csv:"Volume_MA_20"`
	VolumeRatio    string `csv:"Volume_Ratio"`
}

// cryptoRow is one line of the crypto export.
type cryptoRow struct {
	Date              string `csv:"Date"`
	Open              string `csv:"Open"`
	High              string `csv:"High"`
	Low               string `csv:"Low"`
	Close             string `csv:"Close"`
	Volume            string `csv:"Volume"`
	Dividends         string `csv:"Dividends"`
	StockSplits       string `csv:"Stock Splits"`
	DailyReturn       string `csv:"Daily_Return"`
	CumulativeReturn  string `csv:"Cumulative_Return"`
	RollingVolatility string `csv:"Rolling_Volatility"`
}

// comparisonRow is one line of the multi-symbol export.
type comparisonRow struct {
	Date        string `csv:"Date"`
	Open        string `csv:"Open"`
	High        string `csv:"High"`
	Low         string `csv:"Low"`
	Close       string `csv:"Close"`
	Volume      string `csv:"Volume"`
	Dividends   string `csv:"Dividends"`
	StockSplits string `csv:"Stock Splits"`
	Symbol      string `csv:"Symbol"`
	DailyReturn string `csv:"Daily_Return"`
}

// StockColumns is the equity export header in order.
var StockColumns = []string{
	"Date", "Open", "High", "Low", "Close", "Volume", "Dividends", "Stock Splits",
	"Daily_Change", "Daily_Change_Pct", "Price_Range", "Price_Range_Pct",
	"MA_7", "MA_20", "MA_50", "Volatility_7d", "Volatility_20d", "Volume_MA_20", "Volume_Ratio",
}

// CryptoColumns is the crypto export header in order.
var CryptoColumns = []string{
	"Date", "Open", "High", "Low", "Close", "Volume", "Dividends", "Stock Splits",
	"Daily_Return", "Cumulative_Return", "Rolling_Volatility",
}

// ComparisonColumns is the comparison export header in order.
var ComparisonColumns = []string{
	"Date", "Open", "High", "Low", "Close", "Volume", "Dividends", "Stock Splits",
	"Symbol", "Daily_Return",
}
