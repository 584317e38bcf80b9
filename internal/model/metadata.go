package model

import "github.com/guregu/null/v6"

// IssuerMetadata holds the known descriptive fields for a symbol.
// Every field is independently optional.
type IssuerMetadata struct {
	Symbol        string      `json:"symbol"`
	LongName      null.String `json:"long_name"`
	Sector        null.String `json:"sector"`
	Industry      null.String `json:"industry"`
	MarketCap     null.Float  `json:"market_cap"`
	TrailingPE    null.Float  `json:"trailing_pe"`
	Beta          null.Float  `json:"beta"`
	DividendYield null.Float  `json:"dividend_yield"`
}

// StringOr returns the value or the fallback when absent.
func StringOr(v null.String, fallback string) string {
	if v.Valid && v.String != "" {
		return v.String
	}
	return fallback
}
