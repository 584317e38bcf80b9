package model

import "testing"

func TestParsePeriod(t *testing.T) {
	tests := []struct {
		in      string
		want    Period
		wantErr bool
	}{
		{"", Period1Y, false},
		{"1y", Period1Y, false},
		{" 5D ", Period5D, false},
		{"ytd", PeriodYTD, false},
		{"max", PeriodMax, false},
		{"3w", "", true},
	}
	for _, tt := range tests {
		got, err := ParsePeriod(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParsePeriod(%q): err=%v, wantErr=%v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParsePeriod(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNormalizeCryptoSymbol(t *testing.T) {
	tests := map[string]string{
		"btc":     "BTC-USD",
		"BTC-USD": "BTC-USD",
		" eth ":   "ETH-USD",
		"":        "",
	}
	for in, want := range tests {
		if got := NormalizeCryptoSymbol(in); got != want {
			t.Errorf("NormalizeCryptoSymbol(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestPreferencesMerge(t *testing.T) {
	base := DefaultPreferences()
	merged := base.Merge(Preferences{"theme": "dark", "refresh_seconds": "30"})
	if merged["theme"] != "dark" {
		t.Errorf("expected theme dark, got %q", merged["theme"])
	}
	if merged["default_period"] != "1y" {
		t.Errorf("expected default_period kept, got %q", merged["default_period"])
	}
	if merged["refresh_seconds"] != "30" {
		t.Errorf("expected new key added")
	}
	if base["theme"] != "light" {
		t.Error("merge must not mutate the receiver")
	}
}
