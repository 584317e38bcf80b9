package calculator

import (
	"errors"
	"math"

	"MarketLens/internal/model"
)

// Calculate52WeekRange returns max(High) and min(Low) over the whole series.
// The caller picks the window through the requested period.
func Calculate52WeekRange(bars []model.OHLCV) (high, low float64, err error) {
	if len(bars) == 0 {
		return 0, 0, errors.New("no daily bars provided")
	}
	high = math.Inf(-1)
	low = math.Inf(1)
	for _, b := range bars {
		if b.High > high {
			high = b.High
		}
		if b.Low < low {
			low = b.Low
		}
	}
	return high, low, nil
}
