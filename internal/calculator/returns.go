package calculator

import "MarketLens/internal/model"

// WeightedReturn is the first-to-last close return per symbol combined with
// weights. A nil weights map means equal weights across all series. The
// result is a percentage; ok is false when nothing could be weighed.
func WeightedReturn(all map[string]*model.Series, weights map[string]float64) (pct float64, ok bool) {
	if len(all) == 0 {
		return 0, false
	}
	if weights == nil {
		weights = make(map[string]float64, len(all))
		for sym := range all {
			weights[sym] = 1.0 / float64(len(all))
		}
	}
	total := 0.0
	for sym, s := range all {
		w, found := weights[sym]
		if !found || s.Empty() {
			continue
		}
		first := s.Bars[0].Close
		if first == 0 {
			continue
		}
		lastBar, _ := s.Last()
		total += (lastBar.Close - first) / first * w
		ok = true
	}
	return total * 100, ok
}
