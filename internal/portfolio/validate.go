package portfolio

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"

	"MarketLens/internal/model"
)

// ErrInvalidHoldings is returned when holdings fail validation.
var ErrInvalidHoldings = errors.New("invalid holdings")

var validate = validator.New()

// ValidateHoldings checks that there is at least one holding, that every
// symbol is non-empty, and that shares and purchase price are positive.
func ValidateHoldings(holdings map[string]model.Holding) error {
	if len(holdings) == 0 {
		return fmt.Errorf("%w: no holdings", ErrInvalidHoldings)
	}
	symbols := make([]string, 0, len(holdings))
	for sym := range holdings {
		symbols = append(symbols, sym)
	}
	sort.Strings(symbols)

	var problems []string
	for _, sym := range symbols {
		if strings.TrimSpace(sym) == "" {
			problems = append(problems, "empty symbol")
			continue
		}
		if err := validate.Struct(holdings[sym]); err != nil {
			var fieldErrs validator.ValidationErrors
			if errors.As(err, &fieldErrs) {
				for _, fe := range fieldErrs {
					problems = append(problems, fmt.Sprintf("%s: %s must be > 0", sym, fe.Field()))
				}
				continue
			}
			problems = append(problems, fmt.Sprintf("%s: %v", sym, err))
		}
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidHoldings, strings.Join(problems, "; "))
	}
	return nil
}

// NormalizeHoldings upper-cases and trims symbols. Duplicate symbols after
// normalisation are merged: shares add up and the purchase price becomes
// the share-weighted average.
func NormalizeHoldings(holdings map[string]model.Holding) map[string]model.Holding {
	out := make(map[string]model.Holding, len(holdings))
	for sym, h := range holdings {
		key := model.NormalizeSymbol(sym)
		prev, ok := out[key]
		if !ok {
			out[key] = h
			continue
		}
		shares := prev.Shares + h.Shares
		price := h.PurchasePrice
		if shares != 0 {
			price = (prev.Shares*prev.PurchasePrice + h.Shares*h.PurchasePrice) / shares
		}
		out[key] = model.Holding{Shares: shares, PurchasePrice: price}
	}
	return out
}
