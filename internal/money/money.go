package money

import (
	"errors"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"
)

// ErrInvalidPrice is returned when a price is empty or not a decimal number.
var ErrInvalidPrice = errors.New("invalid price")

// FormatUSD renders an amount as "$1,234.56" ("-$1,234.56" when negative).
func FormatUSD(amount float64) string {
	rounded, _ := decimal.NewFromFloat(amount).Round(2).Float64()
	if rounded < 0 {
		return "-$" + humanize.FormatFloat("#,###.##", -rounded)
	}
	return "$" + humanize.FormatFloat("#,###.##", rounded)
}

// ParsePrice parses a user-entered price.
func ParsePrice(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, ErrInvalidPrice
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidPrice
	}
	return d, nil
}
