package domain

import (
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

// ParsePriceDecimal turns a display price such as "2,50 €" or "1.234,50 EUR"
// into a decimal. Anything that cannot be read yields zero.
func ParsePriceDecimal(display string) decimal.Decimal {
	s := strings.ReplaceAll(display, "€", "")
	s = strings.ReplaceAll(s, "EUR", "")
	s = strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
	if s == "" {
		return decimal.Zero
	}

	if strings.Contains(s, ",") {
		s = strings.ReplaceAll(s, ".", "")
		s = strings.Replace(s, ",", ".", 1)
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// ParsePrice is ParsePriceDecimal as a float64
func ParsePrice(display string) float64 {
	f, _ := ParsePriceDecimal(display).Float64()
	return f
}
