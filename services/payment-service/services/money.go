package services

import (
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// Stripe zero-decimal currencies: amounts are already whole units.
var zeroDecimalCurrencies = map[string]bool{
	"bif": true, "clp": true, "djf": true, "gnf": true,
	"jpy": true, "kmf": true, "krw": true, "mga": true,
	"pyg": true, "rwf": true, "ugx": true, "vnd": true,
	"vuv": true, "xaf": true, "xof": true, "xpf": true,
}

var maxMinorUnits = decimal.NewFromInt(math.MaxInt64)

// MinorDigits returns how many fractional digits the currency uses.
func MinorDigits(currency string) int32 {
	if zeroDecimalCurrencies[strings.ToLower(currency)] {
		return 0
	}
	return 2
}

// ParseMinorUnits converts a plain decimal string such as "100.00" into minor
// units. Signs, exponents, whitespace and extra fractional digits are
// rejected rather than rounded.
func ParseMinorUnits(s, currency string) (int64, error) {
	digits := MinorDigits(currency)

	whole, frac, hasDot := strings.Cut(s, ".")
	if !isDigits(whole) {
		return 0, fmt.Errorf("%q is not a decimal amount", s)
	}
	if hasDot && (!isDigits(frac) || int32(len(frac)) > digits) {
		return 0, fmt.Errorf("%q has more than %d fractional digits", s, digits)
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("%q is not a decimal amount: %w", s, err)
	}
	minor := d.Shift(digits)
	if minor.GreaterThan(maxMinorUnits) {
		return 0, fmt.Errorf("%q overflows", s)
	}
	return minor.IntPart(), nil
}

// FormatMinorUnits renders minor units as a major-unit string, e.g. 11000 usd
// as "110.00".
func FormatMinorUnits(amount int64, currency string) string {
	digits := MinorDigits(currency)
	return decimal.New(amount, -digits).StringFixed(digits)
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
