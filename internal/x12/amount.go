package x12

import (
	"errors"
	"math"

	"github.com/shopspring/decimal"
)

// maxExponent bounds the decimal exponent accepted from an element. Anything
// wider is not a monetary amount and would make decimal rescaling unbounded.
const maxExponent = 32

var (
	hundred = decimal.NewFromInt(100)

	errNotANumber = errors.New("not a number")
	errOutOfRange = errors.New("out of range")
)

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// toFloat converts d, failing when it does not fit a finite float64.
func toFloat(d decimal.Decimal) (float64, error) {
	f := d.InexactFloat64()
	if !finite(f) {
		return 0, errOutOfRange
	}
	return f, nil
}

// roundCents rounds to 2 decimal places.
func roundCents(d decimal.Decimal) (float64, error) {
	return toFloat(d.Round(2))
}

// extendedPrice is round(qty*unitPrice, 2), rounding half away from zero on
// the exact decimal product.
func extendedPrice(qty, unitPrice float64) (float64, error) {
	if !finite(qty) || !finite(unitPrice) {
		return 0, errOutOfRange
	}
	return roundCents(decimal.NewFromFloat(qty).Mul(decimal.NewFromFloat(unitPrice)))
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

// parseDecimal rejects NaN and Inf spellings along with exponents no invoice
// amount needs.
func parseDecimal(raw string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, errNotANumber
	}
	if exp := d.Exponent(); exp > maxExponent || exp < -maxExponent {
		return decimal.Zero, errOutOfRange
	}
	return d, nil
}

// impliedCents parses a TXI amount: digit-only values carry implied cents,
// anything else is a literal decimal.
func impliedCents(raw string) (float64, error) {
	d, err := parseDecimal(raw)
	if err != nil {
		return 0, err
	}
	if isDigits(raw) {
		d = d.Div(hundred)
	}
	return roundCents(d)
}

// totalAmount parses a TDS total. The value is scaled down by 100 when it is
// a whole number or greater than 100.
//
// This is a heuristic: a true whole-dollar total such as "75" reads as 0.75.
// It is kept as is until real trading partner samples say otherwise.
func totalAmount(raw string) (float64, error) {
	d, err := parseDecimal(raw)
	if err != nil {
		return 0, err
	}
	if d.IsInteger() || d.GreaterThan(hundred) {
		d = d.Div(hundred)
	}
	return roundCents(d)
}

// parseFloat parses an IT1 quantity or unit price.
func parseFloat(raw string) (float64, error) {
	d, err := parseDecimal(raw)
	if err != nil {
		return 0, err
	}
	return toFloat(d)
}
