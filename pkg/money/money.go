// Package money is the only sanctioned way to convert, round, format, and
// combine monetary values in the store. Every function that produces a new
// stored amount rounds half-up to exactly two decimal places, so that every
// caller produces identical totals for identical inputs.
//
// All functions are pure and safe for concurrent use.
package money

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// Scale is the number of decimal places every stored amount carries.
const Scale = 2

// Reference currency and primary locale of the store.
const (
	DefaultCurrency = "EUR"
	DefaultLocale   = "fr-FR"
)

// Sentinel errors for monetary validation failures.
var (
	ErrInvalidAmount   = errors.New("invalid money amount")
	ErrInvalidDiscount = errors.New("discount percent must be between 0 and 100")
	ErrInvalidTaxRate  = errors.New("tax percent must not be negative")
	ErrDivisionByZero  = errors.New("division by zero")
)

var (
	hundred = decimal.NewFromInt(100)
	half    = decimal.New(5, -1)
)

// DefaultTolerance is the comparison tolerance used by Equal. It absorbs
// cross-step rounding drift of at most one cent.
var DefaultTolerance = decimal.New(1, -Scale) // 0.01

// Round2 rounds an amount half-up to two decimal places. Ties round toward
// positive infinity for negative values too, so 2.675 becomes 2.68 and
// -2.675 becomes -2.67.
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Shift(Scale).Add(half).Floor().Shift(-Scale)
}

// ToFloat64 converts an amount to a plain float for display and comparison
// contexts that cannot hold a decimal. The conversion is lossy and must never
// feed back into arithmetic that will be persisted. The decimal zero value
// converts to 0.
func ToFloat64(amount decimal.Decimal) float64 {
	f, _ := amount.Float64()
	return f
}

// Parse is the single validated entry point for money coming from outside the
// system (user input, API payloads). It accepts a numeric or string
// representation, rounds half-up to two decimal places, and returns a decimal.
// Non-finite, non-numeric, and negative input fails with ErrInvalidAmount.
func Parse(input any) (decimal.Decimal, error) {
	switch v := input.(type) {
	case decimal.Decimal:
		return checkNonNegative(v)
	case string:
		d, err := decimal.NewFromString(strings.TrimSpace(v))
		if err != nil {
			return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidAmount, v)
		}
		return checkNonNegative(d)
	case json.Number:
		d, err := decimal.NewFromString(v.String())
		if err != nil {
			return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidAmount, v.String())
		}
		return checkNonNegative(d)
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return decimal.Zero, fmt.Errorf("%w: %v", ErrInvalidAmount, v)
		}
		return checkNonNegative(decimal.NewFromFloat(v))
	case float32:
		return Parse(float64(v))
	case int:
		return checkNonNegative(decimal.NewFromInt(int64(v)))
	case int64:
		return checkNonNegative(decimal.NewFromInt(v))
	default:
		return decimal.Zero, fmt.Errorf("%w: unsupported type %T", ErrInvalidAmount, input)
	}
}

// checkNonNegative rejects negative amounts and applies the canonical rounding.
func checkNonNegative(d decimal.Decimal) (decimal.Decimal, error) {
	if d.IsNegative() {
		return decimal.Zero, fmt.Errorf("%w: negative value %s", ErrInvalidAmount, d)
	}
	return Round2(d), nil
}

// IsValidAmount reports whether Parse would accept the input. It never fails:
// use it when a non-raising check is preferred before calling Parse.
func IsValidAmount(input any) bool {
	_, err := Parse(input)
	return err == nil
}

// Item is a price-quantity pair contributing to a subtotal.
type Item struct {
	Price    decimal.Decimal
	Quantity int
}

// Subtotal returns round2(sum(price * quantity)) over the items.
// An empty or nil slice yields zero.
func Subtotal(items []Item) decimal.Decimal {
	sum := decimal.Zero
	for _, it := range items {
		sum = sum.Add(it.Price.Mul(decimal.NewFromInt(int64(it.Quantity))))
	}
	return Round2(sum)
}

// ApplyDiscount returns amount minus round2(amount * percent / 100). The
// discount amount is rounded before subtraction, so the result carries at
// most two decimal places when the input does. Percent outside [0, 100]
// fails with ErrInvalidDiscount.
func ApplyDiscount(amount decimal.Decimal, percent float64) (decimal.Decimal, error) {
	// NaN compares false against every bound, so the finiteness check cannot
	// be folded into the range check.
	if math.IsNaN(percent) || math.IsInf(percent, 0) || percent < 0 || percent > 100 {
		return decimal.Zero, fmt.Errorf("%w: %v", ErrInvalidDiscount, percent)
	}
	discount := Round2(amount.Mul(decimal.NewFromFloat(percent)).Div(hundred))
	return amount.Sub(discount), nil
}

// CalculateTax returns round2(amount * percent / 100). A negative percent
// fails with ErrInvalidTaxRate. Rates above 100 are accepted: jurisdictions
// that stack excise and VAT into one line can legitimately exceed 100.
func CalculateTax(amount decimal.Decimal, percent float64) (decimal.Decimal, error) {
	if math.IsNaN(percent) || math.IsInf(percent, 0) || percent < 0 {
		return decimal.Zero, fmt.Errorf("%w: %v", ErrInvalidTaxRate, percent)
	}
	return Round2(amount.Mul(decimal.NewFromFloat(percent)).Div(hundred)), nil
}

// OrderTotal returns round2(subtotal + shipping + tax - discount).
//
// The result is deliberately unbounded: a discount larger than the other
// components produces a negative total under this contract. Rejecting a
// negative total is a business rule that belongs to the caller, not here.
func OrderTotal(subtotal, shipping, tax, discount decimal.Decimal) decimal.Decimal {
	return Round2(subtotal.Add(shipping).Add(tax).Sub(discount))
}

// Convert returns round2(amount * rate). The exchange rate is supplied by the
// caller; this package never looks one up.
func Convert(amount, rate decimal.Decimal) decimal.Decimal {
	return Round2(amount.Mul(rate))
}

// Equal compares two amounts within DefaultTolerance. The decimal zero value
// stands in for an absent amount, so two absent amounts compare equal and an
// absent amount only equals a stated one when the stated one is (near) zero.
func Equal(a, b decimal.Decimal) bool {
	return EqualWithin(a, b, DefaultTolerance)
}

// EqualWithin reports whether |a-b| < tolerance. Comparison never rounds;
// it tolerates.
func EqualWithin(a, b, tolerance decimal.Decimal) bool {
	return a.Sub(b).Abs().LessThan(tolerance)
}
