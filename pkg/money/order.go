package money

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// OrderAmounts is the monetary breakdown of an order. It is a plain value:
// callers may construct an inconsistent one and must run ValidateOrderAmounts
// before trusting the total for charging or persistence.
type OrderAmounts struct {
	Subtotal decimal.Decimal `json:"subtotal"`
	Shipping decimal.Decimal `json:"shipping"`
	Tax      decimal.Decimal `json:"tax"`
	Discount decimal.Decimal `json:"discount"`
	Total    decimal.Decimal `json:"total"`
}

// ReconciliationError reports a mismatch between an order's stated total and
// the total re-derived from its components.
type ReconciliationError struct {
	Expected decimal.Decimal
	Actual   decimal.Decimal
}

func (e *ReconciliationError) Error() string {
	return fmt.Sprintf("order total mismatch: expected %s, got %s", e.Expected, e.Actual)
}

// ValidateOrderAmounts recomputes the order total from its components and
// compares it to the stated total within DefaultTolerance. A mismatch returns
// a *ReconciliationError; it is an expected, handleable outcome (recompute or
// abort), not a crash. This is the gate that must pass before any order total
// is charged or persisted.
func ValidateOrderAmounts(o OrderAmounts) error {
	expected := OrderTotal(o.Subtotal, o.Shipping, o.Tax, o.Discount)
	if !Equal(expected, o.Total) {
		return &ReconciliationError{Expected: expected, Actual: o.Total}
	}
	return nil
}
