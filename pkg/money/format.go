package money

import (
	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Format renders an amount as a locale- and currency-aware display string.
// Empty currency or locale fall back to the store defaults (EUR, fr-FR).
// Format never fails: when the currency code or locale cannot be resolved it
// degrades to a fixed two-decimal string suffixed with the currency code,
// because a money display is never allowed to break a page render.
func Format(amount decimal.Decimal, currencyCode, locale string) string {
	if currencyCode == "" {
		currencyCode = DefaultCurrency
	}
	if locale == "" {
		locale = DefaultLocale
	}

	unit, err := currency.ParseISO(currencyCode)
	if err != nil {
		return fallbackFormat(amount, currencyCode)
	}
	tag, err := language.Parse(locale)
	if err != nil {
		return fallbackFormat(amount, currencyCode)
	}

	f, _ := amount.Round(Scale).Float64()
	return message.NewPrinter(tag).Sprintf("%v", currency.Symbol(unit.Amount(f)))
}

// fallbackFormat is the minimal display form used when locale-aware
// formatting is unavailable, e.g. "99.99 EUR".
func fallbackFormat(amount decimal.Decimal, currencyCode string) string {
	return amount.StringFixed(Scale) + " " + currencyCode
}

// SavingsResult holds the display form of a price reduction.
type SavingsResult struct {
	Amount  string `json:"amount"`
	Percent string `json:"percent"`
}

// Savings returns the formatted absolute difference between an original and a
// discounted amount, plus the reduction as an integer percent string. A zero
// original fails with ErrDivisionByZero: the percent is undefined and callers
// must guard rather than display a bogus "0%".
func Savings(original, discounted decimal.Decimal, currencyCode, locale string) (SavingsResult, error) {
	if original.IsZero() {
		return SavingsResult{}, ErrDivisionByZero
	}

	diff := original.Sub(discounted)
	percent := diff.Div(original).Mul(hundred).Round(0)

	return SavingsResult{
		Amount:  Format(diff.Abs(), currencyCode, locale),
		Percent: percent.String() + "%",
	}, nil
}
