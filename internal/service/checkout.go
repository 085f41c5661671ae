package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/FreemaX94/VIVR-sub000/internal/domain"
	"github.com/FreemaX94/VIVR-sub000/internal/gateway"
	apperrors "github.com/FreemaX94/VIVR-sub000/pkg/errors"
	"github.com/FreemaX94/VIVR-sub000/pkg/logger"
	"github.com/FreemaX94/VIVR-sub000/pkg/money"
)

// CartReader is the read side of the cart service the checkout flow needs.
type CartReader interface {
	GetCart(ctx context.Context, userID string) (*domain.Cart, error)
}

// PaymentGateway opens payment sessions with the external provider.
type PaymentGateway interface {
	CreateSession(ctx context.Context, req gateway.SessionRequest) (*gateway.Session, error)
}

// CheckoutConfig holds the pricing rules applied when quoting an order.
type CheckoutConfig struct {
	// TaxPercent is applied to the cart subtotal.
	TaxPercent float64
	// ShippingFlat is charged below the free shipping threshold.
	ShippingFlat decimal.Decimal
	// FreeShippingThreshold waives shipping for subtotals at or above it.
	// Zero disables free shipping.
	FreeShippingThreshold decimal.Decimal
	// Locale used for formatted display strings.
	Locale string
}

// QuoteOptions are the per-request knobs of a quote.
type QuoteOptions struct {
	// DiscountPercent in [0, 100], applied to the subtotal.
	DiscountPercent float64
	// DisplayCurrency and ExchangeRate optionally add a converted display
	// total alongside the cart currency. Display only; the order is charged
	// in the cart currency.
	DisplayCurrency string
	ExchangeRate    decimal.Decimal
}

// QuoteLine is one cart line with its extended total and, when the product
// carries a compare-at price above the unit price, the savings display.
type QuoteLine struct {
	ProductID string               `json:"product_id"`
	Name      string               `json:"name"`
	UnitPrice decimal.Decimal      `json:"unit_price"`
	Quantity  int                  `json:"quantity"`
	LineTotal decimal.Decimal      `json:"line_total"`
	Savings   *money.SavingsResult `json:"savings,omitempty"`
}

// DisplayTotal is the quote total converted into another currency for
// display.
type DisplayTotal struct {
	Currency  string          `json:"currency"`
	Total     decimal.Decimal `json:"total"`
	Formatted string          `json:"formatted"`
}

// Quote is a fully priced order proposal for the current cart contents. Its
// amounts have passed reconciliation; the total is safe to charge.
type Quote struct {
	CartID         string             `json:"cart_id"`
	Currency       string             `json:"currency"`
	Lines          []QuoteLine        `json:"lines"`
	Amounts        money.OrderAmounts `json:"amounts"`
	FormattedTotal string             `json:"formatted_total"`
	Display        *DisplayTotal      `json:"display,omitempty"`
}

// CheckoutResult pairs the final quote with the opened payment session.
type CheckoutResult struct {
	Quote   *Quote           `json:"quote"`
	Session *gateway.Session `json:"session"`
}

// CheckoutService prices carts and opens payment sessions. It never mutates
// the cart; completing or abandoning the payment is the caller's concern.
type CheckoutService struct {
	carts   CartReader
	gateway PaymentGateway
	logger  *slog.Logger
	cfg     CheckoutConfig
}

// NewCheckoutService creates the checkout service.
func NewCheckoutService(carts CartReader, gw PaymentGateway, log *slog.Logger, cfg CheckoutConfig) *CheckoutService {
	if cfg.Locale == "" {
		cfg.Locale = money.DefaultLocale
	}
	return &CheckoutService{
		carts:   carts,
		gateway: gw,
		logger:  log,
		cfg:     cfg,
	}
}

// Quote prices the user's current cart: subtotal, shipping, tax, discount,
// and the reconciled order total. An empty cart cannot be quoted.
func (s *CheckoutService) Quote(ctx context.Context, userID string, opts QuoteOptions) (*Quote, error) {
	cart, err := s.carts.GetCart(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(cart.Items) == 0 {
		return nil, apperrors.InvalidInput("cart is empty")
	}

	subtotal := cart.Total

	shipping := s.cfg.ShippingFlat
	if !s.cfg.FreeShippingThreshold.IsZero() && subtotal.GreaterThanOrEqual(s.cfg.FreeShippingThreshold) {
		shipping = decimal.Zero
	}

	tax, err := money.CalculateTax(subtotal, s.cfg.TaxPercent)
	if err != nil {
		return nil, apperrors.InvalidInput(err.Error())
	}

	discounted, err := money.ApplyDiscount(subtotal, opts.DiscountPercent)
	if err != nil {
		return nil, apperrors.InvalidInput(err.Error())
	}
	discount := subtotal.Sub(discounted)

	amounts := money.OrderAmounts{
		Subtotal: subtotal,
		Shipping: shipping,
		Tax:      tax,
		Discount: discount,
		Total:    money.OrderTotal(subtotal, shipping, tax, discount),
	}

	// The reconciliation gate. It holds by construction here, but every total
	// that can reach the payment gateway goes through it regardless.
	if err := money.ValidateOrderAmounts(amounts); err != nil {
		return nil, apperrors.Internal(err)
	}
	if amounts.Total.IsNegative() {
		return nil, apperrors.InvalidInput(
			fmt.Sprintf("discount produces a negative order total (%s)", amounts.Total))
	}

	quote := &Quote{
		CartID:         cart.ID,
		Currency:       cart.Currency,
		Lines:          s.buildLines(ctx, cart),
		Amounts:        amounts,
		FormattedTotal: money.Format(amounts.Total, cart.Currency, s.cfg.Locale),
	}

	if opts.DisplayCurrency != "" && opts.DisplayCurrency != cart.Currency {
		if !opts.ExchangeRate.IsPositive() {
			return nil, apperrors.InvalidInput("exchange rate must be positive")
		}
		converted := money.Convert(amounts.Total, opts.ExchangeRate)
		quote.Display = &DisplayTotal{
			Currency:  opts.DisplayCurrency,
			Total:     converted,
			Formatted: money.Format(converted, opts.DisplayCurrency, s.cfg.Locale),
		}
	}

	return quote, nil
}

// Checkout quotes the cart and opens a payment session for the quoted total.
func (s *CheckoutService) Checkout(ctx context.Context, userID string, opts QuoteOptions) (*CheckoutResult, error) {
	quote, err := s.Quote(ctx, userID, opts)
	if err != nil {
		return nil, err
	}

	session, err := s.gateway.CreateSession(ctx, gateway.SessionRequest{
		Amount:    quote.Amounts.Total,
		Currency:  quote.Currency,
		Reference: quote.CartID,
	})
	if err != nil {
		logger.WithContext(ctx, s.logger).ErrorContext(ctx, "payment session failed",
			slog.String("cart_id", quote.CartID),
			slog.String("error", err.Error()),
		)
		var appErr *apperrors.AppError
		if errors.As(err, &appErr) {
			return nil, err
		}
		return nil, apperrors.PaymentFailed("could not open a payment session")
	}

	logger.WithContext(ctx, s.logger).InfoContext(ctx, "payment session created",
		slog.String("cart_id", quote.CartID),
		slog.String("session_id", session.ID),
		slog.String("total", quote.Amounts.Total.String()),
	)

	return &CheckoutResult{Quote: quote, Session: session}, nil
}

// buildLines projects cart items into quote lines, attaching the savings
// display for items sold below their compare-at price.
func (s *CheckoutService) buildLines(ctx context.Context, cart *domain.Cart) []QuoteLine {
	lines := make([]QuoteLine, len(cart.Items))
	for i, it := range cart.Items {
		line := QuoteLine{
			ProductID: it.ProductID,
			Name:      it.Name,
			UnitPrice: it.UnitPrice,
			Quantity:  it.Quantity,
			LineTotal: money.Subtotal([]money.Item{{Price: it.UnitPrice, Quantity: it.Quantity}}),
		}

		if it.ComparePrice.GreaterThan(it.UnitPrice) {
			savings, err := money.Savings(it.ComparePrice, it.UnitPrice, cart.Currency, s.cfg.Locale)
			if err != nil {
				logger.WithContext(ctx, s.logger).WarnContext(ctx, "skipping savings display",
					slog.String("product_id", it.ProductID),
					slog.String("error", err.Error()),
				)
			} else {
				line.Savings = &savings
			}
		}

		lines[i] = line
	}
	return lines
}
