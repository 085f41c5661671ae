package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/FreemaX94/VIVR-sub000/internal/service"
	apperrors "github.com/FreemaX94/VIVR-sub000/pkg/errors"
	"github.com/FreemaX94/VIVR-sub000/pkg/money"
	"github.com/FreemaX94/VIVR-sub000/pkg/validator"
)

// QuoteRequest holds the optional pricing knobs of a quote or checkout.
// exchange_rate is required when display_currency is set.
type QuoteRequest struct {
	DiscountPercent float64     `json:"discount_percent" validate:"gte=0,lte=100"`
	DisplayCurrency string      `json:"display_currency,omitempty" validate:"omitempty,len=3"`
	ExchangeRate    json.Number `json:"exchange_rate,omitempty"`
}

// CheckoutHandler serves the quote and checkout endpoints.
type CheckoutHandler struct {
	checkout *service.CheckoutService
}

// NewCheckoutHandler creates the checkout handler.
func NewCheckoutHandler(checkout *service.CheckoutService) *CheckoutHandler {
	return &CheckoutHandler{checkout: checkout}
}

// Routes mounts the checkout endpoints on a router.
func (h *CheckoutHandler) Routes(r chi.Router) {
	r.Post("/quote", h.quote)
	r.Post("/checkout", h.checkoutCart)
}

func (h *CheckoutHandler) quote(w http.ResponseWriter, r *http.Request) {
	opts, err := h.parseOptions(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	quote, err := h.checkout.Quote(r.Context(), userIDFromContext(r.Context()), opts)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, quote)
}

func (h *CheckoutHandler) checkoutCart(w http.ResponseWriter, r *http.Request) {
	opts, err := h.parseOptions(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	result, err := h.checkout.Checkout(r.Context(), userIDFromContext(r.Context()), opts)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

// parseOptions decodes the request body into quote options. An empty body
// means default pricing.
func (h *CheckoutHandler) parseOptions(r *http.Request) (service.QuoteOptions, error) {
	var req QuoteRequest
	if err := decodeJSON(r, &req); err != nil {
		if errors.Is(err, io.EOF) {
			return service.QuoteOptions{}, nil
		}
		return service.QuoteOptions{}, apperrors.InvalidInput("invalid JSON body")
	}
	if err := validator.Validate(&req); err != nil {
		return service.QuoteOptions{}, apperrors.InvalidInput(err.Error())
	}

	opts := service.QuoteOptions{
		DiscountPercent: req.DiscountPercent,
		DisplayCurrency: req.DisplayCurrency,
	}
	if req.ExchangeRate != "" {
		rate, err := money.Parse(req.ExchangeRate)
		if err != nil {
			return service.QuoteOptions{}, apperrors.InvalidInput("invalid exchange_rate: " + req.ExchangeRate.String())
		}
		opts.ExchangeRate = rate
	}

	return opts, nil
}
