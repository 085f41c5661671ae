// Package http exposes the cart and checkout services over a chi router.
package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/FreemaX94/VIVR-sub000/internal/domain"
	"github.com/FreemaX94/VIVR-sub000/internal/service"
	apperrors "github.com/FreemaX94/VIVR-sub000/pkg/errors"
	"github.com/FreemaX94/VIVR-sub000/pkg/logger"
	"github.com/FreemaX94/VIVR-sub000/pkg/money"
	"github.com/FreemaX94/VIVR-sub000/pkg/validator"
)

// AddItemRequest is the payload for adding a product to the cart. Price and
// compare_price arrive as JSON numbers or numeric strings and go through the
// money parser, never through float arithmetic.
type AddItemRequest struct {
	ProductID    string      `json:"product_id" validate:"required,max=64"`
	Name         string      `json:"name" validate:"required,max=256"`
	Price        json.Number `json:"price" validate:"required"`
	ComparePrice json.Number `json:"compare_price,omitempty"`
	Quantity     int         `json:"quantity" validate:"gte=0,lte=100"`
}

// UpdateQuantityRequest sets the absolute quantity of a cart line.
type UpdateQuantityRequest struct {
	Quantity int `json:"quantity" validate:"gte=0,lte=100"`
}

// CartHandler serves the cart endpoints.
type CartHandler struct {
	carts *service.CartService
}

// NewCartHandler creates the cart handler.
func NewCartHandler(carts *service.CartService) *CartHandler {
	return &CartHandler{carts: carts}
}

// Routes mounts the cart endpoints on a router.
func (h *CartHandler) Routes(r chi.Router) {
	r.Get("/", h.getCart)
	r.Delete("/", h.clearCart)
	r.Post("/items", h.addItem)
	r.Patch("/items/{productID}", h.updateQuantity)
	r.Delete("/items/{productID}", h.removeItem)
}

func (h *CartHandler) getCart(w http.ResponseWriter, r *http.Request) {
	cart, err := h.carts.GetCart(r.Context(), userIDFromContext(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cart)
}

func (h *CartHandler) addItem(w http.ResponseWriter, r *http.Request) {
	var req AddItemRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, apperrors.InvalidInput("invalid JSON body"))
		return
	}
	if err := validator.Validate(&req); err != nil {
		writeValidationError(w, r, err)
		return
	}

	price, err := money.Parse(req.Price)
	if err != nil {
		writeError(w, r, apperrors.InvalidInput("invalid price: "+req.Price.String()))
		return
	}

	product := domain.Product{
		ID:    req.ProductID,
		Name:  req.Name,
		Price: price,
	}
	if req.ComparePrice != "" {
		compare, err := money.Parse(req.ComparePrice)
		if err != nil {
			writeError(w, r, apperrors.InvalidInput("invalid compare_price: "+req.ComparePrice.String()))
			return
		}
		product.ComparePrice = compare
	}

	cart, err := h.carts.AddItem(r.Context(), userIDFromContext(r.Context()), product, req.Quantity)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cart)
}

func (h *CartHandler) updateQuantity(w http.ResponseWriter, r *http.Request) {
	var req UpdateQuantityRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, apperrors.InvalidInput("invalid JSON body"))
		return
	}
	if err := validator.Validate(&req); err != nil {
		writeValidationError(w, r, err)
		return
	}

	productID := chi.URLParam(r, "productID")
	cart, err := h.carts.UpdateItemQuantity(r.Context(), userIDFromContext(r.Context()), productID, req.Quantity)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cart)
}

func (h *CartHandler) removeItem(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "productID")
	cart, err := h.carts.RemoveItem(r.Context(), userIDFromContext(r.Context()), productID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cart)
}

func (h *CartHandler) clearCart(w http.ResponseWriter, r *http.Request) {
	if err := h.carts.ClearCart(r.Context(), userIDFromContext(r.Context())); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ----------------------------------------------------------------------------
// Shared response helpers
// ----------------------------------------------------------------------------

type errorResponse struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// decodeJSON decodes a JSON body with numbers preserved as json.Number so
// prices never pass through float64.
func decodeJSON(r *http.Request, target any) error {
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	return dec.Decode(target)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := apperrors.HTTPStatus(err)

	resp := errorResponse{Code: "INTERNAL_ERROR", Message: "an internal error occurred"}
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		resp.Code = appErr.Code
		resp.Message = appErr.Message
	}

	if status >= 500 {
		logger.FromContext(r.Context()).ErrorContext(r.Context(), "request failed",
			slog.String("error", err.Error()),
		)
	}

	writeJSON(w, status, resp)
}

func writeValidationError(w http.ResponseWriter, r *http.Request, err error) {
	var vErr *validator.ValidationError
	if errors.As(err, &vErr) {
		writeJSON(w, http.StatusBadRequest, errorResponse{
			Code:    "VALIDATION_FAILED",
			Message: "request validation failed",
			Fields:  vErr.Fields(),
		})
		return
	}
	writeError(w, r, apperrors.InvalidInput(err.Error()))
}

// writeErrorBody is the pre-router variant used by middleware, before any
// request-scoped logger exists.
func writeErrorBody(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Code: code, Message: message})
}
