// Package service implements the cart and checkout business logic on top of
// the domain aggregate, the snapshot repository, and the event producer.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/shopspring/decimal"

	"github.com/FreemaX94/VIVR-sub000/internal/domain"
	"github.com/FreemaX94/VIVR-sub000/internal/repository"
	apperrors "github.com/FreemaX94/VIVR-sub000/pkg/errors"
	"github.com/FreemaX94/VIVR-sub000/pkg/logger"
	"github.com/FreemaX94/VIVR-sub000/pkg/money"
)

// Business limits for a single cart.
const (
	MaxQuantityPerItem = 100
	MaxItemsPerCart    = 50

	// saveAttempts bounds the optimistic-concurrency retry loop.
	saveAttempts = 3
)

// MaxUnitPrice is the highest unit price the cart accepts.
var MaxUnitPrice = decimal.New(100000, 0)

var cartOperations = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "cart_operations_total",
		Help: "Total number of cart operations by outcome",
	},
	[]string{"operation", "result"},
)

// EventPublisher publishes cart lifecycle events. Publish failures are
// logged by the service, never surfaced to the caller: the cart write is the
// source of truth and events are best effort.
type EventPublisher interface {
	PublishCartUpdated(ctx context.Context, cart *domain.Cart) error
	PublishCartCleared(ctx context.Context, cart *domain.Cart) error
}

// CartService owns all cart reads and writes. Writes go through the
// repository's compare-and-set so concurrent sessions for the same user
// cannot silently overwrite each other.
type CartService struct {
	repo     repository.CartRepository
	events   EventPublisher
	logger   *slog.Logger
	currency string
}

// NewCartService creates the cart service. currency is the ISO 4217 code new
// carts are created with.
func NewCartService(repo repository.CartRepository, events EventPublisher, log *slog.Logger, currency string) *CartService {
	if currency == "" {
		currency = money.DefaultCurrency
	}
	return &CartService{
		repo:     repo,
		events:   events,
		logger:   log,
		currency: currency,
	}
}

// GetCart returns the user's cart, or a fresh empty cart when none is
// stored. The empty cart is not persisted until the first write.
func (s *CartService) GetCart(ctx context.Context, userID string) (*domain.Cart, error) {
	cart, err := s.repo.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			cartOperations.WithLabelValues("get", "ok").Inc()
			return domain.NewCart(userID, s.currency), nil
		}
		cartOperations.WithLabelValues("get", "error").Inc()
		return nil, err
	}

	cartOperations.WithLabelValues("get", "ok").Inc()
	return cart, nil
}

// AddItem adds quantity units of the product to the user's cart, merging
// into an existing line item for the same product.
func (s *CartService) AddItem(ctx context.Context, userID string, product domain.Product, quantity int) (*domain.Cart, error) {
	if product.ID == "" {
		cartOperations.WithLabelValues("add_item", "invalid").Inc()
		return nil, apperrors.InvalidInput("product id is required")
	}
	if product.Price.IsNegative() {
		cartOperations.WithLabelValues("add_item", "invalid").Inc()
		return nil, apperrors.InvalidInput("product price must not be negative")
	}
	if product.Price.GreaterThan(MaxUnitPrice) {
		cartOperations.WithLabelValues("add_item", "invalid").Inc()
		return nil, apperrors.InvalidInput(fmt.Sprintf("product price exceeds maximum of %s", MaxUnitPrice))
	}
	if quantity < 1 {
		quantity = 1
	}
	if quantity > MaxQuantityPerItem {
		cartOperations.WithLabelValues("add_item", "invalid").Inc()
		return nil, apperrors.InvalidInput(fmt.Sprintf("quantity exceeds maximum of %d per item", MaxQuantityPerItem))
	}

	cart, err := s.save(ctx, userID, func(cart *domain.Cart) error {
		if !cart.Contains(product.ID) && len(cart.Items) >= MaxItemsPerCart {
			return apperrors.InvalidInput(fmt.Sprintf("cart holds at most %d distinct items", MaxItemsPerCart))
		}
		if cart.ItemQuantity(product.ID)+quantity > MaxQuantityPerItem {
			return apperrors.InvalidInput(fmt.Sprintf("quantity exceeds maximum of %d per item", MaxQuantityPerItem))
		}
		cart.AddItem(product, quantity)
		return nil
	})
	if err != nil {
		cartOperations.WithLabelValues("add_item", "error").Inc()
		return nil, err
	}

	cartOperations.WithLabelValues("add_item", "ok").Inc()
	s.publishUpdated(ctx, cart)
	return cart, nil
}

// UpdateItemQuantity sets the quantity for a product line item. Zero or
// negative removes the line item. Unknown products leave the cart unchanged.
func (s *CartService) UpdateItemQuantity(ctx context.Context, userID, productID string, quantity int) (*domain.Cart, error) {
	if productID == "" {
		cartOperations.WithLabelValues("update_quantity", "invalid").Inc()
		return nil, apperrors.InvalidInput("product id is required")
	}
	if quantity > MaxQuantityPerItem {
		cartOperations.WithLabelValues("update_quantity", "invalid").Inc()
		return nil, apperrors.InvalidInput(fmt.Sprintf("quantity exceeds maximum of %d per item", MaxQuantityPerItem))
	}

	cart, err := s.save(ctx, userID, func(cart *domain.Cart) error {
		cart.UpdateQuantity(productID, quantity)
		return nil
	})
	if err != nil {
		cartOperations.WithLabelValues("update_quantity", "error").Inc()
		return nil, err
	}

	cartOperations.WithLabelValues("update_quantity", "ok").Inc()
	s.publishUpdated(ctx, cart)
	return cart, nil
}

// RemoveItem drops the product's line item from the cart. Removing an absent
// product succeeds and leaves the cart unchanged.
func (s *CartService) RemoveItem(ctx context.Context, userID, productID string) (*domain.Cart, error) {
	if productID == "" {
		cartOperations.WithLabelValues("remove_item", "invalid").Inc()
		return nil, apperrors.InvalidInput("product id is required")
	}

	cart, err := s.save(ctx, userID, func(cart *domain.Cart) error {
		cart.RemoveItem(productID)
		return nil
	})
	if err != nil {
		cartOperations.WithLabelValues("remove_item", "error").Inc()
		return nil, err
	}

	cartOperations.WithLabelValues("remove_item", "ok").Inc()
	s.publishUpdated(ctx, cart)
	return cart, nil
}

// ClearCart deletes the user's cart snapshot. Clearing an absent cart
// succeeds.
func (s *CartService) ClearCart(ctx context.Context, userID string) error {
	cart, err := s.repo.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			cartOperations.WithLabelValues("clear", "ok").Inc()
			return nil
		}
		cartOperations.WithLabelValues("clear", "error").Inc()
		return err
	}

	if err := s.repo.Delete(ctx, userID); err != nil {
		cartOperations.WithLabelValues("clear", "error").Inc()
		return err
	}

	cartOperations.WithLabelValues("clear", "ok").Inc()

	if err := s.events.PublishCartCleared(ctx, cart); err != nil {
		logger.WithContext(ctx, s.logger).WarnContext(ctx, "failed to publish cart cleared event",
			slog.String("cart_id", cart.ID),
			slog.String("error", err.Error()),
		)
	}
	return nil
}

// save runs mutate against the current snapshot and writes it back with a
// compare-and-set, retrying on version races with a fresh read each time.
func (s *CartService) save(ctx context.Context, userID string, mutate func(*domain.Cart) error) (*domain.Cart, error) {
	for attempt := 0; attempt < saveAttempts; attempt++ {
		cart, err := s.repo.Get(ctx, userID)
		if err != nil {
			if !errors.Is(err, apperrors.ErrNotFound) {
				return nil, err
			}
			cart = domain.NewCart(userID, s.currency)
		}

		expected := cart.Version
		if err := mutate(cart); err != nil {
			return nil, err
		}

		ok, err := s.repo.SaveIfVersion(ctx, cart, expected)
		if err != nil {
			return nil, err
		}
		if ok {
			return cart, nil
		}

		logger.WithContext(ctx, s.logger).DebugContext(ctx, "cart version race, retrying",
			slog.String("user_id", userID),
			slog.Int("expected_version", expected),
			slog.Int("attempt", attempt+1),
		)
	}

	return nil, apperrors.Conflict("cart was modified concurrently, please retry")
}

func (s *CartService) publishUpdated(ctx context.Context, cart *domain.Cart) {
	if err := s.events.PublishCartUpdated(ctx, cart); err != nil {
		logger.WithContext(ctx, s.logger).WarnContext(ctx, "failed to publish cart updated event",
			slog.String("cart_id", cart.ID),
			slog.String("error", err.Error()),
		)
	}
}
