// Package event publishes cart lifecycle events to Kafka.
package event

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/FreemaX94/VIVR-sub000/internal/domain"
	"github.com/FreemaX94/VIVR-sub000/pkg/kafka"
	"github.com/FreemaX94/VIVR-sub000/pkg/logger"
)

const (
	TopicCartUpdated = "storefront.cart.updated"
	TopicCartCleared = "storefront.cart.cleared"

	aggregateTypeCart = "cart"
	sourceCartService = "cart-service"
)

// CartUpdatedData is the payload published when a cart's contents change.
type CartUpdatedData struct {
	CartID    string          `json:"cart_id"`
	UserID    string          `json:"user_id"`
	ItemCount int             `json:"item_count"`
	Total     decimal.Decimal `json:"total"`
	Currency  string          `json:"currency"`
	Version   int             `json:"version"`
}

// CartClearedData is the payload published when a cart is emptied or its
// snapshot deleted.
type CartClearedData struct {
	CartID string `json:"cart_id"`
	UserID string `json:"user_id"`
}

// Producer publishes cart events with the standard envelope.
type Producer struct {
	producer *kafka.Producer
}

// NewProducer creates a cart event producer.
func NewProducer(producer *kafka.Producer) *Producer {
	return &Producer{producer: producer}
}

// PublishCartUpdated emits a cart updated event keyed by the cart ID.
func (p *Producer) PublishCartUpdated(ctx context.Context, cart *domain.Cart) error {
	data := CartUpdatedData{
		CartID:    cart.ID,
		UserID:    cart.UserID,
		ItemCount: cart.ItemCount,
		Total:     cart.Total,
		Currency:  cart.Currency,
		Version:   cart.Version,
	}

	evt, err := kafka.NewEvent("cart.updated", cart.ID, aggregateTypeCart, sourceCartService, data)
	if err != nil {
		return err
	}
	if cid := logger.CorrelationIDFromContext(ctx); cid != "" {
		evt.WithCorrelationID(cid)
	}

	return p.producer.Publish(ctx, TopicCartUpdated, evt)
}

// PublishCartCleared emits a cart cleared event keyed by the cart ID.
func (p *Producer) PublishCartCleared(ctx context.Context, cart *domain.Cart) error {
	data := CartClearedData{
		CartID: cart.ID,
		UserID: cart.UserID,
	}

	evt, err := kafka.NewEvent("cart.cleared", cart.ID, aggregateTypeCart, sourceCartService, data)
	if err != nil {
		return err
	}
	if cid := logger.CorrelationIDFromContext(ctx); cid != "" {
		evt.WithCorrelationID(cid)
	}

	return p.producer.Publish(ctx, TopicCartCleared, evt)
}
