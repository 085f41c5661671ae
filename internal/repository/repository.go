package repository

import (
	"context"

	"github.com/FreemaX94/VIVR-sub000/internal/domain"
)

// CartRepository is the durable key-value snapshot store for carts. The
// stored schema is exactly the cart's public fields; no extra envelope.
type CartRepository interface {
	// Get retrieves a cart snapshot by user ID.
	Get(ctx context.Context, userID string) (*domain.Cart, error)

	// Save persists a cart snapshot, overwriting any existing one.
	Save(ctx context.Context, cart *domain.Cart) error

	// SaveIfVersion persists the cart only when the stored snapshot still has
	// the expected version (0 means no snapshot may exist yet). On success
	// the cart's version is bumped to expectedVersion+1 and true is returned;
	// false means a concurrent writer got there first.
	SaveIfVersion(ctx context.Context, cart *domain.Cart, expectedVersion int) (bool, error)

	// Delete removes the cart snapshot for the user.
	Delete(ctx context.Context, userID string) error
}
