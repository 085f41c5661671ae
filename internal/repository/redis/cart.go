// Package redis stores cart snapshots in Redis as JSON with a TTL, using a
// Lua compare-and-set on the version field for optimistic concurrency.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/FreemaX94/VIVR-sub000/internal/domain"
	apperrors "github.com/FreemaX94/VIVR-sub000/pkg/errors"
)

const keyPrefix = "cart:"

// saveIfVersionScript atomically checks the stored snapshot's version before
// writing. ARGV[1] is the expected version, ARGV[2] the new snapshot JSON,
// ARGV[3] the TTL in milliseconds. Expected version 0 additionally allows the
// key to be absent.
var saveIfVersionScript = redis.NewScript(`
local current = redis.call('GET', KEYS[1])
if current then
  local snapshot = cjson.decode(current)
  if tonumber(snapshot['version']) ~= tonumber(ARGV[1]) then
    return 0
  end
elseif tonumber(ARGV[1]) ~= 0 then
  return 0
end
redis.call('SET', KEYS[1], ARGV[2], 'PX', ARGV[3])
return 1
`)

// CartRepository implements repository.CartRepository on Redis.
type CartRepository struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCartRepository creates a Redis-backed cart repository.
func NewCartRepository(client *redis.Client, ttl time.Duration) *CartRepository {
	return &CartRepository{
		client: client,
		ttl:    ttl,
	}
}

// Get retrieves a cart snapshot by user ID.
func (r *CartRepository) Get(ctx context.Context, userID string) (*domain.Cart, error) {
	data, err := r.client.Get(ctx, keyPrefix+userID).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, apperrors.NotFound("cart", userID)
		}
		return nil, fmt.Errorf("redis get cart: %w", err)
	}

	var cart domain.Cart
	if err := json.Unmarshal(data, &cart); err != nil {
		return nil, fmt.Errorf("unmarshal cart: %w", err)
	}

	return &cart, nil
}

// Save persists a cart snapshot with the configured TTL.
func (r *CartRepository) Save(ctx context.Context, cart *domain.Cart) error {
	data, err := json.Marshal(cart)
	if err != nil {
		return fmt.Errorf("marshal cart: %w", err)
	}

	if err := r.client.Set(ctx, keyPrefix+cart.UserID, data, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis set cart: %w", err)
	}

	return nil
}

// SaveIfVersion persists the cart only when the stored version matches.
func (r *CartRepository) SaveIfVersion(ctx context.Context, cart *domain.Cart, expectedVersion int) (bool, error) {
	next := *cart
	next.Version = expectedVersion + 1

	data, err := json.Marshal(&next)
	if err != nil {
		return false, fmt.Errorf("marshal cart: %w", err)
	}

	res, err := saveIfVersionScript.Run(ctx, r.client,
		[]string{keyPrefix + cart.UserID},
		expectedVersion, data, r.ttl.Milliseconds(),
	).Int()
	if err != nil {
		return false, fmt.Errorf("redis save cart if version: %w", err)
	}
	if res != 1 {
		return false, nil
	}

	cart.Version = next.Version
	return true, nil
}

// Delete removes the cart snapshot for the user. Deleting an absent key is
// not an error.
func (r *CartRepository) Delete(ctx context.Context, userID string) error {
	if err := r.client.Del(ctx, keyPrefix+userID).Err(); err != nil {
		return fmt.Errorf("redis del cart: %w", err)
	}
	return nil
}
