package service

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/FreemaX94/VIVR-sub000/internal/domain"
	apperrors "github.com/FreemaX94/VIVR-sub000/pkg/errors"
	"github.com/FreemaX94/VIVR-sub000/pkg/logger"
)

// ============================================================================
// Mocks
// ============================================================================

type mockCartRepo struct {
	mock.Mock
}

func (m *mockCartRepo) Get(ctx context.Context, userID string) (*domain.Cart, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Cart), args.Error(1)
}

func (m *mockCartRepo) Save(ctx context.Context, cart *domain.Cart) error {
	args := m.Called(ctx, cart)
	return args.Error(0)
}

func (m *mockCartRepo) SaveIfVersion(ctx context.Context, cart *domain.Cart, expectedVersion int) (bool, error) {
	args := m.Called(ctx, cart, expectedVersion)
	return args.Bool(0), args.Error(1)
}

func (m *mockCartRepo) Delete(ctx context.Context, userID string) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

type stubEvents struct {
	updated []*domain.Cart
	cleared []*domain.Cart
	err     error
}

func (s *stubEvents) PublishCartUpdated(_ context.Context, cart *domain.Cart) error {
	s.updated = append(s.updated, cart)
	return s.err
}

func (s *stubEvents) PublishCartCleared(_ context.Context, cart *domain.Cart) error {
	s.cleared = append(s.cleared, cart)
	return s.err
}

func newCartService(repo *mockCartRepo, events *stubEvents) *CartService {
	return NewCartService(repo, events, logger.New("cart-test", "error"), "EUR")
}

func vinyl() domain.Product {
	return domain.Product{
		ID:    "prod-1",
		Name:  "Vinyl Record",
		Price: decimal.RequireFromString("29.99"),
	}
}

func storedCart(userID string, version int) *domain.Cart {
	cart := domain.NewCart(userID, "EUR")
	cart.AddItem(vinyl(), 1)
	cart.Version = version
	return cart
}

// ============================================================================
// GetCart
// ============================================================================

func TestCartService_GetCart(t *testing.T) {
	t.Run("returns stored cart", func(t *testing.T) {
		repo := new(mockCartRepo)
		svc := newCartService(repo, &stubEvents{})
		repo.On("Get", mock.Anything, "user-1").Return(storedCart("user-1", 2), nil)

		cart, err := svc.GetCart(context.Background(), "user-1")
		require.NoError(t, err)
		assert.Equal(t, 2, cart.Version)
		assert.Equal(t, 1, cart.ItemCount)
		repo.AssertExpectations(t)
	})

	t.Run("returns fresh empty cart when none stored", func(t *testing.T) {
		repo := new(mockCartRepo)
		svc := newCartService(repo, &stubEvents{})
		repo.On("Get", mock.Anything, "user-1").Return(nil, apperrors.NotFound("cart", "user-1"))

		cart, err := svc.GetCart(context.Background(), "user-1")
		require.NoError(t, err)
		assert.Equal(t, "user-1", cart.UserID)
		assert.Empty(t, cart.Items)
		assert.Equal(t, 0, cart.Version)
		assert.Equal(t, "EUR", cart.Currency)
	})

	t.Run("propagates storage errors", func(t *testing.T) {
		repo := new(mockCartRepo)
		svc := newCartService(repo, &stubEvents{})
		repo.On("Get", mock.Anything, "user-1").Return(nil, errors.New("redis down"))

		_, err := svc.GetCart(context.Background(), "user-1")
		assert.Error(t, err)
	})
}

// ============================================================================
// AddItem
// ============================================================================

func TestCartService_AddItem(t *testing.T) {
	t.Run("creates cart on first add", func(t *testing.T) {
		repo := new(mockCartRepo)
		events := &stubEvents{}
		svc := newCartService(repo, events)

		repo.On("Get", mock.Anything, "user-1").Return(nil, apperrors.NotFound("cart", "user-1"))
		repo.On("SaveIfVersion", mock.Anything, mock.Anything, 0).Return(true, nil)

		cart, err := svc.AddItem(context.Background(), "user-1", vinyl(), 2)
		require.NoError(t, err)
		assert.Equal(t, 2, cart.ItemCount)
		assert.Equal(t, "59.98", cart.Total.StringFixed(2))
		assert.Len(t, events.updated, 1)
		repo.AssertExpectations(t)
	})

	t.Run("merges into existing line item", func(t *testing.T) {
		repo := new(mockCartRepo)
		svc := newCartService(repo, &stubEvents{})

		repo.On("Get", mock.Anything, "user-1").Return(storedCart("user-1", 1), nil)
		repo.On("SaveIfVersion", mock.Anything, mock.Anything, 1).Return(true, nil)

		cart, err := svc.AddItem(context.Background(), "user-1", vinyl(), 3)
		require.NoError(t, err)
		assert.Len(t, cart.Items, 1)
		assert.Equal(t, 4, cart.ItemQuantity("prod-1"))
	})

	t.Run("retries version race with fresh read", func(t *testing.T) {
		repo := new(mockCartRepo)
		svc := newCartService(repo, &stubEvents{})

		repo.On("Get", mock.Anything, "user-1").Return(storedCart("user-1", 1), nil).Once()
		repo.On("SaveIfVersion", mock.Anything, mock.Anything, 1).Return(false, nil).Once()
		repo.On("Get", mock.Anything, "user-1").Return(storedCart("user-1", 2), nil).Once()
		repo.On("SaveIfVersion", mock.Anything, mock.Anything, 2).Return(true, nil).Once()

		_, err := svc.AddItem(context.Background(), "user-1", vinyl(), 1)
		require.NoError(t, err)
		repo.AssertExpectations(t)
	})

	t.Run("gives up after exhausting retries", func(t *testing.T) {
		repo := new(mockCartRepo)
		svc := newCartService(repo, &stubEvents{})

		repo.On("Get", mock.Anything, "user-1").Return(storedCart("user-1", 1), nil)
		repo.On("SaveIfVersion", mock.Anything, mock.Anything, 1).Return(false, nil)

		_, err := svc.AddItem(context.Background(), "user-1", vinyl(), 1)
		require.Error(t, err)
		assert.True(t, errors.Is(err, apperrors.ErrConflict))
	})

	t.Run("rejects missing product id", func(t *testing.T) {
		svc := newCartService(new(mockCartRepo), &stubEvents{})

		_, err := svc.AddItem(context.Background(), "user-1", domain.Product{Price: decimal.NewFromInt(1)}, 1)
		require.Error(t, err)
		assert.True(t, errors.Is(err, apperrors.ErrInvalidInput))
	})

	t.Run("rejects negative price", func(t *testing.T) {
		svc := newCartService(new(mockCartRepo), &stubEvents{})
		p := vinyl()
		p.Price = decimal.RequireFromString("-1.00")

		_, err := svc.AddItem(context.Background(), "user-1", p, 1)
		assert.True(t, errors.Is(err, apperrors.ErrInvalidInput))
	})

	t.Run("rejects price above maximum", func(t *testing.T) {
		svc := newCartService(new(mockCartRepo), &stubEvents{})
		p := vinyl()
		p.Price = decimal.RequireFromString("100000.01")

		_, err := svc.AddItem(context.Background(), "user-1", p, 1)
		assert.True(t, errors.Is(err, apperrors.ErrInvalidInput))
	})

	t.Run("rejects merged quantity above per item limit", func(t *testing.T) {
		repo := new(mockCartRepo)
		svc := newCartService(repo, &stubEvents{})

		stored := domain.NewCart("user-1", "EUR")
		stored.AddItem(vinyl(), 99)
		stored.Version = 1
		repo.On("Get", mock.Anything, "user-1").Return(stored, nil)

		_, err := svc.AddItem(context.Background(), "user-1", vinyl(), 2)
		require.Error(t, err)
		assert.True(t, errors.Is(err, apperrors.ErrInvalidInput))
		repo.AssertNotCalled(t, "SaveIfVersion", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("rejects new line item when cart is full", func(t *testing.T) {
		repo := new(mockCartRepo)
		svc := newCartService(repo, &stubEvents{})

		stored := domain.NewCart("user-1", "EUR")
		for i := 0; i < MaxItemsPerCart; i++ {
			stored.AddItem(domain.Product{
				ID:    decimal.NewFromInt(int64(i)).String(),
				Name:  "Filler",
				Price: decimal.NewFromInt(1),
			}, 1)
		}
		stored.Version = 1
		repo.On("Get", mock.Anything, "user-1").Return(stored, nil)

		_, err := svc.AddItem(context.Background(), "user-1", vinyl(), 1)
		assert.True(t, errors.Is(err, apperrors.ErrInvalidInput))
	})

	t.Run("event publish failure does not fail the write", func(t *testing.T) {
		repo := new(mockCartRepo)
		events := &stubEvents{err: errors.New("kafka unavailable")}
		svc := newCartService(repo, events)

		repo.On("Get", mock.Anything, "user-1").Return(nil, apperrors.NotFound("cart", "user-1"))
		repo.On("SaveIfVersion", mock.Anything, mock.Anything, 0).Return(true, nil)

		_, err := svc.AddItem(context.Background(), "user-1", vinyl(), 1)
		assert.NoError(t, err)
	})
}

// ============================================================================
// UpdateItemQuantity
// ============================================================================

func TestCartService_UpdateItemQuantity(t *testing.T) {
	t.Run("sets absolute quantity", func(t *testing.T) {
		repo := new(mockCartRepo)
		svc := newCartService(repo, &stubEvents{})

		repo.On("Get", mock.Anything, "user-1").Return(storedCart("user-1", 1), nil)
		repo.On("SaveIfVersion", mock.Anything, mock.Anything, 1).Return(true, nil)

		cart, err := svc.UpdateItemQuantity(context.Background(), "user-1", "prod-1", 5)
		require.NoError(t, err)
		assert.Equal(t, 5, cart.ItemQuantity("prod-1"))
	})

	t.Run("zero quantity removes the line item", func(t *testing.T) {
		repo := new(mockCartRepo)
		svc := newCartService(repo, &stubEvents{})

		repo.On("Get", mock.Anything, "user-1").Return(storedCart("user-1", 1), nil)
		repo.On("SaveIfVersion", mock.Anything, mock.Anything, 1).Return(true, nil)

		cart, err := svc.UpdateItemQuantity(context.Background(), "user-1", "prod-1", 0)
		require.NoError(t, err)
		assert.Empty(t, cart.Items)
		assert.True(t, cart.Total.IsZero())
	})

	t.Run("unknown product is a no-op", func(t *testing.T) {
		repo := new(mockCartRepo)
		svc := newCartService(repo, &stubEvents{})

		repo.On("Get", mock.Anything, "user-1").Return(storedCart("user-1", 1), nil)
		repo.On("SaveIfVersion", mock.Anything, mock.Anything, 1).Return(true, nil)

		cart, err := svc.UpdateItemQuantity(context.Background(), "user-1", "ghost", 3)
		require.NoError(t, err)
		assert.Equal(t, 1, cart.ItemQuantity("prod-1"))
		assert.False(t, cart.Contains("ghost"))
	})

	t.Run("rejects quantity above limit", func(t *testing.T) {
		svc := newCartService(new(mockCartRepo), &stubEvents{})

		_, err := svc.UpdateItemQuantity(context.Background(), "user-1", "prod-1", MaxQuantityPerItem+1)
		assert.True(t, errors.Is(err, apperrors.ErrInvalidInput))
	})
}

// ============================================================================
// RemoveItem
// ============================================================================

func TestCartService_RemoveItem(t *testing.T) {
	t.Run("removes the line item", func(t *testing.T) {
		repo := new(mockCartRepo)
		events := &stubEvents{}
		svc := newCartService(repo, events)

		repo.On("Get", mock.Anything, "user-1").Return(storedCart("user-1", 1), nil)
		repo.On("SaveIfVersion", mock.Anything, mock.Anything, 1).Return(true, nil)

		cart, err := svc.RemoveItem(context.Background(), "user-1", "prod-1")
		require.NoError(t, err)
		assert.Empty(t, cart.Items)
		assert.Len(t, events.updated, 1)
	})

	t.Run("absent product succeeds", func(t *testing.T) {
		repo := new(mockCartRepo)
		svc := newCartService(repo, &stubEvents{})

		repo.On("Get", mock.Anything, "user-1").Return(storedCart("user-1", 1), nil)
		repo.On("SaveIfVersion", mock.Anything, mock.Anything, 1).Return(true, nil)

		cart, err := svc.RemoveItem(context.Background(), "user-1", "ghost")
		require.NoError(t, err)
		assert.Len(t, cart.Items, 1)
	})
}

// ============================================================================
// ClearCart
// ============================================================================

func TestCartService_ClearCart(t *testing.T) {
	t.Run("deletes the snapshot and publishes cleared event", func(t *testing.T) {
		repo := new(mockCartRepo)
		events := &stubEvents{}
		svc := newCartService(repo, events)

		repo.On("Get", mock.Anything, "user-1").Return(storedCart("user-1", 1), nil)
		repo.On("Delete", mock.Anything, "user-1").Return(nil)

		require.NoError(t, svc.ClearCart(context.Background(), "user-1"))
		assert.Len(t, events.cleared, 1)
		repo.AssertExpectations(t)
	})

	t.Run("absent cart succeeds without delete", func(t *testing.T) {
		repo := new(mockCartRepo)
		events := &stubEvents{}
		svc := newCartService(repo, events)

		repo.On("Get", mock.Anything, "user-1").Return(nil, apperrors.NotFound("cart", "user-1"))

		require.NoError(t, svc.ClearCart(context.Background(), "user-1"))
		assert.Empty(t, events.cleared)
		repo.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
	})
}
