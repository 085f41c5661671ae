package domain

import (
	"math/rand"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FreemaX94/VIVR-sub000/pkg/money"
)

func product(id, name, price string) Product {
	return Product{ID: id, Name: name, Price: decimal.RequireFromString(price)}
}

// assertInvariants checks the two derived-field invariants: item count equals
// the quantity sum, and the total equals the rounded subtotal over all lines.
func assertInvariants(t *testing.T, c *Cart) {
	t.Helper()

	wantCount := 0
	for _, it := range c.Items {
		wantCount += it.Quantity
	}
	assert.Equal(t, wantCount, c.ItemCount, "item count drifted from quantity sum")

	wantTotal := money.Subtotal(c.Lines())
	assert.True(t, c.Total.Equal(wantTotal), "total drifted: have %s, recomputed %s", c.Total, wantTotal)
}

// ============================================================================
// AddItem
// ============================================================================

func TestAddItem_NewLineItem(t *testing.T) {
	c := NewCart("user-1", "EUR")
	c.AddItem(product("prod-1", "Lamp", "89.99"), 2)

	require.Len(t, c.Items, 1)
	assert.NotEmpty(t, c.Items[0].ID)
	assert.NotEqual(t, "prod-1", c.Items[0].ID, "local id must be distinct from product id")
	assert.Equal(t, 2, c.ItemCount)
	assert.True(t, c.Total.Equal(decimal.RequireFromString("179.98")))
	assertInvariants(t, c)
}

func TestAddItem_MergesSameProduct(t *testing.T) {
	c := NewCart("user-1", "EUR")
	p := product("prod-1", "Lamp", "89.99")

	c.AddItem(p, 2)
	c.AddItem(p, 3)

	require.Len(t, c.Items, 1, "same product must merge into one line item")
	assert.Equal(t, 5, c.Items[0].Quantity)
	assert.Equal(t, 5, c.ItemCount)
	assertInvariants(t, c)
}

func TestAddItem_SnapshotsUnitPrice(t *testing.T) {
	c := NewCart("user-1", "EUR")
	c.AddItem(product("prod-1", "Lamp", "89.99"), 1)

	// The line item keeps the price in effect at addition time.
	assert.True(t, c.Items[0].UnitPrice.Equal(decimal.RequireFromString("89.99")))
}

func TestAddItem_QuantityBelowOneTreatedAsOne(t *testing.T) {
	c := NewCart("user-1", "EUR")
	c.AddItem(product("prod-1", "Lamp", "10.00"), 0)

	assert.Equal(t, 1, c.ItemCount)
	assertInvariants(t, c)
}

// ============================================================================
// RemoveItem
// ============================================================================

func TestRemoveItem(t *testing.T) {
	c := NewCart("user-1", "EUR")
	c.AddItem(product("prod-1", "Lamp", "89.99"), 2)
	c.AddItem(product("prod-2", "Vase", "45.00"), 1)

	c.RemoveItem("prod-1")

	require.Len(t, c.Items, 1)
	assert.Equal(t, "prod-2", c.Items[0].ProductID)
	assert.Equal(t, 1, c.ItemCount)
	assert.True(t, c.Total.Equal(decimal.RequireFromString("45.00")))
	assertInvariants(t, c)
}

func TestRemoveItem_AbsentIsNoOp(t *testing.T) {
	c := NewCart("user-1", "EUR")
	c.AddItem(product("prod-1", "Lamp", "89.99"), 2)

	c.RemoveItem("prod-999")

	assert.Len(t, c.Items, 1)
	assert.Equal(t, 2, c.ItemCount)
	assertInvariants(t, c)
}

// ============================================================================
// UpdateQuantity
// ============================================================================

func TestUpdateQuantity_AbsoluteSet(t *testing.T) {
	c := NewCart("user-1", "EUR")
	c.AddItem(product("prod-1", "Lamp", "89.99"), 2)

	c.UpdateQuantity("prod-1", 7)

	assert.Equal(t, 7, c.Items[0].Quantity)
	assert.Equal(t, 7, c.ItemCount)
	assertInvariants(t, c)
}

func TestUpdateQuantity_ZeroRemovesLineItem(t *testing.T) {
	c := NewCart("user-1", "EUR")
	c.AddItem(product("prod-1", "Lamp", "89.99"), 2)
	c.AddItem(product("prod-2", "Vase", "45.00"), 1)

	c.UpdateQuantity("prod-1", 0)

	require.Len(t, c.Items, 1)
	assert.Equal(t, 1, c.ItemCount)
	assert.True(t, c.Total.Equal(decimal.RequireFromString("45.00")))
	assertInvariants(t, c)
}

func TestUpdateQuantity_NegativeRemovesLineItem(t *testing.T) {
	c := NewCart("user-1", "EUR")
	c.AddItem(product("prod-1", "Lamp", "89.99"), 2)

	c.UpdateQuantity("prod-1", -5)

	assert.Empty(t, c.Items)
	assert.Zero(t, c.ItemCount)
	assert.True(t, c.Total.IsZero())
	assertInvariants(t, c)
}

func TestUpdateQuantity_AbsentIsNoOp(t *testing.T) {
	c := NewCart("user-1", "EUR")
	c.AddItem(product("prod-1", "Lamp", "89.99"), 2)

	c.UpdateQuantity("prod-999", 5)

	assert.Equal(t, 2, c.ItemCount)
	assertInvariants(t, c)
}

// ============================================================================
// Clear / queries
// ============================================================================

func TestClear(t *testing.T) {
	c := NewCart("user-1", "EUR")
	c.AddItem(product("prod-1", "Lamp", "89.99"), 2)
	c.AddItem(product("prod-2", "Vase", "45.00"), 1)

	assert.Equal(t, 3, c.ItemCount)
	assert.True(t, c.Total.Equal(decimal.RequireFromString("224.98")))

	c.Clear()

	assert.Empty(t, c.Items)
	assert.Zero(t, c.ItemCount)
	assert.True(t, c.Total.IsZero())

	// Idempotent.
	c.Clear()
	assert.Empty(t, c.Items)
	assertInvariants(t, c)
}

func TestItemQuantity(t *testing.T) {
	c := NewCart("user-1", "EUR")
	c.AddItem(product("prod-1", "Lamp", "89.99"), 3)

	assert.Equal(t, 3, c.ItemQuantity("prod-1"))
	assert.Zero(t, c.ItemQuantity("prod-999"))
}

func TestContains(t *testing.T) {
	c := NewCart("user-1", "EUR")
	c.AddItem(product("prod-1", "Lamp", "89.99"), 1)

	assert.True(t, c.Contains("prod-1"))
	assert.False(t, c.Contains("prod-999"))

	c.RemoveItem("prod-1")
	assert.False(t, c.Contains("prod-1"))
}

// ============================================================================
// Invariants under random operation sequences
// ============================================================================

// TestInvariants_RandomOperationSequence fuzzes add/remove/update/clear
// sequences and asserts after every single step that the derived fields match
// a fresh recomputation.
func TestInvariants_RandomOperationSequence(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	products := []Product{
		product("prod-1", "Lamp", "89.99"),
		product("prod-2", "Vase", "45.00"),
		product("prod-3", "Rug", "129.50"),
		product("prod-4", "Mug", "7.95"),
		product("prod-5", "Candle", "12.30"),
	}

	c := NewCart("user-1", "EUR")

	for step := 0; step < 500; step++ {
		p := products[rng.Intn(len(products))]

		switch rng.Intn(10) {
		case 0, 1, 2, 3:
			c.AddItem(p, rng.Intn(5)+1)
		case 4, 5:
			c.RemoveItem(p.ID)
		case 6, 7, 8:
			// Includes zero and negative quantities, which must remove.
			c.UpdateQuantity(p.ID, rng.Intn(7)-1)
		case 9:
			c.Clear()
		}

		assertInvariants(t, c)
	}
}
