package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/FreemaX94/VIVR-sub000/pkg/money"
)

// Product is the catalog view the cart needs: identity plus the price (and
// optional compare-at price) in effect right now.
type Product struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	Price        decimal.Decimal `json:"price"`
	ComparePrice decimal.Decimal `json:"compare_price"`
}

// LineItem is one product-and-quantity entry in a cart. ID is a locally
// generated handle, distinct from ProductID. UnitPrice is a snapshot of the
// product's price at the time of addition; it is not re-fetched when totals
// are recomputed, so the cart reflects the price in effect when the item was
// added.
type LineItem struct {
	ID           string          `json:"id"`
	ProductID    string          `json:"product_id"`
	Name         string          `json:"name"`
	UnitPrice    decimal.Decimal `json:"unit_price"`
	ComparePrice decimal.Decimal `json:"compare_price"`
	Quantity     int             `json:"quantity"`
}

// Cart is the in-memory source of truth for one user's cart. ItemCount and
// Total are derived fields: they are never set directly, only recomputed from
// the item list after every mutation, so they can never drift from a true
// recomputation.
//
// A Cart is not safe for concurrent mutation; it is owned by a single session
// and the service layer serializes writers through optimistic versioning.
type Cart struct {
	ID        string          `json:"id"`
	UserID    string          `json:"user_id"`
	Items     []LineItem      `json:"items"`
	ItemCount int             `json:"item_count"`
	Total     decimal.Decimal `json:"total"`
	Currency  string          `json:"currency"`
	Version   int             `json:"version"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// NewCart creates an empty cart for the given user.
func NewCart(userID, currency string) *Cart {
	now := time.Now().UTC()
	c := &Cart{
		ID:        uuid.NewString(),
		UserID:    userID,
		Items:     []LineItem{},
		Currency:  currency,
		Version:   0,
		CreatedAt: now,
		UpdatedAt: now,
	}
	c.recompute()
	return c
}

// AddItem adds quantity units of a product. If a line item for the product
// already exists its quantity increases (merge semantics, no duplicate line
// items per product); otherwise a new line item is appended with a freshly
// generated local id and the product's price snapshotted. A quantity below 1
// is treated as 1.
func (c *Cart) AddItem(p Product, quantity int) {
	if quantity < 1 {
		quantity = 1
	}

	if i := c.findItem(p.ID); i >= 0 {
		c.Items[i].Quantity += quantity
	} else {
		c.Items = append(c.Items, LineItem{
			ID:           uuid.NewString(),
			ProductID:    p.ID,
			Name:         p.Name,
			UnitPrice:    p.Price,
			ComparePrice: p.ComparePrice,
			Quantity:     quantity,
		})
	}
	c.recompute()
}

// RemoveItem drops the line item for the product, if any. Removing an absent
// product is a no-op, not an error: a cart is a convenience aggregate the
// user can always recover by re-adding items.
func (c *Cart) RemoveItem(productID string) {
	i := c.findItem(productID)
	if i < 0 {
		return
	}
	c.Items = append(c.Items[:i], c.Items[i+1:]...)
	c.recompute()
}

// UpdateQuantity sets the line item's quantity to exactly quantity (absolute
// set, not delta). A quantity of zero or below removes the line item
// entirely: a non-positive quantity is never stored. Unknown products are a
// no-op.
func (c *Cart) UpdateQuantity(productID string, quantity int) {
	if quantity <= 0 {
		c.RemoveItem(productID)
		return
	}
	i := c.findItem(productID)
	if i < 0 {
		return
	}
	c.Items[i].Quantity = quantity
	c.recompute()
}

// Clear empties the item list. Idempotent.
func (c *Cart) Clear() {
	c.Items = []LineItem{}
	c.recompute()
}

// ItemQuantity returns the current quantity for a product, or 0 when absent.
func (c *Cart) ItemQuantity(productID string) int {
	if i := c.findItem(productID); i >= 0 {
		return c.Items[i].Quantity
	}
	return 0
}

// Contains reports whether the product has a line item in the cart.
func (c *Cart) Contains(productID string) bool {
	return c.findItem(productID) >= 0
}

// Lines returns the cart's items as money subtotal input.
func (c *Cart) Lines() []money.Item {
	lines := make([]money.Item, len(c.Items))
	for i, it := range c.Items {
		lines[i] = money.Item{Price: it.UnitPrice, Quantity: it.Quantity}
	}
	return lines
}

func (c *Cart) findItem(productID string) int {
	for i := range c.Items {
		if c.Items[i].ProductID == productID {
			return i
		}
	}
	return -1
}

// recompute re-derives ItemCount and Total from the full item list. Every
// mutation ends here; there is no incremental accounting anywhere.
func (c *Cart) recompute() {
	count := 0
	for _, it := range c.Items {
		count += it.Quantity
	}
	c.ItemCount = count
	c.Total = money.Subtotal(c.Lines())
}
