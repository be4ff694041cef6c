package service

import (
	"billora/backend/internal/domain"
	"billora/backend/internal/store"
)

// Cart accumulates lines for a sale in progress. Each line snapshots the
// product's name, price and GST rate at the moment it is added, so a
// catalog edit mid-sale never reprices a cart. Stock checks here are
// advisory; the repository re-checks atomically at commit time.
type Cart struct {
	lines []domain.CartLine
	index map[string]int
}

func NewCart() *Cart {
	return &Cart{index: make(map[string]int)}
}

// Add puts qty units of product in the cart, merging with an existing
// line for the same product. Adding more than the shelf currently holds
// is rejected outright rather than clamped to what is available.
func (c *Cart) Add(product domain.Product, qty int) error {
	if qty < 1 {
		return store.ErrInvalidInput
	}
	if !product.Active {
		return store.ErrInvalidInput
	}

	have := 0
	if i, ok := c.index[product.ID]; ok {
		have = c.lines[i].Quantity
	}
	if have+qty > product.Stock {
		return &store.InsufficientStockError{
			ProductID: product.ID,
			Name:      product.Name,
			Requested: have + qty,
			Available: product.Stock,
		}
	}

	if i, ok := c.index[product.ID]; ok {
		c.lines[i].Quantity += qty
		return nil
	}

	c.index[product.ID] = len(c.lines)
	c.lines = append(c.lines, domain.CartLine{
		ProductID:      product.ID,
		Name:           product.Name,
		Quantity:       qty,
		UnitPriceCents: product.PriceCents,
		GSTPercent:     product.GSTPercent,
	})
	return nil
}

// SetQuantity replaces the quantity on an existing line. A quantity of
// zero or less removes the line. The stock check is the same as Add's:
// asking for more than the shelf holds fails the whole call.
func (c *Cart) SetQuantity(product domain.Product, qty int) error {
	if qty < 1 {
		c.Remove(product.ID)
		return nil
	}
	if qty > product.Stock {
		return &store.InsufficientStockError{
			ProductID: product.ID,
			Name:      product.Name,
			Requested: qty,
			Available: product.Stock,
		}
	}

	i, ok := c.index[product.ID]
	if !ok {
		return c.Add(product, qty)
	}
	c.lines[i].Quantity = qty
	return nil
}

// Remove drops the line for productID. Removing a product that is not in
// the cart is a no-op.
func (c *Cart) Remove(productID string) {
	i, ok := c.index[productID]
	if !ok {
		return
	}
	c.lines = append(c.lines[:i], c.lines[i+1:]...)
	delete(c.index, productID)
	for id, at := range c.index {
		if at > i {
			c.index[id] = at - 1
		}
	}
}

// Clear empties the cart.
func (c *Cart) Clear() {
	c.lines = nil
	c.index = make(map[string]int)
}

func (c *Cart) Len() int {
	return len(c.lines)
}

// Lines returns the accumulated lines in insertion order.
func (c *Cart) Lines() []domain.CartLine {
	out := make([]domain.CartLine, len(c.lines))
	copy(out, c.lines)
	return out
}
