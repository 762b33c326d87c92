package domain

import "errors"

var (
	ErrInvalidInput    = errors.New("invalid input")
	ErrItemNotFound    = errors.New("cart item not found")
	ErrInvalidStrategy = errors.New("invalid merge strategy")
)

// MergeStrategy selects how a guest cart is reconciled with a user's
// pre-existing cart at login.
type MergeStrategy string

const (
	// StrategyMerge unions both carts, combining duplicate product+variant
	// lines by summing quantities.
	StrategyMerge MergeStrategy = "merge"
	// StrategyReplace keeps the guest cart and discards the existing one.
	StrategyReplace MergeStrategy = "replace"
	// StrategyKeepExisting keeps the authenticated cart and discards the
	// guest cart.
	StrategyKeepExisting MergeStrategy = "keep_existing"
)

// Valid reports whether s is one of the three supported strategies.
func (s MergeStrategy) Valid() bool {
	switch s {
	case StrategyMerge, StrategyReplace, StrategyKeepExisting:
		return true
	}
	return false
}

// CartItem is a single cart line with resolved pricing.
type CartItem struct {
	ID           string   `json:"id"`
	ProductID    string   `json:"productId"`
	ProductName  string   `json:"productName"`
	VariantID    string   `json:"variantId,omitempty"`
	VariantName  string   `json:"variantName,omitempty"`
	Quantity     int      `json:"quantity"`
	RegularPrice float64  `json:"regularPrice"`
	PromoPrice   *float64 `json:"promoPrice,omitempty"`
	LineTotal    float64  `json:"lineTotal"`
}

// UnitPrice returns the price a single unit is charged at, honouring an
// active promotion.
func (i CartItem) UnitPrice() float64 {
	if i.OnPromotion() {
		return *i.PromoPrice
	}
	return i.RegularPrice
}

// OnPromotion reports whether the line carries a promotional price below the
// regular one.
func (i CartItem) OnPromotion() bool {
	return i.PromoPrice != nil && *i.PromoPrice < i.RegularPrice
}

// Cart is the authoritative basket for a session. The client holds a cached
// transcription of the backend's copy; ItemCount and TotalAmount are computed
// by whoever owns the cart, never patched independently.
type Cart struct {
	Items       []CartItem `json:"items"`
	ItemCount   int        `json:"itemCount"`
	TotalAmount float64    `json:"totalAmount"`
}

// EmptyCart returns the canonical empty cart shape.
func EmptyCart() *Cart {
	return &Cart{Items: []CartItem{}}
}

// IsEmpty reports whether the cart has no items.
func (c *Cart) IsEmpty() bool {
	return c == nil || len(c.Items) == 0
}

// Recompute refreshes the derived aggregates from the items.
func (c *Cart) Recompute() {
	count := 0
	total := 0.0
	for i := range c.Items {
		c.Items[i].LineTotal = c.Items[i].UnitPrice() * float64(c.Items[i].Quantity)
		count += c.Items[i].Quantity
		total += c.Items[i].LineTotal
	}
	c.ItemCount = count
	c.TotalAmount = total
}
