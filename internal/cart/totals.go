package cart

import "pantry-shop/internal/domain"

// PricingRules configures the client-side totals calculation.
type PricingRules struct {
	// FreeShippingThreshold is the subtotal at or above which shipping is
	// free.
	FreeShippingThreshold float64
	// ShippingFee is the flat fee charged below the threshold.
	ShippingFee float64
}

// DefaultPricingRules mirrors the storefront's standard shipping rule.
func DefaultPricingRules() PricingRules {
	return PricingRules{FreeShippingThreshold: 50, ShippingFee: 4.90}
}

// Totals is the checkout summary derived from a cart.
type Totals struct {
	Subtotal        float64
	RegularSubtotal float64
	Shipping        float64
	Tax             float64
	Total           float64
	RegularTotal    float64
	HasPromotions   bool
	Savings         float64
}

// CalculateTotals derives totals from the given cart. It is pure: the same
// cart always yields the same totals, and the cart is never mutated.
func CalculateTotals(cart *domain.Cart, rules PricingRules) Totals {
	var t Totals
	if cart == nil {
		return t
	}

	for _, item := range cart.Items {
		qty := float64(item.Quantity)
		t.Subtotal += item.UnitPrice() * qty
		t.RegularSubtotal += item.RegularPrice * qty
		if item.OnPromotion() {
			t.HasPromotions = true
		}
	}

	if len(cart.Items) > 0 && t.Subtotal < rules.FreeShippingThreshold {
		t.Shipping = rules.ShippingFee
	}

	// Tax is a placeholder until regional rates land.
	t.Tax = 0
	t.Total = t.Subtotal + t.Shipping + t.Tax
	t.RegularTotal = t.RegularSubtotal + t.Shipping + t.Tax
	t.Savings = t.RegularSubtotal - t.Subtotal
	return t
}
