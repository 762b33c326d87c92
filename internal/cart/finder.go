package cart

import "pantry-shop/internal/domain"

// FindItemByVariant returns the cached line with the given variant id,
// ignoring the product, or nil.
func (s *Store) FindItemByVariant(variantID string) *domain.CartItem {
	if variantID == "" {
		return nil
	}
	cart := s.Cart()
	for i := range cart.Items {
		if cart.Items[i].VariantID == variantID {
			item := cart.Items[i]
			return &item
		}
	}
	return nil
}

// FindItem returns the cached line matching both identifiers. An empty
// variantID matches only lines that carry no variant.
func (s *Store) FindItem(productID, variantID string) *domain.CartItem {
	cart := s.Cart()
	for i := range cart.Items {
		if cart.Items[i].ProductID != productID {
			continue
		}
		if cart.Items[i].VariantID == variantID {
			item := cart.Items[i]
			return &item
		}
	}
	return nil
}
