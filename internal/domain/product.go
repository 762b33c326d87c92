package domain

import "errors"

var ErrProductNotFound = errors.New("product not found")

// Variant is a purchasable variation of a product (size, pack, grind...).
type Variant struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	Unit       string   `json:"unit,omitempty"`
	Price      float64  `json:"price"`
	PromoPrice *float64 `json:"promoPrice,omitempty"`
	InStock    bool     `json:"inStock"`
}

// Product is a catalog entry.
type Product struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Category    string    `json:"category"`
	Description string    `json:"description,omitempty"`
	Variants    []Variant `json:"variants"`
}

// FindVariant returns the variant with the given id, or nil.
func (p *Product) FindVariant(variantID string) *Variant {
	for i := range p.Variants {
		if p.Variants[i].ID == variantID {
			return &p.Variants[i]
		}
	}
	return nil
}
