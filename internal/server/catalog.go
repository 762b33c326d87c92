package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"pantry-shop/internal/domain"
)

func (s *Server) handleListProducts(w http.ResponseWriter, r *http.Request) {
	category := r.URL.Query().Get("category")

	products := make([]domain.Product, 0, len(s.products))
	for _, p := range s.products {
		if category == "" || p.Category == category {
			products = append(products, p)
		}
	}

	respond(w, http.StatusOK, products)
}

func (s *Server) handleGetProduct(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "productID")

	for i := range s.products {
		if s.products[i].ID == productID {
			respond(w, http.StatusOK, s.products[i])
			return
		}
	}

	respondError(w, http.StatusNotFound, "product_not_found", "Product not found")
}

func promo(v float64) *float64 { return &v }

// seedProducts is the development catalog: enough categories and promo
// pricing to exercise the client's totals and promotion paths.
func seedProducts() []domain.Product {
	return []domain.Product{
		{
			ID:          "prod-espresso",
			Name:        "Espresso Roast Beans",
			Category:    "coffee",
			Description: "Dark roast arabica blend for espresso machines.",
			Variants: []domain.Variant{
				{ID: "var-espresso-250", Name: "250g bag", Unit: "250g", Price: 8.50, InStock: true},
				{ID: "var-espresso-1kg", Name: "1kg bag", Unit: "1kg", Price: 28.00, PromoPrice: promo(24.90), InStock: true},
			},
		},
		{
			ID:          "prod-oolong",
			Name:        "High Mountain Oolong",
			Category:    "tea",
			Description: "Lightly oxidised oolong from Alishan.",
			Variants: []domain.Variant{
				{ID: "var-oolong-100", Name: "100g tin", Unit: "100g", Price: 14.00, InStock: true},
				{ID: "var-oolong-sampler", Name: "Sampler", Unit: "3x20g", Price: 9.50, InStock: false},
			},
		},
		{
			ID:          "prod-olive-oil",
			Name:        "Extra Virgin Olive Oil",
			Category:    "pantry",
			Description: "Cold-pressed, single estate.",
			Variants: []domain.Variant{
				{ID: "var-oil-500", Name: "500ml bottle", Unit: "500ml", Price: 12.90, PromoPrice: promo(10.90), InStock: true},
				{ID: "var-oil-3l", Name: "3l tin", Unit: "3l", Price: 59.00, InStock: true},
			},
		},
		{
			ID:          "prod-pasta",
			Name:        "Bronze-Cut Rigatoni",
			Category:    "pantry",
			Description: "Slow-dried durum wheat pasta.",
			Variants: []domain.Variant{
				{ID: "var-pasta-500", Name: "500g pack", Unit: "500g", Price: 3.20, InStock: true},
			},
		},
		{
			ID:          "prod-honey",
			Name:        "Wildflower Honey",
			Category:    "pantry",
			Description: "Raw, unfiltered honey.",
			Variants: []domain.Variant{
				{ID: "var-honey-340", Name: "340g jar", Unit: "340g", Price: 7.80, InStock: true},
				{ID: "var-honey-1kg", Name: "1kg jar", Unit: "1kg", Price: 19.50, PromoPrice: promo(16.90), InStock: true},
			},
		},
	}
}
